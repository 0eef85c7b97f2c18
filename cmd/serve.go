package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-petr/sacco/cmd/httpserver"
)

func serveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the savings API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := httpserver.New(a.db, a.logger, a.config)
			if err != nil {
				return errors.Wrap(err, "cannot create server")
			}
			defer func() { _ = server.Close() }()

			a.logger.Info().Str("address", a.config.ServerAddress).Msg("SACCO API SERVER HAS STARTED")

			return errors.Wrap(server.Engine.Run(a.config.ServerAddress), "cannot start server")
		},
	}
}
