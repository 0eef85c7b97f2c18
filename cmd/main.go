// Package main provides the sacco command line: the savings API server and its admin tasks.
package main

import (
	"database/sql"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-petr/sacco/internal/middleware"
	"github.com/go-petr/sacco/pkg/configpkg"
	"github.com/go-petr/sacco/pkg/dbpkg"

	_ "github.com/lib/pq"
)

// app holds what every subcommand needs once the root pre-run is done.
type app struct {
	config configpkg.Config
	logger zerolog.Logger
	db     *sql.DB
}

func (a *app) preRun(configPath *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		config, err := configpkg.Load(*configPath)
		if err != nil {
			return errors.Wrap(err, "cannot load config")
		}

		a.config = config
		a.logger = middleware.CreateLogger(config)

		db, err := dbpkg.Setup(config.DBDriver, config.DBSource, config.DBConnectTimeout)
		if err != nil {
			return errors.Wrap(err, "cannot connect to database")
		}

		a.db = db

		return nil
	}
}

func (a *app) postRun(cmd *cobra.Command, args []string) {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("cannot close database")
		}
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	a := &app{}

	root := &cobra.Command{
		Use:           "sacco",
		Short:         "Savings and credit cooperative core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "./configs", "directory holding app.env")
	root.PersistentPreRunE = a.preRun(&configPath)
	root.PersistentPostRun = a.postRun

	root.AddCommand(serveCommand(a))
	root.AddCommand(migrateCommand(a))
	root.AddCommand(userAddCommand(a))
	root.AddCommand(memberAddCommand(a))

	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Error().Err(err).Send()
		os.Exit(1)
	}
}
