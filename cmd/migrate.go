package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-petr/sacco/db/migration"
)

func migrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := migration.Up(a.db, a.config.DBDriver)
			if err != nil {
				return errors.Wrap(err, "cannot migrate up")
			}

			a.logger.Info().Int("applied", n).Msg("migrations applied")

			return nil
		},
	})

	var steps int

	down := &cobra.Command{
		Use:   "down",
		Short: "roll back applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := migration.Down(a.db, a.config.DBDriver, steps)
			if err != nil {
				return errors.Wrap(err, "cannot migrate down")
			}

			a.logger.Info().Int("rolled_back", n).Msg("migrations rolled back")

			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back, 0 for all")

	cmd.AddCommand(down)

	return cmd
}
