package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/memberrepo"
	"github.com/go-petr/sacco/internal/userrepo"
	"github.com/go-petr/sacco/internal/userservice"
	"github.com/go-petr/sacco/pkg/tokenpkg"
)

// userAddCommand creates staff users; it is how the first ADMIN gets in.
func userAddCommand(a *app) *cobra.Command {
	var username, password, fullName, role string

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "create a staff user",
		RunE: func(cmd *cobra.Command, args []string) error {
			maker, err := tokenpkg.NewMaker(a.config)
			if err != nil {
				return errors.Wrap(err, "cannot create token maker")
			}

			us := userservice.New(userrepo.NewRepoPGS(a.db), maker, a.config.AccessTokenDuration)

			ctx := a.logger.WithContext(cmd.Context())

			u, err := us.Create(ctx, username, password, fullName, role)
			if err != nil {
				return err
			}

			a.logger.Info().Str("username", u.Username).Str("role", u.Role).Msg("user created")

			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().StringVar(&fullName, "full-name", "", "display name")
	cmd.Flags().StringVar(&role, "role", domain.RoleStaff, "ADMIN, STAFF or AUDITOR")

	for _, name := range []string{"username", "password", "full-name"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// memberAddCommand registers a member record for local setups without the member directory.
func memberAddCommand(a *app) *cobra.Command {
	var fullName, status string

	cmd := &cobra.Command{
		Use:   "memberadd",
		Short: "register a member",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.logger.WithContext(cmd.Context())

			m, err := memberrepo.NewRepoPGS(a.db).Create(ctx, fullName, domain.MembershipStatus(status))
			if err != nil {
				return err
			}

			a.logger.Info().Int64("member_id", m.ID).Str("status", string(m.Status)).Msg("member registered")

			return nil
		},
	}

	cmd.Flags().StringVar(&fullName, "full-name", "", "member name")
	cmd.Flags().StringVar(&status, "status", string(domain.MembershipStatusActive), "PENDING, ACTIVE, SUSPENDED or EXITED")
	_ = cmd.MarkFlagRequired("full-name")

	return cmd
}
