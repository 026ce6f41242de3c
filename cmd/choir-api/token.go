package main

import (
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/choir/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/choir/backend/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errTokenRequiresSharedSecret = errors.New("token command requires auth.mode=shared_secret")

func newTokenCommand() *cobra.Command {
	var (
		subject string
		roles   []string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a shared-secret bearer token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			if appConfig.AuthMode != config.AuthModeSharedSecret {
				return errTokenRequiresSharedSecret
			}

			issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
				SigningSecret: []byte(appConfig.AuthSigningSecret),
				Issuer:        appConfig.AuthTokenIssuer,
				Audience:      appConfig.AuthAudience,
				RolesClaim:    appConfig.AuthRolesClaim,
				TokenTTL:      appConfig.AuthTokenTTL,
			})
			if err != nil {
				return err
			}

			token, expiresIn, err := issuer.Issue(cmd.Context(), subject, roles)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires in %ds\n", expiresIn)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "local-director", "Token subject")
	cmd.Flags().StringSliceVar(&roles, "roles", []string{"ADMIN"}, "Roles carried by the token")
	return cmd
}
