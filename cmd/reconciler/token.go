package main

import (
	"errors"
	"fmt"
	"time"

	"wallet-reconciler/internal/service"

	"github.com/spf13/cobra"
)

func tokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		expiry  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the reconciliation endpoints",
		Example: `  reconciler token --subject cron
  reconciler token --subject ops --expiry 24h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			if subject == "" {
				return errors.New("--subject is required")
			}
			if expiry <= 0 {
				expiry = cfg.Auth.Expiry
			}

			tokenSvc := service.NewJWTTokenService(cfg.Auth.JWTSecret, expiry, cfg.Auth.Issuer)
			token, expiresAt, err := tokenSvc.Generate(subject)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "caller identity recorded in the token")
	cmd.Flags().DurationVar(&expiry, "expiry", 0, "token lifetime (default auth.expiry)")
	return cmd
}
