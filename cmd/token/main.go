package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gopherai-docqa/internal/config"
	"gopherai-docqa/internal/pkg/jwtutil"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "token",
		Short:        "Bearer tokens for the docqa API",
		SilenceUsage: true,
	}

	var subject string
	var ttl time.Duration
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Print a token signed with the configured JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not set; the API is not gated")
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.Auth.JWTExpireMinute) * time.Minute
			}
			token, err := jwtutil.IssueToken(cfg.Auth.JWTSecret, ttl, subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&subject, "subject", "docqa-client", "token subject")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.jwt_expire_minute)")

	verify := &cobra.Command{
		Use:   "verify <token>",
		Short: "Check a token against the configured JWT secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			claims, err := jwtutil.ParseToken(cfg.Auth.JWTSecret, args[0])
			if err != nil {
				return err
			}
			expires := "never"
			if claims.ExpiresAt != nil {
				expires = claims.ExpiresAt.Time.Format(time.RFC3339)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "subject=%s expires=%s\n", claims.Subject, expires)
			return nil
		},
	}

	root.AddCommand(issue, verify)
	return root
}
