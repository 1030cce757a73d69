package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"telegram-affiliate-bot/internal/infra/api"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	c := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin API bearer token",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Admin.TokenTTL
			}
			tok, err := api.NewAuthManager(cfg.Admin.JWTSecret, ttl).Mint(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), tok)
			return nil
		},
	}
	c.Flags().StringVar(&subject, "subject", "merchantctl", "token subject")
	c.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default admin.token_ttl)")
	return c
}
