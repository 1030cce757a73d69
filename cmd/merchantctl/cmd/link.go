package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"telegram-affiliate-bot/internal/infra/i18n"
	"telegram-affiliate-bot/internal/usecase"
)

func newLinkCmd(opts *rootOptions) *cobra.Command {
	var (
		cat         catalogueFlags
		showMessage bool
	)
	c := &cobra.Command{
		Use:   "link <merchant> <user_id>",
		Short: "Compose the tracked link a user would receive",
		Long:  "Resolves merchant by slug or name and prints the tracked URL and tracking id. Nothing is recorded.",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			uid, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || uid <= 0 {
				return fmt.Errorf("user_id must be a positive integer, got %q", args[1])
			}
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
			if err != nil {
				return err
			}
			merchants, closeFn, err := cat.open(c.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			m, err := merchants.Resolve(c.Context(), args[0])
			if err != nil {
				return fmt.Errorf("resolve %q: %w", args[0], err)
			}
			composer := usecase.NewLinkComposer(cfg.Links, tr)
			comp := composer.ComposeLink(uid, *m)

			out := c.OutOrStdout()
			fmt.Fprintf(out, "merchant:    %s (%s)\n", m.DisplayName, m.Slug)
			fmt.Fprintf(out, "tracking id: %s\n", comp.TrackingID)
			fmt.Fprintf(out, "url:         %s\n", comp.TrackedURL)
			if showMessage {
				fmt.Fprintf(out, "\n%s\n", composer.ComposeMessage("there", *m, comp))
			}
			return nil
		},
	}
	cat.bind(c)
	c.Flags().BoolVar(&showMessage, "message", false, "also print the chat message")
	return c
}
