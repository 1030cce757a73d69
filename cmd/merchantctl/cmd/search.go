package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"telegram-affiliate-bot/internal/usecase"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		cat   catalogueFlags
		limit int
	)
	c := &cobra.Command{
		Use:   "search [term]",
		Short: "Run the inline matcher against the catalogue",
		Long:  "Prints the merchants an inline query for term would return, with their match scores. No term lists the top-rated merchants.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Search.DisplayLimit
			}
			merchants, closeFn, err := cat.open(c.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			res, err := merchants.Search(c.Context(), term, limit)
			if err != nil {
				return err
			}
			if len(res) == 0 {
				fmt.Fprintf(c.OutOrStdout(), "no merchants match %q\n", term)
				return nil
			}

			w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tSLUG\tNAME\tRATE")
			for _, r := range res {
				fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\n", r.MatchScore, r.Slug, r.DisplayName, usecase.FormatRate(r.BaseRate))
			}
			return w.Flush()
		},
	}
	cat.bind(c)
	c.Flags().IntVar(&limit, "limit", 0, "maximum results (default search.display_limit)")
	return c
}
