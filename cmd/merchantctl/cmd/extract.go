package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"telegram-affiliate-bot/internal/usecase"
)

func newExtractCmd(_ *rootOptions) *cobra.Command {
	var (
		input, output, country string
		pretty                 bool
	)
	c := &cobra.Command{
		Use:   "extract",
		Short: "Extract usable merchants from an affiliation export",
		Long:  "Keeps records of --country with a non-null base_mpd and writes base_mpd, merchantName, merchant_slug and trackingLink.",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			recs, err := usecase.ExtractAffiliations(data, country)
			if err != nil {
				return err
			}
			if err := writeJSONFile(output, recs, pretty); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Wrote %d records to %s\n", len(recs), output)
			return nil
		},
	}
	c.Flags().StringVar(&input, "input", "", "path to affiliation_merchants.json")
	c.Flags().StringVar(&output, "output", "dataset/extracted_merchants_sg.json", "output JSON path")
	c.Flags().StringVar(&country, "country", usecase.DefaultCountry, "country_filter to keep")
	c.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	_ = c.MarkFlagRequired("input")
	return c
}

func writeJSONFile(path string, v any, pretty bool) error {
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
