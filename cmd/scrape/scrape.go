// Package scrape implements the scrape command: the alternate listing
// front-end that walks a search-results page instead of the syndication
// sources.
package scrape

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/tenderwatch/cmd/common"
	"github.com/jonesrussell/tenderwatch/internal/cpv"
	"github.com/jonesrussell/tenderwatch/internal/output"
	"github.com/jonesrussell/tenderwatch/internal/scraper"
)

// flags holds the scrape command's flag values.
type flags struct {
	url      string
	source   string
	cpv      []string
	cpvMode  string
	maxPages int
	out      string
}

// Command returns the scrape command.
func Command() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape a tender listing page by page into a CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f)
		},
	}

	cmd.Flags().StringVar(&f.url, "url", "", "listing start URL (required)")
	cmd.Flags().StringVar(&f.source, "source", "PLACSP-UI", "source name for the output rows")
	cmd.Flags().StringSliceVar(&f.cpv, "cpv", nil, "CPV target codes")
	cmd.Flags().StringVar(&f.cpvMode, "cpv-mode", "exact", "CPV matching: exact or prefix")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "pagination limit, 0 for no limit")
	cmd.Flags().StringVar(&f.out, "out", "tenders_listing.csv", "output CSV path")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func run(cmd *cobra.Command, f *flags) error {
	deps, err := common.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	mode, err := cpv.ParseMode(f.cpvMode)
	if err != nil {
		return err
	}

	collector := scraper.New(f.source, deps.Config.Fetch.UserAgent, deps.Logger)
	records, err := collector.Collect(cmd.Context(), f.url, scraper.Options{
		CPVTargets: cpv.Normalize(f.cpv, mode),
		CPVMode:    mode,
		MaxPages:   f.maxPages,
		Delay:      deps.Config.Fetch.DetailDelay,
	})
	if err != nil {
		return err
	}

	if err := output.WriteFile(f.out, records); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	fmt.Printf("[ok] csv=%s rows=%d\n", f.out, len(records))
	return nil
}
