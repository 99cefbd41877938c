// Package collect implements the collect command: one full aggregation run
// over a date or date range.
package collect

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/tenderwatch/cmd/common"
	"github.com/jonesrussell/tenderwatch/internal/aggregate"
	"github.com/jonesrussell/tenderwatch/internal/output"
)

// flags holds the collect command's flag values.
type flags struct {
	date      string
	when      string
	cpv       []string
	cpvMode   string
	cpvScope  string
	out       string
	noArchive bool
	noFeeds   bool
}

// Command returns the collect command.
func Command() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect tenders for a date or date range and write a CSV",
		Long: `Collect invokes the bulk archive collector once per day in the window
and the feed collector once per configured source, deduplicates the merged
records, and writes them as CSV.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f)
		},
	}

	cmd.Flags().StringVar(&f.date, "date", "",
		"day YYYY-MM-DD or range YYYY-MM-DD,YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&f.when, "when", "",
		"archive date field: updated, published or either (default from config)")
	cmd.Flags().StringSliceVar(&f.cpv, "cpv", nil,
		"CPV target codes (default from config)")
	cmd.Flags().StringVar(&f.cpvMode, "cpv-mode", "",
		"CPV matching: exact or prefix (default from config)")
	cmd.Flags().StringVar(&f.cpvScope, "cpv-scope", "",
		"archive CPV scope: folder, lots or both (default from config)")
	cmd.Flags().StringVar(&f.out, "out", "",
		"output CSV path (default tenders_<date>.csv)")
	cmd.Flags().BoolVar(&f.noArchive, "no-archive", false, "skip the bulk archive collector")
	cmd.Flags().BoolVar(&f.noFeeds, "no-feeds", false, "skip the feed collectors")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func run(cmd *cobra.Command, f *flags) error {
	deps, err := common.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	params := buildParams(deps, f)

	orchestrator := common.NewOrchestrator(deps)
	result, err := orchestrator.Run(cmd.Context(), params)
	if err != nil {
		return err
	}

	outPath := f.out
	if outPath == "" {
		outPath = fmt.Sprintf("tenders_%s.csv", strings.ReplaceAll(f.date, ",", "_"))
	}

	if err := output.WriteFile(outPath, result.Records); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	fmt.Printf("[ok] csv=%s rows=%d archive_rows=%d feed_rows=%d duplicates=%d\n",
		outPath, len(result.Records), result.ArchiveRows, result.FeedRows, result.Duplicates)
	if len(result.FailedDays) > 0 {
		fmt.Printf("[warn] archive days failed: %s\n", strings.Join(result.FailedDays, ", "))
	}
	if len(result.FailedFeeds) > 0 {
		fmt.Printf("[warn] feed sources failed: %s\n", strings.Join(result.FailedFeeds, ", "))
	}

	return nil
}

// buildParams merges flag values over configured run defaults.
func buildParams(deps *common.Deps, f *flags) aggregate.Params {
	run := deps.Config.Run

	params := aggregate.Params{
		Date:           f.date,
		When:           run.When,
		CPV:            run.CPV,
		CPVMode:        run.CPVMode,
		CPVScope:       run.CPVScope,
		DisableArchive: f.noArchive,
		DisableFeeds:   f.noFeeds,
		Sources:        common.FeedSources(deps.Config),
		Location:       deps.Location,
	}

	if f.when != "" {
		params.When = f.when
	}
	if len(f.cpv) > 0 {
		params.CPV = f.cpv
	}
	if f.cpvMode != "" {
		params.CPVMode = f.cpvMode
	}
	if f.cpvScope != "" {
		params.CPVScope = f.cpvScope
	}

	return params
}
