// Package schedule implements the schedule command: unattended daily runs
// driven by a cron expression.
package schedule

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/tenderwatch/cmd/common"
	"github.com/jonesrussell/tenderwatch/internal/aggregate"
	"github.com/jonesrussell/tenderwatch/internal/output"
)

// Command returns the schedule command.
func Command() *cobra.Command {
	var (
		cronSpec string
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run collection on a cron schedule until interrupted",
		Long: `Schedule runs the collect pipeline on a cron expression, collecting the
previous calendar day on each tick. It runs until interrupted with Ctrl+C.
Rerunning a day against unchanged upstream data produces identical output,
so overlapping schedules are safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cronSpec, outDir)
		},
	}

	cmd.Flags().StringVar(&cronSpec, "cron", "0 7 * * *",
		"cron expression for collection runs")
	cmd.Flags().StringVar(&outDir, "out-dir", ".",
		"directory for the per-day CSV files")

	return cmd
}

func run(cmd *cobra.Command, cronSpec, outDir string) error {
	deps, err := common.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orchestrator := common.NewOrchestrator(deps)

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cronSpec, func() {
		day := time.Now().In(deps.Location).AddDate(0, 0, -1).Format("2006-01-02")
		collectDay(ctx, deps, orchestrator, day, outDir)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronSpec, err)
	}

	deps.Logger.Info("scheduler started", "cron", cronSpec)
	scheduler.Start()

	<-ctx.Done()
	deps.Logger.Info("scheduler stopping")

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	return nil
}

func collectDay(
	ctx context.Context,
	deps *common.Deps,
	orchestrator *aggregate.Orchestrator,
	day, outDir string,
) {
	params := aggregate.Params{
		Date:     day,
		When:     deps.Config.Run.When,
		CPV:      deps.Config.Run.CPV,
		CPVMode:  deps.Config.Run.CPVMode,
		CPVScope: deps.Config.Run.CPVScope,
		Sources:  common.FeedSources(deps.Config),
		Location: deps.Location,
	}

	result, err := orchestrator.Run(ctx, params)
	if err != nil {
		deps.Logger.Error("scheduled run failed", "day", day, "error", err)
		return
	}

	outPath := filepath.Join(outDir, fmt.Sprintf("tenders_%s.csv", day))
	if err := output.WriteFile(outPath, result.Records); err != nil {
		deps.Logger.Error("scheduled run write failed", "day", day, "error", err)
		return
	}

	deps.Logger.Info("scheduled run finished", "day", day, "csv", outPath, "rows", len(result.Records))
}
