package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/app"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/config"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/service"
	"github.com/spf13/cobra"
)

type runOptions struct {
	bucket        string
	workers       int
	failurePolicy string
}

func newRunCmd(ro *rootOptions) *cobra.Command {
	var opts runOptions

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one batch run against the configured bucket",
		Long: `Discover every file in the bucket, load each one into the staging table,
run the transform and validation steps once, then archive the loaded files.

Exits non-zero when the transform or validation fails, or when the run
aborts as a whole. Individual files that fail to load stay in the bucket
for the next run and do not affect the exit status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, ro, &opts)
		},
	}

	runCmd.Flags().StringVarP(&opts.bucket, "bucket", "b", "", "Bucket to process (overrides pipeline.bucket)")
	runCmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Concurrent unit loads (overrides pipeline.workers)")
	runCmd.Flags().StringVar(&opts.failurePolicy, "failure-policy", "", "partial or strict (overrides pipeline.failure_policy)")

	return runCmd
}

func runBatch(cmd *cobra.Command, ro *rootOptions, opts *runOptions) error {
	log := commandLogger(cmd)

	cfg, err := ro.loadConfig(func(cfg *config.Config) {
		if opts.bucket != "" {
			cfg.Pipeline.Bucket = opts.bucket
		}
		if opts.workers > 0 {
			cfg.Pipeline.Workers = opts.workers
		}
		if opts.failurePolicy != "" {
			cfg.Pipeline.FailurePolicy = opts.failurePolicy
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, ro.appOptions...)
	if err != nil {
		return err
	}
	defer a.Close()

	report, runErr := a.Orchestrator.Run(ctx)
	if report != nil {
		printReport(cmd, report)
	}
	return runErr
}

func printReport(cmd *cobra.Command, report *service.RunReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: status=%s discovered=%d loaded=%d skipped=%d failed=%d archived=%d\n",
		report.RunID,
		report.Status,
		len(report.Units),
		report.Loaded(),
		report.Count(domain.UnitStateSkipped),
		report.Count(domain.UnitStateLoadFailed)+report.Count(domain.UnitStateArchiveFailed),
		report.Count(domain.UnitStateArchived),
	)
	for _, u := range report.Units {
		if u.Err != nil {
			fmt.Fprintf(out, "  %s: %s: %v\n", u.UnitID, u.State, u.Err)
		}
	}
	if report.Err != nil {
		fmt.Fprintf(out, "error: %v\n", report.Err)
	}
}
