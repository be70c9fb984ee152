// Command pipeline führt einzelne Pipeline-Stufen von Hand aus, z.B. für
// Nachladen älterer Zeiträume oder das Zurücksetzen der Zusammenfassungen.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/app"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
)

var (
	logger *zap.Logger
	pipe   *app.App
)

var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run NeuroEdge pipeline stages by hand",
	Long: `pipeline runs the fetch, classification, summarization and notification
stages once, outside of the scheduler. Every run is recorded as a job run.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config load error: %w", err)
		}
		pipe, err = app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return pipe.RegisterStages(false)
	},
}

func main() {
	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.AddCommand(fetchCmd(), stageCmd("classify", "Classify pending papers", models.JobClassify),
		stageCmd("summarize", "Summarize pending papers", models.JobSummarize),
		stageCmd("notify", "Send weekly notifications", models.JobSendNotifications),
		resetCmd(), runsCmd())

	err = rootCmd.ExecuteContext(ctx)
	if pipe != nil {
		if cerr := pipe.Close(); cerr != nil {
			logger.Warn("Fehler beim Schließen", zap.Error(cerr))
		}
	}
	if err != nil {
		logger.Error("Befehl fehlgeschlagen", zap.Error(err))
		stop()
		logger.Sync()
		os.Exit(1)
	}
}

func stageCmd(use, short, stage string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := pipe.Scheduler.RunNow(cmd.Context(), stage, models.TriggerCLI)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items\n", stage, n)
			return nil
		},
	}
}

func fetchCmd() *cobra.Command {
	var (
		from, to string
		days     int
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch papers from all configured sources",
		Long: `Fetch papers published in the last --days days, or in the explicit
range --from/--to (YYYY-MM-DD, both inclusive) to backfill older issues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days == 0 {
				days = pipe.Config.FetchLookbackDays
			}
			window, err := parseWindow(from, to, days, pipe.Fetch.Now())
			if err != nil {
				return err
			}
			n, err := pipe.Recorder.Run(cmd.Context(), models.JobFetch, models.TriggerCLI, func(ctx context.Context) (int, error) {
				return pipe.Fetch.RunWindow(ctx, window)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d new papers (%s to %s)\n", models.JobFetch, n,
				window.Start.Format(dateLayout), window.End.Format(dateLayout))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start of the publication window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end of the publication window (YYYY-MM-DD), defaults to today")
	cmd.Flags().IntVar(&days, "days", 0, "trailing window in days (default FETCH_LOOKBACK_DAYS)")
	cmd.MarkFlagsMutuallyExclusive("from", "days")
	return cmd
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-summaries",
		Short: "Delete all summaries and queue papers with an abstract again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := pipe.Summarize.Reset(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d summaries\n", deleted)
			return nil
		},
	}
}

func runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent job runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := pipe.Repo.RecentJobRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %-20s %-8s %-9s items=%d\n",
					r.StartedAt.Format("2006-01-02 15:04:05"), r.JobName, r.Status, r.Trigger, r.ItemsProcessed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}
