package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-ingest/internal/adapter/repository"
	"github.com/johnquangdev/meeting-ingest/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-ingest/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-ingest/internal/infrastructure/external/wemeet"
	"github.com/johnquangdev/meeting-ingest/internal/infrastructure/media"
	"github.com/johnquangdev/meeting-ingest/internal/infrastructure/storage"
	"github.com/johnquangdev/meeting-ingest/internal/usecase/ingest"
	"github.com/johnquangdev/meeting-ingest/pkg/ai"
	"github.com/johnquangdev/meeting-ingest/pkg/config"
)

var debug bool

func main() {
	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Meeting recording ingestion pipeline",
		Long:          "Lists finished cloud recordings, downloads and transcribes them, and stores summaries with per-participant statistics.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.AddCommand(newRunCmd(), newDailyCmd(), newReportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process all recordings in an explicit time window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			startTime, err := parseTimeArg(start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			endTime, err := parseTimeArg(end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			if endTime <= startTime {
				return fmt.Errorf("--end must be after --start")
			}
			return withService(cmd.Context(), func(ctx context.Context, svc *ingest.Service, logger *zap.Logger) error {
				report, err := svc.Run(ctx, startTime, endTime)
				printReport(report)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "window start (unix seconds or RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "window end (unix seconds or RFC3339)")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func newDailyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daily",
		Short: "Process the previous full day (scheduled entry point)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *ingest.Service, logger *zap.Logger) error {
				report, err := svc.RunIncremental(ctx)
				printReport(report)
				return err
			})
		},
	}
}

func newReportCmd() *cobra.Command {
	var days, top int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print ingestion aggregates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := database.NewPostgresDB(cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer database.CloseDB(db)

			ctx := cmd.Context()
			reports := repository.NewReportRepository(db)

			statuses, err := reports.StatusHistogram(ctx)
			if err != nil {
				return err
			}
			fmt.Println("By status:")
			for _, s := range statuses {
				fmt.Printf("  %-12s %d\n", s.Status, s.Count)
			}

			categories, err := reports.CategoryHistogram(ctx)
			if err != nil {
				return err
			}
			fmt.Println("By category:")
			for _, c := range categories {
				fmt.Printf("  %-20s %d\n", c.Category, c.Count)
			}

			since := time.Now().AddDate(0, 0, -days)
			daily, err := reports.DailyCounts(ctx, since)
			if err != nil {
				return err
			}
			fmt.Printf("Daily counts (last %d days):\n", days)
			for _, d := range daily {
				fmt.Printf("  %s  %d\n", d.Day, d.Count)
			}

			participants, err := reports.TopParticipants(ctx, top)
			if err != nil {
				return err
			}
			fmt.Println("Top participants:")
			for _, p := range participants {
				fmt.Printf("  %-24s recordings=%d total=%s\n",
					p.ParticipantID, p.RecordingCount,
					(time.Duration(p.TotalDurationSeconds) * time.Second).String())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "daily-count window in days")
	cmd.Flags().IntVar(&top, "top", 10, "number of participants to list")
	return cmd
}

// withService loads config, connects the backing services and hands a fully
// wired pipeline to fn. Connections are closed when fn returns.
func withService(parent context.Context, fn func(context.Context, *ingest.Service, *zap.Logger) error) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.CloseDB(db)

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	var archive ingest.AudioArchive
	if cfg.Storage.Enabled() {
		mc, err := storage.NewMinIOClient(&cfg.Storage)
		if err != nil {
			return fmt.Errorf("connect object storage: %w", err)
		}
		archive = mc
	}

	var runLock ingest.RunLock
	if cfg.Redis.Enabled() {
		rc, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rc.Close()
		runLock = rc
	}

	kimi := ai.NewKimiClient(&cfg.Kimi)
	var transcriber ingest.Transcriber = kimi
	if cfg.Pipeline.TranscriberBackend == "assemblyai" {
		transcriber = ai.NewAssemblyAIClient(&cfg.AssemblyAI)
	}

	client := wemeet.NewClient(&cfg.Meeting, logger)
	svc := ingest.NewService(
		client,
		client,
		media.NewAcquirer(cfg.Pipeline.DownloadConnections, logger),
		transcriber,
		ingest.NewClassifier(kimi, logger),
		repository.NewRecordingRepository(db),
		repository.NewProcessLogRepository(db),
		archive,
		runLock,
		cfg.Pipeline,
		cfg.Location(),
		logger,
	)

	return fn(ctx, svc, logger)
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// parseTimeArg accepts unix seconds or RFC3339.
func parseTimeArg(s string) (int64, error) {
	if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
		return epoch, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

func printReport(report *ingest.RunReport) {
	if report == nil {
		return
	}
	fmt.Printf("pages=%d listed=%d succeeded=%d failed=%d skipped=%d not_attempted=%d\n",
		report.Pages, report.Listed, report.Succeeded,
		report.Failed, report.Skipped, report.NotAttempted)
}
