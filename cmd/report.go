package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/grm/nightwatch/internal/aggregate"
	"github.com/grm/nightwatch/internal/config"
	"github.com/grm/nightwatch/internal/decode"
	"github.com/grm/nightwatch/internal/event"
	"github.com/grm/nightwatch/internal/metrics"
	"github.com/grm/nightwatch/internal/notify"
	"github.com/grm/nightwatch/internal/parse"
	"github.com/grm/nightwatch/internal/report"
)

var (
	reportDryRun bool
	reportHours  int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize recent analyze files and send the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		hours := cfg.Hours
		if reportHours > 0 {
			hours = reportHours
		}

		dir := config.ExpandHome(cfg.AnalyzeDir)
		files, err := parse.FindAnalyzeFiles(dir, float64(hours), time.Now())
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Printf("No analyze files in the last %dh under %s\n", hours, dir)
			return nil
		}

		sessions := parseSessions(files)

		level, err := report.ParseLevel(cfg.ReportLevel)
		if err != nil {
			return err
		}

		r := aggregate.Aggregate(sessions, aggregate.Options{
			PixelScale:  cfg.Guiding.ArcsecPerPixel,
			ExcellentPx: cfg.Guiding.ExcellentPx,
			GoodPx:      cfg.Guiding.GoodPx,
			AveragePx:   cfg.Guiding.AveragePx,
		})
		summary := metrics.Compute(r, metrics.Thresholds{
			HFRDrift:    cfg.AlertThresholds.HFRDriftWarning,
			TempSwing:   cfg.AlertThresholds.TemperatureSwingWarning,
			SuccessRate: cfg.AlertThresholds.SuccessRateWarning,
		}, level == report.LevelDetailed)

		messages := report.Pack(report.Build(r, summary, level), report.DefaultBudget, cfg.AllowOversized)

		if reportDryRun || cfg.Webhook == "" {
			for i, msg := range messages {
				if i > 0 {
					fmt.Println("---")
				}
				fmt.Println(msg)
			}
			return nil
		}

		channel, err := notify.NewWebhookChannel(cfg.Webhook, notify.WithAllowOversized(cfg.AllowOversized))
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		for _, msg := range messages {
			if err := channel.Send(ctx, msg); err != nil {
				return fmt.Errorf("sending report: %w", err)
			}
		}
		fmt.Printf("Sent %d message(s) covering %d session file(s)\n", len(messages), len(files))
		return nil
	},
}

// parseSessions parses each file, keeping partial sessions and reporting
// each file-level failure once.
func parseSessions(files []string) []*event.Session {
	logger := log.New(os.Stderr, "", 0)
	var sessions []*event.Session
	for _, path := range files {
		sess, err := parse.ParseFile(path, decode.Options{})
		if err != nil {
			logger.Printf("warning: %v", err)
		}
		if sess != nil {
			sessions = append(sessions, sess)
		}
	}
	return sessions
}

func init() {
	reportCmd.Flags().BoolVar(&reportDryRun, "dry-run", false, "print the report instead of sending it")
	reportCmd.Flags().IntVar(&reportHours, "hours", 0, "lookback window in hours (overrides config)")
	rootCmd.AddCommand(reportCmd)
}
