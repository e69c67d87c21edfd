package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/grm/nightwatch/internal/config"
	"github.com/grm/nightwatch/internal/decode"
	"github.com/grm/nightwatch/internal/monitor"
	"github.com/grm/nightwatch/internal/notify"
	"github.com/grm/nightwatch/internal/tui"
)

var monitorTUI bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the newest analyze file and report session activity live",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.New(os.Stderr, "", log.LstdFlags)
		rt := cfg.Realtime

		channel, err := buildChannel(logger)
		if err != nil {
			return err
		}
		if rt.MinMessageIntervalSeconds > 0 {
			channel = notify.NewThrottled(channel, time.Duration(rt.MinMessageIntervalSeconds*float64(time.Second)))
		}

		var mets *monitor.Metrics
		if rt.MetricsListenAddr != "" {
			reg := prometheus.NewRegistry()
			mets = monitor.NewMetrics(reg)
			go monitor.ServeMetrics(rt.MetricsListenAddr, reg, logger)
		}

		mon, err := monitor.New(monitor.Config{
			AnalyzeDir:     config.ExpandHome(cfg.AnalyzeDir),
			PollInterval:   time.Duration(rt.PollIntervalSeconds * float64(time.Second)),
			SessionTimeout: time.Duration(rt.SessionTimeoutMinutes * float64(time.Minute)),
			DecodeOptions: decode.Options{
				GuideLostThreshold:   rt.GuideLostThresholdSeconds,
				ReacquireAlertCount:  rt.ReacquireAlertCount,
				ReacquireAlertWindow: rt.ReacquireAlertWindowSeconds,
			},
			Observatory: rt.ObservatoryName,
			Channel:     channel,
			Logger:      logger,
			Metrics:     mets,
		})
		if err != nil {
			return err
		}

		if monitorTUI {
			if !term.IsTerminal(os.Stdout.Fd()) {
				return errors.New("--tui requires an interactive terminal")
			}
			return tui.Run(mon, time.Duration(rt.PollIntervalSeconds*float64(time.Second)))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := mon.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// buildChannel picks the webhook when configured, a stderr logger
// otherwise.
func buildChannel(logger *log.Logger) (notify.Channel, error) {
	if cfg.Webhook == "" {
		return &notify.LogChannel{Logger: logger}, nil
	}
	return notify.NewWebhookChannel(cfg.Webhook, notify.WithAllowOversized(cfg.AllowOversized))
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorTUI, "tui", false, "show a live dashboard instead of running headless")
	rootCmd.AddCommand(monitorCmd)
}
