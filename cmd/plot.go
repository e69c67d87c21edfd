package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/grm/nightwatch/internal/config"
	"github.com/grm/nightwatch/internal/parse"
	"github.com/grm/nightwatch/internal/plotting"
	"github.com/grm/nightwatch/internal/tail"
)

var (
	plotHours  int
	plotLatest bool
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render HFR, guiding and temperature charts from analyze files",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := config.ExpandHome(cfg.AnalyzeDir)

		var files []string
		if plotLatest {
			latest, err := tail.FindLatest(dir)
			if err != nil {
				if errors.Is(err, tail.ErrNoFile) {
					fmt.Printf("No analyze files under %s\n", dir)
					return nil
				}
				return err
			}
			files = []string{latest}
		} else {
			hours := cfg.Hours
			if plotHours > 0 {
				hours = plotHours
			}
			var err error
			files, err = parse.FindAnalyzeFiles(dir, float64(hours), time.Now())
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Printf("No analyze files in the last %dh under %s\n", hours, dir)
				return nil
			}
		}

		outDir := config.ExpandHome(cfg.Plotting.OutputDir)
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		written := 0
		for _, sess := range parseSessions(files) {
			series := plotting.Extract(sess)
			outPath := filepath.Join(outDir, chartName(sess.Path))
			err := plotting.RenderHTML(series, outPath, cfg.Plotting.Theme)
			if errors.Is(err, plotting.ErrNothingToPlot) {
				continue
			}
			if err != nil {
				return err
			}
			fmt.Println(outPath)
			written++
		}
		if written == 0 {
			fmt.Println("No chartable data found.")
		}
		return nil
	},
}

// chartName derives the output filename from the analyze file's name.
func chartName(analyzePath string) string {
	base := strings.TrimSuffix(filepath.Base(analyzePath), ".analyze")
	return base + ".html"
}

func init() {
	plotCmd.Flags().IntVar(&plotHours, "hours", 0, "lookback window in hours (overrides config)")
	plotCmd.Flags().BoolVar(&plotLatest, "latest", false, "chart only the newest analyze file")
	rootCmd.AddCommand(plotCmd)
}
