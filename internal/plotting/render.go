package plotting

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// ErrNothingToPlot is returned when the session has no chartable data.
var ErrNothingToPlot = errors.New("nothing to plot")

func themeFor(name string) string {
	if name == "dark" {
		return types.ThemeChalk
	}
	return types.ThemeWesteros
}

// RenderHTML writes the session charts as a standalone HTML page.
func RenderHTML(s *Series, outPath, theme string) error {
	if s.Empty() {
		return ErrNothingToPlot
	}

	page := components.NewPage()
	page.PageTitle = "nightwatch session " + s.StartTime

	if chart := hfrChart(s, theme); chart != nil {
		page.AddCharts(chart)
	}
	if chart := xyChart("Guide error (arcsec)", s.GuideDistance, theme); chart != nil {
		page.AddCharts(chart)
	}
	if chart := xyChart("Temperature (°C)", s.Temperature, theme); chart != nil {
		page.AddCharts(chart)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}
	return nil
}

// hfrChart plots per-filter HFR lines with autofocus runs as scatter
// markers on the same axes.
func hfrChart(s *Series, theme string) components.Charter {
	if len(s.HFRByFilter) == 0 && len(s.Autofocus) == 0 {
		return nil
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: themeFor(theme)}),
		charts.WithTitleOpts(opts.Title{Title: "HFR by filter", Subtitle: s.StartTime}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "seconds"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	for _, filter := range s.Filters() {
		var data []opts.LineData
		for _, p := range s.HFRByFilter[filter] {
			data = append(data, opts.LineData{Value: []interface{}{p.X, p.Y}})
		}
		line.AddSeries(filter, data)
	}

	if len(s.Autofocus) > 0 {
		scatter := charts.NewScatter()
		var data []opts.ScatterData
		for _, m := range s.Autofocus {
			y := 0.0
			if m.BestHFR != nil {
				y = *m.BestHFR
			}
			data = append(data, opts.ScatterData{Value: []interface{}{m.Time, y}})
		}
		scatter.AddSeries("autofocus", data)
		line.Overlap(scatter)
	}
	return line
}

func xyChart(title string, points []Point, theme string) components.Charter {
	if len(points) == 0 {
		return nil
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: themeFor(theme)}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "seconds"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	var data []opts.LineData
	for _, p := range points {
		data = append(data, opts.LineData{Value: []interface{}{p.X, p.Y}})
	}
	line.AddSeries(title, data)
	return line
}
