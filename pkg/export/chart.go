package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/oncall/core/report"
)

// WriteChart renders an HTML page with shifts per engineer against their
// cap and engineers per day against capacity.
func WriteChart(w io.Writer, r report.Report) error {
	title := fmt.Sprintf("%s on-call %s", r.Team, r.Month)
	page := components.NewPage().SetPageTitle(title)
	page.AddCharts(engineerChart(r, title), dayChart(r))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func engineerChart(r report.Report, title string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("fill rate %.0f%%, stddev %.2f", r.FillRate*100, r.StdDev),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Shifts"}),
	)
	names := make([]string, 0, len(r.Engineers))
	assigned := make([]opts.BarData, 0, len(r.Engineers))
	limits := make([]opts.BarData, 0, len(r.Engineers))
	for _, e := range r.Engineers {
		names = append(names, e.ID)
		assigned = append(assigned, opts.BarData{Value: e.Assigned})
		limits = append(limits, opts.BarData{Value: e.MaxShifts})
	}
	bar.SetXAxis(names).
		AddSeries("Assigned", assigned).
		AddSeries("Max shifts", limits)
	return bar
}

func dayChart(r report.Report) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Coverage per on-call day"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Engineers"}),
	)
	dates := make([]string, 0, len(r.Days))
	filled := make([]opts.BarData, 0, len(r.Days))
	capacity := make([]opts.BarData, 0, len(r.Days))
	for _, d := range r.Days {
		dates = append(dates, d.Date)
		filled = append(filled, opts.BarData{Value: len(d.Engineers)})
		capacity = append(capacity, opts.BarData{Value: d.Capacity})
	}
	bar.SetXAxis(dates).
		AddSeries("On call", filled).
		AddSeries("Capacity", capacity)
	return bar
}
