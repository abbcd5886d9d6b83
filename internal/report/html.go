package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/fallsense/internal/cost"
)

func lineData(vals []float64) []opts.LineData {
	data := make([]opts.LineData, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			data[i] = opts.LineData{Value: "-"}
			continue
		}
		data[i] = opts.LineData{Value: v}
	}
	return data
}

func sampleAxis(n int) []int {
	x := make([]int, n)
	for i := range x {
		x[i] = i
	}
	return x
}

// CostChart builds an interactive line chart of one series with its
// threshold as a mark line. subtitle is shown under the method name.
func CostChart(s Series, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Fall detection cost", Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: s.Method.String(), Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Sample", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Cost"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(sampleAxis(len(s.Costs))).
		AddSeries("smoothed", lineData(s.Costs),
			charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{Name: "threshold", YAxis: s.Threshold}),
		)
	if len(s.Raw) == len(s.Costs) {
		line.AddSeries("raw", lineData(s.Raw),
			charts.WithLineStyleOpts(opts.LineStyle{Opacity: opts.Float(0.4)}),
		)
	}
	return line
}

// OverlayChart draws every series clip-normalised to [0, 1] on one axis so
// methods with different scales can be compared.
func OverlayChart(series []Series) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "All methods", Subtitle: "clip-normalised smoothed cost"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
	)
	n := 0
	for _, s := range series {
		if len(s.Costs) > n {
			n = len(s.Costs)
		}
	}
	line.SetXAxis(sampleAxis(n))
	for _, s := range series {
		line.AddSeries(s.Method.String(), lineData(cost.ClipNormalise(s.Costs, cost.DefaultTailFraction)))
	}
	return line
}

// HTMLComparison renders a page with the normalised overlay followed by one
// chart per series.
func HTMLComparison(w io.Writer, series []Series) error {
	page := components.NewPage()
	page.SetPageTitle("Fall detection method comparison")
	if len(series) > 1 {
		page.AddCharts(OverlayChart(series))
	}
	for _, s := range series {
		page.AddCharts(CostChart(s, fmt.Sprintf("%d samples", len(s.Costs))))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render comparison: %w", err)
	}
	return nil
}
