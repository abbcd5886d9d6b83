package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	costColor      = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	thresholdColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	spanColor      = color.NRGBA{R: 255, G: 165, A: 60}
)

// newCostPlot draws one method's smoothed costs against sample index with a
// dashed threshold line and an optional shaded fall span.
func newCostPlot(s Series, span *FallSpan) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (threshold %g)", s.Method, s.Threshold)
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Smoothed cost"

	pts := make(plotter.XYs, 0, len(s.Costs))
	lo, hi := s.Threshold, s.Threshold
	for i, c := range s.Costs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i), Y: c})
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	xMax := math.Max(float64(len(s.Costs)-1), 1)

	if span.Valid() {
		x0, x1 := float64(span.Start), float64(span.End)
		poly, err := plotter.NewPolygon(plotter.XYs{{X: x0, Y: lo}, {X: x1, Y: lo}, {X: x1, Y: hi}, {X: x0, Y: hi}})
		if err != nil {
			return nil, err
		}
		poly.Color = spanColor
		poly.LineStyle.Width = 0
		p.Add(poly)
		p.Legend.Add("fall", poly)
	}

	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = costColor
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add("cost", line)
	}

	th, err := plotter.NewLine(plotter.XYs{{X: 0, Y: s.Threshold}, {X: xMax, Y: s.Threshold}})
	if err != nil {
		return nil, err
	}
	th.Color = thresholdColor
	th.Width = vg.Points(1)
	th.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
	p.Add(th)
	p.Legend.Add("threshold", th)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// PlotCosts writes a single-method cost plot to path. The format follows the
// file extension (png, svg, pdf).
func PlotCosts(path string, s Series, span *FallSpan) error {
	p, err := newCostPlot(s, span)
	if err != nil {
		return fmt.Errorf("build %s plot: %w", s.Method, err)
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s plot: %w", s.Method, err)
	}
	return nil
}

// PlotComparison stacks one panel per series into a single PNG.
func PlotComparison(path string, series []Series, span *FallSpan) error {
	if len(series) == 0 {
		return fmt.Errorf("plot comparison: no series")
	}
	rows := make([][]*plot.Plot, len(series))
	for i, s := range series {
		p, err := newCostPlot(s, span)
		if err != nil {
			return fmt.Errorf("build %s plot: %w", s.Method, err)
		}
		rows[i] = []*plot.Plot{p}
	}

	img := vgimg.New(14*vg.Inch, vg.Length(len(series))*4*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(series),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter * 3,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(rows, tiles, dc)
	for i := range rows {
		rows[i][0].Draw(canvases[i][0])
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	return nil
}
