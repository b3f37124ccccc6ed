package export

import (
	"fmt"
	"sort"

	"github.com/san-kum/balancer/internal/sim"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series extracts one named column from a sample.
var Series = map[string]func(sim.Sample) float64{
	"tilt":             func(s sim.Sample) float64 { return s.Tilt },
	"tilt_rate":        func(s sim.Sample) float64 { return s.TiltRate },
	"position":         func(s sim.Sample) float64 { return s.Position },
	"error":            func(s sim.Sample) float64 { return float64(s.Telemetry.Error) },
	"error_derivative": func(s sim.Sample) float64 { return float64(s.Telemetry.ErrorDerivative) },
	"left":             func(s sim.Sample) float64 { return float64(s.Command.Left) },
	"right":            func(s sim.Sample) float64 { return float64(s.Command.Right) },
}

func SeriesNames() []string {
	names := make([]string, 0, len(Series))
	for n := range Series {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Column returns the named series of samples.
func Column(samples []sim.Sample, name string) ([]float64, error) {
	get, ok := Series[name]
	if !ok {
		return nil, fmt.Errorf("unknown series %q (have %v)", name, SeriesNames())
	}
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = get(s)
	}
	return out, nil
}

// Plot draws the named series against time. The image format follows the
// extension of path: png, svg, pdf and others supported by gonum/plot.
func Plot(path, title string, samples []sim.Sample, series ...string) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to plot")
	}
	if len(series) == 0 {
		series = []string{"tilt"}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Add(plotter.NewGrid())

	lines := make([]any, 0, 2*len(series))
	for _, name := range series {
		ys, err := Column(samples, name)
		if err != nil {
			return err
		}
		pts := make(plotter.XYs, len(samples))
		for i, s := range samples {
			pts[i].X = s.Time
			pts[i].Y = ys[i]
		}
		lines = append(lines, name, pts)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return err
	}
	if len(series) == 1 {
		p.Y.Label.Text = series[0]
	}

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
