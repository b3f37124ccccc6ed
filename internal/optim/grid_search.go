// Package optim tunes controller gains by simulating every point of a grid.
package optim

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/san-kum/balancer/internal/sim"
	"golang.org/x/sync/errgroup"
)

// FallPenalty is added to the objective of a run that fell.
const FallPenalty = 1000.0

// RunFunc simulates one parameter set.
type RunFunc func(ctx context.Context, params map[string]float64) (*sim.Result, error)

type Point struct {
	Params map[string]float64
	Score  float64
	Fell   bool
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: runtime.NumCPU()}
}

// SetWorkers bounds the number of concurrent runs.
func (g *GridSearch) SetWorkers(n int) {
	if n > 0 {
		g.workers = n
	}
}

// Points enumerates the grid in row-major order.
func (g *GridSearch) Points() []map[string]float64 {
	var out []map[string]float64
	g.enumerate(0, make(map[string]float64), &out)
	return out
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		p := make(map[string]float64, len(current))
		for k, v := range current {
			p[k] = v
		}
		*out = append(*out, p)
		return
	}
	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		g.enumerate(depth+1, current, out)
	}
	delete(current, name)
}

// Search runs every grid point and returns the one with the lowest metric,
// plus all evaluated points in grid order. Runs that fail to build are
// skipped; a context error aborts the search.
func (g *GridSearch) Search(ctx context.Context, run RunFunc, metricName string) (Point, []Point, error) {
	if len(g.paramNames) != len(g.ranges) {
		return Point{}, nil, fmt.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	points := g.Points()
	scored := make([]Point, len(points))
	valid := make([]bool, len(points))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for i, p := range points {
		i, p := i, p
		eg.Go(func() error {
			res, err := run(ctx, p)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				return nil
			}
			val, ok := res.Metrics[metricName]
			if !ok {
				return fmt.Errorf("run produced no %q metric", metricName)
			}
			if res.Fell {
				val += FallPenalty
			}
			scored[i] = Point{Params: p, Score: val, Fell: res.Fell}
			valid[i] = true
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Point{}, nil, err
	}

	best := Point{Score: math.Inf(1)}
	var all []Point
	for i, pt := range scored {
		if !valid[i] {
			continue
		}
		all = append(all, pt)
		if pt.Score < best.Score {
			best = pt
		}
	}
	if best.Params == nil {
		return Point{}, all, fmt.Errorf("no grid point produced a result")
	}
	return best, all, nil
}

// Range returns n evenly spaced values from lo to hi inclusive.
func Range(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
