package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Summary struct {
	Mean          float64
	StdDev        float64
	RMS           float64
	Peak          float64
	ZeroCrossings int

	// SettlingTime is the first time after which |x| stays within the band,
	// or -1 if the series never settles.
	SettlingTime float64

	Wobble Oscillation
}

// Summarize describes series sampled at times. band is the settling band.
func Summarize(times, series []float64, band float64) Summary {
	var s Summary
	n := len(series)
	if n == 0 || len(times) != n {
		s.SettlingTime = -1
		return s
	}

	s.Mean, s.StdDev = stat.MeanStdDev(series, nil)
	s.RMS = math.Sqrt(floats.Dot(series, series) / float64(n))

	abs := make([]float64, n)
	for i, v := range series {
		abs[i] = math.Abs(v)
	}
	s.Peak = floats.Max(abs)

	for i := 1; i < n; i++ {
		if (series[i-1] < s.Mean) != (series[i] < s.Mean) {
			s.ZeroCrossings++
		}
	}

	s.SettlingTime = -1
	for i := n - 1; i >= 0; i-- {
		if abs[i] > band {
			if i < n-1 {
				s.SettlingTime = times[i+1]
			}
			break
		}
		if i == 0 {
			s.SettlingTime = times[0]
		}
	}

	if n > 1 {
		if dt := (times[n-1] - times[0]) / float64(n-1); dt > 0 {
			s.Wobble, _ = Wobble(series, 1/dt)
		}
	}
	return s
}
