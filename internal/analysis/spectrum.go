package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Bin struct {
	Freq  float64
	Power float64
}

// Window builds a tapering window of length n. Nil means rectangular.
type Window func(n int) []float64

// Spectrum returns the power of each frequency bin of series sampled at rate
// Hz. The mean is removed first so bin 0 only holds what remains of it.
// Power is scaled by the window's coherent gain, so a sine of amplitude A
// centred on a bin reads A²/4 there.
func Spectrum(series []float64, rate float64, win Window) []Bin {
	n := len(series)
	if n < 2 {
		return nil
	}

	mean := stat.Mean(series, nil)
	centered := make([]float64, n)
	for i, v := range series {
		centered[i] = v - mean
	}

	gain := float64(n)
	if win != nil {
		w := win(n)
		floats.Mul(centered, w)
		gain = floats.Sum(w)
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, centered)

	bins := make([]Bin, len(coeffs))
	for i, c := range coeffs {
		a := cmplx.Abs(c) / gain
		bins[i] = Bin{Freq: fft.Freq(i) * rate, Power: a * a}
	}
	return bins
}

// Oscillation is a dominant spectral component.
type Oscillation struct {
	Freq      float64
	Amplitude float64
}

// Wobble finds the strongest non-zero frequency in series under a Hann
// window. Amplitude is the peak amplitude of that component.
func Wobble(series []float64, rate float64) (Oscillation, bool) {
	bins := Spectrum(series, rate, window.Hann)
	if len(bins) < 2 {
		return Oscillation{}, false
	}

	best := 1
	for i := 2; i < len(bins); i++ {
		if bins[i].Power > bins[best].Power {
			best = i
		}
	}
	if bins[best].Power < 1e-24 {
		return Oscillation{}, false
	}

	return Oscillation{Freq: bins[best].Freq, Amplitude: 2 * math.Sqrt(bins[best].Power)}, true
}
