// Package analysis characterizes recorded tilt series.
//
//   - [Spectrum]: one-sided power spectrum of a uniformly sampled series
//   - [Wobble]: dominant oscillation of the chassis around its balance point
//   - [Summarize]: settling time, spread and zero crossings of a run
//
// A balanced vehicle under a deadband controller never sits perfectly still;
// it rocks in a small limit cycle. Wobble reports that cycle's frequency.
package analysis
