package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/balancer/internal/analysis"
	"github.com/san-kum/balancer/internal/config"
	"github.com/san-kum/balancer/internal/dynamo"
	"github.com/san-kum/balancer/internal/experiment"
	"github.com/san-kum/balancer/internal/export"
	"github.com/san-kum/balancer/internal/sim"
	"github.com/san-kum/balancer/internal/storage"
	"github.com/spf13/cobra"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.New(experiment.NewRegistry(), cfg, log)
	if err != nil {
		return err
	}

	fmt.Printf("simulating %s controller for %v...\n", cfg.Controller, cfg.Sim.Duration)
	start := time.Now()

	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(runMetadata(cfg, exp.Rig().Controller), result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("cycles: %s (%s skipped)\n", humanize.Comma(int64(len(result.Samples))), humanize.Comma(int64(result.Skipped)))
	if result.Fell {
		fmt.Printf("fell at %.2fs\n", result.FellAt)
	}
	for _, e := range result.Errors {
		if !errors.Is(e, dynamo.ErrFallen) {
			fmt.Printf("stopped: %v\n", e)
		}
	}
	printMetrics(result.Metrics)
	return nil
}

func runMetadata(cfg *config.Config, ctrl dynamo.Controller) storage.RunMetadata {
	meta := storage.RunMetadata{
		Preset:      preset,
		Controller:  cfg.Controller,
		Seed:        cfg.Sim.Seed,
		Period:      cfg.Control.Period.Seconds(),
		Duration:    cfg.Sim.Duration.Seconds(),
		InitialTilt: cfg.Sim.InitialTilt,
	}
	if c, ok := ctrl.(dynamo.Configurable); ok {
		meta.Params = c.GetParams()
	}
	return meta
}

func printMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %-15s %s\n", name, humanize.FormatFloat("#,###.######", metrics[name]))
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCTRL\tPRESET\tTIME\tDURATION\tTILT0\tFELL\tRMS")

	for _, run := range runs {
		fell := "-"
		if run.Fell {
			fell = fmt.Sprintf("%.2fs", run.FellAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1fs\t%.3f\t%s\t%.4f\n",
			run.ID,
			run.Controller,
			run.Preset,
			humanize.Time(run.Timestamp),
			run.Duration,
			run.InitialTilt,
			fell,
			run.Metrics["tilt_rms"],
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, []sim.Sample, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("run %s has no samples", runID)
	}
	return meta, samples, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("controller: %s\n", meta.Controller)
	fmt.Printf("samples: %s\n\n", humanize.Comma(int64(len(samples))))

	plots := []struct{ series, caption string }{
		{"tilt", "tilt (rad)"},
		{"error", "filtered error"},
		{"right", "right duty"},
	}
	for _, p := range plots {
		data, err := export.Column(samples, p.series)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(p.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func pngRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	out := outFile
	if out == "" {
		out = meta.ID + ".png"
	}
	title := fmt.Sprintf("%s (%s)", meta.ID, meta.Controller)
	if err := export.Plot(out, title, samples, series...); err != nil {
		return err
	}
	abs, _ := filepath.Abs(out)
	fmt.Printf("wrote %s\n", abs)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return export.JSON(os.Stdout, *meta, samples)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, samples)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	times := make([]float64, len(samples))
	tilts := make([]float64, len(samples))
	for i, smp := range samples {
		times[i], tilts[i] = smp.Time, smp.Tilt
	}
	s := analysis.Summarize(times, tilts, band)

	fmt.Printf("run: %s (%s)\n\n", meta.ID, meta.Controller)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "mean tilt\t%+.5f rad\n", s.Mean)
	fmt.Fprintf(w, "std dev\t%.5f rad\n", s.StdDev)
	fmt.Fprintf(w, "rms\t%.5f rad\n", s.RMS)
	fmt.Fprintf(w, "peak\t%.5f rad\n", s.Peak)
	fmt.Fprintf(w, "zero crossings\t%d\n", s.ZeroCrossings)
	if s.SettlingTime >= 0 {
		fmt.Fprintf(w, "settled (±%.3f)\t%.2fs\n", band, s.SettlingTime)
	} else {
		fmt.Fprintf(w, "settled (±%.3f)\tnever\n", band)
	}
	if s.Wobble.Freq > 0 {
		fmt.Fprintf(w, "wobble\t%.2f Hz, amplitude %.4f rad\n", s.Wobble.Freq, s.Wobble.Amplitude)
	}
	if meta.Fell {
		fmt.Fprintf(w, "fell\t%.2fs\n", meta.FellAt)
	}
	return w.Flush()
}

func describe(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.4g", k, params[k])
	}
	return strings.Join(parts, " ")
}
