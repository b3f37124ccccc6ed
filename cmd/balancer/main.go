package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/san-kum/balancer/internal/config"
	"github.com/san-kum/balancer/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	controller string
	integrator string
	kp         float64
	ki         float64
	td         float64
	deadband   int
	initTilt   float64
	duration   time.Duration
	period     time.Duration
	seed       int64
	noise      float64
	faultRate  float64
	logLevel   string
	verbose    bool
	// run
	runFor      time.Duration
	metricsAddr string
	showPanel   bool
	// plot / png
	outFile string
	series  []string
	// analyze
	band float64
	// tune
	pointTime    time.Duration
	kpMin, kpMax float64
	tdMin, tdMax float64
	gridN        int
	workers      int
	metric       string
	// motor-test
	rampStep  int
	rampDwell time.Duration
)

// main registers the balancer commands and runs the one named on the
// command line, exiting with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:          "balancer",
		Short:        "two-wheeled self-balancing vehicle: control loop, simulator and tools",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".balancer", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every control cycle at debug level")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the control and display tasks in real time against the simulated board",
		Args:  cobra.NoArgs,
		RunE:  runRealtime,
	}
	addLoopFlags(runCmd)
	runCmd.Flags().DurationVar(&runFor, "for", 0, "stop after this long (0 runs until interrupted)")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. "+config.DefaultMetricsAddr)
	runCmd.Flags().BoolVar(&showPanel, "panel", true, "draw the status panel")

	simCmd := &cobra.Command{
		Use:   "sim",
		Short: "simulate a run in lockstep and record it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addLoopFlags(simCmd)
	simCmd.Flags().DurationVar(&duration, "time", config.DefaultDuration, "simulated duration")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	pngCmd := &cobra.Command{
		Use:   "png [run_id]",
		Short: "render a run to an image file",
		Args:  cobra.ExactArgs(1),
		RunE:  pngRun,
	}
	pngCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file; the extension picks the format (default <run_id>.png)")
	pngCmd.Flags().StringSliceVar(&series, "series", []string{"tilt"}, "series to draw")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run telemetry to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "settling time and wobble of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&band, "band", 0.05, "settling band (rad)")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search kp and td in simulation",
		Args:  cobra.NoArgs,
		RunE:  tuneGains,
	}
	addLoopFlags(tuneCmd)
	tuneCmd.Flags().DurationVar(&pointTime, "point-time", 5*time.Second, "simulated duration per grid point")
	tuneCmd.Flags().Float64Var(&kpMin, "kp-min", 0.5, "smallest kp")
	tuneCmd.Flags().Float64Var(&kpMax, "kp-max", 4, "largest kp")
	tuneCmd.Flags().Float64Var(&tdMin, "td-min", 0, "smallest td")
	tuneCmd.Flags().Float64Var(&tdMax, "td-max", 0.1, "largest td")
	tuneCmd.Flags().IntVar(&gridN, "n", 8, "grid points per axis")
	tuneCmd.Flags().IntVar(&workers, "workers", 0, "concurrent simulations (0 = one per CPU)")
	tuneCmd.Flags().StringVar(&metric, "metric", "tilt_rms", "metric to minimize")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "simulate with a live terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addLoopFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	initConfigCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the effective configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return config.Save(args[0], cfg)
		},
	}

	motorTestCmd := &cobra.Command{
		Use:   "motor-test",
		Short: "ramp both motors through their duty range on Raspberry Pi GPIO",
		Args:  cobra.NoArgs,
		RunE:  motorTest,
	}
	motorTestCmd.Flags().IntVar(&rampStep, "step", 10, "duty increment")
	motorTestCmd.Flags().DurationVar(&rampDwell, "dwell", 200*time.Millisecond, "time at each duty")

	rootCmd.AddCommand(runCmd, simCmd, listCmd, plotCmd, pngCmd, exportJSONCmd, exportCSVCmd,
		analyzeCmd, tuneCmd, liveCmd, presetsCmd, initConfigCmd, motorTestCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func addLoopFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&controller, "controller", "pd", "controller kind: pd, pid or off")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "plant integrator")
	cmd.Flags().Float64Var(&kp, "kp", 0, "proportional gain")
	cmd.Flags().Float64Var(&ki, "ki", 0, "integral gain (pid)")
	cmd.Flags().Float64Var(&td, "td", 0, "derivative time (s)")
	cmd.Flags().IntVar(&deadband, "deadband", 0, "duty deadband")
	cmd.Flags().Float64Var(&initTilt, "tilt", 0, "initial tilt (rad)")
	cmd.Flags().DurationVar(&period, "period", config.DefaultPeriod, "control period")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().Float64Var(&noise, "noise", 0, "accelerometer noise (g)")
	cmd.Flags().Float64Var(&faultRate, "fault-rate", 0, "probability of a failed sensor read")
}

// loadConfig builds the effective configuration: preset, then config file,
// then flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		if err := config.Overlay(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			apply()
		}
	}
	set("controller", func() { cfg.Controller = controller })
	set("integrator", func() { cfg.Integrator = integrator })
	set("kp", func() { cfg.Gains.Kp = kp })
	set("ki", func() { cfg.Gains.Ki = ki })
	set("td", func() { cfg.Gains.Td = td })
	set("deadband", func() { cfg.Gains.Deadband = deadband })
	set("tilt", func() { cfg.Sim.InitialTilt = initTilt })
	set("period", func() { cfg.Control.Period = period })
	set("seed", func() { cfg.Sim.Seed = seed })
	set("noise", func() { cfg.Sim.Noise = noise })
	set("fault-rate", func() { cfg.Sim.FaultRate = faultRate })
	set("time", func() { cfg.Sim.Duration = duration })
	set("metrics-addr", func() { cfg.Metrics.Addr = metricsAddr })
	set("log-level", func() { cfg.Log.Level = logLevel })
	set("verbose", func() { cfg.Log.Verbose = verbose })
	if cfg.Log.Verbose && !flags.Changed("log-level") {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	return logging.New(cfg.Log.Level, os.Stderr)
}
