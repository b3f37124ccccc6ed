package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/san-kum/balancer/internal/experiment"
	"github.com/san-kum/balancer/internal/logging"
	"github.com/san-kum/balancer/internal/optim"
	"github.com/san-kum/balancer/internal/sim"
	"github.com/spf13/cobra"
)

func tuneGains(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	base.Sim.Duration = pointTime
	if err := base.Validate(); err != nil {
		return err
	}

	reg := experiment.NewRegistry()
	log := logging.Discard()

	g := optim.NewGridSearch(
		[]string{"kp", "td"},
		[][]float64{optim.Range(kpMin, kpMax, gridN), optim.Range(tdMin, tdMax, gridN)},
	)
	g.SetWorkers(workers)

	run := func(ctx context.Context, p map[string]float64) (*sim.Result, error) {
		cfg := base.Clone()
		cfg.Gains.Kp = p["kp"]
		cfg.Gains.Td = p["td"]
		exp, err := experiment.New(reg, cfg, log)
		if err != nil {
			return nil, err
		}
		return exp.Run(ctx)
	}

	fmt.Printf("searching %d points, %v each...\n", gridN*gridN, pointTime)
	best, all, err := g.Search(cmd.Context(), run, metric)
	if err != nil {
		return err
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Score < all[j].Score })
	if len(all) > 10 {
		all = all[:10]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "KP\tTD\t%s\tFELL\n", metric)
	for _, p := range all {
		fmt.Fprintf(w, "%.4f\t%.4f\t%.6f\t%v\n", p.Params["kp"], p.Params["td"], p.Score, p.Fell)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nbest: %s (%s %.6f)\n", describe(best.Params), metric, best.Score)
	return nil
}
