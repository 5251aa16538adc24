// Command wildfire-sweep samples firefighting parameters, simulates every
// sample for each strategy over several seeds and stores the outcomes in a
// SQLite database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"wildfire/internal/app"
	"wildfire/internal/logging"
	"wildfire/internal/results"
	"wildfire/internal/sims/wildfire"
	"wildfire/internal/sweep"
)

type options struct {
	world       *app.Config
	name        string
	db          string
	samples     int
	replicates  int
	ticks       int
	workers     int
	strategies  string
	samplerSeed int64
	top         int
}

func main() {
	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, log); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Error(ctx, "sweep failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, log logging.Logger) error {
	opts := options{world: app.NewConfig()}
	fs := flag.NewFlagSet("wildfire-sweep", flag.ContinueOnError)
	opts.world.Bind(fs)
	fs.StringVar(&opts.name, "name", "", "label stored with the sweep (default: timestamp)")
	fs.StringVar(&opts.db, "db", "sweeps/results.db", "SQLite database receiving the runs")
	fs.IntVar(&opts.samples, "samples", 20, "parameter samples to draw")
	fs.IntVar(&opts.replicates, "replicates", 3, "seeds simulated per sample and strategy")
	fs.IntVar(&opts.ticks, "ticks", 400, "ticks per run")
	fs.IntVar(&opts.workers, "workers", runtime.NumCPU(), "parallel simulations")
	fs.StringVar(&opts.strategies, "strategies", "all", "comma-separated strategies, or all")
	fs.Int64Var(&opts.samplerSeed, "sampler-seed", 1, "seed for drawing parameter samples")
	fs.IntVar(&opts.top, "top", 5, "best samples to print per strategy")
	if err := fs.Parse(args); err != nil {
		return err
	}

	base, err := opts.world.World()
	if err != nil {
		return err
	}
	strategies, err := parseStrategies(opts.strategies)
	if err != nil {
		return err
	}
	if opts.name == "" {
		opts.name = time.Now().UTC().Format("20060102-150405")
	}

	store, err := results.Open(opts.db)
	if err != nil {
		return err
	}
	defer store.Close()

	sweepOpts := sweep.Options{
		Base:       base,
		Problem:    sweep.DefaultProblem(),
		Strategies: strategies,
		Samples:    opts.samples,
		Replicates: opts.replicates,
		Ticks:      opts.ticks,
		Workers:    opts.workers,
		Seed:       opts.samplerSeed,
	}
	if err := sweepOpts.Validate(); err != nil {
		return err
	}

	total := opts.samples * opts.replicates * len(strategies)
	fmt.Fprintf(stdout, "Sweeping %d samples x %d strategies x %d seeds = %d runs (%d workers, %d ticks)\n",
		opts.samples, len(strategies), opts.replicates, total, opts.workers, opts.ticks)

	started := time.Now()
	every := max(total/10, 1)
	progress := func(done, total int, r sweep.Result) {
		if done%every != 0 && done != total {
			return
		}
		log.Info(ctx, "sweep progress",
			logging.Int("done", done),
			logging.Int("total", total),
			logging.String("elapsed", time.Since(started).Round(time.Millisecond).String()),
		)
	}
	res, err := sweep.Run(ctx, sweepOpts, progress)
	if err != nil {
		return err
	}

	id, err := store.CreateSweep(ctx, results.Sweep{
		Name:      opts.name,
		Samples:   opts.samples,
		Seeds:     opts.replicates,
		Ticks:     opts.ticks,
		StartedAt: started,
		Base:      base,
	})
	if err != nil {
		return err
	}
	runs := make([]results.Run, 0, len(res))
	for _, r := range res {
		runs = append(runs, results.Run{
			Sample:   r.Sample,
			Seed:     r.Seed,
			Params:   r.Params,
			Final:    r.Final,
			Duration: r.Duration,
		})
	}
	if err := store.InsertRuns(ctx, id, runs); err != nil {
		return err
	}
	log.Info(ctx, "sweep stored",
		logging.Int64("sweep_id", id),
		logging.String("db", opts.db),
		logging.Int("runs", len(runs)),
	)

	summaries, err := store.Summarize(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nSweep %d (%s), elapsed %s\n", id, opts.name, time.Since(started).Round(time.Millisecond))
	for _, s := range summaries {
		fmt.Fprintf(stdout, "  %-12s runs=%-4d lost=%6.2f%% [%6.2f, %6.2f] burnout=%7.1f cost=%8.1f depleted=%3.0f%%\n",
			s.Strategy, s.Runs, s.MeanLost, s.MinLost, s.MaxLost, s.MeanBurnoutTime, s.MeanTotalCost, 100*s.DepletedFraction)
	}

	printBest(stdout, sweep.Summarize(res), opts.top)
	return nil
}

func parseStrategies(list string) ([]wildfire.StrategyKind, error) {
	if strings.TrimSpace(list) == "" || list == "all" {
		return wildfire.StrategyKinds(), nil
	}
	var out []wildfire.StrategyKind
	for _, name := range strings.Split(list, ",") {
		kind, err := wildfire.ParseStrategyKind(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, kind)
	}
	return out, nil
}

func printBest(w io.Writer, summaries []sweep.Summary, top int) {
	if top <= 0 {
		return
	}
	byStrategy := map[wildfire.StrategyKind][]sweep.Summary{}
	var order []wildfire.StrategyKind
	for _, s := range summaries {
		if _, ok := byStrategy[s.Strategy]; !ok {
			order = append(order, s.Strategy)
		}
		byStrategy[s.Strategy] = append(byStrategy[s.Strategy], s)
	}
	for _, strategy := range order {
		group := byStrategy[strategy]
		sort.SliceStable(group, func(i, j int) bool { return group[i].MeanLost < group[j].MeanLost })
		fmt.Fprintf(w, "\nTop %s samples:\n", strategy)
		for i := 0; i < len(group) && i < top; i++ {
			s := group[i]
			p := s.Params
			fmt.Fprintf(w, "%2d) sample=%-3d lost=%6.2f%% ±%5.2f burnout=%6.1f cost=%8.1f spread=%.3f firefighters=%d margin=%d cut=%.0f delay=%d\n",
				i+1, s.Sample, s.MeanLost, s.StdLost, s.MeanBurnout, s.MeanCost,
				p.SpreadCoefficient, p.NumberFirefighters, p.FireLineMargin, p.CutDownAmount, p.ResponseDelay)
		}
	}
}
