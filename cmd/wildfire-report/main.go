// Command wildfire-report runs headless wildfire simulations over a range of
// seeds and prints per-run and per-strategy results. It can also record the
// per-tick series, chart it and snapshot the final grid.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	"gonum.org/v1/gonum/stat"

	"wildfire/internal/app"
	"wildfire/internal/logging"
	"wildfire/internal/render"
	"wildfire/internal/report"
	"wildfire/internal/sims/wildfire"
)

type options struct {
	world      *app.Config
	runs       int
	ticks      int
	strategies string
	series     string
	chart      string
	chartKind  string
	frame      string
}

type runOutcome struct {
	seed     int64
	strategy wildfire.StrategyKind
	final    wildfire.Metrics
}

func main() {
	log := logging.NewFromEnv()
	if err := run(os.Args[1:], os.Stdout, log); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Error(context.Background(), "report failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer, log logging.Logger) error {
	opts := options{world: app.NewConfig()}
	fs := flag.NewFlagSet("wildfire-report", flag.ContinueOnError)
	opts.world.Bind(fs)
	fs.IntVar(&opts.runs, "runs", 5, "number of seeds to simulate per strategy")
	fs.IntVar(&opts.ticks, "ticks", 500, "maximum ticks per run")
	fs.StringVar(&opts.strategies, "strategies", "", "comma-separated strategies to compare (default: configured strategy)")
	fs.StringVar(&opts.series, "series", "", "write per-tick metrics to this .jsonl.zst file")
	fs.StringVar(&opts.chart, "chart", "", "write a PNG chart of the series to this file")
	fs.StringVar(&opts.chartKind, "chart-kind", string(report.ChartPercentageLost), "chart to draw: costs, density, on_fire or percentage_lost")
	fs.StringVar(&opts.frame, "frame", "", "write a PNG snapshot of the last run's final grid to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.runs <= 0 || opts.ticks <= 0 {
		return fmt.Errorf("runs and ticks must be positive (got %d, %d)", opts.runs, opts.ticks)
	}

	base, err := opts.world.World()
	if err != nil {
		return err
	}
	strategies, err := parseStrategies(opts.strategies, base.Params.Strategy)
	if err != nil {
		return err
	}
	kind := report.ChartKind(opts.chartKind)
	if opts.chart != "" && !validChart(kind) {
		return fmt.Errorf("unknown chart kind %q", opts.chartKind)
	}

	var series *report.SeriesWriter
	if opts.series != "" {
		series, err = report.CreateSeries(opts.series)
		if err != nil {
			return err
		}
		defer series.Close()
	}

	ctx := context.Background()
	fmt.Fprintf(stdout, "Simulating %d seeds x %d strategies on a %dx%d grid (max %d ticks)\n\n",
		opts.runs, len(strategies), base.Width, base.Height, opts.ticks)

	var (
		outcomes []runOutcome
		charted  []report.Run
		last     *wildfire.World
		runIndex int
	)
	for r := 0; r < opts.runs; r++ {
		for _, strategy := range strategies {
			cfg := base
			cfg.Seed = base.Seed + int64(r)
			cfg.Params.Strategy = strategy
			world, err := wildfire.NewWithConfig(cfg)
			if err != nil {
				return err
			}

			history := []wildfire.Metrics{world.Metrics()}
			if err := writeRecord(series, runIndex, cfg.Seed, strategy, world.Metrics()); err != nil {
				return err
			}
			for world.Tick() < opts.ticks && world.State() == wildfire.StateActive {
				world.Step()
				m := world.Metrics()
				history = append(history, m)
				if err := writeRecord(series, runIndex, cfg.Seed, strategy, m); err != nil {
					return err
				}
			}

			final := world.Metrics()
			outcomes = append(outcomes, runOutcome{seed: cfg.Seed, strategy: strategy, final: final})
			charted = append(charted, report.Run{Label: fmt.Sprintf("seed %d (%s)", cfg.Seed, strategy), Series: history})
			last = world
			runIndex++

			log.Debug(ctx, "run finished",
				logging.Int64("seed", cfg.Seed),
				logging.String("strategy", string(strategy)),
				logging.Int("tick", final.Tick),
			)
			fmt.Fprintf(stdout, "seed=%-6d strategy=%-12s ticks=%-5d state=%-8s lost=%6.2f%% burnout=%-5d extinguish=%-5d burn=%-5d cut=%-5d total=%d\n",
				cfg.Seed, strategy, final.Tick, final.State, final.PercentageLost, final.BurnoutTime,
				final.ExtinguishCost, final.BurnCost, final.CutDownCost, final.TotalCost)
		}
	}

	fmt.Fprintln(stdout, "\nPer strategy:")
	for _, strategy := range strategies {
		printAggregate(stdout, strategy, outcomes)
	}

	if series != nil {
		if err := series.Close(); err != nil {
			return err
		}
		log.Info(ctx, "series written", logging.String("path", opts.series), logging.Int("runs", runIndex))
	}
	if opts.chart != "" {
		if err := writeChart(opts.chart, kind, charted); err != nil {
			return err
		}
		log.Info(ctx, "chart written", logging.String("path", opts.chart), logging.String("kind", string(kind)))
	}
	if opts.frame != "" && last != nil {
		if err := writeFrame(opts.frame, last, opts.world.Scale); err != nil {
			return err
		}
		log.Info(ctx, "frame written", logging.String("path", opts.frame))
	}
	return nil
}

func parseStrategies(list string, fallback wildfire.StrategyKind) ([]wildfire.StrategyKind, error) {
	if strings.TrimSpace(list) == "" {
		return []wildfire.StrategyKind{fallback}, nil
	}
	if list == "all" {
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

func validChart(kind report.ChartKind) bool {
	for _, k := range report.ChartKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func writeRecord(w *report.SeriesWriter, run int, seed int64, strategy wildfire.StrategyKind, m wildfire.Metrics) error {
	if w == nil {
		return nil
	}
	return w.Write(report.TickRecord{Run: run, Seed: seed, Strategy: string(strategy), Metrics: m})
}

func printAggregate(w io.Writer, strategy wildfire.StrategyKind, outcomes []runOutcome) {
	var lost, burnout, cost []float64
	depleted := 0
	for _, o := range outcomes {
		if o.strategy != strategy {
			continue
		}
		lost = append(lost, o.final.PercentageLost)
		burnout = append(burnout, float64(o.final.BurnoutTime))
		cost = append(cost, float64(o.final.TotalCost))
		if o.final.State == wildfire.StateDepleted {
			depleted++
		}
	}
	if len(lost) == 0 {
		return
	}
	meanLost, stdLost := meanStd(lost)
	meanBurnout, _ := meanStd(burnout)
	fmt.Fprintf(w, "  %-12s runs=%-3d lost=%6.2f%% ±%5.2f burnout=%7.1f cost=%8.1f depleted=%d/%d\n",
		strategy, len(lost), meanLost, stdLost, meanBurnout, stat.Mean(cost, nil), depleted, len(lost))
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) < 2 {
		return stat.Mean(xs, nil), 0
	}
	return stat.MeanStdDev(xs, nil)
}

func writeChart(path string, kind report.ChartKind, runs []report.Run) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.RenderPNG(f, kind, runs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeFrame(path string, world *wildfire.World, scale int) error {
	img, err := render.Frame(world.Cells(), world.Size(), world.Palette(), scale)
	if err != nil {
		return err
	}
	if box, ok := world.FireEdges(); ok {
		render.OutlineCells(img, box.MinX, box.MinY, box.MaxX, box.MaxY, scale, color.RGBA{R: 80, G: 200, B: 255, A: 255})
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.EncodePNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
