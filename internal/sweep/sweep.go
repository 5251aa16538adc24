package sweep

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	pcore "wildfire/pkg/core"

	"wildfire/internal/sims/wildfire"
)

// Options configures a sweep.
type Options struct {
	Base       wildfire.Config
	Problem    Problem
	Strategies []wildfire.StrategyKind // defaults to the base strategy
	Samples    int
	Replicates int
	Ticks      int
	Workers    int
	Seed       int64 // seeds the sampler; replicate r runs with Base.Seed+r
}

// Result is the outcome of one simulated world.
type Result struct {
	Sample    int
	Replicate int
	Seed      int64
	Params    wildfire.Params
	Final     wildfire.Metrics
	Duration  time.Duration
}

type job struct {
	sample    Sample
	strategy  wildfire.StrategyKind
	replicate int
}

func (o Options) withDefaults() Options {
	if len(o.Strategies) == 0 {
		o.Strategies = []wildfire.StrategyKind{o.Base.Params.Strategy}
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Problem == nil {
		o.Problem = DefaultProblem()
	}
	return o
}

// Validate checks the sweep shape and the problem bounds.
func (o Options) Validate() error {
	o = o.withDefaults()
	if o.Samples <= 0 || o.Replicates <= 0 || o.Ticks <= 0 {
		return fmt.Errorf("sweep: samples, replicates and ticks must be positive (got %d, %d, %d)", o.Samples, o.Replicates, o.Ticks)
	}
	if err := o.Base.Validate(); err != nil {
		return err
	}
	for _, s := range o.Strategies {
		if _, err := wildfire.ParseStrategyKind(string(s)); err != nil {
			return err
		}
	}
	return o.Problem.Validate(o.Base)
}

// Run simulates every sample for every strategy and replicate on a worker
// pool. progress, when set, is called from a single goroutine as results
// arrive. The returned results are ordered by sample, strategy and replicate.
func Run(ctx context.Context, opts Options, progress func(done, total int, r Result)) ([]Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	samples := opts.Problem.Draw(pcore.NewRNG(opts.Seed), opts.Samples)
	total := len(samples) * len(opts.Strategies) * opts.Replicates

	jobs := make(chan job)
	results := make(chan Result)
	errs := make(chan error, opts.Workers)
	var wg sync.WaitGroup

	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := runOne(opts, j)
				if err != nil {
					errs <- err
					cancel()
					return
				}
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(jobs)
		for _, s := range samples {
			for _, strategy := range opts.Strategies {
				for r := 0; r < opts.Replicates; r++ {
					select {
					case jobs <- job{sample: s, strategy: strategy, replicate: r}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	out := make([]Result, 0, total)
	var firstErr error
	for res := range results {
		out = append(out, res)
		if progress != nil {
			progress(len(out), total, res)
		}
	}
	select {
	case firstErr = <-errs:
	default:
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rank := map[wildfire.StrategyKind]int{}
	for i, s := range opts.Strategies {
		rank[s] = i
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Sample != b.Sample {
			return a.Sample < b.Sample
		}
		if a.Params.Strategy != b.Params.Strategy {
			return rank[a.Params.Strategy] < rank[b.Params.Strategy]
		}
		return a.Replicate < b.Replicate
	})
	return out, nil
}

func runOne(opts Options, j job) (Result, error) {
	cfg := opts.Base
	if err := opts.Problem.Apply(&cfg, j.sample); err != nil {
		return Result{}, err
	}
	cfg.Params.Strategy = j.strategy
	cfg.Seed = opts.Base.Seed + int64(j.replicate)

	start := time.Now()
	w, err := wildfire.NewWithConfig(cfg)
	if err != nil {
		return Result{}, fmt.Errorf("sweep: sample %d: %w", j.sample.Index, err)
	}
	final := w.Run(opts.Ticks)
	return Result{
		Sample:    j.sample.Index,
		Replicate: j.replicate,
		Seed:      cfg.Seed,
		Params:    cfg.Params,
		Final:     final,
		Duration:  time.Since(start),
	}, nil
}

// Summary aggregates the replicates of one sample and strategy.
type Summary struct {
	Sample      int
	Strategy    wildfire.StrategyKind
	Params      wildfire.Params
	Runs        int
	MeanLost    float64
	StdLost     float64
	MeanBurnout float64
	StdBurnout  float64
	MeanCost    float64
}

// Summarize groups results by sample and strategy, preserving their order.
func Summarize(results []Result) []Summary {
	type key struct {
		sample   int
		strategy wildfire.StrategyKind
	}
	index := map[key]int{}
	var groups [][]Result
	for _, r := range results {
		k := key{r.Sample, r.Params.Strategy}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}

	out := make([]Summary, 0, len(groups))
	for _, g := range groups {
		lost := make([]float64, len(g))
		burnout := make([]float64, len(g))
		cost := make([]float64, len(g))
		for i, r := range g {
			lost[i] = r.Final.PercentageLost
			burnout[i] = float64(r.Final.BurnoutTime)
			cost[i] = float64(r.Final.TotalCost)
		}
		s := Summary{
			Sample:   g[0].Sample,
			Strategy: g[0].Params.Strategy,
			Params:   g[0].Params,
			Runs:     len(g),
			MeanCost: stat.Mean(cost, nil),
		}
		s.MeanLost, s.StdLost = meanStd(lost)
		s.MeanBurnout, s.StdBurnout = meanStd(burnout)
		out = append(out, s)
	}
	return out
}

// gonum's StdDev is NaN for a single observation.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) < 2 {
		return stat.Mean(xs, nil), 0
	}
	return stat.MeanStdDev(xs, nil)
}
