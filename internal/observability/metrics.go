package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wildfire/internal/sims/wildfire"
)

// WildfireCollector bundles Prometheus metrics for a running wildfire world
// and the HTTP surface that exposes it.
type WildfireCollector struct {
	gatherer prometheus.Gatherer

	Tick           prometheus.Gauge
	TotalDensity   prometheus.Gauge
	AverageDensity prometheus.Gauge
	OnFire         prometheus.Gauge
	FractionOnFire prometheus.Gauge
	PercentageLost prometheus.Gauge
	BurnoutTicks   prometheus.Gauge
	Active         prometheus.Gauge
	Costs          *prometheus.GaugeVec

	Runs          *prometheus.CounterVec
	StepDurations *prometheus.HistogramVec
	HTTPRequests  *prometheus.CounterVec
}

// NewWildfireCollector registers wildfire metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewWildfireCollector(reg prometheus.Registerer) (*WildfireCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &WildfireCollector{gatherer: gatherer}
	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.Tick, "wildfire_tick", "Completed ticks of the current run."},
		{&c.TotalDensity, "wildfire_total_density", "Sum of tree densities."},
		{&c.AverageDensity, "wildfire_average_density", "Mean tree density."},
		{&c.OnFire, "wildfire_trees_on_fire", "Number of burning trees."},
		{&c.FractionOnFire, "wildfire_fraction_on_fire", "Burning trees over all trees."},
		{&c.PercentageLost, "wildfire_percentage_lost", "Density lost since reset, in percent."},
		{&c.BurnoutTicks, "wildfire_burnout_ticks", "Ticks that ended with a tree on fire."},
		{&c.Active, "wildfire_active", "1 while the fire can still evolve, 0 once depleted."},
	}
	for _, g := range gauges {
		gauge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}

	costs, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wildfire_cost_actions",
		Help: "Firefighting actions taken in the current run, labeled by category.",
	}, []string{"category"}), "wildfire_cost_actions")
	if err != nil {
		return nil, err
	}
	c.Costs = costs

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wildfire_runs_total",
		Help: "Completed simulation runs, labeled by strategy.",
	}, []string{"strategy"}), "wildfire_runs_total")
	if err != nil {
		return nil, err
	}
	c.Runs = runs

	steps, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wildfire_step_duration_seconds",
		Help:    "Wall time of one simulation tick.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"strategy"}), "wildfire_step_duration_seconds")
	if err != nil {
		return nil, err
	}
	c.StepDurations = steps

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wildfire_http_requests_total",
		Help: "Handled HTTP requests, labeled by route and status code.",
	}, []string{"route", "code"}), "wildfire_http_requests_total")
	if err != nil {
		return nil, err
	}
	c.HTTPRequests = requests

	return c, nil
}

// Observe copies a metrics snapshot into the gauges.
func (c *WildfireCollector) Observe(m wildfire.Metrics) {
	if c == nil {
		return
	}
	c.Tick.Set(float64(m.Tick))
	c.TotalDensity.Set(m.TotalDensity)
	c.AverageDensity.Set(m.AverageDensity)
	c.OnFire.Set(float64(m.OnFire))
	c.FractionOnFire.Set(m.FractionOnFire)
	c.PercentageLost.Set(m.PercentageLost)
	c.BurnoutTicks.Set(float64(m.BurnoutTime))
	if m.State == wildfire.StateActive {
		c.Active.Set(1)
	} else {
		c.Active.Set(0)
	}
	c.Costs.WithLabelValues("extinguish").Set(float64(m.ExtinguishCost))
	c.Costs.WithLabelValues("burn").Set(float64(m.BurnCost))
	c.Costs.WithLabelValues("cut_down").Set(float64(m.CutDownCost))
}

// ObserveStep records the duration of one tick.
func (c *WildfireCollector) ObserveStep(strategy wildfire.StrategyKind, d time.Duration) {
	if c == nil {
		return
	}
	c.StepDurations.WithLabelValues(string(strategy)).Observe(d.Seconds())
}

// RunFinished counts a completed run.
func (c *WildfireCollector) RunFinished(strategy wildfire.StrategyKind) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(string(strategy)).Inc()
}

// ObserveRequest counts one handled HTTP request.
func (c *WildfireCollector) ObserveRequest(route string, code int) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	c.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *WildfireCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
