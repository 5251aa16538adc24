package report

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"wildfire/internal/sims/wildfire"
)

// ChartKind selects which metric a chart plots.
type ChartKind string

const (
	ChartCosts          ChartKind = "costs"
	ChartDensity        ChartKind = "density"
	ChartOnFire         ChartKind = "on_fire"
	ChartPercentageLost ChartKind = "percentage_lost"
)

// ChartKinds lists every chart the package can draw.
func ChartKinds() []ChartKind {
	return []ChartKind{ChartCosts, ChartDensity, ChartOnFire, ChartPercentageLost}
}

// Run is the metric series of one simulation run.
type Run struct {
	Label  string
	Series []wildfire.Metrics
}

var runColors = []drawing.Color{
	chart.ColorBlue,
	chart.ColorRed,
	chart.ColorGreen,
	chart.ColorOrange,
	{R: 140, G: 80, B: 200, A: 255},
	{R: 90, G: 90, B: 90, A: 255},
}

// BuildChart lays out a line chart of kind for the given runs. The costs chart
// plots the three cost categories of the first run.
func BuildChart(kind ChartKind, runs []Run) (chart.Chart, error) {
	if len(runs) == 0 {
		return chart.Chart{}, fmt.Errorf("report: no runs to chart")
	}
	for _, r := range runs {
		if len(r.Series) < 2 {
			return chart.Chart{}, fmt.Errorf("report: run %q has %d ticks, need at least 2", r.Label, len(r.Series))
		}
	}

	var series []chart.Series
	var title, yName string
	switch kind {
	case ChartCosts:
		title, yName = "Firefighting costs", "actions"
		first := runs[0].Series
		series = []chart.Series{
			line("extinguish", first, runColors[0], func(m wildfire.Metrics) float64 { return float64(m.ExtinguishCost) }),
			line("burn", first, runColors[1], func(m wildfire.Metrics) float64 { return float64(m.BurnCost) }),
			line("cut down", first, runColors[2], func(m wildfire.Metrics) float64 { return float64(m.CutDownCost) }),
		}
	case ChartDensity:
		title, yName = "Total density", "density"
		series = perRun(runs, func(m wildfire.Metrics) float64 { return m.TotalDensity })
	case ChartOnFire:
		title, yName = "Fraction on fire", "fraction"
		series = perRun(runs, func(m wildfire.Metrics) float64 { return m.FractionOnFire })
	case ChartPercentageLost:
		title, yName = "Percentage lost", "%"
		series = perRun(runs, func(m wildfire.Metrics) float64 { return m.PercentageLost })
	default:
		return chart.Chart{}, fmt.Errorf("report: unknown chart %q", kind)
	}

	graph := chart.Chart{
		Title:  title,
		Width:  960,
		Height: 480,
		XAxis: chart.XAxis{
			Name:  "tick",
			Style: chart.Style{FontSize: 10.0},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  yName,
			Style: chart.Style{FontSize: 10.0},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph, nil
}

// RenderPNG draws the chart of kind into w.
func RenderPNG(w io.Writer, kind ChartKind, runs []Run) error {
	graph, err := BuildChart(kind, runs)
	if err != nil {
		return err
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("report: render %s chart: %w", kind, err)
	}
	return nil
}

func perRun(runs []Run, value func(wildfire.Metrics) float64) []chart.Series {
	out := make([]chart.Series, 0, len(runs))
	for i, r := range runs {
		out = append(out, line(r.Label, r.Series, runColors[i%len(runColors)], value))
	}
	return out
}

func line(name string, ms []wildfire.Metrics, c drawing.Color, value func(wildfire.Metrics) float64) chart.ContinuousSeries {
	xs := make([]float64, len(ms))
	ys := make([]float64, len(ms))
	for i, m := range ms {
		xs[i] = float64(m.Tick)
		ys[i] = value(m)
	}
	return chart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style:   chart.Style{StrokeColor: c, StrokeWidth: 2.0},
	}
}

// RunsFromRecords groups series records by run number, preserving the order
// in which runs first appear.
func RunsFromRecords(recs []TickRecord) []Run {
	index := map[int]int{}
	var runs []Run
	for _, rec := range recs {
		i, ok := index[rec.Run]
		if !ok {
			i = len(runs)
			index[rec.Run] = i
			runs = append(runs, Run{Label: fmt.Sprintf("seed %d (%s)", rec.Seed, rec.Strategy)})
		}
		runs[i].Series = append(runs[i].Series, rec.Metrics)
	}
	return runs
}
