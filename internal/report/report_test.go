package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"wildfire/internal/sims/wildfire"
)

func runWorld(t *testing.T, seed int64, ticks int) []wildfire.Metrics {
	t.Helper()
	cfg := wildfire.DefaultConfig()
	cfg.Width = 16
	cfg.Height = 16
	cfg.Seed = seed
	w, err := wildfire.NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	out := []wildfire.Metrics{w.Metrics()}
	for i := 0; i < ticks; i++ {
		w.Step()
		out = append(out, w.Metrics())
	}
	return out
}

func writeSeries(t *testing.T, path string, runs map[int][]wildfire.Metrics) {
	t.Helper()
	sw, err := CreateSeries(path)
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	for run := 0; run < len(runs); run++ {
		for _, m := range runs[run] {
			if err := sw.Write(TickRecord{Run: run, Seed: int64(run + 1), Strategy: "extinguish", Metrics: m}); err != nil {
				t.Fatalf("Write: %v", err)
			}
		}
	}
	if err := sw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sw.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := sw.Write(TickRecord{}); err == nil {
		t.Fatal("expected write after close to fail")
	}
}

func TestSeriesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "series.jsonl.zst")
	runs := map[int][]wildfire.Metrics{0: runWorld(t, 1, 12), 1: runWorld(t, 2, 12)}
	writeSeries(t, path, runs)

	recs, err := ReadSeries(path)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(recs) != 26 {
		t.Fatalf("records = %d, want 26", len(recs))
	}
	if recs[13].Run != 1 || recs[13].Tick != 0 {
		t.Fatalf("second run should start at record 13, got %+v", recs[13])
	}
	if recs[12].Metrics != runs[0][12] {
		t.Fatalf("metrics did not survive the round trip: %+v vs %+v", recs[12].Metrics, runs[0][12])
	}

	grouped := RunsFromRecords(recs)
	if len(grouped) != 2 || len(grouped[1].Series) != 13 {
		t.Fatalf("RunsFromRecords grouped %d runs", len(grouped))
	}
}

func TestSeriesRecordsMatchSchema(t *testing.T) {
	schema, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", "tick.schema.json"))
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	path := filepath.Join(t.TempDir(), "series.jsonl.zst")
	writeSeries(t, path, map[int][]wildfire.Metrics{0: runWorld(t, 5, 20)})

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	lines := 0
	for sc.Scan() {
		var v any
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			t.Fatalf("line %d: %v", lines+1, err)
		}
		if err := schema.Validate(v); err != nil {
			t.Fatalf("line %d: %v", lines+1, err)
		}
		lines++
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if lines != 21 {
		t.Fatalf("validated %d lines, want 21", lines)
	}
}

func TestRenderPNGCharts(t *testing.T) {
	runs := []Run{
		{Label: "seed 1", Series: runWorld(t, 1, 30)},
		{Label: "seed 2", Series: runWorld(t, 2, 30)},
	}
	for _, kind := range ChartKinds() {
		var buf bytes.Buffer
		if err := RenderPNG(&buf, kind, runs); err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		cfg, err := png.DecodeConfig(&buf)
		if err != nil {
			t.Fatalf("%s: not a PNG: %v", kind, err)
		}
		if cfg.Width != 960 || cfg.Height != 480 {
			t.Fatalf("%s: size %dx%d", kind, cfg.Width, cfg.Height)
		}
	}
}

func TestBuildChartRejectsShortSeries(t *testing.T) {
	if _, err := BuildChart(ChartDensity, nil); err == nil {
		t.Fatal("expected an error without runs")
	}
	short := []Run{{Label: "one", Series: runWorld(t, 1, 0)}}
	if _, err := BuildChart(ChartDensity, short); err == nil {
		t.Fatal("expected an error for a single-tick series")
	}
	if _, err := BuildChart("heat", []Run{{Label: "x", Series: runWorld(t, 1, 3)}}); err == nil {
		t.Fatal("expected an error for an unknown chart")
	}
}
