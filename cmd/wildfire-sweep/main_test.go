package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"wildfire/internal/logging"
	"wildfire/internal/results"
)

func TestSweepStoresRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "sweeps.db")
	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-w", "16", "-h", "16",
		"-samples", "2", "-replicates", "2", "-ticks", "20",
		"-workers", "2",
		"-strategies", "extinguish,firelines",
		"-name", "smoke",
		"-db", db,
		"-top", "1",
	}, &out, logging.Noop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{"= 8 runs", "Sweep 1 (smoke)", "Top extinguish samples:", "Top firelines samples:"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}

	store, err := results.Open(db)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	latest, err := store.LatestSweep(ctx)
	if err != nil {
		t.Fatalf("LatestSweep: %v", err)
	}
	if latest.Name != "smoke" || latest.Samples != 2 || latest.Seeds != 2 || latest.Base.Width != 16 {
		t.Fatalf("stored sweep = %+v", latest)
	}
	runs, err := store.Runs(ctx, latest.ID)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 8 {
		t.Fatalf("stored runs = %d, want 8", len(runs))
	}
	sums, err := store.Summarize(ctx, latest.ID)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(sums) != 2 || sums[0].Runs != 4 || sums[1].Runs != 4 {
		t.Fatalf("summaries = %+v", sums)
	}
}

func TestSweepRejectsBadShape(t *testing.T) {
	db := filepath.Join(t.TempDir(), "sweeps.db")
	cases := [][]string{
		{"-db", db, "-samples", "0"},
		{"-db", db, "-strategies", "pray"},
		{"-db", "", "-samples", "1"},
	}
	for _, args := range cases {
		if err := run(context.Background(), args, &bytes.Buffer{}, logging.Noop()); err == nil {
			t.Fatalf("run(%v) succeeded, want error", args)
		}
	}
}

func TestSweepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := run(ctx, []string{
		"-w", "16", "-h", "16", "-samples", "4", "-replicates", "2", "-ticks", "50",
		"-db", filepath.Join(t.TempDir(), "sweeps.db"),
	}, &bytes.Buffer{}, logging.Noop())
	if err == nil {
		t.Fatal("expected an error from a cancelled sweep")
	}
}
