package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"wildfire/internal/observability"
	"wildfire/internal/sims/wildfire"
)

func newTestServer(t *testing.T) (*Server, *observability.WildfireCollector, *httptest.Server) {
	t.Helper()
	cfg := wildfire.DefaultConfig()
	cfg.Width = 16
	cfg.Height = 12
	cfg.Seed = 21
	w, err := wildfire.NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	collector, err := observability.NewWildfireCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("collector: %v", err)
	}
	s := NewServer(w, Options{TPS: 20, Scale: 2, Collector: collector})
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, collector, ts
}

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode
}

func post(t *testing.T, url, body string, dst any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestMetricsAndStepping(t *testing.T) {
	s, collector, ts := newTestServer(t)

	var msg Message
	if code := getJSON(t, ts.URL+"/api/metrics", &msg); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if msg.Metrics.Tick != 0 || msg.Seed != 21 {
		t.Fatalf("initial message = %+v", msg)
	}

	if n := s.Advance(3); n != 3 {
		t.Fatalf("Advance = %d", n)
	}
	if code := post(t, ts.URL+"/api/step?n=2", "", &msg); code != http.StatusOK {
		t.Fatalf("step status = %d", code)
	}
	if msg.Metrics.Tick != 5 {
		t.Fatalf("tick after stepping = %d, want 5", msg.Metrics.Tick)
	}
	if got := testutil.ToFloat64(collector.Tick); got != 5 {
		t.Fatalf("wildfire_tick = %v, want 5", got)
	}
	if code := post(t, ts.URL+"/api/step?n=0", "", nil); code != http.StatusBadRequest {
		t.Fatalf("step n=0 status = %d", code)
	}

	post(t, ts.URL+"/api/pause", "", nil)
	if n := s.Advance(4); n != 0 {
		t.Fatalf("paused Advance = %d", n)
	}
	var st Status
	getJSON(t, ts.URL+"/api/config", &st)
	if !st.Paused || st.Config.Width != 16 || st.Palette != 256 {
		t.Fatalf("status = %+v", st)
	}
	post(t, ts.URL+"/api/step", "", &msg)
	if msg.Metrics.Tick != 6 {
		t.Fatalf("manual step while paused: tick = %d, want 6", msg.Metrics.Tick)
	}
	getJSON(t, ts.URL+"/api/config", &st)
	if !st.Paused {
		t.Fatal("manual step should leave the server paused")
	}
}

func TestParamsStageForNextReset(t *testing.T) {
	s, collector, ts := newTestServer(t)

	var out struct {
		Pending  wildfire.Config `json:"pending"`
		Rejected []string        `json:"rejected"`
	}
	code := post(t, ts.URL+"/api/params", `{"firefighter_strategy":"cut-down","number_firefighters":"4","width":"40","bogus":"1"}`, &out)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", code)
	}
	if len(out.Rejected) != 2 || out.Rejected[0] != "bogus" || out.Rejected[1] != "width" {
		t.Fatalf("rejected = %v", out.Rejected)
	}
	if out.Pending.Params.Strategy != wildfire.StrategyCutDown || out.Pending.Params.NumberFirefighters != 4 {
		t.Fatalf("pending = %+v", out.Pending.Params)
	}
	if s.world.Strategy() != wildfire.StrategyExtinguish {
		t.Fatal("staged strategy applied before reset")
	}
	if code := post(t, ts.URL+"/api/params", `[1,2]`, nil); code != http.StatusBadRequest {
		t.Fatalf("bad body status = %d", code)
	}

	var msg Message
	if code := post(t, ts.URL+"/api/reset?seed=99", "", &msg); code != http.StatusOK {
		t.Fatalf("reset status = %d", code)
	}
	if msg.Type != "reset" || msg.Run != 1 || msg.Seed != 99 || msg.Metrics.Tick != 0 {
		t.Fatalf("reset message = %+v", msg)
	}
	if s.world.Strategy() != wildfire.StrategyCutDown || len(s.world.Firefighters()) != 4 {
		t.Fatalf("staged params not applied: %s, %d firefighters", s.world.Strategy(), len(s.world.Firefighters()))
	}
	if got := testutil.ToFloat64(collector.Runs.WithLabelValues("extinguish")); got != 1 {
		t.Fatalf("wildfire_runs_total = %v, want 1", got)
	}
	if code := post(t, ts.URL+"/api/reset?seed=x", "", nil); code != http.StatusBadRequest {
		t.Fatalf("bad seed status = %d", code)
	}

	post(t, ts.URL+"/api/reset", "", &msg)
	if msg.Run != 2 || msg.Seed != 99 {
		t.Fatalf("reset without seed = %+v, want run 2 reusing seed 99", msg)
	}
	post(t, ts.URL+"/api/reset?seed=0", "", &msg)
	if msg.Run != 3 || msg.Seed != 0 {
		t.Fatalf("reset with seed 0 = %+v, want run 3 with seed 0", msg)
	}
}

func TestFrameIsPNG(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/frame?scale=3&edges=1")
	if err != nil {
		t.Fatalf("GET frame: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 48 || cfg.Height != 36 {
		t.Fatalf("frame size %dx%d, want 48x36", cfg.Width, cfg.Height)
	}

	bad, err := http.Get(ts.URL + "/api/frame?scale=0")
	if err != nil {
		t.Fatalf("GET frame: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("scale=0 status = %d", bad.StatusCode)
	}
}

func TestWebsocketReceivesTicks(t *testing.T) {
	s, _, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() Message {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var m Message
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return m
	}

	if hello := read(); hello.Type != "tick" || hello.Metrics.Tick != 0 {
		t.Fatalf("hello = %+v", hello)
	}
	s.Advance(2)
	for want := 1; want <= 2; want++ {
		if m := read(); m.Metrics.Tick != want {
			t.Fatalf("tick message = %+v, want tick %d", m, want)
		}
	}
	s.Restart()
	if m := read(); m.Type != "reset" || m.Run != 1 || m.Seed != 21 {
		t.Fatalf("reset message = %+v", m)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _, ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		var msg Message
		getJSON(t, ts.URL+"/api/metrics", &msg)
		if msg.Metrics.Tick > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("loop never advanced the world")
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	if !strings.Contains(body.String(), "wildfire_step_duration_seconds") {
		t.Fatal("/metrics is missing the step histogram")
	}
}
