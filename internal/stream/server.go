package stream

import (
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"wildfire/internal/core"
	"wildfire/internal/logging"
	"wildfire/internal/observability"
	"wildfire/internal/render"
	"wildfire/internal/sims/wildfire"
)

var edgeColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Options tunes a Server.
type Options struct {
	TPS       int
	Scale     int  // default PNG frame scale
	AutoReset bool // start a new run with the next seed once the fire is depleted
	Logger    logging.Logger
	Collector *observability.WildfireCollector
}

// Message is the JSON document pushed to websocket clients.
type Message struct {
	Type    string           `json:"type"` // "tick" or "reset"
	Run     int              `json:"run"`
	Seed    int64            `json:"seed"`
	Metrics wildfire.Metrics `json:"metrics"`
}

// Status is the body of GET /api/config.
type Status struct {
	Run      int             `json:"run"`
	Seed     int64           `json:"seed"`
	Paused   bool            `json:"paused"`
	TPS      int             `json:"tps"`
	Clients  int             `json:"clients"`
	Config   wildfire.Config `json:"config"`
	Pending  wildfire.Config `json:"pending"`
	Palette  int             `json:"palette_size"`
	Strategy string          `json:"strategy"`
}

// Server steps one wildfire world at a fixed rate and streams its metrics.
type Server struct {
	mu     sync.Mutex
	world  *wildfire.World
	run    int
	seed   int64
	paused bool
	timer  *core.FixedStep
	tps    int

	opts     Options
	log      logging.Logger
	metrics  *observability.WildfireCollector
	hub      *hub
	upgrader websocket.Upgrader
}

// NewServer wraps w. The world keeps its current state; its configured seed
// starts run 0.
func NewServer(w *wildfire.World, opts Options) *Server {
	if opts.TPS <= 0 {
		opts.TPS = 10
	}
	if opts.Scale <= 0 {
		opts.Scale = 8
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	s := &Server{
		world:   w,
		seed:    w.Config().Seed,
		timer:   core.NewFixedStep(opts.TPS),
		tps:     opts.TPS,
		opts:    opts,
		log:     opts.Logger,
		metrics: opts.Collector,
		hub:     newHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.metrics.Observe(w.Metrics())
	return s
}

// Routes returns the HTTP surface of the server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.getConfig)
		r.Get("/metrics", s.getMetrics)
		r.Get("/frame", s.getFrame)
		r.Post("/reset", s.postReset)
		r.Post("/params", s.postParams)
		r.Post("/pause", s.postPause)
		r.Post("/resume", s.postResume)
		r.Post("/step", s.postStep)
	})
	r.Get("/ws", s.serveWS)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// Run advances the world at the configured rate until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.timer.Interval())
	defer ticker.Stop()
	defer s.hub.shutdown()
	s.log.Info(ctx, "stream loop started", logging.Int("tps", s.tps))
	for {
		select {
		case <-ctx.Done():
			s.log.Info(context.Background(), "stream loop stopped", logging.Int("run", s.CurrentRun()))
			return nil
		case <-ticker.C:
			if n := s.timer.Due(); n > 0 {
				s.Advance(n)
			}
		}
	}
}

// CurrentRun reports the current run number.
func (s *Server) CurrentRun() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

// Advance steps the world n ticks unless paused and broadcasts one message
// per tick. It returns the number of ticks taken.
func (s *Server) Advance(n int) int {
	return s.advance(n, false)
}

// Step advances the world n ticks even while paused.
func (s *Server) Step(n int) int {
	return s.advance(n, true)
}

func (s *Server) advance(n int, force bool) int {
	s.mu.Lock()
	if s.paused && !force {
		s.mu.Unlock()
		return 0
	}
	msgs := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		start := time.Now()
		s.world.Step()
		s.metrics.ObserveStep(s.world.Strategy(), time.Since(start))
		m := s.world.Metrics()
		s.metrics.Observe(m)
		msgs = append(msgs, Message{Type: "tick", Run: s.run, Seed: s.seed, Metrics: m})
		if s.opts.AutoReset && m.State == wildfire.StateDepleted {
			msgs = append(msgs, s.resetLocked(s.seed+1))
		}
	}
	s.mu.Unlock()

	for _, m := range msgs {
		s.publish(m)
	}
	return n
}

// Restart finishes the current run and starts another with the current seed.
func (s *Server) Restart() Message {
	s.mu.Lock()
	msg := s.resetLocked(s.seed)
	s.mu.Unlock()
	s.publish(msg)
	return msg
}

// Reset finishes the current run and starts another with seed.
func (s *Server) Reset(seed int64) Message {
	s.mu.Lock()
	msg := s.resetLocked(seed)
	s.mu.Unlock()
	s.publish(msg)
	return msg
}

func (s *Server) resetLocked(seed int64) Message {
	prev := s.world.Metrics()
	s.metrics.RunFinished(s.world.Strategy())
	s.log.Info(context.Background(), "run finished",
		logging.Int("run", s.run),
		logging.Int64("seed", s.seed),
		logging.String("strategy", string(s.world.Strategy())),
		logging.Float("percentage_lost", prev.PercentageLost),
		logging.Int("burnout_time", prev.BurnoutTime),
		logging.Int("total_cost", prev.TotalCost))

	s.run++
	s.seed = seed
	s.world.Reset(seed)
	m := s.world.Metrics()
	s.metrics.Observe(m)
	return Message{Type: "reset", Run: s.run, Seed: s.seed, Metrics: m}
}

func (s *Server) publish(m Message) {
	b, err := json.Marshal(m)
	if err != nil {
		s.log.Error(context.Background(), "encode message", logging.Err(err))
		return
	}
	s.hub.broadcast(b)
}

func (s *Server) status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Run:      s.run,
		Seed:     s.seed,
		Paused:   s.paused,
		TPS:      s.tps,
		Clients:  s.hub.count(),
		Config:   s.world.Config(),
		Pending:  s.world.Pending(),
		Palette:  len(s.world.Palette()),
		Strategy: string(s.world.Strategy()),
	}
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.status())
}

func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	msg := Message{Type: "tick", Run: s.run, Seed: s.seed, Metrics: s.world.Metrics()}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, msg)
}

func (s *Server) getFrame(w http.ResponseWriter, r *http.Request) {
	scale := s.opts.Scale
	if v := r.URL.Query().Get("scale"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 32 {
			respondError(w, http.StatusBadRequest, "scale must be an integer in [1,32]")
			return
		}
		scale = parsed
	}
	edges := r.URL.Query().Get("edges") == "1"

	s.mu.Lock()
	img, err := render.Frame(s.world.Cells(), s.world.Size(), s.world.Palette(), scale)
	var (
		box   wildfire.Rect
		found bool
	)
	if edges {
		box, found = s.world.FireEdges()
	}
	s.mu.Unlock()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if found {
		render.OutlineCells(img, box.MinX, box.MinY, box.MaxX, box.MaxY, scale, edgeColor)
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.EncodePNG(w, img); err != nil {
		logging.FromContext(r.Context(), s.log).Warn(r.Context(), "write frame", logging.Err(err))
	}
}

// postReset starts a new run. Without a seed parameter the current seed is
// reused; seed=0 is an ordinary seed.
func (s *Server) postReset(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("seed")
	if v == "" {
		respondJSON(w, http.StatusOK, s.Restart())
		return
	}
	seed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid seed")
		return
	}
	respondJSON(w, http.StatusOK, s.Reset(seed))
}

// postParams stages key/value pairs for the next reset. The body is a JSON
// object of strings; rejected keys are reported and nothing is staged for them.
func (s *Server) postParams(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "body must be a JSON object of strings")
		return
	}
	s.mu.Lock()
	var rejected []string
	for k, v := range body {
		if !s.world.Stage(k, v) {
			rejected = append(rejected, k)
		}
	}
	pending := s.world.Pending()
	s.mu.Unlock()
	sort.Strings(rejected)

	status := http.StatusOK
	if len(rejected) > 0 {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, map[string]any{"pending": pending, "rejected": rejected})
}

func (s *Server) postPause(w http.ResponseWriter, r *http.Request) {
	s.setPaused(true)
	respondJSON(w, http.StatusOK, s.status())
}

func (s *Server) postResume(w http.ResponseWriter, r *http.Request) {
	s.setPaused(false)
	respondJSON(w, http.StatusOK, s.status())
}

// postStep advances a paused world by n ticks (default 1).
func (s *Server) postStep(w http.ResponseWriter, r *http.Request) {
	n := 1
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 10000 {
			respondError(w, http.StatusBadRequest, "n must be an integer in [1,10000]")
			return
		}
		n = parsed
	}
	s.Step(n)
	s.getMetrics(w, r)
}

// Pause stops the clock; Step still advances the world.
func (s *Server) Pause() { s.setPaused(true) }

// Resume restarts the clock.
func (s *Server) Resume() { s.setPaused(false) }

func (s *Server) setPaused(p bool) {
	s.mu.Lock()
	s.paused = p
	s.mu.Unlock()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	hello, _ := json.Marshal(Message{Type: "tick", Run: s.run, Seed: s.seed, Metrics: s.world.Metrics()})
	s.mu.Unlock()
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !s.hub.add(c, hello) {
		_ = conn.Close()
		return
	}
	go c.writeLoop()

	// Clients only send control frames; reading detects disconnects.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.remove(c)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, l := logging.WithRequestLogger(r.Context(), s.log)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := ""
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(route, status)
		l.Debug(ctx, "http request",
			logging.String("method", r.Method),
			logging.String("route", route),
			logging.Int("status", status),
			logging.Any("duration", time.Since(start)))
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
