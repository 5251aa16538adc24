package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"wildfire/internal/sims/wildfire"
)

// Sweep describes one batch of runs stored together.
type Sweep struct {
	ID        int64
	Name      string
	Samples   int
	Seeds     int
	Ticks     int
	StartedAt time.Time
	Base      wildfire.Config
}

// Run is the outcome of a single simulation.
type Run struct {
	Sample   int
	Seed     int64
	Params   wildfire.Params
	Final    wildfire.Metrics
	Duration time.Duration
}

// StrategySummary aggregates the runs of one strategy inside a sweep.
type StrategySummary struct {
	Strategy         wildfire.StrategyKind
	Runs             int
	MeanLost         float64
	MinLost          float64
	MaxLost          float64
	MeanBurnoutTime  float64
	MeanTotalCost    float64
	DepletedFraction float64
}

// Store is a SQLite index of sweep results.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	once sync.Once
}

var ErrClosed = errors.New("results: store closed")

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("results: empty db path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sweeps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			samples INTEGER NOT NULL,
			seeds INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			base_json TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			sweep_id INTEGER NOT NULL REFERENCES sweeps(id) ON DELETE CASCADE,
			sample INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			strategy TEXT NOT NULL,
			spread_coefficient REAL NOT NULL,
			number_firefighters INTEGER NOT NULL,
			fire_line_margin INTEGER NOT NULL,
			cut_down_amount REAL NOT NULL,
			response_delay INTEGER NOT NULL,
			params_json TEXT NOT NULL,
			ticks INTEGER NOT NULL,
			percentage_lost REAL NOT NULL,
			burnout_time INTEGER NOT NULL,
			extinguish_cost INTEGER NOT NULL,
			burn_cost INTEGER NOT NULL,
			cut_down_cost INTEGER NOT NULL,
			total_cost INTEGER NOT NULL,
			state TEXT NOT NULL,
			duration_ms REAL NOT NULL,
			PRIMARY KEY (sweep_id, sample, strategy, seed)
		);`,
		`CREATE INDEX IF NOT EXISTS runs_strategy ON runs(sweep_id, strategy);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle. It is safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		err = s.db.Close()
		s.db = nil
	})
	return err
}

// CreateSweep records sw and returns its id.
func (s *Store) CreateSweep(ctx context.Context, sw Sweep) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	base, err := json.Marshal(sw.Base)
	if err != nil {
		return 0, err
	}
	started := sw.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sweeps(name,samples,seeds,ticks,width,height,base_json,started_at) VALUES(?,?,?,?,?,?,?,?)`,
		sw.Name, sw.Samples, sw.Seeds, sw.Ticks, sw.Base.Width, sw.Base.Height, string(base), started.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertRuns stores runs for sweepID in a single transaction.
func (s *Store) InsertRuns(ctx context.Context, sweepID int64, runs []Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO runs(
		sweep_id,sample,seed,strategy,spread_coefficient,number_firefighters,fire_line_margin,cut_down_amount,response_delay,params_json,
		ticks,percentage_lost,burnout_time,extinguish_cost,burn_cost,cut_down_cost,total_cost,state,duration_ms
	) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range runs {
		params, err := json.Marshal(r.Params)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		p, m := r.Params, r.Final
		if _, err := stmt.ExecContext(ctx,
			sweepID, r.Sample, r.Seed, string(p.Strategy), p.SpreadCoefficient, p.NumberFirefighters, p.FireLineMargin, p.CutDownAmount, p.ResponseDelay, string(params),
			m.Tick, m.PercentageLost, m.BurnoutTime, m.ExtinguishCost, m.BurnCost, m.CutDownCost, m.TotalCost, m.State.String(),
			float64(r.Duration)/float64(time.Millisecond),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("results: insert run %d/%d: %w", r.Sample, r.Seed, err)
		}
	}
	return tx.Commit()
}

// Runs returns every run of sweepID ordered by sample and seed.
func (s *Store) Runs(ctx context.Context, sweepID int64) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT sample,seed,params_json,ticks,percentage_lost,burnout_time,
		extinguish_cost,burn_cost,cut_down_cost,total_cost,state,duration_ms
		FROM runs WHERE sweep_id=? ORDER BY sample,strategy,seed`, sweepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r      Run
			params string
			state  string
			ms     float64
		)
		if err := rows.Scan(&r.Sample, &r.Seed, &params, &r.Final.Tick, &r.Final.PercentageLost, &r.Final.BurnoutTime,
			&r.Final.ExtinguishCost, &r.Final.BurnCost, &r.Final.CutDownCost, &r.Final.TotalCost, &state, &ms); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return nil, fmt.Errorf("results: decode params of run %d/%d: %w", r.Sample, r.Seed, err)
		}
		if err := r.Final.State.UnmarshalText([]byte(state)); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(ms * float64(time.Millisecond))
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summarize aggregates the runs of sweepID per strategy.
func (s *Store) Summarize(ctx context.Context, sweepID int64) ([]StrategySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT strategy, COUNT(*),
		AVG(percentage_lost), MIN(percentage_lost), MAX(percentage_lost),
		AVG(burnout_time), AVG(total_cost),
		AVG(CASE WHEN state='depleted' THEN 1.0 ELSE 0.0 END)
		FROM runs WHERE sweep_id=? GROUP BY strategy ORDER BY strategy`, sweepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StrategySummary
	for rows.Next() {
		var (
			sum      StrategySummary
			strategy string
		)
		if err := rows.Scan(&strategy, &sum.Runs, &sum.MeanLost, &sum.MinLost, &sum.MaxLost,
			&sum.MeanBurnoutTime, &sum.MeanTotalCost, &sum.DepletedFraction); err != nil {
			return nil, err
		}
		sum.Strategy = wildfire.StrategyKind(strategy)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// LatestSweep returns the most recently created sweep.
func (s *Store) LatestSweep(ctx context.Context) (Sweep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return Sweep{}, ErrClosed
	}
	var (
		sw      Sweep
		base    string
		started string
	)
	row := s.db.QueryRowContext(ctx, `SELECT id,name,samples,seeds,ticks,base_json,started_at FROM sweeps ORDER BY id DESC LIMIT 1`)
	if err := row.Scan(&sw.ID, &sw.Name, &sw.Samples, &sw.Seeds, &sw.Ticks, &base, &started); err != nil {
		return Sweep{}, err
	}
	if err := json.Unmarshal([]byte(base), &sw.Base); err != nil {
		return Sweep{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Sweep{}, err
	}
	sw.StartedAt = t
	return sw, nil
}
