package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"wildfire/internal/sims/wildfire"
)

// TickRecord is one line of a series file: the metrics of a single tick,
// labelled with the run that produced them.
type TickRecord struct {
	Run      int    `json:"run"`
	Seed     int64  `json:"seed"`
	Strategy string `json:"strategy"`
	wildfire.Metrics
}

// SeriesWriter appends TickRecords as zstd-compressed JSON lines.
type SeriesWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// CreateSeries creates (or truncates) path and returns a writer for it.
func CreateSeries(path string) (*SeriesWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &SeriesWriter{f: f, enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

// Write appends one record.
func (s *SeriesWriter) Write(rec TickRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return errors.New("report: write to closed series")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

// Close flushes and closes the underlying file.
func (s *SeriesWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	flushErr := s.w.Flush()
	encErr := s.enc.Close()
	fileErr := s.f.Close()
	s.w, s.enc, s.f = nil, nil, nil
	return errors.Join(flushErr, encErr, fileErr)
}

// ReadSeries decodes every record of a series file.
func ReadSeries(path string) ([]TickRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeSeries(f)
}

// DecodeSeries reads zstd-compressed JSON lines from r.
func DecodeSeries(r io.Reader) ([]TickRecord, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []TickRecord
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec TickRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("report: line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
