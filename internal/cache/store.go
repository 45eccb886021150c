package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"market-stats/internal/model"
)

const (
	// SchemaVersion is written into every cache file. Files carrying another
	// version are ignored and re-fetched.
	SchemaVersion = "1.0"

	// DefaultRefreshDays is the number of trailing cached days re-fetched on every load.
	DefaultRefreshDays = 1

	fileExt           = ".parquet"
	metaSchemaVersion = "schema_version"
	metaCoverage      = "coverage"
	secondsPerDay     = 24 * 60 * 60
)

// ErrCorrupt marks a cache file that exists but cannot be used.
var ErrCorrupt = errors.New("cache corrupt")

// row is the on-disk layout: one row per observation.
type row struct {
	Date  int32   `parquet:"date,date"` // days since 1970-01-01
	Price float64 `parquet:"price"`
}

type coverageJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Entry is the decoded content of one cache file.
type Entry struct {
	Series   model.PriceSeries
	Coverage []model.DateRange
}

// Store keeps one Parquet file per symbol under a directory.
//
// Writes for different symbols are independent. Concurrent writes for the same
// symbol are not supported.
type Store struct {
	dir           string
	schemaVersion string
	refreshDays   int
	logger        *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRefreshDays sets how many trailing covered days are treated as unsettled.
func WithRefreshDays(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.refreshDays = n
		}
	}
}

// WithSchemaVersion overrides the schema version tag (tests, migrations).
func WithSchemaVersion(v string) Option {
	return func(s *Store) { s.schemaVersion = v }
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates dir if needed and returns a Store rooted there.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	s := &Store{
		dir:           dir,
		schemaVersion: SchemaVersion,
		refreshDays:   DefaultRefreshDays,
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// RefreshDays returns the trailing-edge refresh window in days.
func (s *Store) RefreshDays() int { return s.refreshDays }

// Path returns the cache file path of symbol.
func (s *Store) Path(symbol string) string {
	return filepath.Join(s.dir, fileStem(symbol)+fileExt)
}

// Read returns the cached series for symbol. ok is false when there is no usable
// cache file; a corrupt file is logged and reported as absent.
func (s *Store) Read(symbol string) (model.PriceSeries, bool) {
	e, ok := s.Entry(symbol)
	if !ok {
		return nil, false
	}
	return e.Series, true
}

// Entry returns the cached series and its coverage.
func (s *Store) Entry(symbol string) (Entry, bool) {
	e, err := s.readEntry(symbol)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("cache unreadable, treating as absent", "symbol", symbol, "path", s.Path(symbol), "error", err)
		}
		return Entry{}, false
	}
	return e, true
}

// MissingRanges returns the sub-ranges of [start, end] that must be fetched for
// symbol, trailing-edge refresh included. Without a cache it is [start, end].
func (s *Store) MissingRanges(symbol string, start, end time.Time) []model.DateRange {
	e, _ := s.Entry(symbol)
	return MissingRanges(e.Coverage, start, end, s.refreshDays)
}

// SettledThrough returns the last day of e that is treated as immutable.
func (s *Store) SettledThrough(e Entry) (time.Time, bool) {
	return settledThrough(e.Coverage, s.refreshDays)
}

// Write atomically replaces the cache file of symbol. The stored coverage is the
// union of covered and the span of series.
func (s *Store) Write(symbol string, series model.PriceSeries, covered ...model.DateRange) error {
	series = model.Normalize(series)
	if span, ok := series.Span(); ok {
		covered = append(covered, span)
	}
	coverage := unionRanges(covered)

	cov := make([]coverageJSON, len(coverage))
	for i, r := range coverage {
		cov[i] = coverageJSON{From: r.From.Format(model.DateFormat), To: r.To.Format(model.DateFormat)}
	}
	covData, err := json.Marshal(cov)
	if err != nil {
		return fmt.Errorf("marshal coverage: %w", err)
	}

	rows := make([]row, len(series))
	for i, o := range series {
		rows[i] = row{Date: int32(o.Date.Unix() / secondsPerDay), Price: o.Price}
	}

	path := s.Path(symbol)
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	w := parquet.NewGenericWriter[row](tmp,
		parquet.KeyValueMetadata(metaSchemaVersion, s.schemaVersion),
		parquet.KeyValueMetadata(metaCoverage, string(covData)),
	)
	if _, err := w.Write(rows); err != nil {
		cleanup()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	s.logger.Debug("cache written", "symbol", symbol, "path", path, "observations", len(series), "coverage", len(coverage))
	return nil
}

func (s *Store) readEntry(symbol string) (Entry, error) {
	f, err := os.Open(s.Path(symbol))
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Entry{}, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if v, _ := pf.Lookup(metaSchemaVersion); v != s.schemaVersion {
		return Entry{}, fmt.Errorf("%w: schema version %q, want %q", ErrCorrupt, v, s.schemaVersion)
	}
	rows, err := parquet.Read[row](f, st.Size())
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	series := make(model.PriceSeries, len(rows))
	for i, r := range rows {
		series[i] = model.Observation{
			Date:  time.Unix(int64(r.Date)*secondsPerDay, 0).UTC(),
			Price: r.Price,
		}
	}
	series = model.Normalize(series)

	var coverage []model.DateRange
	if raw, ok := pf.Lookup(metaCoverage); ok && raw != "" {
		var cov []coverageJSON
		if err := json.Unmarshal([]byte(raw), &cov); err != nil {
			return Entry{}, fmt.Errorf("%w: coverage: %v", ErrCorrupt, err)
		}
		for _, c := range cov {
			from, err := model.ParseDate(c.From)
			if err != nil {
				return Entry{}, fmt.Errorf("%w: coverage: %v", ErrCorrupt, err)
			}
			to, err := model.ParseDate(c.To)
			if err != nil {
				return Entry{}, fmt.Errorf("%w: coverage: %v", ErrCorrupt, err)
			}
			coverage = append(coverage, model.DateRange{From: from, To: to})
		}
	}
	if span, ok := series.Span(); ok {
		coverage = append(coverage, span)
	}
	return Entry{Series: series, Coverage: unionRanges(coverage)}, nil
}
