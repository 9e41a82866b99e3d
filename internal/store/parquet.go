package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"optiq/internal/domain"
)

// Compile-time interface checks.
var _ TickStore = (*ParquetStore)(nil)
var _ ValuationStore = (*ParquetStore)(nil)

// ParquetStore implements TickStore and ValuationStore using Parquet files
// on disk. Tick history is laid out per symbol and day; valuation history
// per day.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// TickRecord is the Parquet schema for tick history.
type TickRecord struct {
	Kind            string  `parquet:"kind"`
	Symbol          string  `parquet:"symbol"`
	Timestamp       int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price           float64 `parquet:"price"`
	Size            int64   `parquet:"size"`
	Underlying      string  `parquet:"underlying"`
	UnderlyingPrice float64 `parquet:"underlying_price"`
	Strike          float64 `parquet:"strike"`
	Right           string  `parquet:"right"`
	Expiry          int64   `parquet:"expiry,timestamp(millisecond)"` // Unix ms, 0 for trades
}

// ValuationRecord is the Parquet schema for portfolio valuation marks.
type ValuationRecord struct {
	Timestamp    int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	TotalValue   float64 `parquet:"total_value"`
	UnrealizedPL float64 `parquet:"unrealized_pl"`
	RealizedPL   float64 `parquet:"realized_pl"`
	RiskLevel    float64 `parquet:"risk_level"`
	Positions    int32   `parquet:"positions"`
}

// ---------------------------------------------------------------------------
// TickStore implementation
// ---------------------------------------------------------------------------

// WriteTicks writes tick history to Parquet files organized by symbol and
// date. Each symbol+date combination produces a separate file at:
//
//	<DataDir>/ticks/<SYMBOL>/<YYYY-MM-DD>.parquet
func (s *ParquetStore) WriteTicks(_ context.Context, ticks []domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	type key struct {
		symbol string
		date   string // YYYY-MM-DD
	}
	groups := make(map[key][]TickRecord)
	for _, t := range ticks {
		k := key{symbol: t.Symbol, date: t.Timestamp.UTC().Format("2006-01-02")}
		rec := TickRecord{
			Kind:            string(t.Kind),
			Symbol:          t.Symbol,
			Timestamp:       t.Timestamp.UnixMilli(),
			Price:           t.Price,
			Size:            t.Size,
			Underlying:      t.Underlying,
			UnderlyingPrice: t.UnderlyingPrice,
			Strike:          t.Strike,
			Right:           string(t.Right),
		}
		if !t.Expiry.IsZero() {
			rec.Expiry = t.Expiry.UnixMilli()
		}
		groups[k] = append(groups[k], rec)
	}

	for k, records := range groups {
		d, _ := time.Parse("2006-01-02", k.date)
		path := s.tickPath(k.symbol, d)

		// Read existing records to merge.
		existing, _ := readParquetFile[TickRecord](path)
		merged := mergeTickRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing ticks for %s/%s: %w", k.symbol, k.date, err)
		}
	}
	return nil
}

// ReadTicks reads tick history for the given symbol and time range.
func (s *ParquetStore) ReadTicks(_ context.Context, symbol string, start, end time.Time) ([]domain.Tick, error) {
	var ticks []domain.Tick
	for d := start.UTC().Truncate(24 * time.Hour); !d.After(end); d = d.AddDate(0, 0, 1) {
		path := s.tickPath(symbol, d)
		records, err := readParquetFile[TickRecord](path)
		if err != nil {
			// No file for this day, skip it.
			continue
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if ts.Before(start) || ts.After(end) {
				continue
			}
			tick := domain.Tick{
				Kind:            domain.TickKind(r.Kind),
				Symbol:          r.Symbol,
				Timestamp:       ts,
				Price:           r.Price,
				Size:            r.Size,
				Underlying:      r.Underlying,
				UnderlyingPrice: r.UnderlyingPrice,
				Strike:          r.Strike,
				Right:           domain.OptionRight(r.Right),
			}
			if r.Expiry != 0 {
				tick.Expiry = time.UnixMilli(r.Expiry).UTC()
			}
			ticks = append(ticks, tick)
		}
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Timestamp.Before(ticks[j].Timestamp) })
	return ticks, nil
}

// ListSymbols lists all symbols that have tick history.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "ticks")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ---------------------------------------------------------------------------
// ValuationStore implementation
// ---------------------------------------------------------------------------

// WriteValuations appends valuation marks, one Parquet file per day at:
//
//	<DataDir>/valuations/<YYYY-MM-DD>.parquet
func (s *ParquetStore) WriteValuations(_ context.Context, marks []Valuation) error {
	if len(marks) == 0 {
		return nil
	}

	groups := make(map[string][]ValuationRecord)
	for _, m := range marks {
		date := m.Timestamp.UTC().Format("2006-01-02")
		groups[date] = append(groups[date], ValuationRecord{
			Timestamp:    m.Timestamp.UnixMilli(),
			TotalValue:   m.TotalValue,
			UnrealizedPL: m.UnrealizedPL,
			RealizedPL:   m.RealizedPL,
			RiskLevel:    m.RiskLevel,
			Positions:    int32(m.Positions),
		})
	}

	for date, records := range groups {
		path := s.valuationPath(date)
		existing, _ := readParquetFile[ValuationRecord](path)
		merged := mergeValuationRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing valuations for %s: %w", date, err)
		}
	}
	return nil
}

// ReadValuations returns valuation marks within [start, end].
func (s *ParquetStore) ReadValuations(_ context.Context, start, end time.Time) ([]Valuation, error) {
	var marks []Valuation
	for d := start.UTC().Truncate(24 * time.Hour); !d.After(end); d = d.AddDate(0, 0, 1) {
		path := s.valuationPath(d.Format("2006-01-02"))
		records, err := readParquetFile[ValuationRecord](path)
		if err != nil {
			continue
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if ts.Before(start) || ts.After(end) {
				continue
			}
			marks = append(marks, Valuation{
				Timestamp:    ts,
				TotalValue:   r.TotalValue,
				UnrealizedPL: r.UnrealizedPL,
				RealizedPL:   r.RealizedPL,
				RiskLevel:    r.RiskLevel,
				Positions:    int(r.Positions),
			})
		}
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].Timestamp.Before(marks[j].Timestamp) })
	return marks, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// tickPath returns the filesystem path for a tick Parquet file.
// Layout: <dataDir>/ticks/<SYMBOL>/<YYYY-MM-DD>.parquet
func (s *ParquetStore) tickPath(symbol string, t time.Time) string {
	date := t.Format("2006-01-02")
	return filepath.Join(s.DataDir, "ticks", strings.ToUpper(symbol), date+".parquet")
}

// valuationPath returns the filesystem path for a valuation Parquet file.
// Layout: <dataDir>/valuations/<YYYY-MM-DD>.parquet
func (s *ParquetStore) valuationPath(date string) string {
	return filepath.Join(s.DataDir, "valuations", date+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeTickRecords deduplicates tick records by (symbol, timestamp),
// preferring new records over existing ones. Results are sorted by
// timestamp.
func mergeTickRecords(existing, incoming []TickRecord) []TickRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]TickRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]TickRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

// mergeValuationRecords deduplicates valuation records by timestamp,
// preferring new records over existing ones.
func mergeValuationRecords(existing, incoming []ValuationRecord) []ValuationRecord {
	seen := make(map[int64]ValuationRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]ValuationRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
