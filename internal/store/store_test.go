package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"optiq/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	// Test tickPath produces the expected layout.
	ts := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	tp := ps.tickPath("spy", ts)

	wantTickPath := filepath.Join("/data", "ticks", "SPY", "2024-06-15.parquet")
	if tp != wantTickPath {
		t.Errorf("tickPath mismatch:\n  got  %s\n  want %s", tp, wantTickPath)
	}
	if !strings.Contains(tp, "SPY") {
		t.Errorf("tickPath should upper-case the symbol: %s", tp)
	}
	if !strings.Contains(tp, "2024-06-15.parquet") {
		t.Errorf("tickPath should contain date file '2024-06-15.parquet': %s", tp)
	}

	// Test valuationPath produces the expected layout.
	vp := ps.valuationPath("2024-06-15")

	wantValPath := filepath.Join("/data", "valuations", "2024-06-15.parquet")
	if vp != wantValPath {
		t.Errorf("valuationPath mismatch:\n  got  %s\n  want %s", vp, wantValPath)
	}
}

func TestParquetStoreWriteReadTicks(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	expiry := time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC)
	ticks := []domain.Tick{
		{
			Kind:      domain.TickKindTrade,
			Symbol:    "SPY",
			Price:     450.25,
			Size:      100,
			Timestamp: time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC),
		},
		{
			Kind:            domain.TickKindOption,
			Symbol:          "SPY-20240216-C-455",
			Price:           3.85,
			Timestamp:       time.Date(2024, 1, 2, 14, 30, 1, 0, time.UTC),
			Underlying:      "SPY",
			UnderlyingPrice: 450.25,
			Strike:          455.0,
			Right:           domain.OptionRightCall,
			Expiry:          expiry,
		},
	}

	if err := ps.WriteTicks(ctx, ticks); err != nil {
		t.Fatalf("WriteTicks: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	got, err := ps.ReadTicks(ctx, "SPY", start, end)
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ReadTicks(SPY) returned %d ticks, want 1", len(got))
	}
	if got[0].Price != 450.25 {
		t.Errorf("tick Price = %v, want 450.25", got[0].Price)
	}
	if got[0].Size != 100 {
		t.Errorf("tick Size = %v, want 100", got[0].Size)
	}

	got, err = ps.ReadTicks(ctx, "SPY-20240216-C-455", start, end)
	if err != nil {
		t.Fatalf("ReadTicks (option): %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ReadTicks (option) returned %d ticks, want 1", len(got))
	}
	if got[0].Kind != domain.TickKindOption {
		t.Errorf("tick Kind = %v, want %v", got[0].Kind, domain.TickKindOption)
	}
	if got[0].Strike != 455.0 {
		t.Errorf("tick Strike = %v, want 455", got[0].Strike)
	}
	if got[0].Right != domain.OptionRightCall {
		t.Errorf("tick Right = %v, want %v", got[0].Right, domain.OptionRightCall)
	}
	if !got[0].Expiry.Equal(expiry) {
		t.Errorf("tick Expiry = %v, want %v", got[0].Expiry, expiry)
	}
}

func TestParquetStoreMergeTicks(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	ticks1 := []domain.Tick{
		{Kind: domain.TickKindTrade, Symbol: "QQQ", Price: 430.0, Size: 50, Timestamp: day.Add(14 * time.Hour)},
	}
	if err := ps.WriteTicks(ctx, ticks1); err != nil {
		t.Fatalf("WriteTicks (first): %v", err)
	}

	// Second write for the same symbol+day merges rather than overwrites.
	ticks2 := []domain.Tick{
		{Kind: domain.TickKindTrade, Symbol: "QQQ", Price: 431.5, Size: 75, Timestamp: day.Add(15 * time.Hour)},
	}
	if err := ps.WriteTicks(ctx, ticks2); err != nil {
		t.Fatalf("WriteTicks (second): %v", err)
	}

	got, err := ps.ReadTicks(ctx, "QQQ", day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadTicks returned %d ticks after merge, want 2", len(got))
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Errorf("ticks not sorted by timestamp: %v then %v", got[0].Timestamp, got[1].Timestamp)
	}

	// Replaying the same tick is a no-op.
	if err := ps.WriteTicks(ctx, ticks2); err != nil {
		t.Fatalf("WriteTicks (replay): %v", err)
	}
	got, err = ps.ReadTicks(ctx, "QQQ", day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ReadTicks (after replay): %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadTicks returned %d ticks after replay, want 2", len(got))
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	ticks := []domain.Tick{
		{Kind: domain.TickKindTrade, Symbol: "AAPL", Price: 185.0, Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Kind: domain.TickKindTrade, Symbol: "GOOGL", Price: 140.0, Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	if err := ps.WriteTicks(ctx, ticks); err != nil {
		t.Fatalf("WriteTicks: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("ListSymbols returned %d symbols, want 2", len(symbols))
	}
	if symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}
}

func TestParquetStoreValuations(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	base := time.Date(2024, 5, 6, 16, 0, 0, 0, time.UTC)
	marks := []Valuation{
		{Timestamp: base, TotalValue: 100000, UnrealizedPL: 500, RealizedPL: 0, RiskLevel: 0.25, Positions: 3},
		{Timestamp: base.Add(time.Minute), TotalValue: 100500, UnrealizedPL: 1000, RealizedPL: 0, RiskLevel: 0.30, Positions: 3},
	}
	if err := ps.WriteValuations(ctx, marks); err != nil {
		t.Fatalf("WriteValuations: %v", err)
	}

	got, err := ps.ReadValuations(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("ReadValuations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadValuations returned %d marks, want 2", len(got))
	}
	if got[0].TotalValue != 100000 {
		t.Errorf("first mark TotalValue = %v, want 100000", got[0].TotalValue)
	}
	if got[1].RiskLevel != 0.30 {
		t.Errorf("second mark RiskLevel = %v, want 0.30", got[1].RiskLevel)
	}
	if got[0].Positions != 3 {
		t.Errorf("first mark Positions = %v, want 3", got[0].Positions)
	}
}

func TestSQLiteStoreOpen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()

	// Verify the store is usable by pinging the database.
	if err := store.db.Ping(); err != nil {
		t.Fatalf("db.Ping() returned error: %v", err)
	}
}

func TestSQLiteStoreOrders(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC)
	order := &domain.Order{
		ID:         "ord-1",
		Symbol:     "SPY",
		Side:       domain.OrderSideBuy,
		Type:       domain.OrderTypeLimit,
		Qty:        100,
		LimitPrice: 449.50,
		Status:     domain.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := store.SaveOrder(ctx, order); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}

	got, err := store.GetOrder(ctx, "ord-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Symbol != "SPY" || got.Qty != 100 || got.LimitPrice != 449.50 {
		t.Errorf("GetOrder = %+v, want symbol SPY qty 100 limit 449.50", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("GetOrder CreatedAt = %v, want %v", got.CreatedAt, now)
	}

	// Update to filled and verify ListOrders filtering.
	order.Status = domain.OrderStatusFilled
	order.FilledQty = 100
	order.FilledAvgPrice = 449.40
	if err := store.UpdateOrder(ctx, order); err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}

	filled, err := store.ListOrders(ctx, domain.OrderStatusFilled)
	if err != nil {
		t.Fatalf("ListOrders(filled): %v", err)
	}
	if len(filled) != 1 {
		t.Fatalf("ListOrders(filled) returned %d orders, want 1", len(filled))
	}
	if filled[0].FilledAvgPrice != 449.40 {
		t.Errorf("filled order FilledAvgPrice = %v, want 449.40", filled[0].FilledAvgPrice)
	}

	pending, err := store.ListOrders(ctx, domain.OrderStatusPending)
	if err != nil {
		t.Fatalf("ListOrders(pending): %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("ListOrders(pending) returned %d orders, want 0", len(pending))
	}
}

func TestSQLiteStorePositions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	pos := &domain.Position{
		Symbol:       "SPY",
		Qty:          200,
		AvgPrice:     448.0,
		LastPrice:    450.0,
		UnrealizedPL: 400.0,
	}
	if err := store.SavePosition(ctx, pos); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}

	got, err := store.GetPosition(ctx, "SPY")
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if got.Qty != 200 || got.AvgPrice != 448.0 {
		t.Errorf("GetPosition = %+v, want qty 200 avg 448", got)
	}

	// Upsert semantics on a second save.
	pos.Qty = 150
	if err := store.SavePosition(ctx, pos); err != nil {
		t.Fatalf("SavePosition (upsert): %v", err)
	}
	all, err := store.ListPositions(ctx)
	if err != nil {
		t.Fatalf("ListPositions: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListPositions returned %d positions, want 1", len(all))
	}
	if all[0].Qty != 150 {
		t.Errorf("upserted position Qty = %v, want 150", all[0].Qty)
	}

	if err := store.DeletePosition(ctx, "SPY"); err != nil {
		t.Fatalf("DeletePosition: %v", err)
	}
	all, err = store.ListPositions(ctx)
	if err != nil {
		t.Fatalf("ListPositions (after delete): %v", err)
	}
	if len(all) != 0 {
		t.Errorf("ListPositions returned %d positions after delete, want 0", len(all))
	}
}

func TestSQLiteStoreSignals(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		sig := &domain.Signal{
			StrategyID: "vol-arb",
			Symbol:     "SPY-20240816-C-460",
			Type:       domain.SignalTypeSell,
			Strength:   0.8,
			Metadata:   map[string]string{"implied_vol": "0.3500"},
			CreatedAt:  now.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveSignal(ctx, sig); err != nil {
			t.Fatalf("SaveSignal: %v", err)
		}
		if sig.ID == 0 {
			t.Errorf("SaveSignal did not assign an ID")
		}
	}

	got, err := store.ListSignals(ctx, "vol-arb", 2)
	if err != nil {
		t.Fatalf("ListSignals: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListSignals returned %d signals, want 2", len(got))
	}
	if got[0].Metadata["implied_vol"] != "0.3500" {
		t.Errorf("signal Metadata[implied_vol] = %q, want 0.3500", got[0].Metadata["implied_vol"])
	}

	other, err := store.ListSignals(ctx, "other", 10)
	if err != nil {
		t.Fatalf("ListSignals(other): %v", err)
	}
	if len(other) != 0 {
		t.Errorf("ListSignals(other) returned %d signals, want 0", len(other))
	}
}
