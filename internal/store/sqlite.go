package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"optiq/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ OrderStore = (*SQLiteStore)(nil)
var _ PositionStore = (*SQLiteStore)(nil)
var _ SignalStore = (*SQLiteStore)(nil)

// SQLiteStore implements OrderStore, PositionStore, and SignalStore backed by
// a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id               TEXT PRIMARY KEY,
	symbol           TEXT NOT NULL,
	side             TEXT NOT NULL,
	type             TEXT NOT NULL,
	qty              REAL NOT NULL,
	filled_qty       REAL NOT NULL DEFAULT 0,
	limit_price      REAL NOT NULL DEFAULT 0,
	stop_price       REAL NOT NULL DEFAULT 0,
	filled_avg_price REAL NOT NULL DEFAULT 0,
	status           TEXT NOT NULL,
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);

CREATE TABLE IF NOT EXISTS positions (
	symbol        TEXT PRIMARY KEY,
	qty           REAL NOT NULL,
	avg_price     REAL NOT NULL,
	last_price    REAL NOT NULL,
	unrealized_pl REAL NOT NULL,
	realized_pl   REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy_id TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	type        TEXT NOT NULL,
	strength    REAL NOT NULL,
	metadata    TEXT,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_strategy ON signals(strategy_id, created_at DESC);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// OrderStore implementation
// ---------------------------------------------------------------------------

// SaveOrder inserts the order, replacing any existing row with the same id.
func (s *SQLiteStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO orders
			(id, symbol, side, type, qty, filled_qty, limit_price, stop_price,
			 filled_avg_price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.Symbol, order.Side, order.Type, order.Qty,
		order.FilledQty, order.LimitPrice, order.StopPrice,
		order.FilledAvgPrice, order.Status,
		order.CreatedAt.UnixMilli(), order.UpdatedAt.UnixMilli(),
	)
	return err
}

// GetOrder retrieves a single order by its ID; sql.ErrNoRows on a miss.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, side, type, qty, filled_qty, limit_price, stop_price,
		       filled_avg_price, status, created_at, updated_at
		FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

// ListOrders returns all orders matching the given status, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, side, type, qty, filled_qty, limit_price, stop_price,
		       filled_avg_price, status, created_at, updated_at
		FROM orders WHERE status = ? ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// UpdateOrder persists changes to an existing order.
func (s *SQLiteStore) UpdateOrder(ctx context.Context, order *domain.Order) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE orders SET filled_qty = ?, filled_avg_price = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		order.FilledQty, order.FilledAvgPrice, order.Status,
		order.UpdatedAt.UnixMilli(), order.ID,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var createdAt, updatedAt int64
	err := row.Scan(&o.ID, &o.Symbol, &o.Side, &o.Type, &o.Qty, &o.FilledQty,
		&o.LimitPrice, &o.StopPrice, &o.FilledAvgPrice, &o.Status,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	o.CreatedAt = time.UnixMilli(createdAt).UTC()
	o.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &o, nil
}

// ---------------------------------------------------------------------------
// PositionStore implementation
// ---------------------------------------------------------------------------

// SavePosition inserts or updates a position for a symbol.
func (s *SQLiteStore) SavePosition(ctx context.Context, pos *domain.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO positions
			(symbol, qty, avg_price, last_price, unrealized_pl, realized_pl)
		VALUES (?, ?, ?, ?, ?, ?)`,
		pos.Symbol, pos.Qty, pos.AvgPrice, pos.LastPrice,
		pos.UnrealizedPL, pos.RealizedPL,
	)
	return err
}

// GetPosition retrieves the current position for a symbol; sql.ErrNoRows on
// a miss.
func (s *SQLiteStore) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	var p domain.Position
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, qty, avg_price, last_price, unrealized_pl, realized_pl
		FROM positions WHERE symbol = ?`, symbol).
		Scan(&p.Symbol, &p.Qty, &p.AvgPrice, &p.LastPrice, &p.UnrealizedPL, &p.RealizedPL)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPositions returns all stored positions.
func (s *SQLiteStore) ListPositions(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, qty, avg_price, last_price, unrealized_pl, realized_pl
		FROM positions ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.Symbol, &p.Qty, &p.AvgPrice, &p.LastPrice,
			&p.UnrealizedPL, &p.RealizedPL); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// DeletePosition removes the position for a symbol.
func (s *SQLiteStore) DeletePosition(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE symbol = ?`, symbol)
	return err
}

// ---------------------------------------------------------------------------
// SignalStore implementation
// ---------------------------------------------------------------------------

// SaveSignal inserts a new signal and fills in its assigned ID.
func (s *SQLiteStore) SaveSignal(ctx context.Context, signal *domain.Signal) error {
	meta, err := json.Marshal(signal.Metadata)
	if err != nil {
		return fmt.Errorf("store: encoding signal metadata: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (strategy_id, symbol, type, strength, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		signal.StrategyID, signal.Symbol, signal.Type, signal.Strength,
		string(meta), signal.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		signal.ID = id
	}
	return nil
}

// ListSignals returns the most recent signals for a strategy, up to limit.
func (s *SQLiteStore) ListSignals(ctx context.Context, strategyID string, limit int) ([]domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy_id, symbol, type, strength, metadata, created_at
		FROM signals WHERE strategy_id = ?
		ORDER BY created_at DESC LIMIT ?`, strategyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []domain.Signal
	for rows.Next() {
		var sig domain.Signal
		var meta string
		var createdAt int64
		if err := rows.Scan(&sig.ID, &sig.StrategyID, &sig.Symbol, &sig.Type,
			&sig.Strength, &meta, &createdAt); err != nil {
			return nil, err
		}
		if meta != "" && meta != "null" {
			if err := json.Unmarshal([]byte(meta), &sig.Metadata); err != nil {
				return nil, fmt.Errorf("store: decoding signal metadata: %w", err)
			}
		}
		sig.CreatedAt = time.UnixMilli(createdAt).UTC()
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}
