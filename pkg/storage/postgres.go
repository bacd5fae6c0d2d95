package storage

import (
	"context"
	_ "embed"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/errors"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at dsn and applies the schema.
func NewPostgresStore(ctx context.Context, dsn string, maxConns int32) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse connection string: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to initialize pool: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertReading(ctx context.Context, r Reading) (Reading, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	const q = `
INSERT INTO readings (id, entity, metric, value, category, observed_at, is_alert)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (entity, metric) DO UPDATE SET
    value = EXCLUDED.value,
    category = EXCLUDED.category,
    observed_at = EXCLUDED.observed_at,
    is_alert = EXCLUDED.is_alert
RETURNING id`
	err := s.pool.QueryRow(ctx, q,
		r.ID, r.EntityKey, r.MetricName, r.Value, r.Category, r.ObservedAt.UTC(), r.IsAlert,
	).Scan(&r.ID)
	if err != nil {
		return Reading{}, fmt.Errorf("postgres upsert reading %s: %w", r.Key(), err)
	}
	return r, nil
}

func (s *PostgresStore) AppendUpdate(ctx context.Context, u UpdateRecord) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	const q = `
INSERT INTO health_updates (id, reading_id, entity, metric, value, delta, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.pool.Exec(ctx, q, u.ID, u.ReadingRef, u.EntityKey, u.MetricName, u.Value, u.Delta, u.Timestamp); err != nil {
		return fmt.Errorf("postgres append update: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListReadings(ctx context.Context, entity string) ([]Reading, error) {
	const q = `
SELECT id, entity, metric, value, category, observed_at, is_alert
FROM readings
WHERE $1 = '' OR entity = $1
ORDER BY entity, metric`
	rows, err := s.pool.Query(ctx, q, entity)
	if err != nil {
		return nil, fmt.Errorf("postgres list readings: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Reading, error) {
		var r Reading
		err := row.Scan(&r.ID, &r.EntityKey, &r.MetricName, &r.Value, &r.Category, &r.ObservedAt, &r.IsAlert)
		return r, err
	})
}

func (s *PostgresStore) ListUpdates(ctx context.Context, limit int) ([]UpdateRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	const q = `
SELECT id, reading_id, entity, metric, value, delta, ts
FROM health_updates
ORDER BY seq DESC
LIMIT $1`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres list updates: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (UpdateRecord, error) {
		var u UpdateRecord
		err := row.Scan(&u.ID, &u.ReadingRef, &u.EntityKey, &u.MetricName, &u.Value, &u.Delta, &u.Timestamp)
		return u, err
	})
}

const itemColumns = `id, name, stock, min_stock, max_stock, price, expiry_date, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.Name, &item.Stock, &item.MinStock, &item.MaxStock,
		&item.Price, &item.ExpiryDate, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func (s *PostgresStore) CreateItem(ctx context.Context, item Item) (Item, error) {
	q := `
INSERT INTO items (id, name, stock, min_stock, max_stock, price, expiry_date)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + itemColumns
	created, err := scanItem(s.pool.QueryRow(ctx, q,
		item.ID, item.Name, item.Stock, item.MinStock, item.MaxStock, item.Price, item.ExpiryDate.UTC()))
	if err != nil {
		if isUniqueViolation(err) {
			return Item{}, errors.AlreadyExistsf("medicine %q", item.ID)
		}
		return Item{}, fmt.Errorf("postgres create item: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetItem(ctx context.Context, id string) (Item, error) {
	item, err := scanItem(s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return Item{}, itemNotFound(id)
	}
	if err != nil {
		return Item{}, fmt.Errorf("postgres get item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("postgres list items: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		return scanItem(row)
	})
}

func (s *PostgresStore) ApplyStockChange(ctx context.Context, id string, delta int, txRec Transaction) (Item, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Item{}, fmt.Errorf("postgres begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
UPDATE items SET stock = stock + $2, updated_at = now()
WHERE id = $1 AND stock + $2 >= 0
RETURNING ` + itemColumns
	item, err := scanItem(tx.QueryRow(ctx, q, id, delta))
	if stderrors.Is(err, pgx.ErrNoRows) {
		var stock int
		lookupErr := tx.QueryRow(ctx, `SELECT stock FROM items WHERE id = $1`, id).Scan(&stock)
		if stderrors.Is(lookupErr, pgx.ErrNoRows) {
			return Item{}, itemNotFound(id)
		}
		if lookupErr != nil {
			return Item{}, fmt.Errorf("postgres get stock: %w", lookupErr)
		}
		return Item{}, insufficientStock(id, stock, delta)
	}
	if err != nil {
		return Item{}, fmt.Errorf("postgres update stock: %w", err)
	}

	if txRec.ID == "" {
		txRec.ID = uuid.NewString()
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (id, item_id, event, quantity, ts) VALUES ($1, $2, $3, $4, $5)`,
		txRec.ID, id, txRec.Event, txRec.Quantity, txRec.Timestamp)
	if err != nil {
		return Item{}, fmt.Errorf("postgres insert transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Item{}, fmt.Errorf("postgres commit: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, itemID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 1000
	}
	const q = `
SELECT id, item_id, event, quantity, ts
FROM transactions
WHERE item_id = $1
ORDER BY seq DESC
LIMIT $2`
	rows, err := s.pool.Query(ctx, q, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres list transactions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Transaction, error) {
		var t Transaction
		err := row.Scan(&t.ID, &t.ItemID, &t.Event, &t.Quantity, &t.Timestamp)
		return t, err
	})
}

const reorderColumns = `id, item_id, quantity, status, created_at, updated_at`

func scanReorder(row pgx.Row) (ReorderRequest, error) {
	var r ReorderRequest
	err := row.Scan(&r.ID, &r.ItemID, &r.Quantity, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *PostgresStore) CreateReorder(ctx context.Context, req ReorderRequest) (ReorderRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	q := `
INSERT INTO reorder_requests (id, item_id, quantity, status)
VALUES ($1, $2, $3, $4)
RETURNING ` + reorderColumns
	created, err := scanReorder(s.pool.QueryRow(ctx, q, req.ID, req.ItemID, req.Quantity, req.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return ReorderRequest{}, errors.AlreadyExistsf("pending reorder for medicine %q", req.ItemID)
		}
		return ReorderRequest{}, fmt.Errorf("postgres create reorder: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) PendingReorder(ctx context.Context, itemID string) (ReorderRequest, bool, error) {
	req, err := scanReorder(s.pool.QueryRow(ctx,
		`SELECT `+reorderColumns+` FROM reorder_requests WHERE item_id = $1 AND status = $2 LIMIT 1`,
		itemID, ReorderPending))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return ReorderRequest{}, false, nil
	}
	if err != nil {
		return ReorderRequest{}, false, fmt.Errorf("postgres pending reorder: %w", err)
	}
	return req, true, nil
}

func (s *PostgresStore) GetReorder(ctx context.Context, id string) (ReorderRequest, error) {
	req, err := scanReorder(s.pool.QueryRow(ctx, `SELECT `+reorderColumns+` FROM reorder_requests WHERE id = $1`, id))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return ReorderRequest{}, reorderNotFound(id)
	}
	if err != nil {
		return ReorderRequest{}, fmt.Errorf("postgres get reorder: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) ListReorders(ctx context.Context) ([]ReorderRequest, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+reorderColumns+` FROM reorder_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres list reorders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ReorderRequest, error) {
		return scanReorder(row)
	})
}

func (s *PostgresStore) UpdateReorderStatus(ctx context.Context, id, status string) (ReorderRequest, error) {
	q := `
UPDATE reorder_requests SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + reorderColumns
	req, err := scanReorder(s.pool.QueryRow(ctx, q, id, status))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return ReorderRequest{}, reorderNotFound(id)
	}
	if err != nil {
		return ReorderRequest{}, fmt.Errorf("postgres update reorder: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) CompleteReorder(ctx context.Context, id string, txRec Transaction) (ReorderRequest, Item, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ReorderRequest{}, Item{}, fmt.Errorf("postgres begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
UPDATE reorder_requests SET status = $2, updated_at = now()
WHERE id = $1 AND status NOT IN ($2, $3)
RETURNING ` + reorderColumns
	req, err := scanReorder(tx.QueryRow(ctx, q, id, ReorderCompleted, ReorderCancelled))
	if stderrors.Is(err, pgx.ErrNoRows) {
		var status string
		lookupErr := tx.QueryRow(ctx, `SELECT status FROM reorder_requests WHERE id = $1`, id).Scan(&status)
		if stderrors.Is(lookupErr, pgx.ErrNoRows) {
			return ReorderRequest{}, Item{}, reorderNotFound(id)
		}
		if lookupErr != nil {
			return ReorderRequest{}, Item{}, fmt.Errorf("postgres get reorder: %w", lookupErr)
		}
		return ReorderRequest{}, Item{}, reorderClosed(id, status)
	}
	if err != nil {
		return ReorderRequest{}, Item{}, fmt.Errorf("postgres complete reorder: %w", err)
	}

	item, err := scanItem(tx.QueryRow(ctx,
		`UPDATE items SET stock = stock + $2, updated_at = now() WHERE id = $1 RETURNING `+itemColumns,
		req.ItemID, req.Quantity))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return ReorderRequest{}, Item{}, itemNotFound(req.ItemID)
	}
	if err != nil {
		return ReorderRequest{}, Item{}, fmt.Errorf("postgres restock: %w", err)
	}

	if txRec.ID == "" {
		txRec.ID = uuid.NewString()
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (id, item_id, event, quantity, ts) VALUES ($1, $2, $3, $4, $5)`,
		txRec.ID, req.ItemID, EventAdded, req.Quantity, txRec.Timestamp)
	if err != nil {
		return ReorderRequest{}, Item{}, fmt.Errorf("postgres insert transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ReorderRequest{}, Item{}, fmt.Errorf("postgres commit: %w", err)
	}
	return req, item, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
