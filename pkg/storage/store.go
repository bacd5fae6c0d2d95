// Package storage defines the persistence gateway for readings, update
// history and inventory, and provides memory, Redis and Postgres backends.
//
// Callers on the polling path treat every error from a ReadingStore as
// best-effort: it is logged and the cycle carries on. Inventory mutations are
// authoritative and surface their errors.
package storage

//go:generate mockgen -package storage -destination mock_store.go github.com/HatiCode/healthwatch/pkg/storage ReadingStore,InventoryStore

import (
	"context"
	"time"

	"github.com/juju/errors"
)

// Reading is the current value of one (entity, metric) pair.
type Reading struct {
	ID         string    `json:"id"`
	EntityKey  string    `json:"country"`
	MetricName string    `json:"indicator"`
	Value      float64   `json:"value"`
	Category   string    `json:"category"`
	ObservedAt time.Time `json:"date"`
	IsAlert    bool      `json:"isAlert"`
}

// Key returns the identity of the reading.
func (r Reading) Key() string {
	return ReadingKey(r.EntityKey, r.MetricName)
}

// ReadingKey builds the identity key for an entity and metric.
func ReadingKey(entity, metric string) string {
	return entity + "-" + metric
}

// UpdateRecord is one detected change. Records are never modified.
type UpdateRecord struct {
	ID         string  `json:"id"`
	ReadingRef string  `json:"indicatorId"`
	EntityKey  string  `json:"country"`
	MetricName string  `json:"indicatorName"`
	Value      float64 `json:"value"`
	Delta      float64 `json:"change"`
	Timestamp  int64   `json:"timestamp"`
}

// Item is a stocked medicine.
type Item struct {
	ID         string    `json:"medicineId"`
	Name       string    `json:"name"`
	Stock      int       `json:"stock"`
	MinStock   int       `json:"minStock"`
	MaxStock   int       `json:"maxStock"`
	Price      float64   `json:"price"`
	ExpiryDate time.Time `json:"expiryDate"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Stock movement kinds.
const (
	EventSold  = "sold"
	EventAdded = "added"
)

// Transaction records one stock movement.
type Transaction struct {
	ID        string `json:"id"`
	ItemID    string `json:"medicineId"`
	Event     string `json:"event"`
	Quantity  int    `json:"quantity"`
	Timestamp int64  `json:"timestamp"`
}

// Reorder request statuses.
const (
	ReorderPending   = "pending"
	ReorderSent      = "sent"
	ReorderCompleted = "completed"
	ReorderCancelled = "cancelled"
)

// ReorderRequest is a restock action for one item.
type ReorderRequest struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"medicineId"`
	Quantity  int       `json:"quantity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Outbreak is an active disease outbreak report.
type Outbreak struct {
	Disease    string    `json:"disease"`
	Country    string    `json:"country"`
	Severity   string    `json:"severity"`
	Cases      int       `json:"cases"`
	Status     string    `json:"status"`
	ReportedAt time.Time `json:"reportedAt"`
}

// ReadingStore persists current readings and their update history.
type ReadingStore interface {
	// UpsertReading updates the stored reading with the same identity in
	// place, or inserts it. The stored reading (with its ID) is returned.
	UpsertReading(ctx context.Context, r Reading) (Reading, error)
	// AppendUpdate appends an update record to the history.
	AppendUpdate(ctx context.Context, u UpdateRecord) error
	// ListReadings returns current readings ordered by key, optionally
	// restricted to one entity.
	ListReadings(ctx context.Context, entity string) ([]Reading, error)
	// ListUpdates returns the most recent update records, newest first.
	ListUpdates(ctx context.Context, limit int) ([]UpdateRecord, error)
	Ping(ctx context.Context) error
}

// InventoryStore persists items, stock movements and reorder requests.
type InventoryStore interface {
	CreateItem(ctx context.Context, item Item) (Item, error)
	GetItem(ctx context.Context, id string) (Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	// ApplyStockChange adds delta to the item's stock and records tx in one
	// step. It fails with a NotValid error, leaving the item untouched, when
	// the resulting stock would be negative.
	ApplyStockChange(ctx context.Context, id string, delta int, tx Transaction) (Item, error)
	ListTransactions(ctx context.Context, itemID string, limit int) ([]Transaction, error)
	CreateReorder(ctx context.Context, req ReorderRequest) (ReorderRequest, error)
	// PendingReorder returns the pending request for an item, if any.
	PendingReorder(ctx context.Context, itemID string) (ReorderRequest, bool, error)
	GetReorder(ctx context.Context, id string) (ReorderRequest, error)
	ListReorders(ctx context.Context) ([]ReorderRequest, error)
	UpdateReorderStatus(ctx context.Context, id, status string) (ReorderRequest, error)
	// CompleteReorder marks a pending or sent request completed and adds its
	// quantity to the item's stock, recording tx, in one step. Either both
	// happen or neither does. Completed and cancelled requests fail with
	// NotValid.
	CompleteReorder(ctx context.Context, id string, tx Transaction) (ReorderRequest, Item, error)
}

// Store is implemented by backends that hold both domains.
type Store interface {
	ReadingStore
	InventoryStore
}

// IsNotFound reports whether err means the referenced record is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, errors.NotFound)
}

// IsNotValid reports whether err is a rejected mutation.
func IsNotValid(err error) bool {
	return errors.Is(err, errors.NotValid)
}

func itemNotFound(id string) error {
	return errors.NotFoundf("medicine %q", id)
}

func reorderNotFound(id string) error {
	return errors.NotFoundf("reorder request %q", id)
}

func reorderClosed(id, status string) error {
	return errors.NotValidf("completing reorder request %q in status %s", id, status)
}

func insufficientStock(id string, stock, delta int) error {
	return errors.NotValidf("stock change %d for medicine %q with stock %d", delta, id, stock)
}
