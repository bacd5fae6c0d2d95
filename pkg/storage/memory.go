package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"
)

// MemoryStore keeps everything in process memory. It is safe for concurrent
// use and is the default backend for single-instance deployments.
type MemoryStore struct {
	mu           sync.RWMutex
	readings     map[string]Reading
	updates      []UpdateRecord
	items        map[string]Item
	transactions []Transaction
	reorders     map[string]ReorderRequest
	reorderOrder []string

	clock clock.Clock
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock sets the clock that stamps created and updated times.
func WithClock(clk clock.Clock) MemoryOption {
	return func(m *MemoryStore) { m.clock = clk }
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		readings: make(map[string]Reading),
		items:    make(map[string]Item),
		reorders: make(map[string]ReorderRequest),
		clock:    clock.WallClock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) UpsertReading(ctx context.Context, r Reading) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.readings[r.Key()]; ok {
		r.ID = existing.ID
	} else if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.readings[r.Key()] = r
	return r, nil
}

func (m *MemoryStore) AppendUpdate(ctx context.Context, u UpdateRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	m.mu.Lock()
	m.updates = append(m.updates, u)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListReadings(ctx context.Context, entity string) ([]Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Reading, 0, len(m.readings))
	for _, r := range m.readings {
		if entity != "" && r.EntityKey != entity {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (m *MemoryStore) ListUpdates(ctx context.Context, limit int) ([]UpdateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.updates)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]UpdateRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.updates[i])
	}
	return out, nil
}

func (m *MemoryStore) CreateItem(ctx context.Context, item Item) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[item.ID]; ok {
		return Item{}, errors.AlreadyExistsf("medicine %q", item.ID)
	}
	now := m.clock.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	m.items[item.ID] = item
	return item, nil
}

func (m *MemoryStore) GetItem(ctx context.Context, id string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok {
		return Item{}, itemNotFound(id)
	}
	return item, nil
}

func (m *MemoryStore) ListItems(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) ApplyStockChange(ctx context.Context, id string, delta int, tx Transaction) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return Item{}, itemNotFound(id)
	}
	if item.Stock+delta < 0 {
		return Item{}, insufficientStock(id, item.Stock, delta)
	}
	item.Stock += delta
	item.UpdatedAt = m.clock.Now().UTC()
	m.items[id] = item

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.ItemID = id
	m.transactions = append(m.transactions, tx)
	return item, nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, itemID string, limit int) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Transaction
	for i := len(m.transactions) - 1; i >= 0; i-- {
		tx := m.transactions[i]
		if tx.ItemID != itemID {
			continue
		}
		out = append(out, tx)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateReorder(ctx context.Context, req ReorderRequest) (ReorderRequest, error) {
	if err := ctx.Err(); err != nil {
		return ReorderRequest{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[req.ItemID]; !ok {
		return ReorderRequest{}, itemNotFound(req.ItemID)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := m.clock.Now().UTC()
	req.CreatedAt, req.UpdatedAt = now, now
	m.reorders[req.ID] = req
	m.reorderOrder = append(m.reorderOrder, req.ID)
	return req, nil
}

func (m *MemoryStore) PendingReorder(ctx context.Context, itemID string) (ReorderRequest, bool, error) {
	if err := ctx.Err(); err != nil {
		return ReorderRequest{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.reorderOrder {
		req := m.reorders[id]
		if req.ItemID == itemID && req.Status == ReorderPending {
			return req, true, nil
		}
	}
	return ReorderRequest{}, false, nil
}

func (m *MemoryStore) GetReorder(ctx context.Context, id string) (ReorderRequest, error) {
	if err := ctx.Err(); err != nil {
		return ReorderRequest{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.reorders[id]
	if !ok {
		return ReorderRequest{}, reorderNotFound(id)
	}
	return req, nil
}

func (m *MemoryStore) ListReorders(ctx context.Context) ([]ReorderRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ReorderRequest, 0, len(m.reorderOrder))
	for i := len(m.reorderOrder) - 1; i >= 0; i-- {
		out = append(out, m.reorders[m.reorderOrder[i]])
	}
	return out, nil
}

func (m *MemoryStore) UpdateReorderStatus(ctx context.Context, id, status string) (ReorderRequest, error) {
	if err := ctx.Err(); err != nil {
		return ReorderRequest{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.reorders[id]
	if !ok {
		return ReorderRequest{}, reorderNotFound(id)
	}
	req.Status = status
	req.UpdatedAt = m.clock.Now().UTC()
	m.reorders[id] = req
	return req, nil
}

func (m *MemoryStore) CompleteReorder(ctx context.Context, id string, tx Transaction) (ReorderRequest, Item, error) {
	if err := ctx.Err(); err != nil {
		return ReorderRequest{}, Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.reorders[id]
	if !ok {
		return ReorderRequest{}, Item{}, reorderNotFound(id)
	}
	if req.Status == ReorderCompleted || req.Status == ReorderCancelled {
		return ReorderRequest{}, Item{}, reorderClosed(id, req.Status)
	}
	item, ok := m.items[req.ItemID]
	if !ok {
		return ReorderRequest{}, Item{}, itemNotFound(req.ItemID)
	}

	now := m.clock.Now().UTC()
	item.Stock += req.Quantity
	item.UpdatedAt = now
	m.items[item.ID] = item

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.ItemID = item.ID
	tx.Event = EventAdded
	tx.Quantity = req.Quantity
	m.transactions = append(m.transactions, tx)

	req.Status = ReorderCompleted
	req.UpdatedAt = now
	m.reorders[id] = req
	return req, item, nil
}
