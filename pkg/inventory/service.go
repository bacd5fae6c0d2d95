// Package inventory applies stock mutations, keeps at most one pending reorder
// request per medicine and drives reorder requests through their statuses.
package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"github.com/HatiCode/healthwatch/pkg/events"
	"github.com/HatiCode/healthwatch/pkg/storage"
)

// DetailTransactions is the number of recent transactions returned with an
// item.
const DetailTransactions = 10

// Defaults applied to new items that leave thresholds unset.
const (
	DefaultMinStock = 10
	DefaultMaxStock = 100
)

// Publisher delivers events to subscribers. *events.Bus implements it.
type Publisher interface {
	Publish(topic string, payload any) int
}

// Observer is told about stock movements and created reorders.
type Observer interface {
	StockMutated(event string)
	ReorderCreated()
}

// Mutation is a requested stock movement.
type Mutation struct {
	Event    string `json:"event"`
	Quantity int    `json:"quantity"`
}

// MutationResult is the updated item together with the event that was
// published for it.
type MutationResult struct {
	storage.Item
	LastUpdate events.StockEvent       `json:"lastUpdate"`
	Reorder    *storage.ReorderRequest `json:"reorder,omitempty"`
}

// NewItem describes an item to create. ExpiryDate accepts a calendar date or
// an RFC3339 timestamp.
type NewItem struct {
	ID         string  `json:"medicineId"`
	Name       string  `json:"name"`
	Stock      int     `json:"stock"`
	MinStock   int     `json:"minStock"`
	MaxStock   int     `json:"maxStock"`
	Price      float64 `json:"price"`
	ExpiryDate string  `json:"expiryDate"`
}

// ItemDetail is an item with its most recent transactions.
type ItemDetail struct {
	storage.Item
	Transactions []storage.Transaction `json:"transactions"`
}

// Config wires a Service.
type Config struct {
	Store storage.InventoryStore
	Bus   Publisher
	// Policy defaults to DefaultReorderPolicy.
	Policy *ReorderPolicy
	// Clock defaults to the wall clock.
	Clock    clock.Clock
	Logger   *zerolog.Logger
	Observer Observer
}

// Service implements the inventory operations on top of an InventoryStore.
type Service struct {
	store    storage.InventoryStore
	bus      Publisher
	policy   ReorderPolicy
	clock    clock.Clock
	logger   *zerolog.Logger
	observer Observer

	// reorderMu serializes the check-then-create of pending reorders.
	reorderMu sync.Mutex
}

// NewService creates an inventory service. Store and Bus are required.
func NewService(cfg Config) *Service {
	policy := DefaultReorderPolicy
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "inventory").Logger()
	return &Service{
		store:    cfg.Store,
		bus:      cfg.Bus,
		policy:   policy,
		clock:    cfg.Clock,
		logger:   &l,
		observer: cfg.Observer,
	}
}

// ApplyMutation validates m, applies it to the item and records a
// transaction. On success the stock event is published and the reorder
// threshold is checked. Rejected mutations change nothing.
func (s *Service) ApplyMutation(ctx context.Context, id string, m Mutation) (MutationResult, error) {
	delta, err := m.delta()
	if err != nil {
		return MutationResult{}, err
	}
	return s.apply(ctx, id, m.Event, m.Quantity, delta)
}

func (m Mutation) delta() (int, error) {
	if m.Quantity <= 0 {
		return 0, errors.NotValidf("quantity %d", m.Quantity)
	}
	switch m.Event {
	case storage.EventSold:
		return -m.Quantity, nil
	case storage.EventAdded:
		return m.Quantity, nil
	case "":
		return 0, errors.NotValidf("missing event")
	default:
		return 0, errors.NotValidf("event %q", m.Event)
	}
}

func (s *Service) apply(ctx context.Context, id, event string, qty, delta int) (MutationResult, error) {
	now := s.clock.Now().UTC()
	item, err := s.store.ApplyStockChange(ctx, id, delta, storage.Transaction{
		Event:     event,
		Quantity:  qty,
		Timestamp: now.Unix(),
	})
	if err != nil {
		if storage.IsNotValid(err) {
			return MutationResult{}, errors.NewNotValid(err, "insufficient stock")
		}
		return MutationResult{}, err
	}
	return s.applied(ctx, item, event, qty, now), nil
}

// applied publishes the stock event for a committed change and runs the
// reorder check.
func (s *Service) applied(ctx context.Context, item storage.Item, event string, qty int, now time.Time) MutationResult {
	ev := events.StockEvent{
		ItemID:    item.ID,
		Name:      item.Name,
		Stock:     item.Stock,
		Event:     event,
		Quantity:  qty,
		Timestamp: now.Unix(),
	}
	s.bus.Publish(events.TopicStockUpdate, ev)
	if s.observer != nil {
		s.observer.StockMutated(event)
	}
	s.logger.Debug().
		Str("medicine", item.ID).
		Str("event", event).
		Int("quantity", qty).
		Int("stock", item.Stock).
		Msg("stock updated")

	return MutationResult{
		Item:       item,
		LastUpdate: ev,
		Reorder:    s.checkReorder(ctx, item),
	}
}

// checkReorder creates a pending reorder request when item is at or below its
// minimum and none is pending yet. Failures are logged; the mutation that
// triggered the check has already been applied.
func (s *Service) checkReorder(ctx context.Context, item storage.Item) *storage.ReorderRequest {
	if !s.policy.NeedsReorder(item) {
		return nil
	}

	s.reorderMu.Lock()
	defer s.reorderMu.Unlock()

	if _, ok, err := s.store.PendingReorder(ctx, item.ID); err != nil {
		s.logger.Error().Err(err).Str("medicine", item.ID).Msg("reorder check failed")
		return nil
	} else if ok {
		return nil
	}

	req, err := s.store.CreateReorder(ctx, storage.ReorderRequest{
		ItemID:   item.ID,
		Quantity: s.policy.Quantity(item),
		Status:   storage.ReorderPending,
	})
	switch {
	case errors.Is(err, errors.AlreadyExists):
		return nil
	case err != nil:
		s.logger.Error().Err(err).Str("medicine", item.ID).Msg("failed to create reorder request")
		return nil
	}

	if s.observer != nil {
		s.observer.ReorderCreated()
	}
	s.logger.Info().
		Str("medicine", item.ID).
		Int("stock", item.Stock).
		Int("min_stock", item.MinStock).
		Int("quantity", req.Quantity).
		Msg("reorder request created")
	return &req
}

// CreateItem stores a new item. A positive initial stock is booked as an
// "added" transaction and published like any other mutation.
func (s *Service) CreateItem(ctx context.Context, n NewItem) (MutationResult, error) {
	item, err := n.validate()
	if err != nil {
		return MutationResult{}, err
	}
	initial := item.Stock
	item.Stock = 0

	created, err := s.store.CreateItem(ctx, item)
	if err != nil {
		return MutationResult{}, fmt.Errorf("create medicine %s: %w", item.ID, err)
	}
	if initial == 0 {
		return MutationResult{Item: created, Reorder: s.checkReorder(ctx, created)}, nil
	}
	return s.apply(ctx, created.ID, storage.EventAdded, initial, initial)
}

func (n NewItem) validate() (storage.Item, error) {
	id := strings.TrimSpace(n.ID)
	name := strings.TrimSpace(n.Name)
	if id == "" {
		return storage.Item{}, errors.NotValidf("missing medicineId")
	}
	if name == "" {
		return storage.Item{}, errors.NotValidf("missing name")
	}
	if n.Stock < 0 {
		return storage.Item{}, errors.NotValidf("stock %d", n.Stock)
	}
	if n.MinStock == 0 {
		n.MinStock = DefaultMinStock
	}
	if n.MaxStock == 0 {
		n.MaxStock = DefaultMaxStock
	}
	if n.MinStock < 0 || n.MaxStock < n.MinStock {
		return storage.Item{}, errors.NotValidf("stock bounds %d..%d", n.MinStock, n.MaxStock)
	}
	var expiry time.Time
	if n.ExpiryDate != "" {
		t, err := parseDate(n.ExpiryDate)
		if err != nil {
			return storage.Item{}, errors.NewNotValid(err, "expiryDate")
		}
		expiry = t
	}
	return storage.Item{
		ID:         id,
		Name:       name,
		Stock:      n.Stock,
		MinStock:   n.MinStock,
		MaxStock:   n.MaxStock,
		Price:      n.Price,
		ExpiryDate: expiry,
	}, nil
}

// GetItem returns an item with its most recent transactions.
func (s *Service) GetItem(ctx context.Context, id string) (ItemDetail, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return ItemDetail{}, err
	}
	txs, err := s.store.ListTransactions(ctx, id, DetailTransactions)
	if err != nil {
		return ItemDetail{}, fmt.Errorf("list transactions for %s: %w", id, err)
	}
	if txs == nil {
		txs = []storage.Transaction{}
	}
	return ItemDetail{Item: item, Transactions: txs}, nil
}

// ListItems returns all items ordered by name.
func (s *Service) ListItems(ctx context.Context) ([]storage.Item, error) {
	return s.store.ListItems(ctx)
}

// Expiring returns the items expiring within ExpiryWindow, soonest first.
func (s *Service) Expiring(ctx context.Context) ([]ExpiringItem, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return FilterExpiring(items, s.clock.Now().UTC()), nil
}

// ListReorders returns reorder requests, newest first.
func (s *Service) ListReorders(ctx context.Context) ([]storage.ReorderRequest, error) {
	return s.store.ListReorders(ctx)
}

var validStatuses = map[string]bool{
	storage.ReorderPending:   true,
	storage.ReorderSent:      true,
	storage.ReorderCompleted: true,
	storage.ReorderCancelled: true,
}

func terminal(status string) bool {
	return status == storage.ReorderCompleted || status == storage.ReorderCancelled
}

// UpdateReorder moves a reorder request to status. Completed and cancelled
// requests are final. Entering completed books the requested quantity as
// added stock exactly once.
func (s *Service) UpdateReorder(ctx context.Context, id, status string) (storage.ReorderRequest, error) {
	if !validStatuses[status] {
		return storage.ReorderRequest{}, errors.NotValidf("status %q", status)
	}

	s.reorderMu.Lock()
	req, err := s.store.GetReorder(ctx, id)
	if err != nil {
		s.reorderMu.Unlock()
		return storage.ReorderRequest{}, err
	}
	if req.Status == status {
		s.reorderMu.Unlock()
		return req, nil
	}
	if terminal(req.Status) {
		s.reorderMu.Unlock()
		return storage.ReorderRequest{}, errors.NotValidf("transition from %s to %s", req.Status, status)
	}
	if status == storage.ReorderPending {
		s.reorderMu.Unlock()
		return storage.ReorderRequest{}, errors.NotValidf("transition from %s back to pending", req.Status)
	}
	if status != storage.ReorderCompleted {
		updated, err := s.store.UpdateReorderStatus(ctx, id, status)
		s.reorderMu.Unlock()
		if err != nil {
			return storage.ReorderRequest{}, fmt.Errorf("update reorder %s: %w", id, err)
		}
		s.logger.Info().Str("reorder", id).Str("medicine", req.ItemID).Str("status", status).Msg("reorder status changed")
		return updated, nil
	}

	now := s.clock.Now().UTC()
	updated, item, err := s.store.CompleteReorder(ctx, id, storage.Transaction{
		Event:     storage.EventAdded,
		Quantity:  req.Quantity,
		Timestamp: now.Unix(),
	})
	s.reorderMu.Unlock()
	if err != nil {
		return storage.ReorderRequest{}, fmt.Errorf("complete reorder %s: %w", id, err)
	}

	s.logger.Info().Str("reorder", id).Str("medicine", req.ItemID).Str("status", status).Msg("reorder status changed")
	s.applied(ctx, item, storage.EventAdded, updated.Quantity, now)
	return updated, nil
}

// Seed creates every item of the roster that does not exist yet and returns
// the number created. Seeded stock is not booked as transactions.
func (s *Service) Seed(ctx context.Context, items []storage.Item) (int, error) {
	created := 0
	for _, item := range items {
		if _, err := s.store.CreateItem(ctx, item); err != nil {
			if errors.Is(err, errors.AlreadyExists) {
				continue
			}
			return created, fmt.Errorf("seed medicine %s: %w", item.ID, err)
		}
		created++
	}
	s.logger.Info().Int("created", created).Int("roster", len(items)).Msg("medicines seeded")
	return created, nil
}
