// Package events carries change notifications from producers (the poll loop
// and the inventory service) to streaming sessions.
//
// A Bus is an explicit, injected instance. Delivery is synchronous and in
// registration order; handlers must not block.
package events

// Topics.
const (
	TopicHealthUpdate = "health-update"
	TopicStockUpdate  = "stock-update"
)

// TypeConnected is the envelope type of the first message of every session.
const TypeConnected = "connected"

// UpdateEvent announces a changed health indicator.
type UpdateEvent struct {
	Country   string  `json:"country"`
	Indicator string  `json:"indicator"`
	Value     float64 `json:"value"`
	Change    float64 `json:"change"`
	Timestamp int64   `json:"timestamp"`
}

// StockEvent announces a stock movement.
type StockEvent struct {
	ItemID    string `json:"medicine_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Event     string `json:"event"`
	Quantity  int    `json:"quantity"`
	Timestamp int64  `json:"timestamp"`
}

// Envelope is the wire frame written to clients.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Connected returns the session greeting envelope.
func Connected() Envelope {
	return Envelope{Type: TypeConnected}
}
