package inventory

import (
	"sort"
	"time"

	"github.com/HatiCode/healthwatch/pkg/storage"
)

// Expiry statuses.
const (
	ExpiryExpired      = "expired"
	ExpiryExpiringSoon = "expiring_soon"
	ExpiryOK           = "ok"
)

// ExpiryWindow is how far ahead an item counts as expiring soon.
const ExpiryWindow = 30 * 24 * time.Hour

// ExpiringItem is an item with its expiry classification.
type ExpiringItem struct {
	storage.Item
	Status   string `json:"status"`
	DaysLeft int    `json:"daysLeft"`
}

// ExpiryStatus classifies an expiry date relative to now. daysLeft counts
// whole days and is 0 for expired items.
func ExpiryStatus(expiry, now time.Time) (status string, daysLeft int) {
	if expiry.Before(now) {
		return ExpiryExpired, 0
	}
	daysLeft = int(expiry.Sub(now) / (24 * time.Hour))
	if expiry.Sub(now) <= ExpiryWindow {
		return ExpiryExpiringSoon, daysLeft
	}
	return ExpiryOK, daysLeft
}

// FilterExpiring returns the items expiring within ExpiryWindow of now
// (already expired ones included), soonest first.
func FilterExpiring(items []storage.Item, now time.Time) []ExpiringItem {
	cutoff := now.Add(ExpiryWindow)
	out := make([]ExpiringItem, 0)
	for _, item := range items {
		if item.ExpiryDate.After(cutoff) {
			continue
		}
		status, days := ExpiryStatus(item.ExpiryDate, now)
		out = append(out, ExpiringItem{Item: item, Status: status, DaysLeft: days})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpiryDate.Before(out[j].ExpiryDate)
	})
	return out
}
