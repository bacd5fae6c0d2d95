package inventory

import (
	"math"

	"github.com/HatiCode/healthwatch/pkg/storage"
)

// ReorderPolicy decides when an item needs restocking and how much to order.
type ReorderPolicy struct {
	// PackSize rounds order quantities up to whole packs. Values <= 1 order
	// single units.
	PackSize int

	// MinQuantity and MaxQuantity bound a single order. MaxQuantity == 0
	// means "no upper bound". MinQuantity defaults to 1.
	MinQuantity int
	MaxQuantity int
}

// DefaultReorderPolicy orders exactly enough single units to reach MaxStock.
var DefaultReorderPolicy = ReorderPolicy{PackSize: 1, MinQuantity: 1}

// NeedsReorder reports whether stock is at or below the item's minimum.
func (p ReorderPolicy) NeedsReorder(item storage.Item) bool {
	return item.Stock <= item.MinStock
}

// Quantity returns the order size that brings the item back to MaxStock,
// rounded to whole packs and clamped to the policy bounds.
func (p ReorderPolicy) Quantity(item storage.Item) int {
	p = p.sanitize()

	need := item.MaxStock - item.Stock
	if need < 0 {
		need = 0
	}
	qty := int(math.Ceil(float64(need)/float64(p.PackSize))) * p.PackSize
	return clampBounds(qty, p.MinQuantity, p.MaxQuantity)
}

func (p ReorderPolicy) sanitize() ReorderPolicy {
	if p.PackSize < 1 {
		p.PackSize = 1
	}
	if p.MinQuantity < 1 {
		p.MinQuantity = 1
	}
	if p.MaxQuantity > 0 && p.MaxQuantity < p.MinQuantity {
		p.MaxQuantity = p.MinQuantity
	}
	return p
}

func clampBounds(x, lo, hi int) int {
	if hi > 0 && x > hi {
		return hi
	}
	if x < lo {
		return lo
	}
	return x
}
