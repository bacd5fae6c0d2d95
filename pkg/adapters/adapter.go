// Package adapters retrieves health indicator readings from external
// sources and normalizes them into storage.Reading values.
//
// Sources return raw rows in a DataFrame. The Builder turns rows into
// readings, and Fallback wraps a Source so that callers always receive a
// usable set: when the upstream is unreachable, slow or returns nothing
// usable, the Synthetic generator fills in.
package adapters

import (
	"context"

	"github.com/HatiCode/healthwatch/pkg/storage"
)

// Row is one raw observation. Sources normalize their payloads to the keys
// below so the Builder does not need to know where a row came from.
type Row map[string]any

// Row keys produced by sources.
const (
	FieldEntity   = "entity"
	FieldMetric   = "metric"
	FieldValue    = "value"
	FieldCategory = "category"
	FieldTime     = "ts"
)

// DataFrame is the tabular result of a single Collect call.
type DataFrame struct {
	Rows []Row
}

// Source fetches raw rows from an upstream system.
//
// Collect is synchronous and must respect context cancellation and
// deadlines. An empty entity means "all entities of the roster".
type Source interface {
	Collect(ctx context.Context, entity string) (*DataFrame, error)
	// Name returns a short identifier such as "gho".
	Name() string
}

// Reader yields the current readings for an entity (or all entities when
// entity is empty). Implementations never fail; they degrade to synthetic
// data instead.
type Reader interface {
	FetchReadings(ctx context.Context, entity string) []storage.Reading
}
