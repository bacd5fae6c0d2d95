package inventory

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/HatiCode/healthwatch/pkg/storage"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Medicines []seedItem `yaml:"medicines"`
}

type seedItem struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	Stock      int     `yaml:"stock"`
	MinStock   int     `yaml:"minStock"`
	MaxStock   int     `yaml:"maxStock"`
	Price      float64 `yaml:"price"`
	ExpiryDate string  `yaml:"expiryDate"`
}

// SeedItems parses a YAML roster of medicines.
func SeedItems(data []byte) ([]storage.Item, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed roster: %w", err)
	}
	items := make([]storage.Item, 0, len(f.Medicines))
	for _, m := range f.Medicines {
		expiry, err := parseDate(m.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", m.ID, err)
		}
		items = append(items, storage.Item{
			ID:         m.ID,
			Name:       m.Name,
			Stock:      m.Stock,
			MinStock:   m.MinStock,
			MaxStock:   m.MaxStock,
			Price:      m.Price,
			ExpiryDate: expiry,
		})
	}
	return items, nil
}

// DefaultSeed returns the built-in medicine roster.
func DefaultSeed() []storage.Item {
	items, err := SeedItems(seedYAML)
	if err != nil {
		panic(err)
	}
	return items
}

// parseDate accepts a calendar date or an RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}
