package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultGHOURL is the public WHO Global Health Observatory OData API.
const DefaultGHOURL = "https://ghoapi.azureedge.net/api"

// DefaultEntities is the country roster tracked when none is configured.
var DefaultEntities = []string{"Indonesia", "Malaysia", "Singapore", "Thailand", "Philippines", "Vietnam"}

// countryCodes maps roster names to the ISO3 codes GHO uses in SpatialDim.
var countryCodes = map[string]string{
	"Indonesia":   "IDN",
	"Malaysia":    "MYS",
	"Singapore":   "SGP",
	"Thailand":    "THA",
	"Philippines": "PHL",
	"Vietnam":     "VNM",
	"India":       "IND",
	"China":       "CHN",
	"Japan":       "JPN",
	"South Korea": "KOR",
	"Australia":   "AUS",
	"New Zealand": "NZL",
}

const (
	ghoRowLimit   = 100
	ghoUserAgent  = "healthwatch/1.0"
	defaultMetric = "Health Indicator"
)

// GHOAdapter fetches indicator rows from the WHO GHO API. Endpoints are
// tried in order and the first one that yields at least one usable row wins.
//
// Rows are returned as:
//
//	{"entity": "Indonesia", "metric": "MORT_100", "value": 12.5, "category": "health", "ts": 2019}
type GHOAdapter struct {
	// BaseURL defaults to DefaultGHOURL.
	BaseURL string
	// Endpoints are paths under BaseURL; defaults to MORT_100 then COUNTRY.
	Endpoints []string
	// Entities is the roster to match rows against; defaults to DefaultEntities.
	Entities []string
	// Timeout bounds each endpoint request (defaults to 10s).
	Timeout time.Duration
	// HTTPClient is optional; if nil a default client with Timeout is used.
	HTTPClient *http.Client
}

func (g *GHOAdapter) Name() string { return "gho" }

// Collect implements Source.
func (g *GHOAdapter) Collect(ctx context.Context, entity string) (*DataFrame, error) {
	base := g.BaseURL
	if base == "" {
		base = DefaultGHOURL
	}
	endpoints := g.Endpoints
	if len(endpoints) == 0 {
		endpoints = []string{"MORT_100", "COUNTRY"}
	}
	roster := g.Entities
	if len(roster) == 0 {
		roster = DefaultEntities
	}
	if entity != "" {
		roster = []string{entity}
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cli := g.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: timeout}
	}

	var errs []error
	for _, ep := range endpoints {
		url := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ep, "/")
		resp, err := g.fetch(ctx, cli, url, timeout)
		if err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		rows := normalizeGHORows(resp.Value, roster, entity != "")
		if len(rows) == 0 {
			errs = append(errs, fmt.Errorf("gho %s: no usable rows", ep))
			continue
		}
		return &DataFrame{Rows: rows}, nil
	}
	return &DataFrame{}, fmt.Errorf("gho: all endpoints failed: %w", errors.Join(errs...))
}

type ghoResponse struct {
	Value []map[string]any `json:"value"`
}

func (g *GHOAdapter) fetch(ctx context.Context, cli *http.Client, url string, timeout time.Duration) (*ghoResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", ghoUserAgent)

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gho request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gho %s: status %d", url, resp.StatusCode)
	}

	var gr ghoResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("decode gho response: %w", err)
	}
	if len(gr.Value) == 0 {
		return nil, fmt.Errorf("gho %s: empty value array", url)
	}
	return &gr, nil
}

// normalizeGHORows maps the first ghoRowLimit records to canonical rows.
// Records outside the roster are kept under their own name unless strict
// is set. Non-positive values are dropped.
func normalizeGHORows(records []map[string]any, roster []string, strict bool) []Row {
	if len(records) > ghoRowLimit {
		records = records[:ghoRowLimit]
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		name := strings.TrimSpace(firstString(rec, "SpatialDim", "COUNTRY"))
		if name == "" {
			name = "Unknown"
		}
		matched, ok := matchEntity(name, roster)
		if !ok {
			if strict {
				continue
			}
			matched = name
		}

		value, ok := toFloat64(firstPresent(rec, "NumericValue", "VALUE", "Value"))
		if !ok || value <= 0 {
			continue
		}

		row := Row{
			FieldEntity:   matched,
			FieldMetric:   orDefault(firstString(rec, "Indicator", "INDICATOR", "IndicatorName", "IndicatorCode"), defaultMetric),
			FieldValue:    value,
			FieldCategory: orDefault(firstString(rec, "Dim1", "Category"), "health"),
		}
		if ts := firstPresent(rec, "TimeDim", "YEAR"); ts != nil {
			row[FieldTime] = ts
		}
		rows = append(rows, row)
	}
	return rows
}

// matchEntity matches a GHO country name or ISO3 code against the roster
// using case-insensitive containment in either direction.
func matchEntity(name string, roster []string) (string, bool) {
	lower := strings.ToLower(name)
	for _, c := range roster {
		if code, ok := countryCodes[c]; ok && strings.EqualFold(code, name) {
			return c, true
		}
		lc := strings.ToLower(c)
		if strings.Contains(lower, lc) || strings.Contains(lc, lower) {
			return c, true
		}
	}
	return "", false
}

func firstPresent(rec map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil && v != "" {
			return v
		}
	}
	return nil
}

func firstString(rec map[string]any, keys ...string) string {
	if s, ok := firstPresent(rec, keys...).(string); ok {
		return s
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
