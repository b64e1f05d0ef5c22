package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pantryplanner/catalog/storage"
	"pantryplanner/planner"
)

type pantryItem struct {
	Name       string `json:"name"`
	Category   string `json:"category,omitempty"`
	ExpiryDate string `json:"expiry_date,omitempty"`
	ExpiryAlt  string `json:"expiryDate,omitempty"`
	DaysLeft   *int   `json:"days_left,omitempty"`
}

type pantryDoc struct {
	Items       []pantryItem `json:"items"`
	Ingredients []pantryItem `json:"ingredients"`
}

// LoadPantry reads a pantry snapshot. The document is either a bare array of items or an
// object with an "items" (or "ingredients") array. An item expires at expiry_date
// (RFC 3339 or YYYY-MM-DD) or days_left days after now; items whose expiry cannot be
// read are kept without one.
func LoadPantry(ctx context.Context, src storage.Source, now time.Time) ([]planner.PantryItem, error) {
	b, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("read pantry: %w", err)
	}

	var raw []pantryItem
	if trimmed := strings.TrimSpace(string(b)); strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("parse pantry: %w", err)
		}
	} else {
		var doc pantryDoc
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("parse pantry: %w", err)
		}
		raw = append(doc.Items, doc.Ingredients...)
	}

	items := make([]planner.PantryItem, 0, len(raw))
	for _, it := range raw {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			slog.Warn("CATALOG: Skipping pantry item without a name")
			continue
		}
		items = append(items, planner.PantryItem{
			Name:       name,
			Category:   planner.ParseCategory(it.Category),
			ExpiryDate: it.expiry(now),
		})
	}
	slog.Debug("CATALOG: Loaded pantry", "items", len(items))
	return items, nil
}

func (it pantryItem) expiry(now time.Time) *time.Time {
	s := it.ExpiryDate
	if s == "" {
		s = it.ExpiryAlt
	}
	if s != "" {
		if t, ok := parseDate(s, now.Location()); ok {
			return &t
		}
		slog.Warn("CATALOG: Unreadable expiry date, treating item as non-perishable", "item", it.Name, "expiry_date", s)
		return nil
	}
	if it.DaysLeft != nil {
		t := now.AddDate(0, 0, *it.DaysLeft)
		return &t
	}
	return nil
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}
