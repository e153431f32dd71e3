// Package menu mirrors the backend Menu table in memory. Entries are
// immutable once fetched; the mirror only ever replaces its whole snapshot.
package menu

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Hian201/AniceHolidaySample/internal/airtable"
	"github.com/Hian201/AniceHolidaySample/internal/domain"
)

// Mirror is the in-memory copy of the drink menu.
type Mirror struct {
	client *airtable.Client
	table  string
	logger *slog.Logger

	mu     sync.RWMutex
	drinks []domain.Drink
}

// NewMirror creates an empty menu mirror reading from the given table.
func NewMirror(client *airtable.Client, table string, logger *slog.Logger) *Mirror {
	return &Mirror{
		client: client,
		table:  table,
		logger: logger,
	}
}

// Refresh replaces the mirror contents from the backend.
func (m *Mirror) Refresh(ctx context.Context) error {
	records, err := airtable.List[domain.Drink](ctx, m.client, m.table, "")
	if err != nil {
		return err
	}

	drinks := make([]domain.Drink, len(records))
	for i, rec := range records {
		drinks[i] = rec.Fields
		drinks[i].ID = rec.ID
	}

	m.mu.Lock()
	m.drinks = drinks
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "menu refreshed", slog.Int("drinks", len(drinks)))
	return nil
}

// Drinks returns a snapshot of all menu entries.
func (m *Mirror) Drinks() []domain.Drink {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make([]domain.Drink, len(m.drinks))
	copy(snapshot, m.drinks)
	return snapshot
}

// Drink resolves a menu entry by item name.
func (m *Mirror) Drink(itemName string) (domain.Drink, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.drinks {
		if d.Item == itemName {
			return d, true
		}
	}
	return domain.Drink{}, false
}

// Grouped returns the menu grouped by category in the shop's fixed display
// order. Categories with no drinks are skipped.
func (m *Mirror) Grouped() []domain.CategoryGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byCategory := make(map[string][]domain.Drink)
	for _, d := range m.drinks {
		byCategory[d.Categories] = append(byCategory[d.Categories], d)
	}

	groups := make([]domain.CategoryGroup, 0, len(domain.MenuCategories))
	for _, category := range domain.MenuCategories {
		drinks, ok := byCategory[category]
		if !ok {
			continue
		}
		groups = append(groups, domain.CategoryGroup{Category: category, Drinks: drinks})
	}
	return groups
}
