// Package history mirrors the persisted Order table in memory. The mirror is
// refreshed from the gateway and locally patched by the orchestrators after
// each mutation so the UI never needs a full re-fetch to stay current. All
// mutation commits through one mutex-guarded path; observers are notified
// after every committed change.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Hian201/AniceHolidaySample/internal/airtable"
	"github.com/Hian201/AniceHolidaySample/internal/domain"
	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
)

// Entry is one mirrored order: the persisted record plus display metadata.
type Entry struct {
	// ID is the server record ID.
	ID string `json:"id"`
	// DisplayIndex is a dense 0-based position, newest order first. It is
	// distinct from the server ID and reassigned on every refresh.
	DisplayIndex int `json:"display_index"`
	// OrderedAt is the parsed order timestamp; zero when unparseable, which
	// sorts the entry as oldest possible.
	OrderedAt time.Time `json:"ordered_at"`

	Order domain.CustomerOrder `json:"order"`
}

// DisplayLabel renders the entry's timestamp relative to now.
func (e Entry) DisplayLabel(now time.Time) string {
	return FormatOrderDate(e.OrderedAt, now)
}

// Mirror is the observable in-memory order history.
type Mirror struct {
	client     *airtable.Client
	orderTable string
	itemsTable string
	logger     *slog.Logger

	mu      sync.RWMutex
	entries []Entry
	subs    map[int]chan struct{}
	nextSub int
}

// NewMirror creates an empty history mirror over the given tables.
func NewMirror(client *airtable.Client, orderTable, itemsTable string, logger *slog.Logger) *Mirror {
	return &Mirror{
		client:     client,
		orderTable: orderTable,
		itemsTable: itemsTable,
		logger:     logger,
		subs:       make(map[int]chan struct{}),
	}
}

// Subscribe returns a channel signalled after every committed mirror change,
// plus a cancel function. Notifications coalesce rather than block.
func (m *Mirror) Subscribe() (<-chan struct{}, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan struct{}, 1)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
	return ch, cancel
}

// notify must be called with the write lock held.
func (m *Mirror) notify() {
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Refresh replaces the mirror from the backend: orders are sorted by parsed
// timestamp descending (unparseable timestamps sort oldest) and assigned
// dense display indexes.
func (m *Mirror) Refresh(ctx context.Context) error {
	records, err := airtable.List[domain.CustomerOrder](ctx, m.client, m.orderTable, "")
	if err != nil {
		return err
	}

	entries := make([]Entry, len(records))
	for i, rec := range records {
		order := rec.Fields
		order.ID = rec.ID

		orderedAt, parseErr := time.Parse(time.RFC3339, order.OrderDate)
		if parseErr != nil {
			// Zero time sorts as oldest possible.
			orderedAt = time.Time{}
			m.logger.WarnContext(ctx, "unparseable order date",
				slog.String("order_id", rec.ID),
				slog.String("order_date", order.OrderDate),
			)
		}

		entries[i] = Entry{ID: rec.ID, OrderedAt: orderedAt, Order: order}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].OrderedAt.After(entries[b].OrderedAt)
	})
	for i := range entries {
		entries[i].DisplayIndex = i
	}

	m.mu.Lock()
	m.entries = entries
	m.notify()
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "order history refreshed", slog.Int("orders", len(entries)))
	return nil
}

// Entries returns a snapshot of the mirrored orders, newest first.
func (m *Mirror) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make([]Entry, len(m.entries))
	copy(snapshot, m.entries)
	return snapshot
}

// Entry returns the mirrored order with the given server record ID.
func (m *Mirror) Entry(orderID string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.ID == orderID {
			return e, true
		}
	}
	return Entry{}, false
}

// LoadItems fetches the order's items from the backend by the {Order ID}
// filter field and rebuilds the order's five denormalized arrays from them.
// Returns the fetched items with their record IDs.
func (m *Mirror) LoadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	formula := fmt.Sprintf("{Order ID} = '%s'", orderID)
	records, err := airtable.List[domain.OrderItem](ctx, m.client, m.itemsTable, formula)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, len(records))
	for i, rec := range records {
		items[i] = rec.Fields
		items[i].ID = rec.ID
		items[i].OrderID = orderID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ID != orderID {
			continue
		}

		order := &m.entries[i].Order
		order.ItemNames = make([]string, len(items))
		order.Quantities = make([]int, len(items))
		order.Sweetnesses = make([]string, len(items))
		order.Temperatures = make([]string, len(items))
		order.Toppings = make([]string, len(items))
		order.Prices = make([]int, len(items))

		for j, it := range items {
			topping := it.Topping
			if topping == "" {
				topping = domain.ToppingNone
			}
			order.ItemNames[j] = it.Item
			order.Quantities[j] = it.Quantity
			order.Sweetnesses[j] = it.Sweetness
			order.Temperatures[j] = it.Temperature
			order.Toppings[j] = topping
			order.Prices[j] = it.Price
		}

		m.notify()
		return items, nil
	}

	return items, nil
}

// ApplyItemPatch overwrites the mirrored order's denormalized arrays at the
// position of prevItemName with the updated item, writing the same index in
// all five arrays, then recomputes the order total as the sum of the price
// array. Returns the recomputed total.
func (m *Mirror) ApplyItemPatch(orderID, prevItemName string, item domain.OrderItem) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ID != orderID {
			continue
		}

		order := &m.entries[i].Order
		idx := order.ItemIndex(prevItemName)
		if idx < 0 {
			return 0, apperrors.NotFound("order item", prevItemName)
		}
		if err := order.SetItemAt(idx, item); err != nil {
			return 0, err
		}

		total := order.RecomputeTotal()
		m.notify()
		return total, nil
	}

	return 0, apperrors.NotFound("order", orderID)
}

// Remove drops the order from the mirror and renumbers the remaining display
// indexes. Returns false when the order is not mirrored.
func (m *Mirror) Remove(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ID != orderID {
			continue
		}
		m.entries = append(m.entries[:i], m.entries[i+1:]...)
		for j := range m.entries {
			m.entries[j].DisplayIndex = j
		}
		m.notify()
		return true
	}
	return false
}
