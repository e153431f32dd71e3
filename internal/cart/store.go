// Package cart holds the in-memory cart aggregate for the current session.
// All mutation goes through one mutex-guarded path so observers never see a
// half-applied change, and every committed change is broadcast to
// subscribers (order badge, cart screen) via a non-blocking notification.
package cart

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Hian201/AniceHolidaySample/internal/domain"
	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
)

// Store is the observable cart aggregate.
type Store struct {
	mu      sync.RWMutex
	items   []domain.OrderItem
	subs    map[int]chan struct{}
	nextSub int
}

// NewStore creates an empty cart.
func NewStore() *Store {
	return &Store{
		subs: make(map[int]chan struct{}),
	}
}

// Subscribe returns a channel that receives a signal after every committed
// cart change, plus a cancel function. Signals are best-effort: a slow
// subscriber coalesces notifications rather than blocking the writer.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
	return ch, cancel
}

// notify must be called with the write lock held.
func (s *Store) notify() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Add puts a customized drink into the cart. If a line with the identical
// configuration (item, sweetness, temperature, topping) already exists, the
// addition is "more of the same": its quantity grows and the new line total
// is added onto its price. Otherwise a new line with a fresh client-local ID
// is appended. lineTotal must already be the full (unit+topping)*quantity
// price for the added quantity.
func (s *Store) Add(drink domain.Drink, sweetness, temperature, topping string, quantity, lineTotal int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newItem := domain.OrderItem{
		ID:          uuid.New().String(),
		Item:        drink.Item,
		Quantity:    quantity,
		Sweetness:   sweetness,
		Temperature: temperature,
		Topping:     topping,
		Price:       lineTotal,
	}

	for i := range s.items {
		if s.items[i].SameConfiguration(newItem) {
			s.items[i].Quantity += quantity
			s.items[i].Price += lineTotal
			s.notify()
			return
		}
	}

	s.items = append(s.items, newItem)
	s.notify()
}

// Update replaces the cart entry with the same item name. Returns
// ErrNotFound when no entry matches; the original client silently dropped
// such updates, which hid real bugs, so a miss is surfaced here.
func (s *Store) Update(item domain.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Item == item.Item {
			if item.ID == "" {
				item.ID = s.items[i].ID
			}
			s.items[i] = item
			s.notify()
			return nil
		}
	}
	return apperrors.NotFound("cart item", item.Item)
}

// Remove deletes every item the predicate matches and reports how many were
// removed.
func (s *Store) Remove(match func(domain.OrderItem) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	removed := 0
	for _, it := range s.items {
		if match(it) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	s.items = kept

	if removed > 0 {
		s.notify()
	}
	return removed
}

// RemoveAt deletes the items at the given positions (bulk "select and
// delete"). Out-of-range indices are ignored.
func (s *Store) RemoveAt(indices []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(indices) == 0 {
		return
	}

	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	removed := 0
	prev := -1
	for _, idx := range sorted {
		// A repeated index would otherwise delete the line that shifted
		// into the freed slot.
		if idx == prev {
			continue
		}
		prev = idx
		if idx < 0 || idx >= len(s.items) {
			continue
		}
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		removed++
	}

	if removed > 0 {
		s.notify()
	}
}

// Reorder moves the item at position from to position to. Pure display
// reordering, no business meaning.
func (s *Store) Reorder(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from < 0 || from >= len(s.items) || to < 0 || to >= len(s.items) {
		return apperrors.InvalidInput("reorder position out of range")
	}
	if from == to {
		return nil
	}

	item := s.items[from]
	s.items = append(s.items[:from], s.items[from+1:]...)
	s.items = append(s.items[:to], append([]domain.OrderItem{item}, s.items[to:]...)...)
	s.notify()
	return nil
}

// Clear empties the cart in full (checkout success path).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return
	}
	s.items = nil
	s.notify()
}

// Items returns a defensive snapshot of the current cart lines.
func (s *Store) Items() []domain.OrderItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]domain.OrderItem, len(s.items))
	copy(snapshot, s.items)
	return snapshot
}

// Len returns the number of distinct cart lines.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// TotalAmount sums the line prices. Prices are full line totals already, so
// no quantity multiplication happens here.
func (s *Store) TotalAmount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, it := range s.items {
		total += it.Price
	}
	return total
}

// TotalQuantity sums the quantities across all lines.
func (s *Store) TotalQuantity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, it := range s.items {
		total += it.Quantity
	}
	return total
}
