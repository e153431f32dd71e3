package domain

import "fmt"

// OrderItem is one customized drink line, either still in the cart or already
// persisted under an order. The JSON encoding matches the backend
// "Order items" table fields: the record ID and parent order ID never travel
// in the fields object (the backend assigns the ID; the order link is written
// onto the order record instead).
//
// Price is always the fully-computed line total, (unit + topping) * quantity,
// never a unit price. Callers must not multiply it again.
type OrderItem struct {
	ID           string `json:"-"`
	OrderID      string `json:"-"`
	CustomerName string `json:"customerName,omitempty"`
	Item         string `json:"item"`
	Quantity     int    `json:"quantity"`
	Sweetness    string `json:"sweetness"`
	Temperature  string `json:"temperature"`
	Topping      string `json:"topping,omitempty"`
	Price        int    `json:"price"`
	OrderDate    string `json:"orderDate,omitempty"`
}

// SameConfiguration reports whether other is the same drink with the same
// customization. Cart additions with the same configuration merge into one
// line instead of creating duplicates.
func (i OrderItem) SameConfiguration(other OrderItem) bool {
	return i.Item == other.Item &&
		i.Sweetness == other.Sweetness &&
		i.Temperature == other.Temperature &&
		i.Topping == other.Topping
}

// CustomerOrder is a persisted order. JSON tags carry the backend Order
// table's exact external field names, including the five derived lookup
// arrays that denormalize the linked items. Index i across all five arrays
// describes the same item; the arrays must never be partially updated.
type CustomerOrder struct {
	ID           string   `json:"-"`
	CustomerName string   `json:"Customer Name"`
	PhoneNumber  string   `json:"Phone Number"`
	Address      string   `json:"Address"`
	TotalAmount  int      `json:"Total Amount"`
	Note         string   `json:"Note,omitempty"`
	OrderDate    string   `json:"Order Date"`
	// OrderItems never carries omitempty: a freshly created order uploads an
	// explicitly empty link list as a placeholder, to be patched after the
	// item batches settle.
	OrderItems []string `json:"Order Items"`

	ItemNames    []string `json:"item (from items),omitempty"`
	Quantities   []int    `json:"quantity (from items),omitempty"`
	Sweetnesses  []string `json:"sweetness (from items),omitempty"`
	Temperatures []string `json:"temperature (from items),omitempty"`
	Toppings     []string `json:"topping (from items),omitempty"`
	Prices       []int    `json:"price (from items),omitempty"`
}

// ItemArraysAligned reports whether the five denormalized arrays have equal
// length. Orders fetched before their items are linked may have no arrays at
// all, which also counts as aligned.
func (o *CustomerOrder) ItemArraysAligned() bool {
	n := len(o.ItemNames)
	return len(o.Quantities) == n &&
		len(o.Sweetnesses) == n &&
		len(o.Temperatures) == n &&
		len(o.Toppings) == n &&
		len(o.Prices) == n
}

// ItemIndex returns the position of the named item in the denormalized
// arrays, or -1 when absent.
func (o *CustomerOrder) ItemIndex(itemName string) int {
	for i, name := range o.ItemNames {
		if name == itemName {
			return i
		}
	}
	return -1
}

// SetItemAt overwrites position idx in all five arrays from the given item,
// keeping the arrays index-aligned. The item's topping defaults to
// ToppingNone when empty, matching the backend lookup behavior.
func (o *CustomerOrder) SetItemAt(idx int, item OrderItem) error {
	if !o.ItemArraysAligned() {
		return fmt.Errorf("order %s: denormalized item arrays are misaligned", o.ID)
	}
	if idx < 0 || idx >= len(o.ItemNames) {
		return fmt.Errorf("order %s: item index %d out of range [0,%d)", o.ID, idx, len(o.ItemNames))
	}

	topping := item.Topping
	if topping == "" {
		topping = ToppingNone
	}

	o.ItemNames[idx] = item.Item
	o.Quantities[idx] = item.Quantity
	o.Sweetnesses[idx] = item.Sweetness
	o.Temperatures[idx] = item.Temperature
	o.Toppings[idx] = topping
	o.Prices[idx] = item.Price
	return nil
}

// RecomputeTotal recalculates TotalAmount as the sum of the price array and
// returns the new total. Item prices are already full line totals.
func (o *CustomerOrder) RecomputeTotal() int {
	total := 0
	for _, p := range o.Prices {
		total += p
	}
	o.TotalAmount = total
	return total
}

// OrderItemPatch is a partial update for an "Order items" record. Only
// explicitly-set fields serialize; absent fields are left untouched
// server-side. Never pad absent fields with defaults.
type OrderItemPatch struct {
	Item        *string `json:"item,omitempty"`
	Quantity    *int    `json:"quantity,omitempty"`
	Sweetness   *string `json:"sweetness,omitempty"`
	Temperature *string `json:"temperature,omitempty"`
	Topping     *string `json:"topping,omitempty"`
	Price       *int    `json:"price,omitempty"`
}

// IsZero reports whether the patch carries no fields.
func (p OrderItemPatch) IsZero() bool {
	return p.Item == nil && p.Quantity == nil && p.Sweetness == nil &&
		p.Temperature == nil && p.Topping == nil && p.Price == nil
}

// DiffOrderItems builds the minimal patch that turns prev into next. Only
// fields that actually changed are present, so an unchanged field can never
// overwrite concurrent server state with a stale value.
func DiffOrderItems(prev, next OrderItem) OrderItemPatch {
	var patch OrderItemPatch
	if prev.Item != next.Item {
		patch.Item = &next.Item
	}
	if prev.Quantity != next.Quantity {
		patch.Quantity = &next.Quantity
	}
	if prev.Sweetness != next.Sweetness {
		patch.Sweetness = &next.Sweetness
	}
	if prev.Temperature != next.Temperature {
		patch.Temperature = &next.Temperature
	}
	if prev.Topping != next.Topping {
		patch.Topping = &next.Topping
	}
	if prev.Price != next.Price {
		patch.Price = &next.Price
	}
	return patch
}

// OrderPatch is a partial update for an Order record.
type OrderPatch struct {
	OrderItems  *[]string `json:"Order Items,omitempty"`
	TotalAmount *int      `json:"Total Amount,omitempty"`
}
