package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hian201/AniceHolidaySample/internal/airtable"
	"github.com/Hian201/AniceHolidaySample/internal/domain"
	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
	"github.com/Hian201/AniceHolidaySample/pkg/httpclient"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMirror(serverURL string) *Mirror {
	client := airtable.NewClient(httpclient.New(httpclient.DefaultConfig()), serverURL, "test-key", newTestLogger())
	return NewMirror(client, "Order", "Order items", newTestLogger())
}

const ordersResponse = `{"records":[
	{"id":"recOld","fields":{"Customer Name":"王先生","Total Amount":80,"Order Date":"2024-06-01T09:00:00.000Z","Order Items":["itemA"]}},
	{"id":"recNew","fields":{"Customer Name":"林小姐","Total Amount":160,"Order Date":"2024-06-29T10:30:00.000Z","Order Items":["itemB","itemC"]}},
	{"id":"recBadDate","fields":{"Customer Name":"陳先生","Total Amount":55,"Order Date":"not a date","Order Items":[]}},
	{"id":"recMid","fields":{"Customer Name":"張小姐","Total Amount":120,"Order Date":"2024-06-15T18:00:00.000Z","Order Items":["itemD"]}}
]}`

func TestRefreshSortsNewestFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Order", r.URL.Path)
		_, _ = w.Write([]byte(ordersResponse))
	}))
	defer server.Close()

	m := newTestMirror(server.URL)
	require.NoError(t, m.Refresh(context.Background()))

	entries := m.Entries()
	require.Len(t, entries, 4)

	assert.Equal(t, "recNew", entries[0].ID)
	assert.Equal(t, "recMid", entries[1].ID)
	assert.Equal(t, "recOld", entries[2].ID)
	// The unparseable date sorts as oldest, not as an error.
	assert.Equal(t, "recBadDate", entries[3].ID)
	assert.True(t, entries[3].OrderedAt.IsZero())

	// Display indexes are dense and 0-based regardless of server IDs.
	for i, e := range entries {
		assert.Equal(t, i, e.DisplayIndex)
	}

	assert.Equal(t, "林小姐", entries[0].Order.CustomerName)
	assert.Equal(t, []string{"itemB", "itemC"}, entries[0].Order.OrderItems)
}

func TestEntryLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ordersResponse))
	}))
	defer server.Close()

	m := newTestMirror(server.URL)
	require.NoError(t, m.Refresh(context.Background()))

	e, ok := m.Entry("recMid")
	require.True(t, ok)
	assert.Equal(t, 120, e.Order.TotalAmount)

	_, ok = m.Entry("recUnknown")
	assert.False(t, ok)
}

func TestLoadItemsRebuildsArrays(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Order":
			_, _ = w.Write([]byte(ordersResponse))
		case "/Order items":
			assert.Equal(t, "{Order ID} = 'recNew'", r.URL.Query().Get("filterFormula"))
			_, _ = w.Write([]byte(`{"records":[
				{"id":"itemB","fields":{"item":"珍珠奶茶","quantity":2,"sweetness":"五分甜","temperature":"少冰","topping":"琥珀粉圓","price":130}},
				{"id":"itemC","fields":{"item":"四季春茶","quantity":1,"sweetness":"無糖","temperature":"去冰","price":30}}
			]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	m := newTestMirror(server.URL)
	require.NoError(t, m.Refresh(context.Background()))

	items, err := m.LoadItems(context.Background(), "recNew")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "itemB", items[0].ID)
	assert.Equal(t, "recNew", items[0].OrderID)

	e, ok := m.Entry("recNew")
	require.True(t, ok)
	order := e.Order
	assert.True(t, order.ItemArraysAligned())
	assert.Equal(t, []string{"珍珠奶茶", "四季春茶"}, order.ItemNames)
	assert.Equal(t, []int{2, 1}, order.Quantities)
	// Absent topping lands as the explicit no-topping value.
	assert.Equal(t, []string{"琥珀粉圓", domain.ToppingNone}, order.Toppings)
	assert.Equal(t, []int{130, 30}, order.Prices)
}

func TestApplyItemPatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Order":
			_, _ = w.Write([]byte(ordersResponse))
		default:
			_, _ = w.Write([]byte(`{"records":[
				{"id":"itemB","fields":{"item":"珍珠奶茶","quantity":2,"sweetness":"五分甜","temperature":"少冰","topping":"琥珀粉圓","price":130}},
				{"id":"itemC","fields":{"item":"四季春茶","quantity":1,"sweetness":"無糖","temperature":"去冰","price":30}}
			]}`))
		}
	}))
	defer server.Close()

	m := newTestMirror(server.URL)
	require.NoError(t, m.Refresh(context.Background()))
	_, err := m.LoadItems(context.Background(), "recNew")
	require.NoError(t, err)

	t.Run("rewrites one index and recomputes the total", func(t *testing.T) {
		newTotal, err := m.ApplyItemPatch("recNew", "四季春茶", domain.OrderItem{
			Item:        "四季春茶",
			Quantity:    3,
			Sweetness:   "一分甜",
			Temperature: "微冰",
			Price:       90,
		})
		require.NoError(t, err)
		assert.Equal(t, 220, newTotal)

		e, _ := m.Entry("recNew")
		assert.Equal(t, 220, e.Order.TotalAmount)
		assert.Equal(t, 3, e.Order.Quantities[1])
		assert.Equal(t, "一分甜", e.Order.Sweetnesses[1])
		// The neighbor index is untouched.
		assert.Equal(t, 130, e.Order.Prices[0])
		assert.True(t, e.Order.ItemArraysAligned())
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := m.ApplyItemPatch("recNew", "不存在", domain.OrderItem{})
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := m.ApplyItemPatch("recNope", "四季春茶", domain.OrderItem{})
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})
}

func TestRemoveRenumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ordersResponse))
	}))
	defer server.Close()

	m := newTestMirror(server.URL)
	require.NoError(t, m.Refresh(context.Background()))

	assert.True(t, m.Remove("recMid"))
	assert.False(t, m.Remove("recMid"))

	entries := m.Entries()
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, i, e.DisplayIndex)
	}
	_, ok := m.Entry("recMid")
	assert.False(t, ok)
}

func TestSubscribeNotifiedOnRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ordersResponse))
	}))
	defer server.Close()

	m := newTestMirror(server.URL)
	ch, cancel := m.Subscribe()
	defer cancel()

	require.NoError(t, m.Refresh(context.Background()))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a notification after refresh")
	}
}
