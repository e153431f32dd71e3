package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
)

const deleteOrdersResponse = `{"records":[
	{"id":"recOrder1","fields":{"Customer Name":"林小姐","Total Amount":160,"Order Date":"2024-06-29T10:30:00.000Z","Order Items":["itemB","itemC"]}},
	{"id":"recOrder2","fields":{"Customer Name":"王先生","Total Amount":55,"Order Date":"2024-06-28T09:00:00.000Z","Order Items":[]}}
]}`

func TestDeleteOrder(t *testing.T) {
	t.Run("both legs succeed and the entry disappears", func(t *testing.T) {
		var mu sync.Mutex
		var deletedItemIDs []string
		orderDeleted := false

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/Order":
				_, _ = w.Write([]byte(deleteOrdersResponse))
			case r.Method == http.MethodDelete && r.URL.Path == "/Order/recOrder1":
				mu.Lock()
				orderDeleted = true
				mu.Unlock()
				_, _ = w.Write([]byte(`{}`))
			case r.Method == http.MethodDelete && r.URL.Path == "/Order items":
				mu.Lock()
				deletedItemIDs = append(deletedItemIDs, r.URL.Query()["records[]"]...)
				mu.Unlock()
				_, _ = w.Write([]byte(`{}`))
			default:
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
		}))
		defer server.Close()

		o, _, mirror := newTestOrchestrator(t, server.URL)
		require.NoError(t, mirror.Refresh(context.Background()))

		result, err := o.DeleteOrder(context.Background(), "recOrder1")
		require.NoError(t, err)

		assert.True(t, result.OrderDeleted)
		assert.True(t, result.Removed)
		assert.Equal(t, 2, result.ItemsDeleted)

		assert.True(t, orderDeleted)
		assert.ElementsMatch(t, []string{"itemB", "itemC"}, deletedItemIDs)

		_, ok := mirror.Entry("recOrder1")
		assert.False(t, ok)
		// The survivor is renumbered to the top.
		e, ok := mirror.Entry("recOrder2")
		require.True(t, ok)
		assert.Equal(t, 0, e.DisplayIndex)
	})

	t.Run("order with no linked items skips the items leg", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/Order":
				_, _ = w.Write([]byte(deleteOrdersResponse))
			case r.Method == http.MethodDelete && r.URL.Path == "/Order/recOrder2":
				_, _ = w.Write([]byte(`{}`))
			default:
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
		}))
		defer server.Close()

		o, _, mirror := newTestOrchestrator(t, server.URL)
		require.NoError(t, mirror.Refresh(context.Background()))

		result, err := o.DeleteOrder(context.Background(), "recOrder2")
		require.NoError(t, err)
		assert.True(t, result.Removed)
		assert.Zero(t, result.ItemsDeleted)
	})

	t.Run("failed leg keeps the entry mirrored", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/Order":
				_, _ = w.Write([]byte(deleteOrdersResponse))
			case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/Order/"):
				_, _ = w.Write([]byte(`{}`))
			case r.Method == http.MethodDelete && r.URL.Path == "/Order items":
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"type":"SERVER_ERROR","message":"down"}}`))
			}
		}))
		defer server.Close()

		o, _, mirror := newTestOrchestrator(t, server.URL)
		require.NoError(t, mirror.Refresh(context.Background()))

		result, err := o.DeleteOrder(context.Background(), "recOrder1")
		require.Error(t, err)
		require.NotNil(t, result)

		// The order leg went through; the items leg did not.
		assert.True(t, result.OrderDeleted)
		assert.Zero(t, result.ItemsDeleted)
		assert.False(t, result.Removed)

		// A half-deleted order stays visible for retry.
		_, ok := mirror.Entry("recOrder1")
		assert.True(t, ok)
	})

	t.Run("unknown order", func(t *testing.T) {
		o, _, _ := newTestOrchestrator(t, "http://unreachable.invalid")

		_, err := o.DeleteOrder(context.Background(), "recNope")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
