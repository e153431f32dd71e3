package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hian201/AniceHolidaySample/internal/airtable"
	"github.com/Hian201/AniceHolidaySample/internal/cart"
	"github.com/Hian201/AniceHolidaySample/internal/domain"
	"github.com/Hian201/AniceHolidaySample/internal/history"
	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
	"github.com/Hian201/AniceHolidaySample/pkg/httpclient"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backendStub fakes the table backend for checkout workflows. It assigns
// item IDs per create batch and records every request it serves.
type backendStub struct {
	t *testing.T

	mu           sync.Mutex
	nextItemID   int
	itemBatches  [][]string // item names per create batch, arrival order
	linkBodies   []map[string]any
	orderCreates int
	failItemName string // creates containing this item name return 500
}

func (b *backendStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/Order":
			b.handleCreateOrder(w, r)
		case r.Method == http.MethodPost && r.URL.Path == "/Order items":
			b.handleCreateItems(w, r)
		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/Order/"):
			b.handlePatchOrder(w, r)
		case r.Method == http.MethodGet && r.URL.Path == "/Order":
			_, _ = w.Write([]byte(`{"records":[]}`))
		default:
			b.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (b *backendStub) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Records []struct {
			Fields map[string]any `json:"fields"`
		} `json:"records"`
	}
	require.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))
	require.Len(b.t, body.Records, 1)

	fields := body.Records[0].Fields
	// The placeholder link list must be present and explicitly empty.
	links, ok := fields["Order Items"].([]any)
	assert.True(b.t, ok, "order create must carry an Order Items array")
	assert.Empty(b.t, links)

	b.mu.Lock()
	b.orderCreates++
	b.mu.Unlock()

	_, _ = fmt.Fprintf(w, `{"records":[{"id":"recOrder1","fields":{"Customer Name":%q}}]}`, fields["Customer Name"])
}

func (b *backendStub) handleCreateItems(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Records []struct {
			Fields domain.OrderItem `json:"fields"`
		} `json:"records"`
	}
	require.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))

	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, len(body.Records))
	for i, rec := range body.Records {
		names[i] = rec.Fields.Item
	}
	b.itemBatches = append(b.itemBatches, names)

	for _, name := range names {
		if b.failItemName != "" && name == b.failItemName {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"type":"SERVER_ERROR","message":"boom"}}`))
			return
		}
	}

	var sb strings.Builder
	sb.WriteString(`{"records":[`)
	for i, rec := range body.Records {
		if i > 0 {
			sb.WriteString(",")
		}
		b.nextItemID++
		fmt.Fprintf(&sb, `{"id":"item%d","fields":{"item":%q,"quantity":%d,"sweetness":"五分甜","temperature":"少冰","price":%d}}`,
			b.nextItemID, rec.Fields.Item, rec.Fields.Quantity, rec.Fields.Price)
	}
	sb.WriteString(`]}`)
	_, _ = w.Write([]byte(sb.String()))
}

func (b *backendStub) handlePatchOrder(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	require.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))

	b.mu.Lock()
	b.linkBodies = append(b.linkBodies, body)
	b.mu.Unlock()

	_, _ = w.Write([]byte(`{"id":"recOrder1","fields":{}}`))
}

func newTestOrchestrator(t *testing.T, serverURL string) (*Orchestrator, *cart.Store, *history.Mirror) {
	t.Helper()
	logger := newTestLogger()
	client := airtable.NewClient(httpclient.New(httpclient.DefaultConfig()), serverURL, "test-key", logger)
	store := cart.NewStore()
	mirror := history.NewMirror(client, "Order", "Order items", logger)
	o := NewOrchestrator(client, store, mirror, logger, "Order", "Order items", Timeouts{})
	return o, store, mirror
}

func fillCart(store *cart.Store, n int) {
	for i := 0; i < n; i++ {
		drink := domain.Drink{Item: fmt.Sprintf("飲料%d", i), Price: 50}
		store.Add(drink, "五分甜", "少冰", domain.ToppingNone, 1, 50)
	}
}

func TestSubmit(t *testing.T) {
	t.Run("full success with batched uploads", func(t *testing.T) {
		stub := &backendStub{t: t}
		server := httptest.NewServer(stub.handler())
		defer server.Close()

		o, store, _ := newTestOrchestrator(t, server.URL)
		fillCart(store, 25)

		result, err := o.Submit(context.Background(), SubmitInput{CustomerName: "林小姐"})
		require.NoError(t, err)

		assert.Equal(t, "recOrder1", result.OrderID)
		assert.Equal(t, 25*50, result.TotalAmount)
		assert.Equal(t, 25, result.ItemsUploaded)
		assert.Zero(t, result.ItemsFailed)
		assert.False(t, result.Partial)
		assert.Len(t, result.LinkedItemIDs, 25)

		for _, step := range result.Steps {
			assert.Equal(t, StepCompleted, step.Status, step.Name)
		}

		// 25 items split into 10/10/5.
		require.Len(t, stub.itemBatches, 3)
		sizes := []int{len(stub.itemBatches[0]), len(stub.itemBatches[1]), len(stub.itemBatches[2])}
		assert.ElementsMatch(t, []int{10, 10, 5}, sizes)

		// The link patch carries every created item ID.
		require.Len(t, stub.linkBodies, 1)
		links := stub.linkBodies[0]["fields"].(map[string]any)["Order Items"].([]any)
		assert.Len(t, links, 25)

		// The cart is gone once the workflow completes.
		assert.Equal(t, 0, store.Len())
	})

	t.Run("partial batch failure still links the rest", func(t *testing.T) {
		stub := &backendStub{t: t, failItemName: "飲料12"}
		server := httptest.NewServer(stub.handler())
		defer server.Close()

		o, store, _ := newTestOrchestrator(t, server.URL)
		fillCart(store, 25)

		result, err := o.Submit(context.Background(), SubmitInput{CustomerName: "林小姐"})
		require.NoError(t, err)

		// Item 12 sits in the second batch of ten.
		assert.True(t, result.Partial)
		assert.Equal(t, 15, result.ItemsUploaded)
		assert.Equal(t, 10, result.ItemsFailed)
		assert.Len(t, result.BatchErrors, 1)
		assert.Len(t, result.LinkedItemIDs, 15)

		require.Len(t, stub.linkBodies, 1)
		links := stub.linkBodies[0]["fields"].(map[string]any)["Order Items"].([]any)
		assert.Len(t, links, 15)

		// A partial checkout still completes and clears the cart.
		assert.Equal(t, 0, store.Len())
	})

	t.Run("empty cart", func(t *testing.T) {
		o, _, _ := newTestOrchestrator(t, "http://unreachable.invalid")

		_, err := o.Submit(context.Background(), SubmitInput{CustomerName: "林小姐"})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("blank customer name", func(t *testing.T) {
		o, store, _ := newTestOrchestrator(t, "http://unreachable.invalid")
		fillCart(store, 1)

		_, err := o.Submit(context.Background(), SubmitInput{CustomerName: "   "})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("order create failure leaves the cart for retry", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"type":"SERVER_ERROR","message":"down"}}`))
		}))
		defer server.Close()

		o, store, _ := newTestOrchestrator(t, server.URL)
		fillCart(store, 3)

		result, err := o.Submit(context.Background(), SubmitInput{CustomerName: "林小姐"})
		require.Error(t, err)
		require.NotNil(t, result)
		assert.Equal(t, StepFailed, result.Steps[0].Status)
		assert.Equal(t, StepPending, result.Steps[1].Status)

		assert.Equal(t, 3, store.Len())
	})
}

func TestPartition(t *testing.T) {
	items := make([]domain.OrderItem, 25)

	batches := partition(items, 10)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 10)
	assert.Len(t, batches[2], 5)

	t.Run("exact multiple", func(t *testing.T) {
		batches := partition(make([]domain.OrderItem, 20), 10)
		require.Len(t, batches, 2)
		assert.Len(t, batches[1], 10)
	})

	t.Run("fewer than one batch", func(t *testing.T) {
		batches := partition(make([]domain.OrderItem, 4), 10)
		require.Len(t, batches, 1)
		assert.Len(t, batches[0], 4)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, partition(nil, 10))
	})
}
