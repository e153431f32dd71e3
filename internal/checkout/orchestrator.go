// Package checkout sequences the multi-request workflows that materialize a
// cart into a persisted order and mutate persisted orders afterwards. Each
// workflow is a short saga over the table backend: several independent
// network calls that must tolerate partial failure while keeping the
// in-memory mirrors consistent.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Hian201/AniceHolidaySample/internal/airtable"
	"github.com/Hian201/AniceHolidaySample/internal/cart"
	"github.com/Hian201/AniceHolidaySample/internal/domain"
	"github.com/Hian201/AniceHolidaySample/internal/history"
	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
)

// orderDateLayout matches the backend's ISO-8601 timestamps with fractional
// seconds, e.g. "2024-06-29T10:30:00.000Z".
const orderDateLayout = "2006-01-02T15:04:05.000Z07:00"

// Step status constants.
const (
	StepPending   = "pending"
	StepCompleted = "completed"
	StepFailed    = "failed"
)

// Step names for the checkout workflow.
const (
	StepCreateOrder = "create_order"
	StepUploadItems = "upload_items"
	StepLinkItems   = "link_items"
)

// Step tracks the execution status of a single workflow step.
type Step struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ExecutedAt time.Time `json:"executed_at,omitempty"`
}

func newStep(name string) Step {
	return Step{Name: name, Status: StepPending}
}

func (s *Step) complete() {
	s.Status = StepCompleted
	s.ExecutedAt = time.Now().UTC()
}

func (s *Step) fail(err error) {
	s.Status = StepFailed
	s.Error = err.Error()
	s.ExecutedAt = time.Now().UTC()
}

// Timeouts holds per-step timeout configuration. A zero value inherits the
// parent context's deadline. The original client had no explicit timeouts at
// all; here a hung backend call fails the step instead of stalling forever.
type Timeouts struct {
	CreateOrder time.Duration
	UploadItems time.Duration
	LinkItems   time.Duration
	EditItem    time.Duration
	DeleteOrder time.Duration
}

// Orchestrator drives the checkout, edit, and delete workflows.
type Orchestrator struct {
	client     *airtable.Client
	cart       *cart.Store
	mirror     *history.Mirror
	logger     *slog.Logger
	orderTable string
	itemsTable string
	batchSize  int
	timeouts   Timeouts
}

// NewOrchestrator creates an orchestrator over the given gateway, cart, and
// history mirror.
func NewOrchestrator(
	client *airtable.Client,
	cartStore *cart.Store,
	mirror *history.Mirror,
	logger *slog.Logger,
	orderTable, itemsTable string,
	timeouts Timeouts,
) *Orchestrator {
	return &Orchestrator{
		client:     client,
		cart:       cartStore,
		mirror:     mirror,
		logger:     logger,
		orderTable: orderTable,
		itemsTable: itemsTable,
		batchSize:  airtable.BatchLimit,
		timeouts:   timeouts,
	}
}

// SubmitInput holds the checkout form fields.
type SubmitInput struct {
	CustomerName string `json:"customer_name" validate:"required,min=1,max=100"`
	PhoneNumber  string `json:"phone_number" validate:"max=30"`
	Address      string `json:"address" validate:"max=500"`
	Note         string `json:"note" validate:"max=1000"`
}

// SubmitResult reports what the checkout workflow accomplished. A partial
// result (some item batches failed) is distinct from total failure: the
// order exists server-side and the cart was cleared, but LinkedItemIDs is
// shorter than the cart was.
type SubmitResult struct {
	OrderID       string   `json:"order_id"`
	OrderDate     string   `json:"order_date"`
	TotalAmount   int      `json:"total_amount"`
	LinkedItemIDs []string `json:"linked_item_ids"`
	ItemsUploaded int      `json:"items_uploaded"`
	ItemsFailed   int      `json:"items_failed"`
	Partial       bool     `json:"partial"`
	BatchErrors   []string `json:"batch_errors,omitempty"`
	Steps         []Step   `json:"steps"`
}

// stepCtx derives a per-step timeout context when one is configured.
func stepCtx(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return ctx, func() {}
}

// Submit materializes the current cart into a persisted order:
//
//  1. create the order with a placeholder empty link list and the cart total
//  2. upload the cart items in concurrent batches of at most 10
//  3. patch the order's link list with every successfully created item ID
//  4. clear the cart and refresh the history mirror
//
// A failed item batch contributes no IDs but does not fail the order; the
// result reports the shortfall. A failure at step 1 leaves the cart
// untouched for retry. A failure at step 3 leaves the order and items
// persisted but unlinked; no compensating rollback exists, so the caller
// gets the step trail alongside the error.
func (o *Orchestrator) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, apperrors.InvalidInput("customer name is required")
	}

	items := o.cart.Items()
	if len(items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	total := 0
	for _, it := range items {
		total += it.Price
	}

	// One timestamp for the whole batch: every item in this checkout shares
	// the order's creation moment.
	orderDate := time.Now().UTC().Format(orderDateLayout)

	result := &SubmitResult{
		OrderDate:   orderDate,
		TotalAmount: total,
		Steps: []Step{
			newStep(StepCreateOrder),
			newStep(StepUploadItems),
			newStep(StepLinkItems),
		},
	}

	// Step 1: create the order with an explicitly empty link list.
	orderID, err := o.createOrder(ctx, input, total, orderDate)
	if err != nil {
		result.Steps[0].fail(err)
		return result, apperrors.Wrap(err, "create order")
	}
	result.Steps[0].complete()
	result.OrderID = orderID

	// Step 2: fan out the item batches, join when all have settled.
	itemIDs, batchErrs := o.uploadItems(ctx, orderID, input.CustomerName, orderDate, items)
	result.LinkedItemIDs = itemIDs
	result.ItemsUploaded = len(itemIDs)
	result.ItemsFailed = len(items) - len(itemIDs)
	for _, berr := range batchErrs {
		result.BatchErrors = append(result.BatchErrors, berr.Error())
	}
	result.Partial = len(batchErrs) > 0
	result.Steps[1].complete()

	if result.Partial {
		o.logger.WarnContext(ctx, "checkout proceeding after partial batch failure",
			slog.String("order_id", orderID),
			slog.Int("items_uploaded", result.ItemsUploaded),
			slog.Int("items_failed", result.ItemsFailed),
		)
	}

	// Step 3: link whatever IDs the batches produced back onto the order.
	if err := o.linkItems(ctx, orderID, itemIDs); err != nil {
		result.Steps[2].fail(err)
		// The order and its items stay persisted but unlinked. Known gap:
		// there is no rollback, so surface it rather than hide it.
		o.logger.ErrorContext(ctx, "order left unlinked after link failure",
			slog.String("order_id", orderID),
			slog.Int("item_count", len(itemIDs)),
			slog.String("error", err.Error()),
		)
		return result, apperrors.Wrap(err, "link order items")
	}
	result.Steps[2].complete()

	// Completed: drop the cart and let observers re-render.
	o.cart.Clear()

	if err := o.mirror.Refresh(ctx); err != nil {
		// Best effort; the next explicit refresh reconciles.
		o.logger.WarnContext(ctx, "history refresh after checkout failed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	o.logger.InfoContext(ctx, "checkout completed",
		slog.String("order_id", orderID),
		slog.String("customer_name", input.CustomerName),
		slog.Int("total_amount", total),
		slog.Int("items_uploaded", result.ItemsUploaded),
		slog.Int("items_failed", result.ItemsFailed),
	)

	return result, nil
}

// createOrder persists the order shell and returns the server-assigned ID.
func (o *Orchestrator) createOrder(ctx context.Context, input SubmitInput, total int, orderDate string) (string, error) {
	ctx, cancel := stepCtx(ctx, o.timeouts.CreateOrder)
	defer cancel()

	order := domain.CustomerOrder{
		CustomerName: input.CustomerName,
		PhoneNumber:  input.PhoneNumber,
		Address:      input.Address,
		Note:         input.Note,
		TotalAmount:  total,
		OrderDate:    orderDate,
		OrderItems:   []string{},
	}

	created, err := airtable.Create(ctx, o.client, o.orderTable, []domain.CustomerOrder{order})
	if err != nil {
		return "", err
	}
	if len(created) == 0 {
		return "", apperrors.Internal(errors.New("backend returned no created order record"))
	}
	return created[0].ID, nil
}

// uploadItems partitions the cart into batches of at most batchSize and
// uploads them concurrently, joining once every batch has settled. Item IDs
// are concatenated in batch order. A failed batch contributes no IDs; its
// error is collected, not propagated.
func (o *Orchestrator) uploadItems(ctx context.Context, orderID, customerName, orderDate string, items []domain.OrderItem) ([]string, []error) {
	ctx, cancel := stepCtx(ctx, o.timeouts.UploadItems)
	defer cancel()

	batches := partition(items, o.batchSize)

	idsByBatch := make([][]string, len(batches))
	errsByBatch := make([]error, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []domain.OrderItem) {
			defer wg.Done()

			fields := make([]domain.OrderItem, len(batch))
			for j, it := range batch {
				it.OrderID = orderID
				it.CustomerName = customerName
				it.OrderDate = orderDate
				fields[j] = it
			}

			created, err := airtable.Create(ctx, o.client, o.itemsTable, fields)
			if err != nil {
				errsByBatch[i] = err
				return
			}

			ids := make([]string, 0, len(created))
			for _, rec := range created {
				if rec.ID != "" {
					ids = append(ids, rec.ID)
				}
			}
			idsByBatch[i] = ids
		}(i, batch)
	}
	wg.Wait()

	var itemIDs []string
	var batchErrs []error
	for i := range batches {
		if errsByBatch[i] != nil {
			batchErrs = append(batchErrs, errsByBatch[i])
			continue
		}
		itemIDs = append(itemIDs, idsByBatch[i]...)
	}
	return itemIDs, batchErrs
}

// linkItems patches the order's link list with the uploaded item IDs.
func (o *Orchestrator) linkItems(ctx context.Context, orderID string, itemIDs []string) error {
	ctx, cancel := stepCtx(ctx, o.timeouts.LinkItems)
	defer cancel()

	if itemIDs == nil {
		itemIDs = []string{}
	}
	patch := domain.OrderPatch{OrderItems: &itemIDs}

	_, err := airtable.Patch[domain.CustomerOrder](ctx, o.client, o.orderTable, orderID, patch)
	return err
}

// partition splits items into consecutive chunks of at most size.
func partition(items []domain.OrderItem, size int) [][]domain.OrderItem {
	if size <= 0 {
		size = airtable.BatchLimit
	}
	var batches [][]domain.OrderItem
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}
