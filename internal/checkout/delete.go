package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Hian201/AniceHolidaySample/internal/airtable"
	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
)

// DeleteResult reports which legs of an order deletion succeeded.
type DeleteResult struct {
	OrderID      string `json:"order_id"`
	ItemsDeleted int    `json:"items_deleted"`
	OrderDeleted bool   `json:"order_deleted"`
	Removed      bool   `json:"removed"`
}

// DeleteOrder removes a persisted order and its linked item records. The two
// legs run concurrently and both are always attempted; the local entry is
// dropped only when both succeed, so a half-deleted order stays visible
// until a retry finishes the job.
func (o *Orchestrator) DeleteOrder(ctx context.Context, orderID string) (*DeleteResult, error) {
	ctx, cancel := stepCtx(ctx, o.timeouts.DeleteOrder)
	defer cancel()

	entry, ok := o.mirror.Entry(orderID)
	if !ok {
		return nil, apperrors.NotFound("order", orderID)
	}
	itemIDs := entry.Order.OrderItems

	result := &DeleteResult{OrderID: orderID}

	var (
		wg       sync.WaitGroup
		orderErr error
		itemsErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		orderErr = airtable.DeleteByID(ctx, o.client, o.orderTable, orderID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if len(itemIDs) == 0 {
			return
		}
		itemsErr = airtable.DeleteMany(ctx, o.client, o.itemsTable, itemIDs)
	}()

	wg.Wait()

	if orderErr == nil {
		result.OrderDeleted = true
	}
	if itemsErr == nil {
		result.ItemsDeleted = len(itemIDs)
	}

	if orderErr != nil || itemsErr != nil {
		o.logger.ErrorContext(ctx, "order deletion incomplete",
			slog.String("order_id", orderID),
			slog.Bool("order_deleted", orderErr == nil),
			slog.Bool("items_deleted", itemsErr == nil),
		)
		return result, apperrors.Wrap(errors.Join(orderErr, itemsErr), "delete order")
	}

	result.Removed = o.mirror.Remove(orderID)

	o.logger.InfoContext(ctx, "order deleted",
		slog.String("order_id", orderID),
		slog.Int("items_deleted", result.ItemsDeleted),
	)

	return result, nil
}
