package checkout

import (
	"context"
	"log/slog"

	"github.com/Hian201/AniceHolidaySample/internal/airtable"
	"github.com/Hian201/AniceHolidaySample/internal/domain"
	apperrors "github.com/Hian201/AniceHolidaySample/pkg/errors"
)

// EditResult reports the outcome of an item edit.
type EditResult struct {
	OrderID      string `json:"order_id"`
	ItemID       string `json:"item_id"`
	NewTotal     int    `json:"new_total"`
	Changed      bool   `json:"changed"`
	TotalPatched bool   `json:"total_patched"`
}

// EditItem rewrites a single persisted order item and propagates the change:
// the item record is patched with only the fields that differ, the local
// order entry is rewritten in place, and the order's total is patched to the
// recomputed value. A no-op diff returns early without any network call. A
// failed item patch aborts before any local mutation. A failed total patch
// is logged but not surfaced: the local recomputed total stays authoritative
// and the next history refresh reconciles the backend copy.
func (o *Orchestrator) EditItem(ctx context.Context, orderID, itemID string, prev, next domain.OrderItem) (*EditResult, error) {
	ctx, cancel := stepCtx(ctx, o.timeouts.EditItem)
	defer cancel()

	result := &EditResult{OrderID: orderID, ItemID: itemID}

	patch := domain.DiffOrderItems(prev, next)
	if patch.IsZero() {
		entry, ok := o.mirror.Entry(orderID)
		if !ok {
			return nil, apperrors.NotFound("order", orderID)
		}
		result.NewTotal = entry.Order.TotalAmount
		return result, nil
	}

	if _, err := airtable.Patch[domain.OrderItem](ctx, o.client, o.itemsTable, itemID, patch); err != nil {
		return nil, apperrors.Wrap(err, "patch order item")
	}
	result.Changed = true

	newTotal, err := o.mirror.ApplyItemPatch(orderID, prev.Item, next)
	if err != nil {
		// The item record is already updated; the local entry is stale until
		// the next refresh.
		o.logger.ErrorContext(ctx, "local order entry not updated after item patch",
			slog.String("order_id", orderID),
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Wrap(err, "apply item patch")
	}
	result.NewTotal = newTotal

	totalPatch := domain.OrderPatch{TotalAmount: &newTotal}
	if _, err := airtable.Patch[domain.CustomerOrder](ctx, o.client, o.orderTable, orderID, totalPatch); err != nil {
		o.logger.WarnContext(ctx, "order total not patched after item edit",
			slog.String("order_id", orderID),
			slog.Int("new_total", newTotal),
			slog.String("error", err.Error()),
		)
	} else {
		result.TotalPatched = true
	}

	o.logger.InfoContext(ctx, "order item edited",
		slog.String("order_id", orderID),
		slog.String("item_id", itemID),
		slog.Int("new_total", newTotal),
	)

	return result, nil
}
