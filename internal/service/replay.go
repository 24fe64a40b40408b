package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/queue"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/syncengine"
)

// RegisterReplayers wires the queued-mutation kinds into the sync engine.
// Replays write straight to the remote store with no optimistic cache echo;
// the next list refresh replaces the temp_ rows with the real ones.
func (d *Data) RegisterReplayers(engine *syncengine.Engine) {
	engine.Register(queue.KindClient, d.replayClient)
	engine.Register(queue.KindProduct, d.replayProduct)
	engine.Register(queue.KindOrder, d.replayOrder)
}

func (d *Data) replayClient(ctx context.Context, item queue.Item) error {
	_, err := d.store.Insert(ctx, remote.CollectionClients, item.Payload)
	return err
}

func (d *Data) replayProduct(ctx context.Context, item queue.Item) error {
	_, err := d.store.Insert(ctx, remote.CollectionProducts, item.Payload)
	return err
}

// replayOrder re-runs the full online placement for a queued order bundle:
// code allocation, order insert, items, stock decrement. An order referencing
// a product that itself never synced fails validation here and is retried or
// retired by the engine like any other failure.
func (d *Data) replayOrder(ctx context.Context, item queue.Item) error {
	var payload orderPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return remote.ValidationError(fmt.Sprintf("malformed order payload: %v", err))
	}
	payload.Order.CompanyID = item.TenantID

	_, err := d.placeOrder(ctx, item.TenantID, payload.Order, payload.Items)
	return err
}
