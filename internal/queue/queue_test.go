package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/localstore"
)

func TestQueueFIFOOrder(t *testing.T) {
	ctx := context.Background()
	q := New(localstore.NewMemoryStore())

	first, err := q.Enqueue(ctx, KindClient, "tenant-1", json.RawMessage(`{"name":"Ana"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	second, err := q.Enqueue(ctx, KindProduct, "tenant-1", json.RawMessage(`{"name":"Cadeira"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	items, err := q.Items(ctx)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != first.ID || items[1].ID != second.ID {
		t.Fatal("items out of insertion order")
	}
}

func TestCompactKeepsNewerTail(t *testing.T) {
	ctx := context.Background()
	q := New(localstore.NewMemoryStore())

	first, err := q.Enqueue(ctx, KindClient, "tenant-1", json.RawMessage(`{"name":"Ana"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	second, err := q.Enqueue(ctx, KindClient, "tenant-1", json.RawMessage(`{"name":"Beto"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// A drain pass snapshots [first, second] here; this append lands while
	// the pass is still replaying.
	late, err := q.Enqueue(ctx, KindProduct, "tenant-1", json.RawMessage(`{"name":"Mesa"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// The pass acknowledged first and bumped second's attempt count.
	survivor := second
	survivor.Attempts = 1
	remaining, err := q.Compact(ctx, []string{first.ID}, []Item{survivor})
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if remaining != 2 {
		t.Fatalf("expected 2 remaining, got %d", remaining)
	}

	items, err := q.Items(ctx)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 || items[0].ID != second.ID || items[1].ID != late.ID {
		t.Fatalf("compaction must keep the survivor and the late append in order, got %+v", items)
	}
	if items[0].Attempts != 1 {
		t.Fatalf("expected survivor attempt count 1, got %d", items[0].Attempts)
	}
}

func TestCompactEmptyLog(t *testing.T) {
	ctx := context.Background()
	q := New(localstore.NewMemoryStore())

	remaining, err := q.Compact(ctx, []string{"gone"}, nil)
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected empty log, got %d", remaining)
	}
}

func TestQueueRejectsUnknownKind(t *testing.T) {
	q := New(localstore.NewMemoryStore())

	if _, err := q.Enqueue(context.Background(), Kind("PAYMENT"), "tenant-1", nil); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestQueueSurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()

	q := New(store)
	if _, err := q.Enqueue(ctx, KindOrder, "tenant-1", json.RawMessage(`{"total":10}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	reopened := New(store)
	items, err := reopened.Items(ctx)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 || items[0].Kind != KindOrder {
		t.Fatalf("expected queued order to survive reload, got %+v", items)
	}
}

func TestQueueReplaceWholesale(t *testing.T) {
	ctx := context.Background()
	q := New(localstore.NewMemoryStore())

	if _, err := q.Enqueue(ctx, KindClient, "tenant-1", nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	kept, err := q.Enqueue(ctx, KindProduct, "tenant-1", nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	kept.Attempts = 2
	if err := q.Replace(ctx, []Item{kept}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	items, err := q.Items(ctx)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 || items[0].ID != kept.ID || items[0].Attempts != 2 {
		t.Fatalf("replace did not rewrite queue, got %+v", items)
	}
}

func TestQueueEmptyReplacePersists(t *testing.T) {
	ctx := context.Background()
	q := New(localstore.NewMemoryStore())

	if _, err := q.Enqueue(ctx, KindClient, "tenant-1", nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Replace(ctx, nil); err != nil {
		t.Fatalf("replace: %v", err)
	}

	n, err := q.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty queue, got %d items", n)
	}
}

func TestDeadLetterLifecycle(t *testing.T) {
	ctx := context.Background()
	q := New(localstore.NewMemoryStore())

	item, err := q.Enqueue(ctx, KindClient, "tenant-1", json.RawMessage(`{"name":""}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	item.Attempts = 5
	if err := q.Replace(ctx, nil); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := q.AddDeadLetter(ctx, item, "validation rejected"); err != nil {
		t.Fatalf("add dead letter: %v", err)
	}

	letters, err := q.DeadLetters(ctx)
	if err != nil {
		t.Fatalf("dead letters: %v", err)
	}
	if len(letters) != 1 || letters[0].Reason != "validation rejected" {
		t.Fatalf("unexpected dead letters %+v", letters)
	}

	if err := q.RequeueDeadLetter(ctx, item.ID); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	items, err := q.Items(ctx)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 || items[0].Attempts != 0 {
		t.Fatalf("requeue should reset attempts, got %+v", items)
	}
	letters, err = q.DeadLetters(ctx)
	if err != nil {
		t.Fatalf("dead letters: %v", err)
	}
	if len(letters) != 0 {
		t.Fatalf("expected empty dead letter list, got %+v", letters)
	}

	if err := q.AddDeadLetter(ctx, items[0], "too many attempts"); err != nil {
		t.Fatalf("add dead letter: %v", err)
	}
	if err := q.DropDeadLetter(ctx, item.ID); err != nil {
		t.Fatalf("drop: %v", err)
	}
	letters, err = q.DeadLetters(ctx)
	if err != nil {
		t.Fatalf("dead letters: %v", err)
	}
	if len(letters) != 0 {
		t.Fatalf("drop should remove the letter, got %+v", letters)
	}
}

func TestDeadLetterUnknownID(t *testing.T) {
	ctx := context.Background()
	q := New(localstore.NewMemoryStore())

	if err := q.RequeueDeadLetter(ctx, "missing"); err == nil {
		t.Fatal("expected error requeueing missing id")
	}
	if err := q.DropDeadLetter(ctx, "missing"); err == nil {
		t.Fatal("expected error dropping missing id")
	}
}
