package sessions

import (
	"context"
	"testing"
	"time"

	"curvot-backend/models"
)

func TestMemoryStoreLoadMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Load(context.Background(), "nope")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	sess := New()
	sess.Cart = []models.CartLineItem{{ProductID: "p1", Quantity: 2, ProductName: "Tee", ProductPrice: 9.99}}

	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(context.Background(), sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Cart) != 1 || loaded.Cart[0].ProductID != "p1" || loaded.Cart[0].Quantity != 2 {
		t.Errorf("unexpected cart after round trip: %+v", loaded.Cart)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set by Save")
	}
}

func TestMemoryStoreLoadReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	sess := New()
	sess.Cart = []models.CartLineItem{{ProductID: "p1", Quantity: 1}}
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	loaded, _ := store.Load(context.Background(), sess.ID)
	loaded.Cart[0].Quantity = 99

	again, _ := store.Load(context.Background(), sess.ID)
	if again.Cart[0].Quantity != 1 {
		t.Error("mutating a loaded session must not leak into the store without Save")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	store.ttl = 10 * time.Millisecond

	sess := New()
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)

	_, err := store.Load(context.Background(), sess.ID)
	if err != ErrNotFound {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	sess := New()
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(context.Background(), sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(context.Background(), sess.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
