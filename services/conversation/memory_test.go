package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/gomes-camila/clinica-bot/models"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	session := models.NewSession("phone-1")
	session.PatientName = "Maria Silva"
	if err := store.Put(ctx, "phone-1", session); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "phone-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.PatientName != "Maria Silva" {
		t.Fatalf("unexpected session: %+v", got)
	}

	unseen, err := store.Get(ctx, "phone-2")
	if err != nil {
		t.Fatalf("get unseen: %v", err)
	}
	if unseen != nil {
		t.Fatalf("expected nil for unseen caller, got %+v", unseen)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	if err := store.Put(ctx, "phone-1", models.NewSession("phone-1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.PutButtons(ctx, "phone-1", models.ButtonMap{"1": "date_1"}); err != nil {
		t.Fatalf("put buttons: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	session, err := store.Get(ctx, "phone-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session != nil {
		t.Fatalf("expected expired session, got %+v", session)
	}

	buttons, err := store.Buttons(ctx, "phone-1")
	if err != nil {
		t.Fatalf("buttons: %v", err)
	}
	if buttons != nil {
		t.Fatalf("expected expired buttons, got %+v", buttons)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	store.Put(ctx, "phone-1", models.NewSession("phone-1"))
	store.PutButtons(ctx, "phone-1", models.ButtonMap{"1": "date_1"})

	if err := store.Delete(ctx, "phone-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	session, _ := store.Get(ctx, "phone-1")
	if session != nil {
		t.Fatalf("expected nil session after delete, got %+v", session)
	}
	buttons, _ := store.Buttons(ctx, "phone-1")
	if buttons != nil {
		t.Fatalf("expected nil buttons after delete, got %+v", buttons)
	}
}

func TestMemoryStoreClose(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	store.Close()
	// Close is idempotent and the store stays usable afterwards.
	store.Close()

	if err := store.Put(ctx, "phone-1", models.NewSession("phone-1")); err != nil {
		t.Fatalf("put after close: %v", err)
	}
	session, err := store.Get(ctx, "phone-1")
	if err != nil {
		t.Fatalf("get after close: %v", err)
	}
	if session == nil {
		t.Fatal("expected session after close, got nil")
	}
}
