package services

import (
	"context"
	"errors"
	"testing"
)

func TestSetSubscribers(t *testing.T) {
	db := newSvcDB(t)
	svc := &SubscriptionService{DB: db}
	ctx := context.Background()
	seedUser(t, db, "u1", "user")
	seedUser(t, db, "u2", "user")
	seedUser(t, db, "p2", "partner")

	if _, err := svc.SetSubscribers(ctx, partnerSess(), "b1", []string{"u1"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("partner save: %v", err)
	}

	// Ghost UIDs and non-end-user accounts are dropped, not rejected.
	kept, err := svc.SetSubscribers(ctx, adminSess(), "b1", []string{"u1", "ghost", "p2", " ", "u2"})
	if err != nil {
		t.Fatalf("SetSubscribers: %v", err)
	}
	if len(kept) != 2 || kept[0] != "u1" || kept[1] != "u2" {
		t.Fatalf("kept %v", kept)
	}

	// Saves are wholesale: the new set replaces the old one entirely.
	kept, err = svc.SetSubscribers(ctx, adminSess(), "b1", []string{"u2"})
	if err != nil || len(kept) != 1 || kept[0] != "u2" {
		t.Fatalf("overwrite: %v %v", kept, err)
	}
	got, err := svc.GetSubscribers(ctx, adminSess(), "b1")
	if err != nil || len(got) != 1 || got[0] != "u2" {
		t.Fatalf("stored set: %v %v", got, err)
	}

	// Empty set clears the audience.
	if _, err := svc.SetSubscribers(ctx, adminSess(), "b1", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ = svc.GetSubscribers(ctx, adminSess(), "b1")
	if len(got) != 0 {
		t.Fatalf("audience should be empty, got %v", got)
	}
}

func TestGetSubscribers_Scoping(t *testing.T) {
	db := newSvcDB(t)
	svc := &SubscriptionService{DB: db}
	ctx := context.Background()
	seedUser(t, db, "u1", "user")
	if _, err := svc.SetSubscribers(ctx, adminSess(), "b1", []string{"u1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// A partner reads only its own entry.
	got, err := svc.GetSubscribers(ctx, partnerSess(), "b1")
	if err != nil || len(got) != 1 {
		t.Fatalf("own entry: %v %v", got, err)
	}
	if _, err := svc.GetSubscribers(ctx, partnerSess(), "b2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign entry: %v", err)
	}
}
