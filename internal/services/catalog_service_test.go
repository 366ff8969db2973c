package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/repo"
)

func seedSub(t *testing.T, db *gorm.DB, mutate func(*domain.Submission)) *domain.Submission {
	t.Helper()
	sub := &domain.Submission{
		ID:           uuid.NewString(),
		ModelKey:     "widget_000123",
		BusinessID:   "b1",
		BusinessName: "Acme",
		UploaderUID:  "p1",
		UploaderRole: "partner",
		FileName:     "widget.glb",
		DisplayName:  "Widget",
		Question:     "Keen on this one?",
		PicPath:      "widget",
		StoragePath:  "partner_uploads/b1/x/widget.glb",
		TargetMode:   domain.TargetAllUsers,
		Status:       domain.StatusApproved,
		CreatedAt:    time.Now().UTC().UnixMilli(),
	}
	if mutate != nil {
		mutate(sub)
	}
	if err := repo.CreateSubmission(context.Background(), db, sub); err != nil {
		t.Fatalf("seed submission: %v", err)
	}
	return sub
}

func TestPublish_FirstPublish(t *testing.T) {
	db := newSvcDB(t)
	svc := &CatalogService{DB: db}
	ctx := context.Background()

	sub := seedSub(t, db, nil)
	key, err := svc.Publish(ctx, sub)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if key != "widget_000123" {
		t.Fatalf("key %q", key)
	}

	m, err := svc.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Name != "Widget" || m.PicPath != "widget" || m.Question != "Keen on this one?" {
		t.Fatalf("display fields wrong: %+v", m)
	}
	if m.StoragePath != sub.StoragePath {
		t.Fatalf("storage path %q", m.StoragePath)
	}
	if m.Data.Sent != 0 || m.Data.Saved != 0 || m.Data.Yes != 0 || m.Data.Rating != "0.0" {
		t.Fatalf("fresh counters wrong: %+v", m.Data)
	}
}

func TestPublish_DisplayFallbacks(t *testing.T) {
	db := newSvcDB(t)
	svc := &CatalogService{DB: db}
	ctx := context.Background()

	sub := seedSub(t, db, func(s *domain.Submission) {
		s.DisplayName = ""
		s.Question = ""
		s.PicPath = ""
	})
	key, err := svc.Publish(ctx, sub)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	m, _ := svc.Get(ctx, key)
	if m.Name != "widget" {
		t.Fatalf("name should fall back to base file name, got %q", m.Name)
	}
	if m.Question != DefaultQuestion {
		t.Fatalf("question should fall back to default, got %q", m.Question)
	}
	if m.PicPath != key {
		t.Fatalf("pic path should fall back to key, got %q", m.PicPath)
	}
}

func TestPublish_PreservesCounters(t *testing.T) {
	db := newSvcDB(t)
	svc := &CatalogService{DB: db}
	ctx := context.Background()

	sub := seedSub(t, db, nil)
	key, err := svc.Publish(ctx, sub)
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}

	// Engagement accumulated in the consumer app between publishes.
	err = db.Model(&domain.Model{}).Where("model_key = ?", key).Updates(map[string]any{
		"data_sent":   40,
		"data_yes":    25,
		"data_no":     5,
		"data_saved":  10,
		"data_rating": "4.2",
	}).Error
	if err != nil {
		t.Fatalf("bump counters: %v", err)
	}

	sub.DisplayName = "Widget v2"
	sub.StoragePath = "partner_uploads/b1/y/widget.glb"
	if _, err := svc.Publish(ctx, sub); err != nil {
		t.Fatalf("republish: %v", err)
	}

	m, _ := svc.Get(ctx, key)
	if m.Name != "Widget v2" || m.StoragePath != "partner_uploads/b1/y/widget.glb" {
		t.Fatalf("display fields should follow the submission: %+v", m)
	}
	if m.Data.Sent != 40 || m.Data.Yes != 25 || m.Data.No != 5 || m.Data.Saved != 10 || m.Data.Rating != "4.2" {
		t.Fatalf("republish must not reset counters: %+v", m.Data)
	}
}

func TestPublish_FallsBackToExistingDisplay(t *testing.T) {
	db := newSvcDB(t)
	svc := &CatalogService{DB: db}
	ctx := context.Background()

	sub := seedSub(t, db, nil)
	key, _ := svc.Publish(ctx, sub)

	sub.Question = ""
	sub.PicPath = ""
	if _, err := svc.Publish(ctx, sub); err != nil {
		t.Fatalf("republish: %v", err)
	}

	m, _ := svc.Get(ctx, key)
	if m.Question != "Keen on this one?" || m.PicPath != "widget" {
		t.Fatalf("blank submission fields should keep existing values: %+v", m)
	}
}

func TestPublish_BackfillsMissingKey(t *testing.T) {
	db := newSvcDB(t)
	svc := &CatalogService{DB: db}
	ctx := context.Background()

	sub := seedSub(t, db, func(s *domain.Submission) { s.ModelKey = "" })
	key, err := svc.Publish(ctx, sub)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if key == "" || sub.ModelKey != key {
		t.Fatalf("derived key not set on submission: %q vs %q", key, sub.ModelKey)
	}

	// The derived key is persisted, so a second publish reuses it.
	stored, err := repo.GetSubmission(ctx, db, sub.ID)
	if err != nil || stored.ModelKey != key {
		t.Fatalf("key not persisted: %v %q", err, stored.ModelKey)
	}
}

func TestCatalogGet_Missing(t *testing.T) {
	svc := &CatalogService{DB: newSvcDB(t)}
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}
