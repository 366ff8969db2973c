package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/identity"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/repo"
)

func newDistSvc(t *testing.T) (*DistributionService, *gorm.DB) {
	t.Helper()
	db := newSvcDB(t)
	subs := newUploadSvc(t, db)
	return &DistributionService{
		DB:          db,
		Submissions: subs,
		Catalog:     &CatalogService{DB: db},
	}, db
}

func seedModel(t *testing.T, db *gorm.DB, key string) {
	t.Helper()
	err := repo.CreateModel(context.Background(), db, &domain.Model{
		ModelKey:    key,
		Name:        key,
		PicPath:     key,
		Question:    DefaultQuestion,
		StoragePath: "partner_uploads/b1/x/" + key + ".glb",
		Data:        domain.ModelCounters{Rating: "0.0"},
	})
	if err != nil {
		t.Fatalf("seed model %s: %v", key, err)
	}
}

func TestDispatch_Idempotent(t *testing.T) {
	svc, db := newDistSvc(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "user")
	seedUser(t, db, "u2", "user")

	n, err := svc.Dispatch(ctx, "widget_000123", []string{"u1", "u2"})
	if err != nil || n != 2 {
		t.Fatalf("first dispatch: n=%d err=%v", n, err)
	}

	// Same pairs again: nothing new, no error.
	n, err = svc.Dispatch(ctx, "widget_000123", []string{"u1", "u2", "u3"})
	if err != nil || n != 1 {
		t.Fatalf("second dispatch should only add u3: n=%d err=%v", n, err)
	}

	total, err := repo.CountAssignmentsForModel(ctx, db, "widget_000123")
	if err != nil || total != 3 {
		t.Fatalf("assignment count: %d %v", total, err)
	}
}

func TestDispatch_NewAssignmentDefaults(t *testing.T) {
	svc, db := newDistSvc(t)
	ctx := context.Background()

	if _, err := svc.Dispatch(ctx, "widget_000123", []string{"u1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	a, err := repo.GetAssignment(ctx, db, "u1", "widget_000123")
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if a.Saved || a.Rating != "0.0" || a.Answer != domain.AnswerPending {
		t.Fatalf("user-owned fields must start at defaults: %+v", a)
	}
}

func TestDispatch_PartialFailureThenRetry(t *testing.T) {
	svc, db := newDistSvc(t)
	ctx := context.Background()
	targets := []string{"u1", "u2", "u3", "u4", "u5"}

	boom := errors.New("store unavailable")
	calls := 0
	svc.CreateAssignmentFn = func(ctx context.Context, db *gorm.DB, userID, modelKey string) (*domain.Assignment, error) {
		calls++
		if calls > 3 {
			return nil, boom
		}
		return repo.CreateAssignment(ctx, db, userID, modelKey)
	}

	n, err := svc.Dispatch(ctx, "widget_000123", targets)
	if n != 3 {
		t.Fatalf("expected 3 assignments before the failure, got %d", n)
	}
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "u4") {
		t.Fatalf("error should wrap the cause and name the user: %v", err)
	}

	// A retry over the same target set completes only the remainder.
	svc.CreateAssignmentFn = nil
	n, err = svc.Dispatch(ctx, "widget_000123", targets)
	if err != nil || n != 2 {
		t.Fatalf("retry: n=%d err=%v", n, err)
	}

	total, _ := repo.CountAssignmentsForModel(ctx, db, "widget_000123")
	if total != 5 {
		t.Fatalf("expected 5 assignments after retry, got %d", total)
	}
}

func TestResolveTargets(t *testing.T) {
	svc, db := newDistSvc(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "user")
	seedUser(t, db, "u2", "user")
	seedUser(t, db, "p1", "partner")
	seedUser(t, db, "admin1", "admin")

	specific := &domain.Submission{TargetMode: domain.TargetSpecificUsers}
	specific.SetTargetIDs([]string{"u1", "ghost", "u2"})
	got, err := svc.ResolveTargets(ctx, specific)
	if err != nil || len(got) != 2 || got[0] != "u1" || got[1] != "u2" {
		t.Fatalf("specific targets: %v %v", got, err)
	}

	all := &domain.Submission{TargetMode: domain.TargetAllUsers}
	got, err = svc.ResolveTargets(ctx, all)
	if err != nil || len(got) != 2 {
		t.Fatalf("all_users should exclude admin and partner accounts: %v %v", got, err)
	}
}

func TestResolveTargets_AllUsersFallback(t *testing.T) {
	svc, db := newDistSvc(t)
	ctx := context.Background()
	// Only staff accounts exist.
	seedUser(t, db, "p1", "partner")
	seedUser(t, db, "admin1", "admin")

	got, err := svc.ResolveTargets(ctx, &domain.Submission{TargetMode: domain.TargetAllUsers})
	if err != nil || len(got) != 2 {
		t.Fatalf("with no end-users the broadcast falls back to every account: %v %v", got, err)
	}
}

func TestApproveAndPush_EndToEnd(t *testing.T) {
	svc, db := newDistSvc(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "user")
	seedUser(t, db, "u2", "user")
	seedUser(t, db, "u3", "user")

	res0, err := svc.Submissions.CreateFromUpload(ctx, partnerSess(), validUpload())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	res, err := svc.ApproveAndPush(ctx, adminSess(), res0.Submission.ID, true)
	if err != nil {
		t.Fatalf("ApproveAndPush: %v", err)
	}
	if res.Assigned != 3 || res.Partial() {
		t.Fatalf("expected clean fan-out to 3 users: %+v", res)
	}
	if !strings.Contains(res.Summary, "Assigned to 3 users") {
		t.Fatalf("summary %q", res.Summary)
	}

	sub, _ := repo.GetSubmission(ctx, db, res0.Submission.ID)
	if sub.Status != domain.StatusApproved || !sub.PushedToApp || sub.PushedCount != 3 {
		t.Fatalf("push outcome not persisted: %+v", sub)
	}
	if sub.PushedAt == nil || sub.AssignmentErr != nil {
		t.Fatalf("push fields wrong: %+v", sub)
	}

	if _, err := repo.GetModel(ctx, db, res.ModelKey); err != nil {
		t.Fatalf("catalog entry missing after push: %v", err)
	}
	tr, err := repo.GetTracker(ctx, db, res.ModelKey)
	if err != nil || !tr.PushedToApp || tr.PushedCount != 3 {
		t.Fatalf("tracker not updated: %+v %v", tr, err)
	}

	// Pushing again assigns nobody new but is not an error: the catalog
	// entry self-heals and counters are preserved.
	res2, err := svc.ApproveAndPush(ctx, adminSess(), res0.Submission.ID, true)
	if err != nil || res2.Assigned != 0 || res2.Partial() {
		t.Fatalf("repeat push: %+v %v", res2, err)
	}
}

func TestApproveAndPush_PartialFailurePersisted(t *testing.T) {
	svc, db := newDistSvc(t)
	ctx := context.Background()
	for _, uid := range []string{"u1", "u2", "u3", "u4", "u5"} {
		seedUser(t, db, uid, "user")
	}

	res0, err := svc.Submissions.CreateFromUpload(ctx, partnerSess(), validUpload())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	calls := 0
	svc.CreateAssignmentFn = func(ctx context.Context, db *gorm.DB, userID, modelKey string) (*domain.Assignment, error) {
		calls++
		if calls > 3 {
			return nil, errors.New("store unavailable")
		}
		return repo.CreateAssignment(ctx, db, userID, modelKey)
	}

	res, err := svc.ApproveAndPush(ctx, adminSess(), res0.Submission.ID, true)
	if err != nil {
		t.Fatalf("a partial fan-out is a result, not an error: %v", err)
	}
	if res.Assigned != 3 || !res.Partial() {
		t.Fatalf("expected partial result at 3: %+v", res)
	}

	sub, _ := repo.GetSubmission(ctx, db, res0.Submission.ID)
	if sub.AssignmentErr == nil || sub.PushedCount != 3 || !sub.PushedToApp {
		t.Fatalf("partial outcome not persisted: %+v", sub)
	}

	// Retrying clears the recorded error and finishes the remainder.
	svc.CreateAssignmentFn = nil
	res2, err := svc.ApproveAndPush(ctx, adminSess(), res0.Submission.ID, true)
	if err != nil || res2.Assigned != 2 || res2.Partial() {
		t.Fatalf("retry push: %+v %v", res2, err)
	}
	sub, _ = repo.GetSubmission(ctx, db, res0.Submission.ID)
	if sub.AssignmentErr != nil || sub.PushedCount != 2 {
		t.Fatalf("retry outcome not persisted: %+v", sub)
	}
}

func TestApproveAndPush_Guards(t *testing.T) {
	svc, _ := newDistSvc(t)
	ctx := context.Background()

	if _, err := svc.ApproveAndPush(ctx, partnerSess(), "any", true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin push: %v", err)
	}
	if _, err := svc.ApproveAndPush(ctx, adminSess(), "ghost", true); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("missing submission: %v", err)
	}

	res0, err := svc.Submissions.CreateFromUpload(ctx, partnerSess(), validUpload())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := svc.Submissions.Reject(ctx, adminSess(), res0.Submission.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.ApproveAndPush(ctx, adminSess(), res0.Submission.ID, true); !errors.Is(err, ErrRejectedTerminal) {
		t.Fatalf("rejected submission must not be pushable: %v", err)
	}
}

func TestRedispatch(t *testing.T) {
	svc, db := newDistSvc(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "user")
	seedModel(t, db, "widget_000123")

	if _, err := svc.Redispatch(ctx, partnerSess(), "widget_000123", []string{"u1"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("partner redispatch: %v", err)
	}
	if _, err := svc.Redispatch(ctx, adminSess(), "ghost_model", []string{"u1"}); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("unknown model: %v", err)
	}

	res, err := svc.Redispatch(ctx, adminSess(), "widget_000123", []string{"u1", "ghost", " "})
	if err != nil {
		t.Fatalf("Redispatch: %v", err)
	}
	if res.Assigned != 1 {
		t.Fatalf("only existing accounts get assignments: %+v", res)
	}
}

func TestRedispatchToSubscribers(t *testing.T) {
	svc, db := newDistSvc(t)
	ctx := context.Background()
	seedUser(t, db, "u1", "user")
	seedUser(t, db, "u2", "user")
	seedModel(t, db, "widget_000123")
	if err := repo.ReplaceSubscribers(ctx, db, "b1", []string{"u1", "u2"}); err != nil {
		t.Fatalf("seed subscribers: %v", err)
	}

	endUser := identity.Session{UID: "u1", Role: domain.RoleEndUser}
	if _, err := svc.RedispatchToSubscribers(ctx, endUser, "widget_000123"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("end-user redispatch: %v", err)
	}

	res, err := svc.RedispatchToSubscribers(ctx, partnerSess(), "widget_000123")
	if err != nil || res.Assigned != 2 {
		t.Fatalf("partner redispatch to subscribers: %+v %v", res, err)
	}

	// Partner with no audience pushes to nobody.
	other := identity.Session{UID: "p2", Role: domain.RolePartner, BusinessID: "b2"}
	res, err = svc.RedispatchToSubscribers(ctx, other, "widget_000123")
	if err != nil || res.Assigned != 0 {
		t.Fatalf("empty audience: %+v %v", res, err)
	}
}
