package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"codemaster-service/internal/domain"
)

func openTemp(t *testing.T) (*UserStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "codemaster.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return store, path
}

func TestBoltUserLifecycleSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	store, path := openTemp(t)

	user := domain.User{ID: "u1", Name: "Ada", Email: "Ada@Example.com", Password: "pw", JoinedDate: time.Now().UTC()}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u2", Email: "ada@example.com "}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	score := 80
	entry := domain.ProgressEntry{CourseID: "js", LessonID: "quiz", Completed: true, Score: &score}
	if err := store.UpsertProgress(ctx, "u1", entry); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertProgress(ctx, "u1", entry); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if err := store.AppendCertificate(ctx, "u1", domain.Certificate{ID: "c1", CourseID: "js", Score: 80}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.SetActiveUser(ctx, "u1"); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	active, err := reopened.ActiveUser(ctx)
	if err != nil || active != "u1" {
		t.Fatalf("expected active u1, got %q (%v)", active, err)
	}
	got, err := reopened.FindUserByEmail(ctx, "ADA@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Password != "pw" {
		t.Fatalf("password not stored")
	}
	if n := len(got.Progress["js"]); n != 1 {
		t.Fatalf("expected one progress entry, got %d", n)
	}
	if e, _ := got.Progress.Entry("js", "quiz"); e.Score == nil || *e.Score != 80 {
		t.Fatalf("unexpected progress entry %+v", e)
	}
	if len(got.Certifications) != 1 {
		t.Fatalf("expected one certificate, got %d", len(got.Certifications))
	}
}

func TestBoltUnknownUser(t *testing.T) {
	ctx := context.Background()
	store, _ := openTemp(t)
	defer store.Close()

	if _, err := store.GetUser(ctx, "nope"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := store.UpsertProgress(ctx, "nope", domain.ProgressEntry{CourseID: "a", LessonID: "1"}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := store.SetActiveUser(ctx, "nope"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestBoltClearActiveUser(t *testing.T) {
	ctx := context.Background()
	store, _ := openTemp(t)
	defer store.Close()

	if err := store.CreateUser(ctx, domain.User{ID: "u1", Email: "a@b.c"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetActiveUser(ctx, "u1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.ClearActiveUser(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if id, _ := store.ActiveUser(ctx); id != "" {
		t.Fatalf("expected no active user, got %q", id)
	}
}
