package memory

import (
	"errors"
	"sync"
	"testing"

	"codemaster-service/internal/app"
	"codemaster-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	var opened, closed []string
	store := NewSessionStoreWithHooks(SessionHooks{
		Opened: func(key string) { opened = append(opened, key) },
		Closed: func(key string) { closed = append(closed, key) },
	})
	ref := app.Ref{UserID: "u1", CourseID: "js", LessonID: "1"}
	create := func() (*app.Session, error) {
		return app.NewSession(ref, sampleCourse(), nil)
	}

	session, snap, err := store.Join(ref.Key(), create)
	if err != nil || session == nil {
		t.Fatalf("expected session, got %v", err)
	}
	if snap.LessonID != "1" {
		t.Fatalf("expected snapshot of lesson 1, got %q", snap.LessonID)
	}
	if _, ok := store.Get(ref.Key()); !ok {
		t.Fatalf("expected session present")
	}

	again, _, _ := store.Join(ref.Key(), func() (*app.Session, error) {
		t.Fatalf("create must not run for an existing key")
		return nil, nil
	})
	if again != session {
		t.Fatalf("expected the same session instance")
	}

	if store.Leave(ref.Key()) {
		t.Fatalf("session removed while a participant remains")
	}
	if !store.Leave(ref.Key()) {
		t.Fatalf("expected session removed when the last participant leaves")
	}
	if _, ok := store.Get(ref.Key()); ok {
		t.Fatalf("expected session removed when empty")
	}
	if store.Leave(ref.Key()) {
		t.Fatalf("leaving an unknown session must report false")
	}
	if len(opened) != 1 || len(closed) != 1 || opened[0] != ref.Key() || closed[0] != ref.Key() {
		t.Fatalf("unexpected hook calls: opened=%v closed=%v", opened, closed)
	}
}

func TestSessionStoreCreateError(t *testing.T) {
	opened := 0
	store := NewSessionStoreWithHooks(SessionHooks{Opened: func(string) { opened++ }})
	ref := app.Ref{CourseID: "js", LessonID: "missing"}

	_, _, err := store.Join(ref.Key(), func() (*app.Session, error) {
		return app.NewSession(ref, sampleCourse(), nil)
	})
	if !errors.Is(err, domain.ErrLessonNotFound) {
		t.Fatalf("expected lesson not found, got %v", err)
	}
	if _, ok := store.Get(ref.Key()); ok {
		t.Fatalf("failed create must not be stored")
	}
	if opened != 0 {
		t.Fatalf("opened hook ran for a failed create")
	}
}

func TestSessionStoreJoinRacingLastLeave(t *testing.T) {
	store := NewSessionStore()
	ref := app.Ref{UserID: "u1", CourseID: "js", LessonID: "1"}
	create := func() (*app.Session, error) {
		return app.NewSession(ref, sampleCourse(), nil)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				joined, _, err := store.Join(ref.Key(), create)
				if err != nil {
					t.Errorf("join: %v", err)
					return
				}
				// Until this viewer leaves, its session must stay registered.
				current, ok := store.Get(ref.Key())
				if !ok || current != joined {
					t.Errorf("joined session was dropped from the store")
					return
				}
				store.Leave(ref.Key())
			}
		}()
	}
	wg.Wait()

	if n := store.Len(); n != 0 {
		t.Fatalf("expected no open sessions, got %d", n)
	}
}
