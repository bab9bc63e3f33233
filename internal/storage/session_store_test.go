package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

// newBackends returns one store per backend so every contract test runs
// against both implementations.
func newBackends(t *testing.T) map[string]SessionStore {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return map[string]SessionStore{
		"sqlite": NewSessionRepo(db),
		"memory": NewMemorySessionStore(),
	}
}

func TestSessionStore_CreateAndList(t *testing.T) {
	ctx := context.Background()
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.CreateSession(ctx, "")
			if err != nil {
				t.Fatalf("CreateSession() error = %v", err)
			}
			if id == "" {
				t.Fatal("CreateSession() returned empty id")
			}

			sessions, err := store.ListSessions(ctx, "")
			if err != nil {
				t.Fatalf("ListSessions() error = %v", err)
			}
			if len(sessions) != 1 {
				t.Fatalf("ListSessions() = %d sessions, want 1", len(sessions))
			}
			if sessions[0].Owner != AnonymousOwner {
				t.Errorf("Owner = %q, want %q", sessions[0].Owner, AnonymousOwner)
			}
			if sessions[0].MessageCount != 0 {
				t.Errorf("MessageCount = %d, want 0", sessions[0].MessageCount)
			}
		})
	}
}

func TestSessionStore_AppendAndHistory(t *testing.T) {
	ctx := context.Background()
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.CreateSession(ctx, "student-1")
			if err != nil {
				t.Fatal(err)
			}

			sources := []Citation{{Source: "handbook.pdf", Excerpt: "The minimum GPA is 3.0."}}
			if err := store.AppendMessage(ctx, id, "user", "What is the minimum GPA?", nil); err != nil {
				t.Fatalf("AppendMessage() error = %v", err)
			}
			if err := store.AppendMessage(ctx, id, "assistant", "The minimum GPA is 3.0.", sources); err != nil {
				t.Fatalf("AppendMessage() error = %v", err)
			}

			history, err := store.GetHistory(ctx, id)
			if err != nil {
				t.Fatalf("GetHistory() error = %v", err)
			}
			if len(history) != 2 {
				t.Fatalf("GetHistory() = %d messages, want 2", len(history))
			}
			if history[0].Role != "user" || history[1].Role != "assistant" {
				t.Errorf("history order = [%s %s]", history[0].Role, history[1].Role)
			}
			if history[0].Seq != 0 || history[1].Seq != 1 {
				t.Errorf("sequence = [%d %d], want [0 1]", history[0].Seq, history[1].Seq)
			}
			if len(history[1].Sources) != 1 || history[1].Sources[0].Source != "handbook.pdf" {
				t.Errorf("sources = %+v", history[1].Sources)
			}

			sessions, err := store.ListSessions(ctx, "student-1")
			if err != nil {
				t.Fatal(err)
			}
			if sessions[0].MessageCount != 2 {
				t.Errorf("MessageCount = %d, want 2", sessions[0].MessageCount)
			}
		})
	}
}

func TestSessionStore_ConcurrentAppends(t *testing.T) {
	const n = 20
	ctx := context.Background()
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.CreateSession(ctx, "")
			if err != nil {
				t.Fatal(err)
			}

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- store.AppendMessage(ctx, id, "user", fmt.Sprintf("message %d", i), nil)
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Fatalf("AppendMessage() error = %v", err)
				}
			}

			history, err := store.GetHistory(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			if len(history) != n {
				t.Fatalf("GetHistory() = %d messages, want %d", len(history), n)
			}
			for i, msg := range history {
				if msg.Seq != i {
					t.Errorf("message %d has seq %d", i, msg.Seq)
				}
			}

			sessions, err := store.ListSessions(ctx, "")
			if err != nil {
				t.Fatal(err)
			}
			if sessions[0].MessageCount != n {
				t.Errorf("MessageCount = %d, want %d", sessions[0].MessageCount, n)
			}
		})
	}
}

func TestSessionStore_ListOrdering(t *testing.T) {
	ctx := context.Background()
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			first, _ := store.CreateSession(ctx, "student-1")
			second, _ := store.CreateSession(ctx, "student-1")
			_ = first

			// Touch the first session so it becomes the most recent.
			if err := store.AppendMessage(ctx, first, "user", "hello", nil); err != nil {
				t.Fatal(err)
			}

			sessions, err := store.ListSessions(ctx, "student-1")
			if err != nil {
				t.Fatal(err)
			}
			if len(sessions) != 2 {
				t.Fatalf("ListSessions() = %d, want 2", len(sessions))
			}
			if sessions[0].ID != first {
				t.Errorf("most recently updated session should come first, got %s", sessions[0].ID)
			}
			_ = second
		})
	}
}

func TestSessionStore_DeleteLeavesNoResidue(t *testing.T) {
	ctx := context.Background()
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			id, _ := store.CreateSession(ctx, "student-1")
			keep, _ := store.CreateSession(ctx, "student-1")
			if err := store.AppendMessage(ctx, id, "user", "to be deleted", nil); err != nil {
				t.Fatal(err)
			}

			if err := store.DeleteSession(ctx, id); err != nil {
				t.Fatalf("DeleteSession() error = %v", err)
			}

			if _, err := store.GetHistory(ctx, id); err != ErrNotFound {
				t.Errorf("GetHistory() after delete = %v, want ErrNotFound", err)
			}
			sessions, err := store.ListSessions(ctx, "student-1")
			if err != nil {
				t.Fatal(err)
			}
			if len(sessions) != 1 || sessions[0].ID != keep {
				t.Errorf("ListSessions() after delete = %+v", sessions)
			}
		})
	}
}

func TestSessionStore_UnknownSession(t *testing.T) {
	ctx := context.Background()
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.AppendMessage(ctx, "missing", "user", "hi", nil); err != ErrNotFound {
				t.Errorf("AppendMessage() = %v, want ErrNotFound", err)
			}
			if _, err := store.GetHistory(ctx, "missing"); err != ErrNotFound {
				t.Errorf("GetHistory() = %v, want ErrNotFound", err)
			}
			if err := store.DeleteSession(ctx, "missing"); err != ErrNotFound {
				t.Errorf("DeleteSession() = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSessionStore_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, _ = store.CreateSession(ctx, "student-1")
			_, _ = store.CreateSession(ctx, "student-2")

			sessions, err := store.ListSessions(ctx, "student-1")
			if err != nil {
				t.Fatal(err)
			}
			if len(sessions) != 1 {
				t.Errorf("ListSessions(student-1) = %d sessions, want 1", len(sessions))
			}
		})
	}
}
