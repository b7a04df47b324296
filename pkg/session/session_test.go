package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	s := New("home", "site", time.Hour)
	if err := ValidateID(s.ID); err != nil {
		t.Fatalf("ValidateID(%q) = %v", s.ID, err)
	}
	if s.PageID != "home" || s.SiteID != "site" {
		t.Errorf("got page %q site %q", s.PageID, s.SiteID)
	}
	if s.IsExpired() {
		t.Error("new session is expired")
	}
	if New("home", "", time.Hour).ID == s.ID {
		t.Error("ids are not unique")
	}
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"", "abc", "../../etc/passwd"} {
		if err := ValidateID(id); err != ErrInvalidID {
			t.Errorf("ValidateID(%q) = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestTouch(t *testing.T) {
	s := New("home", "", -time.Minute)
	if !s.IsExpired() {
		t.Fatal("session should be expired")
	}
	s.Touch(time.Minute)
	if s.IsExpired() {
		t.Error("touched session is expired")
	}
}

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	live := New("home", "site", time.Hour)
	if err := store.Set(ctx, live); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, live.ID)
	if err != nil || got == nil {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if got.PageID != "home" || got.SiteID != "site" {
		t.Errorf("Get returned %+v", got)
	}

	missing, err := store.Get(ctx, New("x", "", time.Hour).ID)
	if err != nil || missing != nil {
		t.Errorf("Get(missing) = %v, %v", missing, err)
	}

	expired := New("old", "", time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Second)
	if err := store.Set(ctx, expired); err != nil {
		t.Fatalf("Set expired: %v", err)
	}
	if got, _ := store.Get(ctx, expired.ID); got != nil {
		t.Error("expired session returned")
	}
	if err := store.Cleanup(ctx); err != nil {
		t.Errorf("Cleanup: %v", err)
	}

	if err := store.Delete(ctx, live.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.Get(ctx, live.ID); got != nil {
		t.Error("deleted session returned")
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	testStore(t, store)
	if n := store.Len(); n != 0 {
		t.Errorf("Len = %d after cleanup, want 0", n)
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if store.Path() != dir {
		t.Errorf("Path = %q", store.Path())
	}
	testStore(t, store)

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("%d files left after delete and cleanup", len(entries))
	}
}

func TestFileStoreRejectsPaths(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	bad := &Session{ID: "../escape", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Set(ctx, bad); err != ErrInvalidID {
		t.Errorf("Set = %v, want ErrInvalidID", err)
	}
	if _, err := os.Stat(filepath.Join(store.Path(), "..", "escape.json")); !os.IsNotExist(err) {
		t.Error("file written outside the store")
	}
	if got, err := store.Get(ctx, "../escape"); got != nil || err != nil {
		t.Errorf("Get = %v, %v", got, err)
	}
}
