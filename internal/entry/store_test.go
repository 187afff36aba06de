package entry

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "entries.db"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSaveAndGet(t *testing.T) {
	store := openTestStore(t)

	saved, err := store.Save(Entry{
		Value:       "alice@example.com",
		Label:       "work email",
		ContextType: ContextDomain,
		ContextKey:  "https://example.com",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("Save did not mint an id")
	}
	if saved.CreatedAt == 0 {
		t.Fatalf("Save did not stamp created_at")
	}
	if saved.Key == nil || saved.Key.Kind != KindExactOrigin {
		t.Fatalf("Save did not compile the context key")
	}

	got, err := store.Get(saved.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Value != "alice@example.com" || got.Label != "work email" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Key == nil {
		t.Fatalf("Get returned an entry without a compiled key")
	}
}

func TestStoreUpdatePreservesCreatedAt(t *testing.T) {
	store := openTestStore(t)

	saved, err := store.Save(Entry{Value: "v1", ContextType: ContextAll})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	saved.Value = "v2"
	saved.CreatedAt = 0
	updated, err := store.Save(saved)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.CreatedAt == 0 {
		t.Fatalf("update lost the original created_at")
	}
	got, _ := store.Get(saved.ID)
	if got.Value != "v2" {
		t.Fatalf("update did not persist, got %q", got.Value)
	}
}

func TestStoreRejectsUnknownContextType(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Save(Entry{Value: "x", ContextType: ContextType("bogus")})
	if !errors.Is(err, ErrUnknownContextType) {
		t.Fatalf("expected ErrUnknownContextType, got %v", err)
	}
}

func TestStoreShortcutCollision(t *testing.T) {
	store := openTestStore(t)

	first, err := store.Save(Entry{Value: "a", ContextType: ContextAll, Shortcut: "ctrl+shift+1"})
	if err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	_, err = store.Save(Entry{Value: "b", ContextType: ContextAll, Shortcut: "ctrl+shift+1"})
	if !errors.Is(err, ErrShortcutTaken) {
		t.Fatalf("expected ErrShortcutTaken, got %v", err)
	}

	// Re-saving the holder with its own shortcut is fine.
	first.Value = "a2"
	if _, err := store.Save(first); err != nil {
		t.Fatalf("holder re-save failed: %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store := openTestStore(t)

	saved, err := store.Save(Entry{Value: "x", ContextType: ContextAll})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(saved.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestStoreListOrder(t *testing.T) {
	store := openTestStore(t)

	for i, ts := range []int64{300, 100, 200} {
		_, err := store.Save(Entry{Value: string(rune('a' + i)), ContextType: ContextAll, CreatedAt: ts})
		if err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt < entries[i-1].CreatedAt {
			t.Fatalf("List not ordered by created_at: %v", entries)
		}
	}
}

func TestStoreImport(t *testing.T) {
	store := openTestStore(t)

	count, err := store.Import([]Entry{
		{Value: "a", ContextType: ContextAll},
		{ID: "fixed-id", Value: "b", ContextType: ContextURL, ContextKey: "https://a.com/x"},
	})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 imported, got %d", count)
	}

	got, err := store.Get("fixed-id")
	if err != nil {
		t.Fatalf("Get after import failed: %v", err)
	}
	if got.Value != "b" {
		t.Fatalf("imported value mismatch: %q", got.Value)
	}

	// A bad batch writes nothing.
	_, err = store.Import([]Entry{
		{Value: "ok", ContextType: ContextAll},
		{Value: "bad", ContextType: ContextType("bogus")},
	})
	if !errors.Is(err, ErrUnknownContextType) {
		t.Fatalf("expected ErrUnknownContextType, got %v", err)
	}
	entries, _ := store.List()
	if len(entries) != 2 {
		t.Fatalf("failed import should not write, have %d entries", len(entries))
	}
}

func TestStoreChangeNotification(t *testing.T) {
	store := openTestStore(t)

	var snapshots [][]Entry
	store.OnChange(func(entries []Entry) {
		snapshots = append(snapshots, entries)
	})

	saved, err := store.Save(Entry{Value: "x", ContextType: ContextAll})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(snapshots) != 1 || len(snapshots[0]) != 1 {
		t.Fatalf("expected one snapshot with one entry, got %v", snapshots)
	}

	if err := store.Delete(saved.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(snapshots) != 2 || len(snapshots[1]) != 0 {
		t.Fatalf("expected empty snapshot after delete, got %v", snapshots)
	}
}
