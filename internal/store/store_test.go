package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/gesture"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
}

func TestBindingRepository_CRUD(t *testing.T) {
	repo := newTestStore(t).Bindings()

	b := &Binding{
		Gesture: "like",
		Action:  gesture.ActionNextSlide,
		Enabled: true,
	}
	if err := repo.Create(b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if b.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}
	if b.Position != 1 {
		t.Errorf("first binding position = %d, want 1", b.Position)
	}

	got, err := repo.GetByID(b.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Gesture != "like" || got.Action != gesture.ActionNextSlide {
		t.Errorf("GetByID() = %+v, want gesture %q action %q", got, "like", gesture.ActionNextSlide)
	}

	got.Direction = "Left"
	got.Action = gesture.ActionPrevSlide
	if err := repo.Update(got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	updated, err := repo.GetByID(b.ID)
	if err != nil {
		t.Fatalf("GetByID() after update error = %v", err)
	}
	if updated.Direction != "Left" || updated.Action != gesture.ActionPrevSlide {
		t.Errorf("update not persisted: %+v", updated)
	}

	if err := repo.Delete(b.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestBindingRepository_NotFound(t *testing.T) {
	repo := newTestStore(t).Bindings()

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if err := repo.Update(&Binding{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestBindingRepository_ListOrderedByPosition(t *testing.T) {
	repo := newTestStore(t).Bindings()

	first := &Binding{Gesture: "stop", Action: gesture.ActionOpenExitDialog, Position: 2, Enabled: true}
	second := &Binding{Gesture: "like", Action: gesture.ActionNextSlide, Position: 1, Enabled: true}
	for _, b := range []*Binding{first, second} {
		if err := repo.Create(b); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d bindings, want 2", len(list))
	}
	if list[0].Gesture != "like" || list[1].Gesture != "stop" {
		t.Errorf("List() order = [%s, %s], want [like, stop]", list[0].Gesture, list[1].Gesture)
	}
}

func TestBindingRepository_ActiveSkipsDisabled(t *testing.T) {
	repo := newTestStore(t).Bindings()

	if err := repo.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	list[0].Enabled = false
	if err := repo.Update(list[0]); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	table, err := repo.Active()
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if len(table) != len(list)-1 {
		t.Errorf("Active() returned %d bindings, want %d", len(table), len(list)-1)
	}
	for _, b := range table {
		if b.Gesture == list[0].Gesture && b.Direction == list[0].Direction {
			t.Error("disabled binding still present in active table")
		}
	}
}

func TestBindingRepository_SeedDefaultsIsIdempotent(t *testing.T) {
	repo := newTestStore(t).Bindings()

	if err := repo.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}
	if err := repo.SeedDefaults(); err != nil {
		t.Fatalf("second SeedDefaults() error = %v", err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := len(gesture.DefaultBindings()); len(list) != want {
		t.Errorf("List() returned %d bindings after reseeding, want %d", len(list), want)
	}

	table, err := repo.Active()
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if _, ok := table.Resolve("stop", ""); !ok {
		t.Error("seeded table does not resolve the stop gesture")
	}
}

func TestSettingsRepository(t *testing.T) {
	repo := newTestStore(t).Settings()

	if _, err := repo.Get("camera_index"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() on empty table error = %v, want ErrNotFound", err)
	}

	if err := repo.Set("camera_index", "1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set("camera_index", "2"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, err := repo.Get("camera_index")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "2" {
		t.Errorf("Get() = %q, want %q", got, "2")
	}

	if err := repo.Delete("camera_index"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get("camera_index"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}
