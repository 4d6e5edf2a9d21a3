package store

import (
	"errors"
	"testing"
	"time"
)

var base = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func TestSessionRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{MappingMode: "tiled", StartedAt: base}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if sess.ID == "" {
		t.Fatal("Create should assign an ID")
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.MappingMode != "tiled" {
		t.Errorf("MappingMode = %q, want tiled", got.MappingMode)
	}
	if !got.StartedAt.Equal(base) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, base)
	}
	if got.EndedAt != nil {
		t.Errorf("EndedAt = %v, want nil for open session", got.EndedAt)
	}
}

func TestSessionRepository_CreateDefaultsStart(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{MappingMode: "span"}
	before := time.Now()
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if sess.StartedAt.Before(before) {
		t.Errorf("StartedAt = %v, want >= %v", sess.StartedAt, before)
	}
}

func TestSessionRepository_Finish(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{ID: "run-1", MappingMode: "tiled", StartedAt: base}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	end := base.Add(90 * time.Second)
	if err := repo.Finish("run-1", end, 2700, 2500); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := repo.GetByID("run-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, end)
	}
	if got.Frames != 2700 || got.Detections != 2500 {
		t.Errorf("counters = %d/%d, want 2700/2500", got.Frames, got.Detections)
	}

	if err := repo.Finish("missing", end, 0, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Sessions().GetByID("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	for i, id := range []string{"a", "b", "c"} {
		sess := &Session{ID: id, MappingMode: "tiled", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(sess); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	all, err := repo.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d sessions, want 3", len(all))
	}
	if all[0].ID != "c" || all[2].ID != "a" {
		t.Errorf("List() order = %s,%s,%s, want newest first", all[0].ID, all[1].ID, all[2].ID)
	}

	limited, err := repo.List(2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d sessions", len(limited))
	}
}

func TestSessionRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{ID: "gone", MappingMode: "tiled", StartedAt: base}
	s.Sessions().Create(sess)
	s.Events().Append(&Event{SessionID: "gone", Kind: EventDown, At: base})

	if err := s.Sessions().Delete("gone"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	n, err := s.Events().CountBySession("gone")
	if err != nil {
		t.Fatalf("CountBySession() error = %v", err)
	}
	if n != 0 {
		t.Errorf("events left after delete = %d, want 0", n)
	}
	if err := s.Sessions().Delete("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
