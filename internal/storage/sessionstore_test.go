package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/srstomp/ohno/internal/core"
	"github.com/srstomp/ohno/pkg/models"
)

func newTestSessionStore(t *testing.T) *fileSessionStore {
	t.Helper()
	return NewSessionStoreManager(t.TempDir()).(*fileSessionStore)
}

func sampleSnapshot(id string, takenAt time.Time) models.SessionSnapshot {
	return models.SessionSnapshot{
		SessionID:     id,
		TakenAt:       takenAt,
		StartedAt:     takenAt.Add(-time.Hour),
		Mode:          models.ModeSupervised,
		CurrentTaskID: "TASK-00001",
	}
}

func TestGenerateID_Sequential(t *testing.T) {
	store := newTestSessionStore(t)

	first, err := store.GenerateID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := store.GenerateID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != "S-00001" || second != "S-00002" {
		t.Fatalf("expected S-00001 then S-00002, got %s then %s", first, second)
	}
}

func TestSaveLoadSnapshot(t *testing.T) {
	store := newTestSessionStore(t)
	snap := sampleSnapshot("S-00001", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	if err := store.SaveSnapshot(snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.LoadSnapshot("S-00001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CurrentTaskID != "TASK-00001" || got.Mode != models.ModeSupervised {
		t.Fatalf("snapshot fields lost: %+v", got)
	}
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	store := newTestSessionStore(t)

	_, err := store.LoadSnapshot("S-99999")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestSnapshot(t *testing.T) {
	store := newTestSessionStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"S-00001", "S-00002", "S-00003"} {
		snap := sampleSnapshot(id, base.Add(time.Duration(i)*time.Hour))
		if err := store.SaveSnapshot(snap); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	latest, err := store.LatestSnapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest == nil || latest.SessionID != "S-00003" {
		t.Fatalf("expected S-00003 as latest, got %+v", latest)
	}
}

func TestLatestSnapshot_Empty(t *testing.T) {
	store := newTestSessionStore(t)

	latest, err := store.LatestSnapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil on empty store, got %+v", latest)
	}
}

func TestArchive(t *testing.T) {
	store := newTestSessionStore(t)
	snap := sampleSnapshot("S-00001", time.Now().UTC())
	if err := store.SaveSnapshot(snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Archive("S-00001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Archived sessions disappear from the active listing.
	ids, err := store.ListSessionIDs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no active sessions, got %v", ids)
	}

	if err := store.Archive("S-00001"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double archive, got %v", err)
	}
}
