package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/songrequest/server/internal/domain"
	domainerrors "github.com/songrequest/server/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	for _, table := range []string{"tracks", "catalog_meta", "selections"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.ReplaceTracks(context.Background(), "a.txt", []domain.Track{{Author: "Queen", Song: "Innuendo"}}, time.Now()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Schema is idempotent and data survives.
	s2, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer s2.Close()

	tracks, _, err := s2.LoadTracks(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Song != "Innuendo" {
		t.Errorf("unexpected tracks after reopen: %v", tracks)
	}
}

func TestLoadTracks_Empty(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.LoadTracks(context.Background())
	if !domainerrors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplaceTracks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	loadedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := []domain.Track{
		{Author: "Queen", Song: "Bohemian Rhapsody"},
		{Author: "ABBA", Song: "Dancing Queen"},
		{Author: "Queen", Song: "Bohemian Rhapsody"},
	}
	if err := s.ReplaceTracks(ctx, "first.txt", first, loadedAt); err != nil {
		t.Fatalf("replace: %v", err)
	}

	second := []domain.Track{{Author: "Кино", Song: "Группа крови"}}
	if err := s.ReplaceTracks(ctx, "second.txt", second, loadedAt.Add(time.Hour)); err != nil {
		t.Fatalf("replace: %v", err)
	}

	tracks, info, err := s.LoadTracks(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tracks) != 1 || tracks[0] != second[0] {
		t.Errorf("expected only second catalog, got %v", tracks)
	}
	if info.Source != "second.txt" || info.TrackCount != 1 {
		t.Errorf("unexpected info: %+v", info)
	}
	if !info.LoadedAt.Equal(loadedAt.Add(time.Hour)) {
		t.Errorf("loaded_at = %v", info.LoadedAt)
	}
}

func TestReplaceTracks_PreservesOrderAndDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := []domain.Track{
		{Author: "Zed", Song: "Last"},
		{Author: "Abba", Song: "First"},
		{Author: "Zed", Song: "Last"},
	}
	if err := s.ReplaceTracks(ctx, "x.txt", in, time.Now()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, _, err := s.LoadTracks(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("expected %d tracks, got %d", len(in), len(got))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("track %d: expected %v, got %v", i, in[i], got[i])
		}
	}
}

func TestReplaceTracks_CancelledContextKeepsOldData(t *testing.T) {
	s := newTestStore(t)
	old := []domain.Track{{Author: "Queen", Song: "Innuendo"}}
	if err := s.ReplaceTracks(context.Background(), "old.txt", old, time.Now()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.ReplaceTracks(ctx, "new.txt", []domain.Track{{Author: "A", Song: "B"}}, time.Now()); err == nil {
		t.Fatal("expected error with cancelled context")
	}

	got, info, err := s.LoadTracks(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if info.Source != "old.txt" || len(got) != 1 || got[0] != old[0] {
		t.Errorf("old catalog not preserved: %+v %v", info, got)
	}
}

func TestSelections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	for i, song := range []string{"One", "Two", "Three"} {
		sel := &domain.Selection{
			ID:          "sel_" + song,
			SessionID:   "chat-1",
			Track:       domain.Track{Author: "Band", Song: song},
			AnnouncedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.CreateSelection(ctx, sel); err != nil {
			t.Fatalf("create selection: %v", err)
		}
	}

	got, err := s.ListSelections(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 selections, got %d", len(got))
	}
	if got[0].Track.Song != "Three" || got[1].Track.Song != "Two" {
		t.Errorf("expected newest first, got %v", got)
	}
	if got[0].SessionID != "chat-1" || !got[0].AnnouncedAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("unexpected selection: %+v", got[0])
	}

	dup := &domain.Selection{ID: "sel_One", SessionID: "x", Track: domain.Track{Author: "a", Song: "b"}, AnnouncedAt: base}
	if err := s.CreateSelection(ctx, dup); !domainerrors.Is(err, domainerrors.ErrValidation) {
		t.Errorf("expected validation error for duplicate, got %v", err)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
