// Package catalog owns the track catalog and its letter index.
//
// Thread safety: reads go through an atomic snapshot pointer and never block.
// Replace is serialized by a mutex; the new snapshot is built off to the side
// and published with a single pointer swap, so readers see either the old or
// the new catalog in full.
package catalog

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/songrequest/server/internal/domain"
	domainerrors "github.com/songrequest/server/internal/errors"
)

// Repository persists the catalog durably.
type Repository interface {
	ReplaceTracks(ctx context.Context, source string, tracks []domain.Track, loadedAt time.Time) error
	LoadTracks(ctx context.Context) ([]domain.Track, *domain.CatalogInfo, error)
}

// Result summarizes a completed replace.
type Result struct {
	Source         string    `json:"source"`
	TrackCount     int       `json:"track_count"`
	LoadedAt       time.Time `json:"loaded_at"`
	AuthorKeyboard []string  `json:"author_keyboard"`
	SongKeyboard   []string  `json:"song_keyboard"`
}

// Stats describes the published catalog.
type Stats struct {
	Loaded        bool      `json:"loaded"`
	Source        string    `json:"source,omitempty"`
	TrackCount    int       `json:"track_count"`
	LoadedAt      time.Time `json:"loaded_at,omitzero"`
	AuthorLetters int       `json:"author_letters"`
	SongLetters   int       `json:"song_letters"`
}

// Store is the single owner of the active catalog.
type Store struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex // serializes Replace and Load
	current atomic.Pointer[Snapshot]

	hooksMu sync.RWMutex
	hooks   []func(Result)
}

// New creates an empty, unloaded store. repo may be nil for a memory-only store.
func New(repo Repository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// OnReplaced registers fn to run after every successful Replace.
// Hooks run in registration order after the new catalog is published and
// after Replace released its lock, so a hook may read or reload the store.
func (s *Store) OnReplaced(fn func(Result)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Replace parses r and, if the whole source is valid and persisted,
// publishes it as the new catalog. On any error the visible catalog is unchanged.
func (s *Store) Replace(ctx context.Context, source string, r io.Reader) (Result, error) {
	start := time.Now()

	tracks, err := Parse(r)
	if err != nil {
		s.logger.Warn("catalog rejected", "source", source, "error", err)
		return Result{}, err
	}

	result, err := s.publish(ctx, source, tracks)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("catalog replaced",
		"source", source,
		"tracks", result.TrackCount,
		"author_letters", len(result.AuthorKeyboard),
		"song_letters", len(result.SongKeyboard),
		"duration", time.Since(start),
	)

	s.hooksMu.RLock()
	hooks := s.hooks
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(result)
	}

	return result, nil
}

// publish persists tracks and swaps them in as the current snapshot.
func (s *Store) publish(ctx context.Context, source string, tracks []domain.Track) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loadedAt := s.now()
	snap := newSnapshot(tracks, domain.CatalogInfo{Source: source, LoadedAt: loadedAt})

	if s.repo != nil {
		if err := s.repo.ReplaceTracks(ctx, source, tracks, loadedAt); err != nil {
			s.logger.Error("catalog persist failed", "source", source, "error", err)
			return Result{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist catalog")
		}
	}

	s.current.Store(snap)
	return resultOf(snap), nil
}

// Load restores the catalog from the repository, if one was ever stored.
// A repository with no catalog leaves the store unloaded and is not an error.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tracks, info, err := s.repo.LoadTracks(ctx)
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		s.logger.Info("no stored catalog")
		return nil
	}
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "load catalog")
	}

	s.current.Store(newSnapshot(tracks, *info))
	s.logger.Info("catalog restored", "source", info.Source, "tracks", len(tracks))
	return nil
}

// Loaded reports whether a catalog has been published.
func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

// Snapshot returns the published catalog version, or ErrCatalogUnavailable.
func (s *Store) Snapshot() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, domainerrors.ErrCatalogUnavailable
	}
	return snap, nil
}

// Stats returns a description of the published catalog.
func (s *Store) Stats() Stats {
	snap := s.current.Load()
	if snap == nil {
		return Stats{}
	}
	info := snap.Info()
	return Stats{
		Loaded:        true,
		Source:        info.Source,
		TrackCount:    info.TrackCount,
		LoadedAt:      info.LoadedAt,
		AuthorLetters: len(snap.author.keyboard),
		SongLetters:   len(snap.song.keyboard),
	}
}

// AllTracks returns the catalog in file order, or nil if never loaded.
func (s *Store) AllTracks() []domain.Track {
	snap := s.current.Load()
	if snap == nil {
		return nil
	}
	return snap.AllTracks()
}

// KeyboardFor returns the letter keyboard for field.
func (s *Store) KeyboardFor(f domain.Field) ([]string, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.KeyboardFor(f)
}

// QueryByFieldPrefix returns the distinct values of field starting with letter.
func (s *Store) QueryByFieldPrefix(f domain.Field, letter string) ([]string, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.QueryByFieldPrefix(f, letter)
}

// QueryPairsByField returns the tracks whose field equals value exactly.
func (s *Store) QueryPairsByField(f domain.Field, value string) ([]domain.Track, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.QueryPairsByField(f, value)
}

func resultOf(snap *Snapshot) Result {
	info := snap.Info()
	author, song := snap.keyboards()
	return Result{
		Source:         info.Source,
		TrackCount:     info.TrackCount,
		LoadedAt:       info.LoadedAt,
		AuthorKeyboard: author,
		SongKeyboard:   song,
	}
}
