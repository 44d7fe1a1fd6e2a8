package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/songrequest/server/internal/domain"
	domainerrors "github.com/songrequest/server/internal/errors"
)

// ReplaceTracks swaps the stored catalog for tracks in a single transaction.
// Readers of the database see either the old rows or the new ones.
func (s *Store) ReplaceTracks(ctx context.Context, source string, tracks []domain.Track, loadedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tracks`); err != nil {
		return fmt.Errorf("clear tracks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tracks (position, author, song) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare track insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range tracks {
		if _, err := stmt.ExecContext(ctx, i, t.Author, t.Song); err != nil {
			return fmt.Errorf("insert track %d: %w", i, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO catalog_meta (id, source, track_count, loaded_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			track_count = excluded.track_count,
			loaded_at = excluded.loaded_at`,
		source, len(tracks), formatTime(loadedAt),
	)
	if err != nil {
		return fmt.Errorf("write catalog meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Debug("catalog persisted", "source", source, "tracks", len(tracks))
	return nil
}

// LoadTracks returns the stored catalog in file order.
// Returns ErrNotFound when no catalog has ever been stored.
func (s *Store) LoadTracks(ctx context.Context) ([]domain.Track, *domain.CatalogInfo, error) {
	info, err := s.CatalogInfo(ctx)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT author, song FROM tracks ORDER BY position`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	tracks := make([]domain.Track, 0, info.TrackCount)
	for rows.Next() {
		var t domain.Track
		if err := rows.Scan(&t.Author, &t.Song); err != nil {
			return nil, nil, err
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return tracks, info, nil
}

// CatalogInfo returns metadata about the stored catalog.
func (s *Store) CatalogInfo(ctx context.Context) (*domain.CatalogInfo, error) {
	var (
		info     domain.CatalogInfo
		loadedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT source, track_count, loaded_at FROM catalog_meta WHERE id = 1`,
	).Scan(&info.Source, &info.TrackCount, &loadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	info.LoadedAt, err = parseTime(loadedAt)
	if err != nil {
		return nil, fmt.Errorf("parse loaded_at: %w", err)
	}
	return &info, nil
}
