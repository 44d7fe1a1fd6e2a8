package sqlite

import (
	"context"
	"strings"

	"github.com/songrequest/server/internal/domain"
	domainerrors "github.com/songrequest/server/internal/errors"
)

const defaultSelectionLimit = 50

// CreateSelection records an announced selection.
func (s *Store) CreateSelection(ctx context.Context, sel *domain.Selection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO selections (id, session_id, author, song, announced_at)
		VALUES (?, ?, ?, ?, ?)`,
		sel.ID,
		sel.SessionID,
		sel.Track.Author,
		sel.Track.Song,
		formatTime(sel.AnnouncedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domainerrors.Validationf("selection %s already exists", sel.ID)
		}
		return err
	}
	return nil
}

// ListSelections returns up to limit selections, newest first.
// A non-positive limit uses the default.
func (s *Store) ListSelections(ctx context.Context, limit int) ([]domain.Selection, error) {
	if limit <= 0 {
		limit = defaultSelectionLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, author, song, announced_at
		FROM selections
		ORDER BY announced_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Selection
	for rows.Next() {
		var (
			sel         domain.Selection
			announcedAt string
		)
		if err := rows.Scan(&sel.ID, &sel.SessionID, &sel.Track.Author, &sel.Track.Song, &announcedAt); err != nil {
			return nil, err
		}
		if sel.AnnouncedAt, err = parseTime(announcedAt); err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, rows.Err()
}
