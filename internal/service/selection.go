// Package service holds the application services that sit between the
// dialog, the storage layer and the event stream.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/songrequest/server/internal/domain"
	"github.com/songrequest/server/internal/id"
	"github.com/songrequest/server/internal/sse"
)

// Publisher posts a text to the announcement channel.
type Publisher interface {
	Publish(ctx context.Context, text string) error
}

// SelectionStore persists announced selections.
type SelectionStore interface {
	CreateSelection(ctx context.Context, sel *domain.Selection) error
	ListSelections(ctx context.Context, limit int) ([]domain.Selection, error)
}

// EventEmitter receives events for connected dashboards.
type EventEmitter interface {
	Emit(event sse.Event)
}

// SelectionService announces finished selections and keeps their history.
type SelectionService struct {
	publisher Publisher
	store     SelectionStore
	events    EventEmitter
	template  string
	logger    *slog.Logger
	now       func() time.Time
}

// NewSelectionService creates a selection service. template is the channel
// message with a {track} placeholder. store and events may be nil.
func NewSelectionService(publisher Publisher, store SelectionStore, events EventEmitter, template string, logger *slog.Logger) *SelectionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SelectionService{
		publisher: publisher,
		store:     store,
		events:    events,
		template:  template,
		logger:    logger,
		now:       time.Now,
	}
}

// Announce posts the track to the channel, then records it.
// Only a failed post is returned: the listener should retry in that case,
// while a lost history row is not worth a second channel message.
func (s *SelectionService) Announce(ctx context.Context, sessionID string, track domain.Track) error {
	if err := s.publisher.Publish(ctx, s.Message(track)); err != nil {
		return fmt.Errorf("publish announcement: %w", err)
	}

	selID, err := id.Generate("sel")
	if err != nil {
		s.logger.Error("failed to generate selection ID", "error", err)
		return nil
	}

	sel := domain.Selection{
		ID:          selID,
		SessionID:   sessionID,
		Track:       track,
		AnnouncedAt: s.now().UTC(),
	}

	if s.store != nil {
		if err := s.store.CreateSelection(ctx, &sel); err != nil {
			s.logger.Error("failed to record selection",
				"selection_id", sel.ID,
				"session_id", sessionID,
				"error", err)
		}
	}

	if s.events != nil {
		s.events.Emit(sse.NewSelectionAnnouncedEvent(sel))
	}

	s.logger.Info("selection announced",
		"selection_id", sel.ID,
		"session_id", sessionID,
		"track", track.Label())
	return nil
}

// Message renders the channel text for a track.
func (s *SelectionService) Message(track domain.Track) string {
	if !strings.Contains(s.template, "{track}") {
		return track.Label()
	}
	return strings.ReplaceAll(s.template, "{track}", track.Label())
}

// History returns recent selections, newest first.
func (s *SelectionService) History(ctx context.Context, limit int) ([]domain.Selection, error) {
	if s.store == nil {
		return []domain.Selection{}, nil
	}
	selections, err := s.store.ListSelections(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	if selections == nil {
		selections = []domain.Selection{}
	}
	return selections, nil
}
