// Package sse streams catalog and selection events to dashboard clients.
package sse

import (
	"time"

	"github.com/songrequest/server/internal/catalog"
	"github.com/songrequest/server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventCatalogReplaced is emitted after a new catalog was published.
	EventCatalogReplaced EventType = "catalog.replaced"
	// EventSelectionAnnounced is emitted after a listener's pick reached the channel.
	EventSelectionAnnounced EventType = "selection.announced"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// CatalogReplacedData is the payload of EventCatalogReplaced.
type CatalogReplacedData struct {
	Source     string    `json:"source"`
	TrackCount int       `json:"track_count"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// SelectionAnnouncedData is the payload of EventSelectionAnnounced.
type SelectionAnnouncedData struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	Song        string    `json:"song"`
	AnnouncedAt time.Time `json:"announced_at"`
}

// NewCatalogReplacedEvent creates an event for a published catalog.
func NewCatalogReplacedEvent(res catalog.Result) Event {
	return Event{
		Type:      EventCatalogReplaced,
		Timestamp: time.Now(),
		Data: CatalogReplacedData{
			Source:     res.Source,
			TrackCount: res.TrackCount,
			LoadedAt:   res.LoadedAt,
		},
	}
}

// NewSelectionAnnouncedEvent creates an event for an announced selection.
// The session ID stays server-side.
func NewSelectionAnnouncedEvent(sel domain.Selection) Event {
	return Event{
		Type:      EventSelectionAnnounced,
		Timestamp: time.Now(),
		Data: SelectionAnnouncedData{
			ID:          sel.ID,
			Author:      sel.Track.Author,
			Song:        sel.Track.Song,
			AnnouncedAt: sel.AnnouncedAt,
		},
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      map[string]any{},
	}
}
