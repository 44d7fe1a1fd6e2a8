package domain

import "time"

// Selection records a track that was announced to the notification channel.
type Selection struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Track       Track     `json:"track"`
	AnnouncedAt time.Time `json:"announced_at"`
}

// CatalogInfo describes the currently published catalog.
type CatalogInfo struct {
	Source     string    `json:"source"`
	TrackCount int       `json:"track_count"`
	LoadedAt   time.Time `json:"loaded_at"`
}
