// Package domain contains the core types shared across the song request server.
package domain

import (
	"fmt"
	"strings"
)

// PairSeparator separates author and song in catalog lines and button labels.
const PairSeparator = " - "

// Track is one (author, song) pair in the catalog.
// Duplicates are legal; each line of a catalog file is an independent entry.
type Track struct {
	Author string `json:"author"`
	Song   string `json:"song"`
}

// Label returns the display label "<author> - <song>".
func (t Track) Label() string {
	return t.Author + PairSeparator + t.Song
}

// String implements fmt.Stringer.
func (t Track) String() string {
	return t.Label()
}

// ParseLabel splits a display label back into a Track.
// The split happens on the first separator only, mirroring catalog parsing.
func ParseLabel(label string) (Track, error) {
	author, song, ok := strings.Cut(label, PairSeparator)
	if !ok {
		return Track{}, fmt.Errorf("label %q has no %q separator", label, PairSeparator)
	}
	author = strings.TrimSpace(author)
	song = strings.TrimSpace(song)
	if author == "" || song == "" {
		return Track{}, fmt.Errorf("label %q has an empty half", label)
	}
	return Track{Author: author, Song: song}, nil
}
