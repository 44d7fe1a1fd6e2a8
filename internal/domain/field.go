package domain

import "fmt"

// Field selects which half of a Track a dialog is narrowing on.
type Field int

const (
	// FieldNone is the zero value, used while no field has been chosen.
	FieldNone Field = iota
	// FieldAuthor narrows on Track.Author.
	FieldAuthor
	// FieldSong narrows on Track.Song.
	FieldSong
)

// String returns the lowercase field name used in URLs and logs.
func (f Field) String() string {
	switch f {
	case FieldAuthor:
		return "author"
	case FieldSong:
		return "song"
	default:
		return "none"
	}
}

// Of returns the value of this field on the given track.
// FieldNone yields an empty string.
func (f Field) Of(t Track) string {
	switch f {
	case FieldAuthor:
		return t.Author
	case FieldSong:
		return t.Song
	default:
		return ""
	}
}

// Valid reports whether f is one of the two selectable fields.
func (f Field) Valid() bool {
	return f == FieldAuthor || f == FieldSong
}

// ParseField converts "author" or "song" into a Field.
func ParseField(s string) (Field, error) {
	switch s {
	case "author":
		return FieldAuthor, nil
	case "song":
		return FieldSong, nil
	default:
		return FieldNone, fmt.Errorf("unknown field %q", s)
	}
}
