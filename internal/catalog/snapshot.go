package catalog

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/songrequest/server/internal/domain"
	domainerrors "github.com/songrequest/server/internal/errors"
)

// fieldIndex is the letter projection of one field.
type fieldIndex struct {
	keyboard []string            // distinct uppercased first letters, sorted
	byLetter map[string][]string // letter -> distinct values, sorted
	byValue  map[string][]int    // exact value -> track positions, catalog order
}

// Snapshot is an immutable catalog version: the tracks and the letter index
// derived from them. It is built once and never mutated after publish.
type Snapshot struct {
	tracks []domain.Track
	info   domain.CatalogInfo
	author fieldIndex
	song   fieldIndex
}

func newSnapshot(tracks []domain.Track, info domain.CatalogInfo) *Snapshot {
	s := &Snapshot{
		tracks: tracks,
		info:   info,
		author: buildFieldIndex(tracks, domain.FieldAuthor),
		song:   buildFieldIndex(tracks, domain.FieldSong),
	}
	s.info.TrackCount = len(tracks)
	return s
}

func buildFieldIndex(tracks []domain.Track, field domain.Field) fieldIndex {
	idx := fieldIndex{
		byLetter: make(map[string][]string),
		byValue:  make(map[string][]int),
	}

	for i, t := range tracks {
		value := field.Of(t)
		if _, seen := idx.byValue[value]; !seen {
			letter := firstLetter(value)
			idx.byLetter[letter] = append(idx.byLetter[letter], value)
		}
		idx.byValue[value] = append(idx.byValue[value], i)
	}

	idx.keyboard = make([]string, 0, len(idx.byLetter))
	for letter, values := range idx.byLetter {
		slices.Sort(values)
		idx.keyboard = append(idx.keyboard, letter)
	}
	slices.Sort(idx.keyboard)
	return idx
}

// firstLetter returns the uppercased first rune of s.
func firstLetter(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

func (s *Snapshot) field(f domain.Field) (*fieldIndex, error) {
	switch f {
	case domain.FieldAuthor:
		return &s.author, nil
	case domain.FieldSong:
		return &s.song, nil
	default:
		return nil, domainerrors.Validationf("unknown catalog field %q", f.String())
	}
}

// Info describes where this snapshot came from.
func (s *Snapshot) Info() domain.CatalogInfo {
	return s.info
}

// Len returns the number of tracks.
func (s *Snapshot) Len() int {
	return len(s.tracks)
}

// AllTracks returns a copy of the tracks in file order.
func (s *Snapshot) AllTracks() []domain.Track {
	return slices.Clone(s.tracks)
}

// KeyboardFor returns the distinct uppercased first letters of field, sorted.
// An empty catalog yields an empty keyboard.
func (s *Snapshot) KeyboardFor(f domain.Field) ([]string, error) {
	idx, err := s.field(f)
	if err != nil {
		return nil, err
	}
	return slices.Clone(idx.keyboard), nil
}

// QueryByFieldPrefix returns the distinct values of field whose first letter
// equals letter, ignoring case, sorted ascending.
func (s *Snapshot) QueryByFieldPrefix(f domain.Field, letter string) ([]string, error) {
	idx, err := s.field(f)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(letter)
	if utf8.RuneCountInString(key) != 1 {
		return []string{}, nil
	}
	values := idx.byLetter[firstLetter(key)]
	if values == nil {
		return []string{}, nil
	}
	return slices.Clone(values), nil
}

// QueryPairsByField returns every track whose field equals value exactly,
// in catalog order.
func (s *Snapshot) QueryPairsByField(f domain.Field, value string) ([]domain.Track, error) {
	idx, err := s.field(f)
	if err != nil {
		return nil, err
	}
	positions := idx.byValue[value]
	out := make([]domain.Track, 0, len(positions))
	for _, pos := range positions {
		out = append(out, s.tracks[pos])
	}
	return out, nil
}

// keyboards returns both keyboards for a replace result.
func (s *Snapshot) keyboards() (author, song []string) {
	return slices.Clone(s.author.keyboard), slices.Clone(s.song.keyboard)
}
