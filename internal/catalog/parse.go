package catalog

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/songrequest/server/internal/domain"
	domainerrors "github.com/songrequest/server/internal/errors"
)

// maxLineLength bounds a single catalog line.
const maxLineLength = 64 * 1024

var (
	// Matches an optional "12." ordinal prefix with trailing spaces.
	ordinalPrefix = regexp.MustCompile(`^\d+\.\s*`)

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// LoadKind classifies a LoadError.
type LoadKind int

const (
	// MalformedLine means a line did not match "[N. ]author - song".
	MalformedLine LoadKind = iota + 1
	// EmptySource means the source contained no tracks at all.
	EmptySource
)

func (k LoadKind) String() string {
	switch k {
	case MalformedLine:
		return "malformed_line"
	case EmptySource:
		return "empty_source"
	default:
		return "unknown"
	}
}

// LoadError reports why a catalog source was rejected.
// It unwraps to the matching coded error, so errors.Is(err, ErrMalformedLine)
// and errors.Is(err, ErrEmptySource) work on it.
type LoadError struct {
	Kind   LoadKind
	Line   int // 1-based, zero for EmptySource
	Reason string
}

func (e *LoadError) Error() string {
	if e.Kind == EmptySource {
		return "catalog source has no tracks"
	}
	return fmt.Sprintf("malformed catalog line %d: %s", e.Line, e.Reason)
}

// Unwrap returns the coded domain error for this failure.
func (e *LoadError) Unwrap() error {
	if e.Kind == EmptySource {
		return domainerrors.ErrEmptySource
	}
	return domainerrors.MalformedLine(e.Line, e.Reason)
}

// Parse reads a catalog source: UTF-8 text, one "[N. ]author - song" per line.
// Lines that are not valid UTF-8 are malformed, so legacy encodings are
// rejected instead of producing unreadable keyboard letters.
// Blank lines are skipped. The first " - " splits author from song.
// Parsing is all-or-nothing: the first bad line fails the whole source.
func Parse(r io.Reader) ([]domain.Track, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)

	var tracks []domain.Track
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if lineNo == 1 {
			raw = bytes.TrimPrefix(raw, utf8BOM)
		}

		if !utf8.Valid(raw) {
			return nil, &LoadError{Kind: MalformedLine, Line: lineNo, Reason: "invalid UTF-8"}
		}

		line := strings.TrimRight(norm.NFC.String(string(raw)), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		track, reason := parseLine(line)
		if reason != "" {
			return nil, &LoadError{Kind: MalformedLine, Line: lineNo, Reason: reason}
		}
		tracks = append(tracks, track)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog source: %w", err)
	}

	if len(tracks) == 0 {
		return nil, &LoadError{Kind: EmptySource}
	}
	return tracks, nil
}

func parseLine(line string) (domain.Track, string) {
	line = strings.TrimSpace(line)
	line = ordinalPrefix.ReplaceAllString(line, "")

	author, song, ok := strings.Cut(line, domain.PairSeparator)
	if !ok {
		return domain.Track{}, fmt.Sprintf("missing %q separator", domain.PairSeparator)
	}

	author = strings.TrimSpace(author)
	song = strings.TrimSpace(song)
	switch {
	case author == "":
		return domain.Track{}, "empty author"
	case song == "":
		return domain.Track{}, "empty song"
	}
	return domain.Track{Author: author, Song: song}, ""
}
