// Package dialog implements the request-selection menu as a pure state machine
// plus a controller that drives it per chat session.
package dialog

import (
	"slices"

	"github.com/songrequest/server/internal/domain"
)

// Step is the position of a session in the selection menu.
type Step string

const (
	StepStart                Step = "start"
	StepAwaitingFieldChoice  Step = "awaiting_field_choice"
	StepAwaitingLetter       Step = "awaiting_letter"
	StepAwaitingItem         Step = "awaiting_item"
	StepAwaitingConfirmation Step = "awaiting_confirmation"
)

// Session is the ephemeral navigation state of one conversation.
// Letter and Item remember earlier choices so "back" can rebuild the
// previous prompt from the catalog.
type Session struct {
	Step    Step         `json:"step"`
	Field   domain.Field `json:"field"`
	Letter  string       `json:"letter,omitempty"`
	Item    string       `json:"item,omitempty"`
	Offered []string     `json:"offered,omitempty"`
}

// NewSession returns a session at the implicit Start step.
func NewSession() Session {
	return Session{Step: StepStart}
}

// Offers reports whether utterance is one of the currently offered options.
func (s Session) Offers(utterance string) bool {
	return slices.Contains(s.Offered, utterance)
}

// Layout hints how a transport should arrange option buttons.
type Layout int

const (
	LayoutFields Layout = iota
	LayoutLetters
	LayoutItems
	LayoutPairs
)

// Prompt is a message with the options legally accepted as the next input.
// Nav holds command buttons (back, restart) shown alongside the options.
type Prompt struct {
	Text    string
	Options []string
	Nav     []string
	Layout  Layout
}

// NoticeKind is an out-of-band message accompanying a transition.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeInvalidInput
	NoticeCatalogUnavailable
	NoticeCatalogUpdated
)

// Effect is what a transition asks the outside world to do.
type Effect struct {
	Prompt   *Prompt
	Announce *domain.Track
	Notice   NoticeKind
}

// Labels are the texts of buttons, commands and prompts.
// Button labels double as accepted utterances.
type Labels struct {
	ChooseAuthor string
	ChooseSong   string
	Restart      string
	Back         string

	FieldPrompt        string
	AuthorLetterPrompt string
	SongLetterPrompt   string
	AuthorItemPrompt   string
	SongItemPrompt     string
	ConfirmPrompt      string
	Announced          string

	InvalidInput       string
	CatalogUnavailable string
	CatalogUpdated     string
}

// DefaultLabels returns English labels.
func DefaultLabels() Labels {
	return Labels{
		ChooseAuthor:       "choose author",
		ChooseSong:         "choose song",
		Restart:            "start over",
		Back:               "back",
		FieldPrompt:        "What do you want to choose?",
		AuthorLetterPrompt: "Which letter does the author's name start with?",
		SongLetterPrompt:   "Which letter does the song title start with?",
		AuthorItemPrompt:   "Choose the author",
		SongItemPrompt:     "Choose the song",
		ConfirmPrompt:      "Choose the track",
		Announced:          "Request sent. Press the button to continue",
		InvalidInput:       "Invalid input, please try again",
		CatalogUnavailable: "Catalog unavailable, please upload a catalog file",
		CatalogUpdated:     "The tracklist was updated, let's start over",
	}
}

// NoticeText returns the text for a notice kind, or "" for NoticeNone.
func (l Labels) NoticeText(kind NoticeKind) string {
	switch kind {
	case NoticeInvalidInput:
		return l.InvalidInput
	case NoticeCatalogUnavailable:
		return l.CatalogUnavailable
	case NoticeCatalogUpdated:
		return l.CatalogUpdated
	default:
		return ""
	}
}

func (l Labels) letterPrompt(f domain.Field) string {
	if f == domain.FieldSong {
		return l.SongLetterPrompt
	}
	return l.AuthorLetterPrompt
}

func (l Labels) itemPrompt(f domain.Field) string {
	if f == domain.FieldSong {
		return l.SongItemPrompt
	}
	return l.AuthorItemPrompt
}
