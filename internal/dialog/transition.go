package dialog

import (
	"slices"

	"github.com/songrequest/server/internal/domain"
)

// Catalog is the read side of the catalog store used by the menu.
type Catalog interface {
	KeyboardFor(f domain.Field) ([]string, error)
	QueryByFieldPrefix(f domain.Field, letter string) ([]string, error)
	QueryPairsByField(f domain.Field, value string) ([]domain.Track, error)
}

// Transition computes the next session and the effect of one utterance.
// It has no side effects: catalog reads only, no I/O.
//
// Restart is accepted in every step. Back is accepted in every step unless
// the utterance is one of the offered options, which take precedence. Any
// other utterance that is not offered is rejected: the step and options stay
// the same and the prompt is repeated with an invalid input notice.
func Transition(sess Session, utterance string, cat Catalog, labels Labels) (Session, Effect) {
	if utterance == labels.Restart {
		return fieldChoice(labels)
	}
	if utterance == labels.Back && !sess.Offers(utterance) {
		return back(sess, cat, labels)
	}

	switch sess.Step {
	case StepAwaitingFieldChoice:
		if !sess.Offers(utterance) {
			return reject(sess, labels)
		}
		return chooseField(utterance, cat, labels)

	case StepAwaitingLetter:
		if !sess.Offers(utterance) {
			return reject(sess, labels)
		}
		next, eff, ok := itemChoice(sess.Field, utterance, cat, labels)
		if !ok {
			return reject(sess, labels)
		}
		return next, eff

	case StepAwaitingItem:
		if !sess.Offers(utterance) {
			return reject(sess, labels)
		}
		next, eff, ok := pairChoice(sess.Field, sess.Letter, utterance, cat, labels)
		if !ok {
			return reject(sess, labels)
		}
		return next, eff

	case StepAwaitingConfirmation:
		if !sess.Offers(utterance) {
			return reject(sess, labels)
		}
		track, err := domain.ParseLabel(utterance)
		if err != nil {
			return reject(sess, labels)
		}
		return NewSession(), Effect{
			Announce: &track,
			Prompt: &Prompt{
				Text:   labels.Announced,
				Nav:    []string{labels.Restart},
				Layout: LayoutFields,
			},
		}

	default:
		// Start behaves as the field choice step, so a field label advances
		// right away. Anything else opens the menu.
		if utterance == labels.ChooseAuthor || utterance == labels.ChooseSong {
			return chooseField(utterance, cat, labels)
		}
		return fieldChoice(labels)
	}
}

func chooseField(utterance string, cat Catalog, labels Labels) (Session, Effect) {
	field := domain.FieldAuthor
	if utterance == labels.ChooseSong {
		field = domain.FieldSong
	}
	return letterChoice(field, cat, labels)
}

func fieldChoice(labels Labels) (Session, Effect) {
	options := []string{labels.ChooseAuthor, labels.ChooseSong}
	sess := Session{Step: StepAwaitingFieldChoice, Offered: options}
	return sess, Effect{Prompt: promptFor(sess, labels)}
}

func catalogUnavailable(labels Labels) (Session, Effect) {
	sess, eff := fieldChoice(labels)
	eff.Notice = NoticeCatalogUnavailable
	return sess, eff
}

func letterChoice(field domain.Field, cat Catalog, labels Labels) (Session, Effect) {
	keyboard, err := cat.KeyboardFor(field)
	if err != nil || len(keyboard) == 0 {
		return catalogUnavailable(labels)
	}
	sess := Session{Step: StepAwaitingLetter, Field: field, Offered: keyboard}
	return sess, Effect{Prompt: promptFor(sess, labels)}
}

// itemChoice reports ok=false when the letter has no values, which is a
// rejection rather than a dead-end prompt.
func itemChoice(field domain.Field, letter string, cat Catalog, labels Labels) (Session, Effect, bool) {
	values, err := cat.QueryByFieldPrefix(field, letter)
	if err != nil {
		sess, eff := catalogUnavailable(labels)
		return sess, eff, true
	}
	if len(values) == 0 {
		return Session{}, Effect{}, false
	}
	sess := Session{Step: StepAwaitingItem, Field: field, Letter: letter, Offered: values}
	return sess, Effect{Prompt: promptFor(sess, labels)}, true
}

func pairChoice(field domain.Field, letter, item string, cat Catalog, labels Labels) (Session, Effect, bool) {
	tracks, err := cat.QueryPairsByField(field, item)
	if err != nil {
		sess, eff := catalogUnavailable(labels)
		return sess, eff, true
	}
	if len(tracks) == 0 {
		return Session{}, Effect{}, false
	}

	options := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if label := t.Label(); !slices.Contains(options, label) {
			options = append(options, label)
		}
	}
	sess := Session{
		Step:    StepAwaitingConfirmation,
		Field:   field,
		Letter:  letter,
		Item:    item,
		Offered: options,
	}
	return sess, Effect{Prompt: promptFor(sess, labels)}, true
}

func back(sess Session, cat Catalog, labels Labels) (Session, Effect) {
	switch sess.Step {
	case StepAwaitingItem:
		return letterChoice(sess.Field, cat, labels)
	case StepAwaitingConfirmation:
		if next, eff, ok := itemChoice(sess.Field, sess.Letter, cat, labels); ok {
			return next, eff
		}
		return letterChoice(sess.Field, cat, labels)
	default:
		return fieldChoice(labels)
	}
}

func reject(sess Session, labels Labels) (Session, Effect) {
	return sess, Effect{Prompt: promptFor(sess, labels), Notice: NoticeInvalidInput}
}

// promptFor renders the prompt for the session's current step and offers.
func promptFor(sess Session, labels Labels) *Prompt {
	p := &Prompt{
		Options: slices.Clone(sess.Offered),
		Nav:     []string{labels.Back, labels.Restart},
	}
	switch sess.Step {
	case StepAwaitingLetter:
		p.Text = labels.letterPrompt(sess.Field)
		p.Layout = LayoutLetters
	case StepAwaitingItem:
		p.Text = labels.itemPrompt(sess.Field)
		p.Layout = LayoutItems
	case StepAwaitingConfirmation:
		p.Text = labels.ConfirmPrompt
		p.Layout = LayoutPairs
	default:
		p.Text = labels.FieldPrompt
		p.Layout = LayoutFields
		p.Nav = nil
	}
	return p
}
