package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Messages holds every user-facing text of the bot.
// Button labels double as the accepted utterances, so they must be unique.
type Messages struct {
	ChooseAuthor string `yaml:"choose_author" validate:"required"`
	ChooseSong   string `yaml:"choose_song" validate:"required"`
	Restart      string `yaml:"restart" validate:"required"`
	Back         string `yaml:"back" validate:"required"`

	FieldPrompt        string `yaml:"field_prompt" validate:"required"`
	AuthorLetterPrompt string `yaml:"author_letter_prompt" validate:"required"`
	SongLetterPrompt   string `yaml:"song_letter_prompt" validate:"required"`
	AuthorItemPrompt   string `yaml:"author_item_prompt" validate:"required"`
	SongItemPrompt     string `yaml:"song_item_prompt" validate:"required"`
	ConfirmPrompt      string `yaml:"confirm_prompt" validate:"required"`
	InvalidInput       string `yaml:"invalid_input" validate:"required"`
	CatalogUnavailable string `yaml:"catalog_unavailable" validate:"required"`
	Announced          string `yaml:"announced" validate:"required"`
	CatalogUpdated     string `yaml:"catalog_updated" validate:"required"`

	// Announcement is posted to the channel; {track} is replaced with "<author> - <song>".
	Announcement string `yaml:"announcement" validate:"required"`
	Help         string `yaml:"help" validate:"required"`
	// UploadOK and UploadFailed accept {count} and {error} placeholders.
	UploadOK     string `yaml:"upload_ok" validate:"required"`
	UploadFailed string `yaml:"upload_failed" validate:"required"`
}

// DefaultMessages returns the built-in English texts.
func DefaultMessages() Messages {
	return Messages{
		ChooseAuthor: "choose author",
		ChooseSong:   "choose song",
		Restart:      "start over",
		Back:         "back",

		FieldPrompt:        "What do you want to choose?",
		AuthorLetterPrompt: "Which letter does the author's name start with?",
		SongLetterPrompt:   "Which letter does the song title start with?",
		AuthorItemPrompt:   "Choose the author",
		SongItemPrompt:     "Choose the song",
		ConfirmPrompt:      "Choose the track",
		InvalidInput:       "Invalid input, please try again",
		CatalogUnavailable: "Catalog unavailable, please upload a catalog file",
		Announced:          "Request sent. Press the button to continue",
		CatalogUpdated:     "The tracklist was updated, let's start over",

		Announcement: "{track} is next",
		Help: "Send any message to start choosing a song.\n" +
			"Upload a text file with \"author - song\" lines to replace the tracklist.",
		UploadOK:     "Catalog loaded: {count} tracks",
		UploadFailed: "Load failed, catalog unchanged: {error}",
	}
}

// LoadMessages reads a YAML file and overlays it on base.
// Keys missing from the file keep their base value.
func LoadMessages(path string, base Messages) (Messages, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- operator-supplied messages file
	if err != nil {
		return base, fmt.Errorf("read messages file: %w", err)
	}

	msgs := base
	if err := yaml.Unmarshal(data, &msgs); err != nil {
		return base, fmt.Errorf("parse messages file %s: %w", path, err)
	}

	buttons := map[string]string{}
	for name, label := range map[string]string{
		"choose_author": msgs.ChooseAuthor,
		"choose_song":   msgs.ChooseSong,
		"restart":       msgs.Restart,
		"back":          msgs.Back,
	} {
		if other, dup := buttons[label]; dup {
			return base, fmt.Errorf("messages file %s: %s and %s share the label %q", path, other, name, label)
		}
		buttons[label] = name
	}

	return msgs, nil
}
