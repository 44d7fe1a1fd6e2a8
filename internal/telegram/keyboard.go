package telegram

import (
	"slices"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/songrequest/server/internal/dialog"
)

// rowWidth is the number of option buttons per keyboard row.
func rowWidth(layout dialog.Layout) int {
	switch layout {
	case dialog.LayoutLetters:
		return 5
	case dialog.LayoutItems, dialog.LayoutFields:
		return 2
	default:
		return 1
	}
}

// Keyboard renders a prompt's options as a one-time reply keyboard with the
// navigation buttons on their own last row. A prompt without buttons removes
// the keyboard.
func Keyboard(p dialog.Prompt) any {
	var rows [][]tgbotapi.KeyboardButton
	for chunk := range slices.Chunk(p.Options, rowWidth(p.Layout)) {
		rows = append(rows, buttonRow(chunk))
	}
	if len(p.Nav) > 0 {
		rows = append(rows, buttonRow(p.Nav))
	}

	if len(rows) == 0 {
		return tgbotapi.NewRemoveKeyboard(true)
	}

	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.OneTimeKeyboard = true
	return markup
}

func buttonRow(labels []string) []tgbotapi.KeyboardButton {
	row := make([]tgbotapi.KeyboardButton, 0, len(labels))
	for _, label := range labels {
		row = append(row, tgbotapi.NewKeyboardButton(label))
	}
	return row
}
