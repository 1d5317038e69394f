package telegram

import (
	"strings"

	tgbot "github.com/go-telegram/bot"
)

// EscapeMarkdown escapes text for a MarkdownV2 reply so that upstream
// content is shown literally and cannot unbalance the reply's own markup.
func EscapeMarkdown(text string) string {
	return tgbot.EscapeMarkdown(strings.ReplaceAll(text, `\`, `\\`))
}
