package webhook

import (
	"strings"

	"github.com/go-telegram/bot/models"
)

// stripBotMention removes the "@<username>" suffix Telegram appends to
// commands in group chats, so "/leli@tululbot x" becomes "/leli x".
// Commands addressed to a different bot are left untouched.
func stripBotMention(text, username string) string {
	if username == "" || !strings.HasPrefix(text, "/") {
		return text
	}
	end := strings.IndexAny(text, " \n")
	if end < 0 {
		end = len(text)
	}
	cmd := text[:end]
	at := strings.IndexByte(cmd, '@')
	if at < 0 || !strings.EqualFold(cmd[at+1:], username) {
		return text
	}
	return cmd[:at] + text[end:]
}

// rewritePromptReply turns an answer to one of the bot's prompts into the
// command that asked it, e.g. a reply "tulul" to "Apa yang mau dileli?"
// becomes "/leli tulul".
func rewritePromptReply(text string, replyTo *models.Message, isSelf func(*models.User) bool, prompts map[string]string) string {
	if replyTo == nil || strings.HasPrefix(text, "/") || !isSelf(replyTo.From) {
		return text
	}
	cmd, ok := prompts[replyTo.Text]
	if !ok {
		return text
	}
	return cmd + " " + text
}
