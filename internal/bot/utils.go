package bot

import "regexp"

// CommandPattern returns the pattern for a bare slash command, e.g.
// CommandPattern("quote") matches exactly "/quote".
func CommandPattern(command string) string {
	return "^/" + regexp.QuoteMeta(command) + "$"
}

// CommandWithArgPattern returns the pattern for a slash command followed by
// one space and a free-form argument captured under group.
//
//	CommandWithArgPattern("leli", "term") // ^/leli (?P<term>.+)$
func CommandWithArgPattern(command, group string) string {
	return "^/" + regexp.QuoteMeta(command) + " (?P<" + group + ">.+)$"
}
