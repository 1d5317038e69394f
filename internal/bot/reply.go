// Package bot implements the command dispatcher: an ordered table of regex
// patterns, each bound to a handler, together with the reply contract
// handlers use to answer. It knows nothing about Telegram.
package bot

// Result is what a handler returns. It is implemented only by Text and
// Reply, so a handler can answer with a bare string or with a string plus
// display options and nothing else.
type Result interface {
	reply() Reply
}

// Text is a plain reply with default display options.
type Text string

func (t Text) reply() Reply {
	return Reply{Text: string(t)}
}

// Reply is the normalized reply a transport delivers.
type Reply struct {
	Text string

	// SuppressPreview asks the transport not to unfurl links in Text.
	SuppressPreview bool

	// Markdown renders Text as MarkdownV2. Literal text in it must be
	// escaped by the handler.
	Markdown bool

	// ForceReply asks the client to open a reply box to this message.
	ForceReply bool

	// Detached sends Text to the chat without threading it to the
	// message that triggered the command.
	Detached bool

	// ForwardMessageID, when non-zero, forwards that message from the same
	// chat instead of sending Text.
	ForwardMessageID int
}

func (r Reply) reply() Reply {
	return r
}

// IsEmpty reports whether delivering r would send nothing.
func (r Reply) IsEmpty() bool {
	return r.Text == "" && r.ForwardMessageID == 0
}

// Normalize converts any handler result into a Reply. Text becomes a Reply
// with default options; a Reply is returned unchanged. A nil result is a
// programming error and panics.
func Normalize(r Result) Reply {
	if r == nil {
		panic("bot: handler returned a nil result")
	}
	return r.reply()
}
