package llm

import (
	"errors"
	"strings"
)

// ErrEmptyReply marks a model call that succeeded without any text.
var ErrEmptyReply = errors.New("model returned no text")

// ReplyKind tags what a model call produced.
type ReplyKind int

const (
	// ReplyError means the call failed; Err is set.
	ReplyError ReplyKind = iota

	// ReplyEmpty means the call succeeded with no text.
	ReplyEmpty

	// ReplyText means the call produced text.
	ReplyText
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyText:
		return "text"
	case ReplyEmpty:
		return "empty"
	default:
		return "error"
	}
}

// Reply is the outcome of one model call, decided once at the boundary so
// nothing downstream inspects provider payloads.
type Reply struct {
	Kind ReplyKind
	Text string
	Err  error
}

// TextReply builds a text reply, or an empty one when text is blank.
func TextReply(text string) Reply {
	if strings.TrimSpace(text) == "" {
		return Reply{Kind: ReplyEmpty}
	}
	return Reply{Kind: ReplyText, Text: text}
}

// ErrorReply builds an error reply.
func ErrorReply(err error) Reply {
	return Reply{Kind: ReplyError, Err: err}
}

// ReplyFromResponse classifies the result of a model call. A text reply
// carries the first non-blank text block.
func ReplyFromResponse(resp *ChatResponse, err error) Reply {
	if err != nil {
		return ErrorReply(err)
	}
	if resp == nil {
		return Reply{Kind: ReplyEmpty}
	}
	return TextReply(resp.Message.FirstText())
}

// Display is what a user sees for the reply.
func (r Reply) Display() string {
	if r.Kind == ReplyText {
		return r.Text
	}
	return "(No response)"
}
