// Package fault defines the closed error taxonomy shared by the tool
// handlers, the protocol endpoint, and the chat orchestrator.
//
// Every failure that crosses a layer boundary is a *Fault carrying one of
// the fixed kinds below. The internal message and wrapped cause are for
// logging only; the wire never sees them. UserMessage provides the total
// mapping from kind to the one user-safe sentence shown to end users.
package fault

import (
	"errors"
	"fmt"
)

// Kind is one of the closed set of failure categories.
type Kind string

const (
	// Task failures.
	TaskNotFound     Kind = "TASK_NOT_FOUND"
	InvalidTitle     Kind = "INVALID_TITLE"
	AlreadyCompleted Kind = "ALREADY_COMPLETED"
	NoChanges        Kind = "NO_CHANGES"

	// Conversation failures.
	ConversationNotFound Kind = "CONVERSATION_NOT_FOUND"
	InvalidConversation  Kind = "INVALID_CONVERSATION"

	// Dispatch failures.
	UnknownTool Kind = "UNKNOWN_TOOL"

	// General failures.
	DatabaseError      Kind = "DATABASE_ERROR"
	DecisionLayerError Kind = "DECISION_LAYER_ERROR"
	AuthError          Kind = "AUTH_ERROR"
	ValidationError    Kind = "VALIDATION_ERROR"
	UnknownError       Kind = "UNKNOWN_ERROR"
)

// Fault is a typed failure raised at a handler or orchestrator boundary.
type Fault struct {
	Kind    Kind
	Message string // internal detail, for logs only
	cause   error
}

// New creates a Fault with an internal message.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a Fault wrapping an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func (f *Fault) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.cause }

// KindOf extracts the taxonomy kind from any error. The mapping is total:
// errors that are not Faults are classified as UnknownError.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return UnknownError
}

// IsValidation reports whether a kind belongs to the validation/lookup
// class, which the protocol endpoint maps to JSON-RPC invalid params.
func IsValidation(kind Kind) bool {
	switch kind {
	case TaskNotFound, InvalidTitle, AlreadyCompleted, NoChanges,
		ConversationNotFound, InvalidConversation, UnknownTool, ValidationError:
		return true
	default:
		return false
	}
}

// userMessages maps every kind to exactly one user-safe sentence.
var userMessages = map[Kind]string{
	TaskNotFound:         "I couldn't find that task. Would you like me to show your current tasks?",
	InvalidTitle:         "The task title seems too long. Could you shorten it a bit?",
	AlreadyCompleted:     "That task is already marked as complete.",
	NoChanges:            "I didn't receive any changes to make. What would you like to update - the title or description?",
	ConversationNotFound: "I couldn't find that conversation. Let's start a new one!",
	InvalidConversation:  "There's an issue with this conversation. Let's start fresh!",
	UnknownTool:          "I tried to do something I don't know how to do. Could you rephrase your request?",
	DatabaseError:        "I'm having trouble right now. Please try again in a moment.",
	DecisionLayerError:   "I'm having trouble right now. Please try again in a moment.",
	AuthError:            "Please sign in to continue.",
	ValidationError:      "I didn't quite understand that. Could you rephrase your request?",
	UnknownError:         "Something unexpected happened. Please try again in a moment.",
}

// UserMessage returns the user-safe sentence for a kind. Unrecognized kinds
// fall back to the UnknownError sentence, keeping the mapping total.
func UserMessage(kind Kind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[UnknownError]
}
