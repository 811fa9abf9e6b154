// Package notify builds the transient toast messages shown after an operation.
package notify

import (
	"errors"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// DefaultDuration is how long a toast stays visible.
const DefaultDuration = 2500 * time.Millisecond

type Toast struct {
	Level      Level  `json:"level"`
	Message    string `json:"message"`
	DurationMs int64  `json:"durationMs"`
}

func Success(msg string) Toast {
	return Toast{Level: LevelSuccess, Message: msg, DurationMs: DefaultDuration.Milliseconds()}
}

func Failure(msg string) Toast {
	return Toast{Level: LevelError, Message: msg, DurationMs: DefaultDuration.Milliseconds()}
}

// Generic is the message for network and store failures.
const Generic = "Something went wrong"

// ErrInline marks errors rendered next to the offending field, never as a toast.
var ErrInline = errors.New("shown inline")

// Conflict is a duplicate-resource error carrying its own toast text.
type Conflict struct {
	Message string
}

func (c *Conflict) Error() string { return c.Message }

// FromError maps an operation error to a toast. The second result is false
// when there is nothing to show as a toast.
func FromError(err error) (Toast, bool) {
	var conflict *Conflict
	switch {
	case err == nil:
		return Toast{}, false
	case errors.Is(err, ErrInline):
		return Toast{}, false
	case errors.As(err, &conflict):
		return Failure(conflict.Message), true
	default:
		return Failure(Generic), true
	}
}
