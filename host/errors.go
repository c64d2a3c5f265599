package host

import (
	"errors"
	"fmt"
)

var (
	// ErrNoImplementation is returned by Call when no subscriber on the
	// channel satisfies the requested version range.
	ErrNoImplementation = errors.New("no implementation")

	// ErrHostClosed is returned by every operation after Close.
	ErrHostClosed = errors.New("host is closed")
)

// ValidationError reports a malformed channel name or version segment.
type ValidationError struct {
	Channel string
	Reason  string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid channel %q: %s: %v", e.Channel, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid channel %q: %s", e.Channel, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// terminalFailure tags a subscriber error as must-propagate so the
// dispatch loop rethrows it through decorator levels instead of
// swallowing it.
type terminalFailure struct {
	err error
}

func (e *terminalFailure) Error() string { return e.err.Error() }

func (e *terminalFailure) Unwrap() error { return e.err }
