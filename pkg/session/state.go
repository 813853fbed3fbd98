package session

import "errors"

// State is the controller's lifecycle position. Legal transitions:
// Initializing → Ready → Saving → Ready (loop), with Closed terminal from
// any state.
type State int

const (
	// StateInitializing covers entry-mode resolution and the initial load,
	// until the first fragment has been handed to the editor.
	StateInitializing State = iota
	// StateReady accepts every authoring operation.
	StateReady
	// StateSaving marks an in-flight submit; mutations are rejected.
	StateSaving
	// StateClosed is terminal: the session navigated away or submitted.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrClosed rejects operations on a session that already ended.
	ErrClosed = errors.New("session: closed")
	// ErrNotReady rejects operations while initializing or saving.
	ErrNotReady = errors.New("session: not ready")
	// ErrTemplateNameRequired blocks submit without a template name.
	ErrTemplateNameRequired = errors.New("session: template name is required")
	// ErrConfirmationDeclined reports a destructive toggle the user refused.
	ErrConfirmationDeclined = errors.New("session: confirmation declined")
)
