package portal

import (
	"errors"

	"github.com/balkashynov/opsportal/internal/docstore"
)

var (
	// ErrNotFound is the document store's not-found error
	ErrNotFound = docstore.ErrNotFound

	// ErrValidation means a request is missing or has malformed fields
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState means a value is not a task state usable here
	ErrInvalidState = errors.New("invalid task state")

	// ErrInvalidTransition means the state machine forbids the move
	ErrInvalidTransition = errors.New("invalid task transition")

	// ErrSessionActive means the location already has a running session
	ErrSessionActive = errors.New("location already has an active session")

	// ErrSessionEnded means the session was already stopped
	ErrSessionEnded = errors.New("session already ended")
)
