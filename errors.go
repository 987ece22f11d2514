package charlotte

import "errors"

// Sentinel errors for the Server lifecycle. Tool-level failures use the
// structured internal/toolerr taxonomy instead, since those cross the
// stdio wire to agents.
var (
	// ErrNotStarted is returned when Serve is called before Start.
	ErrNotStarted = errors.New("charlotte: server not started, call Start() first")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("charlotte: server already started")
)
