package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("another scrubwatch instance is running")
	ErrUnknownPool    = errors.New("pool does not exist on the system")
)

// MalformedStatusError reports zpool status output the parser does not
// recognize. It is fatal: a format change in the external tool must not be
// silently misread as a scan state.
type MalformedStatusError struct {
	Pool   string
	Output string
}

func (e *MalformedStatusError) Error() string {
	if e.Pool == "" {
		return "unexpected zpool status output format"
	}
	return fmt.Sprintf("unexpected zpool status output format for pool %q", e.Pool)
}

// StartTimeoutError means a scrub did not visibly begin within the start
// budget. Detail carries the last raw detail seen, which may be a stale
// completion left over from a prior scrub.
type StartTimeoutError struct {
	Pool   string
	Budget time.Duration
	Detail string
}

func (e *StartTimeoutError) Error() string {
	return fmt.Sprintf("scrub on pool %q did not start within %s", e.Pool, e.Budget)
}

// ExternalToolError wraps a failed zpool invocation.
type ExternalToolError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("running %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}
