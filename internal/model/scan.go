package model

import (
	"time"

	"github.com/google/uuid"
)

// ScanStateKind discriminates ScanState.
type ScanStateKind int

const (
	// StateScanning - a scrub is in progress, Progress holds percent done.
	StateScanning ScanStateKind = iota + 1
	// StateNoErrors - the last scrub completed and found no data errors.
	StateNoErrors
	// StateErrors - the last scrub completed and found data errors.
	StateErrors
)

func (k ScanStateKind) String() string {
	switch k {
	case StateScanning:
		return "scanning"
	case StateNoErrors:
		return "no-errors"
	case StateErrors:
		return "errors"
	default:
		return "unknown"
	}
}

// ScanState is a single observation of a pool scrub, derived fresh from
// every status query and never mutated in place.
type ScanState struct {
	Kind      ScanStateKind
	Progress  float64 // percent done, only meaningful for StateScanning
	RawDetail string  // remainder of the errors: line, only for terminal states
}

func Scanning(percent float64) ScanState {
	return ScanState{Kind: StateScanning, Progress: percent}
}

func NoErrors(detail string) ScanState {
	return ScanState{Kind: StateNoErrors, RawDetail: detail}
}

func Errors(detail string) ScanState {
	return ScanState{Kind: StateErrors, RawDetail: detail}
}

// Terminal reports whether no further progress observation is expected.
func (s ScanState) Terminal() bool {
	return s.Kind == StateNoErrors || s.Kind == StateErrors
}

// OutcomeKind discriminates Outcome.
type OutcomeKind int

const (
	// OutcomeNoErrors - scrub ran to completion, pool is clean.
	OutcomeNoErrors OutcomeKind = iota + 1
	// OutcomeWithErrors - scrub ran to completion and found data errors.
	// This is a warning, not a supervision failure.
	OutcomeWithErrors
	// OutcomeStartFailed - the scrub never visibly began within the start
	// budget.
	OutcomeStartFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNoErrors:
		return "no-errors"
	case OutcomeWithErrors:
		return "with-errors"
	case OutcomeStartFailed:
		return "start-failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of one supervised scrub, handed to the
// reporting sink exactly once.
type Outcome struct {
	Kind   OutcomeKind
	Pool   string
	Detail string
}

// Session is the ephemeral state of one supervised scrub. It exists from
// confirmed start until the outcome is delivered.
type Session struct {
	ID           uuid.UUID
	Pool         string
	Started      time.Time
	LastProgress float64
	Outcome      *Outcome
}

func NewSession(pool string) *Session {
	return &Session{
		ID:      uuid.New(),
		Pool:    pool,
		Started: time.Now().UTC(),
	}
}
