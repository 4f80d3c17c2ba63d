package session

import (
	"errors"
	"fmt"
)

// State is the orchestrator's lifecycle state.
type State int

const (
	Idle State = iota
	Measuring
	Capturing
	Stitching
	Done
	Failed
)

var stateNames = [...]string{"idle", "measuring", "capturing", "stitching", "done", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

var (
	// ErrBusy rejects a capture requested while another is running.
	ErrBusy = errors.New("capture already in progress")

	// ErrIllegalTransition reports a transition missing from the table.
	ErrIllegalTransition = errors.New("session: illegal state transition")

	// ErrNoDimensions is the failure reported when the page cannot be
	// measured. The message is part of the captureFullPage contract.
	ErrNoDimensions = errors.New("Failed to get page dimensions")
)

var transitions = map[State][]State{
	Idle:      {Measuring},
	Measuring: {Capturing, Failed},
	Capturing: {Stitching, Failed},
	Stitching: {Done, Failed},
	Done:      {Idle},
	Failed:    {Idle},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
