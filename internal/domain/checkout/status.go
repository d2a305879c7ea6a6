// Package checkout drives a cart through payment into a confirmed or failed
// state.
package checkout

import "slices"

// Status is the checkout step.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusForm       Status = "form"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether a payment attempt has completed.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

func (s Status) String() string {
	return string(s)
}

// transitions lists the valid targets of each status. Every status may return
// to idle; that edge is only taken through Dismiss and Reset.
var transitions = map[Status][]Status{
	StatusIdle:       {StatusForm},
	StatusForm:       {StatusSubmitting, StatusIdle},
	StatusSubmitting: {StatusSucceeded, StatusFailed, StatusIdle},
	StatusSucceeded:  {StatusIdle},
	StatusFailed:     {StatusForm, StatusIdle},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

func validateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
