package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotPermitted     = errors.New("not permitted")
	ErrNotInRoom        = errors.New("not in a room")
	ErrAlreadyInRoom    = errors.New("already in a room")
	ErrNotConnected     = errors.New("signaling channel not connected")
	ErrRateLimited      = errors.New("rate limited")
	ErrInvalid          = errors.New("invalid action")
	ErrNotInBreakout    = errors.New("not in a breakout room")
	ErrMediaUnavailable = errors.New("media unavailable")
	ErrPeerUnreachable  = errors.New("peer unreachable")
)

// Reason is a machine readable cause attached to a rejected action.
type Reason string

const (
	ReasonEmptyBody       Reason = "empty-body"
	ReasonBodyTooLong     Reason = "body-too-long"
	ReasonEmptyQuestion   Reason = "empty-question"
	ReasonTooFewOptions   Reason = "too-few-options"
	ReasonTooManyOptions  Reason = "too-many-options"
	ReasonEmptyOption     Reason = "empty-option"
	ReasonUnknownPoll     Reason = "unknown-poll"
	ReasonUnknownOption   Reason = "unknown-option"
	ReasonPollInactive    Reason = "poll-inactive"
	ReasonAlreadyVoted    Reason = "already-voted"
	ReasonEmptyName       Reason = "empty-name"
	ReasonNameTooLong     Reason = "name-too-long"
	ReasonUnknownBreakout Reason = "unknown-breakout-room"
)

type ActionError struct {
	Op     string
	Reason Reason
	Err    error
}

func (e *ActionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *ActionError {
	return &ActionError{Op: op, Err: err}
}

// Rejected builds a validation failure for op.
func Rejected(op string, reason Reason) *ActionError {
	return &ActionError{Op: op, Reason: reason, Err: ErrInvalid}
}

// ReasonOf extracts the rejection reason, if any.
func ReasonOf(err error) Reason {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}
