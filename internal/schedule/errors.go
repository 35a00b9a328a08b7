package schedule

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest = errors.New("invalid calculation request")
	ErrWalkLimit      = errors.New("session walk exceeded the iteration limit")
)

// Validation messages returned by Validate.
const (
	MsgEmptySchedule  = "Weekly schedule is empty"
	MsgMissingWeekday = "Missing weekday"
	MsgInvalidTime    = "Invalid time format"
	MsgEndBeforeStart = "End time must be after start time"
	MsgDuplicateDay   = "Duplicate weekday entry"
)

// ValidationError points at the schedule row that broke a rule.
// Slot is -1 for errors about the schedule as a whole.
type ValidationError struct {
	Slot    int    `json:"slot"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Slot < 0 {
		return e.Message
	}
	return fmt.Sprintf("slot %d: %s", e.Slot, e.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

func (v ValidationErrors) Messages() []string {
	out := make([]string, len(v))
	for i, e := range v {
		out[i] = e.Message
	}
	return out
}

// Has reports whether any entry carries msg.
func (v ValidationErrors) Has(msg string) bool {
	for _, e := range v {
		if e.Message == msg {
			return true
		}
	}
	return false
}

// CalculationError is returned by Calculate for input the validator does
// not cover, and for runaway walks.
type CalculationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *CalculationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *CalculationError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) error {
	return &CalculationError{Field: field, Reason: fmt.Sprintf(format, args...), Err: ErrInvalidRequest}
}
