package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCards is returned when a run finds no cards at all.
	ErrNoCards = errors.New("no cards found")
	// ErrNoNavigator is returned for a site whose flow is not known.
	ErrNoNavigator = errors.New("no navigator for flow")
)

// ErrorCode classifies why a run failed.
type ErrorCode string

const (
	ErrCodeConfig     ErrorCode = "CONFIG"
	ErrCodeNavigation ErrorCode = "NAVIGATION"
	ErrCodeNoCards    ErrorCode = "NO_CARDS"
	ErrCodePersist    ErrorCode = "PERSIST"
)

// RunError is a failed run with its store, week and cause.
type RunError struct {
	Code       ErrorCode
	Store      string
	Week       string
	Message    string
	Underlying error
}

func (e *RunError) Error() string {
	where := e.Store
	if e.Week != "" {
		where += "/" + e.Week
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, where, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, where, e.Message)
}

func (e *RunError) Unwrap() error {
	return e.Underlying
}

// Is matches another RunError by code.
func (e *RunError) Is(target error) bool {
	if t, ok := target.(*RunError); ok {
		return e.Code == t.Code
	}
	return false
}

func newRunError(code ErrorCode, store, week, message string, err error) *RunError {
	return &RunError{
		Code:       code,
		Store:      store,
		Week:       week,
		Message:    message,
		Underlying: err,
	}
}

// CodeOf returns the code of a RunError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
