package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNavigation           = errors.New("navigation failed")
	ErrElementNotFound      = errors.New("element not found")
	ErrElementNotActionable = errors.New("element not actionable")
	ErrAssertion            = errors.New("assertion failed")
	ErrArtifact             = errors.New("artifact write failed")
	ErrEventSource          = errors.New("event source unavailable")
	ErrInvalidScenario      = errors.New("invalid scenario")
	ErrInvalidLocator       = errors.New("invalid locator")
	ErrBrowserClosed        = errors.New("browser closed")
)

// StepError reports which step of a scenario aborted the run.
type StepError struct {
	Index int
	Kind  StepKind
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
