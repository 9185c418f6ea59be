package entity

import (
	"fmt"
	"time"
)

type StepKind string

const (
	StepSettle         StepKind = "settle"
	StepNavigate       StepKind = "navigate"
	StepClick          StepKind = "click"
	StepFill           StepKind = "fill"
	StepExpectHidden   StepKind = "expect_hidden"
	StepExpectVisible  StepKind = "expect_visible"
	StepExpectDisabled StepKind = "expect_disabled"
	StepExpectEnabled  StepKind = "expect_enabled"
	StepEmitEvent      StepKind = "emit_event"
	StepScreenshot     StepKind = "screenshot"
)

func (k StepKind) String() string {
	return string(k)
}

// Locator addresses one element on the page. TestID wins when both forms are set.
type Locator struct {
	TestID string `yaml:"test_id,omitempty" json:"test_id,omitempty"`
	Tag    string `yaml:"tag,omitempty" json:"tag,omitempty"`
	Text   string `yaml:"text,omitempty" json:"text,omitempty"`
}

func ByTestID(id string) Locator {
	return Locator{TestID: id}
}

func ByText(tag, text string) Locator {
	return Locator{Tag: tag, Text: text}
}

func (l Locator) IsZero() bool {
	return l.TestID == "" && l.Text == ""
}

// CSS returns the attribute selector for test id locators and the bare tag otherwise.
func (l Locator) CSS() string {
	if l.TestID != "" {
		return fmt.Sprintf(`[data-testid=%q]`, l.TestID)
	}
	if l.Tag == "" {
		return "*"
	}
	return l.Tag
}

func (l Locator) String() string {
	if l.TestID != "" {
		return "testid=" + l.TestID
	}
	return fmt.Sprintf("%s:has-text(%q)", l.CSS(), l.Text)
}

type Step struct {
	Kind    StepKind      `yaml:"kind" json:"kind"`
	Name    string        `yaml:"name,omitempty" json:"name,omitempty"`
	Locator Locator       `yaml:"locator,omitempty" json:"locator,omitempty"`
	Value   string        `yaml:"value,omitempty" json:"value,omitempty"`
	URL     string        `yaml:"url,omitempty" json:"url,omitempty"`
	Path    string        `yaml:"path,omitempty" json:"path,omitempty"`
	Delay   time.Duration `yaml:"delay,omitempty" json:"delay,omitempty"`
	Event   *Event        `yaml:"event,omitempty" json:"event,omitempty"`
}

// Label is the name used in logs and errors.
func (s Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	switch s.Kind {
	case StepNavigate:
		return fmt.Sprintf("%s %s", s.Kind, s.URL)
	case StepScreenshot:
		return fmt.Sprintf("%s %s", s.Kind, s.Path)
	case StepEmitEvent:
		if s.Event != nil {
			return fmt.Sprintf("%s %s", s.Kind, s.Event.Type)
		}
	case StepSettle:
		return s.Kind.String()
	}
	if !s.Locator.IsZero() {
		return fmt.Sprintf("%s %s", s.Kind, s.Locator)
	}
	return s.Kind.String()
}

func (s Step) Validate() error {
	switch s.Kind {
	case StepSettle:
		if s.Delay < 0 {
			return fmt.Errorf("%w: settle delay must not be negative", ErrInvalidScenario)
		}
	case StepNavigate:
		if s.URL == "" {
			return fmt.Errorf("%w: navigate step needs a url", ErrInvalidScenario)
		}
	case StepClick, StepExpectHidden, StepExpectVisible, StepExpectDisabled, StepExpectEnabled:
		if s.Locator.IsZero() {
			return fmt.Errorf("%w: %s step needs a locator", ErrInvalidScenario, s.Kind)
		}
	case StepFill:
		if s.Locator.IsZero() {
			return fmt.Errorf("%w: fill step needs a locator", ErrInvalidScenario)
		}
	case StepEmitEvent:
		if s.Event == nil || s.Event.Type == "" {
			return fmt.Errorf("%w: emit_event step needs an event type", ErrInvalidScenario)
		}
	case StepScreenshot:
		if s.Path == "" {
			return fmt.Errorf("%w: screenshot step needs a path", ErrInvalidScenario)
		}
	default:
		return fmt.Errorf("%w: unknown step kind %q", ErrInvalidScenario, s.Kind)
	}
	return nil
}

type Scenario struct {
	Name  string `yaml:"name" json:"name"`
	Steps []Step `yaml:"steps" json:"steps"`
}

func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: scenario has no name", ErrInvalidScenario)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: scenario %s has no steps", ErrInvalidScenario, s.Name)
	}
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}
