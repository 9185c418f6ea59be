package entity

import "time"

type RunStatus string

const (
	RunStatusPassed RunStatus = "passed"
	RunStatusFailed RunStatus = "failed"
)

type RunResult struct {
	RunID     string
	Scenario  string
	Status    RunStatus
	StepsRun  int
	Duration  time.Duration
	Artifacts []string
	Error     string
}
