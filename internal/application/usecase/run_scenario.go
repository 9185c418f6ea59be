package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"operator-verify/internal/application/port/input"
	"operator-verify/internal/application/port/output"
	"operator-verify/internal/domain/entity"

	"github.com/google/uuid"
)

var _ input.ScenarioRunner = (*RunScenarioUseCase)(nil)

type RunScenarioUseCase struct {
	browser   output.BrowserPort
	readiness output.ReadinessPort
	events    output.EventEmitterPort
	artifacts output.ArtifactPort
	logger    output.LoggerPort
	progress  output.ProgressPort

	failureDir string
	newRunID   func() string
}

type RunScenarioConfig struct {
	// FailureDir receives the screenshot and DOM of the page when a step fails.
	// Empty disables failure capture.
	FailureDir string
	// Progress is shown each step and the final result. Nil shows nothing.
	Progress output.ProgressPort
}

type nopProgress struct{}

func (nopProgress) ShowStepStart(context.Context, int, int, entity.Step) {}
func (nopProgress) ShowStepResult(context.Context, entity.Step, time.Duration, error) {}
func (nopProgress) ShowRunResult(context.Context, *entity.RunResult, error) {}

// NewRunScenarioUseCase takes ownership of browser: Run closes it.
// events may be nil when no event source is configured.
func NewRunScenarioUseCase(
	browser output.BrowserPort,
	readiness output.ReadinessPort,
	events output.EventEmitterPort,
	artifacts output.ArtifactPort,
	logger output.LoggerPort,
	cfg RunScenarioConfig,
) *RunScenarioUseCase {
	var progress output.ProgressPort = nopProgress{}
	if cfg.Progress != nil {
		progress = cfg.Progress
	}
	return &RunScenarioUseCase{
		browser:    browser,
		readiness:  readiness,
		events:     events,
		artifacts:  artifacts,
		logger:     logger,
		progress:   progress,
		failureDir: cfg.FailureDir,
		newRunID:   uuid.NewString,
	}
}

// Run executes the steps of sc in order and stops at the first failure.
// The browser session is closed exactly once before Run returns.
func (uc *RunScenarioUseCase) Run(ctx context.Context, sc entity.Scenario) (*entity.RunResult, error) {
	defer uc.browser.Close()

	runID := uc.newRunID()
	log := uc.logger.WithFields(map[string]any{
		"run_id":   runID,
		"scenario": sc.Name,
	})

	result := &entity.RunResult{
		RunID:    runID,
		Scenario: sc.Name,
		Status:   entity.RunStatusFailed,
	}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
	}()

	if err := sc.Validate(); err != nil {
		log.Error("Scenario rejected", "error", err)
		result.Error = err.Error()
		uc.progress.ShowRunResult(ctx, result, err)
		return result, err
	}

	log.Info("Scenario started", "steps", len(sc.Steps))

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return uc.fail(ctx, log, result, i, step, err)
		}

		stepLog := log.WithFields(map[string]any{
			"step":  i + 1,
			"kind":  step.Kind.String(),
			"label": step.Label(),
		})
		stepLog.Debug("Step started")
		uc.progress.ShowStepStart(ctx, i+1, len(sc.Steps), step)
		stepStart := time.Now()

		artifact, err := uc.execute(ctx, sc.Steps, i)
		result.StepsRun = i + 1
		uc.progress.ShowStepResult(ctx, step, time.Since(stepStart), err)
		if err != nil {
			stepLog.Error("Step failed", "error", err, "duration_ms", time.Since(stepStart).Milliseconds())
			return uc.fail(ctx, log, result, i, step, err)
		}
		if artifact != "" {
			result.Artifacts = append(result.Artifacts, artifact)
		}

		stepLog.Info("Step completed", "duration_ms", time.Since(stepStart).Milliseconds())
	}

	result.Status = entity.RunStatusPassed
	result.Duration = time.Since(start)
	log.Info("Scenario passed",
		"steps", result.StepsRun,
		"artifacts", result.Artifacts,
		"duration_ms", result.Duration.Milliseconds(),
	)
	uc.progress.ShowRunResult(ctx, result, nil)
	return result, nil
}

func (uc *RunScenarioUseCase) execute(ctx context.Context, steps []entity.Step, i int) (string, error) {
	step := steps[i]

	switch step.Kind {
	case entity.StepSettle:
		target := step.URL
		if target == "" {
			target = nextNavigateURL(steps[i+1:])
		}
		return "", uc.readiness.Settle(ctx, target, step.Delay)

	case entity.StepNavigate:
		return "", uc.browser.Navigate(ctx, step.URL)

	case entity.StepClick:
		return "", uc.browser.Click(ctx, step.Locator)

	case entity.StepFill:
		return "", uc.browser.Fill(ctx, step.Locator, step.Value)

	case entity.StepExpectHidden:
		return "", uc.browser.ExpectHidden(ctx, step.Locator)

	case entity.StepExpectVisible:
		return "", uc.browser.ExpectVisible(ctx, step.Locator)

	case entity.StepExpectDisabled:
		return "", uc.browser.ExpectDisabled(ctx, step.Locator)

	case entity.StepExpectEnabled:
		return "", uc.browser.ExpectEnabled(ctx, step.Locator)

	case entity.StepEmitEvent:
		if uc.events == nil {
			return "", fmt.Errorf("%w: no event source configured for %s", entity.ErrEventSource, step.Event.Type)
		}
		return "", uc.events.Emit(ctx, *step.Event)

	case entity.StepScreenshot:
		return uc.screenshot(ctx, step.Path)
	}

	return "", fmt.Errorf("%w: unknown step kind %q", entity.ErrInvalidScenario, step.Kind)
}

func (uc *RunScenarioUseCase) screenshot(ctx context.Context, path string) (string, error) {
	shot, err := uc.browser.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	if len(shot.Data) == 0 {
		return "", fmt.Errorf("%w: empty screenshot for %s", entity.ErrArtifact, path)
	}
	return uc.artifacts.Save(ctx, path, shot.Data)
}

func (uc *RunScenarioUseCase) fail(
	ctx context.Context,
	log output.LoggerPort,
	result *entity.RunResult,
	i int,
	step entity.Step,
	err error,
) (*entity.RunResult, error) {
	stepErr := &entity.StepError{
		Index: i + 1,
		Kind:  step.Kind,
		Name:  step.Label(),
		Err:   err,
	}
	result.Error = stepErr.Error()
	result.Artifacts = append(result.Artifacts, uc.captureFailure(ctx, log, result.RunID)...)

	log.Error("Scenario failed", "error", stepErr, "steps", result.StepsRun, "url", uc.browser.CurrentURL())
	uc.progress.ShowRunResult(ctx, result, stepErr)
	return result, stepErr
}

// captureFailure is best effort: its own errors are logged and dropped.
func (uc *RunScenarioUseCase) captureFailure(ctx context.Context, log output.LoggerPort, runID string) []string {
	if uc.failureDir == "" {
		return nil
	}
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}

	var saved []string
	base := filepath.Join(uc.failureDir, "failure_"+runID)

	if shot, err := uc.browser.Screenshot(ctx); err != nil {
		log.Warn("Failure screenshot skipped", "error", err)
	} else if path, err := uc.artifacts.Save(ctx, base+".png", shot.Data); err != nil {
		log.Warn("Failure screenshot not saved", "error", err)
	} else {
		saved = append(saved, path)
	}

	if dom, err := uc.browser.Snapshot(ctx); err != nil {
		log.Warn("Failure DOM snapshot skipped", "error", err)
	} else if path, err := uc.artifacts.Save(ctx, base+".html", []byte(dom)); err != nil {
		log.Warn("Failure DOM snapshot not saved", "error", err)
	} else {
		saved = append(saved, path)
	}

	return saved
}

func nextNavigateURL(steps []entity.Step) string {
	for _, s := range steps {
		if s.Kind == entity.StepNavigate {
			return s.URL
		}
	}
	return ""
}
