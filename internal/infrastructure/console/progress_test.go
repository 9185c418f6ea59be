package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"operator-verify/internal/domain/entity"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newTestProgress(t *testing.T) (*Progress, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	return NewProgress(&buf), &buf
}

func TestProgress_Steps(t *testing.T) {
	p, buf := newTestProgress(t)
	ctx := context.Background()

	step := entity.Step{Kind: entity.StepFill, Locator: entity.ByTestID("input-passcode"), Value: "1234"}
	p.ShowStepStart(ctx, 4, 17, step)
	p.ShowStepResult(ctx, step, 1500*time.Microsecond, nil)

	out := buf.String()
	assert.Contains(t, out, "[4/17] ✏️ Fill")
	assert.Contains(t, out, `testid=input-passcode = "1234"`)
	assert.Contains(t, out, "✓ 2ms")
}

func TestProgress_StepFailure(t *testing.T) {
	p, buf := newTestProgress(t)

	p.ShowStepResult(context.Background(), entity.Step{Kind: entity.StepClick}, time.Second, errors.New(strings.Repeat("x", 400)))

	out := buf.String()
	assert.Contains(t, out, "✗ ")
	assert.Contains(t, out, strings.Repeat("x", 300)+"...")
	assert.NotContains(t, out, strings.Repeat("x", 301))
}

func TestProgress_RunResult(t *testing.T) {
	p, buf := newTestProgress(t)
	ctx := context.Background()

	result := &entity.RunResult{
		Scenario:  "maintenance_lock",
		StepsRun:  17,
		Duration:  12 * time.Second,
		Artifacts: []string{"jules-scratch/verification/locked_screen.png"},
	}
	p.ShowRunResult(ctx, result, nil)
	assert.Contains(t, buf.String(), "PASS maintenance_lock (17 steps, 12s)")
	assert.Contains(t, buf.String(), "artifact: jules-scratch/verification/locked_screen.png")

	buf.Reset()
	result.StepsRun = 13
	p.ShowRunResult(ctx, result, errors.New("step 13 (click testid=button-cause-3) failed"))
	assert.Contains(t, buf.String(), "FAIL maintenance_lock after 13 step(s)")
	assert.Contains(t, buf.String(), "button-cause-3")
}

func TestStepDisplay(t *testing.T) {
	icon, name := stepDisplay(entity.StepScreenshot)
	assert.Equal(t, "📸", icon)
	assert.Equal(t, "Screenshot", name)

	icon, name = stepDisplay("hover")
	assert.Equal(t, "•", icon)
	assert.Equal(t, "hover", name)
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// "ç" spans bytes 5 and 6
	got := truncate("Produção parada", 6)
	assert.Equal(t, "Produ...", got)
	assert.True(t, utf8.ValidString(got))

	assert.Equal(t, "Produç...", truncate("Produção parada", 7))
	assert.Equal(t, "curto", truncate("curto", 10))
}
