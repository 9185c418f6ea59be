package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"operator-verify/internal/application/port/output"
	"operator-verify/internal/domain/entity"

	"github.com/fatih/color"
)

var _ output.ProgressPort = (*Progress)(nil)

// Progress prints one line per step and a final PASS/FAIL summary.
type Progress struct {
	out io.Writer
}

func NewProgress(out io.Writer) *Progress {
	if out == nil {
		out = os.Stdout
	}
	return &Progress{out: out}
}

func (p *Progress) ShowStepStart(ctx context.Context, index, total int, step entity.Step) {
	icon, name := stepDisplay(step.Kind)

	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(p.out, "\n[%d/%d] %s %s\n", index, total, icon, name)

	if summary := stepSummary(step); summary != "" {
		dim := color.New(color.Faint)
		dim.Fprintf(p.out, "   %s\n", summary)
	}
}

func (p *Progress) ShowStepResult(ctx context.Context, step entity.Step, elapsed time.Duration, err error) {
	if err != nil {
		red := color.New(color.FgRed)
		red.Fprint(p.out, "✗ ")

		dim := color.New(color.Faint)
		dim.Fprintln(p.out, truncate(err.Error(), 300))
		return
	}

	green := color.New(color.FgGreen)
	green.Fprintf(p.out, "✓ %s\n", elapsed.Round(time.Millisecond))
}

func (p *Progress) ShowRunResult(ctx context.Context, result *entity.RunResult, err error) {
	if err != nil {
		red := color.New(color.FgRed, color.Bold)
		red.Fprintf(p.out, "\nFAIL %s after %d step(s)\n", result.Scenario, result.StepsRun)
		color.New(color.Faint).Fprintf(p.out, "   %s\n", err)
	} else {
		green := color.New(color.FgGreen, color.Bold)
		green.Fprintf(p.out, "\nPASS %s (%d steps, %s)\n", result.Scenario, result.StepsRun, result.Duration.Round(time.Millisecond))
	}

	cyan := color.New(color.FgCyan)
	for _, a := range result.Artifacts {
		cyan.Fprintf(p.out, "   artifact: %s\n", a)
	}
}

func stepDisplay(kind entity.StepKind) (string, string) {
	displays := map[entity.StepKind][2]string{
		entity.StepSettle:         {"⏳", "Settle"},
		entity.StepNavigate:       {"🌐", "Navigate"},
		entity.StepClick:          {"🖱️", "Click"},
		entity.StepFill:           {"✏️", "Fill"},
		entity.StepExpectHidden:   {"🔍", "Expect hidden"},
		entity.StepExpectVisible:  {"🔍", "Expect visible"},
		entity.StepExpectDisabled: {"🔍", "Expect disabled"},
		entity.StepExpectEnabled:  {"🔍", "Expect enabled"},
		entity.StepEmitEvent:      {"📡", "Emit event"},
		entity.StepScreenshot:     {"📸", "Screenshot"},
	}

	if d, ok := displays[kind]; ok {
		return d[0], d[1]
	}
	return "•", kind.String()
}

func stepSummary(step entity.Step) string {
	var parts []string
	if step.Name != "" {
		parts = append(parts, step.Name)
	}

	switch step.Kind {
	case entity.StepSettle:
		if step.Delay > 0 {
			parts = append(parts, step.Delay.String())
		}
	case entity.StepNavigate:
		parts = append(parts, step.URL)
	case entity.StepFill:
		parts = append(parts, fmt.Sprintf("%s = %q", step.Locator, step.Value))
	case entity.StepEmitEvent:
		if step.Event != nil {
			parts = append(parts, fmt.Sprintf("%s machine=%d ticket=%d", step.Event.Type, step.Event.MachineID, step.Event.TicketID))
		}
	case entity.StepScreenshot:
		parts = append(parts, step.Path)
	default:
		if !step.Locator.IsZero() {
			parts = append(parts, step.Locator.String())
		}
	}

	return strings.Join(parts, " · ")
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
