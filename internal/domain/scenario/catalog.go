package scenario

import (
	"fmt"
	"path"
	"sort"
	"time"

	"operator-verify/internal/domain/entity"
	"operator-verify/internal/domain/testid"
)

const (
	MaintenanceLockName   = "maintenance_lock"
	MaintenanceUnlockName = "maintenance_unlock"

	DefaultOperatorURL  = "http://localhost:5173/operator"
	DefaultArtifactsDir = "jules-scratch/verification"
	DefaultSettleDelay  = 10 * time.Second

	// machine 1 with cause 3 is the seeded combination that opens a maintenance ticket
	lockMachineID = 1
	lockCauseID   = 3
	lockProductID = 1
	lockTicketID  = 1
)

// Options carries the values a run may override; zero fields fall back to defaults.
type Options struct {
	OperatorURL  string
	ArtifactsDir string
	SettleDelay  time.Duration
}

func (o Options) withDefaults() Options {
	if o.OperatorURL == "" {
		o.OperatorURL = DefaultOperatorURL
	}
	if o.ArtifactsDir == "" {
		o.ArtifactsDir = DefaultArtifactsDir
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	return o
}

func click(id string) entity.Step {
	return entity.Step{Kind: entity.StepClick, Locator: entity.ByTestID(id)}
}

func fill(id, value string) entity.Step {
	return entity.Step{Kind: entity.StepFill, Locator: entity.ByTestID(id), Value: value}
}

func lockSteps(o Options) []entity.Step {
	return []entity.Step{
		{Kind: entity.StepSettle, Name: "wait for operator server", Delay: o.SettleDelay},
		{Kind: entity.StepNavigate, Name: "open operator view", URL: o.OperatorURL},

		click(testid.ConfigureMachine),
		fill(testid.Passcode, "1234"),
		click(testid.VerifyPasscode),
		click(testid.SelectMachine(lockMachineID)),

		click(testid.StartBatch),
		fill(testid.ProductSearch, "Product A"),
		click(testid.BatchProductSelect),
		click(testid.ProductOption(lockProductID)),
		fill(testid.PlannedQuantity, "100"),
		click(testid.ConfirmStartBatch),

		{Kind: entity.StepClick, Name: "select maintenance cause", Locator: entity.ByTestID(testid.Cause(lockCauseID))},

		{
			Kind:    entity.StepExpectHidden,
			Name:    "stoppage causes hidden",
			Locator: entity.ByText(testid.StoppageCausesTag, testid.StoppageCausesHeading),
		},
		{Kind: entity.StepExpectVisible, Name: "resume visible", Locator: entity.ByTestID(testid.ResumeProduction)},
		{Kind: entity.StepExpectDisabled, Name: "resume disabled", Locator: entity.ByTestID(testid.ResumeProduction)},
	}
}

// MaintenanceLock drives the operator view into the maintenance lock and
// captures the locked dashboard. The ticket_closed transition is not driven.
func MaintenanceLock(o Options) entity.Scenario {
	o = o.withDefaults()
	steps := lockSteps(o)
	steps = append(steps, entity.Step{
		Kind: entity.StepScreenshot,
		Name: "capture locked screen",
		Path: path.Join(o.ArtifactsDir, "locked_screen.png"),
	})
	return entity.Scenario{Name: MaintenanceLockName, Steps: steps}
}

// MaintenanceUnlock extends the lock scenario with a ticket_closed event from
// the fake event source. It only passes when the operator UI listens to that source.
func MaintenanceUnlock(o Options) entity.Scenario {
	o = o.withDefaults()
	ev := entity.TicketClosed(lockTicketID, lockMachineID)
	steps := lockSteps(o)
	steps = append(steps,
		entity.Step{
			Kind: entity.StepScreenshot,
			Name: "capture locked screen",
			Path: path.Join(o.ArtifactsDir, "locked_screen.png"),
		},
		entity.Step{Kind: entity.StepEmitEvent, Name: "close maintenance ticket", Event: &ev},
		entity.Step{Kind: entity.StepExpectEnabled, Name: "resume enabled", Locator: entity.ByTestID(testid.ResumeProduction)},
		entity.Step{
			Kind: entity.StepScreenshot,
			Name: "capture unlocked screen",
			Path: path.Join(o.ArtifactsDir, "unlocked_screen.png"),
		},
	)
	return entity.Scenario{Name: MaintenanceUnlockName, Steps: steps}
}

var builtins = map[string]func(Options) entity.Scenario{
	MaintenanceLockName:   MaintenanceLock,
	MaintenanceUnlockName: MaintenanceUnlock,
}

func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ByName(name string, o Options) (entity.Scenario, error) {
	build, ok := builtins[name]
	if !ok {
		return entity.Scenario{}, fmt.Errorf("%w: unknown scenario %q (known: %v)", entity.ErrInvalidScenario, name, Names())
	}
	return build(o), nil
}
