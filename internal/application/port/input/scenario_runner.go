package input

import (
	"context"

	"operator-verify/internal/domain/entity"
)

type ScenarioRunner interface {
	Run(ctx context.Context, sc entity.Scenario) (*entity.RunResult, error)
}
