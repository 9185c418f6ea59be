package output

import (
	"context"
	"time"

	"operator-verify/internal/domain/entity"
)

type ProgressPort interface {
	ShowStepStart(ctx context.Context, index, total int, step entity.Step)
	ShowStepResult(ctx context.Context, step entity.Step, elapsed time.Duration, err error)
	ShowRunResult(ctx context.Context, result *entity.RunResult, err error)
}
