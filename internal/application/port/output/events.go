package output

import (
	"context"

	"operator-verify/internal/domain/entity"
)

// EventEmitterPort pushes a real-time event to the application under test.
type EventEmitterPort interface {
	Emit(ctx context.Context, ev entity.Event) error
}
