package output

import (
	"context"
	"time"
)

// ReadinessPort blocks until the target at url is ready to be driven.
type ReadinessPort interface {
	Settle(ctx context.Context, url string, delay time.Duration) error
}
