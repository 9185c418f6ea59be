package output

import (
	"context"

	"operator-verify/internal/domain/entity"
)

// BrowserPort is one browser session with a single page. Actions wait for the
// element to become actionable up to the adapter's action timeout; Expect*
// calls poll up to the assertion timeout.
type BrowserPort interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, loc entity.Locator) error
	Fill(ctx context.Context, loc entity.Locator, text string) error

	ExpectHidden(ctx context.Context, loc entity.Locator) error
	ExpectVisible(ctx context.Context, loc entity.Locator) error
	ExpectDisabled(ctx context.Context, loc entity.Locator) error
	ExpectEnabled(ctx context.Context, loc entity.Locator) error

	Screenshot(ctx context.Context) (*entity.Screenshot, error)
	Snapshot(ctx context.Context) (string, error)

	CurrentURL() string
	Close()
}
