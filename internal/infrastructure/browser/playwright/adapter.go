package playwright

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"operator-verify/internal/application/port/output"
	"operator-verify/internal/domain/entity"
	"operator-verify/internal/infrastructure/browser/domsnapshot"

	pw "github.com/playwright-community/playwright-go"
)

var _ output.BrowserPort = (*BrowserAdapter)(nil)

type BrowserConfig struct {
	Headless          bool
	SlowMotion        time.Duration
	ExecutablePath    string
	SkipInstall       bool
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
	AssertTimeout     time.Duration
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          true,
		ActionTimeout:     30 * time.Second,
		NavigationTimeout: 30 * time.Second,
		AssertTimeout:     5 * time.Second,
	}
}

type BrowserAdapter struct {
	pw      *pw.Playwright
	browser pw.Browser
	page    pw.Page
	expect  pw.PlaywrightAssertions
	cfg     BrowserConfig

	mu     sync.Mutex
	closed bool
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

// NewBrowserAdapter starts the Playwright driver, installing Chromium first
// unless SkipInstall is set.
func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	def := DefaultConfig()
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = def.ActionTimeout
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = def.NavigationTimeout
	}
	if cfg.AssertTimeout <= 0 {
		cfg.AssertTimeout = def.AssertTimeout
	}

	if !cfg.SkipInstall {
		if err := pw.Install(&pw.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}

	driver, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	b := &BrowserAdapter{
		pw:     driver,
		expect: pw.NewPlaywrightAssertions(millis(cfg.AssertTimeout)),
		cfg:    cfg,
	}

	opts := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(cfg.Headless),
		SlowMo:   pw.Float(millis(cfg.SlowMotion)),
	}
	if cfg.ExecutablePath != "" {
		opts.ExecutablePath = pw.String(cfg.ExecutablePath)
	}

	b.browser, err = driver.Chromium.Launch(opts)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	bctx, err := b.browser.NewContext(pw.BrowserNewContextOptions{
		Viewport: &pw.Size{Width: 1280, Height: 720},
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("could not create context: %w", err)
	}

	b.page, err = bctx.NewPage()
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	b.page.SetDefaultTimeout(millis(cfg.ActionTimeout))
	b.page.SetDefaultNavigationTimeout(millis(cfg.NavigationTimeout))

	return b, nil
}

func (b *BrowserAdapter) live(ctx context.Context) (pw.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.page == nil {
		return nil, entity.ErrBrowserClosed
	}
	return b.page, nil
}

func (b *BrowserAdapter) locate(page pw.Page, loc entity.Locator) (pw.Locator, error) {
	if loc.IsZero() {
		return nil, entity.ErrInvalidLocator
	}
	if loc.TestID != "" {
		return page.GetByTestId(loc.TestID), nil
	}
	return page.Locator(loc.String()), nil
}

func (b *BrowserAdapter) Navigate(ctx context.Context, url string) error {
	page, err := b.live(ctx)
	if err != nil {
		return err
	}
	if _, err := page.Goto(url); err != nil {
		return fmt.Errorf("%w: %s: %v", entity.ErrNavigation, url, err)
	}
	return nil
}

// attached waits for loc to be in the DOM so a missing element is reported
// separately from one that never becomes actionable.
func (b *BrowserAdapter) attached(ctx context.Context, loc entity.Locator) (pw.Locator, error) {
	page, err := b.live(ctx)
	if err != nil {
		return nil, err
	}
	l, err := b.locate(page, loc)
	if err != nil {
		return nil, err
	}
	l = l.First()
	err = l.WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateAttached,
		Timeout: pw.Float(millis(b.cfg.ActionTimeout)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrElementNotFound, loc, err)
	}
	return l, nil
}

func actionErr(loc entity.Locator, action string, err error) error {
	if errors.Is(err, pw.ErrTimeout) {
		return fmt.Errorf("%w: %s %s: %v", entity.ErrElementNotActionable, action, loc, err)
	}
	return fmt.Errorf("%w: %s %s: %v", entity.ErrElementNotFound, action, loc, err)
}

func (b *BrowserAdapter) Click(ctx context.Context, loc entity.Locator) error {
	l, err := b.attached(ctx, loc)
	if err != nil {
		return err
	}
	if err := l.Click(); err != nil {
		return actionErr(loc, "click", err)
	}
	return nil
}

func (b *BrowserAdapter) Fill(ctx context.Context, loc entity.Locator, text string) error {
	l, err := b.attached(ctx, loc)
	if err != nil {
		return err
	}
	if err := l.Fill(text); err != nil {
		return actionErr(loc, "fill", err)
	}
	return nil
}

// assertion keeps the locator strict: more than one match fails the assertion.
func (b *BrowserAdapter) assertion(ctx context.Context, loc entity.Locator) (pw.LocatorAssertions, error) {
	page, err := b.live(ctx)
	if err != nil {
		return nil, err
	}
	l, err := b.locate(page, loc)
	if err != nil {
		return nil, err
	}
	return b.expect.Locator(l), nil
}

func assertErr(loc entity.Locator, want string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: expected %s to be %s: %v", entity.ErrAssertion, loc, want, err)
}

func (b *BrowserAdapter) ExpectHidden(ctx context.Context, loc entity.Locator) error {
	a, err := b.assertion(ctx, loc)
	if err != nil {
		return err
	}
	return assertErr(loc, "hidden", a.ToBeHidden())
}

func (b *BrowserAdapter) ExpectVisible(ctx context.Context, loc entity.Locator) error {
	a, err := b.assertion(ctx, loc)
	if err != nil {
		return err
	}
	return assertErr(loc, "visible", a.ToBeVisible())
}

func (b *BrowserAdapter) ExpectDisabled(ctx context.Context, loc entity.Locator) error {
	a, err := b.assertion(ctx, loc)
	if err != nil {
		return err
	}
	return assertErr(loc, "disabled", a.ToBeDisabled())
}

func (b *BrowserAdapter) ExpectEnabled(ctx context.Context, loc entity.Locator) error {
	a, err := b.assertion(ctx, loc)
	if err != nil {
		return err
	}
	return assertErr(loc, "enabled", a.ToBeEnabled())
}

func (b *BrowserAdapter) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	page, err := b.live(ctx)
	if err != nil {
		return nil, err
	}
	data, err := page.Screenshot(pw.PageScreenshotOptions{
		Type: pw.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot failed: %v", entity.ErrArtifact, err)
	}

	shot := &entity.Screenshot{Data: data, Format: "png"}
	if vp := page.ViewportSize(); vp != nil {
		shot.Width, shot.Height = vp.Width, vp.Height
	}
	return shot, nil
}

func (b *BrowserAdapter) Snapshot(ctx context.Context) (string, error) {
	page, err := b.live(ctx)
	if err != nil {
		return "", err
	}
	raw, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return domsnapshot.Clean(raw, nil), nil
}

func (b *BrowserAdapter) CurrentURL() string {
	page, err := b.live(context.Background())
	if err != nil {
		return ""
	}
	return page.URL()
}

// Close is safe to call more than once.
func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.pw != nil {
		_ = b.pw.Stop()
	}
}
