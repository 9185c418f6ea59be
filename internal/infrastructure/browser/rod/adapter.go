package rod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"operator-verify/internal/application/port/output"
	"operator-verify/internal/domain/entity"
	"operator-verify/internal/infrastructure/browser/domsnapshot"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var _ output.BrowserPort = (*BrowserAdapter)(nil)

const (
	defaultActionTimeout     = 30 * time.Second
	defaultNavigationTimeout = 30 * time.Second
	defaultAssertTimeout     = 5 * time.Second
	defaultPollInterval      = 100 * time.Millisecond
	defaultIdleWait          = 500 * time.Millisecond
	defaultViewportWidth     = 1280
	defaultViewportHeight    = 720
)

// disabledJS treats aria-disabled and a disabled fieldset ancestor like the
// native attribute, since component libraries render all three.
const disabledJS = `() => this.disabled === true ||
	this.getAttribute('aria-disabled') === 'true' ||
	this.closest('fieldset[disabled]') !== null`

type BrowserAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	cfg      BrowserConfig

	mu     sync.Mutex
	closed bool
}

type BrowserConfig struct {
	Headless          bool
	NoSandbox         bool
	Bin               string
	SlowMotion        time.Duration
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
	AssertTimeout     time.Duration
	PollInterval      time.Duration
	IdleWait          time.Duration
	// ScreenshotMaxWidth downsizes wider screenshots; 0 keeps the viewport size.
	ScreenshotMaxWidth int
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          true,
		NoSandbox:         true,
		ActionTimeout:     defaultActionTimeout,
		NavigationTimeout: defaultNavigationTimeout,
		AssertTimeout:     defaultAssertTimeout,
		PollInterval:      defaultPollInterval,
		IdleWait:          defaultIdleWait,
	}
}

func (c BrowserConfig) withDefaults() BrowserConfig {
	def := DefaultConfig()
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = def.ActionTimeout
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = def.NavigationTimeout
	}
	if c.AssertTimeout <= 0 {
		c.AssertTimeout = def.AssertTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	return c
}

// NewBrowserAdapter launches a local Chromium and opens one blank page.
func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	cfg = cfg.withDefaults()

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(controlURL).
		SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	adapter := &BrowserAdapter{
		browser:  browser,
		launcher: l,
		cfg:      cfg,
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		adapter.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             defaultViewportWidth,
		Height:            defaultViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		adapter.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}
	adapter.page = page

	return adapter, nil
}

func (b *BrowserAdapter) live(ctx context.Context) (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.page == nil {
		return nil, entity.ErrBrowserClosed
	}
	return b.page.Context(ctx), nil
}

func (b *BrowserAdapter) Navigate(ctx context.Context, rawURL string) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}
	page, err := b.live(ctx)
	if err != nil {
		return err
	}

	p := page.Timeout(b.cfg.NavigationTimeout)
	defer p.CancelTimeout()

	if err := p.Navigate(rawURL); err != nil {
		return fmt.Errorf("%w: %s: %v", entity.ErrNavigation, rawURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %s did not finish loading: %v", entity.ErrNavigation, rawURL, err)
	}
	return nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return fmt.Errorf("%w: invalid url %q", entity.ErrNavigation, rawURL)
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	}
	return fmt.Errorf("%w: unsupported scheme in %q", entity.ErrNavigation, rawURL)
}

func (b *BrowserAdapter) Click(ctx context.Context, loc entity.Locator) error {
	page, err := b.live(ctx)
	if err != nil {
		return err
	}

	p := page.Timeout(b.cfg.ActionTimeout)
	defer p.CancelTimeout()

	el, err := b.actionable(ctx, p, loc)
	if err != nil {
		return err
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: click %s: %v", classify(ctx, err), loc, err)
	}

	if b.cfg.IdleWait > 0 {
		_ = page.WaitIdle(b.cfg.IdleWait)
	}
	return nil
}

func (b *BrowserAdapter) Fill(ctx context.Context, loc entity.Locator, text string) error {
	page, err := b.live(ctx)
	if err != nil {
		return err
	}

	p := page.Timeout(b.cfg.ActionTimeout)
	defer p.CancelTimeout()

	el, err := b.actionable(ctx, p, loc)
	if err != nil {
		return err
	}

	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("%w: fill %s: %v", classify(ctx, err), loc, err)
	}
	return nil
}

// actionable waits for loc to exist and then to be visible and enabled,
// both within p's timeout.
func (b *BrowserAdapter) actionable(ctx context.Context, p *rod.Page, loc entity.Locator) (*rod.Element, error) {
	el, err := find(p, loc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrElementNotFound, loc, err)
	}

	var visible, disabled bool
	for {
		visible, err = el.Visible()
		if err == nil && visible {
			disabled, err = isDisabled(el)
			if err == nil && !disabled {
				return el, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.GetContext().Done():
			reason := "hidden"
			if visible {
				reason = "disabled"
			}
			return nil, fmt.Errorf("%w: %s stayed %s for %s", entity.ErrElementNotActionable, loc, reason, b.cfg.ActionTimeout)
		case <-time.After(b.cfg.PollInterval):
		}
	}
}

func find(p *rod.Page, loc entity.Locator) (*rod.Element, error) {
	if loc.IsZero() {
		return nil, entity.ErrInvalidLocator
	}
	if loc.TestID != "" {
		return p.Element(loc.CSS())
	}
	return p.ElementR(loc.CSS(), regexp.QuoteMeta(loc.Text))
}

// lookup returns every element loc matches in the current DOM, without waiting.
func lookup(p *rod.Page, loc entity.Locator) (rod.Elements, error) {
	if loc.IsZero() {
		return nil, entity.ErrInvalidLocator
	}
	els, err := p.Elements(loc.CSS())
	if err != nil || loc.TestID != "" {
		return els, err
	}

	var matched rod.Elements
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			return nil, err
		}
		if strings.Contains(text, loc.Text) {
			matched = append(matched, el)
		}
	}
	return matched, nil
}

func isDisabled(el *rod.Element) (bool, error) {
	res, err := el.Eval(disabledJS)
	if err != nil {
		return false, err
	}
	return truthy(res.Value), nil
}

func truthy(v gson.JSON) bool {
	return !v.Nil() && v.Bool()
}

// elementState is what the Expect* assertions poll on.
type elementState struct {
	present  bool
	visible  bool
	disabled bool
}

// state fails when loc matches more than one element, so an assertion never
// passes on whichever duplicate happens to come first.
func (b *BrowserAdapter) state(p *rod.Page, loc entity.Locator) (elementState, error) {
	els, err := lookup(p, loc)
	if err != nil || len(els) == 0 {
		return elementState{}, err
	}
	if len(els) > 1 {
		return elementState{present: true}, fmt.Errorf("%s matches %d elements", loc, len(els))
	}

	el := els[0]
	st := elementState{present: true}
	if st.visible, err = el.Visible(); err != nil {
		return elementState{}, err
	}
	if st.disabled, err = isDisabled(el); err != nil {
		return elementState{}, err
	}
	return st, nil
}

func (b *BrowserAdapter) expect(ctx context.Context, loc entity.Locator, want string, ok func(elementState) bool) error {
	page, err := b.live(ctx)
	if err != nil {
		return err
	}
	if loc.IsZero() {
		return entity.ErrInvalidLocator
	}

	deadline := time.NewTimer(b.cfg.AssertTimeout)
	defer deadline.Stop()

	var last elementState
	var lastErr error
	for {
		st, err := b.state(page, loc)
		if err == nil && ok(st) {
			return nil
		}
		last, lastErr = st, err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if lastErr != nil {
				return fmt.Errorf("%w: expected %s to be %s: %v", entity.ErrAssertion, loc, want, lastErr)
			}
			return fmt.Errorf("%w: expected %s to be %s within %s (present=%t visible=%t disabled=%t)",
				entity.ErrAssertion, loc, want, b.cfg.AssertTimeout, last.present, last.visible, last.disabled)
		case <-time.After(b.cfg.PollInterval):
		}
	}
}

func (b *BrowserAdapter) ExpectHidden(ctx context.Context, loc entity.Locator) error {
	return b.expect(ctx, loc, "hidden", func(s elementState) bool {
		return !s.present || !s.visible
	})
}

func (b *BrowserAdapter) ExpectVisible(ctx context.Context, loc entity.Locator) error {
	return b.expect(ctx, loc, "visible", func(s elementState) bool {
		return s.present && s.visible
	})
}

func (b *BrowserAdapter) ExpectDisabled(ctx context.Context, loc entity.Locator) error {
	return b.expect(ctx, loc, "disabled", func(s elementState) bool {
		return s.present && s.disabled
	})
}

func (b *BrowserAdapter) ExpectEnabled(ctx context.Context, loc entity.Locator) error {
	return b.expect(ctx, loc, "enabled", func(s elementState) bool {
		return s.present && !s.disabled
	})
}

// Screenshot captures the viewport as PNG.
func (b *BrowserAdapter) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	page, err := b.live(ctx)
	if err != nil {
		return nil, err
	}

	p := page.Timeout(b.cfg.ActionTimeout)
	defer p.CancelTimeout()

	raw, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot failed: %v", entity.ErrArtifact, err)
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: image decode failed: %v", entity.ErrArtifact, err)
	}

	return encodePNG(img, b.cfg.ScreenshotMaxWidth)
}

func encodePNG(img image.Image, maxWidth int) (*entity.Screenshot, error) {
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: png encode failed: %v", entity.ErrArtifact, err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "png",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

// Snapshot returns the cleaned body HTML of the current page.
func (b *BrowserAdapter) Snapshot(ctx context.Context) (string, error) {
	page, err := b.live(ctx)
	if err != nil {
		return "", err
	}

	p := page.Timeout(b.cfg.ActionTimeout)
	defer p.CancelTimeout()

	raw, err := p.HTML()
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
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (b *BrowserAdapter) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && b.page != nil
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
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

// classify maps rod interaction errors onto the harness taxonomy.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var covered *rod.CoveredError
	var notInteractable *rod.NotInteractableError
	var invisible *rod.InvisibleShapeError
	switch {
	case errors.As(err, &covered), errors.As(err, &notInteractable), errors.As(err, &invisible):
		return entity.ErrElementNotActionable
	case errors.Is(err, context.DeadlineExceeded):
		return entity.ErrElementNotActionable
	}
	return entity.ErrElementNotFound
}
