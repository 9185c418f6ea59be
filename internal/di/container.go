package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"operator-verify/internal/application/port/input"
	"operator-verify/internal/application/port/output"
	"operator-verify/internal/application/usecase"
	"operator-verify/internal/infrastructure/artifact"
	"operator-verify/internal/infrastructure/browser/playwright"
	"operator-verify/internal/infrastructure/browser/rod"
	"operator-verify/internal/infrastructure/console"
	"operator-verify/internal/infrastructure/eventsource"
	"operator-verify/internal/infrastructure/logger"
	"operator-verify/internal/infrastructure/readiness"
)

const (
	DriverRod        = "rod"
	DriverPlaywright = "playwright"
)

type Container struct {
	Browser   output.BrowserPort
	Logger    output.LoggerPort
	Readiness output.ReadinessPort
	Events    output.EventEmitterPort
	Artifacts output.ArtifactPort
	Runner    input.ScenarioRunner
}

type Config struct {
	RunName string

	BrowserDriver   string
	BrowserHeadless bool
	BrowserBin      string
	ActionTimeout   time.Duration
	AssertTimeout   time.Duration

	SettleMode   string
	ReadyTimeout time.Duration

	ArtifactsDir   string
	EventSourceURL string
	ShowProgress   bool

	LogDir   string
	LogLevel string
}

// NewContainer launches the browser last; the runner it builds owns the browser.
func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	logCfg := logger.DefaultConfig()
	if cfg.LogDir != "" {
		logCfg.Dir = cfg.LogDir
	}
	if cfg.LogLevel != "" {
		logCfg.Level = cfg.LogLevel
	}
	log, err := logger.NewLoggerAdapter(cfg.RunName, logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	var events output.EventEmitterPort
	if cfg.EventSourceURL != "" {
		client, err := eventsource.NewClient(cfg.EventSourceURL)
		if err != nil {
			log.Close()
			return nil, fmt.Errorf("failed to create event source client: %w", err)
		}
		events = client
	}

	ready, err := readiness.New(cfg.SettleMode, readiness.ProbeConfig{Timeout: cfg.ReadyTimeout}, log.Named("readiness"))
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create readiness check: %w", err)
	}
	artifacts := artifact.NewFileStore("")

	browser, err := newBrowser(ctx, cfg)
	if err != nil {
		log.Error("Browser launch failed", "driver", cfg.BrowserDriver, "error", err)
		log.Close()
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}

	runCfg := usecase.RunScenarioConfig{FailureDir: cfg.ArtifactsDir}
	if cfg.ShowProgress {
		runCfg.Progress = console.NewProgress(os.Stdout)
	}
	runner := usecase.NewRunScenarioUseCase(browser, ready, events, artifacts, log.Named("runner"), runCfg)

	return &Container{
		Browser:   browser,
		Logger:    log,
		Readiness: ready,
		Events:    events,
		Artifacts: artifacts,
		Runner:    runner,
	}, nil
}

func newBrowser(ctx context.Context, cfg Config) (output.BrowserPort, error) {
	switch cfg.BrowserDriver {
	case DriverPlaywright:
		pwCfg := playwright.DefaultConfig()
		pwCfg.Headless = cfg.BrowserHeadless
		pwCfg.ExecutablePath = cfg.BrowserBin
		pwCfg.ActionTimeout = cfg.ActionTimeout
		pwCfg.NavigationTimeout = cfg.ActionTimeout
		pwCfg.AssertTimeout = cfg.AssertTimeout
		return playwright.NewBrowserAdapter(ctx, pwCfg)

	case DriverRod, "":
		rodCfg := rod.DefaultConfig()
		rodCfg.Headless = cfg.BrowserHeadless
		rodCfg.Bin = cfg.BrowserBin
		rodCfg.ActionTimeout = cfg.ActionTimeout
		rodCfg.NavigationTimeout = cfg.ActionTimeout
		rodCfg.AssertTimeout = cfg.AssertTimeout
		return rod.NewBrowserAdapter(ctx, rodCfg)
	}
	return nil, fmt.Errorf("unknown browser driver %q", cfg.BrowserDriver)
}

// Close releases the logger and any browser a Run did not get to close.
// Browser adapters ignore a second Close.
func (c *Container) Close() {
	if c.Browser != nil {
		c.Browser.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
