package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"operator-verify/internal/di"
	"operator-verify/internal/domain/entity"
	"operator-verify/internal/domain/scenario"
	"operator-verify/internal/infrastructure/env"
	"operator-verify/internal/infrastructure/readiness"
)

func main() {
	os.Exit(run())
}

func run() int {
	envService := env.NewEnvService()

	opts := scenario.Options{
		OperatorURL:  envService.GetWithDefault("OPERATOR_URL", scenario.DefaultOperatorURL),
		ArtifactsDir: envService.GetWithDefault("ARTIFACTS_DIR", scenario.DefaultArtifactsDir),
		SettleDelay:  envService.GetDuration("SETTLE_DELAY", scenario.DefaultSettleDelay),
	}

	sc, err := loadScenario(envService.Get("SCENARIO_FILE"), envService.GetWithDefault("SCENARIO", scenario.MaintenanceLockName), opts)
	if err != nil {
		log.Printf("Scenario error: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, envService.GetDuration("RUN_TIMEOUT", 10*time.Minute))
	defer cancel()

	container, err := di.NewContainer(ctx, di.Config{
		RunName:         sc.Name,
		BrowserDriver:   envService.GetWithDefault("BROWSER_DRIVER", di.DriverRod),
		BrowserHeadless: envService.GetBool("BROWSER_HEADLESS", true),
		BrowserBin:      envService.Get("BROWSER_BIN"),
		ActionTimeout:   envService.GetDuration("ACTION_TIMEOUT", 30*time.Second),
		AssertTimeout:   envService.GetDuration("ASSERT_TIMEOUT", 5*time.Second),
		SettleMode:      envService.GetWithDefault("SETTLE_MODE", readiness.ModeSleep),
		ReadyTimeout:    envService.GetDuration("READY_TIMEOUT", 60*time.Second),
		ArtifactsDir:    opts.ArtifactsDir,
		EventSourceURL:  envService.Get("EVENT_SOURCE_URL"),
		ShowProgress:    envService.GetBool("SHOW_PROGRESS", true),
		LogDir:          envService.GetWithDefault("LOG_DIR", "log"),
		LogLevel:        envService.GetWithDefault("LOG_LEVEL", "info"),
	})
	if err != nil {
		log.Printf("Initialization failed: %v", err)
		return 1
	}
	defer container.Close()

	if _, err := container.Runner.Run(ctx, sc); err != nil {
		return 1
	}
	return 0
}

func loadScenario(file, name string, opts scenario.Options) (entity.Scenario, error) {
	if file != "" {
		return scenario.Load(file)
	}
	return scenario.ByName(name, opts)
}
