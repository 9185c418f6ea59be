package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"operator-verify/internal/infrastructure/env"
	"operator-verify/internal/infrastructure/eventsource"
	"operator-verify/internal/infrastructure/logger"
)

// eventsource serves a fake operator /ws channel that verify can drive with
// EVENT_SOURCE_URL to unlock the maintenance lock.
func main() {
	envService := env.NewEnvService()

	logCfg := logger.DefaultConfig()
	logCfg.Dir = envService.GetWithDefault("LOG_DIR", "log")
	logCfg.Level = envService.GetWithDefault("LOG_LEVEL", "info")
	zlog, err := logger.NewLoggerAdapter("eventsource", logCfg)
	if err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}
	defer zlog.Close()

	srv := eventsource.NewServer(zlog)
	base, err := srv.Start(envService.GetWithDefault("EVENT_SOURCE_ADDR", "127.0.0.1:5174"))
	if err != nil {
		zlog.Error("Event source failed to start", "error", err)
		return
	}
	defer srv.Close()

	zlog.Info("Point the operator UI websocket at this address", "ws", base+"/ws", "emit", base+"/emit")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}
