// Package readiness decides when the operator server can be driven.
package readiness

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"operator-verify/internal/application/port/output"
	"operator-verify/internal/domain/entity"
)

const (
	ModeSleep = "sleep"
	ModeProbe = "probe"

	defaultProbeTimeout = 60 * time.Second
	defaultMinBackoff   = 250 * time.Millisecond
	defaultMaxBackoff   = 4 * time.Second
	defaultRequestWait  = 2 * time.Second
)

var (
	_ output.ReadinessPort = (*Sleep)(nil)
	_ output.ReadinessPort = (*Probe)(nil)
)

// Sleep waits the step's fixed delay and never inspects the target.
type Sleep struct {
	logger output.LoggerPort
}

func NewSleep(logger output.LoggerPort) *Sleep {
	return &Sleep{logger: logger}
}

func (s *Sleep) Settle(ctx context.Context, url string, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	s.logger.Info("Waiting for target to start", "delay", delay.String(), "url", url)

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type ProbeConfig struct {
	Timeout    time.Duration
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Client     *http.Client
}

func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Timeout:    defaultProbeTimeout,
		MinBackoff: defaultMinBackoff,
		MaxBackoff: defaultMaxBackoff,
	}
}

// Probe polls the target with GET until it answers below 500, doubling the
// pause between attempts up to MaxBackoff. The step's delay is ignored.
type Probe struct {
	cfg    ProbeConfig
	logger output.LoggerPort
}

func NewProbe(cfg ProbeConfig, logger output.LoggerPort) *Probe {
	def := DefaultProbeConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = def.MinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: defaultRequestWait}
	}
	return &Probe{cfg: cfg, logger: logger}
}

func (p *Probe) Settle(ctx context.Context, url string, _ time.Duration) error {
	if url == "" {
		return fmt.Errorf("%w: readiness probe has no target url", entity.ErrNavigation)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	backoff := p.cfg.MinBackoff
	for attempt := 1; ; attempt++ {
		status, err := p.check(ctx, url)
		if err == nil && status < http.StatusInternalServerError {
			p.logger.Info("Target ready", "url", url, "status", status, "attempts", attempt)
			return nil
		}
		p.logger.Debug("Target not ready", "url", url, "attempt", attempt, "status", status, "error", err)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			last := err
			if last == nil {
				last = fmt.Errorf("status %d", status)
			}
			return fmt.Errorf("%w: %s not ready after %s (%d attempts): %v",
				entity.ErrNavigation, url, p.cfg.Timeout, attempt, last)
		case <-t.C:
		}

		backoff *= 2
		if backoff > p.cfg.MaxBackoff {
			backoff = p.cfg.MaxBackoff
		}
	}
}

func (p *Probe) check(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.cfg.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// New picks the settle strategy by mode name. An empty mode means sleep.
func New(mode string, cfg ProbeConfig, logger output.LoggerPort) (output.ReadinessPort, error) {
	switch mode {
	case ModeSleep, "":
		return NewSleep(logger), nil
	case ModeProbe:
		return NewProbe(cfg, logger), nil
	}
	return nil, fmt.Errorf("unknown settle mode %q (want %s or %s)", mode, ModeSleep, ModeProbe)
}
