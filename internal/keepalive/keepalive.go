package keepalive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HealthPath is appended to the base URL on every ping.
const HealthPath = "/api/health"

// Pinger periodically calls the service's own health endpoint so that hosts
// which idle inactive instances keep it awake.
type Pinger struct {
	client   *resty.Client
	interval time.Duration
	log      *zap.Logger
}

// New creates a pinger for baseURL. It returns nil when baseURL is empty.
func New(baseURL string, interval time.Duration, log *zap.Logger) *Pinger {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Pinger{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10*time.Second).
			SetHeader("Accept", "application/json"),
		interval: interval,
		log:      log,
	}
}

// Ping performs one health request.
func (p *Pinger) Ping(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get(HealthPath)
	if err != nil {
		return fmt.Errorf("self-ping: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("self-ping: status %d", resp.StatusCode())
	}
	return nil
}

// Run pings every interval until ctx is cancelled.
func (p *Pinger) Run(ctx context.Context) {
	if p == nil {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("self-ping started", zap.String("url", p.client.BaseURL+HealthPath), zap.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.log.Info("self-ping stopped")
			return
		case <-ticker.C:
			if err := p.Ping(ctx); err != nil {
				p.log.Warn("self-ping failed", zap.Error(err))
				continue
			}
			p.log.Debug("self-ping ok")
		}
	}
}
