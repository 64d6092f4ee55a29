// Package health polls workload HTTP endpoints for readiness.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/loykin/replicad/internal/detector"
)

// Terminal poll failures. Anything else during a single attempt is swallowed
// and retried.
var (
	ErrDeadlineExceeded = errors.New("health check deadline exceeded")
	ErrProcessDied      = errors.New("workload process died during health check")
)

// attemptTimeout bounds each individual probe so one hung connection cannot
// stall the loop beyond a single interval.
const attemptTimeout = 10 * time.Second

// Prober polls a workload for readiness and fetches diagnostics. The single
// implementation is HTTPProber; the interface exists so worker bring-up can
// be exercised without a network stack.
type Prober interface {
	PollUntilHealthy(ctx context.Context, baseURL string, timeout, interval time.Duration, pid int) error
	FetchDiagnostics(ctx context.Context, baseURL string) map[string]any
}

// HTTPProber probes GET {base}/health until 200.
type HTTPProber struct {
	client *http.Client
	logger *slog.Logger
}

func NewHTTPProber() *HTTPProber {
	return &HTTPProber{
		client: &http.Client{Timeout: attemptTimeout},
		logger: slog.Default().With("subsystem", "health"),
	}
}

// PollUntilHealthy returns nil once a 200 is observed, ErrDeadlineExceeded
// when timeout elapses, and ErrProcessDied when pid (if non-zero) is found
// dead between attempts, without waiting out the remaining deadline.
func (p *HTTPProber) PollUntilHealthy(ctx context.Context, baseURL string, timeout, interval time.Duration, pid int) error {
	healthURL := baseURL + "/health"
	deadline := time.Now().Add(timeout)
	attempt := 0

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempt++
		if p.attempt(ctx, healthURL, attempt) {
			p.logger.Info("health check passed", "url", healthURL, "attempt", attempt)
			return nil
		}
		if pid > 0 && !detector.PIDAlive(pid) {
			p.logger.Error("workload died during health poll", "pid", pid, "attempt", attempt)
			return fmt.Errorf("%w (pid %d)", ErrProcessDied, pid)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	p.logger.Error("health check timed out", "url", healthURL, "timeout", timeout, "attempts", attempt)
	return fmt.Errorf("%w after %s (%d attempts)", ErrDeadlineExceeded, timeout, attempt)
}

func (p *HTTPProber) attempt(ctx context.Context, url string, attempt int) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("health attempt failed", "attempt", attempt, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		p.logger.Debug("health attempt not ready", "attempt", attempt, "status", resp.StatusCode)
		return false
	}
	return true
}

// FetchDiagnostics performs a single best-effort GET {base}/diagnostics.
// Any failure yields nil, never an error.
func (p *HTTPProber) FetchDiagnostics(ctx context.Context, baseURL string) map[string]any {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/diagnostics", nil)
	if err != nil {
		return nil
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("diagnostics not available", "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		p.logger.Debug("diagnostics endpoint returned non-200", "status", resp.StatusCode)
		return nil
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		p.logger.Debug("diagnostics payload not decodable", "error", err)
		return nil
	}
	return payload
}
