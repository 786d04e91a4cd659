package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/callguard/component"
	goerrors "github.com/kbukum/callguard/errors"
	"github.com/kbukum/callguard/logger"
	"github.com/kbukum/callguard/resilience"
)

// Prober issues a request to the target on every tick through the manager.
type Prober struct {
	settings ProbeSettings
	manager  *resilience.Manager
	client   *http.Client
	log      *logger.Logger

	consecutiveFailures atomic.Int64
	lastStatus          atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ component.Component = (*Prober)(nil)

// NewProber creates a prober. A nil client uses one bounded by the probe timeout.
func NewProber(settings ProbeSettings, m *resilience.Manager, client *http.Client, log *logger.Logger) *Prober {
	if client == nil {
		client = &http.Client{Timeout: settings.Timeout}
	}
	if log == nil {
		log = logger.Get("probe")
	}
	return &Prober{settings: settings, manager: m, client: client, log: log}
}

// Name implements component.Component.
func (p *Prober) Name() string {
	return "probe"
}

// Start runs the first probe immediately and then one per interval.
func (p *Prober) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.settings.Interval)
		defer ticker.Stop()
		for {
			p.ProbeOnce(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

// Stop cancels the loop and waits for an in-flight probe to return.
func (p *Prober) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health is unhealthy after UnhealthyAfter consecutive failures and
// degraded after any failure. The message carries the last status seen.
func (p *Prober) Health(_ context.Context) component.Health {
	failures := p.consecutiveFailures.Load()
	h := component.Health{Name: p.Name(), Status: component.StatusHealthy}
	switch {
	case failures >= int64(p.settings.UnhealthyAfter):
		h.Status = component.StatusUnhealthy
		h.Message = fmt.Sprintf("%d consecutive probe failures", failures)
	case failures > 0:
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("%d consecutive probe failures", failures)
	}
	if status := p.lastStatus.Load(); status > 0 {
		if h.Message != "" {
			h.Message += ", "
		}
		h.Message += fmt.Sprintf("last status %d", status)
	}
	return h
}

// ProbeOnce performs a single guarded request and returns its status code.
// The status is 0 when no response arrived.
func (p *Prober) ProbeOnce(ctx context.Context) (int, error) {
	status, err := resilience.Execute(ctx, p.manager, p.settings.Method, p.settings.Target, p.call)
	if err != nil {
		status, _ = goerrors.StatusCode(err)
		if !rejected(err) {
			p.lastStatus.Store(int64(status))
		}
		n := p.consecutiveFailures.Add(1)
		p.log.Warn("Probe failed", logger.Fields(
			"target", p.settings.Target,
			"consecutive_failures", n,
			"error", err.Error(),
		))
		return status, err
	}
	p.consecutiveFailures.Store(0)
	p.lastStatus.Store(int64(status))
	p.log.Debug("Probe succeeded", logger.Fields("target", p.settings.Target, "status", status))
	return status, nil
}

// call returns an AppError carrying the status for every non-2xx response
// so retry classification can read it.
func (p *Prober) call(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, p.settings.Method, p.settings.Target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", serviceName)

	resp, err := p.client.Do(req)
	if err != nil {
		// No response arrived, so the error carries no status.
		connErr := goerrors.ConnectionFailed(p.settings.Target).WithCause(err)
		connErr.HTTPStatus = 0
		return 0, connErr
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, goerrors.FromStatus(resp.StatusCode, fmt.Sprintf("%s %s: %s", p.settings.Method, p.settings.Target, resp.Status))
	}
	return resp.StatusCode, nil
}

// rejected reports whether the manager refused the call before the target
// was contacted.
func rejected(err error) bool {
	return errors.Is(err, resilience.ErrCircuitOpen) ||
		errors.Is(err, resilience.ErrRateLimitTimeout) ||
		errors.Is(err, resilience.ErrBulkheadFull) ||
		errors.Is(err, resilience.ErrBulkheadTimeout)
}
