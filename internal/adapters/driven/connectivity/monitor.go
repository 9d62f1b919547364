package connectivity

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/logger"
)

// Ensure Monitor implements the interface.
var _ driven.Connectivity = (*Monitor)(nil)

const (
	defaultProbeInterval = 15 * time.Second
	defaultProbeTimeout  = 5 * time.Second
)

// Monitor decides online/offline by requesting a URL. Any HTTP response
// counts as online; transport errors and timeouts count as offline.
type Monitor struct {
	*broadcaster

	url      string
	interval time.Duration
	client   *http.Client

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithHTTPClient replaces the probe client.
func WithHTTPClient(c *http.Client) MonitorOption {
	return func(m *Monitor) { m.client = c }
}

// NewMonitor creates a Monitor for url. It starts optimistic (online) until
// the first probe completes.
func NewMonitor(url string, interval time.Duration, opts ...MonitorOption) *Monitor {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	m := &Monitor{
		broadcaster: newBroadcaster(true),
		url:         url,
		interval:    interval,
		client:      &http.Client{Timeout: defaultProbeTimeout},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Probe runs one check, updates the state and returns it.
func (m *Monitor) Probe(ctx context.Context) bool {
	online := m.check(ctx)
	if ctx.Err() != nil {
		// Cancelled mid-probe says nothing about the network.
		return m.Online()
	}
	if m.set(online) {
		if online {
			logger.Info("connectivity: online (%s)", m.url)
		} else {
			logger.Warn("connectivity: offline (%s)", m.url)
		}
	}
	return online
}

func (m *Monitor) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		logger.Debug("connectivity: bad probe url %q: %v", m.url, err)
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		logger.Debug("connectivity: probe failed: %v", err)
		return false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
	return true
}

// Start probes once synchronously and then on every interval until Stop
// or ctx is cancelled. Starting a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.Probe(runCtx)

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.Probe(runCtx)
			}
		}
	}()
}

// Stop halts probing and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
}
