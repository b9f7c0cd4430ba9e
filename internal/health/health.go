// Package health keeps named dependency checkers for the /health endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/akylbek/payment-system/fraud-detection/internal/models"
)

// Checker reports the health of one dependency.
type Checker func(ctx context.Context) models.HealthCheck

// Registry holds checkers in registration order.
type Registry struct {
	mu       sync.RWMutex
	checkers []Checker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a checker.
func (r *Registry) Register(check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, check)
	r.mu.Unlock()
}

// CheckAll runs every checker. healthy is false if any dependency is down.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, checks []models.HealthCheck) {
	r.mu.RLock()
	checkers := make([]Checker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	healthy = true
	checks = make([]models.HealthCheck, 0, len(checkers))
	for _, check := range checkers {
		status := check(ctx)
		if !status.Healthy {
			healthy = false
		}
		checks = append(checks, status)
	}
	return healthy, checks
}

// Pinger is satisfied by dependencies with a context-aware ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker wraps a Pinger as a Checker.
func PingChecker(name string, p Pinger) Checker {
	return func(ctx context.Context) models.HealthCheck {
		if err := p.Ping(ctx); err != nil {
			return models.HealthCheck{Name: name, Healthy: false, Detail: err.Error()}
		}
		return models.HealthCheck{Name: name, Healthy: true}
	}
}

// ConnChecker reports a connection-state dependency such as a NATS conn.
func ConnChecker(name string, connected func() bool) Checker {
	return func(_ context.Context) models.HealthCheck {
		if !connected() {
			return models.HealthCheck{Name: name, Healthy: false, Detail: "disconnected"}
		}
		return models.HealthCheck{Name: name, Healthy: true}
	}
}

// Poller runs a slow checker on an interval and serves its last result, so
// /health never waits on the dependency itself.
type Poller struct {
	name     string
	check    Checker
	interval time.Duration

	mu   sync.RWMutex
	last models.HealthCheck
}

// NewPoller creates a poller. Until the first poll completes the dependency
// is reported as unhealthy.
func NewPoller(name string, check Checker, interval time.Duration) *Poller {
	return &Poller{
		name:     name,
		check:    check,
		interval: interval,
		last:     models.HealthCheck{Name: name, Healthy: false, Detail: "not checked yet"},
	}
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	status := p.check(ctx)
	status.Name = p.name
	p.mu.Lock()
	p.last = status
	p.mu.Unlock()
}

// Checker returns a Checker that reports the last polled result.
func (p *Poller) Checker() Checker {
	return func(_ context.Context) models.HealthCheck {
		p.mu.RLock()
		defer p.mu.RUnlock()
		return p.last
	}
}
