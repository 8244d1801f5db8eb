package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/clx1415926/taobei-app/internal/infra/config"
)

// Provider bundles the service's Prometheus instruments. Request-level
// metrics live in the HTTP middleware; these cover the auth domain.
type Provider struct {
	loginCounter *prometheus.CounterVec
	codesIssued  prometheus.Counter
	lockCounter  prometheus.Counter
}

// Attach registers the service metrics and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &Provider{
		loginCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taobei",
			Name:      "auth_logins_total",
			Help:      "Login attempts by method and outcome",
		}, []string{"method", "outcome"}),
		codesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "taobei",
			Name:      "auth_codes_issued_total",
			Help:      "Verification codes issued",
		}),
		lockCounter: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "taobei",
			Name:      "auth_account_locks_total",
			Help:      "Accounts locked after repeated password failures",
		}),
	}, nil
}

// ObserveLogin records a login attempt outcome.
func (p *Provider) ObserveLogin(method, outcome string) {
	if p == nil {
		return
	}
	p.loginCounter.WithLabelValues(method, outcome).Inc()
}

// ObserveCodeIssued records one verification code issuance.
func (p *Provider) ObserveCodeIssued() {
	if p == nil {
		return
	}
	p.codesIssued.Inc()
}

// ObserveAccountLocked records one lockout.
func (p *Provider) ObserveAccountLocked() {
	if p == nil {
		return
	}
	p.lockCounter.Inc()
}
