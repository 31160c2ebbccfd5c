package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ezra31448/soap-api/internal/core/port"
)

// EngineMetrics exposes Prometheus counters for authentication outcomes,
// token lifecycle, and audit write failures.
type EngineMetrics struct {
	logins        *prometheus.CounterVec
	issued        prometheus.Counter
	revoked       *prometheus.CounterVec
	auditFailures prometheus.Counter
}

var _ port.EngineMetrics = (*EngineMetrics)(nil)

// NewEngineMetrics constructs and registers the engine collectors.
// Re-registering against the same registerer reuses the existing collectors.
func NewEngineMetrics(reg prometheus.Registerer) (*EngineMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	logins, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Subsystem: "engine",
		Name:      "login_attempts_total",
		Help:      "Authentication attempts partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, fmt.Errorf("register login counter: %w", err)
	}

	issued, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Subsystem: "engine",
		Name:      "tokens_issued_total",
		Help:      "Access tokens issued.",
	}))
	if err != nil {
		return nil, fmt.Errorf("register issued counter: %w", err)
	}

	revoked, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Subsystem: "engine",
		Name:      "tokens_revoked_total",
		Help:      "Revocations partitioned by scope (token or subject).",
	}, []string{"scope"}))
	if err != nil {
		return nil, fmt.Errorf("register revoked counter: %w", err)
	}

	auditFailures, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Subsystem: "engine",
		Name:      "audit_write_failures_total",
		Help:      "Audit trail appends that failed.",
	}))
	if err != nil {
		return nil, fmt.Errorf("register audit failure counter: %w", err)
	}

	return &EngineMetrics{
		logins:        logins,
		issued:        issued,
		revoked:       revoked,
		auditFailures: auditFailures,
	}, nil
}

// LoginAttempt counts one authentication attempt by outcome.
func (m *EngineMetrics) LoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// TokenIssued counts one issued access token.
func (m *EngineMetrics) TokenIssued() {
	if m == nil {
		return
	}
	m.issued.Inc()
}

// TokenRevoked counts one revocation under the supplied scope.
func (m *EngineMetrics) TokenRevoked(scope string) {
	if m == nil {
		return
	}
	m.revoked.WithLabelValues(scope).Inc()
}

// AuditWriteFailure counts one failed audit append.
func (m *EngineMetrics) AuditWriteFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

// register adds the collector, or hands back the one already registered
// under the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	var zero C

	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	already, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		return zero, err
	}
	existing, ok := already.ExistingCollector.(C)
	if !ok {
		return zero, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
	}
	return existing, nil
}
