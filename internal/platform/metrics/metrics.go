// Package metrics holds the Prometheus instruments for the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements the orchestrator's metrics sink.
type Metrics struct {
	loginSuccess    prometheus.Counter
	loginFailure    *prometheus.CounterVec
	lockoutsEngaged prometheus.Counter
	sessionsRevoked prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		loginSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authgate_login_success_total",
			Help: "Total number of successful logins.",
		}),
		loginFailure: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_login_failure_total",
			Help: "Total number of failed logins by reason.",
		}, []string{"reason"}),
		lockoutsEngaged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authgate_lockouts_engaged_total",
			Help: "Total number of account lockouts engaged.",
		}),
		sessionsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authgate_sessions_revoked_total",
			Help: "Total number of sessions revoked.",
		}),
	}
}

func (m *Metrics) IncLoginSuccess() { m.loginSuccess.Inc() }

func (m *Metrics) IncLoginFailure(reason string) {
	m.loginFailure.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncLockoutEngaged() { m.lockoutsEngaged.Inc() }

func (m *Metrics) AddSessionsRevoked(n int) {
	m.sessionsRevoked.Add(float64(n))
}

// ObserveAuditQueue registers gauges backed by the audit publisher so
// queue pressure is visible before entries start dropping.
func (m *Metrics) ObserveAuditQueue(pending func() int, dropped func() int64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "authgate_audit_queue_depth",
		Help: "Audit entries waiting to be persisted.",
	}, func() float64 { return float64(pending()) })
	promauto.NewCounterFunc(prometheus.CounterOpts{
		Name: "authgate_audit_dropped_total",
		Help: "Audit entries dropped due to queue overflow.",
	}, func() float64 { return float64(dropped()) })
}
