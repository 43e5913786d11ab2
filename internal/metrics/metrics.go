package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Skotchmaster/office_requests/internal/autherr"
)

const namespace = "office"

// Auth methods used as the "method" label.
const (
	MethodPassword = "password"
	MethodToken    = "token"
	MethodAPIKey   = "api_key"
)

type Metrics struct {
	authSuccess  *prometheus.CounterVec
	authFailure  *prometheus.CounterVec
	tokensIssued prometheus.Counter
	revocations  prometheus.Counter
	creditCharge prometheus.Counter
	creditDenied prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a private registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		authSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "success_total",
			Help:      "Successful authentications by method",
		}, []string{"method"}),
		authFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "failure_total",
			Help:      "Failed authentications by method and reason",
		}, []string{"method", "reason"}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tokens_issued_total",
			Help:      "Session tokens issued",
		}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tokens_revoked_total",
			Help:      "Session tokens invalidated by logout",
		}),
		creditCharge: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credit",
			Name:      "charged_total",
			Help:      "Credits charged by gated operations",
		}),
		creditDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credit",
			Name:      "denied_total",
			Help:      "Gated operations refused for lack of credit",
		}),
	}

	reg.MustRegister(m.authSuccess, m.authFailure, m.tokensIssued, m.revocations, m.creditCharge, m.creditDenied)
	return m
}

// Reason maps an auth failure to a bounded label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, autherr.ErrMissingCredential):
		return "missing"
	case errors.Is(err, autherr.ErrInvalidCredential):
		return "invalid"
	case errors.Is(err, autherr.ErrMalformedCredential):
		return "malformed"
	case errors.Is(err, autherr.ErrExpiredCredential):
		return "expired"
	case errors.Is(err, autherr.ErrRevokedCredential):
		return "revoked"
	case errors.Is(err, autherr.ErrUserNotFound):
		return "user_not_found"
	default:
		return "internal"
	}
}

// The methods below accept a nil receiver so metrics stay optional.

func (m *Metrics) Auth(method string, err error) {
	if m == nil {
		return
	}
	if err == nil {
		m.authSuccess.WithLabelValues(method).Inc()
		return
	}
	m.authFailure.WithLabelValues(method, Reason(err)).Inc()
}

func (m *Metrics) TokenIssued() {
	if m != nil {
		m.tokensIssued.Inc()
	}
}

func (m *Metrics) TokenRevoked() {
	if m != nil {
		m.revocations.Inc()
	}
}

func (m *Metrics) CreditCharged() {
	if m != nil {
		m.creditCharge.Inc()
	}
}

func (m *Metrics) CreditDenied() {
	if m != nil {
		m.creditDenied.Inc()
	}
}
