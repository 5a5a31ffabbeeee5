package telemetry

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"meetspace-api/internal/access"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromMetrics holds the Prometheus registry scraped on /metrics.
type PromMetrics struct {
	Registry            *prometheus.Registry
	AccessDecisions     *prometheus.CounterVec
	MembershipMutations *prometheus.CounterVec
}

// NewPromMetrics creates a registry with the Go and process collectors and
// the domain counters.
func NewPromMetrics() *PromMetrics {
	reg := prometheus.NewRegistry()
	m := &PromMetrics{
		Registry: reg,
		AccessDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meetspace_access_decisions_total",
			Help: "Access decisions by outcome.",
		}, []string{"decision"}),
		MembershipMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meetspace_membership_mutations_total",
			Help: "Membership mutations by operation and result.",
		}, []string{"operation", "result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AccessDecisions,
		m.MembershipMutations,
	)
	return m
}

// ObserveDecision implements access.Observer.
func (m *PromMetrics) ObserveDecision(_ string, d access.Decision) {
	decision := "deny"
	if d.Allowed {
		decision = "allow"
	}
	m.AccessDecisions.WithLabelValues(decision).Inc()
}

// ObserveMutation implements service.MutationRecorder.
func (m *PromMetrics) ObserveMutation(operation, result string) {
	m.MembershipMutations.WithLabelValues(operation, result).Inc()
}

// Handler serves the registry. When token is set, requests must carry it in
// X-Metrics-Token or as a bearer token.
func (m *PromMetrics) Handler(token string) http.Handler {
	h := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
	if token == "" {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Metrics-Token")
		if got == "" {
			got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error":{"code":"UNAUTHORIZED","message":"unauthorized"}}`))
			return
		}
		h.ServeHTTP(w, r)
	})
}
