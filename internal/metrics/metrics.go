// Package metrics счетчики Prometheus клиентского слоя синхронизации.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы вызова шлюза
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	gatewayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "client",
			Name:      "gateway_calls_total",
			Help:      "Gateway calls issued by the stores.",
		},
		[]string{"op", "outcome"},
	)

	rollbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "client",
			Name:      "optimistic_rollbacks_total",
			Help:      "Optimistic edits reverted after a failed gateway call.",
		},
	)

	sessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "client",
			Name:      "session_transitions_total",
			Help:      "Session phase transitions by target phase.",
		},
		[]string{"phase"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "devserver",
			Name:      "http_requests_total",
			Help:      "Requests served by the dev server.",
		},
		[]string{"method", "code"},
	)
)

// GatewayCall учитывает вызов шлюза с исходом по ошибке
func GatewayCall(op string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	gatewayCallsTotal.WithLabelValues(op, outcome).Inc()
}

// Rollback учитывает откат оптимистичной правки
func Rollback() {
	rollbacksTotal.Inc()
}

// SessionTransition учитывает переход сессии в фазу phase
func SessionTransition(phase string) {
	sessionTransitionsTotal.WithLabelValues(phase).Inc()
}

// HTTPRequest учитывает запрос к dev-серверу
func HTTPRequest(method, code string) {
	httpRequestsTotal.WithLabelValues(method, code).Inc()
}
