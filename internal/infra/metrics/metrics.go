package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	PushEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_events_total",
		Help: "События, полученные по push-каналу",
	}, []string{"type"})

	PushState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "push_state",
		Help: "Текущее состояние push-канала (0=disconnected,1=connecting,2=connected,3=closed,4=error)",
	})

	PushReconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_reconnects_total",
		Help: "Количество переподключений push-канала",
	})

	StoreMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_mutations_total",
		Help: "Изменения локальных хранилищ",
	}, []string{"store", "operation"})

	StatePersistErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "state_persist_errors_total",
		Help: "Ошибки сохранения локального состояния",
	}, []string{"namespace"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		NetworkRequestDuration,
		NetworkRequestTotal,
		PushEventsTotal,
		PushState,
		PushReconnectsTotal,
		StoreMutationsTotal,
		StatePersistErrors,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncPushEvent увеличивает счётчик событий push-канала.
func IncPushEvent(eventType string) {
	if eventType == "" {
		eventType = "unknown"
	}
	PushEventsTotal.WithLabelValues(eventType).Inc()
}

// SetPushState выставляет текущее состояние push-канала.
func SetPushState(state int) {
	PushState.Set(float64(state))
}

// IncStoreMutation увеличивает счётчик изменений хранилища.
func IncStoreMutation(store, operation string) {
	StoreMutationsTotal.WithLabelValues(store, operation).Inc()
}

// IncPersistError увеличивает счётчик ошибок сохранения.
func IncPersistError(namespace string) {
	StatePersistErrors.WithLabelValues(namespace).Inc()
}
