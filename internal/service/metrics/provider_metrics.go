package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ProviderAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketbrief",
			Subsystem: "provider",
			Name:      "http_attempts_total",
			Help:      "Outbound provider HTTP attempts by status code",
		},
		[]string{"provider", "code"},
	)

	ProviderRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketbrief",
			Subsystem: "provider",
			Name:      "retries_total",
			Help:      "Outbound provider HTTP retries",
		},
		[]string{"provider"},
	)

	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "marketbrief",
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected snapshot websocket clients",
		},
	)

	WSDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marketbrief",
			Subsystem: "ws",
			Name:      "dropped_messages_total",
			Help:      "Snapshot events dropped because a client buffer was full",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ProviderAttempts, ProviderRetries, WSClients, WSDropped)
	})
}

// CodeLabel maps an HTTP status to a label; 0 means the request never got a response.
func CodeLabel(code int) string {
	if code == 0 {
		return "transport"
	}
	return strconv.Itoa(code)
}
