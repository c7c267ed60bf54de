package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// FieldBuildTotal counts payment field-set builds per gateway and result.
	FieldBuildTotal *prometheus.CounterVec
	// NotificationTotal counts inbound notification verification outcomes per
	// gateway: verified, refunded, or the failure code.
	NotificationTotal *prometheus.CounterVec
	// NotificationDuration records verification latency in milliseconds.
	NotificationDuration *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers the domain collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		FieldBuildTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_build_total",
			Help:      "Count of payment field-set builds by outcome.",
		}, []string{"gateway", "result"})
		NotificationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_total",
			Help:      "Count of verified gateway notifications by outcome.",
		}, []string{"gateway", "result"})
		NotificationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_duration_ms",
			Help:      "Latency of notification verification in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"gateway"})
		reg.MustRegister(FieldBuildTotal, NotificationTotal, NotificationDuration)
	})
}
