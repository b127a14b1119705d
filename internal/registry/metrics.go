package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegisteredServices shows the current number of registered services.
	RegisteredServices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_services",
			Help: "Current number of registered services",
		},
	)

	// ReapedServicesTotal counts records removed by the reap sweep.
	ReapedServicesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_reaped_total",
			Help: "Total number of stale service records reaped",
		},
	)

	// HealthUpdatesTotal counts health flag updates by outcome.
	HealthUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_health_updates_total",
			Help: "Total number of health updates applied to the registry",
		},
		[]string{"healthy"},
	)
)

// recordServiceCount records the current registry size.
func recordServiceCount(n int) {
	RegisteredServices.Set(float64(n))
}

// recordReaped records reaped services.
func recordReaped(n int) {
	ReapedServicesTotal.Add(float64(n))
}

// RecordHealthUpdate records a health update outcome.
func RecordHealthUpdate(healthy bool) {
	if healthy {
		HealthUpdatesTotal.WithLabelValues("true").Inc()
	} else {
		HealthUpdatesTotal.WithLabelValues("false").Inc()
	}
}
