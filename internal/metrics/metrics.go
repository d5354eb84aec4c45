package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	appointmentSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smiles",
			Name:      "appointment_submitted_total",
			Help:      "Count of booking submissions by outcome.",
		},
		[]string{"outcome"},
	)

	tokenRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smiles",
			Name:      "token_refresh_total",
			Help:      "Count of identity-provider token refresh attempts by result.",
		},
		[]string{"result"},
	)

	fetchError = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smiles",
			Name:      "fetch_error_total",
			Help:      "Count of failed backend reads by resource.",
		},
		[]string{"resource"},
	)

	cacheHit = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smiles",
			Name:      "directory_cache_hit_total",
			Help:      "Count of directory reads served from the cache.",
		},
		[]string{"resource"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(appointmentSubmitted, tokenRefresh, fetchError, cacheHit)
	})
}

func IncAppointmentSubmitted(outcome string) {
	appointmentSubmitted.WithLabelValues(outcome).Inc()
}

func IncTokenRefresh(result string) {
	tokenRefresh.WithLabelValues(result).Inc()
}

func IncFetchError(resource string) {
	fetchError.WithLabelValues(resource).Inc()
}

func IncCacheHit(resource string) {
	cacheHit.WithLabelValues(resource).Inc()
}
