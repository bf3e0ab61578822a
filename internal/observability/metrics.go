package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	organizationPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "directory_service",
		Subsystem: "persistence",
		Name:      "last_organization_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent organization persisted to Postgres.",
	})
	searchCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "directory_service",
		Subsystem: "queries",
		Name:      "organization_searches_total",
		Help:      "Organization retrievals served, labelled by selection mode.",
	}, []string{"mode"})
)

func init() {
	prometheus.MustRegister(organizationPersistGauge, searchCounter)
}

// RecordOrganizationPersisted updates the persistence watermark gauge.
func RecordOrganizationPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	organizationPersistGauge.Set(float64(ts.Unix()))
}

// RecordSearch counts one served retrieval for the given mode
// (radius, bounds, name, activity, building, all).
func RecordSearch(mode string) {
	searchCounter.WithLabelValues(mode).Inc()
}
