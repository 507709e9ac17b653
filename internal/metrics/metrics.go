// Package metrics exposes the Prometheus instrumentation for the tracker.
// Collectors are registered on the default registry via promauto, so wiring
// is import-only; Handler serves them on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission result label values.
const (
	ResultAccepted    = "accepted"
	ResultInvalidTag  = "invalid_tag"
	ResultDuplicate   = "duplicate_status"
	ResultConflict    = "append_conflict"
	ResultStoreError  = "store_error"
	ResultInvalidBody = "invalid_input"
)

var (
	// Submissions counts log submissions by outcome.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wardtrack_submissions_total",
		Help: "Check-in/check-out submissions by outcome.",
	}, []string{"result"})

	// RegistryRefreshes counts reloads of the department registry snapshot cache.
	RegistryRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wardtrack_registry_refreshes_total",
		Help: "Department registry cache refreshes.",
	})
)

// Handler returns the HTTP handler serving the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
