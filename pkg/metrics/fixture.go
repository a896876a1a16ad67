package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// CleanupResultDeleted for an object or a type removed by the cleanup
	CleanupResultDeleted = "deleted"
	// CleanupResultFailed for an object or a type the cleanup could not remove
	CleanupResultFailed = "failed"
)

// CleanupCounter is a counter of the objects and types handled by the
// cleanup orchestrator, labelled by result.
var CleanupCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cmis",
		Subsystem: "fixture",
		Name:      "cleanup_total",

		Help: `Number of objects and types handled by the cleanup, labelled by result.
A failed deletion is counted once per cleanup run.`,
	},
	[]string{"result"},
)

// AuthWaitRetries is a histogram metric of the number of failed attempts
// before a freshly created principal could authenticate.
var AuthWaitRetries = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "cmis",
		Subsystem: "fixture",
		Name:      "auth_retries",

		Help: `Number of failed authentication attempts of new principals, before the
server propagated them.`,

		// The default policy gives up after 5 attempts.
		Buckets: prometheus.LinearBuckets(0, 1, 6),
	},
)

func init() {
	prometheus.MustRegister(
		CleanupCounter,
		AuthWaitRetries,
	)
}
