package metrics

import "github.com/prometheus/client_golang/prometheus"

// CMISRequestDurations is a summary metric of the durations of the requests
// sent to the CMIS server, labelled by method, action (or selector) and
// status code. Transport errors are labelled with code "error".
var CMISRequestDurations = prometheus.NewSummaryVec(
	prometheus.SummaryOpts{
		Namespace: "cmis",
		Subsystem: "client",
		Name:      "request_duration",

		Help: "Durations of CMIS requests, labelled by method, action and status code",

		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	},
	[]string{"method", "action", "code"},
)

func init() {
	prometheus.MustRegister(CMISRequestDurations)
}
