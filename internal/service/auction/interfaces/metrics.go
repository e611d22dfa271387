// internal/service/auction/interfaces/metrics.go
package interfaces

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	bidsAccepted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gavel_bids_accepted_total",
		Help: "Accepted bids by auction kind.",
	}, []string{"kind"})

	bidsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gavel_bids_rejected_total",
		Help: "Rejected bids by rejection reason.",
	}, []string{"reason"})

	jobExecutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gavel_job_executions_total",
		Help: "Scheduled job executions by type and result.",
	}, []string{"job_type", "result"})
)

func init() {
	prometheus.MustRegister(bidsAccepted, bidsRejected, jobExecutions)
}
