package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AccessLogFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docvault", Name: "access_log_failures_total", Help: "Access log entries that could not be written."},
	)
	VersionAppendConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docvault", Name: "version_append_conflicts_total", Help: "Version number races by outcome (retried, exhausted)."},
		[]string{"outcome"},
	)
	AccessDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docvault", Name: "access_decisions_total", Help: "Access resolutions by effective permission."},
		[]string{"permission"},
	)
	PublicLinkConsumptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docvault", Name: "public_link_consumptions_total", Help: "Public link use attempts by outcome."},
		[]string{"outcome"},
	)
	DocumentsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docvault", Name: "documents_purged_total", Help: "Documents hard-deleted by the sweeper."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(AccessLogFailures)
	reg.MustRegister(VersionAppendConflicts)
	reg.MustRegister(AccessDecisions)
	reg.MustRegister(PublicLinkConsumptions)
	reg.MustRegister(DocumentsPurged)
}
