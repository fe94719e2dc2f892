package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuardDecisions counts completed verification passes.
	GuardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "educonnect",
		Subsystem: "guard",
		Name:      "decisions_total",
		Help:      "Page verification passes by page category, role and result.",
	}, []string{"category", "role", "result"})

	// GuardTransientFailures counts profile fetches that failed with a retry-safe error.
	GuardTransientFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "educonnect",
		Subsystem: "guard",
		Name:      "transient_failures_total",
		Help:      "Profile fetches that failed transiently during verification.",
	})

	// AuditWritten counts audit events persisted.
	AuditWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "educonnect",
		Subsystem: "audit",
		Name:      "events_written_total",
		Help:      "Audit events persisted.",
	})

	// AuditFailed counts audit events that could not be persisted.
	AuditFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "educonnect",
		Subsystem: "audit",
		Name:      "events_failed_total",
		Help:      "Audit events dropped because persistence failed.",
	})

	// AuditSpilled counts audit events written outside the batch worker because its buffer was full.
	AuditSpilled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "educonnect",
		Subsystem: "audit",
		Name:      "events_spilled_total",
		Help:      "Audit events written directly because the worker buffer was full.",
	})
)
