// Package metrics defines the custom Prometheus metrics for the appointment
// API. It is the single source of truth for metric names and labels.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "appointment"

// LoginsTotal counts login attempts by outcome.
// Label values: "success", "invalid_credentials", "locked", "inactive", "error".
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts by outcome.",
	},
	[]string{"outcome"},
)

// LockoutsTotal counts accounts locked by the failed-attempt threshold.
var LockoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lockouts_total",
		Help:      "Total number of accounts locked after repeated failed logins.",
	},
)

// RegistrationsTotal counts successful account registrations.
var RegistrationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of accounts registered.",
	},
)
