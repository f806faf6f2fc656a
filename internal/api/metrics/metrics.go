// Package metrics defines and registers all custom Prometheus metrics for the
// membership API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry through promauto
// when the package is first imported.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "membership"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// SignInsTotal counts password and refresh-token grants.
// Labels:
//   - grant: "password" or "refresh_token"
//   - outcome: "success", "invalid_credentials" or "error"
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ins_total",
		Help:      "Total number of token grants, by grant type and outcome.",
	},
	[]string{"grant", "outcome"},
)

// SignUpsTotal counts registrations.
// Label:
//   - outcome: "success", "exists", "invalid" or "error"
var SignUpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ups_total",
		Help:      "Total number of sign-up attempts, by outcome.",
	},
	[]string{"outcome"},
)

// SignOutsTotal counts revoked sessions.
var SignOutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_outs_total",
		Help:      "Total number of sessions revoked through logout.",
	},
)

// ── Provisioning metrics ──────────────────────────────────────────────────────

// ProvisioningTotal counts profile provisioning jobs.
// Label:
//   - outcome: "created", "error" or "dropped"
var ProvisioningTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provisioning_jobs_total",
		Help:      "Total number of profile provisioning jobs, by outcome.",
	},
	[]string{"outcome"},
)

// ProvisioningQueueDepth tracks jobs waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ProvisioningQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "provisioning_queue_depth",
		Help:      "Current number of provisioning jobs pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ProvisioningDuration measures how long a single job takes.
var ProvisioningDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provisioning_duration_seconds",
		Help:      "Duration of a profile provisioning job from dequeue to persistence.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Profile metrics ───────────────────────────────────────────────────────────

// ProfileWritesTotal counts profile writes through the REST surface.
// Label:
//   - op: "create" or "update"
var ProfileWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_writes_total",
		Help:      "Total number of profile writes, by operation.",
	},
	[]string{"op"},
)
