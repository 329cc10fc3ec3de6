// Package metrics exposes Prometheus instrumentation for the attention
// control nodes. The host scrapes whatever the default registry carries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NodeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanattn_node_runs_total",
		Help: "Number of times each node handler was invoked",
	}, []string{"node"})

	HooksAttached = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanattn_hooks_attached_total",
		Help: "Forward hooks attached, by attention kind and projection",
	}, []string{"kind", "component"})

	HooksRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wanattn_hooks_removed_total",
		Help: "Previously tracked forward hooks detached",
	})

	StaleHookRemovals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wanattn_stale_hook_removals_total",
		Help: "Hook removals that failed because the host had already invalidated the handle",
	})

	BlocksSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanattn_blocks_skipped_total",
		Help: "Blocks or sub-modules skipped during hook attachment",
	}, []string{"reason"})
)

// Reasons recorded on BlocksSkipped.
const (
	SkipOutOfRange        = "out_of_range"
	SkipMissingAttention  = "missing_attention"
	SkipMissingProjection = "missing_projection"
)
