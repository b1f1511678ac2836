package route

import (
	"sync"

	"k8s.io/component-base/metrics"
	"k8s.io/component-base/metrics/legacyregistry"
)

const (
	// RouterSubsystem - subsystem name used by the router
	RouterSubsystem = "feline_router"

	// ResultConverged - result label value
	ResultConverged = "converged"
	// ResultNotConverged - result label value
	ResultNotConverged = "not_converged"
	// ResultCancelled - result label value
	ResultCancelled = "cancelled"
)

// All the histogram based metrics have 1ms as size for the smallest bucket.
var (
	RoundsTotal = metrics.NewCounter(
		&metrics.CounterOpts{
			Subsystem:      RouterSubsystem,
			Name:           "rounds_total",
			Help:           "Number of negotiated congestion rounds run.",
			StabilityLevel: metrics.ALPHA,
		})

	OverusedWires = metrics.NewGauge(
		&metrics.GaugeOpts{
			Subsystem:      RouterSubsystem,
			Name:           "overused_wires",
			Help:           "Number of wires used by more than one net after the last round.",
			StabilityLevel: metrics.ALPHA,
		})

	NetFailures = metrics.NewCounter(
		&metrics.CounterOpts{
			Subsystem:      RouterSubsystem,
			Name:           "net_failures_total",
			Help:           "Number of nets that found no path within the expansion budget.",
			StabilityLevel: metrics.ALPHA,
		})

	RoundDuration = metrics.NewHistogram(
		&metrics.HistogramOpts{
			Subsystem:      RouterSubsystem,
			Name:           "round_duration_seconds",
			Help:           "Duration of one rip-up and reroute round.",
			Buckets:        metrics.ExponentialBuckets(0.001, 2, 20),
			StabilityLevel: metrics.ALPHA,
		})

	SearchExpansions = metrics.NewHistogram(
		&metrics.HistogramOpts{
			Subsystem:      RouterSubsystem,
			Name:           "round_expansions",
			Help:           "Wavefront expansions performed in one round.",
			Buckets:        metrics.ExponentialBuckets(16, 4, 12),
			StabilityLevel: metrics.ALPHA,
		})

	RouteResults = metrics.NewCounterVec(
		&metrics.CounterOpts{
			Subsystem:      RouterSubsystem,
			Name:           "route_results_total",
			Help:           "Number of routing runs by outcome.",
			StabilityLevel: metrics.ALPHA,
		}, []string{"result"})

	metricsList = []metrics.Registerable{
		RoundsTotal,
		OverusedWires,
		NetFailures,
		RoundDuration,
		SearchExpansions,
		RouteResults,
	}
)

var registerMetrics sync.Once

// Register all metrics.
func Register() {
	registerMetrics.Do(func() {
		for _, metric := range metricsList {
			legacyregistry.MustRegister(metric)
		}
	})
}

// GetGather returns the gatherer.
func GetGather() metrics.Gatherer {
	return legacyregistry.DefaultGatherer
}
