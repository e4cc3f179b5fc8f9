package repopool

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cycleDuration     prometheus.Gauge
	cycleRepositories prometheus.Gauge
	cycleFailures     *prometheus.GaugeVec
	cycleTimestamp    prometheus.Gauge
	orphanedRepos     prometheus.Gauge
)

// EnableMetrics will enable metrics collection for mirror cycles.
// Available metrics are...
//   - mirror_cycle_duration_seconds
//     A Gauge with duration of the last completed cycle.
//   - mirror_cycle_repositories
//     A Gauge with number of unique repositories found by last discovery.
//   - mirror_cycle_failures - (tags: stage)
//     A Gauge with number of failures in last cycle (stage=discovery|mirror).
//   - mirror_cycle_last_timestamp
//     A Gauge with Timestamp of the last completed cycle.
//   - mirror_orphaned_repositories
//     A Gauge with number of mirrors under root not referenced by config.
func EnableMetrics(metricsNamespace string, registerer prometheus.Registerer) {
	cycleDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "mirror_cycle_duration_seconds",
		Help:      "Duration of the last mirror cycle",
	})
	cycleRepositories = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "mirror_cycle_repositories",
		Help:      "Number of unique repositories found by last discovery",
	})
	cycleFailures = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "mirror_cycle_failures",
		Help:      "Number of failures in the last mirror cycle",
	},
		[]string{
			// discovery or mirror
			"stage",
		},
	)
	cycleTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "mirror_cycle_last_timestamp",
		Help:      "Timestamp of the last completed mirror cycle",
	})
	orphanedRepos = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "mirror_orphaned_repositories",
		Help:      "Number of mirrors under root not referenced by the last discovery",
	})

	registerer.MustRegister(
		cycleDuration,
		cycleRepositories,
		cycleFailures,
		cycleTimestamp,
		orphanedRepos,
	)
}

func recordCycle(r *Report) {
	// if metrics not enabled return
	if cycleDuration == nil {
		return
	}
	cycleDuration.Set(r.Duration.Seconds())
	cycleRepositories.Set(float64(r.Repositories))
	cycleFailures.WithLabelValues("discovery").Set(float64(len(r.DiscoveryErrors)))
	cycleFailures.WithLabelValues("mirror").Set(float64(len(r.MirrorErrors)))
	cycleTimestamp.Set(float64(r.Start.Add(r.Duration).Unix()))
	orphanedRepos.Set(float64(len(r.Orphans)))
}
