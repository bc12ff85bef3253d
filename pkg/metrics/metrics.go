package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skyqueue/obs-scheduler/pkg/core/model"
	"github.com/skyqueue/obs-scheduler/pkg/core/observation"
	"github.com/skyqueue/obs-scheduler/pkg/core/scheduler"
)

// Recorder exposes tick outcomes as Prometheus metrics on its own registry
type Recorder struct {
	registry *prometheus.Registry

	// Ticks counts completed ticks
	Ticks prometheus.Counter

	// TickDuration tracks how long scoring plus planning took
	TickDuration prometheus.Histogram

	// BandObservations is the number of observations per band at the last tick
	BandObservations *prometheus.GaugeVec

	// BandMaxPriority is the highest priority per band at the last tick
	BandMaxPriority *prometheus.GaugeVec

	// BandMeanCompletion is the mean completion per band at the last tick
	BandMeanCompletion *prometheus.GaugeVec

	// SiteAssignments counts observations assigned per site
	SiteAssignments *prometheus.CounterVec

	// PlanObjective is the summed priority of the last plan
	PlanObjective prometheus.Gauge
}

// NewRecorder creates a recorder with all collectors registered
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "obs_scheduler_ticks_total",
			Help: "Total number of ticks scored",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "obs_scheduler_tick_duration_seconds",
			Help:    "Duration of scoring and planning one tick",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		BandObservations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "obs_scheduler_band_observations",
			Help: "Number of observations per band at the last tick",
		}, []string{"band"}),
		BandMaxPriority: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "obs_scheduler_band_max_priority",
			Help: "Highest priority per band at the last tick",
		}, []string{"band"}),
		BandMeanCompletion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "obs_scheduler_band_mean_completion",
			Help: "Mean completion fraction per band at the last tick (0-1)",
		}, []string{"band"}),
		SiteAssignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "obs_scheduler_site_assignments_total",
			Help: "Total number of observations assigned per site",
		}, []string{"site"}),
		PlanObjective: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "obs_scheduler_plan_objective",
			Help: "Summed priority of the last timeslot plan",
		}),
	}

	r.registry.MustRegister(
		r.Ticks,
		r.TickDuration,
		r.BandObservations,
		r.BandMaxPriority,
		r.BandMeanCompletion,
		r.SiteAssignments,
		r.PlanObjective,
	)

	return r
}

// Registry returns the registry holding the recorder's collectors
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveTick records the state of a set after a tick and the plan made from it.
// plan may be nil.
func (r *Recorder) ObserveTick(set *observation.Set, plan *scheduler.Plan, duration time.Duration) {
	r.Ticks.Inc()
	r.TickDuration.Observe(duration.Seconds())

	counts := make(map[model.Band]int)
	maxPriority := make(map[model.Band]float64)
	completionSum := make(map[model.Band]float64)

	for i := 0; i < set.Len(); i++ {
		idx := observation.Index(i)
		band := set.BandOf(idx)
		counts[band]++
		completionSum[band] += set.CompletionOf(idx)
		if p := set.PriorityOf(idx); p > maxPriority[band] {
			maxPriority[band] = p
		}
	}

	for _, band := range model.Bands {
		label := string(band)
		r.BandObservations.WithLabelValues(label).Set(float64(counts[band]))
		r.BandMaxPriority.WithLabelValues(label).Set(maxPriority[band])

		mean := 0.0
		if counts[band] > 0 {
			mean = completionSum[band] / float64(counts[band])
		}
		r.BandMeanCompletion.WithLabelValues(label).Set(mean)
	}

	if plan == nil {
		return
	}

	for _, a := range plan.Assignments {
		r.SiteAssignments.WithLabelValues(a.Site.String()).Inc()
	}
	r.PlanObjective.Set(plan.Objective)
}

// WriteTextfile writes the current metrics in the text exposition format,
// for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
