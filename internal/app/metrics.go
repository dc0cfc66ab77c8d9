package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	tickCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worklog",
		Subsystem: "pipeline",
		Name:      "ticks_total",
		Help:      "Number of periodic task ticks started, by task.",
	}, []string{"task"})

	tickFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worklog",
		Subsystem: "pipeline",
		Name:      "tick_failures_total",
		Help:      "Number of periodic task ticks that ended in an error or panic, by task.",
	}, []string{"task"})

	activitiesRecordedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "worklog",
		Subsystem: "pipeline",
		Name:      "activities_recorded_total",
		Help:      "Number of focus changes appended to the activity store.",
	})

	summariesGeneratedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "worklog",
		Subsystem: "pipeline",
		Name:      "summaries_generated_total",
		Help:      "Number of summaries generated and stored.",
	})

	summaryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "worklog",
		Subsystem: "pipeline",
		Name:      "summary_duration_seconds",
		Help:      "Wall-clock time spent generating one summary, including the remote call.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	})

	monitoringGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "worklog",
		Subsystem: "pipeline",
		Name:      "monitoring",
		Help:      "1 while the pipeline is monitoring, 0 when idle.",
	})
)

func init() {
	prometheus.MustRegister(tickCounter, tickFailureCounter, activitiesRecordedCounter, summariesGeneratedCounter, summaryDuration, monitoringGauge)
}

func recordTick(task string) {
	tickCounter.WithLabelValues(task).Inc()
}

func recordTickFailure(task string) {
	tickFailureCounter.WithLabelValues(task).Inc()
}

func recordActivity() {
	activitiesRecordedCounter.Inc()
}

func recordSummary(elapsed time.Duration) {
	summariesGeneratedCounter.Inc()
	summaryDuration.Observe(elapsed.Seconds())
}

func recordMonitoring(running bool) {
	if running {
		monitoringGauge.Set(1)
		return
	}
	monitoringGauge.Set(0)
}
