package services

import "github.com/prometheus/client_golang/prometheus"

var (
	newPapersCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "neuroedge_new_papers_added_total",
			Help: "Total number of new papers ingested.",
		},
	)
	sourceFetchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuroedge_source_fetches_total",
			Help: "Source fetch attempts by source kind and outcome.",
		},
		[]string{"kind", "status"},
	)
	stageRunsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuroedge_stage_runs_total",
			Help: "Pipeline stage invocations by stage and final status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neuroedge_stage_duration_seconds",
			Help:    "Duration of pipeline stage invocations.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"stage"},
	)
	papersProcessedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuroedge_papers_processed_total",
			Help: "Papers classified or summarized by outcome.",
		},
		[]string{"stage", "status"},
	)
)

func init() {
	prometheus.MustRegister(newPapersCounter, sourceFetchCounter, stageRunsCounter, stageDuration, papersProcessedCounter)
}
