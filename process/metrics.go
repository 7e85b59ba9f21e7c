package process

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctree_events_total",
			Help: "Number of fork/exec/exit events applied to the process tree.",
		},
		[]string{"type"},
	)

	metricEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proctree_evictions_total",
			Help: "Number of exited processes evicted from the lookup map.",
		})

	metricCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proctree_pid_collisions_total",
			Help: "Number of inserts that replaced an existing entry with the same Pid.",
		})

	metricPidMismatch = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proctree_exec_pid_mismatch_total",
			Help: "Number of exec events where the new pid differs from the original.",
		})

	metricAnnotatorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctree_annotator_failures_total",
			Help: "Number of annotator hooks that returned an error or panicked.",
		},
		[]string{"hook"},
	)

	metricTreeSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proctree_processes",
			Help: "Number of processes in the lookup map.",
		})
)
