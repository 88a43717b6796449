package manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enginehost_resolutions_total",
		Help: "Resolution attempts by family and outcome.",
	}, []string{"family", "outcome"})

	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enginehost_resolution_fallbacks_total",
		Help: "Resolutions that substituted a version or downgraded GPU to CPU.",
	}, []string{"family", "kind"})

	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enginehost_loads_total",
		Help: "Model load attempts by family and outcome.",
	}, []string{"family", "outcome"})

	conflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enginehost_conflicts_total",
		Help: "Loads rejected because an incompatible version was resident.",
	}, []string{"family"})

	openSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "enginehost_open_sessions",
		Help: "Sessions currently created or loaded.",
	})
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"

	fallbackVersion = "version"
	fallbackGPU     = "gpu_downgrade"
)
