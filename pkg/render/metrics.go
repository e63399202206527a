package render

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ElementsAppended tracks appended elements by kind
	ElementsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_surface_elements_total",
			Help: "Total number of elements appended to render surfaces",
		},
		[]string{"kind"}, // "photo", "error"
	)

	// SurfaceErrors tracks surface backend errors
	SurfaceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_surface_errors_total",
			Help: "Total number of render surface operation errors",
		},
		[]string{"operation"}, // "append", "loader", "read", "delete"
	)
)
