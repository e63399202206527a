package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/infinite-gallery/pkg/logging"
	"github.com/Sternrassler/infinite-gallery/pkg/render"
	"github.com/Sternrassler/infinite-gallery/pkg/unsplash"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for pipeline runs.
var (
	pipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_pipeline_runs_total",
		Help: "Total fetch-and-render runs by outcome",
	}, []string{"outcome"})

	pipelineRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gallery_pipeline_run_duration_seconds",
		Help:    "Fetch-and-render run duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	pipelinePhotosTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_pipeline_photos_total",
		Help: "Total photos rendered by the pipeline",
	})
)

const (
	// FallbackLabel labels photos that have no description.
	FallbackLabel = "Unsplash Photo"

	// ErrorMessage is the only failure text users see.
	ErrorMessage = "Failed to load images. Please try again later."
)

// PhotoSource returns one page of photos.
type PhotoSource interface {
	RandomPhotos(ctx context.Context) ([]unsplash.Photo, error)
}

// Result describes a finished run.
type Result struct {
	// Photos is the number of photo elements appended.
	Photos int

	// Err is the request-cycle failure, if any. It has already been shown
	// to the user and logged.
	Err error

	// Class is the failure class of Err.
	Class unsplash.ErrorClass

	Duration time.Duration
}

// Pipeline performs one request cycle and projects it onto a surface.
type Pipeline struct {
	source  PhotoSource
	surface render.Surface
	logger  zerolog.Logger
}

// NewPipeline creates a pipeline writing to surface.
func NewPipeline(source PhotoSource, surface render.Surface, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		source:  source,
		surface: surface,
		logger:  logger.With().Str("component", logging.ComponentPipeline).Logger(),
	}
}

// Label returns the accessible label of a photo.
func Label(photo unsplash.Photo) string {
	if desc, ok := photo.Description(); ok {
		return desc
	}
	return FallbackLabel
}

// Run executes one fetch-and-render cycle. Failures, including panics in the
// photo source, end as a single error element and are reported in Result;
// the loader is hidden on every path.
func (p *Pipeline) Run(ctx context.Context) (result Result) {
	start := time.Now()

	p.setLoader(ctx, true)
	defer func() {
		p.setLoader(context.WithoutCancel(ctx), false)
		result.Duration = time.Since(start)
		pipelineRunDuration.Observe(result.Duration.Seconds())
	}()

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("photo source panicked: %v", r)
			result.Class = unsplash.ErrorClassNetwork
			p.fail(ctx, result.Err, result.Class)
		}
	}()

	photos, err := p.source.RandomPhotos(ctx)
	if err != nil {
		result.Err = err
		result.Class = unsplash.ClassOf(err)
		p.fail(ctx, err, result.Class)
		return result
	}

	for _, photo := range photos {
		e := render.PhotoElement(photo.LinkURL(), photo.DisplayURL(), Label(photo))
		if err := p.surface.AppendElement(ctx, e); err != nil {
			p.logger.Warn().Err(err).Str("photo_id", photo.ID).Msg("Failed to append photo")
			continue
		}
		result.Photos++
	}

	pipelineRunsTotal.WithLabelValues("success").Inc()
	pipelinePhotosTotal.Add(float64(result.Photos))

	p.logger.Info().
		Int("photos", result.Photos).
		Dur("duration", time.Since(start)).
		Msg("Photos rendered")

	return result
}

// fail logs err and appends the generic error element.
func (p *Pipeline) fail(ctx context.Context, err error, class unsplash.ErrorClass) {
	pipelineRunsTotal.WithLabelValues("failure").Inc()

	event := p.logger.Error().Err(err).Str("error_class", string(class))
	if status := statusOf(err); status != 0 {
		event = event.Int("status", status)
	}
	event.Msg("Error fetching photos")

	if err := p.surface.AppendElement(context.WithoutCancel(ctx), render.ErrorElement(ErrorMessage)); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to append error message")
	}
}

func (p *Pipeline) setLoader(ctx context.Context, visible bool) {
	if err := p.surface.SetLoaderVisible(ctx, visible); err != nil {
		p.logger.Warn().Err(err).Bool("visible", visible).Msg("Failed to toggle loader")
	}
}

func statusOf(err error) int {
	var reqErr *unsplash.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}
