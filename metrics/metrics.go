package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plantdoc_predictions_created_total",
		Help: "Total number of prediction records created.",
	})
	PredictionsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plantdoc_predictions_updated_total",
		Help: "Total number of prediction records updated.",
	})
	PredictionsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plantdoc_predictions_deleted_total",
		Help: "Total number of prediction records deleted.",
	})
	StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantdoc_store_failures_total",
		Help: "Total number of record store operations that failed on I/O.",
	}, []string{"op"})
	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plantdoc_events_published_total",
		Help: "Total number of prediction events published.",
	})
	InferenceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantdoc_inference_requests_total",
		Help: "Total number of image classification requests by outcome.",
	}, []string{"outcome"})
	InferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "plantdoc_inference_duration_seconds",
		Help:    "Duration of image preprocessing plus model inference.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
	})
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantdoc_http_requests_total",
		Help: "Total number of HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
)
