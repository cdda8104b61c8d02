package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docchat_ingest_total",
			Help: "Total number of document ingestions",
		},
		[]string{"status"},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docchat_ingest_duration_seconds",
			Help:    "Document ingestion duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	ChunksPerDocument = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docchat_chunks_per_document",
			Help:    "Number of chunks produced per ingested document",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
		},
	)

	AnswerTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docchat_answer_total",
			Help: "Total number of questions answered",
		},
		[]string{"status"},
	)

	AnswerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docchat_answer_duration_seconds",
			Help:    "Question answering duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
	)

	RetrievalMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docchat_retrieval_matches",
			Help:    "Number of vector matches per query",
			Buckets: []float64{0, 1, 2, 4, 8, 16},
		},
	)
)

func Register() {
	prometheus.MustRegister(
		IngestTotal,
		IngestDuration,
		ChunksPerDocument,
		AnswerTotal,
		AnswerDuration,
		RetrievalMatches,
	)
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
