package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ChatReplies      *prometheus.CounterVec
	FallbackReplies  *prometheus.CounterVec
	ImagesGenerated  prometheus.Counter
	ImageFailures    prometheus.Counter
	UpstreamDuration *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			ChatReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "aistudio",
				Name:      "chat_replies_total",
				Help:      "Assistant replies produced, by source (remote or fallback)",
			}, []string{"source"}),
			FallbackReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "aistudio",
				Name:      "chat_fallback_total",
				Help:      "Chat turns answered locally, by upstream failure reason",
			}, []string{"reason"}),
			ImagesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "aistudio",
				Name:      "images_generated_total",
				Help:      "Images generated by the remote inference API",
			}),
			ImageFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "aistudio",
				Name:      "image_failures_total",
				Help:      "Image generation requests that failed upstream",
			}),
			UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "aistudio",
				Name:      "upstream_request_seconds",
				Help:      "Latency of remote inference calls",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			}, []string{"kind"}),
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "aistudio",
				Name:      "http_requests_total",
				Help:      "HTTP requests served, by method and status code",
			}, []string{"method", "code"}),
		}
		prometheus.MustRegister(
			global.ChatReplies,
			global.FallbackReplies,
			global.ImagesGenerated,
			global.ImageFailures,
			global.UpstreamDuration,
			global.HTTPRequests,
		)
	})
	return global
}
