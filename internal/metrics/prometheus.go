// Package metrics はローテーターのPrometheusメトリクスを提供する
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder は専用のレジストリにメトリクスを記録する
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	imagesServed    *prometheus.CounterVec
	bytesServed     prometheus.Counter
	imagesLoaded    prometheus.Gauge
}

// NewRecorder は新しいRecorderを作成する
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request durations.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "status"},
		),
		imagesServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotator_images_served_total",
				Help: "Number of times each image was served.",
			},
			[]string{"image"},
		),
		bytesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rotator_bytes_served_total",
			Help: "Total number of image bytes written.",
		}),
		imagesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotator_images_loaded",
			Help: "Number of images loaded at startup.",
		}),
	}

	r.registry.MustRegister(
		r.requestsTotal,
		r.requestDuration,
		r.imagesServed,
		r.bytesServed,
		r.imagesLoaded,
		collectors.NewGoCollector(),
	)

	return r
}

// SetImagesLoaded は読み込んだ画像数を記録する
func (r *Recorder) SetImagesLoaded(n int) {
	r.imagesLoaded.Set(float64(n))
}

// ObserveImage は払い出した画像を記録する
func (r *Recorder) ObserveImage(name string, size int) {
	r.imagesServed.WithLabelValues(name).Inc()
	r.bytesServed.Add(float64(size))
}

// RecordRequest はHTTPリクエスト1件を記録する
func (r *Recorder) RecordRequest(method string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	r.requestsTotal.WithLabelValues(method, status).Inc()
	r.requestDuration.WithLabelValues(method, status).Observe(duration.Seconds())
}

// Middleware はリクエストごとにメトリクスを記録するginミドルウェア
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		r.RecordRequest(c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// Handler はメトリクス公開用のハンドラを返す
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry はテスト用にレジストリを返す
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// classifyStatus はHTTPステータスコードを 2xx のような区分に変換する
func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 600:
		return strconv.Itoa(statusCode/100) + "xx"
	default:
		return "unknown"
	}
}
