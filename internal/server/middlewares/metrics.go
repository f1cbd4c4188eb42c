package middlewares

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "conformanced"

var (
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of http requests served, by route",
		},
		[]string{"route", "method", "code"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time to serve http requests, by route",
			// validation of a resolved schema is mostly sub-millisecond
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1},
		},
		[]string{"route", "method", "code"},
	)
	requestSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "Size of http requests, by route",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"route", "method", "code"},
	)
	inflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "Number of http requests being served, by route",
		},
		[]string{"route"},
	)
	validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Number of instances validated, by document and outcome",
		},
		[]string{"document", "result"},
	)
)

func MustRegisterCollectors(r *prometheus.Registry) {
	r.MustRegister(requests, requestDuration, requestSize, inflight, validations)
}

// ObserveValidation counts one validation against a document's schema.
func ObserveValidation(document string, conformant bool) {
	result := "nonconforming"
	if conformant {
		result = "conforming"
	}
	validations.WithLabelValues(document, result).Inc()
}

// Instrument wraps next with the request metrics of route. method only
// prepopulates the common series.
func Instrument(next http.Handler, route, method string) http.Handler {
	method = strings.ToLower(method)
	for _, code := range []string{"200", "422"} {
		requests.WithLabelValues(route, method, code)
		requestDuration.WithLabelValues(route, method, code)
	}

	curried := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerInFlight(
		inflight.With(curried),
		promhttp.InstrumentHandlerDuration(
			requestDuration.MustCurryWith(curried),
			promhttp.InstrumentHandlerCounter(
				requests.MustCurryWith(curried),
				promhttp.InstrumentHandlerRequestSize(
					requestSize.MustCurryWith(curried),
					next,
				),
			),
		),
	)
}
