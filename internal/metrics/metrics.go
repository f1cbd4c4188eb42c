package metrics

import (
	"fmt"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xdavidwu/openapi-conformance/internal/deref"
	"github.com/xdavidwu/openapi-conformance/internal/document"
)

const (
	ResultPass  = "pass"
	ResultFail  = "fail"
	ResultError = "error"
)

var (
	documentsLoaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "conformance_documents_loaded_total",
			Help: "Number of schema documents read and parsed",
		},
	)
	referencesResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conformance_references_resolved_total",
			Help: "Number of references followed, by arena outcome",
		},
		[]string{"result"},
	)
	checks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conformance_checks_total",
			Help: "Number of instance checks, by outcome",
		},
		[]string{"result"},
	)
	violations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "conformance_violations_total",
			Help: "Number of violations reported",
		},
	)
)

func init() {
	for _, r := range []string{ResultPass, ResultFail, ResultError} {
		checks.WithLabelValues(r)
	}
	for _, r := range []string{"miss", "hit", "cycle"} {
		referencesResolved.WithLabelValues(r)
	}
}

func MustRegisterCollectors(r *prometheus.Registry) {
	r.MustRegister(documentsLoaded, referencesResolved, checks, violations)
}

// ObserveSession adds the totals of a finished session.
func ObserveSession(store document.Stats, session deref.Stats) {
	documentsLoaded.Add(float64(store.Reads))
	referencesResolved.WithLabelValues("miss").Add(float64(session.Misses))
	referencesResolved.WithLabelValues("hit").Add(float64(session.Hits))
	referencesResolved.WithLabelValues("cycle").Add(float64(session.Cycles))
}

func ObserveCheck(result string, n int) {
	checks.WithLabelValues(result).Inc()
	violations.Add(float64(n))
}

// NewRegistry returns a registry with the process collectors, the
// conformance collectors, and any extra ones.
func NewRegistry(extra ...func(*prometheus.Registry)) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(collectors.MetricsAll),
		),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	MustRegisterCollectors(registry)
	for _, f := range extra {
		f(registry)
	}
	return registry
}

type promhttpLogrAdaptor struct {
	logr.Logger
}

func (p promhttpLogrAdaptor) Println(v ...interface{}) {
	p.Info(fmt.Sprintln(v...))
}

func MetricHandler(l logr.Logger, registry *prometheus.Registry) http.Handler {
	return promhttp.InstrumentMetricHandler(
		registry,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			ErrorLog: promhttpLogrAdaptor{l},
			Registry: registry,
		}),
	)
}

// WriteTextfile dumps the registry in the text format, for node_exporter's
// textfile collector.
func WriteTextfile(path string, registry *prometheus.Registry) error {
	return prometheus.WriteToTextfile(path, registry)
}
