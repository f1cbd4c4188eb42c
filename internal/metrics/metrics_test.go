package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xdavidwu/openapi-conformance/internal/deref"
	"github.com/xdavidwu/openapi-conformance/internal/document"
	"github.com/xdavidwu/openapi-conformance/internal/metrics"
)

var _ = Describe("metrics", func() {
	BeforeEach(func() {
		metrics.ObserveSession(document.Stats{Reads: 2}, deref.Stats{Misses: 3, Hits: 1, Cycles: 1})
		metrics.ObserveCheck(metrics.ResultFail, 2)
	})

	It("serves the conformance collectors", func() {
		registry := metrics.NewRegistry()
		rec := httptest.NewRecorder()
		metrics.MetricHandler(logr.Discard(), registry).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		body := rec.Body.String()
		Expect(body).To(ContainSubstring("conformance_documents_loaded_total"))
		Expect(body).To(ContainSubstring(`conformance_references_resolved_total{result="cycle"}`))
		Expect(body).To(ContainSubstring(`conformance_checks_total{result="fail"}`))
	})

	It("writes a textfile", func() {
		path := filepath.Join(GinkgoT().TempDir(), "conformance.prom")
		Expect(metrics.WriteTextfile(path, metrics.NewRegistry())).To(Succeed())
		b, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(ContainSubstring("conformance_violations_total"))
	})
})
