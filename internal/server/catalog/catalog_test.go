package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xdavidwu/openapi-conformance/internal/conformance"
	"github.com/xdavidwu/openapi-conformance/internal/document"
	"github.com/xdavidwu/openapi-conformance/internal/schema"
	"github.com/xdavidwu/openapi-conformance/internal/server"
	"github.com/xdavidwu/openapi-conformance/internal/server/catalog"
	"github.com/xdavidwu/openapi-conformance/internal/server/middlewares"
)

const peersYAML = `
openapi: 3.0.3
components:
  schemas:
    Peer:
      type: object
      required: [id]
      properties:
        id:
          type: string
        region:
          $ref: "regions.yaml#/components/schemas/Region"
    Broken:
      $ref: "#/components/schemas/Nope"
`

const regionsYAML = `
openapi: 3.0.3
components:
  schemas:
    Region:
      type: string
      nullable: true
`

var _ = Describe("Catalog", func() {
	var (
		dir      string
		manifest *conformance.Manifest
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		writeFiles(dir, map[string]string{
			"api/peers.yaml":   peersYAML,
			"api/regions.yaml": regionsYAML,
		})
		var err error
		manifest, err = conformance.ParseManifest([]byte(`
documents:
  federation: api/peers.yaml
  missing: api/missing.yaml
`), dir)
		Expect(err).NotTo(HaveOccurred())
	})

	build := func() *catalog.Catalog {
		c, err := catalog.Build(manifest, document.FileReader{}, logr.Discard())
		Expect(err).To(HaveOccurred())
		Expect(c).NotTo(BeNil())
		return c
	}

	It("validates against every named schema", func() {
		c := build()
		result, err := c.Validate("federation", "Peer", map[string]any{"id": "p1", "region": nil})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Conformant).To(BeTrue())

		result, err = c.Validate("federation", "Peer", map[string]any{"region": "eu"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Conformant).To(BeFalse())

		resolved, err := c.Resolved("federation", "Peer")
		Expect(err).NotTo(HaveOccurred())
		Expect(resolved.(map[string]any)["properties"]).To(HaveKey("region"))
	})

	It("keeps failures per schema and per document", func() {
		c := build()
		_, err := c.Validate("federation", "Broken", nil)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, catalog.ErrNotFound)).To(BeFalse())

		_, err = c.Validate("missing", "Peer", nil)
		Expect(errors.Is(err, document.ErrInvalid)).To(BeTrue())

		_, err = c.Validate("federation", "Gadget", nil)
		Expect(errors.Is(err, catalog.ErrNotFound)).To(BeTrue())
		_, err = c.Validate("nope", "Peer", nil)
		Expect(errors.Is(err, catalog.ErrNotFound)).To(BeTrue())
	})

	It("tracks documents reached through references", func() {
		c := build()
		Expect(c.Uses(document.Canonical(filepath.Join(dir, "api", "regions.yaml")))).To(BeTrue())
		Expect(c.Uses(document.Canonical(filepath.Join(dir, "api", "missing.yaml")))).To(BeTrue())
	})

	Describe("Handler", func() {
		var mux *http.ServeMux

		BeforeEach(func() {
			mux = http.NewServeMux()
			catalog.NewHandler(build()).Register(mux, []string{"s3cret"}, 1024)
		})

		serve := func(method, path, body, token string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, path, strings.NewReader(body))
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			return rec
		}

		DescribeTable("POST /validate",
			func(path, body, token string, status int) {
				Expect(serve(http.MethodPost, path, body, token).Code).To(Equal(status))
			},
			Entry("conforming", "/validate/federation/Peer", `{"id": "p1"}`, "s3cret", http.StatusOK),
			Entry("nonconforming", "/validate/federation/Peer", `{"id": 1}`, "s3cret", http.StatusUnprocessableEntity),
			Entry("not json", "/validate/federation/Peer", `{`, "s3cret", http.StatusUnprocessableEntity),
			Entry("unknown schema", "/validate/federation/Gadget", `{}`, "s3cret", http.StatusNotFound),
			Entry("broken schema", "/validate/federation/Broken", `{}`, "s3cret", http.StatusInternalServerError),
			Entry("no token", "/validate/federation/Peer", `{"id": "p1"}`, "", http.StatusUnauthorized),
			Entry("wrong token", "/validate/federation/Peer", `{"id": "p1"}`, "nope", http.StatusForbidden),
			Entry("body too large", "/validate/federation/Peer", `{"id": "`+strings.Repeat("x", 2048)+`"}`, "s3cret", http.StatusRequestEntityTooLarge),
		)

		It("returns violations with their paths", func() {
			rec := serve(http.MethodPost, "/validate/federation/Peer", `{"id": 1, "region": 2}`, "s3cret")
			var result schema.Result
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.Conformant).To(BeFalse())
			Expect(result.Violations).To(HaveLen(2))
			Expect(result.Violations[0].Path).To(Equal([]string{"id"}))
			Expect(result.Violations[1].Path).To(Equal([]string{"region"}))
		})

		It("quotes the request id when a schema is broken", func() {
			rec := serve(http.MethodPost, "/validate/federation/Broken", `{}`, "s3cret")
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			var body server.ErrorResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.RequestId).To(HaveLen(5))
			Expect(body.RequestId).To(Equal(rec.Header().Get(middlewares.RequestIdHeader)))
			Expect(body.Message).NotTo(BeEmpty())
		})

		It("serves resolved schemas", func() {
			rec := serve(http.MethodGet, "/schemas/federation/Peer", "", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"anyOf"`))
			Expect(rec.Body.String()).NotTo(ContainSubstring(`$ref`))
		})
	})

	It("rebuilds when a document changes", func(ctx SpecContext) {
		h := catalog.NewHandler(build())
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		done := make(chan error)
		go func() {
			done <- catalog.Watch(watchCtx, h, func() (*catalog.Catalog, error) {
				return catalog.Build(manifest, document.FileReader{}, logr.Discard())
			}, logr.Discard())
		}()

		conforms := func() bool {
			result, err := h.Catalog().Validate("federation", "Peer", map[string]any{"id": "p1", "region": 5})
			return err == nil && result.Conformant
		}
		Expect(conforms()).To(BeFalse())

		time.Sleep(100 * time.Millisecond)
		writeFiles(dir, map[string]string{"api/regions.yaml": `
openapi: 3.0.3
components:
  schemas:
    Region: {}
`})
		Eventually(conforms).WithTimeout(5 * time.Second).Should(BeTrue())

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	}, SpecTimeout(10*time.Second))
})
