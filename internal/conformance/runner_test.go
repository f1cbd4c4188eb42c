package conformance_test

import (
	"context"
	"errors"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/multierr"

	"github.com/xdavidwu/openapi-conformance/internal/conformance"
	"github.com/xdavidwu/openapi-conformance/internal/deref"
	"github.com/xdavidwu/openapi-conformance/internal/document"
	"github.com/xdavidwu/openapi-conformance/internal/schema"
)

var repo = map[string]string{
	"api/widgets/openapi.yaml": `
openapi: 3.0.3
components:
  schemas:
    Widget:
      type: object
      required: [id]
      properties:
        id:
          type: string
        owner:
          $ref: "../common/openapi.yaml#/components/schemas/Owner"
        tags:
          type: array
          items:
            type: string
`,
	"api/common/openapi.yaml": `
openapi: 3.0.3
components:
  schemas:
    Owner:
      type: string
      nullable: true
`,
	"examples/good.json":    `{"id": "w1", "owner": null}`,
	"examples/no-id.json":   `{"owner": null}`,
	"examples/tags.json":    `{"id": "w2", "tags": [1, "ok", 2, 3]}`,
	"examples/invalid.json": `{"id": `,
}

const manifest = `
documents:
  widgets: api/widgets/openapi.yaml
examples:
  - file: examples/tags.json
    document: widgets
    schema: Widget
  - file: examples/good.json
    document: widgets
    schema: Widget
  - file: examples/no-id.json
    document: widgets
    schema: Widget
`

var _ = Describe("Runner", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		writeFiles(dir, repo)
	})

	run := func(content string, workers int) *conformance.Report {
		m, err := conformance.ParseManifest([]byte(content), dir)
		Expect(err).NotTo(HaveOccurred())
		report, err := (&conformance.Runner{Manifest: m, Workers: workers, Log: logr.Discard()}).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		return report
	}

	It("reports only the nonconforming example of two", func() {
		report := run(`
documents:
  widgets: api/widgets/openapi.yaml
examples:
  - file: examples/good.json
    document: widgets
    schema: Widget
  - file: examples/no-id.json
    document: widgets
    schema: Widget
`, 1)
		Expect(report.OK()).To(BeFalse())
		Expect(report.Checked).To(Equal(2))
		Expect(report.Failures).To(HaveLen(1))
		Expect(report.Failures[0].Example).To(Equal("examples/no-id.json"))
		Expect(report.Lines()).To(HaveLen(1))
		Expect(report.Lines()[0]).To(HavePrefix("examples/no-id.json vs widgets:Widget: (root): "))
		Expect(report.Err()).NotTo(HaveOccurred())
	})

	It("sorts lines by example then by data path", func() {
		lines := run(manifest, 1).Lines()
		Expect(lines).To(HaveLen(4))
		Expect(lines[0]).To(HavePrefix("examples/no-id.json vs widgets:Widget: (root): "))
		Expect(lines[1]).To(HavePrefix("examples/tags.json vs widgets:Widget: /tags/0: "))
		Expect(lines[2]).To(HavePrefix("examples/tags.json vs widgets:Widget: /tags/2: "))
		Expect(lines[3]).To(HavePrefix("examples/tags.json vs widgets:Widget: /tags/3: "))
	})

	It("reports the same lines with a worker pool", func() {
		Expect(run(manifest, 4).Lines()).To(Equal(run(manifest, 1).Lines()))
	})

	It("caps violations per check", func() {
		lines := run(manifest+"max_violations: 2\n", 1).Lines()
		Expect(lines).To(Equal([]string{
			lines[0],
			lines[1],
			lines[2],
			"examples/tags.json vs widgets:Widget: ... and 1 more",
		}))
		Expect(lines[2]).To(HavePrefix("examples/tags.json vs widgets:Widget: /tags/2: "))
	})

	It("renders each check's violations as its schema report", func() {
		report := run(manifest+"max_violations: 2\n", 1)
		var tags []schema.Violation
		for _, f := range report.Failures {
			if f.Example == "examples/tags.json" {
				tags = append(tags, schema.Violation{Path: f.Path, Message: f.Message})
			}
		}
		Expect(tags).To(HaveLen(3))

		var want []string
		for _, line := range schema.Report(tags, 2) {
			want = append(want, "examples/tags.json vs widgets:Widget: "+line)
		}
		Expect(report.Lines()[1:]).To(Equal(want))
	})

	It("keeps going past structural failures and aggregates them", func() {
		report := run(`
documents:
  widgets: api/widgets/openapi.yaml
  broken: api/missing.yaml
examples:
  - file: examples/absent.json
    document: widgets
    schema: Widget
  - file: examples/invalid.json
    document: widgets
    schema: Widget
  - file: examples/good.json
    document: widgets
    schema: Gadget
  - file: examples/good.json
    document: broken
    schema: Widget
  - file: examples/good.json
    document: widgets
    schema: Widget
`, 1)
		Expect(report.OK()).To(BeFalse())
		Expect(report.Checked).To(Equal(5))
		Expect(report.Failures).To(HaveLen(4))

		lines := report.Lines()
		Expect(lines[0]).To(HavePrefix("examples/absent.json vs widgets:Widget: missing example file"))
		Expect(lines[1]).To(HavePrefix("examples/good.json vs broken:Widget: cannot resolve schema"))
		Expect(lines[2]).To(HavePrefix("examples/good.json vs widgets:Gadget: cannot resolve schema"))
		Expect(lines[3]).To(HavePrefix("examples/invalid.json vs widgets:Widget: invalid JSON in example"))

		err := report.Err()
		Expect(multierr.Errors(err)).To(HaveLen(4))
		Expect(errors.Is(err, deref.ErrSchemaNotFound)).To(BeTrue())
		Expect(errors.Is(err, document.ErrInvalid)).To(BeTrue())
	})

	It("passes when every example conforms", func() {
		report := run(`
documents:
  widgets: api/widgets/openapi.yaml
examples:
  - file: examples/good.json
    document: widgets
    schema: Widget
`, 2)
		Expect(report.OK()).To(BeTrue())
		Expect(report.Lines()).To(BeEmpty())
	})
})
