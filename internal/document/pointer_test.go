package document_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xdavidwu/openapi-conformance/internal/document"
)

var _ = Describe("JSON pointer", func() {
	doc := &document.Document{
		Location: "/specs/api.yaml",
		Root: map[string]any{
			"components": map[string]any{
				"schemas": map[string]any{
					"a/b": "slash",
					"m~n": "tilde",
					"~1":  "literal",
					"List": map[string]any{
						"items": []any{"x"},
					},
				},
			},
		},
	}

	DescribeTable("resolves escaped tokens",
		func(pointer string, expected any) {
			v, err := document.GetAtPointer(doc, pointer)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(expected))
		},
		Entry("slash", "/components/schemas/a~1b", "slash"),
		Entry("tilde", "/components/schemas/m~0n", "tilde"),
		Entry("escaped tilde before one", "/components/schemas/~01", "literal"),
	)

	It("addresses the root with the empty pointer", func() {
		v, err := document.GetAtPointer(doc, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(doc.Root))
	})

	DescribeTable("reports the first missing segment",
		func(pointer, segment string) {
			_, err := document.GetAtPointer(doc, pointer)
			Expect(errors.Is(err, document.ErrPointerNotFound)).To(BeTrue())
			var notFound *document.PointerNotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.Pointer).To(Equal(pointer))
			Expect(notFound.Segment).To(Equal(segment))
			Expect(notFound.Location).To(Equal("/specs/api.yaml"))
		},
		Entry("missing key", "/components/schemas/Nope/type", "Nope"),
		Entry("descending into a sequence", "/components/schemas/List/items/0", "0"),
		Entry("descending into a scalar", "/components/schemas/a~1b/x", "x"),
	)

	It("round trips tokens", func() {
		for _, token := range []string{"plain", "a/b", "~", "~1", "/~/"} {
			Expect(document.UnescapeToken(document.EscapeToken(token))).To(Equal(token))
		}
		Expect(document.SplitPointer("/a~1b/c~0d")).To(Equal([]string{"a/b", "c~d"}))
	})
})
