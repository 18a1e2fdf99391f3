package google_test

import (
	"context"
	"net/http"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/genrelay/pkg/llm"
	"github.com/papercomputeco/genrelay/pkg/search/google"
	testutils "github.com/papercomputeco/genrelay/pkg/utils/test"
)

var _ = Describe("Google Custom Search", func() {
	var upstream *testutils.Upstream

	AfterEach(func() {
		if upstream != nil {
			upstream.Close()
			upstream = nil
		}
	})

	It("converts html snippets to markdown", func() {
		upstream = testutils.NewUpstream(testutils.RespondJSON(http.StatusOK, `{"items":[
			{"title":"Go 1.25","link":"https://go.dev/doc/go1.25","snippet":"plain","htmlSnippet":"<b>Go 1.25</b> is released"}
		]}`))
		c := google.New(google.Options{APIKey: "k", EngineID: "cx1", BaseURL: upstream.URL, Results: 3})

		results, err := c.Search(context.Background(), "go release")
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Snippet).To(Equal("**Go 1.25** is released"))

		req := upstream.LastRequest()
		q, err := url.ParseQuery(req.Query)
		Expect(err).NotTo(HaveOccurred())
		Expect(q.Get("cx")).To(Equal("cx1"))
		Expect(q.Get("q")).To(Equal("go release"))
		Expect(q.Get("num")).To(Equal("3"))
		Expect(req.Header.Get("X-Goog-Api-Key")).To(Equal("k"))
	})

	It("formats grounding context", func() {
		upstream = testutils.NewUpstream(testutils.RespondJSON(http.StatusOK,
			`{"items":[{"title":"A","link":"https://a.example","snippet":"first"}]}`))
		c := google.New(google.Options{APIKey: "k", EngineID: "cx1", BaseURL: upstream.URL})

		text, err := c.Ground(context.Background(), "a")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(ContainSubstring("1. A <https://a.example>"))
		Expect(text).To(ContainSubstring("first"))
	})

	It("returns nothing for no hits", func() {
		Expect(google.Format(nil)).To(BeEmpty())
	})

	It("requires a key and engine id", func() {
		_, err := google.New(google.Options{}).Search(context.Background(), "x")
		Expect(llm.IsKind(err, llm.ErrConfig)).To(BeTrue())
	})
})
