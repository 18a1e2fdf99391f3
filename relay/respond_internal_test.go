package relay

import (
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/genrelay/pkg/llm"
)

var _ = Describe("Error responses", func() {
	DescribeTable("statusFor",
		func(err error, want int) {
			Expect(statusFor(err)).To(Equal(want))
		},
		Entry("validation", llm.NewValidationError("Text is required"), http.StatusBadRequest),
		Entry("upstream", llm.NewUpstreamError("openai", 429, nil), http.StatusBadGateway),
		Entry("unavailable", llm.NewUnavailableError("gemini", errors.New("dial tcp")), http.StatusBadGateway),
		Entry("malformed", llm.NewMalformedError("openai", []byte("{}"), nil), http.StatusBadGateway),
		Entry("unsupported capability", &llm.Error{Kind: llm.ErrUnsupportedCapability, Provider: "gemini"}, http.StatusBadGateway),
		Entry("empty response", llm.NewEmptyResponseError("gemini", "SAFETY", nil), http.StatusInternalServerError),
		Entry("config", llm.NewConfigError("openai", "OPENAI_API_KEY is not set"), http.StatusInternalServerError),
		Entry("wrapped", fmt.Errorf("chat: %w", llm.NewValidationError("x")), http.StatusBadRequest),
		Entry("untyped", errors.New("boom"), http.StatusInternalServerError),
	)

	It("keeps raw upstream bodies server side", func() {
		err := llm.NewUpstreamError("openai", 401, []byte(`{"error":{"message":"Incorrect API key provided: sk-abc"}}`))

		body := bodyFor(err)
		Expect(body.Error).To(Equal("Upstream request to openai failed"))
		Expect(body.Details).To(Equal("status 401"))
		Expect(body.Error + body.Details).NotTo(ContainSubstring("sk-abc"))
	})

	It("carries the empty response reason in details", func() {
		body := bodyFor(llm.NewEmptyResponseError("gemini", "blockReason: SAFETY", nil))
		Expect(body.Error).To(Equal("Empty response from gemini"))
		Expect(body.Details).To(Equal("blockReason: SAFETY"))

		body = bodyFor(llm.NewEmptyResponseError("gemini", "", nil))
		Expect(body.Details).NotTo(BeEmpty())
	})
})

var _ = Describe("imageInput", func() {
	It("decodes data URLs and sniffs bare base64", func() {
		ref, err := imageInput{Data: "data:image/gif;base64,R0lGODlh"}.decode()
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.MimeType).To(Equal("image/gif"))
		Expect(ref.Data).To(Equal([]byte("GIF89a")))

		ref, err = imageInput{Data: "R0lGODlh"}.decode()
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.MimeType).To(Equal("image/gif"))
	})

	It("rejects undecodable and missing data", func() {
		_, err := imageInput{Data: "data:image/png,notbase64"}.decode()
		Expect(llm.IsKind(err, llm.ErrValidation)).To(BeTrue())

		_, err = imageInput{Data: ""}.decode()
		Expect(llm.IsKind(err, llm.ErrValidation)).To(BeTrue())
	})
})
