package prompt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/genrelay/pkg/prompt"
)

var _ = Describe("Build", func() {
	DescribeTable("persona prompts",
		func(opts prompt.Options, genre, extra string, want []string) {
			got, err := prompt.Build(opts, genre, extra)
			Expect(err).NotTo(HaveOccurred())
			for _, s := range want {
				Expect(got).To(ContainSubstring(s))
			}
		},
		Entry("storyforge defaults to fantasy", prompt.Options{}, "", "",
			[]string{"StoryForge", "fantasy world", `"action": "add_item"`}),
		Entry("storyforge uses the requested genre", prompt.Options{Persona: prompt.PersonaStoryForge}, "cyberpunk", "",
			[]string{"cyberpunk world"}),
		Entry("helper persona", prompt.Options{Persona: prompt.PersonaHelper}, "", "",
			[]string{"Johnny"}),
	)

	It("lets the override win and appends client system text", func() {
		got, err := prompt.Build(prompt.Options{Persona: prompt.PersonaHelper, Override: "Be brief."}, "", "The user is called Sam.")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal("Be brief.\n\nThe user is called Sam."))
	})

	It("keeps only client system text for the none persona", func() {
		got, err := prompt.Build(prompt.Options{Persona: prompt.PersonaNone}, "", "You are Johnny.")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal("You are Johnny."))
	})

	It("rejects unknown personas", func() {
		_, err := prompt.Build(prompt.Options{Persona: "pirate"}, "", "")
		Expect(err).To(MatchError(ContainSubstring("unknown persona")))
		Expect(prompt.IsPersona("pirate")).To(BeFalse())
		Expect(prompt.IsPersona(prompt.PersonaHelper)).To(BeTrue())
	})
})
