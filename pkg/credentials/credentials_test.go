package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/genrelay/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		dir string
		mgr *credentials.Manager
	)

	writeFile := func(body string) {
		Expect(os.WriteFile(filepath.Join(dir, "credentials.toml"), []byte(body), 0o600)).To(Succeed())
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(dir)
		Expect(err).NotTo(HaveOccurred())

		for _, p := range credentials.SupportedProviders() {
			for _, name := range credentials.EnvVarsForProvider(p) {
				GinkgoT().Setenv(name, "")
			}
		}
	})

	It("targets credentials.toml in the override directory", func() {
		Expect(mgr.GetTarget()).To(Equal(filepath.Join(dir, "credentials.toml")))
	})

	Context("with no file on disk", func() {
		It("has no stored keys", func() {
			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(BeEmpty())
		})

		It("treats removal as a no-op without creating the file", func() {
			Expect(mgr.RemoveKey("openai")).To(Succeed())
			_, err := os.Stat(mgr.GetTarget())
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Describe("SetKey", func() {
		It("writes an owner-only file", func() {
			Expect(mgr.SetKey("openai", "sk-one")).To(Succeed())

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("records when the key was stored", func() {
			Expect(mgr.SetKey("gemini", "g-key")).To(Succeed())

			stored, ok, err := mgr.Stored("gemini")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(stored.APIKey).To(Equal("g-key"))
			Expect(stored.StoredAt.IsZero()).To(BeFalse())
		})

		It("replaces a previous key and keeps the others", func() {
			Expect(mgr.SetKey("openai", "sk-one")).To(Succeed())
			Expect(mgr.SetKey("elevenlabs", "el-key")).To(Succeed())
			Expect(mgr.SetKey("openai", "sk-two")).To(Succeed())

			Expect(mgr.GetKey("openai")).To(Equal("sk-two"))
			Expect(mgr.GetKey("elevenlabs")).To(Equal("el-key"))
			Expect(mgr.ListProviders()).To(Equal([]string{"elevenlabs", "openai"}))
		})

		It("rejects providers without an API key", func() {
			Expect(mgr.SetKey("bedrock", "x")).To(MatchError(ContainSubstring("unsupported provider")))
		})

		It("rejects empty keys", func() {
			Expect(mgr.SetKey("openai", "")).To(MatchError(ContainSubstring("cannot be empty")))
		})
	})

	Describe("RemoveKey", func() {
		It("deletes only the named provider", func() {
			Expect(mgr.SetKey("openai", "sk-one")).To(Succeed())
			Expect(mgr.SetKey("search", "s-key")).To(Succeed())

			Expect(mgr.RemoveKey("openai")).To(Succeed())
			Expect(mgr.ListProviders()).To(Equal([]string{"search"}))
		})
	})

	Describe("reading existing files", func() {
		It("reads keys written by hand", func() {
			writeFile("version = 0\n\n[providers.google_tts]\napi_key = \"tts-key\"\n")
			Expect(mgr.GetKey("google_tts")).To(Equal("tts-key"))
		})

		It("fails on malformed TOML", func() {
			writeFile("not valid [[[")
			_, err := mgr.GetKey("openai")
			Expect(err).To(MatchError(ContainSubstring("parsing credentials")))
		})

		It("fails on an unknown version", func() {
			writeFile("version = 3\n")
			_, err := mgr.ListProviders()
			Expect(err).To(MatchError(ContainSubstring("unsupported credentials version 3")))
		})
	})

	Describe("Resolve", func() {
		It("returns nothing when neither source has a key", func() {
			key, source, err := mgr.Resolve("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
			Expect(source).To(BeEmpty())
		})

		It("falls back to the stored key", func() {
			Expect(mgr.SetKey("elevenlabs", "stored")).To(Succeed())

			key, source, err := mgr.Resolve("elevenlabs")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("stored"))
			Expect(source).To(Equal("credentials.toml"))
		})

		It("prefers the environment over the stored key", func() {
			Expect(mgr.SetKey("openai", "stored")).To(Succeed())
			GinkgoT().Setenv("OPENAI_API_KEY", "from-env")

			key, source, err := mgr.Resolve("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("from-env"))
			Expect(source).To(Equal("env:OPENAI_API_KEY"))
		})

		DescribeTable("walks the Google variables in order",
			func(provider string, env map[string]string, wantSource string) {
				for k, v := range env {
					GinkgoT().Setenv(k, v)
				}
				_, source, err := mgr.Resolve(provider)
				Expect(err).NotTo(HaveOccurred())
				Expect(source).To(Equal(wantSource))
			},
			Entry("gemini specific", "gemini",
				map[string]string{"GEMINI_API_KEY": "a", "GOOGLE_API_KEY": "b"}, "env:GEMINI_API_KEY"),
			Entry("gemini shared", "gemini",
				map[string]string{"GOOGLE_API_KEY": "b"}, "env:GOOGLE_API_KEY"),
			Entry("tts shared", "google_tts",
				map[string]string{"GOOGLE_API_KEY": "b"}, "env:GOOGLE_API_KEY"),
			Entry("search specific", "search",
				map[string]string{"GOOGLE_SEARCH_API_KEY": "s", "GOOGLE_API_KEY": "b"}, "env:GOOGLE_SEARCH_API_KEY"),
		)
	})
})

var _ = Describe("Provider environment", func() {
	It("lists the providers that take an API key", func() {
		Expect(credentials.SupportedProviders()).To(ConsistOf("openai", "gemini", "elevenlabs", "google_tts", "search"))
		Expect(credentials.IsSupportedProvider("bedrock")).To(BeFalse())
	})

	It("names the provider-specific variable first", func() {
		Expect(credentials.EnvVarForProvider("google_tts")).To(Equal("GOOGLE_TTS_API_KEY"))
		Expect(credentials.EnvVarForProvider("nope")).To(BeEmpty())
		Expect(credentials.EnvVarsForProvider("search")).To(Equal([]string{"GOOGLE_SEARCH_API_KEY", "GOOGLE_API_KEY"}))
	})

	It("returns a copy of the variable list", func() {
		names := credentials.EnvVarsForProvider("openai")
		names[0] = "CHANGED"
		Expect(credentials.EnvVarForProvider("openai")).To(Equal("OPENAI_API_KEY"))
	})
})
