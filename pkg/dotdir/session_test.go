package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/genrelay/pkg/dotdir"
	"github.com/papercomputeco/genrelay/pkg/llm"
)

var _ = Describe("dotdir.Manager session", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns nil when no session has been saved", func() {
		session, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(session).To(BeNil())
	})

	It("loads a session written by hand", func() {
		data := `{"genre":"noir","turns":[{"role":"user","text":"knock knock"},{"role":"assistant","text":"who's there?"}]}`
		Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte(data), 0o600)).To(Succeed())

		session, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Genre).To(Equal("noir"))
		Expect(session.Turns).To(Equal([]llm.Turn{
			{Role: llm.RoleUser, Text: "knock knock"},
			{Role: llm.RoleAssistant, Text: "who's there?"},
		}))
	})

	It("returns error for invalid JSON", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("not json"), 0o600)).To(Succeed())

		session, err := m.LoadSession(tmpDir)
		Expect(err).To(HaveOccurred())
		Expect(session).To(BeNil())
	})

	It("round-trips and clears a session", func() {
		session := &dotdir.Session{
			Turns: []llm.Turn{
				llm.NewTurn(llm.RoleUser, "open the gate"),
				llm.NewTurn(llm.RoleAssistant, "The gate creaks open. (-5 HP)"),
			},
		}
		Expect(m.SaveSession(session, tmpDir)).To(Succeed())

		loaded, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(session))

		Expect(m.ClearSession(tmpDir)).To(Succeed())
		loaded, err = m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(BeNil())
	})

	It("refuses a nil session", func() {
		Expect(m.SaveSession(nil, tmpDir)).To(MatchError("cannot save nil session"))
	})

	It("clears nothing without error", func() {
		Expect(m.ClearSession(tmpDir)).To(Succeed())
	})
})
