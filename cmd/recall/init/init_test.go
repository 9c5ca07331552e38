package initcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/recall/cmd/recall/init"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/dotdir"
)

var _ = Describe("init", func() {
	var tmpDir string

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return ansi.Strip(out.String()), err
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		orig, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(os.Chdir, orig)
	})

	It("creates the local directory once", func() {
		out, err := run()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Initialized .recall directory"))

		info, err := os.Stat(filepath.Join(tmpDir, ".recall"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		out, err = run()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Already initialized"))
	})

	It("writes a preset config", func() {
		_, err := run("--preset", "ollama")
		Expect(err).NotTo(HaveOccurred())

		cfger, err := config.NewConfiger(filepath.Join(tmpDir, ".recall"))
		Expect(err).NotTo(HaveOccurred())
		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Model.Provider).To(Equal("ollama"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
	})

	It("rejects unknown presets", func() {
		_, err := run("--preset", "mystery")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
	})

	It("keeps an existing config unless forced", func() {
		_, err := run("--preset", "openai")
		Expect(err).NotTo(HaveOccurred())

		_, err = run("--preset", "ollama")
		Expect(err).To(MatchError(ContainSubstring("pass --force")))

		dir := filepath.Join(tmpDir, ".recall")
		Expect(dotdir.NewManager().SaveSessionState(&dotdir.SessionState{UserID: "alice", SessionID: "s1"}, dir)).To(Succeed())

		_, err = run("--preset", "ollama", "--force")
		Expect(err).NotTo(HaveOccurred())

		state, err := dotdir.NewManager().LoadSessionState(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})
})
