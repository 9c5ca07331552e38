package historycmder

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/app"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
)

var _ = Describe("history", func() {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)

	Describe("printTurns", func() {
		It("groups turns by session with relative dates", func() {
			var out bytes.Buffer
			printTurns(&out, "alice", []storage.Turn{
				{SessionID: "s1", Role: storage.RoleUser, Text: "my dog is Rex", CreatedAt: now.AddDate(0, 0, -1)},
				{SessionID: "s1", Role: storage.RoleAgent, Text: "nice", CreatedAt: now.AddDate(0, 0, -1)},
				{SessionID: "s2", Role: storage.RoleUser, Text: "hello again", CreatedAt: now},
			}, now)

			text := ansi.Strip(out.String())
			Expect(text).To(ContainSubstring("session s1"))
			Expect(text).To(ContainSubstring("session s2"))
			Expect(text).To(ContainSubstring("yesterday [2026-03-09]  user: my dog is Rex"))
			Expect(text).To(ContainSubstring("today [2026-03-10]  user: hello again"))
			Expect(text).To(ContainSubstring("3 turns"))
		})

		It("says when nothing is stored", func() {
			var out bytes.Buffer
			printTurns(&out, "bob", nil, now)
			Expect(ansi.Strip(out.String())).To(ContainSubstring("No stored turns for bob."))
		})
	})

	Describe("printRecollection", func() {
		It("prints the memory block", func() {
			var out bytes.Buffer
			printRecollection(&out, "alice", memory.Recollection{Text: "user: my dog is Rex", Items: 1})
			text := ansi.Strip(out.String())
			Expect(text).To(ContainSubstring("(1 items, dated: false)"))
			Expect(text).To(ContainSubstring("user: my dog is Rex"))
		})

		It("says when nothing is recalled", func() {
			var out bytes.Buffer
			printRecollection(&out, "alice", memory.Recollection{})
			Expect(ansi.Strip(out.String())).To(ContainSubstring("No memory for alice."))
		})
	})

	Describe("command", func() {
		BeforeEach(func() {
			dir := GinkgoT().TempDir()
			orig, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.MkdirAll(filepath.Join(dir, ".recall"), 0o755)).To(Succeed())
			Expect(os.Chdir(dir)).To(Succeed())
			DeferCleanup(os.Chdir, orig)
		})

		It("lists an empty in-memory store", func() {
			var out bytes.Buffer
			cmd := NewHistoryCmd()
			cmd.SetOut(&out)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{"--storage-driver", "memory", "--user", "carol"})
			Expect(cmd.Execute()).To(Succeed())
			Expect(ansi.Strip(out.String())).To(ContainSubstring("No stored turns for carol."))
		})

		It("requires local memory to list turns", func() {
			cmd := NewHistoryCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{"--memory-mode", "remote", "--remote-target", "http://127.0.0.1:1"})
			Expect(cmd.Execute()).To(MatchError(app.ErrLocalOnly))
		})
	})
})
