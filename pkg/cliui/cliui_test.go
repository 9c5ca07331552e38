package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/cliui"
)

var _ = Describe("cliui", func() {
	DescribeTable("FormatDuration",
		func(d time.Duration, want string) {
			Expect(cliui.FormatDuration(d)).To(Equal(want))
		},
		Entry("milliseconds", 12*time.Millisecond, "12ms"),
		Entry("seconds", 3200*time.Millisecond, "3.2s"),
	)

	It("marks errors", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
	})

	It("prints the step result", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "ensuring schema", func() error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(ansi.Strip(buf.String())).To(ContainSubstring("✓ ensuring schema"))
	})

	It("returns the step error", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")
		Expect(cliui.Step(&buf, "connecting", func() error { return boom })).To(MatchError(boom))
		Expect(ansi.Strip(buf.String())).To(ContainSubstring("✗ connecting"))
	})

	It("skips the spinner when not writing to a terminal", func() {
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "quiet", func() error {
			time.Sleep(200 * time.Millisecond)
			return nil
		})).To(Succeed())
		Expect(buf.String()).NotTo(ContainSubstring("\r"))
		Expect(strings.Count(buf.String(), "quiet")).To(Equal(1))
	})

	Describe("chat transcript", func() {
		It("labels the user and agent", func() {
			Expect(ansi.Strip(cliui.UserPrompt())).To(Equal("💬 User: "))
			Expect(ansi.Strip(cliui.AgentLine("Agent", "Hi!"))).To(Equal("🤖 Agent: Hi!"))
		})

		It("renders the banner", func() {
			out := ansi.Strip(cliui.Banner{
				AppName:   "PostgresMemoryDemoApp",
				UserID:    "alice",
				SessionID: "session_123",
				Resumed:   true,
			}.Render(60))

			Expect(out).To(ContainSubstring("PostgresMemoryDemoApp"))
			Expect(out).To(ContainSubstring("alice"))
			Expect(out).To(ContainSubstring("session_123 (resumed)"))
			Expect(out).To(ContainSubstring("Type 'exit' or 'quit'"))
			Expect(out).NotTo(ContainSubstring("model"))

			for _, line := range strings.Split(out, "\n") {
				Expect(cliui.VisibleWidth(line)).To(BeNumerically("<=", 60))
			}
		})
	})
})
