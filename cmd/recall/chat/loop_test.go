package chatcmder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing/iotest"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/hooks"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/memory"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
)

var _ = Describe("chat loop", func() {
	var (
		ctx   context.Context
		cfg   *config.Config
		mem   *testutils.MockMemoryDriver
		p     *hooks.Pipeline
		out   bytes.Buffer
		cmder *chatCommander
	)

	run := func(input string, model llm.Model) string {
		cmder.in = strings.NewReader(input)
		Expect(cmder.loop(ctx, p, model, cfg, hooks.Context{UserID: "alice", SessionID: "s1"})).To(Succeed())
		return ansi.Strip(out.String())
	}

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.NewDefaultConfig()
		mem = testutils.NewMockMemoryDriver()
		out.Reset()
		cmder = &chatCommander{out: &out}

		var err error
		p, err = hooks.New(hooks.Config{Memory: mem})
		Expect(err).NotTo(HaveOccurred())
	})

	It("answers each line and stops at exit", func() {
		model := testutils.NewMockModel("Rex.")
		text := run("what is my dog's name?\n\nexit\nnever sent\n", model)

		Expect(text).To(ContainSubstring("💬 User: "))
		Expect(text).To(ContainSubstring("🤖 PostgresKnowledgeAgent: Rex."))
		Expect(model.Requests).To(HaveLen(1))
		Expect(model.Requests[0].System).To(Equal(config.DefaultInstruction))
		Expect(*model.Requests[0].MaxTokens).To(Equal(1024))

		Expect(mem.Stored).To(ConsistOf(memory.Exchange{
			UserID:    "alice",
			SessionID: "s1",
			UserText:  "what is my dog's name?",
			AgentText: "Rex.",
		}))
	})

	It("stops at end of input", func() {
		model := testutils.NewMockModel("hi")
		run("hello\n", model)
		Expect(model.Requests).To(HaveLen(1))
	})

	It("accepts lines longer than 64KB", func() {
		long := strings.Repeat("a", 70*1024)
		model := testutils.NewMockModel("ok")
		run(long+"\nsecond line\n", model)

		Expect(model.Requests).To(HaveLen(2))
		Expect(mem.Stored).To(HaveLen(2))
		Expect(mem.Stored[0].UserText).To(Equal(long))
		Expect(mem.Stored[1].UserText).To(Equal("second line"))
	})

	It("answers a final line without a trailing newline", func() {
		model := testutils.NewMockModel("ok")
		run("first\nlast", model)
		Expect(model.Requests).To(HaveLen(2))
	})

	It("reports a failed read instead of ending quietly", func() {
		boom := errors.New("device gone")
		cmder.in = io.MultiReader(strings.NewReader("hello\n"), iotest.ErrReader(boom))
		model := testutils.NewMockModel("ok")

		err := cmder.loop(ctx, p, model, cfg, hooks.Context{UserID: "alice", SessionID: "s1"})
		Expect(err).To(MatchError(boom))
		Expect(model.Requests).To(HaveLen(1))
		Expect(ansi.Strip(out.String())).To(ContainSubstring("✗ device gone"))
	})

	It("shows a placeholder and an error mark when the model fails", func() {
		model := &testutils.MockModel{Err: errors.New("quota exceeded")}
		text := run("hello\nquit\n", model)

		Expect(text).To(ContainSubstring("🤖 PostgresKnowledgeAgent: (No response)"))
		Expect(text).To(ContainSubstring("✗ quota exceeded"))
		Expect(mem.Stored).To(BeEmpty())
	})

	It("returns when the context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		cmder.in = strings.NewReader("")
		Expect(cmder.loop(cctx, p, testutils.NewMockModel("x"), cfg, hooks.Context{})).To(Succeed())
	})

	Describe("render", func() {
		It("passes text through without --markdown", func() {
			Expect(cmder.render(llm.TextReply("**Rex**"))).To(Equal("**Rex**"))
		})

		It("renders markdown replies on request", func() {
			cmder.markdown = true
			cmder.width = 60
			rendered := ansi.Strip(cmder.render(llm.TextReply("Your dog is called Rex.")))
			Expect(rendered).To(HavePrefix("\n"))
			Expect(rendered).To(ContainSubstring("Your dog is called Rex."))
		})

		It("leaves the error placeholder alone", func() {
			cmder.markdown = true
			Expect(cmder.render(llm.ErrorReply(errors.New("down")))).To(Equal("(No response)"))
		})
	})
})
