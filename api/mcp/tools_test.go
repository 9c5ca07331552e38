package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
)

var _ = Describe("Tools", func() {
	var (
		ctx      context.Context
		now      time.Time
		mem      *testutils.MockMemoryDriver
		searcher *testutils.MockSearcher
		server   *Server
	)

	textOf := func(res *mcp.CallToolResult) string {
		Expect(res.Content).To(HaveLen(1))
		tc, ok := res.Content[0].(*mcp.TextContent)
		Expect(ok).To(BeTrue())
		return tc.Text
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)
		mem = testutils.NewMockMemoryDriver()
		searcher = testutils.NewMockSearcher()

		var err error
		server, err = NewServer(Config{
			Memory:   mem,
			Searcher: searcher,
			Clock:    func() time.Time { return now },
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("memory_recall", func() {
		It("requires a user id", func() {
			res, _, err := server.handleMemoryRecall(ctx, nil, MemoryRecallInput{Query: "hi"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(Equal("user_id is required"))
		})

		It("returns the recalled memory", func() {
			mem.RecallResult = memory.Recollection{Text: "user: my dog is Rex", Items: 1}

			res, out, err := server.handleMemoryRecall(ctx, nil, MemoryRecallInput{UserID: "alice", Query: "dog?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Memory).To(Equal("user: my dog is Rex"))
			Expect(out.Items).To(Equal(1))

			var decoded MemoryRecallOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &decoded)).To(Succeed())
			Expect(decoded).To(Equal(out))

			Expect(mem.Queries).To(HaveLen(1))
			Expect(mem.Queries[0].Now).To(Equal(now))
		})

		It("reports recall failures as tool errors", func() {
			mem.RecallErr = errors.New("store down")
			res, _, err := server.handleMemoryRecall(ctx, nil, MemoryRecallInput{UserID: "alice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("store down"))
		})
	})

	Describe("memory_search", func() {
		It("returns matching turns", func() {
			searcher.Results = []memory.Scored{
				{Turn: storage.Turn{ID: 1, SessionID: "s1", Role: storage.RoleUser, Text: "my dog is Rex", CreatedAt: now}, Score: 0.8},
			}

			res, out, err := server.handleSearch(ctx, nil, SearchInput{UserID: "alice", Query: "dog", TopK: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].Text).To(Equal("my dog is Rex"))
			Expect(out.Results[0].When).To(Equal("today [2025-10-29]"))
			Expect(searcher.Calls[0].K).To(Equal(3))
		})

		It("reports invalid input as a tool error", func() {
			res, _, err := server.handleSearch(ctx, nil, SearchInput{UserID: "alice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("query is required"))
		})
	})
})
