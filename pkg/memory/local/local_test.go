package local_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/recall/pkg/embeddings"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/local"
	"github.com/papercomputeco/recall/pkg/metrics"
	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
	"github.com/papercomputeco/recall/pkg/vector"
)

var _ = Describe("Local Memory Driver", func() {
	var (
		ctx   context.Context
		now   time.Time
		clock func() time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2025, 10, 29, 10, 0, 0, 0, time.UTC)
		tick := now.AddDate(0, 0, -1)
		clock = func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		}
	})

	exchange := func(user, agent string) memory.Exchange {
		return memory.Exchange{UserID: "alice", SessionID: "s1", UserText: user, AgentText: agent}
	}

	Describe("NewDriver", func() {
		It("requires a store", func() {
			_, err := local.NewDriver(local.Config{})
			Expect(errors.Is(err, memory.ErrNotConfigured)).To(BeTrue())
		})

		It("requires an embedder for an embedding store", func() {
			store := testutils.NewMockStore(storage.Variant{Embeddings: true, Dimensions: 3})
			_, err := local.NewDriver(local.Config{Store: store})
			Expect(errors.Is(err, memory.ErrNotConfigured)).To(BeTrue())
		})

		It("requires an embedder for top_k", func() {
			store := testutils.NewMockStore(storage.Variant{})
			_, err := local.NewDriver(local.Config{Store: store, TopK: 3})
			Expect(errors.Is(err, memory.ErrNotConfigured)).To(BeTrue())
		})

		It("satisfies memory.Driver", func() {
			var _ memory.Driver = (*local.Driver)(nil)
		})
	})

	Context("with a plain store", func() {
		var (
			store  *testutils.MockStore
			driver *local.Driver
			m      *metrics.Metrics
		)

		BeforeEach(func() {
			store = testutils.NewMockStore(storage.Variant{}, inmemory.WithClock(clock))
			m = metrics.New(prometheus.NewRegistry())

			var err error
			driver, err = local.NewDriver(local.Config{Store: store, Metrics: m})
			Expect(err).NotTo(HaveOccurred())
		})

		It("stores the user turn before the agent turn", func() {
			Expect(driver.Store(ctx, exchange("My dog is Buddy", "Nice!"))).To(Succeed())

			Expect(store.Appended).To(HaveLen(2))
			Expect(store.Appended[0].Role).To(Equal(storage.RoleUser))
			Expect(store.Appended[0].Text).To(Equal("My dog is Buddy"))
			Expect(store.Appended[1].Role).To(Equal(storage.RoleAgent))
			Expect(store.Appended[1].Embedding).To(BeNil())
			Expect(testutil.ToFloat64(m.TurnCommits.WithLabelValues("agent", "ok"))).To(Equal(1.0))
		})

		It("never stores the agent turn when the user turn fails", func() {
			store.FailRole = storage.RoleUser

			err := driver.Store(ctx, exchange("hello", "hi"))
			Expect(errors.Is(err, storage.ErrUnavailable)).To(BeTrue())
			Expect(store.Appended).To(BeEmpty())
			Expect(testutil.ToFloat64(m.TurnCommits.WithLabelValues("user", "error"))).To(Equal(1.0))
		})

		It("keeps the user turn when the agent turn fails", func() {
			store.FailRole = storage.RoleAgent

			err := driver.Store(ctx, exchange("hello", "hi"))
			Expect(err).To(MatchError(ContainSubstring("committing agent turn")))
			Expect(store.Appended).To(HaveLen(1))
			Expect(store.Appended[0].Role).To(Equal(storage.RoleUser))
		})

		It("recalls the full history without dates for a plain query", func() {
			Expect(driver.Store(ctx, exchange("My dog is Buddy", "Nice!"))).To(Succeed())

			rec, err := driver.Recall(ctx, memory.Query{UserID: "alice", Text: "What is my dog's name?", Now: now})
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Text).To(Equal("user: My dog is Buddy\nagent: Nice!"))
			Expect(rec.Items).To(Equal(2))
			Expect(rec.Dated).To(BeFalse())
		})

		It("adds relative dates when the query asks about time", func() {
			Expect(driver.Store(ctx, exchange("My dog is Buddy", "Nice!"))).To(Succeed())

			rec, err := driver.Recall(ctx, memory.Query{UserID: "alice", Text: "What did I say yesterday?", Now: now})
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Dated).To(BeTrue())
			Expect(rec.Text).To(HavePrefix("[yesterday [2025-10-28]] user: My dog is Buddy"))
		})

		It("recalls nothing for a new user", func() {
			rec, err := driver.Recall(ctx, memory.Query{UserID: "nobody", Text: "hi"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Empty()).To(BeTrue())
			Expect(testutil.ToFloat64(m.MemoryRetrievals.WithLabelValues("local", "empty"))).To(Equal(1.0))
		})

		It("surfaces load failures", func() {
			store.FailLoad = true
			_, err := driver.Recall(ctx, memory.Query{UserID: "alice", Text: "hi"})
			Expect(errors.Is(err, storage.ErrUnavailable)).To(BeTrue())
			Expect(testutil.ToFloat64(m.MemoryRetrievals.WithLabelValues("local", "error"))).To(Equal(1.0))
		})

		It("refuses similarity search without an embedder", func() {
			_, err := driver.Search(ctx, "alice", "dog", 3)
			Expect(errors.Is(err, memory.ErrNotConfigured)).To(BeTrue())
		})

		It("returns the history", func() {
			Expect(driver.Store(ctx, exchange("a", "b"))).To(Succeed())
			turns, err := driver.History(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
		})
	})

	Context("with an embedding store", func() {
		var (
			store    *testutils.MockStore
			embedder *testutils.MockEmbedder
			index    *testutils.MockVectorDriver
			driver   *local.Driver
		)

		newDriver := func(topK int, idx vector.Driver) *local.Driver {
			d, err := local.NewDriver(local.Config{
				Store:    store,
				Embedder: embedder,
				Vector:   idx,
				TopK:     topK,
			})
			Expect(err).NotTo(HaveOccurred())
			return d
		}

		BeforeEach(func() {
			store = testutils.NewMockStore(storage.Variant{Embeddings: true, Dimensions: 2}, inmemory.WithClock(clock))
			embedder = testutils.NewMockEmbedder()
			embedder.Default = []float32{0, 1}
			embedder.Embeddings["My dog is Buddy"] = []float32{1, 0}
			embedder.Embeddings["dog"] = []float32{1, 0}
			index = testutils.NewMockVectorDriver()
			driver = newDriver(0, index)
		})

		It("embeds each turn before appending it", func() {
			Expect(driver.Store(ctx, exchange("My dog is Buddy", "Nice!"))).To(Succeed())

			Expect(embedder.Calls).To(Equal([]string{"My dog is Buddy", "Nice!"}))
			Expect(store.Appended[0].Embedding).To(Equal([]float32{1, 0}))
			Expect(store.Appended[1].Embedding).To(Equal([]float32{0, 1}))
		})

		It("fails the turn whose embedding fails and stops there", func() {
			embedder.FailOn = "My dog is Buddy"

			err := driver.Store(ctx, exchange("My dog is Buddy", "Nice!"))
			Expect(errors.Is(err, embeddings.ErrUnavailable)).To(BeTrue())
			Expect(store.Appended).To(BeEmpty())
		})

		It("mirrors embedded turns into the index", func() {
			Expect(driver.Store(ctx, exchange("My dog is Buddy", "Nice!"))).To(Succeed())

			Expect(index.Documents).To(HaveLen(2))
			Expect(index.Documents[0].TurnID).To(Equal(store.Appended[0].ID))
			Expect(index.Documents[0].UserID).To(Equal("alice"))
		})

		It("ignores index failures when storing", func() {
			index.AddErr = errors.New("index down")
			Expect(driver.Store(ctx, exchange("My dog is Buddy", "Nice!"))).To(Succeed())
			Expect(store.Appended).To(HaveLen(2))
		})

		It("ranks by similarity with a linear scan", func() {
			d := newDriver(0, nil)
			Expect(d.Store(ctx, exchange("My dog is Buddy", "Nice!"))).To(Succeed())

			scored, err := d.Search(ctx, "alice", "dog", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(scored).To(HaveLen(1))
			Expect(scored[0].Turn.Text).To(Equal("My dog is Buddy"))
			Expect(scored[0].Score).To(BeNumerically("~", 1, 1e-9))
		})

		It("uses the index when it answers", func() {
			Expect(driver.Store(ctx, exchange("My dog is Buddy", "Nice!"))).To(Succeed())
			agentID := store.Appended[1].ID
			index.Results = []vector.QueryResult{
				{Document: vector.Document{TurnID: agentID, UserID: "alice"}, Score: 0.5},
				{Document: vector.Document{TurnID: 999, UserID: "alice"}, Score: 0.4},
			}

			scored, err := driver.Search(ctx, "alice", "dog", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(scored).To(HaveLen(1))
			Expect(scored[0].Turn.ID).To(Equal(agentID))
		})

		It("falls back to a scan when the index fails", func() {
			Expect(driver.Store(ctx, exchange("My dog is Buddy", "Nice!"))).To(Succeed())
			index.QueryErr = errors.New("index down")

			scored, err := driver.Search(ctx, "alice", "dog", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(scored[0].Turn.Text).To(Equal("My dog is Buddy"))
		})

		It("recalls only the top k turns, oldest first", func() {
			d := newDriver(2, nil)
			embedder.Embeddings["I like tea"] = []float32{0.9, 0.1}
			Expect(d.Store(ctx, exchange("My dog is Buddy", "Nice!"))).To(Succeed())
			Expect(d.Store(ctx, exchange("I like tea", "Noted"))).To(Succeed())

			rec, err := d.Recall(ctx, memory.Query{UserID: "alice", Text: "dog", Now: now})
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Items).To(Equal(2))
			Expect(rec.Text).To(Equal("user: My dog is Buddy\nuser: I like tea"))
		})

		It("surfaces query embedding failures from recall", func() {
			d := newDriver(2, nil)
			embedder.FailAll = true

			_, err := d.Recall(ctx, memory.Query{UserID: "alice", Text: "dog"})
			Expect(errors.Is(err, embeddings.ErrUnavailable)).To(BeTrue())
		})
	})
})
