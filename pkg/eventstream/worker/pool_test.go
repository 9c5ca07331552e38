package worker

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/eventstream"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
)

func newEvent(sessionID string) *eventstream.TurnPersistedEvent {
	return eventstream.NewTurnPersistedEvent(
		eventstream.EventSource{App: "test-app", AgentName: "agent"},
		eventstream.EventSession{UserID: "alice", SessionID: sessionID, Mode: "local"},
		eventstream.TurnRequestMeta{},
		eventstream.EventTurn{Role: "user", Text: "hi"},
		eventstream.EventTurn{Role: "agent", Text: "hello"},
	)
}

// gatedPublisher blocks every delivery until release is closed.
type gatedPublisher struct {
	release chan struct{}
	closed  bool
}

func (g *gatedPublisher) PublishTurn(ctx context.Context, _ *eventstream.TurnPersistedEvent) error {
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gatedPublisher) Close() error {
	g.closed = true
	return nil
}

var _ = Describe("Event Worker Pool", func() {
	It("requires a publisher", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(HaveOccurred())
	})

	It("delivers every queued event before Close returns", func() {
		inner := testutils.NewMockPublisher()
		wp, err := NewPool(&Config{Publisher: inner})
		Expect(err).NotTo(HaveOccurred())

		for _, id := range []string{"s1", "s2", "s3"} {
			Expect(wp.PublishTurn(context.Background(), newEvent(id))).To(Succeed())
		}
		Expect(wp.Close()).To(Succeed())

		sessions := []string{}
		for _, e := range inner.Events {
			sessions = append(sessions, e.Session.SessionID)
		}
		Expect(sessions).To(ConsistOf("s1", "s2", "s3"))
	})

	It("rejects nil events", func() {
		wp, err := NewPool(&Config{Publisher: testutils.NewMockPublisher()})
		Expect(err).NotTo(HaveOccurred())
		defer wp.Close()

		Expect(wp.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
	})

	It("drops events when the queue is full", func() {
		gate := &gatedPublisher{release: make(chan struct{})}
		wp, err := NewPool(&Config{Publisher: gate, NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		// The worker takes the first event and blocks on it; the second fills
		// the queue.
		Expect(wp.PublishTurn(context.Background(), newEvent("s1"))).To(Succeed())
		Eventually(func() int { return len(wp.queue) }).Should(BeZero())
		Expect(wp.PublishTurn(context.Background(), newEvent("s2"))).To(Succeed())

		Expect(wp.PublishTurn(context.Background(), newEvent("s3"))).To(MatchError(ErrQueueFull))

		close(gate.release)
		Expect(wp.Close()).To(Succeed())
		Expect(gate.closed).To(BeTrue())
	})

	It("refuses events after Close", func() {
		wp, err := NewPool(&Config{Publisher: testutils.NewMockPublisher()})
		Expect(err).NotTo(HaveOccurred())
		Expect(wp.Close()).To(Succeed())
		Expect(wp.Close()).To(Succeed())

		Expect(wp.PublishTurn(context.Background(), newEvent("s1"))).To(MatchError(ErrClosed))
	})

	It("keeps draining when a delivery fails", func() {
		inner := testutils.NewMockPublisher()
		inner.Err = errors.New("broker down")
		wp, err := NewPool(&Config{Publisher: inner, PublishTimeout: time.Second})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.PublishTurn(context.Background(), newEvent("s1"))).To(Succeed())
		Expect(wp.Close()).To(Succeed())
		Expect(inner.Events).To(BeEmpty())
	})
})
