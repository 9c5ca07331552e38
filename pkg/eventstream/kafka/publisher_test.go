package kafka

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/recall/pkg/eventstream"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		w *fakeWriter
		p *Publisher
	)

	BeforeEach(func() {
		w = &fakeWriter{}
		p = newPublisher(w, DefaultTopic, nil)
	})

	It("requires brokers", func() {
		_, err := NewPublisher(Config{}, nil)
		Expect(err).To(HaveOccurred())
	})

	It("builds a writer for the configured topic", func() {
		pub, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(pub.topic).To(Equal(DefaultTopic))
		Expect(pub.w.(*kafkago.Writer).Topic).To(Equal(DefaultTopic))
	})

	It("rejects nil events", func() {
		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
	})

	It("writes a JSON message keyed by user", func() {
		event := eventstream.NewTurnPersistedEvent(
			eventstream.EventSource{Provider: "gemini"},
			eventstream.EventSession{UserID: "alice", SessionID: "s1", Mode: "local"},
			eventstream.TurnRequestMeta{},
			eventstream.EventTurn{Role: "user", Text: "hi"},
		)

		Expect(p.PublishTurn(context.Background(), event)).To(Succeed())
		Expect(w.msgs).To(HaveLen(1))
		Expect(string(w.msgs[0].Key)).To(Equal("alice"))
		Expect(w.msgs[0].Headers[0].Key).To(Equal("event_type"))

		var decoded eventstream.TurnPersistedEvent
		Expect(json.Unmarshal(w.msgs[0].Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Turns).To(HaveLen(1))
	})

	It("wraps broker failures", func() {
		w.err = errors.New("leader not available")
		err := p.PublishTurn(context.Background(), &eventstream.TurnPersistedEvent{})
		Expect(errors.Is(err, eventstream.ErrPublish)).To(BeTrue())
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})
})
