package eventstream_test

import (
	"encoding/json"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals TurnPersistedEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.NewTurnPersistedEvent(
			eventstream.EventSource{App: "PostgresMemoryDemoApp", AgentName: "PostgresKnowledgeAgent", Provider: "gemini"},
			eventstream.EventSession{UserID: "alice", SessionID: "postgres_session_1a2b3c4d", Mode: "local"},
			eventstream.TurnRequestMeta{StartedAt: now.Add(-2 * time.Second), CompletedAt: now, DurationMs: 2000},
			eventstream.EventTurn{Role: "user", Text: "hello"},
			eventstream.EventTurn{Role: "agent", Text: "hi"},
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("session"))
		Expect(got).To(HaveKey("request_meta"))
		Expect(got["turns"]).To(HaveLen(2))
	})

	It("stamps a unique id", func() {
		a := eventstream.NewTurnPersistedEvent(eventstream.EventSource{}, eventstream.EventSession{}, eventstream.TurnRequestMeta{})
		b := eventstream.NewTurnPersistedEvent(eventstream.EventSource{}, eventstream.EventSession{}, eventstream.TurnRequestMeta{})
		Expect(strings.HasPrefix(a.EventID, "evt_")).To(BeTrue())
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeTurnPersisted).To(Equal("recall.turn.persisted"))
	})

	It("provides ErrNilTurnEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilTurnEvent).To(MatchError("nil turn event"))
	})
})
