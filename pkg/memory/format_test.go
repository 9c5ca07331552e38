package memory_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
)

var _ = Describe("Format", func() {
	now := time.Date(2025, 10, 29, 15, 0, 0, 0, time.UTC)

	turn := func(role storage.Role, text string, at time.Time) storage.Turn {
		return storage.Turn{UserID: "u", SessionID: "s", Role: role, Text: text, CreatedAt: at}
	}

	DescribeTable("RelativeDay",
		func(t time.Time, want string) {
			Expect(memory.RelativeDay(t, now)).To(Equal(want))
		},
		Entry("same day", now.Add(-2*time.Hour), "today [2025-10-29]"),
		Entry("one day back", now.AddDate(0, 0, -1), "yesterday [2025-10-28]"),
		Entry("three days back", now.AddDate(0, 0, -3), "3 days ago [2025-10-26]"),
		Entry("six days back", now.AddDate(0, 0, -6), "6 days ago [2025-10-23]"),
		Entry("a week back", now.AddDate(0, 0, -7), "2025-10-22"),
		Entry("ten days back", now.AddDate(0, 0, -10), "2025-10-19"),
		Entry("the future", now.AddDate(0, 0, 2), "2025-10-31"),
	)

	It("compares calendar days, not elapsed hours", func() {
		lateNight := time.Date(2025, 10, 28, 23, 59, 0, 0, time.UTC)
		earlyMorning := time.Date(2025, 10, 29, 0, 1, 0, 0, time.UTC)
		Expect(memory.RelativeDay(lateNight, earlyMorning)).To(Equal("yesterday [2025-10-28]"))
	})

	It("uses now's location for the calendar date", func() {
		tz := time.FixedZone("UTC+10", 10*60*60)
		t := time.Date(2025, 10, 28, 20, 0, 0, 0, time.UTC) // 06:00 on the 29th in tz
		noon := time.Date(2025, 10, 29, 12, 0, 0, 0, tz)
		Expect(memory.RelativeDay(t, noon)).To(Equal("today [2025-10-29]"))
	})

	It("renders labelled lines in order when timestamps are included", func() {
		turns := []storage.Turn{
			turn(storage.RoleUser, "My dog is named Buddy", now.AddDate(0, 0, -1)),
			turn(storage.RoleAgent, "Nice name!", now.AddDate(0, 0, -1)),
			turn(storage.RoleUser, "Hi again", now),
		}

		Expect(memory.Format(turns, now, true)).To(Equal(
			"[yesterday [2025-10-28]] user: My dog is named Buddy\n" +
				"[yesterday [2025-10-28]] agent: Nice name!\n" +
				"[today [2025-10-29]] user: Hi again",
		))
	})

	It("drops every bracketed date when timestamps are excluded", func() {
		turns := []storage.Turn{
			turn(storage.RoleUser, "On [2025-01-02] I moved", now.AddDate(0, 0, -20)),
			turn(storage.RoleAgent, "Got it", now),
		}

		out := memory.Format(turns, now, false)
		Expect(out).To(Equal("user: On  I moved\nagent: Got it"))
		Expect(out).NotTo(MatchRegexp(`\[\d{4}-\d{2}-\d{2}\]`))
	})

	It("renders nothing for no turns", func() {
		Expect(memory.Format(nil, now, true)).To(BeEmpty())
	})

	It("applies speaker labels without changing the role", func() {
		f := memory.Formatter{Labels: map[storage.Role]string{storage.RoleAgent: "PostgresKnowledgeAgent"}}
		turns := []storage.Turn{turn(storage.RoleAgent, "Hello", now)}

		Expect(f.Format(turns, now, false)).To(Equal("PostgresKnowledgeAgent: Hello"))
		Expect(turns[0].Role).To(Equal(storage.RoleAgent))
	})

	It("strips date tags from arbitrary text", func() {
		Expect(memory.StripDateTags("a [2024-02-29] b [not-a-date]")).To(Equal("a  b [not-a-date]"))
	})
})
