// Package storagetest holds the shared Ginkgo specs every storage.Driver
// must satisfy.
package storagetest

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/storage"
)

// Factory opens a fresh, empty driver for the given variant.
type Factory func(variant storage.Variant) storage.Driver

// DriverBehaviors registers the common driver specs. Call it inside a
// Describe block.
func DriverBehaviors(open Factory) {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	mustOpen := func(v storage.Variant) storage.Driver {
		d := open(v)
		DeferCleanup(func() { _ = d.Close() })
		Expect(d.EnsureSchema(ctx)).To(Succeed())
		return d
	}

	Context("plain variant", func() {
		var d storage.Driver

		BeforeEach(func() {
			d = mustOpen(storage.Variant{})
		})

		It("is idempotent across EnsureSchema calls", func() {
			Expect(d.EnsureSchema(ctx)).To(Succeed())
			Expect(d.Variant()).To(Equal(storage.Variant{}))
		})

		It("returns appended turns in insertion order", func() {
			texts := []string{"hi", "hello there", "how are you", "fine"}
			roles := []storage.Role{storage.RoleUser, storage.RoleAgent, storage.RoleUser, storage.RoleAgent}
			for i, text := range texts {
				turn, err := d.Append(ctx, storage.AppendParams{
					UserID: "u1", SessionID: "s1", Role: roles[i], Text: text,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(turn.ID).To(BeNumerically(">", 0))
				Expect(turn.CreatedAt).NotTo(BeZero())
			}

			turns, err := d.Load(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(4))
			for i, turn := range turns {
				Expect(turn.Text).To(Equal(texts[i]))
				Expect(turn.Role).To(Equal(roles[i]))
				Expect(turn.SessionID).To(Equal("s1"))
				Expect(turn.UserID).To(Equal("u1"))
				Expect(turn.Embedding).To(BeNil())
				if i > 0 {
					Expect(turn.CreatedAt).NotTo(BeTemporally("<", turns[i-1].CreatedAt))
					Expect(turn.ID).To(BeNumerically(">", turns[i-1].ID))
				}
			}
		})

		It("spans sessions for the same user", func() {
			_, err := d.Append(ctx, storage.AppendParams{UserID: "u1", SessionID: "s1", Role: storage.RoleUser, Text: "first"})
			Expect(err).NotTo(HaveOccurred())
			_, err = d.Append(ctx, storage.AppendParams{UserID: "u1", SessionID: "s2", Role: storage.RoleUser, Text: "second"})
			Expect(err).NotTo(HaveOccurred())

			turns, err := d.Load(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].SessionID).To(Equal("s1"))
			Expect(turns[1].SessionID).To(Equal("s2"))
		})

		It("keeps users apart", func() {
			_, err := d.Append(ctx, storage.AppendParams{UserID: "u1", SessionID: "s1", Role: storage.RoleUser, Text: "mine"})
			Expect(err).NotTo(HaveOccurred())

			turns, err := d.Load(ctx, "u2")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})

		It("stores empty and multibyte text verbatim", func() {
			_, err := d.Append(ctx, storage.AppendParams{UserID: "u1", SessionID: "s1", Role: storage.RoleAgent, Text: ""})
			Expect(err).NotTo(HaveOccurred())
			_, err = d.Append(ctx, storage.AppendParams{UserID: "u1", SessionID: "s1", Role: storage.RoleUser, Text: "héllo 👋 [2025-10-29]"})
			Expect(err).NotTo(HaveOccurred())

			turns, err := d.Load(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns[0].Text).To(BeEmpty())
			Expect(turns[1].Text).To(Equal("héllo 👋 [2025-10-29]"))
		})

		It("rejects invalid turns", func() {
			_, err := d.Append(ctx, storage.AppendParams{UserID: "u1", SessionID: "s1", Role: "system", Text: "x"})
			Expect(err).To(MatchError(storage.ErrInvalidTurn))

			_, err = d.Append(ctx, storage.AppendParams{UserID: "u1", Role: storage.RoleUser, Text: "x"})
			Expect(err).To(MatchError(storage.ErrInvalidTurn))

			_, err = d.Append(ctx, storage.AppendParams{UserID: "u1", SessionID: "s1", Role: storage.RoleUser, Text: "x", Embedding: []float32{1}})
			Expect(err).To(MatchError(storage.ErrInvalidTurn))

			turns, err := d.Load(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})
	})

	Context("embedding variant", func() {
		var d storage.Driver

		BeforeEach(func() {
			d = mustOpen(storage.Variant{Embeddings: true, Dimensions: 3})
		})

		It("round-trips embeddings", func() {
			_, err := d.Append(ctx, storage.AppendParams{
				UserID: "u1", SessionID: "s1", Role: storage.RoleUser, Text: "hi",
				Embedding: []float32{0.25, -1.5, 3},
			})
			Expect(err).NotTo(HaveOccurred())

			turns, err := d.Load(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(1))
			Expect(turns[0].Embedding).To(Equal([]float32{0.25, -1.5, 3}))
		})

		It("requires an embedding of the right size", func() {
			_, err := d.Append(ctx, storage.AppendParams{UserID: "u1", SessionID: "s1", Role: storage.RoleUser, Text: "hi"})
			Expect(err).To(MatchError(storage.ErrInvalidTurn))

			_, err = d.Append(ctx, storage.AppendParams{
				UserID: "u1", SessionID: "s1", Role: storage.RoleUser, Text: "hi",
				Embedding: []float32{1, 2},
			})
			Expect(err).To(MatchError(ContainSubstring("expects 3")))
		})
	})
}
