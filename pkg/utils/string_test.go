package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Truncate", func() {
	It("leaves short strings alone", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("cuts with an ellipsis past the limit", func() {
		Expect(Truncate("this is a long string", 10)).To(Equal("this is a ..."))
	})

	It("counts runes, not bytes", func() {
		Expect(Truncate("héllo wörld", 5)).To(Equal("héllo..."))
	})

	It("returns nothing for a non-positive limit", func() {
		Expect(Truncate("anything", 0)).To(BeEmpty())
	})
})

var _ = Describe("OneLine", func() {
	It("folds newlines and repeated spaces", func() {
		Expect(OneLine("  first line\n\nsecond\t line  ")).To(Equal("first line second line"))
	})
})
