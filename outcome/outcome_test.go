package outcome

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Calibration cases for the outcome-count identity |P(n,k)| + 1.
var _ = Describe("Enumerate", func() {
	DescribeTable("outcome counts match P(n,k)+1",
		func(n, k, want int) {
			Expect(Count(n, k)).To(Equal(want))
			Expect(Enumerate(n, k)).To(HaveLen(want))
		},
		Entry("n=2 k=1", 2, 1, 3),
		Entry("n=5 k=3", 5, 3, 61),
		Entry("n=25 k=3", 25, 3, 13_801),
	)

	It("always ends with the refund outcome [0..n-1]", func() {
		out := Enumerate(5, 3)
		Expect(out[len(out)-1]).To(Equal([]int{0, 1, 2, 3, 4}))
	})

	It("produces lexicographic order on index tuples", func() {
		out := Enumerate(2, 1)
		Expect(out).To(Equal([][]int{{0}, {1}, {0, 1}}))
	})

	It("encodes outcome messages as concatenated big-endian uint64s", func() {
		msg := EncodeMessage([]int{0, 1})
		Expect(msg).To(HaveLen(16))
		Expect(msg[7]).To(Equal(byte(0)))
		Expect(msg[15]).To(Equal(byte(1)))
	})

	It("finds the index of a known outcome", func() {
		idx := IndexOf(3, 2, []int{1, 2})
		Expect(idx).To(BeNumerically(">=", 0))
		Expect(Enumerate(3, 2)[idx]).To(Equal([]int{1, 2}))
	})

	It("reports -1 for an outcome that cannot occur", func() {
		Expect(IndexOf(3, 2, []int{5, 6})).To(Equal(-1))
	})
})
