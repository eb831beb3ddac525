package realloc_test

import (
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cohortsim/realloc"
)

func sumInts(v []int64) int64 {
	s := int64(0)
	for _, x := range v {
		s += x
	}

	return s
}

func sumFloats(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}

	return s
}

var _ = Describe("CapProportional", func() {
	It("should redistribute excess in proportion to the subset", func() {
		out, err := realloc.CapProportional(
			[]float64{5, 1, 3},
			[]float64{3, 4, 10},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out[0]).To(BeNumerically("==", 3))
		Expect(out[1]).To(BeNumerically("~", 1.5, 1e-9))
		Expect(out[2]).To(BeNumerically("~", 4.5, 1e-9))
		Expect(sumFloats(out)).To(BeNumerically("~", 9, 1e-9))
	})

	It("should keep iterating when receivers overflow", func() {
		out, err := realloc.CapProportional(
			[]float64{10, 2, 2},
			[]float64{4, 3, 20},
		)

		Expect(err).NotTo(HaveOccurred())
		for i, v := range out {
			Expect(v).To(BeNumerically("<=", []float64{4, 3, 20}[i]+1e-9))
		}
		Expect(sumFloats(out)).To(BeNumerically("~", 14, 1e-9))
	})

	// Aggregate subset 10 exceeds aggregate total 9. Every row converges to
	// its total and one unit is dropped, which is accepted behavior.
	It("should drop the excess when the input is infeasible", func() {
		out, err := realloc.CapProportional(
			[]float64{5, 3, 2},
			[]float64{3, 3, 3},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]float64{3, 3, 3}))
	})

	It("should drop the excess when every receiver holds zero", func() {
		out, err := realloc.CapProportional(
			[]float64{5, 0},
			[]float64{3, 4},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]float64{3, 0}))
	})

	It("should not modify the input", func() {
		subset := []float64{5, 1}
		_, err := realloc.CapProportional(subset, []float64{3, 4})

		Expect(err).NotTo(HaveOccurred())
		Expect(subset).To(Equal([]float64{5, 1}))
	})

	It("should reject negative values", func() {
		_, err := realloc.CapProportional([]float64{-1}, []float64{3})

		Expect(err).To(MatchError(realloc.ErrNegativeInput))
	})

	It("should reject mismatched columns", func() {
		_, err := realloc.CapProportional([]float64{1, 2}, []float64{3})

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("CapInteger", func() {
	It("should move the excess to a row with room", func() {
		out, err := realloc.CapInteger([]int64{5, 2}, []int64{3, 4})

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]int64{3, 4}))
	})

	It("should prefer receivers with the largest room", func() {
		out, err := realloc.CapInteger(
			[]int64{4, 1, 1},
			[]int64{3, 2, 9},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]int64{3, 1, 2}))
	})

	It("should not give to rows holding zero", func() {
		_, err := realloc.CapInteger([]int64{5, 0}, []int64{3, 10})

		Expect(err).To(MatchError(realloc.ErrInconsistentConstraint))
	})

	It("should fail when the aggregate subset exceeds the aggregate total", func() {
		_, err := realloc.CapInteger([]int64{5, 3, 2}, []int64{3, 3, 3})

		Expect(err).To(MatchError(realloc.ErrInconsistentConstraint))
	})

	It("should leave a valid column unchanged", func() {
		subset := []int64{1, 2, 3}
		out, err := realloc.CapInteger(subset, []int64{1, 5, 3})

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(subset))
	})

	It("should reject negative values", func() {
		_, err := realloc.CapInteger([]int64{1}, []int64{-1})

		Expect(err).To(MatchError(realloc.ErrNegativeInput))
	})

	It("should hold the cap and the sum on random feasible input", func() {
		rng := rand.New(rand.NewPCG(1, 2))
		for trial := 0; trial < 30; trial++ {
			n := 2 + rng.IntN(30)
			subset := make([]int64, n)
			total := make([]int64, n)
			for i := range subset {
				total[i] = int64(rng.IntN(50))
				subset[i] = int64(1 + rng.IntN(20))
			}

			room := int64(0)
			for i := range subset {
				room += total[i] - subset[i]
			}
			if room < 0 {
				total[0] -= room
			}

			out, err := realloc.CapInteger(subset, total)
			if err != nil {
				Expect(err).To(MatchError(realloc.ErrInconsistentConstraint))
				continue
			}

			Expect(sumInts(out)).To(Equal(sumInts(subset)))
			for i := range out {
				Expect(out[i]).To(BeNumerically(">=", 0))
				Expect(out[i]).To(BeNumerically("<=", total[i]))
			}
		}
	})
})

var _ = Describe("BalanceGroup", func() {
	It("should make every row add up to its total", func() {
		cols := [][]int64{
			{3, 0, 2},
			{2, 1, 2},
			{1, 1, 0},
		}
		total := []int64{5, 3, 4}

		out, err := realloc.BalanceGroup(cols, total)

		Expect(err).NotTo(HaveOccurred())
		for i := range total {
			Expect(out[0][i] + out[1][i] + out[2][i]).To(Equal(total[i]))
		}
		for j := range out {
			for _, v := range out[j] {
				Expect(v).To(BeNumerically(">=", 0))
			}
		}
	})

	It("should keep column sums when givers and receivers pair up", func() {
		cols := [][]int64{
			{4, 1},
			{2, 1},
		}
		total := []int64{5, 3}

		out, err := realloc.BalanceGroup(cols, total)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([][]int64{{3, 2}, {2, 1}}))
		Expect(sumInts(out[0])).To(Equal(sumInts(cols[0])))
		Expect(sumInts(out[1])).To(Equal(sumInts(cols[1])))
	})

	It("should take from the largest category when only givers remain", func() {
		out, err := realloc.BalanceGroup(
			[][]int64{{1}, {4}, {2}},
			[]int64{5},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([][]int64{{1}, {2}, {2}}))
	})

	It("should add to the largest category when only receivers remain", func() {
		out, err := realloc.BalanceGroup(
			[][]int64{{1}, {0}, {2}},
			[]int64{5},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([][]int64{{1}, {0}, {4}}))
	})

	It("should leave a balanced group unchanged", func() {
		cols := [][]int64{{1, 2}, {3, 0}}
		out, err := realloc.BalanceGroup(cols, []int64{4, 2})

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(cols))
	})

	It("should reject negative values", func() {
		_, err := realloc.BalanceGroup([][]int64{{-1}}, []int64{0})

		Expect(err).To(MatchError(realloc.ErrNegativeInput))
	})
})
