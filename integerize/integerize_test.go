package integerize_test

import (
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cohortsim/integerize"
)

func sum(v []int64) int64 {
	s := int64(0)
	for _, x := range v {
		s += x
	}

	return s
}

var _ = Describe("Integerize", func() {
	var rng *rand.Rand

	BeforeEach(func() {
		rng = rand.New(rand.NewPCG(42, 0))
	})

	allPolicies := []integerize.Policy{
		integerize.PolicyWeightedRandom,
		integerize.PolicyLargest,
		integerize.PolicySmallest,
		integerize.PolicyLargestDifference,
	}

	for _, p := range allPolicies {
		policy := p

		It("should split equal halves into {3,3,2,2} with "+policy.String(), func() {
			out, err := integerize.Integerize(
				[]float64{2.5, 2.5, 2.5, 2.5},
				integerize.Control(10),
				integerize.Options{Policy: policy, Rand: rng},
			)

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ConsistOf(int64(3), int64(3), int64(2), int64(2)))
		})

		It("should preserve the control with "+policy.String(), func() {
			for trial := 0; trial < 50; trial++ {
				values := make([]float64, 1+rng.IntN(40))
				for i := range values {
					if rng.IntN(4) > 0 {
						values[i] = rng.Float64() * 100
					}
				}
				values[0] += 0.5
				control := int64(rng.IntN(5000))

				out, err := integerize.Integerize(values,
					integerize.Control(control),
					integerize.Options{Policy: policy, Rand: rng})

				Expect(err).NotTo(HaveOccurred())
				Expect(sum(out)).To(Equal(control))
				for _, v := range out {
					Expect(v).To(BeNumerically(">=", 0))
				}
			}
		})
	}

	It("should keep zero entries at zero", func() {
		out, err := integerize.Integerize(
			[]float64{0, 1.2, 0, 3.7, 0.1},
			nil,
			integerize.Options{Rand: rng},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out[0]).To(BeZero())
		Expect(out[2]).To(BeZero())
		Expect(sum(out)).To(Equal(int64(5)))
	})

	It("should derive the control from an integer sum", func() {
		out, err := integerize.Integerize(
			[]float64{0.3, 0.3, 0.4, 2},
			nil,
			integerize.Options{Policy: integerize.PolicyLargest},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(sum(out)).To(Equal(int64(3)))
	})

	It("should reject a non-integer sum without a control", func() {
		_, err := integerize.Integerize(
			[]float64{0.3, 0.3},
			nil,
			integerize.Options{Policy: integerize.PolicyLargest},
		)

		Expect(err).To(MatchError(integerize.ErrInvalidControl))
	})

	It("should return zeros for a zero control", func() {
		out, err := integerize.Integerize(
			[]float64{1.5, 2.5},
			integerize.Control(0),
			integerize.Options{Rand: rng},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]int64{0, 0}))
	})

	// All-zero input carries no magnitude information, so the units land on
	// the leading positions. This is order dependent on purpose.
	It("should fill leading positions when every value is zero", func() {
		out, err := integerize.Integerize(
			[]float64{0, 0, 0, 0},
			integerize.Control(2),
			integerize.Options{Rand: rng},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]int64{1, 1, 0, 0}))
	})

	It("should reject negative values", func() {
		_, err := integerize.Integerize(
			[]float64{1, -0.5},
			nil,
			integerize.Options{Policy: integerize.PolicyLargest},
		)

		Expect(err).To(MatchError(integerize.ErrNegativeInput))
	})

	It("should reject a negative control", func() {
		_, err := integerize.Integerize(
			[]float64{1, 2},
			integerize.Control(-3),
			integerize.Options{Policy: integerize.PolicyLargest},
		)

		Expect(err).To(MatchError(integerize.ErrNegativeInput))
	})

	It("should require a random source for weighted random", func() {
		_, err := integerize.Integerize(
			[]float64{1.5, 1.5},
			nil,
			integerize.Options{Policy: integerize.PolicyWeightedRandom},
		)

		Expect(err).To(MatchError(integerize.ErrMissingRand))
	})

	It("should be reproducible for the same seed", func() {
		values := []float64{1.1, 2.7, 0.4, 5.5, 3.3, 0.9, 7.2}

		run := func() []int64 {
			r := rand.New(rand.NewPCG(7, 7))
			var out []int64
			for i := 0; i < 5; i++ {
				var err error
				out, err = integerize.Integerize(values,
					integerize.Control(17),
					integerize.Options{Rand: r})
				Expect(err).NotTo(HaveOccurred())
			}

			return out
		}

		Expect(run()).To(Equal(run()))
	})

	It("should take units from the largest values", func() {
		out, err := integerize.Integerize(
			[]float64{1.25, 5.25, 2.5},
			integerize.Control(9),
			integerize.Options{Policy: integerize.PolicyLargest},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]int64{2, 5, 2}))
	})

	It("should take units from the smallest non-zero values", func() {
		out, err := integerize.Integerize(
			[]float64{0, 1.25, 5.25, 2.5},
			integerize.Control(9),
			integerize.Options{Policy: integerize.PolicySmallest},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]int64{0, 1, 6, 2}))
	})

	It("should take units from the largest rounding deltas", func() {
		out, err := integerize.Integerize(
			[]float64{1.75, 5.125, 2.125},
			integerize.Control(9),
			integerize.Options{Policy: integerize.PolicyLargestDifference},
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]int64{2, 5, 2}))
	})
})

var _ = Describe("ParsePolicy", func() {
	It("should parse every policy name", func() {
		for _, name := range []string{
			"largest", "smallest", "largest_difference", "weighted_random",
		} {
			p, err := integerize.ParsePolicy(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.String()).To(Equal(name))
		}
	})

	It("should default to weighted random", func() {
		p, err := integerize.ParsePolicy("")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(integerize.PolicyWeightedRandom))
	})

	It("should reject unknown names", func() {
		_, err := integerize.ParsePolicy("nearest")
		Expect(err).To(HaveOccurred())
	})
})
