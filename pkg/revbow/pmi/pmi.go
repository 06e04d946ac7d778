package pmi

import "math"

// Calculator handles PMI (Pointwise Mutual Information) calculations
type Calculator struct {
	epsilon float64 // smoothing constant, 0 for raw counts
}

// NewCalculator creates a PMI calculator with additive smoothing epsilon.
// Negative values are treated as zero.
func NewCalculator(epsilon float64) *Calculator {
	if epsilon < 0 {
		epsilon = 0
	}
	return &Calculator{epsilon: epsilon}
}

// PMI calculates the pointwise mutual information of a bigram in bits
//
// PMI(a,b) = log2((N_ab + ε) * N) - log2((N_a + ε)(N_b + ε))
//
// Where:
//   - N_ab = number of times a is directly followed by b
//   - N_a, N_b = occurrences of each token
//   - N = total number of tokens
//
// With ε = 0 this is the maximum-likelihood estimate
// log2(P(a,b) / (P(a)·P(b))). Scores are computed in log space so large
// corpora do not overflow the product.
func (c *Calculator) PMI(nAB, nA, nB, N int64) float64 {
	if N == 0 {
		return 0
	}

	joint := float64(nAB) + c.epsilon
	marginal := (float64(nA) + c.epsilon) * (float64(nB) + c.epsilon)
	if joint == 0 || marginal == 0 {
		return math.Inf(-1)
	}

	return math.Log2(joint*float64(N)) - math.Log2(marginal)
}

// NPMI calculates normalized PMI (range: -1 to 1)
// NPMI(a,b) = PMI(a,b) / -log2(P(a,b))
func (c *Calculator) NPMI(nAB, nA, nB, N int64) float64 {
	if N == 0 || nAB == 0 {
		return 0
	}

	pmi := c.PMI(nAB, nA, nB, N)
	pAB := (float64(nAB) + c.epsilon) / float64(N)
	logPAB := math.Log2(pAB)

	if logPAB == 0 {
		return 0
	}

	return pmi / -logPAB
}
