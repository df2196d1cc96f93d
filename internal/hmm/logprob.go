package hmm

import "math"

// ln returns the natural log of p, or NegInf if p is exactly zero — builders
// accept linear probabilities and log them once here, so that arithmetic
// downstream never has to special-case the zero case (NegInf + x is NegInf
// under ordinary float64 semantics).
func ln(p float64) float64 {
	if p <= 0 {
		return NegInf
	}
	return math.Log(p)
}
