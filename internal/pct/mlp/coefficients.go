package mlp

import "math"

// maxPolynomialDegree is the highest tabulated polynomial MLP degree.
const maxPolynomialDegree = 5

// MaxPolynomialDegree returns the highest tabulated polynomial MLP degree.
func MaxPolynomialDegree() int { return maxPolynomialDegree }

// polynomialScatteringPower evaluates the tabulated 1/(beta^2 p^2)(u) fit
// for the given degree's coefficient set at depth u from the entry plane.
// Schulte's quadrature reuses the full-degree (5) table as its scattering
// power integrand; see likelypath.go.
func polynomialScatteringPower(degree int, u float64) float64 {
	bm := bmTables[degree]
	var p, uPow float64 = 0, 1
	for i := 0; i < len(bm); i++ {
		p += bm[i] * uPow
		uPow *= u
	}
	return p
}

// factorsABCD evaluates the closed-form integrals used by the polynomial
// MLP's boundary-value solve (spec: A/B/C/D over the tabulated bm), each a
// fixed combination of the scattering-power coefficients and the total
// track length u2.
//
//	A(u2) = sum bm[i]/(i+1)   * u2^(i+1)
//	B(u2) = sum bm[i]/(i+2)   * u2^(i+2)
//	C(u2) = sum bm[i]/(i+1)(i+2) * u2^(i+2)
//	D(u2) = sum bm[i]/(i+2)(i+3) * u2^(i+3)
func factorsABCD(bm []float64, u2 float64) (a, b, c, d float64) {
	for i, bi := range bm {
		fi := float64(i)
		a += bi / (fi + 1) * math.Pow(u2, fi+1)
		b += bi / (fi + 2) * math.Pow(u2, fi+2)
		c += bi / (fi + 1) / (fi + 2) * math.Pow(u2, fi+2)
		d += bi / (fi + 2) / (fi + 3) * math.Pow(u2, fi+3)
	}
	return
}

// solveBoundaryCoefficients solves the 2x2 linear system fixing the two
// free coefficients (c0, c1) of the polynomial MLP's curve from the
// endpoint position/slope pair (v0, v1) over a track of length u2, given
// the A/B/C/D factors of the selected degree's scattering-power fit.
func solveBoundaryCoefficients(u2 float64, v0, v1 [2]float64, a, b, c, d float64) (c0, c1 float64) {
	det := a*d - b*c
	rhs0 := v1[0] - v0[0] - v0[1]*u2
	rhs1 := v1[1] - v0[1]
	c0 = (-b*rhs0 + d*rhs1) / det
	c1 = (a*rhs0 - c*rhs1) / det
	return
}
