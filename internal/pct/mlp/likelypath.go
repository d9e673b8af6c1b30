package mlp

import "github.com/banshee-data/velocity.report/internal/pct/geom"

// simpson integrates f over [a,b] using composite Simpson's rule with n
// intervals (n is rounded up to the nearest even number). The scattering
// power function Schulte integrates is a smooth low-degree polynomial in
// depth, so a modest, fixed panel count is accurate to well within
// tracker resolution.
func simpson(f func(float64) float64, a, b float64, n int) float64 {
	if n%2 != 0 {
		n++
	}
	if n < 2 {
		n = 2
	}
	h := (b - a) / float64(n)
	sum := f(a) + f(b)
	for i := 1; i < n; i++ {
		x := a + float64(i)*h
		if i%2 == 0 {
			sum += 2 * f(x)
		} else {
			sum += 4 * f(x)
		}
	}
	return sum * h / 3
}

// scatterCovariance builds the 2x2 (angle,position) covariance accumulated
// by multiple Coulomb scattering between depths lo and hi, as seen at the
// hi end: Sigma = [[Syy, Sty],[Sty, Stt]] with
//
//	Stt = int_lo^hi p(t) dt
//	Sty = int_lo^hi (hi-t) p(t) dt
//	Syy = int_lo^hi (hi-t)^2 p(t) dt
//
// matching the moments used by the Schulte Bayesian formalism (and, with
// p substituted for the polynomial scattering-power fit, the Krah
// polynomial MLP). The state vector convention throughout this package is
// (y, theta): position first, angle second.
func scatterCovariance(p func(float64) float64, lo, hi float64) geom.Mat2 {
	const panels = 16
	stt := simpson(p, lo, hi, panels)
	sty := simpson(func(t float64) float64 { return (hi - t) * p(t) }, lo, hi, panels)
	syy := simpson(func(t float64) float64 { return (hi - t) * (hi - t) * p(t) }, lo, hi, panels)
	return geom.Mat2{A: syy, B: sty, C: sty, D: stt}
}

// driftMatrix returns the deterministic propagation matrix over a depth
// step of length d, acting on a (y,theta) state vector: y' = y + d*theta,
// theta' = theta.
func driftMatrix(d float64) geom.Mat2 {
	return geom.Mat2{A: 1, B: d, C: 0, D: 1}
}

// mostLikely combines the forward-propagated entry state and the
// backward-propagated exit state into the most-likely (y,theta) state at
// an intermediate depth, following Schulte et al.'s Bayesian estimator:
//
//	s(u) = (Sigma1^-1 + R1^T Sigma2^-1 R1)^-1 (Sigma1^-1 R0 s0 + R1^T Sigma2^-1 s2)
//
// Sigma1 is the scattering covariance accumulated between the entry plane
// and u; Sigma2 between u and the exit plane; R0 propagates s0 to u; R1
// propagates the state at u to the exit plane. The posterior covariance
// (Sigma1^-1 + R1^T Sigma2^-1 R1)^-1 is also returned; Schulte.EvaluateError
// does not use it and computes its own estimate.
func mostLikely(s0, s2 geom.Vec2, sigma1, sigma2, r0, r1 geom.Mat2) (geom.Vec2, geom.Mat2) {
	sigma1Inv := sigma1.Inverse()
	sigma2Inv := sigma2.Inverse()
	r1T := r1.Transpose()

	precision := sigma1Inv.Add(r1T.Mul(sigma2Inv).Mul(r1))
	posterior := precision.Inverse()

	rhs := sigma1Inv.Apply(r0.Apply(s0)).Add(r1T.Mul(sigma2Inv).Apply(s2))
	return posterior.Apply(rhs), posterior
}
