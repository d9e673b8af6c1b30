package mlp

import (
	"math"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"github.com/banshee-data/velocity.report/internal/pct/pctlog"
)

// Polynomial is the arbitrary-degree (0-5) polynomial MLP: the scattering
// power 1/(beta^2 p^2) along the track is approximated by a tabulated
// degree-N polynomial in depth u, and the curve itself is the unique
// degree-(N+3) polynomial per axis whose boundary-value problem (position
// and slope fixed at both ends) is solved in closed form from the tabulated
// coefficients — no per-query quadrature, which is what makes this variant
// vectorisable.
type Polynomial struct {
	degree  int
	uOrigin float64
	length  float64
	dmX     []float64 // degree+4 Horner coefficients, dmX[0..degree+3]
	dmY     []float64
}

// NewPolynomial returns a Polynomial MLP of the given degree (0-5). Degrees
// outside that range are clamped to 5 with a logged warning, matching the
// tabulated coefficient set.
func NewPolynomial(degree int) *Polynomial {
	return &Polynomial{degree: clampDegree(degree)}
}

func clampDegree(degree int) int {
	if degree < 0 || degree > maxPolynomialDegree {
		pctlog.Logf("mlp: polynomial degree %d out of range [0,%d], clamping to %d", degree, maxPolynomialDegree, maxPolynomialDegree)
		return maxPolynomialDegree
	}
	return degree
}

// SetPolynomialDegree changes the fit degree used by subsequent Init calls.
func (m *Polynomial) SetPolynomialDegree(degree int) { m.degree = clampDegree(degree) }

// Init fixes the curve coefficients from the endpoint positions and
// directions. posIn/posOut are along the beam axis; dirIn/dirOut carry
// dx/dz, dy/dz (Z implicitly 1).
func (m *Polynomial) Init(posIn, posOut, dirIn, dirOut geom.Vec3) error {
	m.uOrigin = posIn.Z
	m.length = posOut.Z - m.uOrigin
	bm := bmTables[m.degree]

	x0 := [2]float64{posIn.X, math.Atan(dirIn.X)}
	x2 := [2]float64{posOut.X, math.Atan(dirOut.X)}
	y0 := [2]float64{posIn.Y, math.Atan(dirIn.Y)}
	y2 := [2]float64{posOut.Y, math.Atan(dirOut.Y)}

	a, b, c, d := factorsABCD(bm, m.length)
	cx0, cx1 := solveBoundaryCoefficients(m.length, x0, x2, a, b, c, d)
	cy0, cy1 := solveBoundaryCoefficients(m.length, y0, y2, a, b, c, d)

	m.dmX = buildHornerCoefficients(m.degree, x0, cx0, cx1, bm)
	m.dmY = buildHornerCoefficients(m.degree, y0, cy0, cy1, bm)
	return nil
}

// buildHornerCoefficients derives the degree+4 coefficients dm[0..degree+3]
// of the curve polynomial from the boundary-value solution (c0, c1) and the
// scattering-power table bm, following the recurrence:
//
//	dm[0] = s0[0]                 (entry position)
//	dm[1] = s0[1]                 (entry slope)
//	dm[2] = c0*bm[0]/2
//	dm[i] = (c0*bm[i-2] + c1*bm[i-3]) / (i*(i-1))        for 3 <= i < degree+3
//	dm[degree+3] = c1*bm[degree] / ((degree+2)*(degree+3))
func buildHornerCoefficients(degree int, s0 [2]float64, c0, c1 float64, bm []float64) []float64 {
	n := degree + 3
	dm := make([]float64, n+1)
	dm[0] = s0[0]
	dm[1] = s0[1]
	dm[2] = c0 * bm[0] / 2
	for i := 3; i < n; i++ {
		fi := float64(i)
		dm[i] = (c0*bm[i-2] + c1*bm[i-3]) / fi / (fi - 1)
	}
	fd := float64(degree)
	dm[n] = c1 * bm[degree] / (fd + 2) / (fd + 3)
	return dm
}

// evalHorner returns the curve value and its derivative at u1 = u-uOrigin,
// using the same nested-multiplication order as the underlying batch
// evaluator so scalar and batch paths agree bit-for-bit.
func evalHorner(dm []float64, u1 float64) (v, dv float64) {
	n := len(dm) - 1
	for i := 0; i < n; i++ {
		v = (v + dm[n-i]) * u1
	}
	v += dm[0]
	for k := n; k >= 1; k-- {
		dv = dv*u1 + float64(k)*dm[k]
	}
	return
}

// Evaluate returns the fitted (x,y) position and (dx,dy) tangent at depth u.
func (m *Polynomial) Evaluate(u float64) (x, y, dx, dy float64) {
	u1 := u - m.uOrigin
	x, dx = evalHorner(m.dmX, u1)
	y, dy = evalHorner(m.dmY, u1)
	return
}

// EvaluateBatch evaluates the curve at every depth in us, one evalHorner
// call per sample, so each result equals the scalar Evaluate position.
func (m *Polynomial) EvaluateBatch(us []float64) (xs, ys []float64) {
	xs = make([]float64, len(us))
	ys = make([]float64, len(us))
	for i, u := range us {
		u1 := u - m.uOrigin
		xs[i], _ = evalHorner(m.dmX, u1)
		ys[i], _ = evalHorner(m.dmY, u1)
	}
	return
}

// CanBeVectorised reports true: the closed-form Horner evaluation batches
// cleanly across depths with no per-query quadrature.
func (m *Polynomial) CanBeVectorised() bool { return true }

// EvaluateError is unimplemented for the polynomial MLP, matching the
// reference implementation.
func (m *Polynomial) EvaluateError(u float64) (geom.Mat2, error) {
	return geom.Mat2{}, ErrNotImplemented
}
