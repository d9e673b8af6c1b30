package mlp

import (
	"github.com/banshee-data/velocity.report/internal/pct/geom"
)

// ThirdOrder fits a separate cubic c0+c1*u+c2*u^2+c3*u^3 to each transverse
// axis (x and y), matching position and slope at both the entry and exit
// depth. It ignores scattering statistics entirely, trading accuracy for a
// closed-form, allocation-free evaluation.
type ThirdOrder struct {
	length     float64
	cx, cy     [4]float64
	vectorised bool
}

// NewThirdOrder returns a ThirdOrder MLP. When vectorised is true,
// CanBeVectorised reports true and EvaluateBatch amortises the per-sample
// Horner evaluation across all requested depths.
func NewThirdOrder(vectorised bool) *ThirdOrder {
	return &ThirdOrder{vectorised: vectorised}
}

func cubicFromEndpoints(y0, m0, y1, m1, length float64) [4]float64 {
	c0, c1 := y0, m0
	rhs := geom.Vec2{X: y1 - c0 - c1*length, Y: m1 - c1}
	sys := geom.Mat2{
		A: length * length, B: length * length * length,
		C: 2 * length, D: 3 * length * length,
	}
	sol := sys.Solve(rhs)
	return [4]float64{c0, c1, sol.X, sol.Y}
}

// Init fixes the cubic coefficients. posIn/posOut are along the beam axis
// (Z increasing from entry to exit); dirIn/dirOut carry dx/dz, dy/dz.
func (m *ThirdOrder) Init(posIn, posOut, dirIn, dirOut geom.Vec3) error {
	m.length = posOut.Z - posIn.Z
	m.cx = cubicFromEndpoints(posIn.X, dirIn.X, posOut.X, dirOut.X, m.length)
	m.cy = cubicFromEndpoints(posIn.Y, dirIn.Y, posOut.Y, dirOut.Y, m.length)
	return nil
}

func evalCubic(c [4]float64, u float64) (v, d float64) {
	v = c[0] + u*(c[1]+u*(c[2]+u*c[3]))
	d = c[1] + u*(2*c[2]+u*3*c[3])
	return
}

// Evaluate returns the fitted position and tangent at depth u (measured
// from the entry depth, i.e. u in [0, length]).
func (m *ThirdOrder) Evaluate(u float64) (x, y, dx, dy float64) {
	x, dx = evalCubic(m.cx, u)
	y, dy = evalCubic(m.cy, u)
	return
}

// CanBeVectorised reports the hint passed to NewThirdOrder.
func (m *ThirdOrder) CanBeVectorised() bool { return m.vectorised }

// EvaluateBatch evaluates the cubic at every depth in us.
func (m *ThirdOrder) EvaluateBatch(us []float64) (xs, ys []float64) {
	xs = make([]float64, len(us))
	ys = make([]float64, len(us))
	for i, u := range us {
		xs[i], _ = evalCubic(m.cx, u)
		ys[i], _ = evalCubic(m.cy, u)
	}
	return
}
