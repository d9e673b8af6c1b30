package geom

import "fmt"

// Mat2 is a dense 2x2 matrix, row-major: [[A, B], [C, D]].
//
// Inversion follows the numeric policy mandated by the reconstruction
// algorithms this package backs: an explicit 1/(ad-bc) adjugate, no
// pivoting. Near-singular matrices are the caller's responsibility to
// avoid by construction (well-posed proton geometry); this type does not
// guard against them.
type Mat2 struct {
	A, B, C, D float64
}

// Det returns the determinant ad-bc.
func (m Mat2) Det() float64 { return m.A*m.D - m.B*m.C }

// Transpose returns the transpose of m.
func (m Mat2) Transpose() Mat2 { return Mat2{m.A, m.C, m.B, m.D} }

// Inverse returns the adjugate-based inverse of m. It does not check for
// singularity; a singular matrix produces an Inf/NaN result.
func (m Mat2) Inverse() Mat2 {
	invDet := 1. / m.Det()
	return Mat2{
		A: m.D * invDet,
		B: -m.B * invDet,
		C: -m.C * invDet,
		D: m.A * invDet,
	}
}

// Add returns m+n.
func (m Mat2) Add(n Mat2) Mat2 {
	return Mat2{m.A + n.A, m.B + n.B, m.C + n.C, m.D + n.D}
}

// Scale returns m scaled by s.
func (m Mat2) Scale(s float64) Mat2 {
	return Mat2{m.A * s, m.B * s, m.C * s, m.D * s}
}

// Mul returns the matrix product m*n.
func (m Mat2) Mul(n Mat2) Mat2 {
	return Mat2{
		A: m.A*n.A + m.B*n.C,
		B: m.A*n.B + m.B*n.D,
		C: m.C*n.A + m.D*n.C,
		D: m.C*n.B + m.D*n.D,
	}
}

// Apply returns m applied to column vector v.
func (m Mat2) Apply(v Vec2) Vec2 {
	return Vec2{m.A*v.X + m.B*v.Y, m.C*v.X + m.D*v.Y}
}

// Solve solves m*x = rhs for x via the explicit adjugate inverse.
func (m Mat2) Solve(rhs Vec2) Vec2 {
	return m.Inverse().Apply(rhs)
}

func (m Mat2) String() string {
	return fmt.Sprintf("[[%g %g] [%g %g]]", m.A, m.B, m.C, m.D)
}
