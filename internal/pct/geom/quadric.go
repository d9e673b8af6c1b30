package geom

import "math"

// Quadric is an implicit second-degree surface
//
//	A x² + B y² + C z² + D xy + E yz + F xz + G x + H y + I z + J = 0
//
// used to bound the imaged object for the proton-pair accumulators. The
// zero-valued Quadric is the degenerate case J=0, never intersected by
// construction (A..I all zero), which callers avoid by using one of the
// constructors below.
type Quadric struct {
	A, B, C, D, E, F, G, H, I, J float64
}

// NewEllipsoid builds the quadric for an axis-aligned ellipsoid centred at
// (cx,cy,cz) with semi-axes (rx,ry,rz).
func NewEllipsoid(cx, cy, cz, rx, ry, rz float64) Quadric {
	a := 1 / (rx * rx)
	b := 1 / (ry * ry)
	c := 1 / (rz * rz)
	return Quadric{
		A: a, B: b, C: c,
		G: -2 * a * cx,
		H: -2 * b * cy,
		I: -2 * c * cz,
		J: a*cx*cx + b*cy*cy + c*cz*cz - 1,
	}
}

// NewCylinder builds the quadric for an infinite circular cylinder of
// radius r centred on (cx,cy) and running along z.
func NewCylinder(cx, cy, r float64) Quadric {
	return Quadric{
		A: 1, B: 1,
		G: -2 * cx,
		H: -2 * cy,
		J: cx*cx + cy*cy - r*r,
	}
}

// IsIntersectedByRay solves the quadric equation along the ray p+t*d for t
// and returns the two roots (near, far ordered by value, not by sign) and
// whether a real intersection exists.
func (q Quadric) IsIntersectedByRay(p, d Vec3) (near, far float64, ok bool) {
	a := q.A*d.X*d.X + q.B*d.Y*d.Y + q.C*d.Z*d.Z +
		q.D*d.X*d.Y + q.E*d.Y*d.Z + q.F*d.X*d.Z
	b := 2*q.A*p.X*d.X + 2*q.B*p.Y*d.Y + 2*q.C*p.Z*d.Z +
		q.D*(p.X*d.Y+p.Y*d.X) + q.E*(p.Y*d.Z+p.Z*d.Y) + q.F*(p.X*d.Z+p.Z*d.X) +
		q.G*d.X + q.H*d.Y + q.I*d.Z
	c := q.A*p.X*p.X + q.B*p.Y*p.Y + q.C*p.Z*p.Z +
		q.D*p.X*p.Y + q.E*p.Y*p.Z + q.F*p.X*p.Z +
		q.G*p.X + q.H*p.Y + q.I*p.Z + q.J

	if a == 0 {
		// Degenerates to a linear equation b*t+c=0.
		if b == 0 {
			return 0, 0, false
		}
		t := -c / b
		return t, t, true
	}

	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, 0, false
	}
	sq := math.Sqrt(disc)
	t1 := (-b - sq) / (2 * a)
	t2 := (-b + sq) / (2 * a)
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	return t1, t2, true
}
