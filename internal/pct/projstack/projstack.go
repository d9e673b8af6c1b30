// Package projstack implements the 4D divergent projection stack: a 2D
// detector panel (u,v), stacked across depth slices (the distance-driven
// binner's z-planes), stacked again across views. PPBin, PWeight, PParker,
// Ramp and DDBP all operate on one of these.
package projstack

import "fmt"

// Stack is a dense 4D float32 array indexed (u,v,slice,view). Data is
// stored slice-major, then view, then v, then u, so that one (slice,view)
// panel is contiguous — the unit DDBP and the ramp filter each consume one
// panel at a time.
type Stack struct {
	Nu, Nv, Nslice, Nview int
	OriginU, OriginV      float64
	SpacingU, SpacingV    float64
	Data                  []float32
}

// New allocates a zeroed stack.
func New(nu, nv, nslice, nview int, originU, originV, spacingU, spacingV float64) *Stack {
	return &Stack{
		Nu: nu, Nv: nv, Nslice: nslice, Nview: nview,
		OriginU: originU, OriginV: originV, SpacingU: spacingU, SpacingV: spacingV,
		Data: make([]float32, nu*nv*nslice*nview),
	}
}

func (s *Stack) index(u, v, slice, view int) (int, bool) {
	if u < 0 || u >= s.Nu || v < 0 || v >= s.Nv || slice < 0 || slice >= s.Nslice || view < 0 || view >= s.Nview {
		return 0, false
	}
	panelSize := s.Nu * s.Nv
	panel := slice*s.Nview + view
	return panel*panelSize + v*s.Nu + u, true
}

// At returns the sample at (u,v,slice,view); ok is false when out of bounds.
func (s *Stack) At(u, v, slice, view int) (value float32, ok bool) {
	idx, ok := s.index(u, v, slice, view)
	if !ok {
		return 0, false
	}
	return s.Data[idx], true
}

// Set writes the sample at (u,v,slice,view); a no-op when out of bounds.
func (s *Stack) Set(u, v, slice, view int, value float32) {
	if idx, ok := s.index(u, v, slice, view); ok {
		s.Data[idx] = value
	}
}

// Add accumulates delta at (u,v,slice,view); a no-op when out of bounds.
func (s *Stack) Add(u, v, slice, view int, delta float32) {
	if idx, ok := s.index(u, v, slice, view); ok {
		s.Data[idx] += delta
	}
}

// Panel returns a view-sliced, row-major (v-major, u-minor) copy of one
// (slice,view) 2D panel, the unit PWeight, Ramp and DDBP consume.
func (s *Stack) Panel(slice, view int) []float32 {
	out := make([]float32, s.Nu*s.Nv)
	for v := 0; v < s.Nv; v++ {
		for u := 0; u < s.Nu; u++ {
			val, _ := s.At(u, v, slice, view)
			out[v*s.Nu+u] = val
		}
	}
	return out
}

// SetPanel writes a (slice,view) 2D panel in place, as returned by Panel.
func (s *Stack) SetPanel(slice, view int, panel []float32) {
	for v := 0; v < s.Nv; v++ {
		for u := 0; u < s.Nu; u++ {
			s.Set(u, v, slice, view, panel[v*s.Nu+u])
		}
	}
}

// UToPhysical converts a panel u index to its physical coordinate.
func (s *Stack) UToPhysical(u int) float64 { return s.OriginU + s.SpacingU*float64(u) }

// VToPhysical converts a panel v index to its physical coordinate.
func (s *Stack) VToPhysical(v int) float64 { return s.OriginV + s.SpacingV*float64(v) }

func (s *Stack) String() string {
	return fmt.Sprintf("Stack(u=%d v=%d slice=%d view=%d)", s.Nu, s.Nv, s.Nslice, s.Nview)
}
