// Package pweight implements the FDK divergence weighting filter: each
// detector sample is scaled by a per-view, per-position factor that
// corrects for the fan/cone beam's divergence before ramp filtering.
package pweight

import (
	"math"

	"github.com/banshee-data/velocity.report/internal/pct/geometry"
	"github.com/banshee-data/velocity.report/internal/pct/projstack"
)

// Weights precomputes the per-view angular weight and ramp scale used by
// Apply; it is cheap to recompute but is exposed so a caller can build it
// once per geometry and reuse it across an FDK run.
type Weights struct {
	angularWeightAndRamp []float64
}

// NewWeights precomputes angularWeightAndRamp[i] = 0.5 * gap[i] *
// (SDD[i]/SID[i])^2 for every view in g.
func NewWeights(g *geometry.Geometry) *Weights {
	gaps := g.AngularGaps()
	w := &Weights{angularWeightAndRamp: make([]float64, g.N())}
	for i, v := range g.Views {
		ratio := v.SourceToDetector / v.SourceToIso
		w.angularWeightAndRamp[i] = 0.5 * gaps[i] * ratio * ratio
	}
	return w
}

// Apply scales every sample of the given (slice,view) panel of s in place.
func (w *Weights) Apply(g *geometry.Geometry, s *projstack.Stack, slice, view int) {
	v := g.Views[view]
	aw := w.angularWeightAndRamp[view]
	for vi := 0; vi < s.Nv; vi++ {
		vPhys := s.VToPhysical(vi)
		for ui := 0; ui < s.Nu; ui++ {
			uPhys := s.UToPhysical(ui)
			uUntilted := g.ToUntiltedCoordinateAtIsocenter(view, uPhys)
			du := uUntilted - v.ProjectionOffsetX
			dv := vPhys - v.ProjectionOffsetY
			denom := math.Sqrt(v.SourceToDetector*v.SourceToDetector + du*du + dv*dv)
			mult := aw * v.SourceToDetector / denom
			sample, _ := s.At(ui, vi, slice, view)
			s.Set(ui, vi, slice, view, sample*float32(mult))
		}
	}
}
