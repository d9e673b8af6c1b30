// Package geometry implements the per-view acquisition geometry record (the
// "G" oracle of the reconstruction spec) and its derived queries. Reading
// the geometry from an XML description file is treated as an external
// collaborator's contract; this package supplies the in-memory record and
// the small XML loader that satisfies that contract end to end.
package geometry

import (
	"math"
	"sort"
)

// View is the immutable per-view geometry record.
type View struct {
	Angle              float64 // gantry angle theta, radians, normalised to [0,2pi)
	SourceToIso        float64 // SID
	SourceToDetector   float64 // SDD; 0 means parallel geometry
	SourceOffsetX      float64 // sox
	SourceOffsetY      float64 // soy
	ProjectionOffsetX  float64 // pox
	ProjectionOffsetY  float64 // poy
	InPlaneRotation    float64
	OutOfPlaneRotation float64
}

// Geometry is the immutable, read-only-shared collection of per-view
// records plus the derived queries used by PWeight, PParker and DDBP.
type Geometry struct {
	Views []View
}

func normalizeAngle(a float64) float64 {
	const twoPi = 2 * math.Pi
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}

// New builds a Geometry from per-view records, normalising angles to
// [0, 2pi) as mandated by the invariants.
func New(views []View) *Geometry {
	g := &Geometry{Views: make([]View, len(views))}
	copy(g.Views, views)
	for i := range g.Views {
		g.Views[i].Angle = normalizeAngle(g.Views[i].Angle)
	}
	return g
}

// N returns the number of views.
func (g *Geometry) N() int { return len(g.Views) }

// SourceToIsoDistances returns SID per view.
func (g *Geometry) SourceToIsoDistances() []float64 {
	out := make([]float64, len(g.Views))
	for i, v := range g.Views {
		out[i] = v.SourceToIso
	}
	return out
}

// SourceToDetectorDistances returns SDD per view.
func (g *Geometry) SourceToDetectorDistances() []float64 {
	out := make([]float64, len(g.Views))
	for i, v := range g.Views {
		out[i] = v.SourceToDetector
	}
	return out
}

// SourceOffsetsX returns sox per view.
func (g *Geometry) SourceOffsetsX() []float64 {
	out := make([]float64, len(g.Views))
	for i, v := range g.Views {
		out[i] = v.SourceOffsetX
	}
	return out
}

// GantryAngles returns the (normalised) gantry angle per view.
func (g *Geometry) GantryAngles() []float64 {
	out := make([]float64, len(g.Views))
	for i, v := range g.Views {
		out[i] = v.Angle
	}
	return out
}

// sortedAngle pairs a normalised angle with its originating view index.
type sortedAngle struct {
	angle float64
	view  int
}

// SortedAngles returns the view indices in ascending-angle order, mapping
// normalised angle in [0,2pi) to view index, matching the reference
// multimap-by-angle ordering.
func (g *Geometry) SortedAngles() []struct {
	Angle float64
	View  int
} {
	sa := make([]sortedAngle, len(g.Views))
	for i, v := range g.Views {
		sa[i] = sortedAngle{angle: v.Angle, view: i}
	}
	sort.Slice(sa, func(i, j int) bool { return sa[i].angle < sa[j].angle })

	out := make([]struct {
		Angle float64
		View  int
	}, len(sa))
	for i, e := range sa {
		out[i].Angle = e.angle
		out[i].View = e.view
	}
	return out
}

// AngularGaps returns, for each view i, the circular-order angular distance
// to the next angle in sorted order. The returned slice is indexed by view,
// not by sorted position, so callers can look up gap[viewIndex] directly.
// The gaps sum to 2*pi.
func (g *Geometry) AngularGaps() []float64 {
	sorted := g.SortedAngles()
	n := len(sorted)
	gaps := make([]float64, n)
	for i := range sorted {
		next := sorted[(i+1)%n]
		gap := next.Angle - sorted[i].Angle
		if gap <= 0 {
			gap += 2 * math.Pi
		}
		gaps[sorted[i].View] = gap
	}
	return gaps
}

// WidestGapView returns the view index whose angular gap to its neighbour
// is largest.
func (g *Geometry) WidestGapView() int {
	gaps := g.AngularGaps()
	best := 0
	for i, gap := range gaps {
		if gap > gaps[best] {
			best = i
		}
	}
	return best
}

// ToUntiltedCoordinateAtIsocenter converts a detector-plane u coordinate for
// view i into the coordinate it would have on an untilted detector,
// undoing in-plane rotation (rotation of the detector about the source
// axis) via its cosine projection. With zero tilt this is the identity.
// It does not remove the projection offset: callers that need the
// position relative to the projection offset (PWeight) subtract pox[i]
// themselves, per spec; callers that need the fan-angle geometry (Parker)
// use the untilted coordinate directly.
func (g *Geometry) ToUntiltedCoordinateAtIsocenter(viewIdx int, u float64) float64 {
	v := g.Views[viewIdx]
	rel := u
	if v.InPlaneRotation != 0 {
		rel = rel * math.Cos(v.InPlaneRotation)
	}
	return rel
}
