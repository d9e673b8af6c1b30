// Package pparker implements the distance-driven Parker short-scan
// weighting filter: it compensates for non-redundant angular coverage on
// scans shorter than a full rotation.
package pparker

import (
	"math"

	"github.com/banshee-data/velocity.report/internal/pct/geometry"
	"github.com/banshee-data/velocity.report/internal/pct/pctlog"
	"github.com/banshee-data/velocity.report/internal/pct/projstack"
)

// minGapForShortScan is the 20-degree threshold below which the scan is
// treated as effectively a full rotation and Parker weighting is skipped.
const minGapForShortScan = math.Pi / 9

// Range holds the angular coverage span used by the weight formula:
// firstAngle/lastAngle bound the used angular range (excluding the widest
// gap), and delta is the short-scan half-excess angle.
type Range struct {
	FirstAngle, LastAngle, Delta float64
}

// ComputeRange derives firstAngle/lastAngle from the two neighbours of the
// widest angular gap in g's sorted-angle order, and delta = 0.5*(lastAngle
// - firstAngle - pi), reduced modulo 2*pi.
func ComputeRange(g *geometry.Geometry) Range {
	widest := g.WidestGapView()
	gap := g.AngularGaps()[widest]
	sorted := g.SortedAngles()

	firstIdx := 0
	for i, e := range sorted {
		if e.View == widest {
			firstIdx = (i + 1) % len(sorted)
			break
		}
	}
	firstAngle := sorted[firstIdx].Angle
	lastAngle := firstAngle + (2*math.Pi - gap)
	delta := math.Mod(0.5*(lastAngle-firstAngle-math.Pi), 2*math.Pi)
	return Range{FirstAngle: firstAngle, LastAngle: lastAngle, Delta: delta}
}

// IsShortScan reports whether Parker weighting should be applied at all:
// false when the detector is parallel geometry (SDD[0]==0) or the widest
// angular gap is under 20 degrees.
func IsShortScan(g *geometry.Geometry) bool {
	if len(g.Views) == 0 {
		return false
	}
	if g.Views[0].SourceToDetector == 0 {
		return false
	}
	gaps := g.AngularGaps()
	widest := 0.0
	for _, gap := range gaps {
		if gap > widest {
			widest = gap
		}
	}
	return widest >= minGapForShortScan
}

func weight(beta, alpha, delta float64) float64 {
	switch {
	case beta <= 2*delta-2*alpha:
		x := math.Pi * beta / (4 * (delta - alpha))
		return 2 * math.Sin(x) * math.Sin(x)
	case beta <= math.Pi-2*alpha:
		return 2
	case beta <= math.Pi+2*delta:
		x := math.Pi * (math.Pi + 2*delta - beta) / (4 * (delta + alpha))
		return 2 * math.Sin(x) * math.Sin(x)
	default:
		return 0
	}
}

// Apply scales every sample of the given (slice,view) panel of s in place
// by the Parker short-scan weight, or leaves it untouched when IsShortScan
// reports false (pass-through).
func Apply(g *geometry.Geometry, s *projstack.Stack, slice, view int) {
	if !IsShortScan(g) {
		return
	}
	rng := ComputeRange(g)

	v := g.Views[view]
	invSID := 1 / math.Sqrt(v.SourceToIso*v.SourceToIso+v.SourceOffsetX*v.SourceOffsetX)
	panelWidth := float64(s.Nu) * s.SpacingU
	if 2*rng.Delta < math.Atan(0.5*panelWidth/math.Sqrt(v.SourceToIso*v.SourceToIso+v.SourceOffsetX*v.SourceOffsetX)) {
		pctlog.Logf("pparker: view %d has insufficient angular coverage for a clean short-scan reconstruction", view)
	}

	beta := math.Mod(v.Angle-rng.FirstAngle, 2*math.Pi)
	if beta < 0 {
		beta += 2 * math.Pi
	}

	for ui := 0; ui < s.Nu; ui++ {
		uPhys := s.UToPhysical(ui)
		l := g.ToUntiltedCoordinateAtIsocenter(view, uPhys)
		alpha := math.Atan(-l * invSID)
		w := float32(weight(beta, alpha, rng.Delta))
		for vi := 0; vi < s.Nv; vi++ {
			sample, _ := s.At(ui, vi, slice, view)
			s.Set(ui, vi, slice, view, sample*w)
		}
	}
}
