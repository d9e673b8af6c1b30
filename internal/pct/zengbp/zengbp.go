// Package zengbp implements Zeng's differentiated backprojection (DBP)
// combination: given a 4D stack of per-view DBP slices, produce the
// cosine- and sine-weighted sums across views that downstream DBP
// reconstruction combines into the final image.
package zengbp

import (
	"math"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"github.com/banshee-data/velocity.report/internal/pct/projstack"
	"github.com/banshee-data/velocity.report/internal/pct/volume"
)

// Combine computes, for the given slice, cosine- and sine-weighted sums
// over all views of s, using per-view angles theta. The two results are
// sized Nu x Nv (one 2D panel each).
func Combine(s *projstack.Stack, slice int, theta []float64) (cosSum, sinSum []float32) {
	n := s.Nu * s.Nv
	cosSum = make([]float32, n)
	sinSum = make([]float32, n)
	for view := 0; view < s.Nview; view++ {
		c := float32(math.Cos(theta[view]))
		sn := float32(math.Sin(theta[view]))
		for v := 0; v < s.Nv; v++ {
			for u := 0; u < s.Nu; u++ {
				val, _ := s.At(u, v, slice, view)
				idx := v*s.Nu + u
				cosSum[idx] += c * val
				sinSum[idx] += sn * val
			}
		}
	}
	return
}

// CombineVolume runs Combine over every slice of s, writing the cosine-
// and sine-weighted sums into two matching volumes (z indexed by slice).
func CombineVolume(s *projstack.Stack, theta []float64, origin, spacing geom.Vec3) (cosVol, sinVol *volume.Volume) {
	cosVol = volume.New(origin, spacing, s.Nu, s.Nv, s.Nslice)
	sinVol = volume.New(origin, spacing, s.Nu, s.Nv, s.Nslice)
	for slice := 0; slice < s.Nslice; slice++ {
		c, sn := Combine(s, slice, theta)
		for v := 0; v < s.Nv; v++ {
			for u := 0; u < s.Nu; u++ {
				idx := v*s.Nu + u
				cosVol.Set(u, v, slice, c[idx])
				sinVol.Set(u, v, slice, sn[idx])
			}
		}
	}
	return
}
