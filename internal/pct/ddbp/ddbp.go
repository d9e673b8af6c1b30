// Package ddbp implements the distance-driven cone-beam backprojector: for
// one view at a time, it projects every reconstruction voxel onto the
// filtered detector panel and accumulates a bilinearly interpolated sample
// back into the volume.
package ddbp

import (
	"math"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"github.com/banshee-data/velocity.report/internal/pct/geometry"
	"github.com/banshee-data/velocity.report/internal/pct/projstack"
	"github.com/banshee-data/velocity.report/internal/pct/volume"
)

// project maps a world-space point to its (u,v) coordinate on the view's
// detector plane under a pinhole cone-beam model: the source orbits at
// radius SID, the detector center is SDD-SID beyond isocenter on the
// opposite side, and the in-plane/v detector axes are the rotated
// (tangential, +z) pair.
func project(p geom.Vec3, v geometry.View) (u, vv float64, ok bool) {
	cosT, sinT := math.Cos(v.Angle), math.Sin(v.Angle)
	source := geom.Vec3{X: v.SourceToIso * cosT, Y: v.SourceToIso * sinT, Z: 0}
	detCenter := geom.Vec3{X: -(v.SourceToDetector - v.SourceToIso) * cosT, Y: -(v.SourceToDetector - v.SourceToIso) * sinT, Z: 0}
	normal := geom.Vec3{X: cosT, Y: sinT, Z: 0}
	eu := geom.Vec3{X: -sinT, Y: cosT, Z: 0}

	d := p.Sub(source)
	denom := d.Dot(normal)
	if denom == 0 {
		return 0, 0, false
	}
	t := detCenter.Sub(source).Dot(normal) / denom
	if t <= 0 {
		return 0, 0, false
	}
	hit := source.Add(d.Scale(t))
	rel := hit.Sub(detCenter)
	u = rel.Dot(eu) + v.ProjectionOffsetX
	vv = rel.Z + v.ProjectionOffsetY
	return u, vv, true
}

func bilinear(panel *projstack.Stack, slice, view int, u, v float64) (float32, bool) {
	ui := (u - panel.OriginU) / panel.SpacingU
	vi := (v - panel.OriginV) / panel.SpacingV
	u0, v0 := int(math.Floor(ui)), int(math.Floor(vi))
	if u0 < 0 || v0 < 0 || u0+1 >= panel.Nu || v0+1 >= panel.Nv {
		return 0, false
	}
	fu, fv := ui-float64(u0), vi-float64(v0)
	p00, _ := panel.At(u0, v0, slice, view)
	p10, _ := panel.At(u0+1, v0, slice, view)
	p01, _ := panel.At(u0, v0+1, slice, view)
	p11, _ := panel.At(u0+1, v0+1, slice, view)
	top := float64(p00)*(1-fu) + float64(p10)*fu
	bot := float64(p01)*(1-fu) + float64(p11)*fu
	return float32(top*(1-fv) + bot*fv), true
}

// BackprojectView accumulates one view's filtered panel (slice,view) into
// vol in place, one voxel at a time.
func BackprojectView(vol *volume.Volume, panel *projstack.Stack, g *geometry.Geometry, slice, view int) {
	v := g.Views[view]
	for k := 0; k < vol.Nz; k++ {
		for j := 0; j < vol.Ny; j++ {
			for i := 0; i < vol.Nx; i++ {
				p := vol.PhysicalPoint(i, j, k)
				u, vv, ok := project(p, v)
				if !ok {
					continue
				}
				sample, ok := bilinear(panel, slice, view, u, vv)
				if !ok {
					continue
				}
				vol.Add(i, j, k, sample)
			}
		}
	}
}
