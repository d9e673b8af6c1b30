// Package volume implements the 3D scalar field shared by the
// reconstruction volume, the hole filler and the direct backprojector:
// float32 voxels addressed by (i,j,k), with an affine index-to-physical
// mapping via origin and spacing.
package volume

import (
	"fmt"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"gonum.org/v1/gonum/floats"
)

// Volume is a dense 3D scalar field. Data is stored in (k*Ny+j)*Nx+i order
// so that a fixed k (z-plane, the natural unit for distance-driven
// processing) is contiguous across the (i,j) panel.
type Volume struct {
	Origin     geom.Vec3
	Spacing    geom.Vec3
	Nx, Ny, Nz int
	Data       []float32
}

// New allocates a zeroed volume of size nx*ny*nz.
func New(origin, spacing geom.Vec3, nx, ny, nz int) *Volume {
	return &Volume{
		Origin: origin, Spacing: spacing,
		Nx: nx, Ny: ny, Nz: nz,
		Data: make([]float32, nx*ny*nz),
	}
}

func (v *Volume) index(i, j, k int) (int, bool) {
	if i < 0 || i >= v.Nx || j < 0 || j >= v.Ny || k < 0 || k >= v.Nz {
		return 0, false
	}
	return (k*v.Ny+j)*v.Nx + i, true
}

// At returns the voxel value at (i,j,k); ok is false when out of bounds.
func (v *Volume) At(i, j, k int) (value float32, ok bool) {
	idx, ok := v.index(i, j, k)
	if !ok {
		return 0, false
	}
	return v.Data[idx], true
}

// Set writes the voxel value at (i,j,k); it is a no-op when out of bounds.
func (v *Volume) Set(i, j, k int, value float32) {
	if idx, ok := v.index(i, j, k); ok {
		v.Data[idx] = value
	}
}

// Add accumulates delta into the voxel at (i,j,k); a no-op when out of bounds.
func (v *Volume) Add(i, j, k int, delta float32) {
	if idx, ok := v.index(i, j, k); ok {
		v.Data[idx] += delta
	}
}

// PhysicalPoint returns the world-space coordinate of voxel index (i,j,k).
func (v *Volume) PhysicalPoint(i, j, k int) geom.Vec3 {
	return geom.Vec3{
		X: v.Origin.X + v.Spacing.X*float64(i),
		Y: v.Origin.Y + v.Spacing.Y*float64(j),
		Z: v.Origin.Z + v.Spacing.Z*float64(k),
	}
}

// IndexOf returns the nearest voxel index for a world-space point, without
// bounds checking.
func (v *Volume) IndexOf(p geom.Vec3) (i, j, k int) {
	i = int(((p.X-v.Origin.X)/v.Spacing.X) + 0.5)
	j = int(((p.Y-v.Origin.Y)/v.Spacing.Y) + 0.5)
	k = int(((p.Z-v.Origin.Z)/v.Spacing.Z) + 0.5)
	return
}

// Stats summarises the whole volume via gonum/floats reductions.
type Stats struct {
	Min, Max, Mean float64
}

// Summarize computes Stats over every voxel in v.
func (v *Volume) Summarize() Stats {
	f := make([]float64, len(v.Data))
	for i, x := range v.Data {
		f[i] = float64(x)
	}
	if len(f) == 0 {
		return Stats{}
	}
	return Stats{Min: floats.Min(f), Max: floats.Max(f), Mean: floats.Sum(f) / float64(len(f))}
}

// String is a compact human-readable summary, for log lines.
func (v *Volume) String() string {
	return fmt.Sprintf("Volume(%dx%dx%d origin=%v spacing=%v)", v.Nx, v.Ny, v.Nz, v.Origin, v.Spacing)
}
