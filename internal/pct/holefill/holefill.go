// Package holefill implements a post-reconstruction small-hole filler:
// iteratively replace sentinel-valued voxels with the mean of their
// non-sentinel 6-neighbours until none remain or an iteration makes no
// further progress.
package holefill

import "github.com/banshee-data/velocity.report/internal/pct/volume"

// Fill replaces every voxel equal to sentinel with the mean of its
// non-sentinel axis-aligned neighbours, repeating until no sentinel
// remains or an iteration changes nothing. Origin/spacing are left
// untouched; a new Volume is returned.
func Fill(v *volume.Volume, sentinel float32) *volume.Volume {
	out := volume.New(v.Origin, v.Spacing, v.Nx, v.Ny, v.Nz)
	copy(out.Data, v.Data)

	for {
		changed := false
		remaining := false
		next := make([]float32, len(out.Data))
		copy(next, out.Data)

		for k := 0; k < out.Nz; k++ {
			for j := 0; j < out.Ny; j++ {
				for i := 0; i < out.Nx; i++ {
					val, _ := out.At(i, j, k)
					if val != sentinel {
						continue
					}
					sum, n := 0.0, 0
					for _, d := range [][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}} {
						if nv, ok := out.At(i+d[0], j+d[1], k+d[2]); ok && nv != sentinel {
							sum += float64(nv)
							n++
						}
					}
					if n == 0 {
						remaining = true
						continue
					}
					idx := (k*out.Ny+j)*out.Nx + i
					next[idx] = float32(sum / float64(n))
					changed = true
				}
			}
		}
		out.Data = next
		if !changed {
			break
		}
		if !remaining && !hasSentinel(out, sentinel) {
			break
		}
	}
	return out
}

func hasSentinel(v *volume.Volume, sentinel float32) bool {
	for _, x := range v.Data {
		if x == sentinel {
			return true
		}
	}
	return false
}
