package fdk

import (
	"testing"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"github.com/banshee-data/velocity.report/internal/pct/geometry"
	"github.com/banshee-data/velocity.report/internal/pct/projstack"
	"github.com/banshee-data/velocity.report/internal/pct/ramp"
	"github.com/banshee-data/velocity.report/internal/pct/volume"
)

func uniformGeometry(n int) *geometry.Geometry {
	views := make([]geometry.View, n)
	for i := range views {
		views[i] = geometry.View{
			Angle: float64(i) * 2 * 3.141592653589793 / float64(n),
			SourceToIso: 500, SourceToDetector: 1000,
		}
	}
	return geometry.New(views)
}

func TestRunProducesNoNaNOnSmallStack(t *testing.T) {
	g := uniformGeometry(8)
	stack := projstack.New(16, 16, 1, 8, -8, -8, 1, 1)
	for view := 0; view < 8; view++ {
		for u := 0; u < 16; u++ {
			for v := 0; v < 16; v++ {
				stack.Set(u, v, 0, view, 1)
			}
		}
	}
	vol := volume.New(geom.Vec3{X: -4, Y: -4, Z: 0}, geom.Vec3{X: 1, Y: 1, Z: 1}, 8, 8, 1)
	got, err := Run(g, stack, vol, Config{Ramp: ramp.Config{Pad: 1, Hann: 1}, Threads: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, x := range got.Data {
		if x != x { // NaN check
			t.Fatal("reconstruction contains NaN")
		}
	}
}
