package ddbp

import (
	"math"
	"testing"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"github.com/banshee-data/velocity.report/internal/pct/geometry"
	"github.com/banshee-data/velocity.report/internal/pct/projstack"
	"github.com/banshee-data/velocity.report/internal/pct/volume"
)

func TestProjectIsocenterHitsDetectorCenter(t *testing.T) {
	v := geometry.View{Angle: 0, SourceToIso: 500, SourceToDetector: 1000}
	u, vv, ok := project(geom.Vec3{}, v)
	if !ok {
		t.Fatal("expected a valid projection of the isocenter")
	}
	if math.Abs(u) > 1e-9 || math.Abs(vv) > 1e-9 {
		t.Errorf("isocenter should project to detector center, got (%v,%v)", u, vv)
	}
}

func TestBackprojectViewConstantPanelAddsConstant(t *testing.T) {
	g := geometry.New([]geometry.View{{Angle: 0, SourceToIso: 500, SourceToDetector: 1000}})
	panel := projstack.New(64, 64, 1, 1, -32, -32, 1, 1)
	for u := 0; u < 64; u++ {
		for v := 0; v < 64; v++ {
			panel.Set(u, v, 0, 0, 2.5)
		}
	}
	vol := volume.New(geom.Vec3{X: -10, Y: -10, Z: -10}, geom.Vec3{X: 1, Y: 1, Z: 1}, 5, 5, 5)
	BackprojectView(vol, panel, g, 0, 0)
	val, _ := vol.At(2, 2, 2)
	if math.Abs(float64(val)-2.5) > 1e-6 {
		t.Errorf("voxel accumulated %v, want 2.5", val)
	}
}
