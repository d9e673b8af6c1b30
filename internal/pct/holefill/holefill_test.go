package holefill

import (
	"testing"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"github.com/banshee-data/velocity.report/internal/pct/volume"
)

func TestFillsSingleCenterHole(t *testing.T) {
	v := volume.New(geom.Vec3{}, geom.Vec3{X: 1, Y: 1, Z: 1}, 3, 3, 3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				v.Set(i, j, k, 2)
			}
		}
	}
	v.Set(1, 1, 1, 0) // sentinel
	out := Fill(v, 0)
	got, _ := out.At(1, 1, 1)
	if got != 2 {
		t.Errorf("center = %v, want 2", got)
	}
}

func TestIdempotentOnceFilled(t *testing.T) {
	v := volume.New(geom.Vec3{}, geom.Vec3{X: 1, Y: 1, Z: 1}, 3, 3, 3)
	for i := range v.Data {
		v.Data[i] = 5
	}
	v.Set(1, 1, 1, 0)
	once := Fill(v, 0)
	twice := Fill(once, 0)
	for i := range once.Data {
		if once.Data[i] != twice.Data[i] {
			t.Fatalf("Fill is not idempotent at %d: %v vs %v", i, once.Data[i], twice.Data[i])
		}
	}
}
