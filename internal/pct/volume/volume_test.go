package volume

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
)

func TestSetAtBounds(t *testing.T) {
	v := New(geom.Vec3{}, geom.Vec3{X: 1, Y: 1, Z: 1}, 4, 4, 4)
	v.Set(1, 2, 3, 5)
	if got, ok := v.At(1, 2, 3); !ok || got != 5 {
		t.Errorf("At(1,2,3) = %v,%v, want 5,true", got, ok)
	}
	if _, ok := v.At(-1, 0, 0); ok {
		t.Error("At(-1,0,0) should be out of bounds")
	}
	if _, ok := v.At(4, 0, 0); ok {
		t.Error("At(4,0,0) should be out of bounds")
	}
}

func TestSummarize(t *testing.T) {
	v := New(geom.Vec3{}, geom.Vec3{X: 1, Y: 1, Z: 1}, 2, 2, 2)
	v.Set(0, 0, 0, 1)
	v.Set(1, 1, 1, 3)
	s := v.Summarize()
	if s.Min != 0 || s.Max != 3 {
		t.Errorf("Summarize = %+v, want min=0 max=3", s)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	v := New(geom.Vec3{X: -10, Y: -10, Z: 0}, geom.Vec3{X: 0.5, Y: 0.5, Z: 1}, 3, 3, 3)
	for i := range v.Data {
		v.Data[i] = float32(i)
	}
	path := filepath.Join(t.TempDir(), "vol.pctv")
	if err := v.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Nx != v.Nx || got.Ny != v.Ny || got.Nz != v.Nz {
		t.Fatalf("dims = %d,%d,%d want %d,%d,%d", got.Nx, got.Ny, got.Nz, v.Nx, v.Ny, v.Nz)
	}
	for i := range v.Data {
		if got.Data[i] != v.Data[i] {
			t.Fatalf("Data[%d] = %v, want %v", i, got.Data[i], v.Data[i])
		}
	}
}
