package protonio

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.pctp")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	records := []Record{
		{PIn: geom.Vec3{X: 0, Y: 0, Z: 0}, POut: geom.Vec3{X: 0, Y: 0, Z: 200}, DIn: geom.Vec3{Z: 1}, DOut: geom.Vec3{Z: 1}, EIn: 200, EOut: 150},
		{PIn: geom.Vec3{X: 1, Y: 2, Z: 0}, POut: geom.Vec3{X: 3, Y: 4, Z: 180}, EIn: 0, EOut: 42, Nuclear: true},
	}
	for _, r := range records {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	for i, want := range records {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("Next(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("record %d = %+v, want %+v", i, got, want)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after last record = %v, want io.EOF", err)
	}
}

func TestLomaLindaSwapXZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.pctp")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Write(Record{PIn: geom.Vec3{X: 1, Y: 2, Z: 3}, DIn: geom.Vec3{X: 0.1, Y: 0.2, Z: 0.3}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path, WithLomaLindaSwapXZ())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	got, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got.PIn != (geom.Vec3{X: 3, Y: 2, Z: 1}) {
		t.Errorf("PIn after swap = %v, want (3,2,1)", got.PIn)
	}
	if got.DIn != (geom.Vec3{X: 0.3, Y: 0.2, Z: 0.1}) {
		t.Errorf("DIn after swap = %v, want (0.3,0.2,0.1)", got.DIn)
	}
}
