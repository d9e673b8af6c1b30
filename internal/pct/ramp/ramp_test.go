package ramp

import (
	"math"
	"testing"

	"github.com/banshee-data/velocity.report/internal/pct/projstack"
)

func TestApplyZerosOutDCComponent(t *testing.T) {
	s := projstack.New(16, 1, 1, 1, 0, 0, 1, 1)
	for u := 0; u < 16; u++ {
		s.Set(u, 0, 0, 0, 1) // constant row: pure DC
	}
	Apply(s, 0, 0, Config{Pad: 1, Hann: 1})
	for u := 0; u < 16; u++ {
		v, _ := s.At(u, 0, 0, 0)
		if math.Abs(float64(v)) > 1e-6 {
			t.Errorf("u=%d: ramp of a DC row should vanish, got %v", u, v)
		}
	}
}

func TestApplyPreservesLength(t *testing.T) {
	s := projstack.New(8, 1, 1, 1, 0, 0, 1, 1)
	s.Set(3, 0, 0, 0, 5)
	Apply(s, 0, 0, Config{Pad: 2, Hann: 0.5})
	// No panic and the panel keeps its original shape.
	if s.Nu != 8 {
		t.Fatalf("Nu changed to %d", s.Nu)
	}
}
