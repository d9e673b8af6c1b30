package pweight

import (
	"math"
	"testing"

	"github.com/banshee-data/velocity.report/internal/pct/geometry"
	"github.com/banshee-data/velocity.report/internal/pct/projstack"
)

func buildGeometry() *geometry.Geometry {
	return geometry.New([]geometry.View{
		{Angle: 0, SourceToIso: 500, SourceToDetector: 1000},
		{Angle: math.Pi / 2, SourceToIso: 500, SourceToDetector: 1000},
	})
}

func TestApplyScalesSample(t *testing.T) {
	g := buildGeometry()
	w := NewWeights(g)

	s := projstack.New(1, 1, 1, g.N(), 0, 0, 1, 1)
	s.Set(0, 0, 0, 0, 1)
	s.Set(0, 0, 0, 1, 1)

	w.Apply(g, s, 0, 0)
	w.Apply(g, s, 0, 1)

	gaps := g.AngularGaps()
	v := g.Views[0]
	ratio := v.SourceToDetector / v.SourceToIso
	aw := 0.5 * gaps[0] * ratio * ratio
	denom := math.Sqrt(v.SourceToDetector * v.SourceToDetector)
	want := aw * v.SourceToDetector / denom

	got, ok := s.At(0, 0, 0, 0)
	if !ok {
		t.Fatal("sample out of bounds")
	}
	if math.Abs(float64(got)-want) > 1e-6 {
		t.Errorf("view 0: got %v, want %v", got, want)
	}
}

func TestApplyUsesProjectionOffset(t *testing.T) {
	gv := []geometry.View{{Angle: 0, SourceToIso: 500, SourceToDetector: 1000, ProjectionOffsetX: 5}}
	g := geometry.New(gv)
	w := NewWeights(g)

	s := projstack.New(3, 1, 1, 1, -1, 0, 1, 1) // u physical: -1, 0, 1
	for u := 0; u < 3; u++ {
		s.Set(u, 0, 0, 0, 1)
	}
	w.Apply(g, s, 0, 0)

	// A sample farther from the projection offset should be weighted less
	// than one nearer to it (larger |du| increases the denominator).
	atOffsetNear, _ := s.At(1, 0, 0, 0) // u=0, du = 0-5 = -5
	atOffsetFar, _ := s.At(0, 0, 0, 0)  // u=-1, du = -1-5 = -6, farther
	if atOffsetNear <= atOffsetFar {
		t.Errorf("expected sample nearer the projection offset to be weighted more: near=%v far=%v", atOffsetNear, atOffsetFar)
	}
}

func TestNewWeightsMatchesFormula(t *testing.T) {
	g := buildGeometry()
	w := NewWeights(g)
	gaps := g.AngularGaps()
	for i, v := range g.Views {
		ratio := v.SourceToDetector / v.SourceToIso
		want := 0.5 * gaps[i] * ratio * ratio
		if math.Abs(w.angularWeightAndRamp[i]-want) > 1e-9 {
			t.Errorf("view %d: angularWeightAndRamp = %v, want %v", i, w.angularWeightAndRamp[i], want)
		}
	}
}
