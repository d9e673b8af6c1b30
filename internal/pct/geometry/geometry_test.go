package geometry

import (
	"math"
	"testing"
)

func uniformViews(n int) []View {
	views := make([]View, n)
	for i := range views {
		views[i] = View{
			Angle:            float64(i) * 2 * math.Pi / float64(n),
			SourceToIso:      500,
			SourceToDetector: 1000,
		}
	}
	return views
}

func TestAngularGapsSumToTwoPi(t *testing.T) {
	g := New(uniformViews(180))
	gaps := g.AngularGaps()
	sum := 0.
	for _, gap := range gaps {
		sum += gap
	}
	if math.Abs(sum-2*math.Pi) > 1e-9 {
		t.Errorf("sum of angular gaps = %v, want 2*pi", sum)
	}
}

func TestAngularGapsUniform(t *testing.T) {
	n := 36
	g := New(uniformViews(n))
	gaps := g.AngularGaps()
	want := 2 * math.Pi / float64(n)
	for i, gap := range gaps {
		if math.Abs(gap-want) > 1e-9 {
			t.Errorf("gap[%d] = %v, want %v", i, gap, want)
		}
	}
}

func TestAngleNormalization(t *testing.T) {
	g := New([]View{{Angle: -math.Pi / 2}, {Angle: 5 * math.Pi}})
	for i, v := range g.Views {
		if v.Angle < 0 || v.Angle >= 2*math.Pi {
			t.Errorf("view %d angle %v not in [0,2pi)", i, v.Angle)
		}
	}
}

func TestSortedAnglesOrder(t *testing.T) {
	g := New([]View{{Angle: 3}, {Angle: 1}, {Angle: 2}})
	sorted := g.SortedAngles()
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Angle < sorted[i-1].Angle {
			t.Fatalf("sorted angles not monotone: %v", sorted)
		}
	}
}

func TestWidestGapView(t *testing.T) {
	// Three views clustered near 0, with one big gap before wrapping.
	g := New([]View{{Angle: 0}, {Angle: 0.1}, {Angle: 0.2}})
	widest := g.WidestGapView()
	// view 2 (angle 0.2) has the gap back around to 0, i.e. the largest.
	if widest != 2 {
		t.Errorf("WidestGapView() = %d, want 2", widest)
	}
}
