package geom

import (
	"math"
	"testing"
)

func TestMat2Inverse(t *testing.T) {
	tests := []struct {
		name string
		m    Mat2
	}{
		{"identity", Mat2{1, 0, 0, 1}},
		{"diagonal", Mat2{2, 0, 0, 4}},
		{"general", Mat2{4, 7, 2, 6}},
		{"negative det", Mat2{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := tt.m.Inverse()
			prod := tt.m.Mul(inv)
			if math.Abs(prod.A-1) > 1e-9 || math.Abs(prod.D-1) > 1e-9 {
				t.Errorf("m*inv(m) diagonal = (%v,%v), want (1,1)", prod.A, prod.D)
			}
			if math.Abs(prod.B) > 1e-9 || math.Abs(prod.C) > 1e-9 {
				t.Errorf("m*inv(m) off-diagonal = (%v,%v), want (0,0)", prod.B, prod.C)
			}
		})
	}
}

func TestMat2Solve(t *testing.T) {
	m := Mat2{2, 0, 0, 3}
	x := m.Solve(Vec2{4, 9})
	if math.Abs(x.X-2) > 1e-9 || math.Abs(x.Y-3) > 1e-9 {
		t.Errorf("Solve = %v, want (2,3)", x)
	}
}

func TestMat2Det(t *testing.T) {
	m := Mat2{1, 2, 3, 4}
	if got := m.Det(); got != -2 {
		t.Errorf("Det() = %v, want -2", got)
	}
}
