package projstack

import (
	"path/filepath"
	"testing"
)

func TestPanelRoundTrip(t *testing.T) {
	s := New(4, 3, 2, 5, -2, -1.5, 1, 1)
	panel := make([]float32, 4*3)
	for i := range panel {
		panel[i] = float32(i)
	}
	s.SetPanel(1, 2, panel)
	got := s.Panel(1, 2)
	for i := range panel {
		if got[i] != panel[i] {
			t.Fatalf("Panel[%d] = %v, want %v", i, got[i], panel[i])
		}
	}
	if v, ok := s.At(0, 0, 0, 0); !ok || v != 0 {
		t.Errorf("untouched panel should stay zero, got %v", v)
	}
}

func TestStackWriteReadRoundTrip(t *testing.T) {
	s := New(2, 2, 1, 1, 0, 0, 1, 1)
	s.Set(0, 0, 0, 0, 7)
	s.Set(1, 1, 0, 0, 9)
	path := filepath.Join(t.TempDir(), "stack.pcts")
	if err := s.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if v, _ := got.At(0, 0, 0, 0); v != 7 {
		t.Errorf("At(0,0,0,0) = %v, want 7", v)
	}
	if v, _ := got.At(1, 1, 0, 0); v != 9 {
		t.Errorf("At(1,1,0,0) = %v, want 9", v)
	}
}
