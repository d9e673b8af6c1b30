package ppbin

import (
	"math"
	"testing"

	"github.com/banshee-data/velocity.report/internal/pct/energy"
	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"github.com/banshee-data/velocity.report/internal/pct/protonio"
)

func straightGrid() Grid {
	return Grid{
		Nu: 11, Nv: 11, Nz: 3,
		OriginU: -5, OriginV: -5, OriginZ: 0,
		SpacingU: 1, SpacingV: 1, SpacingZ: 100,
	}
}

func TestCountsConservationStraightThroughProtons(t *testing.T) {
	tbl, err := energy.NewTable(200, []float64{200, 150, 100, 0}, []float64{0, 50, 110, 260})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	records := []protonio.Record{
		{PIn: geom.Vec3{Z: 0}, POut: geom.Vec3{Z: 200}, DIn: geom.Vec3{Z: 1}, DOut: geom.Vec3{Z: 1}, EIn: 200, EOut: 150},
		{PIn: geom.Vec3{Z: 0}, POut: geom.Vec3{Z: 200}, DIn: geom.Vec3{Z: 1}, DOut: geom.Vec3{Z: 1}, EIn: 200, EOut: 150},
	}
	cfg := Config{MLP: MLPSchulte, Converter: tbl, Workers: 1}
	res, err := Bin(records, straightGrid(), cfg)
	if err != nil {
		t.Fatalf("Bin: %v", err)
	}
	want := tbl.Value(150, 200)
	for k := 0; k < 3; k++ {
		idx := (k*11+5)*11 + 5
		if res.Count[idx] != 2 {
			t.Errorf("slice %d count at center = %v, want 2", k, res.Count[idx])
		}
		if math.Abs(float64(res.Value[idx])-want) > 1e-6 {
			t.Errorf("slice %d value at center = %v, want %v", k, res.Value[idx], want)
		}
	}
}

func TestConfigRejectsTrackerUncertaintiesWithoutSchulte(t *testing.T) {
	cfg := Config{MLP: MLPPolynomial, PolyDegree: 2, TrackerUncertainties: true}
	if _, err := Bin(nil, straightGrid(), cfg); err == nil {
		t.Fatal("expected error for tracker-uncertainties with a non-schulte mlp")
	}
}

func TestConfigRejectsUnknownMLP(t *testing.T) {
	cfg := Config{MLP: "not-a-real-mlp"}
	if _, err := Bin(nil, straightGrid(), cfg); err == nil {
		t.Fatal("expected error for unknown mlp kind")
	}
}

func TestRejectsBadZOrdering(t *testing.T) {
	records := []protonio.Record{
		{PIn: geom.Vec3{Z: 200}, POut: geom.Vec3{Z: 0}, DIn: geom.Vec3{Z: 1}, DOut: geom.Vec3{Z: 1}, EIn: 200, EOut: 150},
	}
	cfg := Config{MLP: MLPSchulte, Workers: 1}
	if _, err := Bin(records, straightGrid(), cfg); err == nil {
		t.Fatal("expected error for p_in.z >= p_out.z")
	}
}

func TestRejectsVariableEnergyWithWEPLDirectUnderFlexible(t *testing.T) {
	records := []protonio.Record{
		{PIn: geom.Vec3{Z: 0}, POut: geom.Vec3{Z: 200}, DIn: geom.Vec3{Z: 1}, DOut: geom.Vec3{Z: 1}, EIn: 0, EOut: 10},
	}
	cfg := Config{MLP: MLPFlexible, Workers: 1, VariableBeamEnergy: true}
	if _, err := Bin(records, straightGrid(), cfg); err == nil {
		t.Fatal("expected error for variable beam energy with wepl-direct input under the flexible mlp")
	}
}

func TestRobustSingleCountYieldsZeroVariance(t *testing.T) {
	records := []protonio.Record{
		{PIn: geom.Vec3{Z: 0}, POut: geom.Vec3{Z: 200}, DIn: geom.Vec3{Z: 1}, DOut: geom.Vec3{Z: 1}, EIn: 0, EOut: 10},
	}
	cfg := Config{MLP: MLPSchulte, Workers: 1, Robust: true, ComputeScattering: true}
	res, err := Bin(records, straightGrid(), cfg)
	if err != nil {
		t.Fatalf("Bin: %v", err)
	}
	idx := (0*11 + 5) * 11 + 5
	if res.Count[idx] != 1 {
		t.Fatalf("count = %v, want 1", res.Count[idx])
	}
	if res.Angle[idx] != 0 {
		t.Errorf("robust angle variance with count==1 = %v, want 0", res.Angle[idx])
	}
}
