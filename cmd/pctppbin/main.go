// Command pctppbin bins a list-mode proton-pair file into a divergent
// projection stack using a selectable most-likely-path estimator.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/banshee-data/velocity.report/internal/pct/energy"
	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"github.com/banshee-data/velocity.report/internal/pct/pctlog"
	"github.com/banshee-data/velocity.report/internal/pct/ppbin"
	"github.com/banshee-data/velocity.report/internal/pct/projstack"
	"github.com/banshee-data/velocity.report/internal/pct/protonio"
	"github.com/banshee-data/velocity.report/internal/version"
)

// stackFromResult reshapes a ppbin Result (indexed (k*Nv+v)*Nu+u, one
// view) into a single-view projection stack, the unit the downstream FDK
// stages expect.
func stackFromResult(r *ppbin.Result, g ppbin.Grid) *projstack.Stack {
	s := projstack.New(g.Nu, g.Nv, g.Nz, 1, g.OriginU, g.OriginV, g.SpacingU, g.SpacingV)
	for k := 0; k < g.Nz; k++ {
		for v := 0; v < g.Nv; v++ {
			for u := 0; u < g.Nu; u++ {
				idx := (k*g.Nv+v)*g.Nu + u
				s.Set(u, v, k, 0, r.Value[idx])
			}
		}
	}
	return s
}

func parseCSVFloatSlice(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseQuadric parses a "sphere:cx,cy,cz,rx,ry,rz" or
// "cylinder:cx,cy,r" spec into a geom.Quadric.
func parseQuadric(s string) (*geom.Quadric, error) {
	if s == "" {
		return nil, nil
	}
	kind, rest, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("quadric %q: expected kind:params", s)
	}
	params, err := parseCSVFloatSlice(rest)
	if err != nil {
		return nil, fmt.Errorf("quadric %q: %w", s, err)
	}
	switch kind {
	case "sphere", "ellipsoid":
		if len(params) != 6 {
			return nil, fmt.Errorf("quadric %q: ellipsoid needs 6 params, got %d", s, len(params))
		}
		q := geom.NewEllipsoid(params[0], params[1], params[2], params[3], params[4], params[5])
		return &q, nil
	case "cylinder":
		if len(params) != 3 {
			return nil, fmt.Errorf("quadric %q: cylinder needs 3 params, got %d", s, len(params))
		}
		q := geom.NewCylinder(params[0], params[1], params[2])
		return &q, nil
	default:
		return nil, fmt.Errorf("quadric %q: unknown kind %q", s, kind)
	}
}

func main() {
	input := flag.String("input", "", "input proton-pair file (required)")
	source := flag.String("source", "", "ingestion source: 'lomalinda' swaps X/Z on read, empty leaves records as-is")
	mlpKind := flag.String("mlp", "schulte", "MLP estimator: schulte, polynomial, krah, adaptive, flexible")
	polyDegree := flag.Int("mlp-poly-degree", 2, "polynomial MLP degree (polynomial/krah only)")
	trackerUncertainties := flag.Bool("tracker-uncertainties", false, "propagate tracker position uncertainty (schulte only)")
	trackerResolution := flag.Float64("tracker-resolution", 0, "tracker spatial resolution (mm), used with --tracker-uncertainties")
	trackerPairSpacing := flag.Float64("tracker-pair-spacing", 0, "spacing between paired tracker planes (mm)")
	materialBudget := flag.Float64("material-budget", 0, "material budget between tracker planes, in radiation lengths (thickness/X0)")
	robust := flag.Bool("robust", false, "use the robust percentile-based scattering estimator")
	scatter := flag.Bool("scatter", false, "accumulate scattering variance projections")
	noise := flag.Bool("noise", false, "accumulate noise (MSE-of-mean) projections")
	workers := flag.Int("i", 0, "worker count; <=0 uses GOMAXPROCS")
	quadricIn := flag.String("quadricIn", "", "bounding quadric for the entry ray, e.g. sphere:0,0,0,100,100,100")
	quadricOut := flag.String("quadricOut", "", "bounding quadric for the exit ray; defaults to --quadricIn")
	sourceDistance := flag.Float64("source-distance", 0, "source-to-exit-plane distance for divergence magnification; 0 disables")
	energyTable := flag.String("energy-table", "", "energy-to-WEPL lookup table file (two-column eOut wepl); empty uses direct/WEPL passthrough")
	energyIn := flag.Float64("energy-in", 0, "incident beam energy matching --energy-table")

	nu := flag.Int("nu", 200, "output grid size along u")
	nv := flag.Int("nv", 200, "output grid size along v")
	nz := flag.Int("nz", 200, "output grid depth slices along the beam axis")
	originU := flag.Float64("origin-u", -100, "output grid origin u (mm)")
	originV := flag.Float64("origin-v", -100, "output grid origin v (mm)")
	originZ := flag.Float64("origin-z", -100, "output grid origin z (mm)")
	spacing := flag.Float64("spacing", 1, "output grid voxel spacing (mm), isotropic")
	output := flag.String("output", "stack.proj", "output projection stack file")
	verbose := flag.Bool("verbose", false, "enable verbose diagnostic logging")
	versionFlag := flag.Bool("version", false, "print version information and exit")
	versionShort := flag.Bool("v", false, "print version information and exit (shorthand)")

	flag.Parse()

	if *versionFlag || *versionShort {
		fmt.Printf("pctppbin v%s (git SHA: %s)\n", version.Version, version.GitSHA)
		return
	}

	if !*verbose {
		pctlog.SetLogger(func(string, ...interface{}) {})
	}
	if *input == "" {
		log.Fatal("pctppbin: --input is required")
	}

	var opts []protonio.ReaderOption
	if *source == "lomalinda" {
		opts = append(opts, protonio.WithLomaLindaSwapXZ())
	}
	rd, err := protonio.Open(*input, opts...)
	if err != nil {
		log.Fatalf("pctppbin: %v", err)
	}
	defer rd.Close()

	var records []protonio.Record
	for {
		rec, err := rd.Next()
		if err != nil {
			break
		}
		records = append(records, rec)
	}
	pctlog.Logf("pctppbin: read %d proton-pair records from %q", len(records), *input)

	qIn, err := parseQuadric(*quadricIn)
	if err != nil {
		log.Fatalf("pctppbin: %v", err)
	}
	qOut, err := parseQuadric(*quadricOut)
	if err != nil {
		log.Fatalf("pctppbin: %v", err)
	}

	var converter energy.Converter
	if *energyTable != "" {
		tbl, err := energy.LoadTableFile(*energyTable, *energyIn)
		if err != nil {
			log.Fatalf("pctppbin: %v", err)
		}
		converter = tbl
	}

	cfg := ppbin.Config{
		MLP:                  ppbin.MLPKind(*mlpKind),
		PolyDegree:           *polyDegree,
		SourceDistance:       *sourceDistance,
		QuadricIn:            qIn,
		QuadricOut:           qOut,
		Robust:               *robust,
		ComputeScattering:    *scatter,
		ComputeNoise:         *noise,
		TrackerUncertainties: *trackerUncertainties,
		TrackerResolution:    *trackerResolution,
		TrackerPairSpacing:   *trackerPairSpacing,
		MaterialBudget:       *materialBudget,
		Converter:            converter,
		Workers:              *workers,
	}
	grid := ppbin.Grid{
		Nu: *nu, Nv: *nv, Nz: *nz,
		OriginU: *originU, OriginV: *originV, OriginZ: *originZ,
		SpacingU: *spacing, SpacingV: *spacing, SpacingZ: *spacing,
	}

	result, err := ppbin.Bin(records, grid, cfg)
	if err != nil {
		log.Fatalf("pctppbin: %v", err)
	}

	stack := stackFromResult(result, grid)
	if err := stack.WriteFile(*output); err != nil {
		log.Fatalf("pctppbin: write %q: %v", *output, err)
	}
	pctlog.Logf("pctppbin: wrote %q", *output)
}
