// Command pctppbp backprojects a list-mode proton-pair file directly into
// a reconstruction volume, bypassing the intermediate projection stack.
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
	"github.com/banshee-data/velocity.report/internal/pct/ppbp"
	"github.com/banshee-data/velocity.report/internal/pct/protonio"
	"github.com/banshee-data/velocity.report/internal/pct/volume"
	"github.com/banshee-data/velocity.report/internal/version"
)

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
	source := flag.String("source", "", "ingestion source: 'lomalinda' swaps X/Z on read")
	mlpKind := flag.String("mlp", "schulte", "MLP estimator: schulte, polynomial, krah, adaptive, flexible")
	polyDegree := flag.Int("mlp-poly-degree", 2, "polynomial MLP degree")
	quadricIn := flag.String("quadricIn", "", "bounding quadric for the entry ray")
	quadricOut := flag.String("quadricOut", "", "bounding quadric for the exit ray; defaults to --quadricIn")
	disableRotation := flag.Bool("disable-rotation", false, "skip the per-view gantry rotation, binning in source coordinates")
	viewAngle := flag.Float64("view-angle", 0, "gantry angle (radians) to rotate samples by before binning")
	workers := flag.Int("i", 0, "worker count; <=0 uses GOMAXPROCS")
	energyTable := flag.String("energy-table", "", "energy-to-WEPL lookup table file")
	energyIn := flag.Float64("energy-in", 0, "incident beam energy matching --energy-table")

	originX := flag.Float64("origin-x", -100, "volume origin X (mm)")
	originY := flag.Float64("origin-y", -100, "volume origin Y (mm)")
	originZ := flag.Float64("origin-z", -100, "volume origin Z (mm)")
	spacing := flag.Float64("spacing", 1, "voxel spacing (mm), isotropic")
	nx := flag.Int("nx", 200, "volume size along X")
	ny := flag.Int("ny", 200, "volume size along Y")
	nz := flag.Int("nz", 200, "volume size along Z")
	output := flag.String("output", "recon.vol", "output volume file")
	verbose := flag.Bool("verbose", false, "enable verbose diagnostic logging")
	versionFlag := flag.Bool("version", false, "print version information and exit")
	versionShort := flag.Bool("v", false, "print version information and exit (shorthand)")

	flag.Parse()

	if *versionFlag || *versionShort {
		fmt.Printf("pctppbp v%s (git SHA: %s)\n", version.Version, version.GitSHA)
		return
	}

	if !*verbose {
		pctlog.SetLogger(func(string, ...interface{}) {})
	}
	if *input == "" {
		log.Fatal("pctppbp: --input is required")
	}

	var opts []protonio.ReaderOption
	if *source == "lomalinda" {
		opts = append(opts, protonio.WithLomaLindaSwapXZ())
	}
	rd, err := protonio.Open(*input, opts...)
	if err != nil {
		log.Fatalf("pctppbp: %v", err)
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
	pctlog.Logf("pctppbp: read %d proton-pair records from %q", len(records), *input)

	qIn, err := parseQuadric(*quadricIn)
	if err != nil {
		log.Fatalf("pctppbp: %v", err)
	}
	qOut, err := parseQuadric(*quadricOut)
	if err != nil {
		log.Fatalf("pctppbp: %v", err)
	}

	var converter energy.Converter
	if *energyTable != "" {
		tbl, err := energy.LoadTableFile(*energyTable, *energyIn)
		if err != nil {
			log.Fatalf("pctppbp: %v", err)
		}
		converter = tbl
	}

	vol := volume.New(
		geom.Vec3{X: *originX, Y: *originY, Z: *originZ},
		geom.Vec3{X: *spacing, Y: *spacing, Z: *spacing},
		*nx, *ny, *nz,
	)

	cfg := ppbp.Config{
		MLP: *mlpKind, PolyDegree: *polyDegree,
		QuadricIn: qIn, QuadricOut: qOut,
		Converter:       converter,
		DisableRotation: *disableRotation,
		ViewAngle:       *viewAngle,
		Workers:         *workers,
	}

	count, err := ppbp.Backproject(records, vol, cfg)
	if err != nil {
		log.Fatalf("pctppbp: %v", err)
	}
	for i := range vol.Data {
		if count.Data[i] > 0 {
			vol.Data[i] /= count.Data[i]
		}
	}

	if err := vol.WriteFile(*output); err != nil {
		log.Fatalf("pctppbp: write %q: %v", *output, err)
	}
	pctlog.Logf("pctppbp: wrote %q", *output)
}
