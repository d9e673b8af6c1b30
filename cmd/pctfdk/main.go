// Command pctfdk runs the FDK filtered-backprojection reconstruction over
// a projection stack, writing the resulting volume to disk.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/banshee-data/velocity.report/internal/pct/fdk"
	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"github.com/banshee-data/velocity.report/internal/pct/geometry"
	"github.com/banshee-data/velocity.report/internal/pct/pctlog"
	"github.com/banshee-data/velocity.report/internal/pct/projstack"
	"github.com/banshee-data/velocity.report/internal/pct/ramp"
	"github.com/banshee-data/velocity.report/internal/pct/volume"
	"github.com/banshee-data/velocity.report/internal/version"
)

// parseCSVFloatSlice parses a comma-separated list of floats, used for the
// --wpc polynomial coefficient list.
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

// applyWaterPrecorrection evaluates the given polynomial (lowest-degree
// coefficient first) against each raw projection sample, correcting for
// detector non-linearity before the weighting/filtering stages run.
func applyWaterPrecorrection(stack *projstack.Stack, coeffs []float64) {
	if len(coeffs) == 0 {
		return
	}
	for i, raw := range stack.Data {
		x := float64(raw)
		var y, p float64 = 0, 1
		for _, c := range coeffs {
			y += c * p
			p *= x
		}
		stack.Data[i] = float32(y)
	}
}

func main() {
	path := flag.String("path", "", "directory containing input projection stack files")
	regexpFlag := flag.String("regexp", "", "regexp selecting stack files under --path")
	geomPath := flag.String("geometry", "", "geometry XML description file (required)")
	output := flag.String("output", "recon.vol", "output volume file")
	pad := flag.Float64("pad", 2, "ramp filter zero-padding factor")
	hann := flag.Float64("hann", 1, "Hann window cutoff fraction along u (1 disables)")
	hannY := flag.Float64("hannY", 1, "Hann window cutoff fraction along v (1 disables)")
	wpc := flag.String("wpc", "", "comma-separated water-precorrection polynomial coefficients, lowest degree first")
	verbose := flag.Bool("verbose", false, "enable verbose diagnostic logging")
	stackPath := flag.String("stack", "", "a single projection stack file (alternative to --path/--regexp)")
	threads := flag.Int("threads", 0, "worker thread cap; <=0 uses min(8, GOMAXPROCS)")

	volOriginX := flag.Float64("origin-x", -100, "reconstruction volume origin X (mm)")
	volOriginY := flag.Float64("origin-y", -100, "reconstruction volume origin Y (mm)")
	volOriginZ := flag.Float64("origin-z", -100, "reconstruction volume origin Z (mm)")
	volSpacing := flag.Float64("spacing", 1, "reconstruction voxel spacing (mm), isotropic")
	volNx := flag.Int("nx", 200, "reconstruction volume size along X")
	volNy := flag.Int("ny", 200, "reconstruction volume size along Y")
	volNz := flag.Int("nz", 200, "reconstruction volume size along Z")
	versionFlag := flag.Bool("version", false, "print version information and exit")
	versionShort := flag.Bool("v", false, "print version information and exit (shorthand)")

	flag.Parse()

	if *versionFlag || *versionShort {
		fmt.Printf("pctfdk v%s (git SHA: %s)\n", version.Version, version.GitSHA)
		return
	}

	if !*verbose {
		pctlog.SetLogger(func(string, ...interface{}) {})
	}

	if *geomPath == "" {
		log.Fatal("pctfdk: --geometry is required")
	}
	g, err := geometry.LoadXML(*geomPath)
	if err != nil {
		log.Fatalf("pctfdk: %v", err)
	}

	in := *stackPath
	if in == "" {
		if *path == "" {
			log.Fatal("pctfdk: one of --stack or --path/--regexp is required")
		}
		in = resolveStackFile(*path, *regexpFlag)
	}
	stack, err := projstack.ReadFile(in)
	if err != nil {
		log.Fatalf("pctfdk: read stack: %v", err)
	}

	if coeffs, err := parseCSVFloatSlice(*wpc); err != nil {
		log.Fatalf("pctfdk: --wpc: %v", err)
	} else if len(coeffs) > 0 {
		applyWaterPrecorrection(stack, coeffs)
	}

	vol := volume.New(
		geom.Vec3{X: *volOriginX, Y: *volOriginY, Z: *volOriginZ},
		geom.Vec3{X: *volSpacing, Y: *volSpacing, Z: *volSpacing},
		*volNx, *volNy, *volNz,
	)

	cfg := fdk.Config{
		Ramp:    ramp.Config{Pad: *pad, Hann: *hann, HannY: *hannY},
		Threads: *threads,
	}
	vol, err = fdk.Run(g, stack, vol, cfg)
	if err != nil {
		log.Fatalf("pctfdk: %v", err)
	}

	stats := vol.Summarize()
	if math.IsNaN(stats.Mean) {
		log.Fatal("pctfdk: reconstruction produced NaN output")
	}
	pctlog.Logf("pctfdk: reconstruction complete, mean=%v min=%v max=%v", stats.Mean, stats.Min, stats.Max)

	if err := vol.WriteFile(*output); err != nil {
		log.Fatalf("pctfdk: write %q: %v", *output, err)
	}
}

// resolveStackFile picks the single file under dir matching pattern. When
// pattern is empty, it requires dir to contain exactly one file.
func resolveStackFile(dir, pattern string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("pctfdk: read %q: %v", dir, err)
	}
	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if pattern == "" || matchesPattern(e.Name(), pattern) {
			candidates = append(candidates, e.Name())
		}
	}
	if len(candidates) == 0 {
		log.Fatalf("pctfdk: no files matched under %q", dir)
	}
	if len(candidates) > 1 {
		log.Fatalf("pctfdk: %d files matched under %q, expected exactly one; narrow --regexp", len(candidates), dir)
	}
	return dir + string(os.PathSeparator) + candidates[0]
}

func matchesPattern(name, pattern string) bool {
	matched, err := regexp.MatchString(pattern, name)
	if err != nil {
		log.Fatalf("pctfdk: bad --regexp %q: %v", pattern, err)
	}
	return matched
}
