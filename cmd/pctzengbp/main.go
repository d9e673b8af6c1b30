// Command pctzengbp combines a 4D stack of per-view DBP slices into the
// cosine- and sine-weighted sums Zeng's differentiated-backprojection
// algorithm uses downstream.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"github.com/banshee-data/velocity.report/internal/pct/geometry"
	"github.com/banshee-data/velocity.report/internal/pct/pctlog"
	"github.com/banshee-data/velocity.report/internal/pct/projstack"
	"github.com/banshee-data/velocity.report/internal/pct/zengbp"
	"github.com/banshee-data/velocity.report/internal/version"
)

func main() {
	input := flag.String("input", "", "input DBP projection stack file (required)")
	geomPath := flag.String("geometry", "", "geometry XML description file, used for per-view angles (required)")
	cosOutput := flag.String("cos-output", "cos.vol", "output cosine-weighted-sum volume file")
	sinOutput := flag.String("sin-output", "sin.vol", "output sine-weighted-sum volume file")
	originX := flag.Float64("origin-x", -100, "output volume origin X (mm)")
	originY := flag.Float64("origin-y", -100, "output volume origin Y (mm)")
	originZ := flag.Float64("origin-z", -100, "output volume origin Z (mm)")
	spacing := flag.Float64("spacing", 1, "output voxel spacing (mm), isotropic")
	verbose := flag.Bool("verbose", false, "enable verbose diagnostic logging")
	versionFlag := flag.Bool("version", false, "print version information and exit")
	versionShort := flag.Bool("v", false, "print version information and exit (shorthand)")

	flag.Parse()

	if *versionFlag || *versionShort {
		fmt.Printf("pctzengbp v%s (git SHA: %s)\n", version.Version, version.GitSHA)
		return
	}

	if !*verbose {
		pctlog.SetLogger(func(string, ...interface{}) {})
	}
	if *input == "" {
		log.Fatal("pctzengbp: --input is required")
	}
	if *geomPath == "" {
		log.Fatal("pctzengbp: --geometry is required")
	}

	g, err := geometry.LoadXML(*geomPath)
	if err != nil {
		log.Fatalf("pctzengbp: %v", err)
	}
	stack, err := projstack.ReadFile(*input)
	if err != nil {
		log.Fatalf("pctzengbp: %v", err)
	}
	if stack.Nview != g.N() {
		log.Fatalf("pctzengbp: stack has %d views but geometry has %d", stack.Nview, g.N())
	}

	origin := geom.Vec3{X: *originX, Y: *originY, Z: *originZ}
	spacingVec := geom.Vec3{X: *spacing, Y: *spacing, Z: *spacing}

	cosVol, sinVol := zengbp.CombineVolume(stack, g.GantryAngles(), origin, spacingVec)

	if err := cosVol.WriteFile(*cosOutput); err != nil {
		log.Fatalf("pctzengbp: write %q: %v", *cosOutput, err)
	}
	if err := sinVol.WriteFile(*sinOutput); err != nil {
		log.Fatalf("pctzengbp: write %q: %v", *sinOutput, err)
	}
	pctlog.Logf("pctzengbp: wrote %q and %q", *cosOutput, *sinOutput)
}
