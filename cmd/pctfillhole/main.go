// Command pctfillhole replaces sentinel-valued voxels in a reconstructed
// volume with the mean of their non-sentinel neighbours.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/banshee-data/velocity.report/internal/pct/holefill"
	"github.com/banshee-data/velocity.report/internal/pct/pctlog"
	"github.com/banshee-data/velocity.report/internal/pct/volume"
	"github.com/banshee-data/velocity.report/internal/version"
)

func main() {
	input := flag.String("input", "", "input volume file (required)")
	output := flag.String("output", "", "output volume file (defaults to overwriting --input)")
	sentinel := flag.Float64("sentinel", 0, "sentinel voxel value to replace")
	verbose := flag.Bool("verbose", false, "enable verbose diagnostic logging")
	versionFlag := flag.Bool("version", false, "print version information and exit")
	versionShort := flag.Bool("v", false, "print version information and exit (shorthand)")

	flag.Parse()

	if *versionFlag || *versionShort {
		fmt.Printf("pctfillhole v%s (git SHA: %s)\n", version.Version, version.GitSHA)
		return
	}

	if !*verbose {
		pctlog.SetLogger(func(string, ...interface{}) {})
	}
	if *input == "" {
		log.Fatal("pctfillhole: --input is required")
	}
	out := *output
	if out == "" {
		out = *input
	}

	v, err := volume.ReadFile(*input)
	if err != nil {
		log.Fatalf("pctfillhole: %v", err)
	}

	filled := holefill.Fill(v, float32(*sentinel))

	if err := filled.WriteFile(out); err != nil {
		log.Fatalf("pctfillhole: write %q: %v", out, err)
	}
	pctlog.Logf("pctfillhole: wrote %q", out)
}
