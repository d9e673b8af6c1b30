// Command pctparkerweights applies Parker short-scan weighting and
// divergence weighting to an existing projection stack, in place.
package main

import (
	"flag"
	"fmt"
	"log"
	"runtime"

	"github.com/banshee-data/velocity.report/internal/pct/geometry"
	"github.com/banshee-data/velocity.report/internal/pct/pctlog"
	"github.com/banshee-data/velocity.report/internal/pct/pparker"
	"github.com/banshee-data/velocity.report/internal/pct/projstack"
	"github.com/banshee-data/velocity.report/internal/pct/pweight"
	"github.com/banshee-data/velocity.report/internal/version"
)

func main() {
	input := flag.String("input", "", "input projection stack file (required)")
	output := flag.String("output", "", "output projection stack file (defaults to overwriting --input)")
	geomPath := flag.String("geometry", "", "geometry XML description file (required)")
	divisions := flag.Int("divisions", 0, "number of concurrent worker streams; <=0 uses GOMAXPROCS")
	verbose := flag.Bool("verbose", false, "enable verbose diagnostic logging")
	versionFlag := flag.Bool("version", false, "print version information and exit")
	versionShort := flag.Bool("v", false, "print version information and exit (shorthand)")

	flag.Parse()

	if *versionFlag || *versionShort {
		fmt.Printf("pctparkerweights v%s (git SHA: %s)\n", version.Version, version.GitSHA)
		return
	}

	if !*verbose {
		pctlog.SetLogger(func(string, ...interface{}) {})
	}
	if *input == "" {
		log.Fatal("pctparkerweights: --input is required")
	}
	if *geomPath == "" {
		log.Fatal("pctparkerweights: --geometry is required")
	}
	out := *output
	if out == "" {
		out = *input
	}

	g, err := geometry.LoadXML(*geomPath)
	if err != nil {
		log.Fatalf("pctparkerweights: %v", err)
	}
	stack, err := projstack.ReadFile(*input)
	if err != nil {
		log.Fatalf("pctparkerweights: %v", err)
	}

	weights := pweight.NewWeights(g)
	runBounded(*divisions, stack.Nview, func(view int) {
		for slice := 0; slice < stack.Nslice; slice++ {
			pparker.Apply(g, stack, slice, view)
			weights.Apply(g, stack, slice, view)
		}
	})

	if err := stack.WriteFile(out); err != nil {
		log.Fatalf("pctparkerweights: write %q: %v", out, err)
	}
	pctlog.Logf("pctparkerweights: wrote %q", out)
}

// runBounded runs fn(0..n-1) across at most workers goroutines (GOMAXPROCS
// when workers<=0), matching the concurrency style used by the FDK driver.
func runBounded(workers, n int, fn func(i int)) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer func() { <-sem; done <- struct{}{} }()
			fn(i)
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}
}
