// Package fdk composes PParker, PWeight, Ramp and DDBP into the
// Feldkamp-Davis-Kress filtered-backprojection pipeline. The composition
// is an explicit state-machine driver loop over views, replacing the
// upstream disconnect/reconnect pipeline-framework trick: each view is
// processed as PreFilter -> Filter -> BackProject before advancing.
package fdk

import (
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/velocity.report/internal/pct/ddbp"
	"github.com/banshee-data/velocity.report/internal/pct/geometry"
	"github.com/banshee-data/velocity.report/internal/pct/pctlog"
	"github.com/banshee-data/velocity.report/internal/pct/pparker"
	"github.com/banshee-data/velocity.report/internal/pct/projstack"
	"github.com/banshee-data/velocity.report/internal/pct/pweight"
	"github.com/banshee-data/velocity.report/internal/pct/ramp"
	"github.com/banshee-data/velocity.report/internal/pct/volume"
)

// State names the driver's current pipeline stage, logged against the run
// ID for tracing a long-running reconstruction.
type State int

const (
	Idle State = iota
	PreFilter
	Filter
	BackProject
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case PreFilter:
		return "PreFilter"
	case Filter:
		return "Filter"
	case BackProject:
		return "BackProject"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// maxThreads caps the FDK application's worker count at 8 historically, to
// limit memory footprint; it is a tunable, not a correctness property.
const maxThreads = 8

// Config bundles the weighting and filtering knobs read from the CLI
// surface.
type Config struct {
	Ramp ramp.Config
	// Threads overrides the worker cap; <=0 uses min(8, GOMAXPROCS).
	Threads int
}

func threadCount(cfg Config) int {
	if cfg.Threads > 0 {
		if cfg.Threads > maxThreads {
			return maxThreads
		}
		return cfg.Threads
	}
	n := runtime.GOMAXPROCS(0)
	if n > maxThreads {
		return maxThreads
	}
	return n
}

// Run drives the full pipeline over every view of stack, accumulating into
// vol, and returns vol. Within a view, PreFilter+Filter for each slice are
// independent and run across a bounded worker pool; BackProject is run
// serially per slice afterwards, since DDBP reuses the evolving volume as
// its accumulation target and views themselves are strictly ordered.
func Run(g *geometry.Geometry, stack *projstack.Stack, vol *volume.Volume, cfg Config) (*volume.Volume, error) {
	runID := uuid.New()
	threads := threadCount(cfg)
	pctlog.Logf("fdk[%s]: starting run, %d views, %d slices, %d worker threads", runID, stack.Nview, stack.Nslice, threads)

	weights := pweight.NewWeights(g)
	state := Idle

	for view := 0; view < stack.Nview; view++ {
		state = PreFilter
		pctlog.Logf("fdk[%s]: view %d: %s", runID, view, state)
		runBounded(threads, stack.Nslice, func(slice int) {
			pparker.Apply(g, stack, slice, view)
			weights.Apply(g, stack, slice, view)
		})

		state = Filter
		pctlog.Logf("fdk[%s]: view %d: %s", runID, view, state)
		runBounded(threads, stack.Nslice, func(slice int) {
			ramp.Apply(stack, slice, view, cfg.Ramp)
		})

		state = BackProject
		pctlog.Logf("fdk[%s]: view %d: %s", runID, view, state)
		for slice := 0; slice < stack.Nslice; slice++ {
			ddbp.BackprojectView(vol, stack, g, slice, view)
		}
	}

	state = Done
	pctlog.Logf("fdk[%s]: %s", runID, state)
	return vol, nil
}

// runBounded runs fn(0..n-1) across at most workers goroutines.
func runBounded(workers, n int, fn func(i int)) {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}
