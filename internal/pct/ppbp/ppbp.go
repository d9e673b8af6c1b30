// Package ppbp implements the proton-pair-to-volume direct backprojector:
// the same proton ingestion and MLP machinery as ppbin, but accumulating
// straight into a reconstruction Volume instead of a projection stack.
package ppbp

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/banshee-data/velocity.report/internal/pct/energy"
	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"github.com/banshee-data/velocity.report/internal/pct/mlp"
	"github.com/banshee-data/velocity.report/internal/pct/protonio"
	"github.com/banshee-data/velocity.report/internal/pct/volume"
)

// Config mirrors ppbin.Config's MLP selection and physics inputs, minus
// the projection-grid-specific fields.
type Config struct {
	MLP        string
	PolyDegree int

	QuadricIn, QuadricOut *geom.Quadric
	Converter             energy.Converter

	// DisableRotation skips applying the view's gantry rotation when
	// projecting samples into the volume frame, binning directly in
	// source coordinates instead.
	DisableRotation bool
	ViewAngle       float64

	Workers int
}

func newMLPFor(kind string, degree int) (mlp.MLP, error) {
	switch kind {
	case "schulte":
		return mlp.NewSchulte(), nil
	case "polynomial", "krah":
		return mlp.NewPolynomial(degree), nil
	case "adaptive":
		return mlp.NewPolynomial(2), nil
	case "flexible":
		return mlp.NewPolynomial(mlp.MaxPolynomialDegree()), nil
	default:
		return nil, fmt.Errorf("ppbp: unknown mlp kind %q", kind)
	}
}

// Backproject accumulates records directly into v and a matching count
// volume, one MLP evaluation per z-plane of v.
func Backproject(records []protonio.Record, v *volume.Volume, cfg Config) (*volume.Volume, error) {
	if _, err := newMLPFor(cfg.MLP, cfg.PolyDegree); err != nil {
		return nil, err
	}
	count := volume.New(v.Origin, v.Spacing, v.Nx, v.Ny, v.Nz)

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(records) && len(records) > 0 {
		workers = len(records)
	}
	if workers < 1 {
		workers = 1
	}

	shadowValues := make([][]float32, workers)
	shadowCounts := make([][]float32, workers)
	n := v.Nx * v.Ny * v.Nz
	for i := range shadowValues {
		shadowValues[i] = make([]float32, n)
		shadowCounts[i] = make([]float32, n)
	}

	chunk := (len(records) + workers - 1) / workers
	if chunk == 0 {
		chunk = 1
	}

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if lo >= len(records) {
			break
		}
		if hi > len(records) {
			hi = len(records)
		}
		wg.Add(1)
		go func(workerID int, recs []protonio.Record) {
			defer wg.Done()
			m, err := newMLPFor(cfg.MLP, cfg.PolyDegree)
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				return
			}
			for _, rec := range recs {
				if err := backprojectOne(rec, v, cfg, m, shadowValues[workerID], shadowCounts[workerID]); err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
					return
				}
			}
		}(w, records[lo:hi])
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	for w := 0; w < workers; w++ {
		for i := 0; i < n; i++ {
			v.Data[i] += shadowValues[w][i]
			count.Data[i] += shadowCounts[w][i]
		}
	}
	return count, nil
}

func backprojectOne(rec protonio.Record, v *volume.Volume, cfg Config, m mlp.MLP, valueOut, countOut []float32) error {
	if rec.PIn.Z >= rec.POut.Z {
		return fmt.Errorf("ppbp: proton record has p_in.z (%v) >= p_out.z (%v)", rec.PIn.Z, rec.POut.Z)
	}
	if rec.DIn.Z < 0 {
		return fmt.Errorf("ppbp: proton record has d_in.z < 0 (%v)", rec.DIn.Z)
	}

	var value float64
	if rec.EIn == 0 {
		value = rec.EOut
	} else if cfg.Converter != nil {
		value = cfg.Converter.Value(rec.EOut, rec.EIn)
	}

	pSIn, pSOut := rec.PIn, rec.POut
	if cfg.QuadricIn != nil {
		qOut := cfg.QuadricOut
		if qOut == nil {
			qOut = cfg.QuadricIn
		}
		if p, ok := boundedPoint(rec.PIn, rec.DIn, cfg.QuadricIn, rec.PIn.Z, rec.POut.Z); ok {
			pSIn = p
		}
		if p, ok := boundedPoint(rec.POut, rec.DOut, qOut, rec.PIn.Z, rec.POut.Z); ok {
			pSOut = p
		}
	}

	dIn := geom.Vec3{X: rec.DIn.X / rec.DIn.Z, Y: rec.DIn.Y / rec.DIn.Z, Z: 1}
	dOut := geom.Vec3{X: rec.DOut.X / rec.DOut.Z, Y: rec.DOut.Y / rec.DOut.Z, Z: 1}
	if err := m.Init(pSIn, pSOut, dIn, dOut); err != nil {
		return fmt.Errorf("ppbp: Init: %w", err)
	}
	length := pSOut.Z - pSIn.Z

	cosT, sinT := math.Cos(cfg.ViewAngle), math.Sin(cfg.ViewAngle)

	for k := 0; k < v.Nz; k++ {
		z := v.Origin.Z + v.Spacing.Z*float64(k)
		u := z - pSIn.Z
		var x, y float64
		switch {
		case u < 0:
			x = pSIn.X + dIn.X*u
			y = pSIn.Y + dIn.Y*u
		case u > length:
			dz := u - length
			x = pSOut.X + dOut.X*dz
			y = pSOut.Y + dOut.Y*dz
		default:
			x, y, _, _ = m.Evaluate(u)
		}

		if !cfg.DisableRotation {
			x, y = x*cosT-y*sinT, x*sinT+y*cosT
		}

		i := int(math.Round((x - v.Origin.X) / v.Spacing.X))
		j := int(math.Round((y - v.Origin.Y) / v.Spacing.Y))
		if i < 0 || i >= v.Nx || j < 0 || j >= v.Ny {
			continue
		}
		idx := (k*v.Ny+j)*v.Nx + i
		valueOut[idx] += float32(value)
		countOut[idx]++
	}
	return nil
}

func boundedPoint(p, d geom.Vec3, q *geom.Quadric, zLo, zHi float64) (geom.Vec3, bool) {
	near, far, ok := q.IsIntersectedByRay(p, d)
	if !ok {
		return geom.Vec3{}, false
	}
	for _, t := range []float64{near, far} {
		cand := p.Add(d.Scale(t))
		if cand.Z >= zLo && cand.Z <= zHi {
			return cand, true
		}
	}
	return geom.Vec3{}, false
}
