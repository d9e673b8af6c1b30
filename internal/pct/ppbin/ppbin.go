// Package ppbin implements the proton-pair-to-distance-driven-projection
// binner: it consumes a stream of proton pair records and, using a
// most-likely-path estimator, accumulates water-equivalent path length and
// count (and optionally scattering and noise statistics) into a divergent
// projection grid for one view.
package ppbin

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/banshee-data/velocity.report/internal/pct/energy"
	"github.com/banshee-data/velocity.report/internal/pct/geom"
	"github.com/banshee-data/velocity.report/internal/pct/mlp"
	"github.com/banshee-data/velocity.report/internal/pct/protonio"
	"gonum.org/v1/gonum/stat"
)

// MLPKind names the selectable MLP evaluator, matching the --mlp CLI flag.
type MLPKind string

// Selectable MLP evaluators. Krah is an alias for Polynomial (the
// arbitrary-degree fit is Krah's construction); Adaptive picks degree 2 as
// a reasonable default; Flexible additionally requires variable beam
// energy support and is only meaningful with an energy.Converter that
// varies by incident energy.
const (
	MLPSchulte    MLPKind = "schulte"
	MLPPolynomial MLPKind = "polynomial"
	MLPKrah       MLPKind = "krah"
	MLPAdaptive   MLPKind = "adaptive"
	MLPFlexible   MLPKind = "flexible"
)

// ErrUnknownMLP is returned for an unrecognised --mlp value.
var ErrUnknownMLP = errors.New("ppbin: unknown mlp kind")

// ErrTrackerUncertaintiesRequireSchulte is returned when
// TrackerUncertainties is requested with a non-Schulte MLP.
var ErrTrackerUncertaintiesRequireSchulte = errors.New("ppbin: tracker-uncertainties requires the schulte mlp")

// ErrVariableEnergyRequiresFlexible is returned when VariableBeamEnergy is
// requested with a WEPL-direct record under the "flexible" MLP.
var ErrVariableEnergyRequiresFlexible = errors.New("ppbin: variable beam energy is incompatible with wepl-direct input under the flexible mlp")

// Config selects the binning algorithm's behaviour.
type Config struct {
	MLP        MLPKind
	PolyDegree int

	// SourceDistance is the source-to-exit-plane distance used for the
	// divergence magnification zmag[k]; zero disables magnification.
	SourceDistance float64

	QuadricIn, QuadricOut *geom.Quadric

	Robust               bool
	ComputeScattering    bool
	ComputeNoise         bool
	TrackerUncertainties bool
	VariableBeamEnergy   bool

	TrackerResolution  float64
	TrackerPairSpacing float64
	MaterialBudget     float64

	Converter energy.Converter
	Workers   int
}

// Grid describes the output panel: a (u,v) lattice repeated over Nz depth
// slices aligned along the beam axis.
type Grid struct {
	Nu, Nv, Nz                   int
	OriginU, OriginV, OriginZ    float64
	SpacingU, SpacingV, SpacingZ float64
}

func (g Grid) zAt(k int) float64 { return g.OriginZ + g.SpacingZ*float64(k) }

// Result holds the accumulated, normalised per-voxel statistics. Each slice
// is sized Nu*Nv*Nz, indexed (k*Nv+v)*Nu+u.
type Result struct {
	Value        []float32
	Count        []float32
	Squared      []float32 // noise: MSE of the mean, when ComputeNoise
	Angle        []float32 // scattering variance per axis, when ComputeScattering
	SquaredAngle []float32 // unused once normalised; kept for parity with the accumulator's name
}

func newMLPFor(kind MLPKind, polyDegree int) (mlp.MLP, error) {
	switch kind {
	case MLPSchulte:
		return mlp.NewSchulte(), nil
	case MLPPolynomial, MLPKrah:
		return mlp.NewPolynomial(polyDegree), nil
	case MLPAdaptive:
		return mlp.NewPolynomial(2), nil
	case MLPFlexible:
		return mlp.NewPolynomial(mlp.MaxPolynomialDegree()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMLP, kind)
	}
}

func validate(cfg Config) error {
	if _, err := newMLPFor(cfg.MLP, cfg.PolyDegree); err != nil {
		return err
	}
	if cfg.TrackerUncertainties && cfg.MLP != MLPSchulte {
		return ErrTrackerUncertaintiesRequireSchulte
	}
	return nil
}

type shadow struct {
	value, count, squared, angle, squaredAngle []float32
}

func newShadow(n int, cfg Config) *shadow {
	s := &shadow{value: make([]float32, n), count: make([]float32, n)}
	if cfg.ComputeNoise {
		s.squared = make([]float32, n)
	}
	if cfg.ComputeScattering {
		s.angle = make([]float32, n)
		s.squaredAngle = make([]float32, n)
	}
	return s
}

// robustAngles holds, per voxel, the scattering angle magnitudes observed
// across all records that landed there, used by the robust-percentile
// path. It is the sole structure shared (and mutex-guarded) across
// workers, per the concurrency model's contended-resource note.
type robustAngles struct {
	mu    sync.Mutex
	byIdx map[int][]float64
}

func newRobustAngles() *robustAngles { return &robustAngles{byIdx: make(map[int][]float64)} }

func (r *robustAngles) push(idx int, mag float64) {
	r.mu.Lock()
	r.byIdx[idx] = append(r.byIdx[idx], mag)
	r.mu.Unlock()
}

// Bin accumulates records into grid according to cfg, using numWorkers
// goroutines (defaulting to the host's GOMAXPROCS when cfg.Workers<=0).
func Bin(records []protonio.Record, grid Grid, cfg Config) (*Result, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	n := grid.Nu * grid.Nv * grid.Nz
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

	shadows := make([]*shadow, workers)
	for i := range shadows {
		shadows[i] = newShadow(n, cfg)
	}
	robust := newRobustAngles()

	chunk := (len(records) + workers - 1) / workers
	if chunk == 0 {
		chunk = 1
	}

	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex
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
				if err := binOne(rec, grid, cfg, m, shadows[workerID], robust, workerID); err != nil {
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

	merged := newShadow(n, cfg)
	for _, s := range shadows {
		for i := 0; i < n; i++ {
			merged.value[i] += s.value[i]
			merged.count[i] += s.count[i]
			if cfg.ComputeNoise {
				merged.squared[i] += s.squared[i]
			}
			if cfg.ComputeScattering {
				merged.angle[i] += s.angle[i]
				merged.squaredAngle[i] += s.squaredAngle[i]
			}
		}
	}

	normalize(merged, n, cfg, robust)

	return &Result{
		Value: merged.value, Count: merged.count,
		Squared: merged.squared, Angle: merged.angle, SquaredAngle: merged.squaredAngle,
	}, nil
}

func binOne(rec protonio.Record, grid Grid, cfg Config, m mlp.MLP, s *shadow, robust *robustAngles, workerID int) error {
	if rec.PIn.Z >= rec.POut.Z {
		return fmt.Errorf("ppbin: proton record has p_in.z (%v) >= p_out.z (%v)", rec.PIn.Z, rec.POut.Z)
	}
	if rec.DIn.Z < 0 {
		return fmt.Errorf("ppbin: proton record has d_in.z < 0 (%v)", rec.DIn.Z)
	}
	if cfg.VariableBeamEnergy && cfg.MLP == MLPFlexible && rec.EIn == 0 {
		return ErrVariableEnergyRequiresFlexible
	}

	var angleX, angleY float64
	// The original implementation's robust-scattering branch is gated by
	// `!m_Robust || threadId==0`, a condition documented as possibly a
	// bug; it is preserved literally rather than "fixed".
	computeNonRobustScatter := cfg.ComputeScattering && (!cfg.Robust || workerID == 0)
	if computeNonRobustScatter || (cfg.ComputeScattering && cfg.Robust) {
		angleX = polarAngleXZ(rec.DIn, rec.DOut)
		angleY = polarAngleYZ(rec.DIn, rec.DOut)
	}

	var value float64
	if rec.EIn == 0 {
		value = rec.EOut
	} else if cfg.Converter != nil {
		value = cfg.Converter.Value(rec.EOut, rec.EIn)
	} else {
		value = energy.Direct{}.Value(rec.EOut, rec.EIn)
	}

	pSIn, pSOut := boundPair(rec, cfg.QuadricIn, cfg.QuadricOut)

	dIn := geom.Vec3{X: rec.DIn.X / rec.DIn.Z, Y: rec.DIn.Y / rec.DIn.Z, Z: 1}
	dOut := geom.Vec3{X: rec.DOut.X / rec.DOut.Z, Y: rec.DOut.Y / rec.DOut.Z, Z: 1}

	if tu, ok := m.(mlp.UncertainInitializer); ok && cfg.TrackerUncertainties {
		distEntry := pSIn.Z - rec.PIn.Z
		distExit := rec.POut.Z - pSOut.Z
		if err := tu.InitUncertain(pSIn, pSOut, dIn, dOut, distEntry, distExit, cfg.TrackerResolution, cfg.TrackerPairSpacing, cfg.MaterialBudget); err != nil {
			return fmt.Errorf("ppbin: InitUncertain: %w", err)
		}
	} else {
		if err := m.Init(pSIn, pSOut, dIn, dOut); err != nil {
			return fmt.Errorf("ppbin: Init: %w", err)
		}
	}

	us := make([]float64, grid.Nz)
	for k := 0; k < grid.Nz; k++ {
		us[k] = grid.zAt(k) - pSIn.Z
	}
	length := pSOut.Z - pSIn.Z

	xs := make([]float64, grid.Nz)
	ys := make([]float64, grid.Nz)
	for k, u := range us {
		switch {
		case u < 0:
			xs[k] = pSIn.X + dIn.X*u
			ys[k] = pSIn.Y + dIn.Y*u
		case u > length:
			dz := u - length
			xs[k] = pSOut.X + dOut.X*dz
			ys[k] = pSOut.Y + dOut.Y*dz
		default:
			x, y, _, _ := m.Evaluate(u)
			xs[k], ys[k] = x, y
		}
	}
	if be, ok := m.(mlp.BatchEvaluator); ok && m.CanBeVectorised() {
		var inner []float64
		for _, u := range us {
			if u >= 0 && u <= length {
				inner = append(inner, u)
			}
		}
		if len(inner) > 0 {
			bxs, bys := be.EvaluateBatch(inner)
			j := 0
			for k, u := range us {
				if u >= 0 && u <= length {
					xs[k], ys[k] = bxs[j], bys[j]
					j++
				}
			}
		}
	}

	for k := 0; k < grid.Nz; k++ {
		zmag := 1.0
		if cfg.SourceDistance != 0 {
			zPlaneOut := rec.POut.Z
			zmag = (zPlaneOut - cfg.SourceDistance) / (us[k] + pSIn.Z - cfg.SourceDistance)
		}
		uu := (xs[k]*zmag - grid.OriginU) / grid.SpacingU
		vv := (ys[k]*zmag - grid.OriginV) / grid.SpacingV
		ui := int(math.Round(uu))
		vi := int(math.Round(vv))
		if ui < 0 || ui >= grid.Nu || vi < 0 || vi >= grid.Nv {
			continue
		}
		idx := (k*grid.Nv+vi)*grid.Nu + ui
		s.value[idx] += float32(value)
		s.count[idx]++
		if cfg.ComputeNoise {
			s.squared[idx] += float32(value * value)
		}
		if cfg.ComputeScattering {
			if cfg.Robust {
				robust.push(idx, math.Hypot(angleX, angleY))
				if workerID == 0 {
					s.angle[idx] += float32(angleX + angleY)
					s.squaredAngle[idx] += float32(angleX*angleX + angleY*angleY)
				}
			} else {
				s.angle[idx] += float32(angleX + angleY)
				s.squaredAngle[idx] += float32(angleX*angleX + angleY*angleY)
			}
		}
	}
	return nil
}

func polarAngleXZ(dIn, dOut geom.Vec3) float64 {
	axIn := geom.Vec2{X: dIn.X, Y: dIn.Z}
	axOut := geom.Vec2{X: dOut.X, Y: dOut.Z}
	return polarAngle(axIn, axOut)
}

func polarAngleYZ(dIn, dOut geom.Vec3) float64 {
	ayIn := geom.Vec2{X: dIn.Y, Y: dIn.Z}
	ayOut := geom.Vec2{X: dOut.Y, Y: dOut.Z}
	return polarAngle(ayIn, ayOut)
}

func polarAngle(a, b geom.Vec2) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	cosTheta := a.Dot(b) / (na * nb)
	if cosTheta > 1 {
		cosTheta = 1
	}
	return math.Acos(cosTheta)
}

// boundPair intersects the entry and exit rays with the bounding quadrics
// to find the object-entry/exit points used to seed the MLP, falling back
// to the raw record endpoints when no quadric is supplied or no
// intersection exists.
func boundPair(rec protonio.Record, qIn, qOut *geom.Quadric) (pSIn, pSOut geom.Vec3) {
	pSIn, pSOut = rec.PIn, rec.POut
	if qOut == nil {
		qOut = qIn
	}
	if qIn != nil {
		if p, ok := boundedPoint(rec.PIn, rec.DIn, qIn, rec.PIn.Z, rec.POut.Z); ok {
			pSIn = p
		}
	}
	if qOut != nil {
		if p, ok := boundedPoint(rec.POut, rec.DOut, qOut, rec.PIn.Z, rec.POut.Z); ok {
			pSOut = p
		}
	}
	return
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

// normalize converts running sums into the normalised Result statistics
// described in §4.2: value/count means, noise as MSE-of-the-mean, and
// non-robust scattering variance per axis; in robust mode it overwrites
// Angle with the squared 1-sigma estimate derived from the 38.30th
// percentile of stored angle magnitudes.
func normalize(m *shadow, n int, cfg Config, robust *robustAngles) {
	for i := 0; i < n; i++ {
		if m.count[i] == 0 {
			continue
		}
		count := m.count[i]
		value := m.value[i] / count
		m.value[i] = value
		if cfg.ComputeNoise {
			meanSq := m.squared[i] / count
			variance := meanSq - value*value
			m.squared[i] = variance / count
		}
		if cfg.ComputeScattering && !cfg.Robust {
			m.angle[i] = m.squaredAngle[i] / (2 * count)
		}
	}
	if cfg.ComputeScattering && cfg.Robust {
		for idx, mags := range robust.byIdx {
			if len(mags) < 2 {
				m.angle[idx] = 0
				continue
			}
			sorted := append([]float64(nil), mags...)
			sort.Float64s(sorted)
			p := stat.Quantile(0.3830, stat.Empirical, sorted, nil)
			sigma1 := 2 * p
			m.angle[idx] = float32(sigma1 * sigma1)
		}
	}
}
