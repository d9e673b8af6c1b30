// Package mlp implements the three most-likely-path evaluators used to
// estimate a proton's curved trajectory through the imaged object from its
// entry/exit position and direction: a third-order polynomial fit, an
// arbitrary-degree (0-5) polynomial fit over tabulated scattering-power
// coefficients, and the Schulte Bayesian estimator.
package mlp

import (
	"errors"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
)

// ErrUncertainUnsupported reports that an MLP variant does not support
// InitUncertain. No code in this package or in ppbin returns it: ppbin
// rejects tracker uncertainties with a non-Schulte MLP up front, with its
// own ErrTrackerUncertaintiesRequireSchulte.
var ErrUncertainUnsupported = errors.New("mlp: tracker-uncertainty initialisation is not supported by this variant")

// ErrNotImplemented is returned by EvaluateError implementations that do
// not provide a covariance estimate.
var ErrNotImplemented = errors.New("mlp: EvaluateError is not implemented for this variant")

// MLP is the contract shared by all three evaluators: given entry/exit
// position and direction, Init fixes the trajectory parameters; Evaluate
// samples the fitted curve (and its tangent) at a depth u along the beam
// axis, u in [pIn.Z, pOut.Z].
type MLP interface {
	// Init stores the parameters of one proton's trajectory. dIn/dOut are
	// taken pre-normalised so that their Z component is 1 (i.e. X/Y hold
	// dx/dz, dy/dz), matching the convention used by the proton-pair
	// binners upstream.
	Init(posIn, posOut, dirIn, dirOut geom.Vec3) error

	// Evaluate returns the fitted (x,y) and tangent (dx,dy) at depth u.
	// Polynomial and Schulte report the tangent as atan(dx/dz) (the
	// angle-space state variable their Bayesian combination operates in);
	// ThirdOrder reports the raw slope dx/dz.
	Evaluate(u float64) (x, y, dx, dy float64)

	// CanBeVectorised reports whether EvaluateBatch is more than the
	// naive per-sample loop; PPBin uses it purely as a dispatch hint, both
	// paths are always correct.
	CanBeVectorised() bool
}

// BatchEvaluator is implemented by MLP variants that can evaluate many
// depths in one call more efficiently than a per-sample loop.
type BatchEvaluator interface {
	EvaluateBatch(us []float64) (xs, ys []float64)
}

// ErrorEvaluator is implemented by MLP variants that can report the 2x2
// positional covariance at a given depth (Schulte only).
type ErrorEvaluator interface {
	EvaluateError(u float64) (geom.Mat2, error)
}

// UncertainInitializer is implemented by MLP variants that can fold tracker
// position resolution, pair spacing and upstream material budget into the
// trajectory estimate (Schulte only).
type UncertainInitializer interface {
	InitUncertain(posIn, posOut, dirIn, dirOut geom.Vec3, distEntry, distExit, trackerRes, pairSpacing, materialBudget float64) error
}

// EvaluateBatch evaluates mlp at each depth in us, using the batch path
// when the concrete type supports it and falling back to the scalar loop
// otherwise. ppbin does not call it; it makes the same BatchEvaluator and
// CanBeVectorised check inline.
func EvaluateBatch(m MLP, us []float64) (xs, ys []float64) {
	if be, ok := m.(BatchEvaluator); ok && m.CanBeVectorised() {
		return be.EvaluateBatch(us)
	}
	xs = make([]float64, len(us))
	ys = make([]float64, len(us))
	for i, u := range us {
		x, y, _, _ := m.Evaluate(u)
		xs[i] = x
		ys[i] = y
	}
	return xs, ys
}
