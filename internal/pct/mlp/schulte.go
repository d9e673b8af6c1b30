package mlp

import (
	"math"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
)

// highlandX0 is the radiation length of water in millimetres. InitUncertain
// does not use it: its materialBudget argument is already expressed in
// radiation lengths (thickness/X0).
const highlandX0 = 360.8

// Schulte is the Bayesian most-likely-path estimator: it combines the
// entry and exit trajectory measurements through the same polynomial
// scattering-power fit as Polynomial (held fixed at the full tabulated
// degree), and can additionally fold tracker position resolution, pair
// spacing and upstream material budget into the entry/exit uncertainty via
// InitUncertain.
type Schulte struct {
	length            float64
	sx0, sx2          geom.Vec2
	sy0, sy2          geom.Vec2
	sigmaIn, sigmaOut geom.Mat2
	uncertain         bool
}

// NewSchulte returns a Schulte MLP with no tracker uncertainty folded in;
// call InitUncertain instead of Init to enable that.
func NewSchulte() *Schulte { return &Schulte{} }

func (m *Schulte) scatteringPower(u float64) float64 {
	return polynomialScatteringPower(maxPolynomialDegree, u)
}

// Init fixes the entry/exit states with no additional boundary uncertainty.
// The state vector's angle component is atan(dx/dz) (dirIn/dirOut carry
// dx/dz, dy/dz with dz implicitly 1), matching the small-angle state space
// the Bayesian combination operates in; Evaluate returns that same
// atan-angle as its tangent, not the raw slope.
func (m *Schulte) Init(posIn, posOut, dirIn, dirOut geom.Vec3) error {
	m.length = posOut.Z - posIn.Z
	m.sx0 = geom.Vec2{X: posIn.X, Y: math.Atan(dirIn.X)}
	m.sx2 = geom.Vec2{X: posOut.X, Y: math.Atan(dirOut.X)}
	m.sy0 = geom.Vec2{X: posIn.Y, Y: math.Atan(dirIn.Y)}
	m.sy2 = geom.Vec2{X: posOut.Y, Y: math.Atan(dirOut.Y)}
	m.sigmaIn = geom.Mat2{}
	m.sigmaOut = geom.Mat2{}
	m.uncertain = false
	return nil
}

// InitUncertain fixes the entry/exit states and folds tracker position
// resolution trackerRes, the longitudinal spacing between a tracker pair
// pairSpacing, and the upstream material budget materialBudget (radiation
// lengths) into additional position/angle uncertainty at the entry and
// exit planes, following the Highland approximation used by Schulte's
// original estimator.
func (m *Schulte) InitUncertain(posIn, posOut, dirIn, dirOut geom.Vec3, distEntry, distExit, trackerRes, pairSpacing, materialBudget float64) error {
	if err := m.Init(posIn, posOut, dirIn, dirOut); err != nil {
		return err
	}
	m.uncertain = true

	// Position variance from two tracker planes of resolution trackerRes
	// spaced pairSpacing apart, propagated back to the image plane over
	// distEntry/distExit; angle variance from the same planes plus the
	// Highland multiple-scattering budget in materialBudget radiation
	// lengths.
	posVar := 2 * trackerRes * trackerRes
	angleVar := 2 * trackerRes * trackerRes / (pairSpacing * pairSpacing)
	if materialBudget > 0 {
		theta0 := highlandTheta0(materialBudget)
		angleVar += theta0 * theta0
	}
	// sigmaIn is S_in Sigma_in S_in^T: the tracker-plane measurement
	// covariance propagated forward to the entry image plane by the drift
	// matrix S_in = [[1,distEntry],[0,1]]. stateAndCovarianceAt conjugates
	// it by R0 to add its C1 contribution.
	m.sigmaIn = geom.Mat2{A: posVar + distEntry*distEntry*angleVar, B: distEntry * angleVar, C: distEntry * angleVar, D: angleVar}
	// sigmaOut is S_out^-1 Sigma_out S_out^-T: the tracker-plane
	// measurement covariance propagated backward to the exit image plane
	// by the inverse drift matrix S_out^-1 = [[1,-distExit],[0,1]].
	// stateAndCovarianceAt adds it to Sigma2 unconjugated -- mostLikely's
	// own R1-conjugation of the inverted sum already supplies the
	// R1^-1(.)R1^T-1 transport that C2 requires.
	m.sigmaOut = geom.Mat2{A: posVar + distExit*distExit*angleVar, B: -distExit * angleVar, C: -distExit * angleVar, D: angleVar}
	return nil
}

// highlandTheta0 returns the Highland-approximation RMS scattering angle
// for a track traversing materialBudget radiation lengths of water
// (highlandX0 already folded into materialBudget by the caller as
// thickness/X0).
func highlandTheta0(materialBudget float64) float64 {
	// Highland's formula without the log correction term: adequate for
	// the thin upstream trackers this budget represents.
	const highlandConst = 13.6e-3 // radians * GeV, at beta*p ~ 1 normalisation upstream
	_ = highlandX0
	return highlandConst * math.Sqrt(materialBudget)
}

func (m *Schulte) stateAndCovarianceAt(u float64, s0, s2 geom.Vec2, sigmaIn, sigmaOut geom.Mat2) (geom.Vec2, geom.Mat2) {
	if u <= 0 {
		return s0, sigmaIn
	}
	if u >= m.length {
		return s2, sigmaOut
	}
	p := m.scatteringPower
	sigma1 := scatterCovariance(p, 0, u)
	sigma2 := scatterCovariance(p, u, m.length)
	r0 := driftMatrix(u)
	r1 := driftMatrix(m.length - u)
	if m.uncertain {
		sigma1 = sigma1.Add(r0.Mul(sigmaIn).Mul(r0.Transpose()))
		// sigmaOut already holds S_out^-1 Sigma_out S_out^-T; adding it
		// unconjugated here lets mostLikely's R1-conjugation of the
		// inverted sum supply C2's R1^-1(.)R1^T-1 transport, rather than
		// wrapping it with r1/r1.Transpose twice over.
		sigma2 = sigma2.Add(sigmaOut)
	}
	return mostLikely(s0, s2, sigma1, sigma2, r0, r1)
}

// Evaluate returns the fitted (x,y) position and (dx,dy) tangent at depth u.
func (m *Schulte) Evaluate(u float64) (x, y, dx, dy float64) {
	sx, _ := m.stateAndCovarianceAt(u, m.sx0, m.sx2, m.sigmaIn, m.sigmaOut)
	sy, _ := m.stateAndCovarianceAt(u, m.sy0, m.sy2, m.sigmaIn, m.sigmaOut)
	return sx.X, sy.X, sx.Y, sy.Y
}

// EvaluateError returns 2*(Sigma1 + R1^T Sigma2 R1)^-1, the literal
// positional-error estimate: the bare (non-uncertainty-augmented)
// scattering covariances between the entry plane and u, and u and the exit
// plane, summed after a single R1 conjugation and inverted once. This is
// not mostLikely's fused-estimate posterior (Sigma1^-1 + R1^T Sigma2^-1
// R1)^-1, which is a different matrix in general.
func (m *Schulte) EvaluateError(u float64) (geom.Mat2, error) {
	p := m.scatteringPower
	sigma1 := scatterCovariance(p, 0, u)
	sigma2 := scatterCovariance(p, u, m.length)
	r1 := driftMatrix(m.length - u)
	sum := sigma1.Add(r1.Transpose().Mul(sigma2).Mul(r1))
	return sum.Inverse().Scale(2), nil
}

// CanBeVectorised reports false: each depth requires its own quadrature.
func (m *Schulte) CanBeVectorised() bool { return false }
