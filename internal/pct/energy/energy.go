// Package energy implements the energy-to-WEPL converter contract. The
// Bethe-Bloch physics that produces the underlying table is an external
// collaborator per the reconstruction spec; this package only consumes a
// precomputed, strictly-decreasing (E_out, E_in) -> WEPL lookup and
// interpolates it.
package energy

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Converter maps an (E_out, E_in) energy pair to a water-equivalent path
// length in millimetres. Implementations must be monotone: larger energy
// loss (E_in - E_out) maps to a larger WEPL.
type Converter interface {
	Value(eOut, eIn float64) float64
}

// Table is a Converter backed by a 1D strictly-decreasing lookup keyed by
// residual energy E_out, for a fixed incident energy E_in. This mirrors the
// assumed precomputed Bethe-Bloch inverse: WEPL(E_out, E_in) is built once
// per incident energy by integrating the stopping power backward from
// E_in, then inverted against E_out.
type Table struct {
	eIn       float64
	eOutDesc  []float64 // strictly decreasing
	weplAsc   []float64 // WEPL values matching eOutDesc, strictly increasing
	spline    interp.PiecewiseLinear
}

// NewTable builds a Table for a fixed incident energy eIn from paired
// (eOut, wepl) samples. Samples need not be pre-sorted; eOut must be
// strictly decreasing once sorted descending (guaranteed by a monotone
// Bethe-Bloch stopping power curve).
func NewTable(eIn float64, eOut, wepl []float64) (*Table, error) {
	if len(eOut) != len(wepl) || len(eOut) < 2 {
		return nil, fmt.Errorf("energy: need at least 2 matched (eOut,wepl) samples, got %d/%d", len(eOut), len(wepl))
	}

	idx := make([]int, len(eOut))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return eOut[idx[i]] < eOut[idx[j]] })

	ascEOut := make([]float64, len(eOut))
	ascWepl := make([]float64, len(eOut))
	for i, j := range idx {
		ascEOut[i] = eOut[j]
		ascWepl[i] = wepl[j]
	}
	for i := 1; i < len(ascEOut); i++ {
		if ascEOut[i] <= ascEOut[i-1] {
			return nil, fmt.Errorf("energy: eOut lookup is not strictly monotone at index %d", i)
		}
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(ascEOut, ascWepl); err != nil {
		return nil, fmt.Errorf("energy: fit piecewise linear: %w", err)
	}

	descEOut := make([]float64, len(ascEOut))
	ascWeplCopy := make([]float64, len(ascWepl))
	for i := range ascEOut {
		descEOut[len(ascEOut)-1-i] = ascEOut[i]
		ascWeplCopy[len(ascWepl)-1-i] = ascWepl[i]
	}

	return &Table{eIn: eIn, eOutDesc: descEOut, weplAsc: ascWeplCopy, spline: pl}, nil
}

// Value returns the interpolated WEPL for the given energy pair. eIn is
// ignored: the table is fixed to the incident energy it was built for, and
// eOut is clamped to the table's range. A variable-beam-energy setup
// (spec §6 --mlp flexible) would hold one Table per incident energy and
// dispatch on eIn upstream of this call.
func (t *Table) Value(eOut, eIn float64) float64 {
	_ = eIn
	lo, hi := t.eOutDesc[len(t.eOutDesc)-1], t.eOutDesc[0]
	if eOut < lo {
		eOut = lo
	}
	if eOut > hi {
		eOut = hi
	}
	return t.spline.Predict(eOut)
}

// Direct is a Converter that treats e_out as an already-computed WEPL value,
// used whenever a proton-pair record supplies e_in==0 (WEPL provided
// directly rather than as an energy pair).
type Direct struct{}

// Value returns eOut unchanged.
func (Direct) Value(eOut, eIn float64) float64 { return eOut }
