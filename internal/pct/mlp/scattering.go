//go:build !mlp200mev

package mlp

// bmTables holds, for each selectable polynomial degree N (0-5), the N+1
// tabulated coefficients of a 180 MeV beam's scattering power
// 1/(beta^2 p^2)(u) as a degree-N polynomial in depth u (mm) from the
// entry plane. Each degree is its own independent fit, not a truncation
// of the next: bm_2 is not bm_3 with a zeroed top coefficient.
//
// A commented 200 MeV set is documented in the original source but
// inactive; build with -tags mlp200mev to select it instead.
var bmTables = [6][]float64{
	{1.125895e-05},
	{2.221018e-07, 1.176787e-07},
	{7.256003e-06, -1.075769e-07, 1.200877e-09},
	{3.279817e-06, 1.475374e-07, -2.201247e-09, 1.209155e-11},
	{5.401888e-06, -7.991486e-08, 3.262799e-09, -3.323899e-11, 1.208325e-13},
	{4.307328e-06, 9.657939e-08, -3.338966e-09, 6.069645e-11, -4.427153e-13, 1.201749e-15},
}
