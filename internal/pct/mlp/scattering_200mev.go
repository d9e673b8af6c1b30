//go:build mlp200mev

package mlp

// bmTables is the 200 MeV counterpart of the default 180 MeV table in
// scattering.go, documented in the original source as a commented-out
// alternative. Select it at build time with -tags mlp200mev.
var bmTables = [6][]float64{
	{9.496308e-06},
	{-1.055104e-07, 8.365792e-08},
	{6.218903e-06, -8.183818e-08, 7.209602e-10},
	{2.522468e-06, 1.119469e-07, -1.390729e-09, 6.132850e-12},
	{4.562500e-06, -6.670635e-08, 2.116152e-09, -1.764070e-11, 5.178304e-14},
	{3.474283e-06, 7.665043e-08, -2.265353e-09, 3.330223e-11, -1.979538e-13, 4.351773e-16},
}
