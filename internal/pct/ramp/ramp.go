// Package ramp implements the ramp (Ram-Lak) filter used by FDK
// reconstruction: a 1D frequency-domain |f| filter applied along the
// detector's u axis of each row, with zero-padding and a raised-cosine
// (Hann) apodization window.
package ramp

import (
	"math"

	"github.com/banshee-data/velocity.report/internal/pct/projstack"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Config selects padding and apodization.
type Config struct {
	// Pad is the zero-padding factor applied before the FFT; 2 doubles
	// the working length, matching the common truncation-artifact
	// mitigation.
	Pad float64
	// Hann is the cutoff fraction (0,1] of the Nyquist frequency past
	// which the Hann window rolls the response to zero; 1 disables the
	// u-axis cutoff.
	Hann float64
	// HannY applies the same cutoff along the v axis after the 1D ramp;
	// 1 disables it.
	HannY float64
}

func paddedLength(n int, pad float64) int {
	l := int(math.Ceil(float64(n) * pad))
	// Round up to an even length; gonum's real FFT does not require a
	// power of two but an even length keeps the Hermitian spectrum tidy.
	if l%2 != 0 {
		l++
	}
	if l < n {
		l = n
	}
	return l
}

func hannWindow(n int, cutoff float64) []float64 {
	w := make([]float64, n/2+1)
	if cutoff <= 0 {
		cutoff = 1
	}
	cutoffBin := cutoff * float64(n/2)
	for k := range w {
		freq := float64(k)
		if freq > cutoffBin {
			w[k] = 0
			continue
		}
		w[k] = 0.5 * (1 + math.Cos(math.Pi*freq/cutoffBin))
	}
	return w
}

func rampRow(row []float64, cfg Config) []float64 {
	n := len(row)
	padded := paddedLength(n, cfg.Pad)
	buf := make([]float64, padded)
	copy(buf, row)

	fft := fourier.NewFFT(padded)
	spectrum := fft.Coefficients(nil, buf)

	var win []float64
	if cfg.Hann > 0 && cfg.Hann < 1 {
		win = hannWindow(padded, cfg.Hann)
	}
	nyquist := padded / 2
	for k := range spectrum {
		freq := k
		if freq > nyquist {
			freq = padded - freq
		}
		rampGain := float64(freq) / float64(nyquist)
		w := 1.0
		if freq < len(win) {
			w = win[freq]
		}
		spectrum[k] *= complex(rampGain*w, 0)
	}

	out := fft.Sequence(nil, spectrum)
	result := make([]float64, n)
	copy(result, out[:n])
	return result
}

// Apply filters every u-row of the given (slice,view) panel of s in place.
// When cfg.HannY is set (<1), the result is additionally apodized along v
// by the same Hann window shape: each u-column is Fourier transformed, its
// spectrum multiplied by the window, and transformed back.
func Apply(s *projstack.Stack, slice, view int, cfg Config) {
	row := make([]float64, s.Nu)
	for vi := 0; vi < s.Nv; vi++ {
		for ui := 0; ui < s.Nu; ui++ {
			val, _ := s.At(ui, vi, slice, view)
			row[ui] = float64(val)
		}
		filtered := rampRow(row, cfg)
		for ui := 0; ui < s.Nu; ui++ {
			s.Set(ui, vi, slice, view, float32(filtered[ui]))
		}
	}
	if cfg.HannY > 0 && cfg.HannY < 1 {
		applyHannY(s, slice, view, cfg.HannY)
	}
}

func applyHannY(s *projstack.Stack, slice, view int, cutoff float64) {
	col := make([]float64, s.Nv)
	for ui := 0; ui < s.Nu; ui++ {
		for vi := 0; vi < s.Nv; vi++ {
			val, _ := s.At(ui, vi, slice, view)
			col[vi] = float64(val)
		}
		n := len(col)
		fft := fourier.NewFFT(n)
		spectrum := fft.Coefficients(nil, col)
		win := hannWindow(n, cutoff)
		nyquist := n / 2
		for k := range spectrum {
			freq := k
			if freq > nyquist {
				freq = n - freq
			}
			w := 1.0
			if freq < len(win) {
				w = win[freq]
			}
			spectrum[k] *= complex(w, 0)
		}
		out := fft.Sequence(nil, spectrum)
		for vi := 0; vi < s.Nv; vi++ {
			s.Set(ui, vi, slice, view, float32(out[vi]))
		}
	}
}
