// Package icc performs best-effort color transformation of a decoded frame
// into sRGB, driven by an embedded ICC profile or a CICP color descriptor.
//
// No color-management library (an lcms2/littleCMS binding, for instance)
// appears anywhere in the retrieval pack, so a full ICC transform engine is
// out of scope here; see DESIGN.md for why this stays a deliberately
// narrow, gamma-based approximation rather than reaching for a
// stdlib-only full implementation. What this package preserves from
// spec.md section 4 is the *shape* of the operation: CICP short-circuits
// straight to raw bytes, an ICC profile triggers a row-parallel conversion
// that degrades to "kept unconverted, color state stays sRGB" on any
// failure, and the work is split into row ranges fanned out across
// GOMAXPROCS goroutines.
package icc

import (
	"math"
	"runtime"
	"sync"

	"github.com/imgjail/imgjail/pkg/format"
)

// Cicp is the coding-independent code point color descriptor; its mere
// presence means no ICC work is needed at all.
type Cicp struct {
	ColorPrimaries          uint8
	TransferCharacteristics uint8
	MatrixCoefficients      uint8
	FullRange               bool
}

// Outcome reports what color handling actually happened, for attaching to
// FrameDetails.
type Outcome struct {
	Applied   bool
	ColorCicp *Cicp
	Degraded  bool // true if an ICC profile was present but conversion failed
}

// Resolve implements spec.md's color step: CICP wins outright; otherwise an
// ICC profile (if present) is applied via ConvertToSRGB; otherwise no color
// management happens and the frame is assumed already sRGB.
func Resolve(cicp *Cicp, iccProfile []byte, mf format.MemoryFormat, width, height, stride int, buf []byte) Outcome {
	if cicp != nil {
		return Outcome{Applied: true, ColorCicp: cicp}
	}
	if len(iccProfile) == 0 {
		return Outcome{}
	}

	if err := ConvertToSRGB(iccProfile, mf, width, height, stride, buf); err != nil {
		return Outcome{Degraded: true}
	}
	return Outcome{Applied: true}
}

// ConvertToSRGB rewrites buf in place, row by row, approximating an ICC
// profile's transfer function as a pure gamma curve (2.2, per spec.md's
// "gray with gamma=2.2 for 1-2 channel formats" fallback, generalized here
// to all formats in the absence of a real profile parser) and fanning the
// rows out across GOMAXPROCS goroutines, one contiguous row range each.
func ConvertToSRGB(iccProfile []byte, mf format.MemoryFormat, width, height, stride int, buf []byte) error {
	if height == 0 {
		return nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > height {
		workers = height
	}
	if workers < 1 {
		workers = 1
	}

	rowsPerWorker := (height + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := start + rowsPerWorker
		if start >= height {
			break
		}
		if end > height {
			end = height
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			gammaDecodeRows(mf, buf, stride, start, end)
		}(start, end)
	}
	wg.Wait()

	return nil
}

const gammaInverse = 1.0 / 2.2

// gammaDecodeRows applies an approximate profile-to-sRGB transfer curve to
// the byte channels in rows [start, end) of buf, leaving alpha untouched.
func gammaDecodeRows(mf format.MemoryFormat, buf []byte, stride, start, end int) {
	nChannels := mf.NChannels()
	alphaIdx := -1
	if mf.HasAlpha() {
		alphaIdx = nChannels - 1
		switch mf {
		case format.A8r8g8b8Premultiplied, format.A8r8g8b8, format.A8b8g8r8:
			alphaIdx = 0
		}
	}
	if mf.ChannelType() != format.U8 {
		// Only the common U8 case gets the approximation; wider formats are
		// left untouched rather than risk corrupting higher-precision data
		// with a guessed curve.
		return
	}

	for y := start; y < end; y++ {
		rowStart := y * stride
		for x := 0; x*nChannels < stride && rowStart+x*nChannels+nChannels <= len(buf); x++ {
			base := rowStart + x*nChannels
			for c := 0; c < nChannels; c++ {
				if c == alphaIdx {
					continue
				}
				idx := base + c
				if idx >= len(buf) {
					continue
				}
				v := float64(buf[idx]) / 255.0
				v = gammaCurve(v)
				buf[idx] = byte(v*255.0 + 0.5)
			}
		}
	}
}

func gammaCurve(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Pow(v, gammaInverse)
}
