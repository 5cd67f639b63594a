package format

import "math"

// channelCodec reads/writes a single channel value, normalized to [0, 1],
// from/to its on-wire byte representation. Grounded on the ChannelValue
// trait in memory_format.rs (impls for u8/u16/f16/f32); this port folds f16
// into the f32 path using math.Float32-equivalent half-precision bit tricks
// rather than pulling in a dedicated half-float dependency, since the rest
// of the pack carries no f16 library and the spec treats f16 as an internal
// transport detail rather than a format callers construct directly.
type channelCodec struct {
	size      int
	decode    func(b []byte) float32
	encode    func(v float32, out []byte)
}

func codecFor(ct ChannelType) channelCodec {
	switch ct {
	case U8:
		return channelCodec{
			size: 1,
			decode: func(b []byte) float32 {
				return float32(b[0]) / float32(math.MaxUint8)
			},
			encode: func(v float32, out []byte) {
				out[0] = byte(math.Round(float64(v) * float64(math.MaxUint8)))
			},
		}
	case U16:
		return channelCodec{
			size: 2,
			decode: func(b []byte) float32 {
				u := uint16(b[0]) | uint16(b[1])<<8
				return float32(u) / float32(math.MaxUint16)
			},
			encode: func(v float32, out []byte) {
				u := uint16(math.Round(float64(v) * float64(math.MaxUint16)))
				out[0] = byte(u)
				out[1] = byte(u >> 8)
			},
		}
	case F16:
		return channelCodec{
			size: 2,
			decode: func(b []byte) float32 {
				return float16ToFloat32(uint16(b[0]) | uint16(b[1])<<8)
			},
			encode: func(v float32, out []byte) {
				u := float32ToFloat16(v)
				out[0] = byte(u)
				out[1] = byte(u >> 8)
			},
		}
	case F32:
		return channelCodec{
			size: 4,
			decode: func(b []byte) float32 {
				bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
				return math.Float32frombits(bits)
			},
			encode: func(v float32, out []byte) {
				bits := math.Float32bits(v)
				out[0] = byte(bits)
				out[1] = byte(bits >> 8)
				out[2] = byte(bits >> 16)
				out[3] = byte(bits >> 24)
			},
		}
	}
	panic("format: unknown channel type")
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func float16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	var bits uint32
	switch {
	case exp == 0 && frac == 0:
		bits = sign << 31
	case exp == 0x1f:
		bits = sign<<31 | 0xff<<23 | frac<<13
	case exp == 0:
		// subnormal half -> normalize
		e := -1
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		bits = sign<<31 | uint32(127-15+e+1)<<23 | frac<<13
	default:
		bits = sign<<31 | (exp-15+127)<<23 | frac<<13
	}
	return math.Float32frombits(bits)
}

func float32ToFloat16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	frac := bits & 0x7fffff

	switch {
	case exp <= 0:
		return sign
	case exp >= 0x1f:
		return sign | 0x7c00
	default:
		return sign | uint16(exp)<<10 | uint16(frac>>13)
	}
}

// Transform converts a single pixel from srcFormat's byte encoding in src to
// targetFormat's byte encoding written into target. Both slices must be
// exactly NBytes() long for their respective format. Mirrors
// MemoryFormat::transform / to_f32 / from_f32 in memory_format.rs: read into
// a normalized [R,G,B,A] float32 vector (un-premultiplying if the source is
// premultiplied), then write it back out (re-premultiplying if the target
// format requires it).
func Transform(srcFormat MemoryFormat, src []byte, targetFormat MemoryFormat, target []byte) {
	rgba := ToF32(srcFormat, src)
	FromF32(rgba, targetFormat, target)
}

// ToF32 decodes a single pixel in srcFormat into normalized [R, G, B, A].
func ToF32(srcFormat MemoryFormat, src []byte) [4]float32 {
	codec := codecFor(srcFormat.ChannelType())
	def := srcFormat.sourceDefinition()

	channels := make([]float32, srcFormat.NChannels())
	for i := range channels {
		channels[i] = codec.decode(src[i*codec.size:])
	}

	var rgba [4]float32
	for n, s := range def {
		switch s {
		case srcC0:
			rgba[n] = channels[0]
		case srcC1:
			rgba[n] = channels[1]
		case srcC2:
			rgba[n] = channels[2]
		case srcC3:
			rgba[n] = channels[3]
		case srcOpaque:
			rgba[n] = 1
		}
	}

	if srcFormat.IsPremultiplied() && rgba[3] > 0 {
		rgba[0] /= rgba[3]
		rgba[1] /= rgba[3]
		rgba[2] /= rgba[3]
	}
	return rgba
}

// FromF32 encodes a normalized [R, G, B, A] pixel into targetFormat's byte
// representation, writing into target.
func FromF32(rgba [4]float32, targetFormat MemoryFormat, target []byte) {
	codec := codecFor(targetFormat.ChannelType())
	def := targetFormat.targetDefinition()

	premultiply := float32(1)
	if targetFormat.IsPremultiplied() {
		premultiply = rgba[3]
	}

	for n, t := range def {
		var v float32
		switch t {
		case tgtR:
			v = clamp01(rgba[0] * premultiply)
		case tgtG:
			v = clamp01(rgba[1] * premultiply)
		case tgtB:
			v = clamp01(rgba[2] * premultiply)
		case tgtA:
			v = clamp01(rgba[3])
		case tgtRgbAvg:
			v = clamp01((rgba[0] + rgba[1] + rgba[2]) / 3)
		}
		codec.encode(v, target[n*codec.size:])
	}
}

// ConvertBuffer converts every pixel of a row-major buffer from srcFormat to
// targetFormat, returning a freshly allocated destination buffer.
func ConvertBuffer(srcFormat MemoryFormat, src []byte, targetFormat MemoryFormat) []byte {
	srcStride := srcFormat.NBytes()
	targetStride := targetFormat.NBytes()
	if srcFormat == targetFormat {
		out := make([]byte, len(src))
		copy(out, src)
		return out
	}

	n := len(src) / srcStride
	out := make([]byte, n*targetStride)

	if canFastPathU16ToU8(srcFormat, targetFormat) {
		for i := 0; i < n; i++ {
			transformU16ToU8(srcFormat, src[i*srcStride:(i+1)*srcStride], targetFormat, out[i*targetStride:(i+1)*targetStride])
		}
		return out
	}

	for i := 0; i < n; i++ {
		Transform(srcFormat, src[i*srcStride:(i+1)*srcStride], targetFormat, out[i*targetStride:(i+1)*targetStride])
	}
	return out
}

// canFastPathU16ToU8 reports whether srcFormat -> targetFormat is a plain
// per-channel narrowing that change_memory_format.rs's u16_to_u8 fast path
// covers: no premultiplication change, and no channel that would need to
// synthesize alpha from an opaque source or average into a grayscale target.
func canFastPathU16ToU8(srcFormat, targetFormat MemoryFormat) bool {
	if srcFormat.ChannelType() != U16 || targetFormat.ChannelType() != U8 {
		return false
	}
	if srcFormat.IsPremultiplied() != targetFormat.IsPremultiplied() {
		return false
	}

	srcDef := srcFormat.sourceDefinition()
	hasOpaque := false
	for _, s := range srcDef {
		if s == srcOpaque {
			hasOpaque = true
		}
	}

	tgtDef := targetFormat.targetDefinition()
	hasTgtA := false
	hasRgbAvg := false
	for _, t := range tgtDef {
		if t == tgtA {
			hasTgtA = true
		}
		if t == tgtRgbAvg {
			hasRgbAvg = true
		}
	}

	return !hasRgbAvg && !(hasOpaque && hasTgtA)
}

// transformU16ToU8 narrows a single pixel from a U16 format to a U8 format by
// rounding each channel with saturating_add(128) >> 8, ported byte-for-byte
// from change_memory_format.rs's u16_to_u8 fast path, instead of round-
// tripping through the normalized float32 path Transform uses. This matters
// at the boundary: the generic float32 path rounds 0x0080 down to 0 and
// 0xFD80 down to 253, while the fast path (and the spec) round them to 1 and
// 254.
func transformU16ToU8(srcFormat MemoryFormat, src []byte, targetFormat MemoryFormat, target []byte) {
	srcDef := srcFormat.sourceDefinition()
	tgtDef := targetFormat.targetDefinition()

	for n, t := range tgtDef {
		srcChan := int(srcDef[t])
		off := srcChan * 2
		word := uint16(src[off]) | uint16(src[off+1])<<8
		target[n] = u16ToU8(word)
	}
}

// u16ToU8 is Go's saturating_add(128) >> 8.
func u16ToU8(v uint16) byte {
	sum := uint32(v) + 128
	if sum > 0xffff {
		sum = 0xffff
	}
	return byte(sum >> 8)
}
