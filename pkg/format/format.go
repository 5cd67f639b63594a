// Package format implements the closed set of pixel memory layouts workers
// may hand back to the host, and the channel-accurate conversion pipeline
// between them.
//
// Ported from original_source/glycin-common/src/memory_format.rs: same 23
// variants, same discriminant order, same source/target channel maps, and
// the same float32 intermediate conversion pipeline (normalize, undo
// premultiplication, remap channels, reapply premultiplication, narrow).
package format

import "fmt"

// MemoryFormat enumerates every pixel layout a worker can produce. The
// numeric values are not meaningful on their own but are kept stable and in
// the original's declaration order since they double as a wire enum.
type MemoryFormat int32

const (
	B8g8r8a8Premultiplied MemoryFormat = iota
	A8r8g8b8Premultiplied
	R8g8b8a8Premultiplied
	B8g8r8a8
	A8r8g8b8
	R8g8b8a8
	A8b8g8r8
	R8g8b8
	B8g8r8
	R16g16b16
	R16g16b16a16Premultiplied
	R16g16b16a16
	R16g16b16Float
	R16g16b16a16Float
	R32g32b32Float
	R32g32b32a32FloatPremultiplied
	R32g32b32a32Float
	G8a8Premultiplied
	G8a8
	G8
	G16a16Premultiplied
	G16a16
	G16
)

// All lists every MemoryFormat in declaration order.
var All = []MemoryFormat{
	B8g8r8a8Premultiplied, A8r8g8b8Premultiplied, R8g8b8a8Premultiplied,
	B8g8r8a8, A8r8g8b8, R8g8b8a8, A8b8g8r8,
	R8g8b8, B8g8r8,
	R16g16b16, R16g16b16a16Premultiplied, R16g16b16a16,
	R16g16b16Float, R16g16b16a16Float,
	R32g32b32Float, R32g32b32a32FloatPremultiplied, R32g32b32a32Float,
	G8a8Premultiplied, G8a8, G8,
	G16a16Premultiplied, G16a16, G16,
}

var names = map[MemoryFormat]string{
	B8g8r8a8Premultiplied:          "B8g8r8a8Premultiplied",
	A8r8g8b8Premultiplied:          "A8r8g8b8Premultiplied",
	R8g8b8a8Premultiplied:          "R8g8b8a8Premultiplied",
	B8g8r8a8:                       "B8g8r8a8",
	A8r8g8b8:                       "A8r8g8b8",
	R8g8b8a8:                       "R8g8b8a8",
	A8b8g8r8:                       "A8b8g8r8",
	R8g8b8:                         "R8g8b8",
	B8g8r8:                         "B8g8r8",
	R16g16b16:                      "R16g16b16",
	R16g16b16a16Premultiplied:      "R16g16b16a16Premultiplied",
	R16g16b16a16:                   "R16g16b16a16",
	R16g16b16Float:                 "R16g16b16Float",
	R16g16b16a16Float:              "R16g16b16a16Float",
	R32g32b32Float:                 "R32g32b32Float",
	R32g32b32a32FloatPremultiplied: "R32g32b32a32FloatPremultiplied",
	R32g32b32a32Float:              "R32g32b32a32Float",
	G8a8Premultiplied:              "G8a8Premultiplied",
	G8a8:                           "G8a8",
	G8:                             "G8",
	G16a16Premultiplied:            "G16a16Premultiplied",
	G16a16:                         "G16a16",
	G16:                            "G16",
}

func (f MemoryFormat) String() string {
	if s, ok := names[f]; ok {
		return s
	}
	return fmt.Sprintf("MemoryFormat(%d)", int32(f))
}

// ChannelType is the storage type of a single color channel.
type ChannelType int

const (
	U8 ChannelType = iota
	U16
	F16
	F32
)

// Size is the number of bytes a single channel value occupies.
func (c ChannelType) Size() int {
	switch c {
	case U8:
		return 1
	case U16:
		return 2
	case F16:
		return 2
	case F32:
		return 4
	}
	panic("format: unknown channel type")
}

// NBytes returns the total per-pixel byte width of f.
func (f MemoryFormat) NBytes() int {
	switch f {
	case B8g8r8a8Premultiplied, A8r8g8b8Premultiplied, R8g8b8a8Premultiplied,
		B8g8r8a8, A8r8g8b8, R8g8b8a8, A8b8g8r8:
		return 4
	case R8g8b8, B8g8r8:
		return 3
	case R16g16b16, R16g16b16Float:
		return 6
	case R16g16b16a16Premultiplied, R16g16b16a16, R16g16b16a16Float:
		return 8
	case R32g32b32Float:
		return 12
	case R32g32b32a32FloatPremultiplied, R32g32b32a32Float:
		return 16
	case G8a8Premultiplied, G8a8:
		return 2
	case G8:
		return 1
	case G16a16Premultiplied, G16a16:
		return 4
	case G16:
		return 2
	}
	panic("format: unknown memory format")
}

// NChannels returns the number of logical color channels in f.
func (f MemoryFormat) NChannels() int {
	switch f {
	case B8g8r8a8Premultiplied, A8r8g8b8Premultiplied, R8g8b8a8Premultiplied,
		B8g8r8a8, A8r8g8b8, R8g8b8a8, A8b8g8r8,
		R16g16b16a16Premultiplied, R16g16b16a16, R16g16b16a16Float,
		R32g32b32a32FloatPremultiplied, R32g32b32a32Float:
		return 4
	case R8g8b8, B8g8r8, R16g16b16, R16g16b16Float, R32g32b32Float:
		return 3
	case G8a8Premultiplied, G8a8, G16a16Premultiplied, G16a16:
		return 2
	case G8, G16:
		return 1
	}
	panic("format: unknown memory format")
}

// ChannelType returns the per-channel storage type of f.
func (f MemoryFormat) ChannelType() ChannelType {
	switch f {
	case B8g8r8a8Premultiplied, A8r8g8b8Premultiplied, R8g8b8a8Premultiplied,
		B8g8r8a8, A8r8g8b8, R8g8b8a8, A8b8g8r8, R8g8b8, B8g8r8,
		G8a8Premultiplied, G8a8, G8:
		return U8
	case R16g16b16, R16g16b16a16Premultiplied, R16g16b16a16,
		G16a16Premultiplied, G16a16, G16:
		return U16
	case R16g16b16Float, R16g16b16a16Float:
		return F16
	case R32g32b32Float, R32g32b32a32FloatPremultiplied, R32g32b32a32Float:
		return F32
	}
	panic("format: unknown memory format")
}

// HasAlpha reports whether f stores an alpha channel.
func (f MemoryFormat) HasAlpha() bool {
	switch f {
	case B8g8r8a8Premultiplied, A8r8g8b8Premultiplied, R8g8b8a8Premultiplied,
		B8g8r8a8, A8r8g8b8, R8g8b8a8, A8b8g8r8,
		R16g16b16a16Premultiplied, R32g32b32a32FloatPremultiplied, R32g32b32a32Float,
		G8a8Premultiplied, G8a8, R16g16b16a16, R16g16b16a16Float,
		G16a16Premultiplied, G16a16:
		return true
	default:
		return false
	}
}

// IsPremultiplied reports whether color channels are premultiplied by alpha.
func (f MemoryFormat) IsPremultiplied() bool {
	switch f {
	case B8g8r8a8Premultiplied, A8r8g8b8Premultiplied, R8g8b8a8Premultiplied,
		R16g16b16a16Premultiplied, R32g32b32a32FloatPremultiplied,
		G8a8Premultiplied, G16a16Premultiplied:
		return true
	default:
		return false
	}
}

// source identifies which stored channel feeds a logical RGBA slot (or a
// constant opaque alpha) when reading a pixel of a given format.
type source int

const (
	srcC0 source = iota
	srcC1
	srcC2
	srcC3
	srcOpaque
)

// sourceDefinition returns, in [R, G, B, A] order, which stored channel (or
// constant) supplies each logical component.
func (f MemoryFormat) sourceDefinition() [4]source {
	switch f {
	case B8g8r8a8Premultiplied, B8g8r8a8:
		return [4]source{srcC2, srcC1, srcC0, srcC3}
	case A8r8g8b8Premultiplied, A8r8g8b8:
		return [4]source{srcC1, srcC2, srcC3, srcC0}
	case R8g8b8a8Premultiplied, R8g8b8a8, R16g16b16a16Premultiplied, R16g16b16a16,
		R16g16b16a16Float, R32g32b32a32FloatPremultiplied, R32g32b32a32Float:
		return [4]source{srcC0, srcC1, srcC2, srcC3}
	case A8b8g8r8:
		return [4]source{srcC1, srcC2, srcC3, srcC0}
	case R8g8b8, R16g16b16, R16g16b16Float, R32g32b32Float:
		return [4]source{srcC0, srcC1, srcC2, srcOpaque}
	case B8g8r8:
		return [4]source{srcC2, srcC1, srcC0, srcOpaque}
	case G8a8Premultiplied, G8a8, G16a16Premultiplied, G16a16:
		return [4]source{srcC0, srcC0, srcC0, srcC1}
	case G8, G16:
		return [4]source{srcC0, srcC0, srcC0, srcOpaque}
	}
	panic("format: unknown memory format")
}

// target identifies which stored channel a logical RGBA component (or
// grayscale average) is written into for a given target format.
type target int

const (
	tgtR target = iota
	tgtG
	tgtB
	tgtA
	tgtRgbAvg
)

func (f MemoryFormat) targetDefinition() []target {
	switch f {
	case B8g8r8a8Premultiplied, B8g8r8a8:
		return []target{tgtB, tgtG, tgtR, tgtA}
	case A8r8g8b8Premultiplied, A8r8g8b8:
		return []target{tgtA, tgtR, tgtG, tgtB}
	case R8g8b8a8Premultiplied, R8g8b8a8, R16g16b16a16Premultiplied, R16g16b16a16,
		R16g16b16a16Float, R32g32b32a32FloatPremultiplied, R32g32b32a32Float:
		return []target{tgtR, tgtG, tgtB, tgtA}
	case A8b8g8r8:
		return []target{tgtA, tgtB, tgtG, tgtR}
	case R8g8b8, R16g16b16, R16g16b16Float, R32g32b32Float:
		return []target{tgtR, tgtG, tgtB}
	case B8g8r8:
		return []target{tgtB, tgtG, tgtR}
	case G8a8Premultiplied, G8a8, G16a16Premultiplied, G16a16:
		return []target{tgtRgbAvg, tgtA}
	case G8, G16:
		return []target{tgtRgbAvg}
	}
	panic("format: unknown memory format")
}
