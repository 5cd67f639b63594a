package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformRgbToBgra(t *testing.T) {
	target := make([]byte, 4)
	Transform(R8g8b8, []byte{255, 85, 127}, B8g8r8a8, target)
	assert.Equal(t, []byte{127, 85, 255, 255}, target)
}

func TestTransformGrayscale(t *testing.T) {
	target := make([]byte, 1)
	Transform(R8g8b8, []byte{255, 0, 127}, G8, target)
	assert.Equal(t, []byte{127}, target)
}

func TestTransformWidensTo16Bit(t *testing.T) {
	target := make([]byte, 6)
	Transform(R8g8b8, []byte{255, 0, 127}, R16g16b16, target)
	assert.Equal(t, []byte{255, 255, 0, 0, 127, 127}, target)
}

func TestBestFormatForAlphaSourcePicksAlphaFormat(t *testing.T) {
	sel := SelR8g8b8 | SelR8g8b8a8
	got, ok := sel.BestFormatFor(A8b8g8r8)
	assert.True(t, ok)
	assert.Equal(t, R8g8b8a8, got)
}

func TestBestFormatForPrefersAlphaMatch(t *testing.T) {
	sel := SelR8g8b8 | SelR8g8b8a8
	got, ok := sel.BestFormatFor(B8g8r8)
	assert.True(t, ok)
	assert.Equal(t, R8g8b8, got)
}

func TestBestFormatForPrefersMatchingChannelType(t *testing.T) {
	sel := SelR8g8b8 | SelR16g16b16
	got, ok := sel.BestFormatFor(B8g8r8)
	assert.True(t, ok)
	assert.Equal(t, R8g8b8, got)
}

func TestBestFormatForPrefersMatchingType16Float(t *testing.T) {
	sel := SelR8g8b8 | SelR16g16b16
	got, ok := sel.BestFormatFor(R16g16b16Float)
	assert.True(t, ok)
	assert.Equal(t, R16g16b16, got)
}

func TestBestFormatForEmptySelectionReturnsFalse(t *testing.T) {
	_, ok := Selection(0).BestFormatFor(R16g16b16Float)
	assert.False(t, ok)
}

func TestConvertBufferSameFormatCopies(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6}
	out := ConvertBuffer(R8g8b8, src, R8g8b8)
	assert.Equal(t, src, out)
}

// TestConvertBufferU16ToU8FastPathRounding is the literal vector from
// change_memory_format.rs's u16_to_u8 test: a 2x2 R16g16b16 buffer narrowed
// to R8g8b8 must round via saturating_add(128)>>8, not the generic float32
// path, so words 0x0080 and 0xFD80 come out 1 and 254 rather than 0 and 253.
func TestConvertBufferU16ToU8FastPathRounding(t *testing.T) {
	src := []byte{
		127, 0, 128, 0, 127, 2,
		3, 3, 4, 4, 5, 5,
		6, 6, 7, 7, 8, 8,
		127, 253, 128, 253, 255, 255,
	}
	out := ConvertBuffer(R16g16b16, src, R8g8b8)
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 253, 254, 255}, out)
}

func TestU16ToU8RoundsBoundaryWords(t *testing.T) {
	assert.Equal(t, byte(1), u16ToU8(0x0080))
	assert.Equal(t, byte(254), u16ToU8(0xfd80))
}
