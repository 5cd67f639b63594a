package icc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imgjail/imgjail/pkg/format"
)

func TestResolveCicpShortCircuitsIcc(t *testing.T) {
	cicp := &Cicp{ColorPrimaries: 1, TransferCharacteristics: 13, MatrixCoefficients: 0, FullRange: true}
	buf := []byte{10, 20, 30}
	outcome := Resolve(cicp, []byte{0xDE, 0xAD}, format.R8g8b8, 1, 1, 3, buf)

	assert.True(t, outcome.Applied)
	assert.Equal(t, cicp, outcome.ColorCicp)
	assert.Equal(t, []byte{10, 20, 30}, buf) // untouched: CICP means raw bytes
}

func TestResolveNoProfileIsNoop(t *testing.T) {
	outcome := Resolve(nil, nil, format.R8g8b8, 1, 1, 3, []byte{1, 2, 3})
	assert.False(t, outcome.Applied)
	assert.False(t, outcome.Degraded)
}

func TestConvertToSRGBAppliesGammaToU8Channels(t *testing.T) {
	buf := []byte{128, 128, 128}
	err := ConvertToSRGB([]byte{0x01}, format.R8g8b8, 1, 1, 3, buf)
	assert.NoError(t, err)
	for _, v := range buf {
		assert.NotEqual(t, byte(128), v)
	}
}
