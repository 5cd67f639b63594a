package imgjail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imgjail/imgjail/pkg/format"
	"github.com/imgjail/imgjail/pkg/ihosterrors"
	"github.com/imgjail/imgjail/pkg/wire"
)

func TestValidateFrameRejectsZeroDimensions(t *testing.T) {
	f := wire.Frame{Width: 0, Height: 10, Stride: 30, MemoryFormat: format.R8g8b8, Texture: make([]byte, 300)}
	err := validateFrame(f)
	assert.True(t, ihosterrors.HasCode(err, ihosterrors.CodeValidation))
}

func TestValidateFrameRejectsShortStride(t *testing.T) {
	f := wire.Frame{Width: 10, Height: 10, Stride: 2, MemoryFormat: format.R8g8b8, Texture: make([]byte, 300)}
	err := validateFrame(f)
	assert.True(t, ihosterrors.HasCode(err, ihosterrors.CodeValidation))
}

func TestValidateFrameRejectsShortTexture(t *testing.T) {
	f := wire.Frame{Width: 10, Height: 10, Stride: 30, MemoryFormat: format.R8g8b8, Texture: make([]byte, 10)}
	err := validateFrame(f)
	assert.True(t, ihosterrors.HasCode(err, ihosterrors.CodeValidation))
}

func TestValidateFrameAcceptsWellFormedFrame(t *testing.T) {
	f := wire.Frame{Width: 10, Height: 10, Stride: 30, MemoryFormat: format.R8g8b8, Texture: make([]byte, 300)}
	assert.NoError(t, validateFrame(f))
}

// TestValidateFrameRejectsDecimalHardCapBoundary is spec.md's S7 scenario:
// stride=4, height=2_147_483_648, so need = stride*height = 8,589,934,592,
// which is exactly the binary-8-GiB value but sits above the decimal
// 8,000,000,000 hard cap glycin/src/dbus.rs actually enforces. It must be
// rejected, not accepted because it happens to equal the wrong constant.
func TestValidateFrameRejectsDecimalHardCapBoundary(t *testing.T) {
	f := wire.Frame{Width: 1, Height: 2_147_483_648, Stride: 4, MemoryFormat: format.G8}
	err := validateFrame(f)
	assert.True(t, ihosterrors.HasCode(err, ihosterrors.CodeValidation))
}

func TestCreationRejectsUnsupportedCreator(t *testing.T) {
	e := &EditableImage{mime: "image/png", cfg: EditorCapabilities{Creator: false}}
	_, err := e.NewCreation()
	assert.True(t, ihosterrors.HasCode(err, ihosterrors.CodeConfiguration))
}

func TestCreationRejectsIccProfileWithoutCapability(t *testing.T) {
	e := &EditableImage{mime: "image/jxl", cfg: EditorCapabilities{Creator: true}}
	c, err := e.NewCreation()
	assert.NoError(t, err)

	err = c.AddFrame(4, 4, format.R8g8b8, make([]byte, 48), []byte{0xDE, 0xAD})
	assert.True(t, ihosterrors.HasCode(err, ihosterrors.CodeConfiguration))
}

func TestObjectPathsAreDistinctNamespaces(t *testing.T) {
	assert.Equal(t, "/org/gnome/glycin/image0", loaderObjectPath(0))
	assert.Equal(t, "/org/gnome/glycin/edit0", editorObjectPath(0))
}
