package ihosterrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCodeMatchesCategory(t *testing.T) {
	err := Configuration("no loaders configured for %s", "image/avif")
	assert.True(t, HasCode(err, CodeConfiguration))
	assert.False(t, HasCode(err, CodeSpawn))
}

func TestIsRemoteKindMatchesTypedFailure(t *testing.T) {
	err := Remote(RemoteOutOfMemory, nil, "worker reported OOM")
	assert.True(t, IsRemoteKind(err, RemoteOutOfMemory))
	assert.False(t, IsRemoteKind(err, RemoteAborted))
}

func TestCanceledWrapsOriginalCause(t *testing.T) {
	original := Validation("stride smaller than width * bpp")
	err := Canceled(original)
	assert.True(t, HasCode(err, CodeCancellation))
	assert.ErrorIs(t, err, original)
}

func TestPrematureExitCarriesExitCodeAndOutput(t *testing.T) {
	err := PrematureExit("/usr/libexec/imgjail-loader-png", 1, "stdout tail", "stderr tail")
	assert.True(t, HasCode(err, CodeSpawn))
	assert.Equal(t, 1, err.ExitCode)
	assert.Equal(t, "stderr tail", err.Stderr)
}

func TestWrapStackReturnsNilForNil(t *testing.T) {
	assert.NoError(t, WrapStack(nil))
}
