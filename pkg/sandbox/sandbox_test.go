package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMemoryLimitAppliesCapMarginAndRatio(t *testing.T) {
	// 30 GiB available gets capped to 20 GiB, then margin and ratio applied.
	available := uint64(30) * (1 << 30)
	got := CalculateMemoryLimit(available)
	want := uint64(float64(memoryLimitCap-memorySafetyMargin) * 0.8)
	assert.Equal(t, want, got)
}

func TestCalculateMemoryLimitBelowMarginFloorsToZero(t *testing.T) {
	got := CalculateMemoryLimit(100 * (1 << 20))
	assert.Equal(t, uint64(0), got)
}

func TestBuildSeccompFilterBuildsWithAndWithoutFontconfig(t *testing.T) {
	withFontconfig, err := BuildSeccompFilter(true)
	assert.NoError(t, err)
	assert.NotNil(t, withFontconfig)

	withoutFontconfig, err := BuildSeccompFilter(false)
	assert.NoError(t, err)
	assert.NotNil(t, withoutFontconfig)
}

func TestMechanismString(t *testing.T) {
	assert.Equal(t, "bwrap", MechanismBwrap.String())
	assert.Equal(t, "flatpak-spawn", MechanismFlatpakSpawn.String())
	assert.Equal(t, "none", MechanismNone.String())
	assert.Equal(t, "auto", MechanismAuto.String())
}
