package wire

import (
	"testing"

	"github.com/imgjail/imgjail/pkg/orientation"
	"github.com/stretchr/testify/assert"
)

func TestOperationsOrientationReductionRotate90(t *testing.T) {
	ops := NewOperations([]Operation{Rotate(orientation.Rotation180), Rotate(orientation.Rotation270)})
	o, ok := ops.Orientation()
	assert.True(t, ok)
	assert.False(t, o.Mirror())
	assert.Equal(t, orientation.Rotation90, o.Rotate())
}

func TestOperationsOrientationReductionMirroredRotation270(t *testing.T) {
	ops := NewOperations([]Operation{Rotate(orientation.Rotation90), MirrorHorizontally()})
	o, ok := ops.Orientation()
	assert.True(t, ok)
	assert.True(t, o.Mirror())
	assert.Equal(t, orientation.Rotation270, o.Rotate())
}

func TestOperationsOrientationReductionWithClipReturnsFalse(t *testing.T) {
	ops := NewOperations([]Operation{ClipTo(0, 0, 10, 10)})
	_, ok := ops.Orientation()
	assert.False(t, ok)
}

func TestOperationsPrependKeepsOrderOtherFirst(t *testing.T) {
	ops := NewOperations([]Operation{MirrorVertically()})
	prefix := NewOperationsFromOrientation(orientation.New(false, orientation.Rotation90))
	ops.Prepend(prefix)

	ids := ops.OperationIDs()
	assert.Equal(t, []OperationID{OpRotate, OpMirrorVertically}, ids)
}

func TestOperationsRoundTripMessagePack(t *testing.T) {
	ops := NewOperations([]Operation{MirrorHorizontally(), Rotate(orientation.Rotation270), ClipTo(1, 2, 3, 4)})
	data, err := ops.ToMessagePack()
	assert.NoError(t, err)

	decoded, err := OperationsFromSlice(data)
	assert.NoError(t, err)
	assert.Equal(t, ops.OperationIDs(), decoded.OperationIDs())
	assert.Empty(t, decoded.UnknownOperations())
}

func TestSafeRemMatchesModuloNotAddition(t *testing.T) {
	got, err := SafeRemU32(17, 5)
	assert.NoError(t, err)
	assert.Equal(t, uint32(2), got)

	_, err = SafeRemU32(1, 0)
	assert.Error(t, err)
}

func TestSafeMulOverflowU32(t *testing.T) {
	_, err := SafeMulU32(1<<20, 1<<20)
	assert.Error(t, err)
}
