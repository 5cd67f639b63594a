package wire

import (
	"fmt"
	"math"
)

// ErrOverflow is returned by the Safe* helpers when an arithmetic operation
// would overflow the target type, mirroring the original's
// DimensionTooLargerError / checked_* semantics: corrupt or adversarial
// dimension fields must never be allowed to wrap silently into a small
// allocation.
type ErrOverflow struct {
	Op string
}

func (e *ErrOverflow) Error() string { return fmt.Sprintf("wire: arithmetic overflow in %s", e.Op) }

// SafeMulU32 multiplies two uint32 values, failing on overflow.
//
// Grounded on original_source/glycin-utils/src/safe_math.rs SafeMath::smul.
func SafeMulU32(a, b uint32) (uint32, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	result := uint64(a) * uint64(b)
	if result > math.MaxUint32 {
		return 0, &ErrOverflow{Op: "u32 multiplication"}
	}
	return uint32(result), nil
}

// SafeMulU64 multiplies two uint64 values, failing on overflow.
func SafeMulU64(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	result := a * b
	if result/a != b {
		return 0, &ErrOverflow{Op: "u64 multiplication"}
	}
	return result, nil
}

// SafeAddU32 adds two uint32 values, failing on overflow.
func SafeAddU32(a, b uint32) (uint32, error) {
	result := uint64(a) + uint64(b)
	if result > math.MaxUint32 {
		return 0, &ErrOverflow{Op: "u32 addition"}
	}
	return uint32(result), nil
}

// SafeAddU64 adds two uint64 values, failing on overflow.
func SafeAddU64(a, b uint64) (uint64, error) {
	result := a + b
	if result < a {
		return 0, &ErrOverflow{Op: "u64 addition"}
	}
	return result, nil
}

// SafeRemU32 computes a % b, failing only when b is zero.
//
// The original Rust implementation's u32/u64 SafeMath::srem calls
// checked_add instead of checked_rem -- a copy/paste bug from sadd, flagged
// in the spec's design notes as "likely a typo". This port implements the
// operation the name promises: checked remainder, not addition.
func SafeRemU32(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, &ErrOverflow{Op: "u32 remainder by zero"}
	}
	return a % b, nil
}

// SafeRemU64 computes a % b, failing only when b is zero.
func SafeRemU64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, &ErrOverflow{Op: "u64 remainder by zero"}
	}
	return a % b, nil
}

// TryUsize converts a u64-range dimension to an int, failing if it would
// not fit (relevant on 32-bit platforms; always succeeds on 64-bit for the
// dimensions this library deals with, but callers should still check).
func TryUsize(v uint64) (int, error) {
	if v > math.MaxInt {
		return 0, &ErrOverflow{Op: "u64 to platform int"}
	}
	return int(v), nil
}
