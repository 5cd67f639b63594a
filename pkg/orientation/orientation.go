// Package orientation implements the EXIF-style 8-state
// mirror+rotation transform and its composition algebra, used to reduce a
// sequence of editing operations down to a single canonical transform when
// possible, and to apply that transform to a decoded pixel buffer.
//
// Grounded on original_source/glycin-common/src/operations.rs
// (Operations::orientation, add_mirror_horizontally/add_mirror_vertically/
// add_rotation composition, verified against its embedded doc-tests) and
// original_source/glycin-utils/src/editing/orientation.rs
// (change_orientation pixel algorithm). The gufo_common orientation/rotation
// enums referenced by the original are external to this pack, so the eight
// states and the dihedral composition rules are rederived here from first
// principles and checked against the three worked examples in
// operations.rs's doc comments.
package orientation

import "fmt"

// Rotation is a counter-clockwise rotation amount in 90-degree steps.
type Rotation int

const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// Orientation is one of the eight square symmetries: a horizontal mirror
// applied (or not), followed by a counter-clockwise rotation.
type Orientation struct {
	mirrored bool
	rotation Rotation
}

// Id is the identity transform: no mirror, no rotation.
var Id = Orientation{}

// New builds an Orientation from its mirror flag and rotation amount.
func New(mirrored bool, rotation Rotation) Orientation {
	return Orientation{mirrored: mirrored, rotation: rotation % 4}
}

// Mirror reports whether a horizontal mirror is applied before rotation.
func (o Orientation) Mirror() bool { return o.mirrored }

// Rotate returns the rotation amount applied after any mirror.
func (o Orientation) Rotate() Rotation { return o.rotation }

func mod4(k int) Rotation {
	k %= 4
	if k < 0 {
		k += 4
	}
	return Rotation(k)
}

// AddMirrorHorizontally returns the orientation equivalent to applying a
// horizontal mirror after o.
func (o Orientation) AddMirrorHorizontally() Orientation {
	return Orientation{
		mirrored: !o.mirrored,
		rotation: mod4(-int(o.rotation)),
	}
}

// AddMirrorVertically returns the orientation equivalent to applying a
// vertical mirror after o.
func (o Orientation) AddMirrorVertically() Orientation {
	return Orientation{
		mirrored: !o.mirrored,
		rotation: mod4(2 - int(o.rotation)),
	}
}

// AddRotation returns the orientation equivalent to applying a further
// counter-clockwise rotation of r after o.
func (o Orientation) AddRotation(r Rotation) Orientation {
	return Orientation{
		mirrored: o.mirrored,
		rotation: mod4(int(o.rotation) + int(r)),
	}
}

func (o Orientation) String() string {
	name := [4]string{"0", "90", "180", "270"}[o.rotation]
	if o.mirrored {
		if o.rotation == Rotation0 {
			return "Mirrored"
		}
		return fmt.Sprintf("MirroredRotation%s", name)
	}
	if o.rotation == Rotation0 {
		return "Id"
	}
	return fmt.Sprintf("Rotation%s", name)
}
