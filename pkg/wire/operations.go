// Package wire defines the self-describing request/response dictionaries
// exchanged between the host and a sandboxed worker, and their MessagePack
// encoding.
//
// Grounded on original_source/glycin-common/src/operations.rs (Operation,
// Operations, forward-compatible unknown-operation handling) and
// original_source/glycin-utils/src/dbus_types.rs (the request/response
// structs). Serialization uses github.com/vmihailenco/msgpack/v5, the
// pack's MessagePack library, matching the spec's explicit wire-format
// requirement.
package wire

import (
	"fmt"

	"github.com/imgjail/imgjail/pkg/orientation"
	"github.com/vmihailenco/msgpack/v5"
)

// OperationID names the kind of an Operation without its payload.
type OperationID int

const (
	OpClip OperationID = iota
	OpMirrorHorizontally
	OpMirrorVertically
	OpRotate
)

func (id OperationID) String() string {
	switch id {
	case OpClip:
		return "Clip"
	case OpMirrorHorizontally:
		return "MirrorHorizontally"
	case OpMirrorVertically:
		return "MirrorVertically"
	case OpRotate:
		return "Rotate"
	default:
		return fmt.Sprintf("OperationID(%d)", int(id))
	}
}

// Clip is the (x, y, width, height) rectangle of a Clip operation.
type Clip struct {
	X, Y, Width, Height uint32
}

// Operation is a single editing instruction. Exactly one of the typed
// fields is meaningful, selected by ID -- this mirrors the original's
// closed Rust enum using a Go struct-of-optionals since msgpack has no
// native tagged-union support in this pack's library.
type Operation struct {
	ID       OperationID
	Clip     *Clip             `msgpack:",omitempty"`
	Rotation orientation.Rotation `msgpack:",omitempty"`
}

func MirrorHorizontally() Operation { return Operation{ID: OpMirrorHorizontally} }
func MirrorVertically() Operation   { return Operation{ID: OpMirrorVertically} }
func Rotate(r orientation.Rotation) Operation {
	return Operation{ID: OpRotate, Rotation: r}
}
func ClipTo(x, y, w, h uint32) Operation {
	return Operation{ID: OpClip, Clip: &Clip{X: x, Y: y, Width: w, Height: h}}
}

// Operations is an ordered list of editing instructions plus, for
// forward-compatibility, the raw encoding of any operation this version did
// not recognize. A worker built against a newer host may send operation
// kinds we don't know about; we preserve them unread rather than failing
// the whole decode.
type Operations struct {
	operations        []Operation
	unknownOperations []string
}

// NewOperations builds an Operations from an explicit instruction list.
func NewOperations(ops []Operation) Operations {
	return Operations{operations: append([]Operation(nil), ops...)}
}

// NewOperationsFromOrientation builds the minimal Operations sequence that
// applies the given orientation: an optional mirror followed by an optional
// rotation.
func NewOperationsFromOrientation(o orientation.Orientation) Operations {
	var ops []Operation
	if o.Mirror() {
		ops = append(ops, MirrorHorizontally())
	}
	if o.Rotate() != orientation.Rotation0 {
		ops = append(ops, Rotate(o.Rotate()))
	}
	return Operations{operations: ops}
}

// Prepend inserts other's operations before o's own, keeping o's own
// unknown-operation record (mirrors Operations::prepend's mem::swap trick).
func (o *Operations) Prepend(other Operations) {
	combined := append(append([]Operation(nil), other.operations...), o.operations...)
	o.operations = combined
}

// List returns the known, ordered instruction list.
func (o Operations) List() []Operation { return o.operations }

// UnknownOperations returns the raw encodings of operations this version did
// not recognize during decode.
func (o Operations) UnknownOperations() []string { return o.unknownOperations }

// OperationIDs returns the id of each known operation, in order.
func (o Operations) OperationIDs() []OperationID {
	ids := make([]OperationID, len(o.operations))
	for i, op := range o.operations {
		ids[i] = op.ID
	}
	return ids
}

// Orientation reduces the operation sequence to a single canonical
// Orientation, returning false if any Clip is present (a clip cannot be
// folded into a pure mirror+rotate transform).
func (o Operations) Orientation() (orientation.Orientation, bool) {
	result := orientation.Id
	for _, op := range o.operations {
		switch op.ID {
		case OpMirrorHorizontally:
			result = result.AddMirrorHorizontally()
		case OpMirrorVertically:
			result = result.AddMirrorVertically()
		case OpRotate:
			result = result.AddRotation(op.Rotation)
		default:
			return orientation.Id, false
		}
	}
	return result, true
}

// wireOperation is the on-the-wire shape: a named kind plus whichever
// payload applies, letting an unrecognized kind be captured as raw bytes
// instead of aborting the whole decode.
type wireOperation struct {
	Kind string      `msgpack:"kind"`
	Clip *Clip       `msgpack:"clip,omitempty"`
	Rotation orientation.Rotation `msgpack:"rotation,omitempty"`
}

type wireOperations struct {
	Operations []msgpack.RawMessage `msgpack:"operations"`
}

// ToMessagePack encodes o exactly as the worker/host RPC expects.
func (o Operations) ToMessagePack() ([]byte, error) {
	raw := make([]msgpack.RawMessage, 0, len(o.operations))
	for _, op := range o.operations {
		w := wireOperation{Kind: op.ID.String(), Clip: op.Clip, Rotation: op.Rotation}
		b, err := msgpack.Marshal(w)
		if err != nil {
			return nil, fmt.Errorf("wire: encode operation: %w", err)
		}
		raw = append(raw, b)
	}
	return msgpack.Marshal(wireOperations{Operations: raw})
}

// OperationsFromSlice decodes an Operations from its MessagePack encoding,
// preserving any operation kind it does not recognize instead of failing.
func OperationsFromSlice(data []byte) (Operations, error) {
	var wrapped wireOperations
	if err := msgpack.Unmarshal(data, &wrapped); err != nil {
		return Operations{}, fmt.Errorf("wire: decode operations: %w", err)
	}

	result := Operations{}
	for _, raw := range wrapped.Operations {
		var w wireOperation
		if err := msgpack.Unmarshal(raw, &w); err != nil {
			result.unknownOperations = append(result.unknownOperations, string(raw))
			continue
		}
		id, ok := operationIDFromString(w.Kind)
		if !ok {
			result.unknownOperations = append(result.unknownOperations, string(raw))
			continue
		}
		result.operations = append(result.operations, Operation{ID: id, Clip: w.Clip, Rotation: w.Rotation})
	}
	return result, nil
}

func operationIDFromString(s string) (OperationID, bool) {
	switch s {
	case "Clip":
		return OpClip, true
	case "MirrorHorizontally":
		return OpMirrorHorizontally, true
	case "MirrorVertically":
		return OpMirrorVertically, true
	case "Rotate":
		return OpRotate, true
	default:
		return 0, false
	}
}
