package wire

import (
	"time"

	"github.com/imgjail/imgjail/pkg/format"
)

// InitializationDetails carries host-provided context a worker needs before
// it can safely open anything, namely the directory untrusted relative
// paths are allowed to resolve against.
type InitializationDetails struct {
	BaseDir string `msgpack:"base_dir,omitempty"`
}

// InitRequest is the first message sent to a freshly spawned worker: the fd
// index of the source file (passed out-of-band over the RPC transport), its
// sniffed or declared MIME type, and InitializationDetails.
type InitRequest struct {
	MimeType string                 `msgpack:"mime_type"`
	Details  InitializationDetails  `msgpack:"details"`
}

// FrameRequest asks a worker to decode (or re-decode, for animations) the
// next frame, optionally scaled and/or clipped.
type FrameRequest struct {
	Scale         *ScaleRequest `msgpack:"scale,omitempty"`
	Clip          *Clip         `msgpack:"clip,omitempty"`
	LoopAnimation bool          `msgpack:"loop_animation"`
}

// ScaleRequest asks a worker to decode at a specific target resolution
// rather than native resolution, when it can do so more cheaply than the
// host rescaling afterwards.
type ScaleRequest struct {
	Width, Height uint32
}

// ImageDetails is the self-describing metadata dictionary a worker reports
// once per image: declared dimensions, physical size, textual format name,
// and whatever metadata blobs the format embeds.
type ImageDetails struct {
	Width, Height              uint32
	DimensionsInch             *[2]float64 `msgpack:"dimensions_inch,omitempty"`
	InfoFormatName             string      `msgpack:"info_format_name,omitempty"`
	InfoDimensionsText         string      `msgpack:"info_dimensions_text,omitempty"`
	MetadataExif               []byte      `msgpack:"metadata_exif,omitempty"`
	MetadataXmp                []byte      `msgpack:"metadata_xmp,omitempty"`
	MetadataKeyValue           map[string]string `msgpack:"metadata_key_value,omitempty"`
	TransformationIgnoreExif   bool        `msgpack:"transformation_ignore_exif"`
	TransformationOrientation  *orientationWire `msgpack:"transformation_orientation,omitempty"`
}

type orientationWire struct {
	Mirrored bool `msgpack:"mirrored"`
	Rotation int  `msgpack:"rotation"`
}

// NewImageDetails constructs the minimal ImageDetails a loader needs to
// fill in before anything else is known.
func NewImageDetails(width, height uint32) ImageDetails {
	return ImageDetails{Width: width, Height: height}
}

// FrameDetails is the self-describing metadata dictionary attached to a
// single decoded Frame.
type FrameDetails struct {
	ColorIccProfile []byte   `msgpack:"color_icc_profile,omitempty"`
	ColorCicp       *[4]byte `msgpack:"color_cicp,omitempty"`
	InfoBitDepth    *uint8   `msgpack:"info_bit_depth,omitempty"`
	InfoAlphaChannel *bool   `msgpack:"info_alpha_channel,omitempty"`
	InfoGrayscale   *bool    `msgpack:"info_grayscale,omitempty"`
	NFrame          uint64   `msgpack:"n_frame"`
}

// Frame is a single decoded image frame: its geometry, pixel format, the
// raw pixel bytes (decoded inline from the RPC reply; no memfd is received,
// sealed or mapped for them), optional animation delay, and metadata.
type Frame struct {
	Width, Height, Stride uint32
	MemoryFormat          format.MemoryFormat
	Texture               []byte
	Delay                 *time.Duration
	Details               FrameDetails
}

// NewFrame computes Stride from Width and MemoryFormat and wraps texture.
func NewFrame(width, height uint32, mf format.MemoryFormat, texture []byte) (Frame, error) {
	stride, err := SafeMulU32(uint32(mf.NBytes()), width)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Width: width, Height: height, Stride: stride, MemoryFormat: mf, Texture: texture}, nil
}

// NBytes returns stride*height, the number of meaningful bytes in Texture.
func (f Frame) NBytes() (uint64, error) {
	return SafeMulU64(uint64(f.Stride), uint64(f.Height))
}

// EncodingOptions parameterizes a Creator encode request.
type EncodingOptions struct {
	Quality     *uint8 `msgpack:"quality,omitempty"`
	Compression *uint8 `msgpack:"compression,omitempty"`
}

// EncodedImage is the result of a Creator encode request.
type EncodedImage struct {
	Data []byte
}

// NewImage is the result of a Creator::create request: metadata plus every
// encoded frame.
type NewImage struct {
	ImageInfo ImageDetails
	Frames    []Frame
}
