package imgjail

import (
	"context"

	"github.com/imgjail/imgjail/pkg/format"
	"github.com/imgjail/imgjail/pkg/ihosterrors"
	"github.com/imgjail/imgjail/pkg/wire"
)

// Creation accumulates frames and metadata for a single Create call,
// mirroring spec.md 4.8's "the caller appends frames ... the host converts
// the buffer to the tightest valid stride".
type Creation struct {
	edit     *EditableImage
	frames   []wire.Frame
	metadata map[string]string
	encoding wire.EncodingOptions
}

// NewCreation starts a Creation bound to e, failing locally (without a
// round-trip) if the editor's config does not advertise Creator support.
func (e *EditableImage) NewCreation() (*Creation, error) {
	if !e.cfg.Creator {
		return nil, ihosterrors.Configuration("mime type %q does not support creation", e.mime)
	}
	return &Creation{edit: e, metadata: map[string]string{}}, nil
}

// AddFrame appends a frame, tightening its stride to width*bytes-per-pixel.
func (c *Creation) AddFrame(width, height uint32, mf format.MemoryFormat, texture []byte, iccProfile []byte) error {
	frame, err := wire.NewFrame(width, height, mf, texture)
	if err != nil {
		return err
	}
	if len(iccProfile) > 0 {
		if !c.edit.cfg.CreatorColorIccProfile {
			return ihosterrors.Configuration("mime type %q does not support an embedded ICC profile", c.edit.mime)
		}
		frame.Details.ColorIccProfile = iccProfile
	}
	c.frames = append(c.frames, frame)
	return nil
}

// SetMetadata appends a key/value metadata pair. Requires
// CreatorMetadataKeyValue support; checked locally per spec.md's
// FeatureNotSupported-without-round-trip rule.
func (c *Creation) SetMetadata(key, value string) error {
	if !c.edit.cfg.CreatorMetadataKeyValue {
		return ihosterrors.Configuration("mime type %q does not support key/value metadata", c.edit.mime)
	}
	c.metadata[key] = value
	return nil
}

// SetEncoding configures quality/compression, gated on the editor's
// advertised encoding capabilities.
func (c *Creation) SetEncoding(opts wire.EncodingOptions) error {
	if opts.Quality != nil && !c.edit.cfg.CreatorEncodingQuality {
		return ihosterrors.Configuration("mime type %q does not support encoding quality", c.edit.mime)
	}
	if opts.Compression != nil && !c.edit.cfg.CreatorEncodingCompression {
		return ihosterrors.Configuration("mime type %q does not support encoding compression", c.edit.mime)
	}
	c.encoding = opts
	return nil
}

// Create packages the accumulated frames and metadata into an
// EncodedImage request and sends it to the worker.
func (c *Creation) Create(ctx context.Context) (wire.EncodedImage, error) {
	req := struct {
		Frames   []wire.Frame          `msgpack:"frames"`
		Metadata map[string]string     `msgpack:"metadata,omitempty"`
		Encoding wire.EncodingOptions  `msgpack:"encoding"`
	}{
		Frames:   c.frames,
		Metadata: c.metadata,
		Encoding: c.encoding,
	}

	var encoded wire.EncodedImage
	call := c.edit.obj.CallWithContext(ctx, editorInterface+".Create", 0, req)
	if call.Err != nil {
		return wire.EncodedImage{}, ihosterrors.Remote(ihosterrors.RemoteEditingError, call.Err, "create request failed")
	}
	if err := call.Store(&encoded); err != nil {
		return wire.EncodedImage{}, ihosterrors.Remote(ihosterrors.RemoteEditingError, err, "decoding create response")
	}
	return encoded, nil
}
