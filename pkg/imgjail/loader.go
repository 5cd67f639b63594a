package imgjail

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/godbus/dbus/v5"

	"github.com/imgjail/imgjail/pkg/gfile"
	"github.com/imgjail/imgjail/pkg/icc"
	"github.com/imgjail/imgjail/pkg/ihosterrors"
	"github.com/imgjail/imgjail/pkg/mimesniff"
	"github.com/imgjail/imgjail/pkg/orientation"
	"github.com/imgjail/imgjail/pkg/pool"
	"github.com/imgjail/imgjail/pkg/wire"
)

const loaderInterface = "org.gnome.glycin.Loader"

// LoadOptions parameterizes a Load call.
type LoadOptions struct {
	BaseDir             string // only honored when the matched loader's ExposeBaseDir is true
	MemoryFormats       uint32 // bitmask, see pkg/format.Selection; stored but not applied: frames keep the worker's memory format
	DisableTransform    bool   // skip the orientation and color transforms entirely
}

// Image is a loaded image bound to a live worker handle and its per-image
// object path, ready to serve frame requests.
type Image struct {
	host    *Host
	handle  *pool.Handle
	obj     dbus.BusObject
	details wire.ImageDetails
	opts    LoadOptions
}

// Load implements spec.md section 4.7's load(source, options) -> Image.
func (h *Host) Load(ctx context.Context, source io.Reader, fileName string, opts LoadOptions) (*Image, error) {
	worker := gfile.New(source, fileName)

	head, err := worker.Head()
	if err != nil {
		return nil, err
	}

	mime, err := mimesniff.Sniff(head, fileName)
	if err != nil {
		return nil, err
	}

	entry, err := h.loaderEntry(mime)
	if err != nil {
		return nil, err
	}

	baseDir := ""
	if entry.ExposeBaseDir && opts.BaseDir != "" {
		baseDir = opts.BaseDir
	}

	handle, err := h.loaderPool.Get(ctx, entry, h.Mechanism, baseDir)
	if err != nil {
		return nil, err
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		handle.Release()
		return nil, ihosterrors.IO(err, "creating worker source pipe")
	}
	go func() {
		defer pw.Close()
		_ = worker.WriteTo(pw)
	}()
	defer pr.Close()

	obj := handle.Process().Object(dbus.ObjectPath(loaderObjectPath(0)))

	req := wire.InitRequest{
		MimeType: mime,
		Details:  wire.InitializationDetails{BaseDir: baseDir},
	}

	var details wire.ImageDetails
	call := obj.CallWithContext(ctx, loaderInterface+".Init", 0, req)
	if call.Err != nil {
		handle.Release()
		return nil, ihosterrors.Remote(ihosterrors.RemoteLoadingError, call.Err, "worker init failed for %s", mime)
	}
	if err := call.Store(&details); err != nil {
		handle.Release()
		return nil, ihosterrors.Remote(ihosterrors.RemoteLoadingError, err, "decoding init response for %s", mime)
	}

	if o := details.TransformationOrientation; o != nil && (o.Rotation == 1 || o.Rotation == 3) {
		details.Width, details.Height = details.Height, details.Width
	}

	return &Image{host: h, handle: handle, obj: obj, details: details, opts: opts}, nil
}

func loaderObjectPath(imageID int) string {
	return fmt.Sprintf("/org/gnome/glycin/image%d", imageID)
}

// Details returns the image-level metadata reported at init time.
func (img *Image) Details() wire.ImageDetails {
	return img.details
}

// Close releases the pooled worker handle backing img.
func (img *Image) Close() {
	img.handle.Release()
}

// FrameOptions parameterizes a frame request.
type FrameOptions struct {
	Scale         *wire.ScaleRequest
	Clip          *wire.Clip
	LoopAnimation bool
}

// NextFrame implements spec.md's next_frame(): a frame request with no
// scale/clip, defaulting LoopAnimation to true.
func (img *Image) NextFrame(ctx context.Context) (wire.Frame, error) {
	return img.SpecificFrame(ctx, FrameOptions{LoopAnimation: true})
}

// SpecificFrame implements spec.md's specific_frame(request).
func (img *Image) SpecificFrame(ctx context.Context, opts FrameOptions) (wire.Frame, error) {
	req := wire.FrameRequest{Scale: opts.Scale, Clip: opts.Clip, LoopAnimation: opts.LoopAnimation}

	var frame wire.Frame
	call := img.obj.CallWithContext(ctx, loaderInterface+".Frame", 0, req)
	if call.Err != nil {
		return wire.Frame{}, ihosterrors.Remote(ihosterrors.RemoteLoadingError, call.Err, "frame request failed")
	}
	if err := call.Store(&frame); err != nil {
		return wire.Frame{}, ihosterrors.Remote(ihosterrors.RemoteLoadingError, err, "decoding frame response")
	}

	if err := validateFrame(frame); err != nil {
		return wire.Frame{}, err
	}

	if !img.opts.DisableTransform {
		img.applyOrientation(&frame)
		img.applyColor(&frame)
	}

	return frame, nil
}

// validateFrame enforces spec.md section 7's Validation checks: texture
// smaller than declared, stride smaller than width*bpp, zero dimensions,
// texture bigger than the 8 GB (8e9-byte) hard cap.
func validateFrame(f wire.Frame) error {
	// Decimal 8e9, matching glycin/src/dbus.rs's MAX_TEXTURE_SIZE = 8 *
	// 10u64.pow(9), not the binary 8 GiB (8 << 30 = 8,589,934,592).
	const hardCap = 8_000_000_000

	if f.Width == 0 || f.Height == 0 {
		return ihosterrors.Validation("frame has zero width or height")
	}
	minStride := uint64(f.Width) * uint64(f.MemoryFormat.NBytes())
	if uint64(f.Stride) < minStride {
		return ihosterrors.Validation("stride %d smaller than width*bpp %d", f.Stride, minStride)
	}
	need, err := f.NBytes()
	if err != nil {
		return ihosterrors.Overflow("stride * height")
	}
	if need > hardCap {
		return ihosterrors.Validation("texture size %d exceeds %d byte hard cap", need, int64(hardCap))
	}
	if uint64(len(f.Texture)) < need {
		return ihosterrors.Validation("texture shorter than declared %d bytes", need)
	}
	return nil
}

// applyOrientation implements spec.md 4.7 step 5: unless disabled, derive
// the orientation from the declared transformation override and apply it.
// EXIF metadata and TransformationIgnoreExif are not consulted; without an
// override the frame is left as decoded.
func (img *Image) applyOrientation(f *wire.Frame) {
	o := orientation.Id
	if img.details.TransformationOrientation != nil {
		o = orientation.New(img.details.TransformationOrientation.Mirrored, orientation.Rotation(img.details.TransformationOrientation.Rotation))
	}
	if o == orientation.Id {
		return
	}

	dims := orientation.Dimensions{
		Width:     int(f.Width),
		Height:    int(f.Height),
		Stride:    int(f.Stride),
		PixelSize: f.MemoryFormat.NBytes(),
	}
	buf, newDims := orientation.Apply(f.Texture, dims, o)
	f.Texture = buf
	f.Width, f.Height, f.Stride = uint32(newDims.Width), uint32(newDims.Height), uint32(newDims.Stride)
}

// applyColor implements spec.md 4.7 step 6.
func (img *Image) applyColor(f *wire.Frame) {
	var cicp *icc.Cicp
	if f.Details.ColorCicp != nil {
		c := f.Details.ColorCicp
		cicp = &icc.Cicp{ColorPrimaries: c[0], TransferCharacteristics: c[1], MatrixCoefficients: c[2], FullRange: c[3] != 0}
	}
	icc.Resolve(cicp, f.Details.ColorIccProfile, f.MemoryFormat, int(f.Width), int(f.Height), int(f.Stride), f.Texture)
}

