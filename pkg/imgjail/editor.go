package imgjail

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/godbus/dbus/v5"

	"github.com/imgjail/imgjail/pkg/gfile"
	"github.com/imgjail/imgjail/pkg/ihosterrors"
	"github.com/imgjail/imgjail/pkg/mimesniff"
	"github.com/imgjail/imgjail/pkg/pool"
	"github.com/imgjail/imgjail/pkg/wire"
)

const editorInterface = "org.gnome.glycin.Editor"

// EditableImage is bound to a per-image object path on an editor worker,
// per spec.md section 4.8.
type EditableImage struct {
	host   *Host
	handle *pool.Handle
	obj    dbus.BusObject
	mime   string
	cfg    EditorCapabilities
}

// EditorCapabilities mirrors the subset of EditorConfig relevant to callers
// deciding which operations and creation features are available without a
// round-trip to the worker.
type EditorCapabilities struct {
	Operations                 []string
	Creator                    bool
	CreatorColorIccProfile     bool
	CreatorEncodingCompression bool
	CreatorEncodingQuality     bool
	CreatorMetadataKeyValue    bool
}

// Edit implements spec.md 4.8's edit(): transfers source, guesses MIME,
// resolves the editor config, acquires a worker, and binds a per-image path.
func (h *Host) Edit(ctx context.Context, source io.Reader, fileName string, opts LoadOptions) (*EditableImage, error) {
	worker := gfile.New(source, fileName)

	head, err := worker.Head()
	if err != nil {
		return nil, err
	}

	mime, err := mimesniff.Sniff(head, fileName)
	if err != nil {
		return nil, err
	}

	entry, err := h.editorEntry(mime)
	if err != nil {
		return nil, err
	}

	baseDir := ""
	if entry.ExposeBaseDir && opts.BaseDir != "" {
		baseDir = opts.BaseDir
	}

	handle, err := h.editorPool.Get(ctx, entry.LoaderConfig, h.Mechanism, baseDir)
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

	obj := handle.Process().Object(dbus.ObjectPath(editorObjectPath(0)))

	req := wire.InitRequest{MimeType: mime, Details: wire.InitializationDetails{BaseDir: baseDir}}
	call := obj.CallWithContext(ctx, editorInterface+".Init", 0, req)
	if call.Err != nil {
		handle.Release()
		return nil, ihosterrors.Remote(ihosterrors.RemoteEditingError, call.Err, "worker init failed for %s", mime)
	}

	return &EditableImage{
		host:   h,
		handle: handle,
		obj:    obj,
		mime:   mime,
		cfg: EditorCapabilities{
			Operations:                 entry.Operations,
			Creator:                    entry.Creator,
			CreatorColorIccProfile:     entry.CreatorColorIccProfile,
			CreatorEncodingCompression: entry.CreatorEncodingCompression,
			CreatorEncodingQuality:     entry.CreatorEncodingQuality,
			CreatorMetadataKeyValue:    entry.CreatorMetadataKeyValue,
		},
	}, nil
}

func editorObjectPath(imageID int) string {
	return fmt.Sprintf("/org/gnome/glycin/edit%d", imageID)
}

// Capabilities returns the editor's advertised operations and creation
// features, resolved locally from configuration.
func (e *EditableImage) Capabilities() EditorCapabilities {
	return e.cfg
}

// Close releases the pooled worker handle backing e.
func (e *EditableImage) Close() {
	e.handle.Release()
}

// EditResult is either a sparse byte-patch list or a whole new blob,
// exactly one of which is populated, mirroring spec.md's
// apply_sparse/apply_complete distinction.
type EditResult struct {
	Patches []BytePatch
	Blob    []byte
}

// BytePatch is a single lossless byte-range rewrite, e.g. a JPEG EXIF
// orientation flip.
type BytePatch struct {
	Offset uint64
	Data   []byte
}

// ApplySparse implements spec.md 4.8's apply_sparse(operations): it may
// return either a patch list or a whole blob, preferring the sparse path
// when the operations reduce to a pure orientation change the worker
// supports rewriting in place.
func (e *EditableImage) ApplySparse(ctx context.Context, ops wire.Operations) (EditResult, error) {
	encoded, err := ops.ToMessagePack()
	if err != nil {
		return EditResult{}, fmt.Errorf("imgjail: encode operations: %w", err)
	}

	var result struct {
		Patches []BytePatch `msgpack:"patches,omitempty"`
		Blob    []byte      `msgpack:"blob,omitempty"`
	}
	call := e.obj.CallWithContext(ctx, editorInterface+".ApplySparse", 0, encoded)
	if call.Err != nil {
		return EditResult{}, ihosterrors.Remote(ihosterrors.RemoteEditingError, call.Err, "apply_sparse failed")
	}
	if err := call.Store(&result); err != nil {
		return EditResult{}, ihosterrors.Remote(ihosterrors.RemoteEditingError, err, "decoding apply_sparse response")
	}
	return EditResult{Patches: result.Patches, Blob: result.Blob}, nil
}

// ApplyComplete implements spec.md 4.8's apply_complete(operations): always
// a whole new blob, never the sparse patch form.
func (e *EditableImage) ApplyComplete(ctx context.Context, ops wire.Operations) ([]byte, error) {
	encoded, err := ops.ToMessagePack()
	if err != nil {
		return nil, fmt.Errorf("imgjail: encode operations: %w", err)
	}

	var blob []byte
	call := e.obj.CallWithContext(ctx, editorInterface+".ApplyComplete", 0, encoded)
	if call.Err != nil {
		return nil, ihosterrors.Remote(ihosterrors.RemoteEditingError, call.Err, "apply_complete failed")
	}
	if err := call.Store(&blob); err != nil {
		return nil, ihosterrors.Remote(ihosterrors.RemoteEditingError, err, "decoding apply_complete response")
	}
	return blob, nil
}
