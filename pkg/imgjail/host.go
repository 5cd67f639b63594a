// Package imgjail is the public facade: Host wires together configuration,
// process pooling, and sandboxing behind the Loader, Editor, and Creator
// APIs described in spec.md sections 4.7 and 4.8.
//
// Grounded on pkg/app/app.go's top-level struct-of-dependencies wiring
// style (a single struct assembled once at startup and passed down by
// reference) and on spec.md itself for the operation sequences.
package imgjail

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"

	"github.com/imgjail/imgjail/pkg/config"
	"github.com/imgjail/imgjail/pkg/ihosterrors"
	"github.com/imgjail/imgjail/pkg/pool"
	"github.com/imgjail/imgjail/pkg/sandbox"
)

// Host is the entry point applications embed. It owns one process pool for
// loaders and one for editors, backed by a shared configuration registry.
type Host struct {
	Log    *logrus.Entry
	Config *config.Config

	Mechanism sandbox.Mechanism

	loaderPool *pool.Pool
	editorPool *pool.Pool
}

// Options configures a new Host.
type Options struct {
	Log       *logrus.Entry
	Mechanism sandbox.Mechanism
	Retention time.Duration
	Debug     bool // leaves deadlock detection on pool/process mutexes active
}

// New loads the configuration registry and builds a ready-to-use Host.
func New(opts Options) (*Host, error) {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	deadlock.Opts.Disable = !opts.Debug
	deadlock.Opts.DeadlockTimeout = 10 * time.Second

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("imgjail: load configuration: %w", err)
	}

	mechanism := opts.Mechanism
	if mechanism == sandbox.MechanismAuto {
		mechanism = sandbox.Resolve(context.Background(), sandbox.MechanismAuto)
		log.WithField("mechanism", mechanism.String()).Info("imgjail: resolved sandbox mechanism")
	}

	return &Host{
		Log:        log,
		Config:     cfg,
		Mechanism:  mechanism,
		loaderPool: pool.New(log, opts.Retention),
		editorPool: pool.New(log, opts.Retention),
	}, nil
}

// SupportedMimeTypes is derived live from the configuration registry, per
// spec.md's supported_mime_types() note.
func (h *Host) SupportedMimeTypes() []string {
	return lo.Map(lo.Keys(h.Config.ImageLoader), func(mime config.MimeType, _ int) string {
		return string(mime)
	})
}

// Close shuts down every pooled worker process.
func (h *Host) Close() {
	h.loaderPool.Shutdown()
	h.editorPool.Shutdown()
}

func (h *Host) loaderEntry(mime string) (config.LoaderConfig, error) {
	entry, ok := h.Config.Loader(config.MimeType(mime))
	if !ok {
		return config.LoaderConfig{}, ihosterrors.Configuration("no loader configured for mime type %q", mime)
	}
	return entry, nil
}

func (h *Host) editorEntry(mime string) (config.EditorConfig, error) {
	entry, ok := h.Config.Editor(config.MimeType(mime))
	if !ok {
		return config.EditorConfig{}, ihosterrors.Configuration("no editor configured for mime type %q", mime)
	}
	return entry, nil
}
