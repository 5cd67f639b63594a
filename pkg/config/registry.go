// Package config implements the loader/editor configuration registry: a set
// of `.conf` INI-style files, one `kind:mime-type` group per loader or
// editor, scanned across XDG data directories with first-entry-wins
// semantics.
//
// Grounded on original_source/glycin/src/config.rs (Config::load/load_file,
// the ConfigEntryHash pool key, MimeType table) and on the teacher's own
// XDG directory resolution in pkg/config/app_config.go
// (configDirForVendor/xdg.New(...).ConfigHome()), here used for DataHome/
// DataDirs instead since the original resolves against
// glib::user_data_dir()/system_data_dirs(), the data-dir analogue.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/spkg/bom"
)

// CompatVersion is the loader-config compatibility version this registry
// understands; only "glycin-loaders/<CompatVersion>+/conf.d" directories are
// scanned.
const CompatVersion = 2

const configFileExt = ".conf"

// MimeType is a normalized, lowercase IANA media type such as "image/png".
type MimeType string

// ConfigEntryHash is the pool bucket key: two entries with an identical hash
// can share a worker process, since they'd spawn it identically.
type ConfigEntryHash struct {
	Fontconfig      bool
	Exec            string
	ExposeBaseDir   bool
	BaseDir         string
	SandboxMechanism string
}

// LoaderConfig describes how to spawn the worker responsible for a given
// MIME type's decoding.
type LoaderConfig struct {
	Exec          string
	ExposeBaseDir bool
	Fontconfig    bool
}

// EditorConfig extends LoaderConfig with the editing operations a worker
// supports and its encoding (Creator) capabilities.
type EditorConfig struct {
	LoaderConfig
	Operations                    []string
	Creator                       bool
	CreatorColorIccProfile        bool
	CreatorEncodingCompression    bool
	CreatorEncodingQuality        bool
	CreatorMetadataKeyValue       bool
}

// Hash returns the pool bucket key for entry, given the base directory the
// sandbox will be run against.
func (e LoaderConfig) Hash(baseDir, sandboxMechanism string) ConfigEntryHash {
	return ConfigEntryHash{
		Fontconfig:       e.Fontconfig,
		Exec:             e.Exec,
		ExposeBaseDir:    e.ExposeBaseDir,
		BaseDir:          baseDir,
		SandboxMechanism: sandboxMechanism,
	}
}

// Config is the fully loaded registry: one loader and zero-or-one editor
// per known MIME type.
type Config struct {
	ImageLoader map[MimeType]LoaderConfig
	ImageEditor map[MimeType]EditorConfig
}

// Loader looks up the loader configured for mime, reporting false if none
// is registered for it.
func (c *Config) Loader(mime MimeType) (LoaderConfig, bool) {
	l, ok := c.ImageLoader[mime]
	return l, ok
}

// Editor looks up the editor configured for mime, reporting false if none
// is registered for it.
func (c *Config) Editor(mime MimeType) (EditorConfig, bool) {
	e, ok := c.ImageEditor[mime]
	return e, ok
}

// DataDirs returns the ordered list of directories to scan for conf.d
// subdirectories, most specific first: $IMGJAIL_DATA_DIR if set (colon
// separated, for testing and embedding), else the user data home followed
// by the system data dirs -- the Go analogue of
// glib::user_data_dir()/system_data_dirs().
func DataDirs() []string {
	if envDir := os.Getenv("IMGJAIL_DATA_DIR"); envDir != "" {
		return strings.Split(envDir, ":")
	}
	dirs := xdg.New("", "")
	out := []string{dirs.DataHome()}
	out = append(out, dirs.DataDirs()...)
	return out
}

// Load scans every DataDirs() entry's
// "glycin-loaders/<CompatVersion>+/conf.d" subdirectory for *.conf files, in
// order, applying first-entry-wins per MIME type: once a loader or editor
// is registered for a MIME type, later files cannot override it. This
// matches original_source/glycin/src/config.rs's load/load_file.
func Load() (*Config, error) {
	cfg := &Config{
		ImageLoader: map[MimeType]LoaderConfig{},
		ImageEditor: map[MimeType]EditorConfig{},
	}

	subpath := filepath.Join("glycin-loaders", strconv.Itoa(CompatVersion)+"+", "conf.d")

	for _, dataDir := range DataDirs() {
		dir := filepath.Join(dataDir, subpath)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != configFileExt {
				continue
			}
			if err := loadFile(filepath.Join(dir, entry.Name()), cfg); err != nil {
				continue
			}
		}
	}

	return cfg, nil
}

// loadFile parses one .conf file's [kind:mime/type] groups into cfg,
// skipping any group missing the required Exec key and any MIME type
// already populated for that kind.
func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(bom.NewReader(f))

	var kind, mime string
	group := map[string]string{}

	flush := func() {
		if kind == "" || mime == "" {
			return
		}
		applyGroup(cfg, kind, MimeType(mime), group)
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()
			kind, mime = "", ""
			group = map[string]string{}

			header := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			parts := strings.SplitN(header, ":", 2)
			if len(parts) == 2 {
				kind = strings.TrimSpace(parts[0])
				mime = strings.TrimSpace(parts[1])
			}
			continue
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}
		group[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	flush()

	return scanner.Err()
}

func boolValue(group map[string]string, key string) bool {
	v, ok := group[key]
	if !ok {
		return false
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func applyGroup(cfg *Config, kind string, mime MimeType, group map[string]string) {
	exec, ok := group["Exec"]
	if !ok || exec == "" {
		return
	}

	loader := LoaderConfig{
		Exec:          exec,
		ExposeBaseDir: boolValue(group, "ExposeBaseDir"),
		Fontconfig:    boolValue(group, "Fontconfig"),
	}

	switch kind {
	case "loader":
		if _, exists := cfg.ImageLoader[mime]; exists {
			return
		}
		cfg.ImageLoader[mime] = loader

	case "editor":
		if _, exists := cfg.ImageEditor[mime]; exists {
			return
		}
		var ops []string
		if raw, ok := group["Operations"]; ok {
			for _, op := range strings.Split(raw, ",") {
				op = strings.TrimSpace(op)
				if op != "" {
					ops = append(ops, op)
				}
			}
		}
		cfg.ImageEditor[mime] = EditorConfig{
			LoaderConfig:                loader,
			Operations:                  ops,
			Creator:                     boolValue(group, "Creator"),
			CreatorColorIccProfile:      boolValue(group, "CreatorColorIccProfile"),
			CreatorEncodingCompression:  boolValue(group, "CreatorEncodingCompression"),
			CreatorEncodingQuality:      boolValue(group, "CreatorEncodingQuality"),
			CreatorMetadataKeyValue:     boolValue(group, "CreatorMetadataKeyValue"),
		}
		// also populate the loader map so a pure loader lookup for a format
		// that only has an editor entry still resolves, mirroring how the
		// original treats editors as a superset of loading capability.
		if _, exists := cfg.ImageLoader[mime]; !exists {
			cfg.ImageLoader[mime] = loader
		}
	}
}
