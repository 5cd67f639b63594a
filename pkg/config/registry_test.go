package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfFile(t *testing.T, dataDir, name, content string) {
	t.Helper()
	dir := filepath.Join(dataDir, "glycin-loaders", "2+", "conf.d")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadFirstEntryWinsAcrossDataDirs(t *testing.T) {
	userDir := t.TempDir()
	systemDir := t.TempDir()

	writeConfFile(t, userDir, "png.conf", "[loader:image/png]\nExec=/usr/libexec/imgjail-loader-png\n")
	writeConfFile(t, systemDir, "png-override.conf", "[loader:image/png]\nExec=/should/not/win\n")

	t.Setenv("IMGJAIL_DATA_DIR", userDir+":"+systemDir)

	cfg, err := Load()
	require.NoError(t, err)

	loader, ok := cfg.Loader("image/png")
	require.True(t, ok)
	assert.Equal(t, "/usr/libexec/imgjail-loader-png", loader.Exec)
}

func TestLoadSkipsEntryMissingExec(t *testing.T) {
	dir := t.TempDir()
	writeConfFile(t, dir, "broken.conf", "[loader:image/heic]\nFontconfig=true\n")
	t.Setenv("IMGJAIL_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	_, ok := cfg.Loader("image/heic")
	assert.False(t, ok)
}

func TestLoadEditorOperationsAndBooleans(t *testing.T) {
	dir := t.TempDir()
	writeConfFile(t, dir, "jxl.conf",
		"[editor:image/jxl]\nExec=/usr/libexec/imgjail-editor-jxl\nOperations=Clip,Rotate\nCreator=true\nCreatorEncodingQuality=true\n")
	t.Setenv("IMGJAIL_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	editor, ok := cfg.Editor("image/jxl")
	require.True(t, ok)
	assert.Equal(t, []string{"Clip", "Rotate"}, editor.Operations)
	assert.True(t, editor.Creator)
	assert.True(t, editor.CreatorEncodingQuality)
	assert.False(t, editor.CreatorColorIccProfile)
}

func TestHashGroupsIdenticalSpawnConfigs(t *testing.T) {
	a := LoaderConfig{Exec: "x", ExposeBaseDir: true, Fontconfig: false}
	b := LoaderConfig{Exec: "x", ExposeBaseDir: true, Fontconfig: false}
	assert.Equal(t, a.Hash("/tmp", "bwrap"), b.Hash("/tmp", "bwrap"))

	c := LoaderConfig{Exec: "x", ExposeBaseDir: true, Fontconfig: true}
	assert.NotEqual(t, a.Hash("/tmp", "bwrap"), c.Hash("/tmp", "bwrap"))
}
