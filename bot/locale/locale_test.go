package locale

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingEnglishFallsBack(t *testing.T) {
	pack, err := Load(t.TempDir(), "en")
	require.NoError(t, err)
	assert.Equal(t, Builtin().Start, pack.Start)
}

func TestLoadMissingOtherLanguageFails(t *testing.T) {
	_, err := Load(t.TempDir(), "fr")
	assert.Error(t, err)
}

func TestLoadOverlaysBuiltin(t *testing.T) {
	dir := t.TempDir()
	content := `{"start": "custom start", "secs": "%d seconds"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.json"), []byte(content), 0644))

	pack, err := Load(dir, "en")
	require.NoError(t, err)

	assert.Equal(t, "custom start", pack.Start)
	assert.Equal(t, "5 seconds", pack.FormatSecs(5))
	assert.Equal(t, Builtin().Help, pack.Help, "missing keys keep builtin values")
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zh.json"), []byte("{not json"), 0644))

	_, err := Load(dir, "zh")
	assert.Error(t, err)
}

func TestFormatters(t *testing.T) {
	pack := Builtin()

	searchLine := pack.FormatLogSearch("Alice (alice)", "320", "Artist", "Title", "https://music.163.com/#/song?id=1")
	assert.Contains(t, searchLine, "320kbps")
	assert.Contains(t, searchLine, "https://music.163.com/#/song?id=1")
	assert.Contains(t, pack.FormatLogStart("Bob (42)"), "Bob (42)")
	assert.Contains(t, pack.FormatSongText("Title", "https://p", "[A](u)", "https://s"), "[Title](https://p)")
}
