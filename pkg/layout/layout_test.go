package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matiasinsaurralde/relatorio/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())
	assert.Equal(t, 21.0, p.Page.Width)
	assert.Equal(t, 1.5, p.Body.LineSpacing)
	assert.Equal(t, types.MarkerPolicyMark, p.Markers.Policy)
	assert.NotEmpty(t, p.Header.Lines)
	assert.InDelta(t, 16.0, p.ContentWidth(), 1e-9)
	assert.InDelta(t, 14.0, p.ImageWidth(), 1e-9)
}

func TestParsePartial(t *testing.T) {
	p, err := Parse([]byte("markers:\n  policy: drop\nfont:\n  size: 11\n"))
	require.NoError(t, err)
	assert.Equal(t, types.MarkerPolicyDrop, p.Markers.Policy)
	assert.Equal(t, 11.0, p.Font.Size)
	// Untouched keys keep the embedded values:
	assert.Equal(t, "Times New Roman", p.Font.Family)
	assert.Equal(t, 3.0, p.Margins.Left)
}

func TestParseInvalid(t *testing.T) {
	tests := map[string]string{
		"zero font":      "font:\n  size: 0\n",
		"bad policy":     "markers:\n  policy: explode\n",
		"huge margins":   "margins:\n  left: 11\n  right: 11\n",
		"negative":       "margins:\n  top: -1\n",
		"malformed yaml": "font: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestImageWidthClampedToColumn(t *testing.T) {
	p, err := Parse([]byte("images:\n  max_width: 30\n"))
	require.NoError(t, err)
	assert.InDelta(t, p.ContentWidth(), p.ImageWidth(), 1e-9)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte("png-bytes"), 0o600))
	path := filepath.Join(dir, "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("header:\n  logo: logo.png\n"), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), p.Header.LogoData)

	p, err = Load("")
	require.NoError(t, err)
	assert.Nil(t, p.Header.LogoData)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
