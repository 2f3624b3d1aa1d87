package app

import (
	"archive/zip"
	"bytes"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matiasinsaurralde/relatorio/pkg/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) (*App, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.StorePath = filepath.Join(dir, "data", "data.json")
	cfg.OutputPath = filepath.Join(dir, "output")
	a := New(cfg, zerolog.Nop())
	require.NoError(t, a.Init())
	var out bytes.Buffer
	a.Writer = &out
	return a, &out, dir
}

func writeFixtures(t *testing.T, dir string) (string, string) {
	t.Helper()
	reportPath := filepath.Join(dir, "relatorio.json")
	body := `{"case":{"title":"Furto em residência"},"investigator":"Ana","narrative":"Entrada.\n[FOTO1]"}`
	require.NoError(t, os.WriteFile(reportPath, []byte(body), 0o644))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	photoPath := filepath.Join(dir, "porta.png")
	require.NoError(t, os.WriteFile(photoPath, buf.Bytes(), 0o644))
	return reportPath, photoPath
}

func TestInitCreatesDirectories(t *testing.T) {
	a, _, _ := newApp(t)
	assert.DirExists(t, a.cfg.OutputPath)
	assert.FileExists(t, a.cfg.StorePath)
	assert.NotNil(t, a.processor)
}

func TestInitRejectsBadLayout(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	cfg.StorePath = filepath.Join(dir, "data.json")
	cfg.OutputPath = filepath.Join(dir, "output")
	cfg.LayoutPath = filepath.Join(dir, "missing.yaml")
	assert.Error(t, New(cfg, zerolog.Nop()).Init())
}

func TestGenerateAndList(t *testing.T) {
	a, out, dir := newApp(t)
	reportPath, photoPath := writeFixtures(t, dir)

	require.NoError(t, a.Run([]string{"relatorio", "gerar", "-r", reportPath, "-f", photoPath, "--legenda", "porta"}))
	generated := strings.TrimSpace(out.String())
	assert.FileExists(t, generated)
	assert.Equal(t, 1, a.store.GetReportCount())

	out.Reset()
	require.NoError(t, a.Run([]string{"relatorio", "l"}))
	assert.Contains(t, out.String(), "Furto em residência")
	assert.Contains(t, out.String(), "1/1")
}

func TestGenerateToFile(t *testing.T) {
	a, out, dir := newApp(t)
	reportPath, _ := writeFixtures(t, dir)
	target := filepath.Join(dir, "saida.docx")

	require.NoError(t, a.Run([]string{"relatorio", "g", "-r", reportPath, "-o", target}))
	assert.Equal(t, target, strings.TrimSpace(out.String()))
	assert.FileExists(t, target)
	assert.Equal(t, 0, a.store.GetReportCount())
}

func TestGenerateInvalidReport(t *testing.T) {
	a, _, dir := newApp(t)
	reportPath := filepath.Join(dir, "vazio.json")
	require.NoError(t, os.WriteFile(reportPath, []byte(`{"narrative":"sem título"}`), 0o644))
	target := filepath.Join(dir, "saida.docx")

	assert.Error(t, a.Run([]string{"relatorio", "g", "-r", reportPath, "-o", target}))
	assert.NoFileExists(t, target)
}

func documentXML(t *testing.T, path string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(raw)
	}
	t.Fatal("word/document.xml not found")
	return ""
}

func TestGenerateCaptionWithComma(t *testing.T) {
	a, _, dir := newApp(t)
	reportPath, photoPath := writeFixtures(t, dir)
	target := filepath.Join(dir, "saida.docx")

	require.NoError(t, a.Run([]string{"relatorio", "gerar", "-r", reportPath,
		"-f", photoPath, "-f", photoPath,
		"--legenda", "Porta, lado norte", "--legenda", "Janela",
		"-o", target}))

	doc := documentXML(t, target)
	assert.Contains(t, doc, "Foto 1 - Porta, lado norte")
	assert.Contains(t, doc, "Foto 2 - Janela")
	assert.NotContains(t, doc, "Foto 2 - lado norte")
}
