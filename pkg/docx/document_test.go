package docx

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/matiasinsaurralde/relatorio/pkg/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func readParts(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	parts := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		contents, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		parts[f.Name] = string(contents)
	}
	return parts
}

func sampleDocument(t *testing.T) *Document {
	d := New(layout.Default(), Meta{Title: "Furto <A&B>", Author: "Ana"})
	d.Title("RELATÓRIO")
	assert.True(t, d.MetaLine("OPJ", "Operação Aurora"))
	assert.False(t, d.MetaLine("Número", "  "))
	d.Heading("Relato")
	d.Paragraph("O suspeito disse \"não\" & saiu.")
	require.NoError(t, d.Image(testPNG(t, 800, 600), "Foto 1 - fachada"))
	d.Note("[FOTO9 não encontrada]")
	d.Signatures("Lisboa", "05/03/2024", []Signer{{Name: "Ana", Role: "Inspetora", Registry: "123"}})
	return d
}

func TestWriteParts(t *testing.T) {
	d := sampleDocument(t)
	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)))

	parts := readParts(t, buf.Bytes())
	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"docProps/core.xml",
		"docProps/app.xml",
		"word/document.xml",
		"word/_rels/document.xml.rels",
		"word/styles.xml",
		"word/header1.xml",
		"word/footer1.xml",
		"word/media/image1.png",
	} {
		assert.Contains(t, parts, name)
	}
	assert.NotContains(t, parts, "word/_rels/header1.xml.rels")

	doc := parts["word/document.xml"]
	assert.Contains(t, doc, "Operação Aurora")
	assert.NotContains(t, doc, "Número")
	assert.Contains(t, doc, "O suspeito disse &#34;não&#34; &amp; saiu.")
	assert.Contains(t, doc, `r:embed="rIdImg1"`)
	assert.Contains(t, doc, `<w:jc w:val="both"/>`)
	assert.Contains(t, doc, `w:line="360"`)
	assert.Contains(t, doc, `<w:ind w:firstLine="709"/>`)
	assert.Contains(t, doc, "Lisboa, 05/03/2024.")
	assert.Contains(t, doc, "Matrícula: 123")
	assert.Contains(t, doc, `<w:pgSz w:w="11906" w:h="16838"/>`)

	assert.Contains(t, parts["word/_rels/document.xml.rels"], `Target="media/image1.png"`)
	assert.Contains(t, parts["docProps/core.xml"], "Furto &lt;A&amp;B&gt;")
	assert.Contains(t, parts["docProps/core.xml"], "2024-03-05T10:00:00Z")
	assert.Contains(t, parts["word/footer1.xml"], "NUMPAGES")
	assert.Contains(t, parts["word/header1.xml"], "POLÍCIA JUDICIÁRIA")
	assert.Equal(t, 1, d.ImageCount())
}

func TestWriteIsDeterministic(t *testing.T) {
	mod := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	var first, second bytes.Buffer
	require.NoError(t, sampleDocument(t).Write(&first, mod))
	require.NoError(t, sampleDocument(t).Write(&second, mod))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestImageRejectsUnknownFormat(t *testing.T) {
	d := New(layout.Default(), Meta{})
	err := d.Image([]byte("definitely not an image"), "")
	assert.ErrorIs(t, err, errUnsupportedImage)
	assert.Equal(t, 0, d.ImageCount())
}

func TestHeaderLogo(t *testing.T) {
	p := layout.Default()
	p.Header.LogoData = testPNG(t, 100, 100)
	d := New(p, Meta{})
	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf, time.Unix(0, 0).AddDate(40, 0, 0)))

	parts := readParts(t, buf.Bytes())
	assert.Contains(t, parts, "word/media/logo.png")
	assert.Contains(t, parts["word/_rels/header1.xml.rels"], `Id="rIdLogo"`)
	assert.Contains(t, parts["word/header1.xml"], `r:embed="rIdLogo"`)
}

func TestFitEMU(t *testing.T) {
	cx, cy := fitEMU(100, 50, 14)
	assert.Equal(t, int64(952500), cx)
	assert.Equal(t, int64(476250), cy)

	// 4000px at 96 DPI is far wider than 14cm:
	cx, cy = fitEMU(4000, 2000, 14)
	assert.Equal(t, int64(14*emuPerCM), cx)
	assert.Equal(t, int64(7*emuPerCM), cy)

	cx, cy = fitEMU(0, 10, 14)
	assert.Zero(t, cx)
	assert.Zero(t, cy)
}

func TestUnits(t *testing.T) {
	assert.Equal(t, "1701", twips(3))
	assert.Equal(t, "24", halfPoints(12))
	assert.Equal(t, "120", pointTwips(6))
	assert.Equal(t, "360", lineSpacing(1.5))
}
