package processor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matiasinsaurralde/relatorio/pkg/config"
	"github.com/matiasinsaurralde/relatorio/pkg/layout"
	"github.com/matiasinsaurralde/relatorio/pkg/photo"
	"github.com/matiasinsaurralde/relatorio/pkg/report"
	"github.com/matiasinsaurralde/relatorio/pkg/store"
	"github.com/matiasinsaurralde/relatorio/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)

type fakeCleaner struct {
	out string
	err error
}

func (f fakeCleaner) Clean(context.Context, string) (string, error) {
	return f.out, f.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 30))))
	return buf.Bytes()
}

func newProcessor(t *testing.T, cl fakeCleaner) (*Processor, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.OutputPath = filepath.Join(dir, "out")
	cfg.StorePath = filepath.Join(dir, "data.json")
	s := store.New(cfg.StorePath, zerolog.Nop())
	require.NoError(t, s.Init())
	p := New(cfg, s, layout.Default(), cl, photo.New(cfg.MaxPhotoWidth, cfg.Workers, nil, zerolog.Nop()), zerolog.Nop())
	p.now = func() time.Time { return fixedNow }
	return p, s
}

func documentXML(t *testing.T, data []byte) (string, []string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var doc string
	names := make([]string, 0)
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		raw, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		doc = string(raw)
	}
	return doc, names
}

func sampleReport(t *testing.T) *report.Report {
	return &report.Report{
		Case:         report.Case{Title: "Furto em residência", OPJ: "Operação Aurora"},
		Investigator: "Ana Souza",
		Subjects:     []report.Subject{{Role: types.SubjectRoleWitness, Name: "Carlos"}},
		Narrative:    "Chegamos ao local.\n[FOTO1]\nA porta estava arrombada.\n[FOTO5]",
		Photos: []report.Photo{
			{Name: "porta.png", Caption: "porta", ContentType: types.ContentTypePNG, Data: pngBytes(t)},
			{Name: "rua.png", ContentType: types.ContentTypePNG, Data: pngBytes(t)},
			{Name: "quebrada.jpg", ContentType: types.ContentTypeJPEG, Data: []byte("not a jpeg")},
		},
	}
}

func TestGenerate(t *testing.T) {
	p, s := newProcessor(t, fakeCleaner{})
	r := sampleReport(t)

	result, err := p.Generate(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, r.ID, result.ReportID)
	assert.Equal(t, "Relatorio_Furto_em_residencia.docx", result.FileName)
	assert.Equal(t, 2, result.Embedded)
	assert.Equal(t, []int{5}, result.Missing)
	assert.Equal(t, []string{"quebrada.jpg"}, result.Failed)
	assert.False(t, result.Cleaned)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	doc, names := documentXML(t, data)
	assert.Contains(t, names, "word/media/image1.png")
	assert.Contains(t, names, "word/media/image2.png")
	assert.Contains(t, doc, "Operação Aurora")
	assert.Contains(t, doc, "Testemunha")
	assert.Contains(t, doc, "Foto 1 - porta")
	assert.Contains(t, doc, "[FOTO5 não encontrada]")
	assert.Contains(t, doc, "Anexo fotográfico")
	assert.Contains(t, doc, `<w:br w:type="page"/>`)
	assert.Contains(t, doc, "Foto 2")
	assert.Contains(t, doc, "[imagem indisponível: quebrada.jpg]")
	assert.Contains(t, doc, "05/03/2024.")
	assert.Contains(t, doc, "Ana Souza")

	record, err := s.RetrieveReport(r.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, record.PhotoCount)
	assert.Equal(t, 2, record.Embedded)
	assert.Equal(t, result.Path, record.Path)
	assert.Equal(t, fixedNow, record.CreatedAt)
}

func TestGenerateValidation(t *testing.T) {
	p, s := newProcessor(t, fakeCleaner{})
	_, err := p.Generate(context.Background(), &report.Report{Narrative: "sem título"})
	assert.ErrorIs(t, err, report.ErrMissingTitle)
	assert.Equal(t, 0, s.GetReportCount())
}

func TestCleanUsedWhenRequested(t *testing.T) {
	p, _ := newProcessor(t, fakeCleaner{out: "Texto revisado pelo modelo."})
	r := &report.Report{Case: report.Case{Title: "t"}, Narrative: "texto orignal", Clean: true}

	var buf bytes.Buffer
	result, err := p.Render(context.Background(), r, &buf)
	require.NoError(t, err)
	assert.True(t, result.Cleaned)
	assert.Empty(t, result.Path)

	doc, _ := documentXML(t, buf.Bytes())
	assert.Contains(t, doc, "Texto revisado pelo modelo.")
	assert.NotContains(t, doc, "texto orignal")
}

func TestCleanFailureKeepsOriginal(t *testing.T) {
	p, _ := newProcessor(t, fakeCleaner{err: errors.New("quota")})
	r := &report.Report{Case: report.Case{Title: "t"}, Narrative: "texto original", Clean: true}

	var buf bytes.Buffer
	result, err := p.Render(context.Background(), r, &buf)
	require.NoError(t, err)
	assert.False(t, result.Cleaned)

	doc, _ := documentXML(t, buf.Bytes())
	assert.Contains(t, doc, "texto original")
}

func TestRenderIsDeterministic(t *testing.T) {
	p, _ := newProcessor(t, fakeCleaner{})
	render := func() []byte {
		r := sampleReport(t)
		r.ID = "fixed-id"
		var buf bytes.Buffer
		_, err := p.Render(context.Background(), r, &buf)
		require.NoError(t, err)
		return buf.Bytes()
	}
	assert.Equal(t, render(), render())
}

func TestCaption(t *testing.T) {
	prep := &photo.Prepared{Caption: "fachada", Metadata: photo.Metadata{HasGPS: true, Lat: 1, Long: 2}}
	assert.Equal(t, "Foto 3 - fachada (1.000000, 2.000000)", Caption(prep, 3))
	assert.Equal(t, "Foto 1", Caption(&photo.Prepared{}, 1))
}

func TestGenerateRemovesDocumentWhenStoreFails(t *testing.T) {
	p, s := newProcessor(t, fakeCleaner{})
	require.NoError(t, os.Mkdir(p.cfg.StorePath+".tmp", 0o755))

	_, err := p.Generate(context.Background(), sampleReport(t))
	require.Error(t, err)
	assert.Equal(t, 0, s.GetReportCount())

	entries, err := os.ReadDir(p.cfg.OutputPath)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
