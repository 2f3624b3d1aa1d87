package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/matiasinsaurralde/relatorio/pkg/cleaner"
	"github.com/matiasinsaurralde/relatorio/pkg/config"
	"github.com/matiasinsaurralde/relatorio/pkg/docx"
	"github.com/matiasinsaurralde/relatorio/pkg/layout"
	"github.com/matiasinsaurralde/relatorio/pkg/marker"
	"github.com/matiasinsaurralde/relatorio/pkg/photo"
	"github.com/matiasinsaurralde/relatorio/pkg/report"
	"github.com/matiasinsaurralde/relatorio/pkg/store"
	"github.com/rs/zerolog"
)

// Processor wraps the report generation logic:
type Processor struct {
	// cfg is the main configuration:
	cfg *config.Config
	// store is the main store:
	store *store.Store
	// logger is the main logger:
	logger zerolog.Logger
	// profile is the document layout:
	profile *layout.Profile
	// cleaner rewrites narratives when a report asks for it:
	cleaner cleaner.Cleaner
	// photos prepares uploads for embedding:
	photos *photo.Preparer
	// now is replaced in tests:
	now func() time.Time
}

// Result summarizes a generated document:
type Result struct {
	ReportID string
	FileName string
	// Path is empty for Render:
	Path     string
	Embedded int
	// Missing holds the marker numbers that pointed past the uploads:
	Missing []int
	// Failed holds the names of uploads that could not be embedded:
	Failed  []string
	Cleaned bool
}

// Generate validates the report, renders it to OutputPath and stores a record:
func (p *Processor) Generate(ctx context.Context, r *report.Report) (*Result, error) {
	doc, result, err := p.build(ctx, r)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(p.cfg.OutputPath, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(p.cfg.OutputPath, r.ID+".docx")
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := doc.Write(f, r.CreatedAt); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}
	result.Path = path

	record := &store.Record{
		ID:         r.ID,
		Title:      r.Case.Title,
		OPJ:        r.Case.OPJ,
		FileName:   result.FileName,
		Path:       path,
		CreatedAt:  r.CreatedAt,
		PhotoCount: len(r.Photos),
		Embedded:   result.Embedded,
		Cleaned:    result.Cleaned,
	}
	// A document the store doesn't know about can't be listed or deleted:
	if err := p.store.AppendReport(record); err != nil {
		os.Remove(path)
		return nil, err
	}
	p.logger.Info().
		Str("id", r.ID).
		Str("file", path).
		Int("photos", len(r.Photos)).
		Int("embedded", result.Embedded).
		Msg("report generated")
	return result, nil
}

// Render writes the document to w without storing it:
func (p *Processor) Render(ctx context.Context, r *report.Report, w io.Writer) (*Result, error) {
	doc, result, err := p.build(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := doc.Write(w, r.CreatedAt); err != nil {
		return nil, err
	}
	return result, nil
}

// build runs the pipeline up to an assembled, unwritten document:
func (p *Processor) build(ctx context.Context, r *report.Report) (*docx.Document, *Result, error) {
	r.Normalize(p.now())
	if err := r.Validate(); err != nil {
		return nil, nil, err
	}
	result := &Result{ReportID: r.ID, FileName: r.FileName()}

	narrative := r.Narrative
	if r.Clean {
		if cleaned, err := p.clean(ctx, narrative); err != nil {
			p.logger.Warn().Err(err).Str("id", r.ID).Msg("narrative clean up failed, keeping the original text")
		} else {
			narrative = cleaned
			result.Cleaned = true
		}
	}

	prepared, err := p.photos.PrepareAll(ctx, r.Photos)
	if err != nil {
		return nil, nil, err
	}

	doc := docx.New(p.profile, docx.Meta{
		Title:   r.Case.Title,
		Subject: r.Case.OPJ,
		Author:  r.Investigator,
	})
	a := assembler{doc: doc, profile: p.profile, prepared: prepared, result: result}
	a.assemble(r, narrative)
	return doc, result, nil
}

func (p *Processor) clean(ctx context.Context, narrative string) (string, error) {
	if p.cfg.CleanerConfig.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CleanerConfig.Timeout)
		defer cancel()
	}
	ts := time.Now()
	cleaned, err := p.cleaner.Clean(ctx, narrative)
	if err != nil {
		return "", err
	}
	p.logger.Debug().Msgf("narrative cleaned - took %d ms", time.Since(ts).Milliseconds())
	return cleaned, nil
}

// assembler fills the template regions of one document:
type assembler struct {
	doc      *docx.Document
	profile  *layout.Profile
	prepared []photo.Prepared
	result   *Result
	failed   map[int]bool
}

func (a *assembler) assemble(r *report.Report, narrative string) {
	a.doc.Title(a.profile.Title.Text)

	// Metadata block, empty fields are skipped:
	a.doc.MetaLine("Caso", r.Case.Title)
	a.doc.MetaLine("OPJ", r.Case.OPJ)
	a.doc.MetaLine("Número", r.Case.Number)
	a.doc.MetaLine("Natureza", r.Case.Nature)
	a.doc.MetaLine("Local", r.Case.Location)
	a.doc.MetaLine("Unidade", r.Case.Unit)
	a.doc.MetaLine("Data", r.DateText())
	a.doc.MetaLine("Investigador", r.Investigator)

	if len(r.Subjects) > 0 {
		a.doc.Heading("Envolvidos")
		for _, s := range r.Subjects {
			a.doc.MetaLine(s.Role.Label(), s.Name)
			a.doc.MetaLine("Documento", s.Document)
			a.doc.MetaLine("Endereço", s.Address)
			a.doc.MetaLine("Telefone", s.Phone)
			a.doc.MetaLine("Observações", s.Notes)
		}
	}

	a.doc.Heading("Relato dos fatos")
	segments := marker.Split(narrative, len(a.prepared), a.profile.Markers.Policy)
	for _, seg := range segments {
		switch seg.Kind {
		case marker.KindText:
			a.doc.Paragraph(seg.Text)
		case marker.KindImage:
			a.embed(seg.Index)
		case marker.KindMissing:
			a.doc.Note(seg.Text)
			a.result.Missing = append(a.result.Missing, seg.Index+1)
		}
	}

	// Uploads never referenced by a marker go to the annex:
	refs := marker.Referenced(segments)
	annex := make([]int, 0)
	for i := range a.prepared {
		if !refs[i] {
			annex = append(annex, i)
		}
	}
	if len(annex) > 0 {
		a.doc.PageBreak()
		a.doc.Heading(a.profile.Annex.Heading)
		for _, i := range annex {
			a.embed(i)
		}
	}

	signers := make([]docx.Signer, 0)
	for _, s := range r.Signers() {
		signers = append(signers, docx.Signer{Name: s.Name, Role: s.Role, Registry: s.Registry})
	}
	a.doc.Signatures(a.profile.Signature.Place, r.DateText(), signers)
}

// embed draws photo i, or a placeholder when it could not be prepared:
func (a *assembler) embed(i int) {
	prep := a.prepared[i]
	err := prep.Err
	if err == nil {
		err = a.doc.Image(prep.Data, Caption(&prep, i+1))
	}
	if err != nil {
		a.doc.Note(fmt.Sprintf("[imagem indisponível: %s]", prep.Name))
		if a.failed == nil {
			a.failed = make(map[int]bool)
		}
		if !a.failed[i] {
			a.failed[i] = true
			a.result.Failed = append(a.result.Failed, prep.Name)
		}
		return
	}
	a.result.Embedded++
}

// Caption builds "Foto n - caption (details)":
func Caption(prep *photo.Prepared, n int) string {
	caption := fmt.Sprintf("Foto %d", n)
	if prep.Caption != "" {
		caption += " - " + prep.Caption
	}
	if details := prep.Details(); details != "" {
		caption += " (" + details + ")"
	}
	return caption
}

// New initializes a new processor with the given components:
func New(cfg *config.Config, store *store.Store, profile *layout.Profile, cl cleaner.Cleaner, photos *photo.Preparer, logger zerolog.Logger) *Processor {
	p := &Processor{
		cfg:     cfg,
		store:   store,
		profile: profile,
		cleaner: cl,
		photos:  photos,
		logger:  logger,
		now:     time.Now,
	}
	return p
}
