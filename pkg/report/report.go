package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/matiasinsaurralde/relatorio/pkg/types"
	"golang.org/x/text/unicode/norm"
)

// DateLayout is the date format used across the generated documents:
const DateLayout = "02/01/2006"

const maxFileNameRunes = 80

var (
	// ErrInvalid is wrapped by every validation error so callers can map them to a 400:
	ErrInvalid = errors.New("relatório inválido")

	ErrMissingTitle     = fmt.Errorf("%w: preencha o título", ErrInvalid)
	ErrMissingNarrative = fmt.Errorf("%w: preencha o relato", ErrInvalid)
	ErrUnsupportedPhoto = fmt.Errorf("%w: formato de arquivo não suportado", ErrInvalid)
)

// Report is the main report struct, filled from the web form, the CLI or the MCP tool:
type Report struct {
	// ID is assigned on Normalize when empty:
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Case         Case      `json:"case"`
	Investigator string    `json:"investigator"`
	Subjects     []Subject `json:"subjects"`
	// Narrative may reference photos with [FOTOn] markers:
	Narrative   string      `json:"narrative"`
	Photos      []Photo     `json:"-"`
	Signatories []Signatory `json:"signatories"`
	// Clean asks for the narrative to be rewritten by the configured LLM:
	Clean bool `json:"clean"`
}

// Case holds the metadata block printed under the title:
type Case struct {
	Title    string `json:"title"`
	OPJ      string `json:"opj"`
	Number   string `json:"number"`
	Nature   string `json:"nature"`
	Location string `json:"location"`
	Unit     string `json:"unit"`
	// Date is free text as typed, CreatedAt is used when empty:
	Date string `json:"date"`
}

// Subject identifies a suspect, witness or victim:
type Subject struct {
	Role     types.SubjectRole `json:"role"`
	Name     string            `json:"name"`
	Document string            `json:"document"`
	Address  string            `json:"address"`
	Phone    string            `json:"phone"`
	Notes    string            `json:"notes"`
}

// Photo is an uploaded evidence file, in upload order:
type Photo struct {
	Name        string
	Caption     string
	ContentType string
	Data        []byte
}

// Signatory is one entry of the dynamic signature block:
type Signatory struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Registry string `json:"registry"`
}

// Normalize trims every field, assigns ID/CreatedAt and drops empty subjects and signatories:
func (r *Report) Normalize(now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.Case.Title = strings.TrimSpace(r.Case.Title)
	r.Case.OPJ = strings.TrimSpace(r.Case.OPJ)
	r.Case.Number = strings.TrimSpace(r.Case.Number)
	r.Case.Nature = strings.TrimSpace(r.Case.Nature)
	r.Case.Location = strings.TrimSpace(r.Case.Location)
	r.Case.Unit = strings.TrimSpace(r.Case.Unit)
	r.Case.Date = strings.TrimSpace(r.Case.Date)
	r.Investigator = strings.TrimSpace(r.Investigator)
	r.Narrative = strings.TrimSpace(strings.ReplaceAll(r.Narrative, "\r\n", "\n"))

	subjects := make([]Subject, 0, len(r.Subjects))
	for _, s := range r.Subjects {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}
		s.Role = types.ParseSubjectRole(strings.ToLower(strings.TrimSpace(string(s.Role))))
		s.Document = strings.TrimSpace(s.Document)
		s.Address = strings.TrimSpace(s.Address)
		s.Phone = strings.TrimSpace(s.Phone)
		s.Notes = strings.TrimSpace(s.Notes)
		subjects = append(subjects, s)
	}
	r.Subjects = subjects

	signatories := make([]Signatory, 0, len(r.Signatories))
	for _, s := range r.Signatories {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}
		s.Role = strings.TrimSpace(s.Role)
		s.Registry = strings.TrimSpace(s.Registry)
		signatories = append(signatories, s)
	}
	r.Signatories = signatories

	for i := range r.Photos {
		p := &r.Photos[i]
		p.Caption = strings.TrimSpace(p.Caption)
		if p.ContentType == "" || p.ContentType == "application/octet-stream" {
			p.ContentType = http.DetectContentType(p.Data)
		}
		// Strip parameters such as "; charset=":
		if idx := strings.IndexByte(p.ContentType, ';'); idx >= 0 {
			p.ContentType = strings.TrimSpace(p.ContentType[:idx])
		}
		if p.ContentType == "image/jpg" || p.ContentType == "image/pjpeg" {
			p.ContentType = types.ContentTypeJPEG
		}
	}
}

// Validate checks the required fields and the uploaded file types:
func (r *Report) Validate() error {
	if r.Case.Title == "" {
		return ErrMissingTitle
	}
	if r.Narrative == "" {
		return ErrMissingNarrative
	}
	for _, p := range r.Photos {
		switch p.ContentType {
		case types.ContentTypeJPEG, types.ContentTypePNG, types.ContentTypePDF:
		default:
			return fmt.Errorf("%w: %s (%s)", ErrUnsupportedPhoto, p.Name, p.ContentType)
		}
	}
	return nil
}

// DateText returns the case date, falling back to the creation date:
func (r *Report) DateText() string {
	if r.Case.Date != "" {
		return r.Case.Date
	}
	return r.CreatedAt.Format(DateLayout)
}

// Signers returns the signature block entries, the investigator signs alone when none were given:
func (r *Report) Signers() []Signatory {
	if len(r.Signatories) > 0 {
		return r.Signatories
	}
	if r.Investigator == "" {
		return nil
	}
	return []Signatory{{Name: r.Investigator, Role: "Investigador"}}
}

// FileName returns the download name, e.g. Relatorio_Furto_em_residencia.docx:
func (r *Report) FileName() string {
	slug := Slug(r.Case.Title)
	if slug == "" {
		return "Relatorio.docx"
	}
	return "Relatorio_" + slug + ".docx"
}

// Slug folds accents and replaces anything outside [A-Za-z0-9-] with single underscores:
func Slug(s string) string {
	var b strings.Builder
	underscore := false
	count := 0
	for _, c := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, c) {
			continue
		}
		if count >= maxFileNameRunes {
			break
		}
		switch {
		case c < unicode.MaxASCII && (unicode.IsLetter(c) || unicode.IsDigit(c) || c == '-'):
			b.WriteRune(c)
			underscore = false
			count++
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
			count++
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// Decode reads a JSON report body, photos are attached separately:
func Decode(rd io.Reader) (*Report, error) {
	var r Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err.Error())
	}
	return &r, nil
}

// ReadPhoto loads an evidence file from disk:
func ReadPhoto(path, caption string) (Photo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Photo{}, err
	}
	return Photo{
		Name:    filepath.Base(path),
		Caption: caption,
		Data:    data,
	}, nil
}
