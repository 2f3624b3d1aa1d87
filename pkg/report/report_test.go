package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matiasinsaurralde/relatorio/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestNormalize(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	r := Report{
		Case:      Case{Title: "  Furto  "},
		Narrative: "linha 1\r\nlinha 2\r\n",
		Subjects: []Subject{
			{Role: "Suspect", Name: " João "},
			{Role: "testemunha", Name: "   "},
		},
		Signatories: []Signatory{{Name: ""}, {Name: "Maria", Role: " Escrivã "}},
		Photos:      []Photo{{Name: "a.png", Data: pngHeader}, {Name: "b.jpg", ContentType: "image/jpg"}},
	}
	r.Normalize(now)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, now, r.CreatedAt)
	assert.Equal(t, "Furto", r.Case.Title)
	assert.Equal(t, "linha 1\nlinha 2", r.Narrative)
	require.Len(t, r.Subjects, 1)
	assert.Equal(t, types.SubjectRoleSuspect, r.Subjects[0].Role)
	assert.Equal(t, "João", r.Subjects[0].Name)
	require.Len(t, r.Signatories, 1)
	assert.Equal(t, "Escrivã", r.Signatories[0].Role)
	assert.Equal(t, types.ContentTypePNG, r.Photos[0].ContentType)
	assert.Equal(t, types.ContentTypeJPEG, r.Photos[1].ContentType)
}

func TestNormalizeKeepsID(t *testing.T) {
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Report{ID: "fixed", CreatedAt: created}
	r.Normalize(time.Now())
	assert.Equal(t, "fixed", r.ID)
	assert.Equal(t, created, r.CreatedAt)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		r    Report
		err  error
	}{
		{"ok", Report{Case: Case{Title: "t"}, Narrative: "n"}, nil},
		{"missing title", Report{Narrative: "n"}, ErrMissingTitle},
		{"missing narrative", Report{Case: Case{Title: "t"}}, ErrMissingNarrative},
		{
			"bad photo",
			Report{Case: Case{Title: "t"}, Narrative: "n", Photos: []Photo{{Name: "x.gif", ContentType: "image/gif"}}},
			ErrUnsupportedPhoto,
		},
		{
			"pdf evidence",
			Report{Case: Case{Title: "t"}, Narrative: "n", Photos: []Photo{{Name: "x.pdf", ContentType: types.ContentTypePDF}}},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestSigners(t *testing.T) {
	r := Report{Investigator: "Ana"}
	assert.Equal(t, []Signatory{{Name: "Ana", Role: "Investigador"}}, r.Signers())

	r.Signatories = []Signatory{{Name: "Bruno"}}
	assert.Equal(t, []Signatory{{Name: "Bruno"}}, r.Signers())

	assert.Nil(t, (&Report{}).Signers())
}

func TestDateText(t *testing.T) {
	r := Report{CreatedAt: time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)}
	assert.Equal(t, "31/12/2024", r.DateText())
	r.Case.Date = "01/01/2025"
	assert.Equal(t, "01/01/2025", r.DateText())
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"Furto em residência":   "Relatorio_Furto_em_residencia.docx",
		"OPJ 12/2024: Operação": "Relatorio_OPJ_12_2024_Operacao.docx",
		"   ":                   "Relatorio.docx",
		"***":                   "Relatorio.docx",
	}
	for title, want := range tests {
		r := Report{Case: Case{Title: title}}
		assert.Equal(t, want, r.FileName(), title)
	}
}

func TestDecode(t *testing.T) {
	r, err := Decode(strings.NewReader(`{"case":{"title":"Furto"},"narrative":"texto","clean":true}`))
	require.NoError(t, err)
	assert.Equal(t, "Furto", r.Case.Title)
	assert.True(t, r.Clean)

	_, err = Decode(strings.NewReader(`{"case":`))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestReadPhoto(t *testing.T) {
	path := filepath.Join(t.TempDir(), "porta.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o644))

	p, err := ReadPhoto(path, "porta")
	require.NoError(t, err)
	assert.Equal(t, "porta.png", p.Name)
	assert.Equal(t, "porta", p.Caption)
	assert.Equal(t, pngHeader, p.Data)

	_, err = ReadPhoto(filepath.Join(t.TempDir(), "nope.png"), "")
	assert.Error(t, err)
}
