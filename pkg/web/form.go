package web

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/matiasinsaurralde/relatorio/pkg/report"
	"github.com/matiasinsaurralde/relatorio/pkg/types"
)

const (
	minSubjectRows   = 3
	minSignatoryRows = 2
)

// formData is passed to the form template:
type formData struct {
	Error       string
	Report      *report.Report
	Subjects    []report.Subject
	Signatories []report.Signatory
	Captions    string
	Roles       []types.SubjectRole
	Reports     any
}

func newFormData(r *report.Report) *formData {
	if r == nil {
		r = &report.Report{}
	}
	data := &formData{
		Report:      r,
		Subjects:    append([]report.Subject{}, r.Subjects...),
		Signatories: append([]report.Signatory{}, r.Signatories...),
		Roles:       types.SubjectRoles,
	}
	for len(data.Subjects) < minSubjectRows {
		data.Subjects = append(data.Subjects, report.Subject{Role: types.SubjectRoleSuspect})
	}
	for len(data.Signatories) < minSignatoryRows {
		data.Signatories = append(data.Signatories, report.Signatory{})
	}
	captions := make([]string, 0, len(r.Photos))
	for _, p := range r.Photos {
		captions = append(captions, p.Caption)
	}
	data.Captions = strings.Join(captions, "\n")
	return data
}

// parseForm maps the multipart form into a report.
// Repeated fields (subject_*, signatory_*) are aligned by position:
func parseForm(req *http.Request, maxMemory int64) (*report.Report, error) {
	if err := req.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}
	form := req.MultipartForm
	value := func(key string) string {
		return strings.TrimSpace(req.FormValue(key))
	}

	r := &report.Report{
		Case: report.Case{
			Title:    value("title"),
			OPJ:      value("opj"),
			Number:   value("number"),
			Nature:   value("nature"),
			Location: value("location"),
			Unit:     value("unit"),
			Date:     value("date"),
		},
		Investigator: value("investigator"),
		Narrative:    req.FormValue("narrative"),
		Clean:        req.FormValue("clean") != "",
	}

	names := form.Value["subject_name"]
	for i := range names {
		r.Subjects = append(r.Subjects, report.Subject{
			Role:     types.SubjectRole(at(form.Value["subject_role"], i)),
			Name:     names[i],
			Document: at(form.Value["subject_document"], i),
			Address:  at(form.Value["subject_address"], i),
			Phone:    at(form.Value["subject_phone"], i),
			Notes:    at(form.Value["subject_notes"], i),
		})
	}

	signatories := form.Value["signatory_name"]
	for i := range signatories {
		r.Signatories = append(r.Signatories, report.Signatory{
			Name:     signatories[i],
			Role:     at(form.Value["signatory_role"], i),
			Registry: at(form.Value["signatory_registry"], i),
		})
	}

	captions := strings.Split(strings.ReplaceAll(req.FormValue("legendas"), "\r\n", "\n"), "\n")
	for i, fh := range form.File["fotos"] {
		photo, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		photo.Caption = strings.TrimSpace(at(captions, i))
		r.Photos = append(r.Photos, photo)
	}
	return r, nil
}

// readUpload loads one uploaded file:
func readUpload(fh *multipart.FileHeader) (report.Photo, error) {
	f, err := fh.Open()
	if err != nil {
		return report.Photo{}, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return report.Photo{}, fmt.Errorf("reading %s: %w", fh.Filename, err)
	}
	return report.Photo{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
