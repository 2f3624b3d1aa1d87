package web

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/matiasinsaurralde/relatorio/pkg/report"
	"github.com/matiasinsaurralde/relatorio/pkg/store"
	"github.com/matiasinsaurralde/relatorio/pkg/types"
)

const (
	msgTooLarge    = "Os arquivos enviados excedem o limite permitido."
	msgInvalidForm = "Não foi possível ler o formulário enviado."
	msgFailed      = "Não foi possível gerar o relatório."
)

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, http.StatusOK, newFormData(nil))
}

func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)
	rep, err := parseForm(r, s.cfg.MaxUploadSize)
	if err != nil {
		var tooLarge *http.MaxBytesError
		data := newFormData(nil)
		if errors.As(err, &tooLarge) {
			data.Error = msgTooLarge
			s.renderForm(w, http.StatusRequestEntityTooLarge, data)
			return
		}
		s.logger.Warn().Err(err).Msg("bad form")
		data.Error = msgInvalidForm
		s.renderForm(w, http.StatusBadRequest, data)
		return
	}

	result, err := s.processor.Generate(r.Context(), rep)
	if err != nil {
		data := newFormData(rep)
		if errors.Is(err, report.ErrInvalid) {
			data.Error = err.Error()
			s.renderForm(w, http.StatusBadRequest, data)
			return
		}
		s.logger.Error().Err(err).Msg("report generation failed")
		data.Error = msgFailed
		s.renderForm(w, http.StatusInternalServerError, data)
		return
	}

	w.Header().Set("X-Report-ID", result.ReportID)
	if len(result.Missing) > 0 {
		missing := make([]string, 0, len(result.Missing))
		for _, n := range result.Missing {
			missing = append(missing, strconv.Itoa(n))
		}
		w.Header().Set("X-Missing-Markers", strings.Join(missing, ","))
	}
	s.serveDocument(w, r, result.Path, result.FileName)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.store.RetrieveReports()); err != nil {
		s.logger.Error().Err(err).Msg("encoding report list")
	}
}

func (s *Server) downloadReport(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.RetrieveReport(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.serveDocument(w, r, record.Path, record.FileName)
}

func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteReport(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrReportNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		s.logger.Error().Err(err).Msg("deleting report")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// serveDocument streams a stored .docx as an attachment:
func (s *Server) serveDocument(w http.ResponseWriter, r *http.Request, path, fileName string) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("opening document")
		http.Error(w, "document not available", http.StatusNotFound)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", types.ContentTypeDOCX)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	http.ServeContent(w, r, fileName, info.ModTime(), f)
}

func (s *Server) renderForm(w http.ResponseWriter, status int, data *formData) {
	data.Reports = s.store.RetrieveReports()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, "form.html", data); err != nil {
		s.logger.Error().Err(err).Msg("rendering form")
	}
}
