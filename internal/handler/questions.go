package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eambriza/pmp-coach/internal/model"
	"github.com/eambriza/pmp-coach/internal/parser"
)

const maxUploadSize = 10 << 20

type uploadResponse struct {
	Duplicate bool             `json:"duplicate"`
	Status    parser.JobStatus `json:"status"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	hash := parser.HashData(data)
	last, err := h.imports.LastImport()
	if err != nil {
		slog.Error("failed to check import status", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if last != nil && last.Hash == hash && len(h.engine.Questions()) > 0 {
		slog.Info("question file already loaded, skipping", "filename", header.Filename)
		respond(w, r, http.StatusOK, uploadResponse{Duplicate: true, Status: h.importer.Status()}, "ImportDuplicate")
		return
	}

	if !h.importer.Start(context.WithoutCancel(r.Context()), header.Filename, data) {
		respond(w, r, http.StatusConflict, errorResponse{Error: "another import is in progress"}, "ImportBusy")
		return
	}
	slog.Info("started question import", "filename", header.Filename, "bytes", len(data))
	respond(w, r, http.StatusAccepted, uploadResponse{Status: h.importer.Status()}, "")
}

func (h *Handler) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.importer.Status())
}

// handleExport downloads the question pool, or with ?subset=incorrect the
// questions the current session got wrong, as CSV or (?format=xlsx) XLSX.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		questions []model.Question
		filename  string
	)
	switch q.Get("subset") {
	case "", "all":
		questions = h.engine.Questions()
		filename = "pmp-questions.csv"
	case "incorrect":
		questions = h.engine.IncorrectQuestions()
		filename = parser.IncorrectExportFilename
	default:
		http.Error(w, "subset must be all or incorrect", http.StatusBadRequest)
		return
	}

	var (
		buf         bytes.Buffer
		err         error
		contentType string
	)
	switch q.Get("format") {
	case "", "csv":
		contentType = "text/csv; charset=utf-8"
		err = parser.WriteCSV(&buf, questions)
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = strings.TrimSuffix(filename, ".csv") + ".xlsx"
		err = parser.WriteXLSX(&buf, questions)
	default:
		http.Error(w, "format must be csv or xlsx", http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("export failed", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(buf.Bytes())
}
