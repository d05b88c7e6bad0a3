package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/manvip28/Eval-Me-Maybe/internal/store"
)

// handleUploadEvaluation evaluates a multipart upload of "student" and
// "answer_key" files. Re-uploading identical files returns the stored run.
func (h *Handler) handleUploadEvaluation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		http.Error(w, "file too large or malformed form", bodyErrorStatus(err))
		return
	}

	studentData, studentName, err := readFormFile(r, "student")
	if err != nil {
		http.Error(w, "no student file uploaded", http.StatusBadRequest)
		return
	}
	keyData, keyName, err := readFormFile(r, "answer_key")
	if err != nil {
		http.Error(w, "no answer_key file uploaded", http.StatusBadRequest)
		return
	}

	path := "upload:" + keyName + "|" + studentName
	sum := sha256.New()
	sum.Write(keyData)
	sum.Write([]byte{0})
	sum.Write(studentData)
	hash := hex.EncodeToString(sum.Sum(nil))

	prev, err := h.runs.GetImportedFile(path)
	if err != nil {
		slog.Error("failed to check import status", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if prev != nil && prev.Hash == hash {
		run, err := h.runs.GetRun(prev.RunID)
		if err != nil {
			slog.Error("failed to get run", "run_id", prev.RunID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if run != nil {
			slog.Info("upload unchanged, returning stored run", "path", path, "run_id", run.ID)
			writeJSON(w, http.StatusOK, evaluationResponse{RunID: run.ID, Duplicate: true, Report: run.Report})
			return
		}
	}

	student, key, err := decodeSheets(studentData, keyData)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := r.FormValue("student_name")
	run, err := h.evaluate(r.Context(), name, studentName, student, key)
	if err != nil {
		slog.Error("failed to save run", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := h.runs.SetImportedFile(store.ImportedFile{Path: path, Hash: hash, RunID: run.ID}); err != nil {
		slog.Error("failed to record import", "error", err)
	}
	writeJSON(w, http.StatusCreated, evaluationResponse{RunID: run.ID, Report: run.Report})
}

func readFormFile(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, formName(header), nil
}

func formName(h *multipart.FileHeader) string {
	if h.Filename == "" {
		return "unnamed"
	}
	return h.Filename
}
