package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/manvip28/Eval-Me-Maybe/internal/ingest"
	"github.com/manvip28/Eval-Me-Maybe/internal/model"
	"github.com/manvip28/Eval-Me-Maybe/internal/report"
	"github.com/manvip28/Eval-Me-Maybe/internal/store"
)

// maxBodyBytes limits request bodies to 10 MiB.
const maxBodyBytes = 10 << 20

// Evaluator scores a submission against an answer key.
type Evaluator interface {
	Evaluate(ctx context.Context, student, key *model.Sheet) model.EvaluationReport
}

// Runs persists evaluation runs.
type Runs interface {
	SaveRun(run model.Run) (string, error)
	GetRun(id string) (*model.Run, error)
	ListRuns() ([]model.RunInfo, error)
	GetImportedFile(path string) (*store.ImportedFile, error)
	SetImportedFile(f store.ImportedFile) error
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	runs      Runs
	evaluator Evaluator
	tokenHash []byte
}

// New creates a new Handler. A non-empty tokenHash is a bcrypt hash that
// API requests must present as a bearer token.
func New(runs Runs, evaluator Evaluator, tokenHash string) *Handler {
	return &Handler{runs: runs, evaluator: evaluator, tokenHash: []byte(tokenHash)}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api/evaluations", func(r chi.Router) {
		r.Use(h.requireToken, limitBody)
		r.Post("/", h.handleCreateEvaluation)
		r.Post("/upload", h.handleUploadEvaluation)
		r.Get("/", h.handleListEvaluations)
		r.Get("/{runID}", h.handleGetEvaluation)
		r.Get("/{runID}/report", h.handleEvaluationReport)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type evaluationRequest struct {
	StudentName string          `json:"student_name"`
	Student     json.RawMessage `json:"student"`
	AnswerKey   json.RawMessage `json:"answer_key"`
}

type evaluationResponse struct {
	RunID     string                 `json:"run_id"`
	Duplicate bool                   `json:"duplicate,omitempty"`
	Report    model.EvaluationReport `json:"report"`
}

func (h *Handler) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), bodyErrorStatus(err))
		return
	}
	if len(req.AnswerKey) == 0 {
		http.Error(w, "answer_key is required", http.StatusBadRequest)
		return
	}

	student, key, err := decodeSheets(req.Student, req.AnswerKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	run, err := h.evaluate(r.Context(), req.StudentName, "api", student, key)
	if err != nil {
		slog.Error("failed to save run", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, evaluationResponse{RunID: run.ID, Report: run.Report})
}

func decodeSheets(studentData, keyData []byte) (*model.Sheet, *model.Sheet, error) {
	if len(studentData) == 0 {
		studentData = []byte("{}")
	}
	student, err := ingest.DecodeSheet(bytes.NewReader(studentData), model.KindSubmission)
	if err != nil {
		return nil, nil, fmt.Errorf("student: %w", err)
	}
	key, err := ingest.DecodeSheet(bytes.NewReader(keyData), model.KindAnswerKey)
	if err != nil {
		return nil, nil, fmt.Errorf("answer_key: %w", err)
	}
	return student, key, nil
}

func (h *Handler) evaluate(ctx context.Context, name, source string, student, key *model.Sheet) (model.Run, error) {
	run := model.Run{
		StudentName: name,
		Source:      source,
		Report:      h.evaluator.Evaluate(ctx, student, key),
	}
	id, err := h.runs.SaveRun(run)
	if err != nil {
		return run, err
	}
	run.ID = id
	slog.Info("evaluated submission", "run_id", id, "student", name,
		"questions", run.Report.Summary.TotalQuestions, "average", run.Report.Summary.OverallAverage)
	return run, nil
}

func (h *Handler) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.ListRuns()
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) handleEvaluationReport(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.Markdown(r.Context(), &buf, *run); err != nil {
		slog.Error("render error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	buf.WriteTo(w)
}

func (h *Handler) lookupRun(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	runID := chi.URLParam(r, "runID")
	run, err := h.runs.GetRun(runID)
	if err != nil {
		slog.Error("failed to get run", "run_id", runID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return nil, false
	}
	return run, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
