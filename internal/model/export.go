package model

import "time"

// Run is a persisted evaluation of one submission against one answer key.
type Run struct {
	ID          string           `json:"run_id"`
	StudentName string           `json:"student_name"`
	Source      string           `json:"source,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Report      EvaluationReport `json:"report"`
}

// RunInfo is the listing view of a run, without per-question detail.
type RunInfo struct {
	ID             string    `json:"run_id"`
	StudentName    string    `json:"student_name"`
	CreatedAt      time.Time `json:"created_at"`
	TotalQuestions int       `json:"total_questions"`
	OverallAverage float64   `json:"overall_average"`
}

// RunExport is the top-level JSON structure for exporting all stored runs.
type RunExport struct {
	ExportedAt time.Time `json:"exported_at"`
	NumRuns    int       `json:"num_runs"`
	Runs       []Run     `json:"runs"`
}
