package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/manvip28/Eval-Me-Maybe/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// Each :memory: connection is a separate database.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		student_name TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		total_questions INTEGER NOT NULL DEFAULT 0,
		answered_questions INTEGER NOT NULL DEFAULT 0,
		evaluated_questions INTEGER NOT NULL DEFAULT 0,
		overall_average REAL NOT NULL DEFAULT 0,
		total_achieved_score REAL NOT NULL DEFAULT 0,
		total_possible_score REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS question_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		question_id TEXT NOT NULL,
		question_text TEXT NOT NULL DEFAULT '',
		student_answer TEXT NOT NULL DEFAULT '',
		expected_answer TEXT NOT NULL DEFAULT '',
		raw_score REAL NOT NULL DEFAULT 0,
		max_score REAL NOT NULL DEFAULT 0,
		percentage_score REAL NOT NULL DEFAULT 0,
		has_student_image INTEGER NOT NULL DEFAULT 0,
		has_reference_image INTEGER NOT NULL DEFAULT 0,
		semantic_score REAL,
		bleu REAL NOT NULL DEFAULT 0,
		rouge_l REAL NOT NULL DEFAULT 0,
		image_similarity REAL,
		answered INTEGER NOT NULL DEFAULT 0,
		unevaluable INTEGER NOT NULL DEFAULT 0,
		bloom_level TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '[]',
		UNIQUE (run_id, question_id),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		run_id TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun stores a run with all of its per-question results and returns its
// id. A new UUID is assigned when run.ID is empty.
func (s *Store) SaveRun(run model.Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	sum := run.Report.Summary
	_, err = tx.Exec(
		`INSERT INTO runs (id, student_name, source, created_at, total_questions, answered_questions,
		 evaluated_questions, overall_average, total_achieved_score, total_possible_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StudentName, run.Source, run.CreatedAt, sum.TotalQuestions, sum.AnsweredQuestions,
		sum.EvaluatedQuestions, sum.OverallAverage, sum.TotalAchievedScore, sum.TotalPossibleScore,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for i, r := range run.Report.IndividualResults {
		keywords, err := json.Marshal(r.Keywords)
		if err != nil {
			return "", err
		}
		d := r.EvaluationDetails
		_, err = tx.Exec(
			`INSERT INTO question_results (run_id, position, question_id, question_text, student_answer,
			 expected_answer, raw_score, max_score, percentage_score, has_student_image, has_reference_image,
			 semantic_score, bleu, rouge_l, image_similarity, answered, unevaluable, bloom_level, keywords)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, r.QuestionID, r.QuestionText, r.StudentAnswer,
			r.ExpectedAnswer, r.RawScore, r.MaxScore, r.PercentageScore, r.HasStudentImage, r.HasReferenceImage,
			nullFloat(d.SemanticScore), d.BLEU, d.RougeL, nullFloat(d.ImageSimilarity),
			r.Answered, r.Unevaluable, r.BloomLevel, string(keywords),
		)
		if err != nil {
			return "", fmt.Errorf("insert result %s: %w", r.QuestionID, err)
		}
	}

	return run.ID, tx.Commit()
}

// GetRun returns a run with its results, or nil if it does not exist.
func (s *Store) GetRun(id string) (*model.Run, error) {
	var run model.Run
	sum := &run.Report.Summary
	err := s.db.QueryRow(
		`SELECT id, student_name, source, created_at, total_questions, answered_questions,
		 evaluated_questions, overall_average, total_achieved_score, total_possible_score
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.StudentName, &run.Source, &run.CreatedAt, &sum.TotalQuestions, &sum.AnsweredQuestions,
		&sum.EvaluatedQuestions, &sum.OverallAverage, &sum.TotalAchievedScore, &sum.TotalPossibleScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	results, err := s.getResults(id)
	if err != nil {
		return nil, err
	}
	run.Report.IndividualResults = results
	return &run, nil
}

func (s *Store) getResults(runID string) (model.Results, error) {
	rows, err := s.db.Query(
		`SELECT question_id, question_text, student_answer, expected_answer, raw_score, max_score,
		 percentage_score, has_student_image, has_reference_image, semantic_score, bleu, rouge_l,
		 image_similarity, answered, unevaluable, bloom_level, keywords
		 FROM question_results WHERE run_id = ? ORDER BY position`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := model.Results{}
	for rows.Next() {
		var (
			r         model.PerQuestionResult
			sem, img  sql.NullFloat64
			keywords  string
			bloomText string
		)
		if err := rows.Scan(&r.QuestionID, &r.QuestionText, &r.StudentAnswer, &r.ExpectedAnswer, &r.RawScore,
			&r.MaxScore, &r.PercentageScore, &r.HasStudentImage, &r.HasReferenceImage, &sem,
			&r.EvaluationDetails.BLEU, &r.EvaluationDetails.RougeL, &img, &r.Answered, &r.Unevaluable,
			&bloomText, &keywords); err != nil {
			return nil, err
		}
		r.EvaluationDetails.SemanticScore = floatPtr(sem)
		r.EvaluationDetails.ImageSimilarity = floatPtr(img)
		r.BloomLevel = model.BloomLevel(bloomText)
		if err := json.Unmarshal([]byte(keywords), &r.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords for %s: %w", r.QuestionID, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListRuns returns all runs, newest first, without per-question detail.
func (s *Store) ListRuns() ([]model.RunInfo, error) {
	rows, err := s.db.Query(
		`SELECT id, student_name, created_at, total_questions, overall_average
		 FROM runs ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs := []model.RunInfo{}
	for rows.Next() {
		var ri model.RunInfo
		if err := rows.Scan(&ri.ID, &ri.StudentName, &ri.CreatedAt, &ri.TotalQuestions, &ri.OverallAverage); err != nil {
			return nil, err
		}
		runs = append(runs, ri)
	}
	return runs, rows.Err()
}

// RunCount returns the number of stored runs.
func (s *Store) RunCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
