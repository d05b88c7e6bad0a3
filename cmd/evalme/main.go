package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/manvip28/Eval-Me-Maybe/internal/generate"
	"github.com/manvip28/Eval-Me-Maybe/internal/handler"
	appI18n "github.com/manvip28/Eval-Me-Maybe/internal/i18n"
	"github.com/manvip28/Eval-Me-Maybe/internal/ingest"
	"github.com/manvip28/Eval-Me-Maybe/internal/llm"
	"github.com/manvip28/Eval-Me-Maybe/internal/model"
	"github.com/manvip28/Eval-Me-Maybe/internal/report"
	"github.com/manvip28/Eval-Me-Maybe/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "evalme",
		Short:        "Score student answer sheets against an answer key",
		SilenceUsage: true,
	}
	root.AddCommand(evaluateCmd(), generateCmd(), reportCmd(), exportCmd(), serveCmd(), hashTokenCmd())
	return root
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a student submission against an answer key",
		RunE:  runEvaluate,
	}
	f := cmd.Flags()
	f.StringP("student", "s", "", "Student submission JSON file (required)")
	f.StringP("key", "k", "", "Answer key JSON file (required)")
	f.Bool("extraction", false, "Treat the student file as OCR page output instead of a sheet")
	f.StringP("output", "o", "-", "Output file for the JSON report (- for stdout)")
	f.String("db", "", "SQLite database path to store the run (empty = do not store)")
	f.String("name", "", "Student name recorded with the run")
	f.Bool("force", false, "Re-evaluate even if the same files were already evaluated")
	f.Bool("archive", false, "Also write the JSON report to storage under runs/<run-id>.json")
	f.Bool("summary", true, "Print a console summary to stderr")
	f.StringP("lang", "l", "en", "Report language (en, ru)")
	addScoringFlags(f)
	addProviderFlags(f)
	addStorageFlags(f)
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an answer key from study material with an LLM",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.StringP("topics", "t", "", "Topics JSON file: array of {title, content, keywords} or {title: content} (required)")
	f.String("diagrams", "", "Optional JSON file with [{ref, context}] diagrams to attach")
	f.StringP("output", "o", "-", "Output file for the answer key (- for stdout)")
	f.Int("per-topic", 1, "Questions to generate per topic")
	f.Uint64("seed", 1, "Random seed for level, marks and keyword selection")
	addProviderFlags(f)
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("topics")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a stored run or a results file as a report",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("db", "evalme.db", "SQLite database path")
	f.String("run-id", "", "Stored run to render")
	f.String("results", "", "Evaluation report JSON file to render instead of a stored run")
	f.String("format", "md", "Report format (md, summary)")
	f.StringP("lang", "l", "en", "Report language (en, ru)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	cmd.MarkFlagsMutuallyExclusive("run-id", "results")
	cmd.MarkFlagsOneRequired("run-id", "results")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all stored runs as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "evalme.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP evaluation API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "evalme.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Default report language (en, ru)")
	f.String("api-token-hash", "", "bcrypt hash of the API bearer token (empty = no auth)")
	addScoringFlags(f)
	addProviderFlags(f)
	addStorageFlags(f)
	addLogFlags(f)
	return cmd
}

func hashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash to use as --api-token-hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := handler.HashToken(args[0])
			if err != nil {
				return fmt.Errorf("hash token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
// envReplacer maps flag names to EVALME_* variable suffixes.
var envReplacer = strings.NewReplacer("-", "_")

func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EVALME")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	v.SetConfigName("evalme")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/evalme")
	v.AddConfigPath("/etc/evalme")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx, cancel := signalContext()
	defer cancel()

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx = appI18n.WithLanguage(ctx, v.GetString("lang"))

	studentPath, keyPath := v.GetString("student"), v.GetString("key")
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", keyPath, err)
	}
	studentData, err := os.ReadFile(studentPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", studentPath, err)
	}
	key, err := ingest.DecodeSheet(bytes.NewReader(keyData), model.KindAnswerKey)
	if err != nil {
		return fmt.Errorf("parse answer key %s: %w", keyPath, err)
	}
	student, err := decodeStudent(studentData, v.GetBool("extraction"))
	if err != nil {
		return fmt.Errorf("parse submission %s: %w", studentPath, err)
	}

	var db *store.Store
	if path := v.GetString("db"); path != "" {
		db, err = store.New(path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
	}
	hash := sha256sum(keyData, studentData)
	if db != nil && !v.GetBool("force") {
		prev, err := db.GetImportedFile(studentPath)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", studentPath, err)
		}
		if prev != nil && prev.Hash == hash {
			run, err := db.GetRun(prev.RunID)
			if err != nil {
				return fmt.Errorf("get run %s: %w", prev.RunID, err)
			}
			if run != nil {
				slog.Info("submission unchanged since last evaluation, using stored run",
					"path", studentPath, "run_id", run.ID)
				return writeEvaluation(ctx, v, run.Report)
			}
		}
	}

	storageRW, err := newStorage(v)
	if err != nil {
		return err
	}
	agg, cleanup, err := newAggregator(ctx, v, storageRW)
	if err != nil {
		return err
	}
	defer cleanup()

	rep := agg.Evaluate(ctx, student, key)
	if err := ctx.Err(); err != nil {
		return err
	}

	if db != nil {
		runID, err := db.SaveRun(model.Run{
			StudentName: v.GetString("name"),
			Source:      studentPath,
			Report:      rep,
		})
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		if err := db.SetImportedFile(store.ImportedFile{Path: studentPath, Hash: hash, RunID: runID}); err != nil {
			return fmt.Errorf("record import for %s: %w", studentPath, err)
		}
		slog.Info("stored run", "run_id", runID, "db", v.GetString("db"))

		if v.GetBool("archive") {
			data, err := json.MarshalIndent(rep, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal JSON: %w", err)
			}
			ref := "runs/" + runID + ".json"
			if err := storageRW.WriteFile(ctx, ref, data); err != nil {
				return fmt.Errorf("archive report: %w", err)
			}
			slog.Info("archived report", "ref", ref)
		}
	} else if v.GetBool("archive") {
		slog.Warn("--archive needs --db for a run id, skipping")
	}

	return writeEvaluation(ctx, v, rep)
}

func decodeStudent(data []byte, extraction bool) (*model.Sheet, error) {
	if !extraction {
		return ingest.DecodeSheet(bytes.NewReader(data), model.KindSubmission)
	}
	pages, err := ingest.DecodePages(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return ingest.FromExtraction(model.KindSubmission, pages), nil
}

func writeEvaluation(ctx context.Context, v *viper.Viper, rep model.EvaluationReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := writeOutput(v.GetString("output"), append(data, '\n')); err != nil {
		return err
	}
	if v.GetBool("summary") {
		return report.Summary(ctx, os.Stderr, rep)
	}
	return nil
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx, cancel := signalContext()
	defer cancel()

	f, err := os.Open(v.GetString("topics"))
	if err != nil {
		return fmt.Errorf("open topics: %w", err)
	}
	defer f.Close()
	topics, err := generate.DecodeTopics(f)
	if err != nil {
		return err
	}

	var diagrams []generate.Diagram
	if path := v.GetString("diagrams"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &diagrams); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg, err := llmConfig(v)
	if err != nil {
		return err
	}
	client := llm.New(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.EmbeddingModel)
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", cfg.BaseURL, "model", cfg.Model)

	gen, err := generate.New(client, generate.Options{
		PerTopic: v.GetInt("per-topic"),
		Seed:     v.GetUint64("seed"),
	})
	if err != nil {
		return err
	}
	sheet, err := gen.Generate(ctx, topics, diagrams)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	slog.Info("generated answer key", "topics", len(topics), "questions", sheet.Len())

	var buf bytes.Buffer
	if err := ingest.EncodeSheet(&buf, sheet); err != nil {
		return fmt.Errorf("encode answer key: %w", err)
	}
	return writeOutput(v.GetString("output"), buf.Bytes())
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLanguage(context.Background(), v.GetString("lang"))

	var run model.Run
	if path := v.GetString("results"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &run.Report); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		run.Source = path
	} else {
		db, err := store.New(v.GetString("db"))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		stored, err := db.GetRun(v.GetString("run-id"))
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		if stored == nil {
			return fmt.Errorf("run %q not found", v.GetString("run-id"))
		}
		run = *stored
	}

	var buf bytes.Buffer
	switch strings.ToLower(v.GetString("format")) {
	case "md", "markdown":
		if err := report.Markdown(ctx, &buf, run); err != nil {
			return err
		}
	case "summary":
		if err := report.Summary(ctx, &buf, run.Report); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown report format %q", v.GetString("format"))
	}
	return writeOutput(v.GetString("output"), buf.Bytes())
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportAllRuns()
	if err != nil {
		return fmt.Errorf("export runs: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := writeOutput(v.GetString("output"), append(data, '\n')); err != nil {
		return err
	}
	slog.Info("exported runs", "count", export.NumRuns)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx, cancel := signalContext()
	defer cancel()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	storageRW, err := newStorage(v)
	if err != nil {
		return err
	}
	agg, cleanup, err := newAggregator(ctx, v, storageRW)
	if err != nil {
		return err
	}
	defer cleanup()

	h := handler.New(db, agg, v.GetString("api-token-hash"))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server")
		_ = srv.Shutdown(context.Background())
	}()

	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"embedding_provider", v.GetString("embedding-provider"),
		"storage", v.GetString("storage-backend"),
		"auth", v.GetString("api-token-hash") != "",
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeOutput(outPath string, data []byte) error {
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if outPath != "" && outPath != "-" {
		slog.Info("wrote output", "path", outPath)
	}
	return nil
}

func sha256sum(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
