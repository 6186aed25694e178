package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/examtrainer/internal/exam"
	"github.com/pavelanni/examtrainer/internal/handler"
	appI18n "github.com/pavelanni/examtrainer/internal/i18n"
	"github.com/pavelanni/examtrainer/internal/llm"
	"github.com/pavelanni/examtrainer/internal/model"
	"github.com/pavelanni/examtrainer/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examtrainer",
		Short: "Exam trainer: question banks, randomized exams and notes scoring",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), validateCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examtrainer --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addDBFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db-driver", string(store.DriverSQLite), "Database driver (sqlite, postgres)")
	f.String("db", "", "Database DSN (default: examtrainer.db for sqlite)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8000", "HTTP listen address")
	f.String("data-dir", "data", "Directory with subject question files")
	f.String("static-dir", "static", "Directory with the browser frontend (empty to disable)")
	f.StringP("lang", "l", "en", "Default language (en, ru)")
	f.Duration("exam-duration", 3*time.Hour, "Time allowed per exam session (0 = no time limit)")
	f.StringSlice("cors-origins", []string{"*"}, "Allowed CORS origins")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty disables /review)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("admin-password", "", "Admin password for /admin (or set EXAMTRAINER_ADMIN_PASSWORD)")
	addDBFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export exam sessions as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("subject", "", "Only export sessions of this subject")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addDBFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that every subject file loads and can fill an exam",
		RunE:  runValidate,
	}
	cmd.Flags().String("data-dir", "data", "Directory with subject question files")
	addLogFlags(cmd)
	return cmd
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
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	v.SetDefault("subjects", defaultSubjects)

	v.SetEnvPrefix("EXAMTRAINER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examtrainer")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examtrainer")
	v.AddConfigPath("/etc/examtrainer")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if d := v.GetDuration("exam-duration"); d < 0 {
		return fmt.Errorf("exam-duration must not be negative, got %s", d)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	catalog, err := buildCatalog(v)
	if err != nil {
		return fmt.Errorf("load subjects: %w", err)
	}

	db, err := store.Open(ctx, store.Driver(v.GetString("db-driver")), v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var reviewer handler.Reviewer
	if llmURL := v.GetString("llm-url"); llmURL != "" {
		client := llm.New(llmURL, v.GetString("llm-key"), v.GetString("llm-model"))
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := client.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", llmURL, "model", v.GetString("llm-model"))
		reviewer = client
	}

	examCfg := model.ExamConfig{
		Duration:  v.GetDuration("exam-duration"),
		Lang:      lang,
		StaticDir: v.GetString("static-dir"),
	}
	if pw := v.GetString("admin-password"); pw != "" {
		hash, err := handler.HashAdminPassword(pw)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		examCfg.AdminPasswordHash = hash
	}

	h, err := handler.New(catalog, db, reviewer, examCfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: v.GetStringSlice("cors-origins"),
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"subjects", len(catalog.ListSubjects()),
		"exam_duration", examCfg.Duration,
		"review", reviewer != nil,
		"admin", examCfg.AdminPasswordHash != "",
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := store.Open(ctx, store.Driver(v.GetString("db-driver")), v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	subjectName := v.GetString("subject")
	results, err := db.ExportAllSessions(ctx, subjectName)
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	export := model.SessionsExport{
		GeneratedAt: time.Now().UTC(),
		Subject:     subjectName,
		Results:     results,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
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
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	slog.Info("exported sessions", "count", len(results), "output", outPath)
	return nil
}

func runValidate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	catalog, err := buildCatalog(v)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, name := range catalog.ListSubjects() {
		questions, err := catalog.LoadQuestions(ctx, name)
		if err == nil {
			_, err = exam.Build(questions)
		}
		pools := exam.Pools(questions)
		status := "ok"
		if err != nil {
			status = "FAIL: " + err.Error()
			failed++
		}
		fmt.Fprintf(out, "%-32s %4d questions  A=%d B=%d C=%d  %s\n",
			name, len(questions),
			len(pools[model.BlockA]), len(pools[model.BlockB]), len(pools[model.BlockC]),
			status)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d subjects failed validation", failed, len(catalog.ListSubjects()))
	}
	return nil
}
