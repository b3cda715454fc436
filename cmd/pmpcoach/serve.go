package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eambriza/pmp-coach/internal/handler"
	appI18n "github.com/eambriza/pmp-coach/internal/i18n"
	"github.com/eambriza/pmp-coach/internal/llm"
	"github.com/eambriza/pmp-coach/internal/llm/prompts"
	"github.com/eambriza/pmp-coach/internal/model"
	"github.com/eambriza/pmp-coach/internal/parser"
	"github.com/eambriza/pmp-coach/internal/practice"
	"github.com/eambriza/pmp-coach/internal/progress"
	"github.com/eambriza/pmp-coach/internal/store"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local practice UI",
		RunE:  runServe,
	}
	addCommonFlags(cmd)
	addPracticeFlags(cmd)
	addLLMFlags(cmd)
	cmd.Flags().StringP("addr", "a", "127.0.0.1:8080", "HTTP listen address")
	return cmd
}

func addPracticeFlags(cmd *cobra.Command) {
	def := model.DefaultConfig()
	f := cmd.Flags()
	f.IntP("session-size", "n", def.SessionSize, "Questions per practice session")
	f.Duration("time-limit", def.TimeLimit, "Session countdown")
	f.Int("lives", def.StartingLives, "Incorrect answers allowed before scoring stops")
	f.Int("max-invalid-rows", def.MaxInvalidRows, "Reject uploads with more invalid rows than this")
}

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty disables explanations)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("explain-style", string(prompts.Standard), "Explanation prompt variant (brief, standard, detailed)")
}

// practiceConfig reads the practice flags, falling back to defaults for
// non-positive values.
func practiceConfig(v *viper.Viper) model.Config {
	cfg := model.DefaultConfig()
	if n := v.GetInt("session-size"); n > 0 {
		cfg.SessionSize = n
	}
	if d := v.GetDuration("time-limit"); d > 0 {
		cfg.TimeLimit = d
	}
	if n := v.GetInt("lives"); n > 0 {
		cfg.StartingLives = n
	}
	if n := v.GetInt("max-invalid-rows"); n > 0 {
		cfg.MaxInvalidRows = n
	}
	return cfg
}

func newExplainer(v *viper.Viper) (*llm.Client, error) {
	url := v.GetString("llm-url")
	if url == "" {
		return nil, nil
	}
	style := strings.ToLower(strings.TrimSpace(v.GetString("explain-style")))
	if !prompts.IsValidVariant(style) {
		slog.Warn("invalid explain-style, using standard", "style", style)
		style = string(prompts.Standard)
	}
	return llm.New(url, v.GetString("llm-key"), v.GetString("llm-model"), style)
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cfg := practiceConfig(v)
	prog := progress.New(db)
	engine := practice.New(cfg, db, prog)
	engine.Restore()
	defer engine.Close()

	importer := parser.NewImporter(parser.New(cfg.MaxInvalidRows), func(_ context.Context, src parser.Upload, qs []model.Question) error {
		if err := engine.SetQuestions(qs); err != nil {
			return fmt.Errorf("save questions: %w", err)
		}
		if err := db.RecordImport(src.Filename, src.Hash, len(qs)); err != nil {
			slog.Error("failed to record import", "error", err)
		}
		slog.Info("imported questions", "filename", src.Filename, "count", len(qs))
		return nil
	})

	explainer, err := newExplainer(v)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	var ex handler.Explainer
	if explainer != nil {
		ex = explainer
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware)
	handler.New(engine, prog, importer, db, ex).Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"questions", len(engine.Questions()),
		"session_size", cfg.SessionSize,
		"time_limit", cfg.TimeLimit,
		"lives", cfg.StartingLives,
		"explanations", explainer != nil,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	importer.Wait()
	return nil
}

// openStore opens the configured database, defaulting to the XDG data dir.
func openStore(v *viper.Viper) (*store.Store, error) {
	path := v.GetString("db")
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		path = p
	} else if err := store.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	slog.Debug("opened database", "path", path)
	return db, nil
}
