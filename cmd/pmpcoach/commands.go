package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	appI18n "github.com/eambriza/pmp-coach/internal/i18n"
	"github.com/eambriza/pmp-coach/internal/model"
	"github.com/eambriza/pmp-coach/internal/parser"
	"github.com/eambriza/pmp-coach/internal/practice"
	"github.com/eambriza/pmp-coach/internal/progress"
	"github.com/eambriza/pmp-coach/internal/store"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load a CSV or XLSX question bank",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	addCommonFlags(cmd)
	cmd.Flags().Int("max-invalid-rows", parser.DefaultMaxInvalid, "Reject files with more invalid rows than this")
	cmd.Flags().Bool("force", false, "Import even if the file is already loaded")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx, err := localized(v.GetString("lang"))
	if err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	hash := parser.HashData(data)
	questions := store.NewQuestionSet(db)
	if !v.GetBool("force") {
		last, err := db.LastImport()
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		current, _ := questions.Load()
		if last != nil && last.Hash == hash && len(current) > 0 {
			slog.Info("questions file unchanged, skipping", "path", path)
			fmt.Fprintln(cmd.OutOrStdout(), appI18n.T(ctx, "ImportDuplicate"))
			return nil
		}
	}

	qs, err := parser.New(v.GetInt("max-invalid-rows")).Parse(filepath.Base(path), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := questions.Replace(qs); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	if err := db.RecordImport(filepath.Base(path), hash, len(qs)); err != nil {
		return fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported questions", "path", path, "count", len(qs))
	fmt.Fprintln(cmd.OutOrStdout(), appI18n.Tp(ctx, "ImportSucceeded", len(qs)))
	return nil
}

func importsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imports",
		Short: "List imported question files, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd)
			db, err := openStore(viperForCmd(cmd))
			if err != nil {
				return err
			}
			defer db.Close()

			list, err := db.ListImports()
			if err != nil {
				return fmt.Errorf("list imports: %w", err)
			}
			for _, im := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\t%s\n",
					im.ImportedAt.Format(time.DateTime), im.Filename, im.Questions, im.Hash[:12])
			}
			return nil
		},
	}
	addCommonFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the question bank or the last session's incorrect questions",
		RunE:  runExport,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.String("subset", "all", "Questions to export (all, incorrect)")
	f.String("format", "csv", "Output format (csv, xlsx)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := model.DefaultConfig()
	cfg.TickInterval = 0
	engine := practice.New(cfg, db, progress.New(db))
	engine.Restore()

	var questions []model.Question
	switch v.GetString("subset") {
	case "all":
		questions = engine.Questions()
	case "incorrect":
		if engine.Snapshot().Session == nil {
			return errors.New("no practice session to export from")
		}
		questions = engine.IncorrectQuestions()
	default:
		return fmt.Errorf("unknown subset %q: use all or incorrect", v.GetString("subset"))
	}

	var write func(io.Writer, []model.Question) error
	switch v.GetString("format") {
	case "csv":
		write = parser.WriteCSV
	case "xlsx":
		write = parser.WriteXLSX
	default:
		return fmt.Errorf("unknown format %q: use csv or xlsx", v.GetString("format"))
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
	if err := write(w, questions); err != nil {
		return err
	}
	slog.Info("exported questions", "count", len(questions), "output", outPath)
	return nil
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show progress across completed sessions",
		RunE:  runStats,
	}
	addCommonFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the full history as JSON")
	cmd.Flags().Int("recent", 10, "Number of recent scores to show")
	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx, err := localized(v.GetString("lang"))
	if err != nil {
		return err
	}

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	prog := progress.New(db)
	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		data, err := json.MarshalIndent(prog.Export(time.Now().UTC(), v.GetInt("recent")), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	st := prog.Stats()
	fmt.Fprintln(out, appI18n.Tp(ctx, "SessionsCompleted", st.Sessions))
	fmt.Fprintf(out, "%s: %d\n", appI18n.T(ctx, "TotalXP"), st.TotalXP)
	fmt.Fprintf(out, "%s: %d%%\n", appI18n.T(ctx, "AverageScore"), st.AverageScore)
	fmt.Fprintf(out, "%s: %d\n", appI18n.T(ctx, "QuestionsAnswered"), st.TotalQuestionsAnswered)
	fmt.Fprintf(out, "%s: %d\n", appI18n.T(ctx, "BestStreak"), st.BestStreak)
	if recent := prog.RecentScores(v.GetInt("recent")); len(recent) > 0 {
		scores := make([]string, len(recent))
		for i, s := range recent {
			scores[i] = fmt.Sprintf("%d%%", s)
		}
		fmt.Fprintf(out, "%s: %s\n", appI18n.T(ctx, "RecentScores"), strings.Join(scores, ", "))
	}
	return nil
}

func clearProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear-progress",
		Short: "Delete the whole session history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd)
			v := viperForCmd(cmd)
			ctx, err := localized(v.GetString("lang"))
			if err != nil {
				return err
			}
			if !v.GetBool("yes") {
				return errors.New("refusing to clear progress without --yes")
			}
			db, err := openStore(v)
			if err != nil {
				return err
			}
			defer db.Close()

			progress.New(db).ClearAll()
			fmt.Fprintln(cmd.OutOrStdout(), appI18n.T(ctx, "ProgressCleared"))
			return nil
		},
	}
	addCommonFlags(cmd)
	cmd.Flags().BoolP("yes", "y", false, "Confirm deleting all progress")
	return cmd
}

func explainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Fill missing question explanations using an LLM",
		RunE:  runExplain,
	}
	addCommonFlags(cmd)
	addLLMFlags(cmd)
	f := cmd.Flags()
	f.Bool("all", false, "Regenerate explanations that already exist")
	f.Int("limit", 0, "Maximum questions to explain (0 = no limit)")
	f.Duration("timeout", 2*time.Minute, "Timeout per question")
	return cmd
}

func runExplain(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	client, err := newExplainer(v)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if client == nil {
		return errors.New("--llm-url is required")
	}

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	set := store.NewQuestionSet(db)
	qs, err := set.Load()
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	if len(qs) == 0 {
		return errors.New("no questions loaded: run `pmpcoach import` first")
	}

	limit := v.GetInt("limit")
	explained := 0
	for i, q := range qs {
		if q.Explanation != "" && !v.GetBool("all") {
			continue
		}
		if limit > 0 && explained >= limit {
			break
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), v.GetDuration("timeout"))
		ex, err := client.Explain(ctx, q, "")
		cancel()
		if err != nil {
			slog.Error("explanation failed", "question", q.ID, "error", err)
			continue
		}
		qs[i].Explanation = strings.TrimSpace(ex.Summary + " " + ex.WhyCorrect)
		explained++
		slog.Info("explained question", "question", q.ID)
	}

	if explained == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no explanations added")
		return nil
	}
	if err := set.Replace(qs); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %d explanations\n", explained)
	return nil
}

// localized initializes translations and returns a context for lang.
func localized(lang string) (context.Context, error) {
	if err := appI18n.Init(lang); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}
	return appI18n.Context(context.Background(), lang), nil
}
