package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/Veraticus/rd-classifier/internal/classification"
	"github.com/Veraticus/rd-classifier/internal/cli"
	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/config"
	"github.com/Veraticus/rd-classifier/internal/engine"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/service"
	"github.com/Veraticus/rd-classifier/internal/sheets"
	"github.com/Veraticus/rd-classifier/internal/tui"
	"github.com/Veraticus/rd-classifier/internal/tui/themes"
	"github.com/Veraticus/rd-classifier/internal/xlsx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <file.xlsx>...",
		Short: "Classify RD sheets and write processed workbooks",
		Long: `Classify every row of one or more RD03 or RD05 workbooks with the active
profile's rules. Each input produces Processed_<mode>_<name>.xlsx in the
output directory. A file that fails leaves no output; the others still run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().String("mode", "", "sheet layout: RD03 or RD05 (default from classify.mode)")
	cmd.Flags().String("profile", "", "profile id to classify with (default: active profile)")
	cmd.Flags().String("out", "", "output directory (default from classify.output_dir)")
	cmd.Flags().Int("concurrency", 0, "files classified at once (default from classify.concurrency)")
	cmd.Flags().Bool("sheets", false, "also publish each result to Google Sheets")
	cmd.Flags().Bool("view", false, "browse the results in the terminal viewer")
	cmd.Flags().Bool("no-history", false, "do not record the runs in the store's history")
	cmd.Flags().String("theme", "default", "viewer theme (default, catppuccin)")

	_ = viper.BindPFlag("classify.mode", cmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("classify.profile", cmd.Flags().Lookup("profile"))
	_ = viper.BindPFlag("classify.output_dir", cmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("classify.concurrency", cmd.Flags().Lookup("concurrency"))

	return cmd
}

// classifyJob is the fixed input of every file in one invocation.
type classifyJob struct {
	history   runHistory
	publisher service.ReportWriter
	rules     []model.Rule
	mode      model.Mode
	profileID string
	outputDir string
	showRows  bool
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClassifyConfig(viper.GetViper())
	if err != nil {
		return common.NewUserError(err.Error(), err)
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), len(args) > 1)
	defer handler.Stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	prof, err := resolveProfile(ctx, store, cfg.Profile)
	if err != nil {
		return err
	}

	job := classifyJob{
		mode:      cfg.Mode,
		rules:     prof.Rules(cfg.Mode),
		profileID: prof.ID,
		outputDir: cfg.OutputDir,
		showRows:  len(args) == 1,
	}
	lintRules(job.rules, job.mode)

	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		job.history = historyFor(store)
	}
	if publish, _ := cmd.Flags().GetBool("sheets"); publish {
		sc, err := config.LoadSheetsConfig()
		if err != nil {
			return common.NewUserError("Google Sheets is not configured: "+err.Error()+". Run 'rdc auth sheets' first.", err)
		}
		w, err := sheets.NewWriter(ctx, *sc, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to connect to Google Sheets: %w", err)
		}
		job.publisher = w
	}

	slog.Info("Classifying",
		"files", len(args),
		"mode", job.mode,
		"profile", prof.Name,
		"rules", len(job.rules),
		"concurrency", cfg.Concurrency)

	results, runErr := classifyAll(ctx, cmd, args, job, cfg.Concurrency)

	out := cmd.OutOrStdout()
	for _, result := range results {
		fmt.Fprintln(out, cli.RenderSummary(result))
	}

	if handler.WasInterrupted() {
		return common.NewUserError("classification interrupted", context.Canceled)
	}

	if view, _ := cmd.Flags().GetBool("view"); view && len(results) > 0 {
		theme, _ := cmd.Flags().GetString("theme")
		if err := tui.Run(ctx, results, tui.WithTheme(themes.ByName(theme))); err != nil {
			return err
		}
	}
	return runErr
}

// classifyAll classifies paths concurrently. It returns every result that
// was produced, in argument order, and every failure joined. A file whose
// workbook was written but whose publish failed contributes both.
func classifyAll(ctx context.Context, cmd *cobra.Command, paths []string, job classifyJob, concurrency int) ([]*model.Result, error) {
	if err := checkOutputNames(paths, job); err != nil {
		return nil, err
	}

	results := make([]*model.Result, len(paths))
	errs := make([]error, len(paths))

	var fileBar *cli.Progress
	if !job.showRows {
		fileBar = cli.NewProgress(cmd.ErrOrStderr(), len(paths), "Classifying files")
	}
	var barMu sync.Mutex

	var g errgroup.Group
	g.SetLimit(max(concurrency, 1))
	for i, path := range paths {
		g.Go(func() error {
			result, err := classifyFile(ctx, cmd, path, job)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", filepath.Base(path), err)
				common.LogError(err, "Classification failed", common.Fields{"file": path})
			}
			results[i] = result
			if fileBar != nil {
				barMu.Lock()
				fileBar.Step()
				barMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	done := make([]*model.Result, 0, len(paths))
	for _, r := range results {
		if r != nil {
			done = append(done, r)
		}
	}
	return done, errors.Join(errs...)
}

// checkOutputNames rejects inputs that would write the same output workbook.
func checkOutputNames(paths []string, job classifyJob) error {
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		out := filepath.Join(job.outputDir, xlsx.OutputName(path, job.mode))
		if prev, ok := seen[out]; ok {
			return common.NewUserError(
				fmt.Sprintf("%s and %s would both write %s. Rename one or classify them separately.", prev, path, out),
				common.ErrInvalidConfig)
		}
		seen[out] = path
	}
	return nil
}

// historyFor returns the run history of store, or nil with a warning when
// the store keeps none.
func historyFor(store *backend) runHistory {
	h, ok := store.history()
	if !ok {
		slog.Warn("Store keeps no run history, runs will not be recorded", "driver", store.driver)
		return nil
	}
	return h
}

// classifyFile runs one file end to end: read, classify, write the workbook,
// then record and publish the result.
func classifyFile(ctx context.Context, cmd *cobra.Command, path string, job classifyJob) (*model.Result, error) {
	schema, err := model.SchemaFor(job.mode)
	if err != nil {
		return nil, err
	}

	engineCfg := engine.DefaultConfig()
	if job.showRows {
		bar := cli.NewProgress(cmd.ErrOrStderr(), -1, "Classifying "+filepath.Base(path))
		defer bar.Finish()
		engineCfg.Progress = bar.Update
	}

	result, err := engine.NewWithConfig(engineCfg).
		Run(ctx, xlsx.NewReader(path, schema.HeaderRows), job.mode, job.rules)
	if err != nil {
		return nil, err
	}

	out := filepath.Join(job.outputDir, xlsx.OutputName(path, job.mode))
	if err := xlsx.NewWriter(out).Write(ctx, result); err != nil {
		return nil, err
	}

	common.LogInfo("Classified file", common.Fields{
		"file":   path,
		"rows":   result.Summary.TotalRows,
		"groups": len(result.Summary.Groups),
		"output": out,
	})

	if job.history != nil {
		run := model.NewRunRecord(result, job.profileID)
		if err := job.history.RecordRun(ctx, &run); err != nil {
			slog.Warn("Failed to record run", "file", path, "error", err)
		}
	}
	if job.publisher != nil {
		if err := job.publisher.Write(ctx, result); err != nil {
			return result, fmt.Errorf("failed to publish to Google Sheets: %w", err)
		}
	}
	return result, nil
}

// lintRules warns about rules that can never match.
func lintRules(rules []model.Rule, mode model.Mode) {
	schema, err := model.SchemaFor(mode)
	if err != nil {
		return
	}
	for _, issue := range classification.Lint(rules, schema) {
		slog.Warn("Rule will never match", "mode", mode, "rule", issue.RuleID, "problem", issue.Message)
	}
}
