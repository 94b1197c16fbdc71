package dbrider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/calumari/dbrider/dataset"
	"github.com/calumari/dbrider/exp"
	"github.com/calumari/dbrider/loader"
	"github.com/calumari/dbrider/vars"
)

// Verifier checks the database against an expected dataset.
// *match.Matcher implements it.
type Verifier interface {
	Matches(ctx context.Context, expected exp.Dataset, preds exp.Predicates) error
}

type HandlerOptions struct {
	BaseDir string
	Logger  zerolog.Logger
}

type HandlerOption func(*HandlerOptions)

// WithBaseDir resolves relative dataset and script paths against dir.
func WithBaseDir(dir string) HandlerOption {
	return func(o *HandlerOptions) { o.BaseDir = dir }
}

func WithHandlerLogger(l zerolog.Logger) HandlerOption {
	return func(o *HandlerOptions) { o.Logger = l }
}

// Handler runs the before and after phases of one fixture. Every step
// aborts the phase on its first error.
type Handler struct {
	cfg     Config
	loader  loader.Loader
	exec    *Executor
	matcher Verifier
	baseDir string
	logger  zerolog.Logger
}

func NewHandler(cfg Config, l loader.Loader, exec *Executor, matcher Verifier, opts ...HandlerOption) *Handler {
	op := &HandlerOptions{Logger: zerolog.Nop()}
	for _, o := range opts {
		o(op)
	}
	return &Handler{
		cfg:     cfg,
		loader:  l,
		exec:    exec,
		matcher: matcher,
		baseDir: op.BaseDir,
		logger:  op.Logger,
	}
}

// Before cleans up, runs the before scripts and statements, then inserts
// the merged and substituted datasets.
func (h *Handler) Before(ctx context.Context) error {
	if err := h.exec.Init(ctx); err != nil {
		return err
	}
	if h.cfg.CleanupBefore {
		h.logger.Debug().Strs("tables", h.cfg.CleanupTables).Msg("cleanup before")
		if err := h.exec.CleanupTables(ctx, h.cfg.CleanupTables...); err != nil {
			return fmt.Errorf("cleanup before: %w", err)
		}
	}
	if err := h.run(ctx, "before", h.cfg.ScriptsBefore, h.cfg.StatementsBefore); err != nil {
		return err
	}
	if !h.cfg.hasDatasets() {
		return nil
	}
	ds, err := h.load(h.cfg.DatasetPaths, h.cfg.DatasetProviders)
	if err != nil {
		return err
	}
	if err := h.exec.InsertRecords(ctx, ds); err != nil {
		return fmt.Errorf("insert datasets: %w", err)
	}
	return nil
}

// After runs the after scripts and statements, cleans up, then verifies the
// expected datasets.
func (h *Handler) After(ctx context.Context) error {
	if err := h.exec.Init(ctx); err != nil {
		return err
	}
	if err := h.run(ctx, "after", h.cfg.ScriptsAfter, h.cfg.StatementsAfter); err != nil {
		return err
	}
	if h.cfg.CleanupAfter {
		h.logger.Debug().Strs("tables", h.cfg.CleanupTables).Msg("cleanup after")
		if err := h.exec.CleanupTables(ctx, h.cfg.CleanupTables...); err != nil {
			return fmt.Errorf("cleanup after: %w", err)
		}
	}
	if !h.cfg.hasExpected() {
		return nil
	}
	ds, err := h.load(h.cfg.ExpectedDatasetPaths, h.cfg.ExpectedDatasetProviders)
	if err != nil {
		return err
	}
	return h.matcher.Matches(ctx, exp.Decode(ds), h.cfg.Predicates)
}

func (h *Handler) run(ctx context.Context, phase string, scripts, statements []string) error {
	for _, path := range scripts {
		b, err := os.ReadFile(h.resolve(path))
		if err != nil {
			return fmt.Errorf("read %s script: %w", phase, err)
		}
		h.logger.Debug().Str("phase", phase).Str("script", path).Msg("run script")
		if err := h.exec.ExecuteScript(ctx, string(b)); err != nil {
			return fmt.Errorf("%s script %s: %w", phase, path, err)
		}
	}
	for _, stmt := range statements {
		if err := h.exec.ExecuteQuery(ctx, stmt); err != nil {
			return fmt.Errorf("%s statement: %w", phase, err)
		}
	}
	return nil
}

// load merges file datasets and provider fragments, in declaration order,
// and expands variables.
func (h *Handler) load(paths []string, providers []Provider) (dataset.Dataset, error) {
	sets := make([]dataset.Dataset, 0, len(paths)+len(providers))
	for _, p := range paths {
		ds, err := h.loader.Load(h.resolve(p))
		if err != nil {
			return nil, fmt.Errorf("load dataset %s: %w", p, err)
		}
		sets = append(sets, ds)
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		sets = append(sets, p())
	}
	return vars.Apply(dataset.Merge(sets...), h.cfg.Variables), nil
}

func (h *Handler) resolve(path string) string {
	if h.baseDir == "" || path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(h.baseDir, path)
}
