// Package testine binds dbrider fixtures to Go tests. Failures are reported
// through TestingT.Fatalf instead of returned errors.
package testine

import (
	"context"
	"path/filepath"

	"github.com/calumari/jwalk"
	"github.com/go-json-experiment/json"
	"github.com/rs/zerolog"

	"github.com/calumari/dbrider"
	"github.com/calumari/dbrider/dataset"
	"github.com/calumari/dbrider/exp"
	"github.com/calumari/dbrider/loader"
	"github.com/calumari/dbrider/match"
)

type Options struct {
	Loader     loader.Loader
	BaseDir    string
	Exhaustive bool
	Logger     zerolog.Logger

	cacheDatasets bool
}

type Option func(*Options)

// WithLoader replaces the default json and yaml dispatcher.
func WithLoader(l loader.Loader) Option {
	return func(o *Options) { o.Loader = l }
}

func WithBaseDir(dir string) Option {
	return func(o *Options) { o.BaseDir = dir }
}

// WithDatasetCache reads each dataset path once per T.
func WithDatasetCache() Option {
	return func(o *Options) { o.cacheDatasets = true }
}

func WithExhaustiveMatching() Option {
	return func(o *Options) { o.Exhaustive = true }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

type TestingT interface {
	Context() context.Context
	Cleanup(func())
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
	Helper()
}

type T struct {
	exec    *dbrider.Executor
	loader  loader.Loader
	matcher *match.Matcher
	baseDir string
	logger  zerolog.Logger
}

// New wraps exec. Directives contributed by the executor's driver are
// registered for the default JSON loader.
func New(exec *dbrider.Executor, opts ...Option) (*T, error) {
	op := &Options{Logger: zerolog.Nop()}
	for _, o := range opts {
		o(op)
	}
	l := op.Loader
	if l == nil {
		reg, err := jwalk.NewRegistry()
		if err != nil {
			return nil, err
		}
		if err := exec.RegisterTypes(reg); err != nil {
			return nil, err
		}
		j, err := loader.NewJSON(loader.WithRegistry(reg))
		if err != nil {
			return nil, err
		}
		y := loader.NewYAML()
		l = loader.NewDelegating(map[string]loader.Loader{"json": j, "yaml": y, "yml": y})
	}
	if op.cacheDatasets {
		l = loader.Cached(l)
	}
	mopts := []match.Option{match.WithLogger(op.Logger)}
	if op.Exhaustive {
		mopts = append(mopts, match.WithExhaustive())
	}
	return &T{
		exec:    exec,
		loader:  l,
		matcher: match.New(exec, mopts...),
		baseDir: op.BaseDir,
		logger:  op.Logger,
	}, nil
}

func (pt *T) handler(cfg dbrider.Config) *dbrider.Handler {
	return dbrider.NewHandler(cfg, pt.loader, pt.exec, pt.matcher,
		dbrider.WithBaseDir(pt.baseDir), dbrider.WithHandlerLogger(pt.logger))
}

// Fixture runs the before phase of cfg now and its after phase when t
// finishes.
func (pt *T) Fixture(t TestingT, cfg dbrider.Config) {
	t.Helper()
	h := pt.handler(cfg)
	if err := h.Before(t.Context()); err != nil {
		t.Fatalf("fixture before: %v", err)
		return
	}
	t.Cleanup(func() {
		// the test context is already canceled during cleanup
		if err := h.After(context.Background()); err != nil {
			pt.logSnapshot(t, context.Background())
			t.Fatalf("fixture after: %v", err)
		}
	})
}

// Run wraps fn in the before and after phases of cfg. The after phase also
// runs when fn panics; the panic is then re-raised.
func (pt *T) Run(t TestingT, cfg dbrider.Config, fn func()) {
	t.Helper()
	h := pt.handler(cfg)
	if err := h.Before(t.Context()); err != nil {
		t.Fatalf("fixture before: %v", err)
		return
	}
	defer func() {
		if err := h.After(t.Context()); err != nil {
			pt.logSnapshot(t, t.Context())
			t.Fatalf("fixture after: %v", err)
		}
	}()
	fn()
}

func (pt *T) LoadDataset(t TestingT, path string) dataset.Dataset {
	t.Helper()
	if pt.baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(pt.baseDir, path)
	}
	ds, err := pt.loader.Load(path)
	if err != nil {
		t.Fatalf("load dataset %s: %v", path, err)
	}
	return ds
}

// Seed inserts ds and returns a snapshot expecting exactly ds.
func (pt *T) Seed(t TestingT, ds dataset.Dataset) *Snapshot {
	t.Helper()
	if err := pt.exec.Init(t.Context()); err != nil {
		t.Fatalf("init: %v", err)
		return nil
	}
	if err := pt.exec.InsertRecords(t.Context(), ds); err != nil {
		t.Fatalf("seed: %v", err)
		return nil
	}
	return &Snapshot{pt: pt, expected: exp.Literals(ds)}
}

// Assert verifies the database against expected.
func (pt *T) Assert(t TestingT, expected dataset.Dataset, preds exp.Predicates) {
	t.Helper()
	pt.assert(t, exp.Decode(expected), preds)
}

func (pt *T) assert(t TestingT, expected exp.Dataset, preds exp.Predicates) {
	t.Helper()
	if err := pt.exec.Init(t.Context()); err != nil {
		t.Fatalf("init: %v", err)
		return
	}
	if err := pt.matcher.Matches(t.Context(), expected, preds); err != nil {
		pt.logSnapshot(t, t.Context())
		t.Fatalf("assert: %v", err)
	}
}

// Cleanup empties tables, or every table, when t finishes.
func (pt *T) Cleanup(t TestingT, tables ...string) {
	t.Helper()
	t.Cleanup(func() {
		ctx := context.Background()
		if err := pt.exec.Init(ctx); err != nil {
			t.Fatalf("init: %v", err)
			return
		}
		if err := pt.exec.CleanupTables(ctx, tables...); err != nil {
			t.Fatalf("cleanup: %v", err)
		}
	})
}

func (pt *T) logSnapshot(t TestingT, ctx context.Context) {
	actual, err := pt.exec.Snapshot(ctx)
	if err != nil {
		return
	}
	b, err := json.Marshal(dataset.ToDocument(actual), json.Deterministic(true))
	if err != nil {
		return
	}
	t.Logf("database contents: %s", b)
}

// Snapshot holds seeded rows. Every seeded value is compared literally, so
// strings starting with exp.Marker are not predicate references here.
type Snapshot struct {
	pt       *T
	expected exp.Dataset
}

func (s *Snapshot) Assert(t TestingT) {
	t.Helper()
	s.pt.assert(t, s.expected, nil)
}
