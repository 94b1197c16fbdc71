package dbrider

import (
	"github.com/calumari/dbrider/dataset"
	"github.com/calumari/dbrider/exp"
)

// Provider generates a dataset fragment in code.
type Provider func() dataset.Dataset

// Config declares one fixture. Every zero field skips its step.
type Config struct {
	// DatasetPaths and DatasetProviders are merged, paths first, and
	// inserted before the test.
	DatasetPaths     []string
	DatasetProviders []Provider

	// Variables expand {name} placeholders in seeded and expected data.
	Variables map[string]any

	CleanupBefore bool
	CleanupAfter  bool
	// CleanupTables restricts both cleanups. Empty means every table.
	CleanupTables []string

	// ScriptsBefore and ScriptsAfter are SQL files run verbatim, before the
	// matching statements.
	ScriptsBefore    []string
	StatementsBefore []string
	ScriptsAfter     []string
	StatementsAfter  []string

	ExpectedDatasetPaths     []string
	ExpectedDatasetProviders []Provider
	// Predicates resolves "matcher:name" fields of expected datasets.
	Predicates exp.Predicates
}

func (c *Config) hasDatasets() bool {
	return len(c.DatasetPaths) > 0 || len(c.DatasetProviders) > 0
}

func (c *Config) hasExpected() bool {
	return len(c.ExpectedDatasetPaths) > 0 || len(c.ExpectedDatasetProviders) > 0
}
