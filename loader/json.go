package loader

import (
	"fmt"
	"os"

	"github.com/calumari/jwalk"
	"github.com/go-json-experiment/json"

	"github.com/calumari/dbrider/dataset"
	"github.com/calumari/dbrider/exp"
)

type JSONOptions struct {
	Registry *jwalk.Registry
}

type JSONOption func(*JSONOptions)

// WithRegistry decodes with reg. It must not already hold
// exp.MatcherDirective, which is registered on construction.
func WithRegistry(reg *jwalk.Registry) JSONOption {
	return func(o *JSONOptions) { o.Registry = reg }
}

// JSON loads datasets shaped as {"table": [{"column": value}]}. Fields may
// use {"$matcher": "name"} in place of the "matcher:name" marker string.
type JSON struct {
	reg *jwalk.Registry
}

var _ Loader = (*JSON)(nil)

func NewJSON(opts ...JSONOption) (*JSON, error) {
	op := &JSONOptions{}
	for _, o := range opts {
		o(op)
	}
	reg := op.Registry
	if reg == nil {
		r, err := jwalk.NewRegistry()
		if err != nil {
			return nil, err
		}
		reg = r
	}
	if err := reg.Register(exp.MatcherDirective); err != nil {
		return nil, fmt.Errorf("register matcher directive: %w", err)
	}
	return &JSON{reg: reg}, nil
}

// Load reads a JSON file, every .json file of a directory or every match
// of a glob.
func (l *JSON) Load(path string) (dataset.Dataset, error) {
	return loadFiles(path, []string{"json"}, l.readFile)
}

func (l *JSON) readFile(file string) (dataset.Dataset, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var doc jwalk.Document
	if err := json.UnmarshalRead(f, &doc, json.WithUnmarshalers(jwalk.Unmarshalers(l.reg))); err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	ds, err := dataset.FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	return ds, nil
}
