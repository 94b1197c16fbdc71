// Package loader turns dataset files into dataset.Dataset values. Loaders
// are selected by file extension through Delegating.
package loader

import (
	"github.com/calumari/dbrider/dataset"
)

type Loader interface {
	Load(path string) (dataset.Dataset, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(path string) (dataset.Dataset, error)

func (f LoaderFunc) Load(path string) (dataset.Dataset, error) {
	return f(path)
}

// Default returns a dispatcher for json, yaml and yml files.
func Default() (*Delegating, error) {
	j, err := NewJSON()
	if err != nil {
		return nil, err
	}
	y := NewYAML()
	return NewDelegating(map[string]Loader{
		"json": j,
		"yaml": y,
		"yml":  y,
	}), nil
}
