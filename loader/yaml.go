package loader

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/calumari/dbrider/dataset"
)

// YAML loads datasets shaped as a mapping of table names to row lists.
type YAML struct{}

var _ Loader = (*YAML)(nil)

func NewYAML() *YAML {
	return &YAML{}
}

// Load reads a YAML file, every .yaml/.yml file of a directory or every
// match of a glob.
func (l *YAML) Load(path string) (dataset.Dataset, error) {
	return loadFiles(path, []string{"yaml", "yml"}, l.readFile)
}

func (l *YAML) readFile(file string) (dataset.Dataset, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var root map[string]any
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	ds, err := dataset.FromMap(root)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	return ds, nil
}
