package loader

import (
	"maps"
	"path/filepath"
	"strings"

	"github.com/calumari/dbrider/dataset"
)

// Delegating dispatches to the loader registered for the path's extension.
// Extensions are matched exactly, without the dot and case sensitive.
type Delegating struct {
	loaders map[string]Loader
}

var _ Loader = (*Delegating)(nil)

func NewDelegating(loaders map[string]Loader) *Delegating {
	d := &Delegating{loaders: make(map[string]Loader, len(loaders))}
	maps.Copy(d.loaders, loaders)
	return d
}

// Register adds or replaces the loader for ext.
func (d *Delegating) Register(ext string, l Loader) {
	d.loaders[strings.TrimPrefix(ext, ".")] = l
}

func (d *Delegating) Load(path string) (dataset.Dataset, error) {
	if path == "" {
		return nil, &UnsupportedFormatError{Reason: "empty path"}
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, &UnsupportedFormatError{Path: path, Reason: "no file extension"}
	}
	l, ok := d.loaders[ext]
	if !ok {
		return nil, &UnsupportedFormatError{Path: path, Ext: ext, Reason: "no loader registered"}
	}
	return l.Load(path)
}
