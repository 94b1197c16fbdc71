package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/calumari/dbrider/dataset"
)

var errNoFiles = errors.New("no dataset files resolved")

// resolve expands path into the files to read. path may name a file, a
// directory (its direct children with a matching extension) or a glob.
func resolve(path string, exts []string) ([]string, error) {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return []string{path}, nil
		}
		ents, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, e := range ents {
			if !e.IsDir() && hasExt(e.Name(), exts) {
				out = append(out, filepath.Join(path, e.Name()))
			}
		}
		return out, nil
	}
	if !strings.ContainsAny(path, "*?[") {
		return nil, err
	}
	matches, err := filepath.Glob(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() && hasExt(m, exts) {
			out = append(out, m)
		}
	}
	return out, nil
}

func hasExt(name string, exts []string) bool {
	return slices.Contains(exts, strings.TrimPrefix(filepath.Ext(name), "."))
}

// loadFiles resolves path and merges the datasets read from each file in
// lexical file order.
func loadFiles(path string, exts []string, read func(file string) (dataset.Dataset, error)) (dataset.Dataset, error) {
	files, err := resolve(path, exts)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("resolve %s: %w", path, errNoFiles)
	}
	if len(files) == 1 {
		return read(files[0])
	}
	slices.Sort(files)
	sets := make([]dataset.Dataset, 0, len(files))
	for _, f := range files {
		ds, err := read(f)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ds)
	}
	return dataset.Merge(sets...), nil
}
