// Package registry discovers downloaded models on disk.
package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"proassistd/internal/common/fsutil"
	"proassistd/pkg/types"
)

// LoadDir walks dir for *.onnx files and builds a registry from their paths.
// ID is the path relative to dir; Name is the containing directory (or the
// file name for models at the top level). A missing dir yields an empty
// registry, since the app may simply not have downloaded anything yet.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if !fsutil.PathExists(abs) {
		return nil, nil
	}
	var models []types.Model
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".onnx") {
			return nil
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		name := filepath.Base(filepath.Dir(path))
		if filepath.Dir(path) == abs {
			name = strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		}
		var size int64
		if fi, err := os.Stat(path); err == nil {
			size = fi.Size()
		}
		models = append(models, types.Model{
			ID:           rel,
			Name:         name,
			Path:         path,
			HasTokenizer: fsutil.PathExists(filepath.Join(filepath.Dir(path), "tokenizer.json")),
			SizeBytes:    size,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan models dir: %w", err)
	}
	return models, nil
}
