package llm

import "path/filepath"

// BaseDirFunc supplies the application data directory used to resolve
// relative model references. It is consulted only for relative references.
type BaseDirFunc func() (string, error)

// modelsSubdir is where downloaded models live under the data directory.
const modelsSubdir = "offline-models"

// ModelsDir returns the directory relative model references resolve against.
func ModelsDir(base string) string { return filepath.Join(base, modelsSubdir) }

// resolveModelPath turns a model reference into an absolute path. Absolute
// references pass through unchanged; relative ones are joined under
// <base>/offline-models/.
func resolveModelPath(ref string, baseDir BaseDirFunc) (string, error) {
	if filepath.IsAbs(ref) {
		return ref, nil
	}
	base, err := baseDir()
	if err != nil {
		return "", pathResolutionError{cause: err}
	}
	return filepath.Join(base, modelsSubdir, ref), nil
}
