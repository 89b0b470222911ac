package cmdutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/afero"

	"github.com/kgcourse/geopub/pkg/graph"
)

// Fs is where commands read and write local files.
var Fs = afero.NewOsFs()

// ReadOpsFile reads a JSON array of ops.
func ReadOpsFile(fsys afero.Fs, path string) ([]graph.Op, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ops file: %w", err)
	}
	defer f.Close()
	ops, err := graph.ReadOps(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ops, nil
}

// AppendOpsFile adds ops to the end of the batch stored at path, creating the
// file when it does not exist.
func AppendOpsFile(fsys afero.Fs, path string, ops []graph.Op) (int, error) {
	existing, err := ReadOpsFile(fsys, path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}
	all := append(existing, ops...)

	f, err := fsys.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("writing ops file: %w", err)
	}
	if err := graph.WriteOps(f, all); err != nil {
		f.Close()
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return len(all), f.Close()
}
