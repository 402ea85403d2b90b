package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"
)

// FSFetcher reads fragments from a filesystem. Query strings are ignored.
type FSFetcher struct {
	fs afero.Fs
}

// NewFS serves files from fsys.
func NewFS(fsys afero.Fs) *FSFetcher {
	return &FSFetcher{fs: fsys}
}

// NewDir serves files below dir on the OS filesystem.
func NewDir(dir string) *FSFetcher {
	return NewFS(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

func (f *FSFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := objectPath("", url)
	data, err := afero.ReadFile(f.fs, name)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("fetch %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", name, err)
	}
	return string(data), nil
}
