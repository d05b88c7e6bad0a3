package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/spf13/afero"
)

// Local reads and writes files below a root directory.
type Local struct {
	fs afero.Fs
}

// NewLocal serves references from fsys. A non-empty root confines access to
// that directory.
func NewLocal(fsys afero.Fs, root string) *Local {
	if root != "" {
		fsys = afero.NewBasePathFs(fsys, root)
	}
	return &Local{fs: fsys}
}

// NewLocalDir serves references from root on the OS filesystem.
func NewLocalDir(root string) *Local {
	if root == "" {
		root = "."
	}
	return NewLocal(afero.NewOsFs(), root)
}

// ReadFile implements Reader.
func (l *Local) ReadFile(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(l.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return data, nil
}

// WriteFile implements Writer. Parent directories are created as needed.
func (l *Local) WriteFile(ctx context.Context, ref string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := cleanRef(ref)
	if err != nil {
		return err
	}
	if dir := path.Dir(p); dir != "." {
		if err := l.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", ref, err)
		}
	}
	if err := afero.WriteFile(l.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", ref, err)
	}
	return nil
}
