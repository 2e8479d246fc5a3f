package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// DirFetcher reads datasets from a directory, normally <out>/data.
type DirFetcher struct {
	Root string
}

// NewDirFetcher returns a DirFetcher rooted at root.
func NewDirFetcher(root string) *DirFetcher {
	return &DirFetcher{Root: root}
}

// Fetch returns the bytes of the named dataset.
func (d *DirFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "fetcher: dir")
	}

	f, err := os.Open(filepath.Join(d.Root, name))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", name)
	}
	defer f.Close() //nolint:errcheck

	b, err := io.ReadAll(io.LimitReader(f, MaxDatasetBytes+1))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", name)
	}
	if len(b) > MaxDatasetBytes {
		return nil, eris.Errorf("fetcher: %s exceeds %d bytes", name, MaxDatasetBytes)
	}
	return b, nil
}
