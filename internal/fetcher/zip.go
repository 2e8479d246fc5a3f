package fetcher

import (
	"archive/zip"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Member is one file read out of an archive.
type Member struct {
	Name string
	Data []byte
}

// ReadZIP returns the members of the archive at path accepted by match,
// in archive order. Directories are skipped. A member that cannot be read
// is logged and skipped; only an unopenable archive is an error.
func ReadZIP(path string, match func(name string) bool) ([]Member, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open archive %s", path)
	}
	defer r.Close() //nolint:errcheck

	var out []Member
	for _, f := range r.File {
		if f.FileInfo().IsDir() || (match != nil && !match(f.Name)) {
			continue
		}
		b, err := readZIPEntry(f)
		if err != nil {
			zap.L().Warn("zip: skipping unreadable member",
				zap.String("archive", path),
				zap.String("member", f.Name),
				zap.Error(err),
			)
			continue
		}
		out = append(out, Member{Name: f.Name, Data: b})
	}
	return out, nil
}

func readZIPEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxDatasetBytes {
		return nil, eris.Errorf("zip: member %q exceeds %d bytes", f.Name, MaxDatasetBytes)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	b, err := io.ReadAll(io.LimitReader(rc, MaxDatasetBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "zip: read entry")
	}
	if len(b) > MaxDatasetBytes {
		return nil, eris.Errorf("zip: member %q exceeds %d bytes", f.Name, MaxDatasetBytes)
	}
	return b, nil
}
