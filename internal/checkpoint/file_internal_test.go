package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	rtest "github.com/marekhanzlik/s3-glacier-restore/internal/test"
)

// shortFile writes only the first half of the line for item, then fails.
type shortFile struct {
	*os.File
	item        string
	truncateErr error
}

func (f *shortFile) WriteString(s string) (int, error) {
	if s != f.item+"\n" {
		return f.File.WriteString(s)
	}
	n, err := f.File.WriteString(s[:len(s)/2])
	if err != nil {
		return n, err
	}
	return n, errors.New("no space left on device")
}

func (f *shortFile) Truncate(size int64) error {
	if f.truncateErr != nil {
		return f.truncateErr
	}
	return f.File.Truncate(size)
}

func openShort(t *testing.T, path, item string, truncateErr error) *FileSet {
	s, err := OpenFile(path, Options{})
	rtest.OK(t, err)
	s.f = &shortFile{File: s.f.(*os.File), item: item, truncateErr: truncateErr}
	return s
}

func TestFileSetShortWrite(t *testing.T) {
	path := filepath.Join(rtest.TempDir(t), "photos.progress")
	rtest.WriteLines(t, path, "first")

	s := openShort(t, path, "photos/abc", nil)
	err := s.Record("photos/abc")
	rtest.Assert(t, err != nil, "short write was not reported")
	rtest.Assert(t, !s.Contains("photos/abc"), "failed record is part of the set")

	rtest.OK(t, s.Record("photos/def"))
	rtest.OK(t, s.Close())

	buf, err := os.ReadFile(path)
	rtest.OK(t, err)
	rtest.Equals(t, "first\nphotos/def\n", string(buf))

	s, err = OpenFile(path, Options{})
	rtest.OK(t, err)
	rtest.Assert(t, s.Contains("photos/def"), "record after short write lost")
	rtest.Equals(t, 2, s.Len())
	rtest.OK(t, s.Close())
}

func TestFileSetShortWriteDamaged(t *testing.T) {
	path := filepath.Join(rtest.TempDir(t), "photos.progress")
	rtest.WriteLines(t, path, "first")

	s := openShort(t, path, "photos/abc", errors.New("input/output error"))
	rtest.Assert(t, s.Record("photos/abc") != nil, "short write was not reported")

	// the fragment is still there, nothing may be appended to it
	err := s.Record("photos/def")
	rtest.Assert(t, err != nil, "record appended to a damaged file")
	rtest.OK(t, s.Close())

	s, err = OpenFile(path, Options{})
	rtest.OK(t, err)
	rtest.Assert(t, !s.Contains("photos/def"), "record after short write was merged into the file")
	rtest.Equals(t, 1, s.Len())
	rtest.OK(t, s.Close())
}
