package checkpoint

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
)

// FileSet stores one identifier per line in an append-only file. All writes go
// through a single goroutine which syncs the file after each line.
type FileSet struct {
	path  string
	f     file
	size  int64 // end of the last complete record
	err   error // set once the file could not be repaired after a failed write
	set   *xsync.MapOf[string, struct{}]
	aside string

	mu     sync.RWMutex
	closed bool

	requests chan recordRequest
	done     chan struct{}
}

// file is the part of *os.File used by the writer.
type file interface {
	io.StringWriter
	Sync() error
	Truncate(size int64) error
	Close() error
}

type recordRequest struct {
	item  string
	reply chan error
}

var _ Set = &FileSet{}

// OpenFile opens the checkpoint at path, creating it if it does not exist. A
// trailing line without line break is the remainder of an interrupted write;
// it is dropped and the file is truncated before new records are appended.
func OpenFile(path string, opts Options) (*FileSet, error) {
	var aside string
	items, err := readFile(path)
	if errors.Is(err, ErrCorrupt) && opts.ResetCorrupt {
		aside = fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		if rerr := os.Rename(path, aside); rerr != nil {
			return nil, errors.Wrap(rerr, "Rename")
		}
		debug.Log("moved corrupt checkpoint %v to %v", path, aside)
		items, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "OpenFile")
	}

	size, err := truncateTornLine(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	s := &FileSet{
		path:     path,
		aside:    aside,
		f:        f,
		size:     size,
		set:      xsync.NewMapOf[string, struct{}](),
		requests: make(chan recordRequest),
		done:     make(chan struct{}),
	}
	for _, item := range items {
		s.set.Store(item, struct{}{})
	}

	debug.Log("opened checkpoint %v with %d items", path, s.set.Size())

	go s.writer()
	return s, nil
}

func readFile(path string) ([]string, error) {
	buf, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(errors.Join(ErrCorrupt, err), "read %v", path)
	}

	// drop the remainder of an interrupted append
	if i := bytes.LastIndexByte(buf, '\n'); i < len(buf)-1 {
		debug.Log("dropping torn trailing record of %d bytes from %v", len(buf)-i-1, path)
		buf = buf[:i+1]
	}

	if !utf8.Valid(buf) || bytes.IndexByte(buf, 0) >= 0 {
		return nil, errors.Wrapf(ErrCorrupt, "%v contains invalid data", path)
	}

	var items []string
	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			items = append(items, line)
		}
	}
	return items, nil
}

// truncateTornLine cuts f after its last line break and returns the new size.
func truncateTornLine(f *os.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "Stat")
	}
	size := fi.Size()
	if size == 0 {
		return 0, nil
	}

	// records are short, scan backwards in small blocks
	var keep int64
	buf := make([]byte, 4096)
	for end := size; end > 0; {
		start := end - int64(len(buf))
		if start < 0 {
			start = 0
		}
		n, err := f.ReadAt(buf[:end-start], start)
		if err != nil && err != io.EOF {
			return 0, errors.Wrap(err, "ReadAt")
		}
		if i := bytes.LastIndexByte(buf[:n], '\n'); i >= 0 {
			keep = start + int64(i) + 1
			break
		}
		end = start
	}

	if keep == size {
		return size, nil
	}
	return keep, errors.Wrap(f.Truncate(keep), "Truncate")
}

func (s *FileSet) writer() {
	defer close(s.done)
	for req := range s.requests {
		req.reply <- s.write(req.item)
	}
}

func (s *FileSet) write(item string) error {
	if _, ok := s.set.Load(item); ok {
		return nil
	}

	if s.err != nil {
		return s.err
	}

	line := item + "\n"
	_, err := s.f.WriteString(line)
	if err != nil {
		err = errors.Wrapf(err, "append to %v", s.path)
	} else if serr := s.f.Sync(); serr != nil {
		err = errors.Wrapf(serr, "sync %v", s.path)
	}

	if err != nil {
		// remove a partially written line, later records would be appended to it
		if terr := s.f.Truncate(s.size); terr != nil {
			debug.Log("unable to truncate %v to %d: %v", s.path, s.size, terr)
			s.err = errors.Wrapf(terr, "%v is damaged, truncate", s.path)
		}
		return err
	}

	s.size += int64(len(line))
	s.set.Store(item, struct{}{})
	return nil
}

// MovedAside returns the name the corrupt checkpoint was renamed to when it
// was reset, or "" if it was intact.
func (s *FileSet) MovedAside() string {
	return s.aside
}

// Contains reports whether item has been recorded.
func (s *FileSet) Contains(item string) bool {
	_, ok := s.set.Load(item)
	return ok
}

// Record appends item to the file unless it is already present.
func (s *FileSet) Record(item string) error {
	if item == "" || strings.ContainsAny(item, "\r\n") {
		return errors.Errorf("invalid checkpoint record %q", item)
	}

	if s.Contains(item) {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	reply := make(chan error, 1)
	s.requests <- recordRequest{item: item, reply: reply}
	return <-reply
}

// Len returns the number of recorded items.
func (s *FileSet) Len() int {
	return s.set.Size()
}

// Close waits for pending records and closes the file.
func (s *FileSet) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.requests)
	s.mu.Unlock()

	<-s.done
	return errors.Wrap(s.f.Close(), "Close")
}
