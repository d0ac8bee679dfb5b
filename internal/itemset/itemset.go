// Package itemset reads and writes the list of object identifiers a run
// works on. The list is a flat file with one identifier per line.
package itemset

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
)

// ErrSourceUnavailable is returned when the list cannot be read, or is empty
// although entries were required.
var ErrSourceUnavailable = errors.New("object list unavailable")

// Set is an ordered, duplicate-free list of identifiers. It is immutable once
// loaded.
type Set struct {
	items []string
	index map[string]struct{}
}

// New builds a Set from items, dropping duplicates and empty identifiers
// while keeping the order of first occurrence.
func New(items ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(items))}
	for _, item := range items {
		s.add(item)
	}
	return s
}

func (s *Set) add(item string) bool {
	if item == "" {
		return false
	}
	if _, ok := s.index[item]; ok {
		return false
	}
	s.index[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

// Items returns the identifiers in list order. The returned slice must not be
// modified.
func (s *Set) Items() []string {
	return s.items
}

// Len returns the number of distinct identifiers.
func (s *Set) Len() int {
	return len(s.items)
}

// Contains reports whether item is part of the set.
func (s *Set) Contains(item string) bool {
	_, ok := s.index[item]
	return ok
}

// Load reads the list at path. Blank lines are skipped and a trailing "\r" is
// removed, so lists edited on Windows work too. If requireNonEmpty is set, a
// list without entries is reported as ErrSourceUnavailable.
func Load(path string, requireNonEmpty bool) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.Join(ErrSourceUnavailable, err), "open %v", path)
	}
	defer func() {
		_ = f.Close()
	}()

	s := New()
	var lines, duplicates int

	sc := bufio.NewScanner(f)
	// object keys may be up to 1024 bytes, leave room for generous lines
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		lines++
		if !s.add(line) {
			duplicates++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(errors.Join(ErrSourceUnavailable, err), "read %v", path)
	}

	debug.Log("loaded %v: %d lines, %d duplicates dropped", path, lines, duplicates)

	if requireNonEmpty && s.Len() == 0 {
		return nil, errors.Wrapf(ErrSourceUnavailable, "%v contains no object identifiers", path)
	}

	return s, nil
}

// Write stores items at path, one per line. The file is written to a
// temporary name and renamed into place, so an interrupted write never leaves
// a truncated list behind. Unless overwrite is set, an existing file is left
// alone and an error is returned.
func Write(path string, items []string, overwrite bool) error {
	for _, item := range items {
		if strings.ContainsAny(item, "\r\n") {
			return errors.Errorf("identifier %q contains a line break and cannot be stored in %v", item, path)
		}
	}

	if !overwrite {
		if _, err := os.Lstat(path); err == nil {
			return errors.Fatalf("%v already exists, use --force to overwrite it", path)
		}
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return errors.Wrap(err, "CreateTemp")
	}
	tmpname := f.Name()

	cleanup := func(err error) error {
		_ = f.Close()
		_ = os.Remove(tmpname)
		return err
	}

	wr := bufio.NewWriter(f)
	for _, item := range items {
		if _, err := wr.WriteString(item + "\n"); err != nil {
			return cleanup(errors.Wrap(err, "Write"))
		}
	}

	if err := wr.Flush(); err != nil {
		return cleanup(errors.Wrap(err, "Flush"))
	}
	if err := f.Sync(); err != nil {
		return cleanup(errors.Wrap(err, "Sync"))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpname)
		return errors.Wrap(err, "Close")
	}

	if err := os.Rename(tmpname, path); err != nil {
		_ = os.Remove(tmpname)
		return errors.Wrap(err, "Rename")
	}

	debug.Log("wrote %d identifiers to %v", len(items), path)
	return nil
}
