package checkpoint

import (
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/marekhanzlik/s3-glacier-restore/internal/debug"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
)

var tableName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// SQLiteSet stores items in a table of an SQLite database. Several sets may
// share one database file, each in its own table.
type SQLiteSet struct {
	db    *sql.DB
	table string
	set   *xsync.MapOf[string, struct{}]
	aside string

	mu     sync.RWMutex
	closed bool
}

var _ Set = &SQLiteSet{}

// OpenSQLite opens the set stored in table of the database at path. The
// database and the table are created if necessary.
func OpenSQLite(path, table string, opts Options) (*SQLiteSet, error) {
	if !tableName.MatchString(table) {
		return nil, errors.Errorf("invalid table name %q", table)
	}

	s, err := openSQLite(path, table)
	if errors.Is(err, ErrCorrupt) && opts.ResetCorrupt {
		aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		if rerr := os.Rename(path, aside); rerr != nil {
			return nil, errors.Wrap(rerr, "Rename")
		}
		// the journal files belong to the old database
		_ = os.Remove(path + "-wal")
		_ = os.Remove(path + "-shm")
		debug.Log("moved corrupt checkpoint database %v to %v", path, aside)
		s, err = openSQLite(path, table)
		if err == nil {
			s.aside = aside
		}
	}
	return s, err
}

func openSQLite(path, table string) (*SQLiteSet, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// a single connection serializes all writers
	db.SetMaxOpenConns(1)

	corrupt := func(err error, msg string) (*SQLiteSet, error) {
		_ = db.Close()
		return nil, errors.Wrapf(errors.Join(ErrCorrupt, err), "%s %v", msg, path)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return corrupt(err, "enable WAL mode for")
	}
	if _, err := db.Exec("PRAGMA synchronous=FULL"); err != nil {
		return corrupt(err, "configure")
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return corrupt(err, "configure")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + table + ` (
			item TEXT NOT NULL PRIMARY KEY,
			recorded_at TEXT NOT NULL
		)`); err != nil {
		return corrupt(err, "create table in")
	}

	s := &SQLiteSet{
		db:    db,
		table: table,
		set:   xsync.NewMapOf[string, struct{}](),
	}

	rows, err := db.Query(`SELECT item FROM ` + table)
	if err != nil {
		return corrupt(err, "query")
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return corrupt(err, "scan")
		}
		s.set.Store(item, struct{}{})
	}
	if err := rows.Err(); err != nil {
		return corrupt(err, "read")
	}

	debug.Log("opened checkpoint table %v in %v with %d items", table, path, s.set.Size())
	return s, nil
}

// MovedAside returns the name the corrupt database was renamed to when it was
// reset, or "" if it was intact.
func (s *SQLiteSet) MovedAside() string {
	return s.aside
}

// Contains reports whether item has been recorded.
func (s *SQLiteSet) Contains(item string) bool {
	_, ok := s.set.Load(item)
	return ok
}

// Record inserts item unless it is already present.
func (s *SQLiteSet) Record(item string) error {
	if item == "" {
		return errors.New("empty checkpoint record")
	}
	if s.Contains(item) {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	_, err := s.db.Exec(`INSERT OR IGNORE INTO `+s.table+` (item, recorded_at) VALUES (?, ?)`,
		item, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrapf(err, "record %v", item)
	}

	s.set.Store(item, struct{}{})
	return nil
}

// Len returns the number of recorded items.
func (s *SQLiteSet) Len() int {
	return s.set.Size()
}

// Close closes the database handle.
func (s *SQLiteSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Wrap(s.db.Close(), "Close")
}
