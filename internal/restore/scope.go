package restore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend/location"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
)

// Scope names the files that hold the state of one bucket.
type Scope struct {
	// Dir is the directory the files are stored in.
	Dir string
	// Name is the common file name prefix.
	Name string
}

// NewScope returns the scope for the location loc ("s3:bucket/prefix",
// "azure:container:/prefix") within dir. The default scheme is left out of
// the name, so "s3:photos" uses the files "photos.objects" and so on.
//
// Path separators become "_" and colons "+". Those two characters, "%" and
// characters not allowed in file names on some systems are written as %XX,
// so different locations never share a name.
func NewScope(dir, loc string) Scope {
	loc = strings.TrimPrefix(loc, location.DefaultScheme+":")
	loc = strings.TrimRight(loc, "/")

	var sb strings.Builder
	for i := 0; i < len(loc); i++ {
		switch c := loc[i]; {
		case c == '/':
			sb.WriteByte('_')
		case c == ':':
			sb.WriteByte('+')
		case c < 0x20, c == 0x7f, strings.IndexByte(`%_+\<>"|?*`, c) >= 0:
			fmt.Fprintf(&sb, "%%%02X", c)
		default:
			sb.WriteByte(c)
		}
	}

	if dir == "" {
		dir = "."
	}
	return Scope{Dir: dir, Name: sb.String()}
}

func (s Scope) file(ext string) string {
	return filepath.Join(s.Dir, s.Name+ext)
}

// Objects is the list of archived objects.
func (s Scope) Objects() string { return s.file(".objects") }

// Progress is the checkpoint of objects whose restore was requested.
func (s Scope) Progress() string { return s.file(".progress") }

// Available is the checkpoint of objects that are ready for download.
func (s Scope) Available() string { return s.file(".available") }

// Lock is the lock file which keeps two runs from using the same checkpoints.
func (s Scope) Lock() string { return s.file(".lock") }

// SQLite is the database used by the sqlite checkpoint backend.
func (s Scope) SQLite() string { return s.file(".checkpoint.db") }

func (s Scope) prepare() error {
	if s.Name == "" {
		return errors.Fatal("scope name is empty")
	}
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return errors.Wrap(err, "MkdirAll")
	}
	return nil
}
