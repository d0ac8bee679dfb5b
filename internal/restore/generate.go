package restore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/marekhanzlik/s3-glacier-restore/internal/backend"
	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
	"github.com/marekhanzlik/s3-glacier-restore/internal/itemset"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui"
	"github.com/marekhanzlik/s3-glacier-restore/internal/ui/progress"
)

// reportEvery is the number of objects found between two progress messages.
const reportEvery = 1000

// GenerateList lists all archived objects of be and writes their keys to
// path. An existing list is only replaced if force is set. It returns the
// number of objects written.
func GenerateList(ctx context.Context, be backend.Backend, path string, force bool, printer progress.Printer) (int, error) {
	if !force {
		if _, err := os.Lstat(path); err == nil {
			return 0, errors.Fatalf("%v already exists, use --force to overwrite it", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return 0, errors.Wrap(err, "MkdirAll")
	}

	printer.P("listing archived objects in %v", be.Location())

	var keys []string
	var size uint64
	err := be.List(ctx, func(obj backend.Object) error {
		keys = append(keys, obj.Key)
		size += uint64(max(obj.Size, 0))
		if len(keys)%reportEvery == 0 {
			printer.P("found %d objects", len(keys))
		}
		printer.VV("%v (%v, %v)", obj.Key, obj.StorageClass, ui.FormatBytes(uint64(max(obj.Size, 0))))
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "list %v", be.Location())
	}

	if err := itemset.Write(path, keys, force); err != nil {
		return 0, err
	}

	printer.P("%d archived objects (%v) saved to %v", len(keys), ui.FormatBytes(size), path)
	return len(keys), nil
}
