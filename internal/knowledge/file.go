package knowledge

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
)

// writeFileAtomic replaces path with data via a temp file and rename, so a
// reader never observes a partial write.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write server knowledge")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "failed to replace server knowledge")
	}
	return nil
}

// quarantine renames an unreadable store file out of the way and returns its new name
func quarantine(path string) (string, error) {
	target := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405.000000000Z"))
	if err := os.Rename(path, target); err != nil {
		return "", errors.Wrap(err, "failed to move corrupt server knowledge")
	}
	return target, nil
}
