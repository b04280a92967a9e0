package fileutil

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process is writing the same file.
var ErrLocked = errors.New("file is locked by another writer")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadText reads a text file and drops a leading UTF-8 byte order mark.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return DecodeText(data), nil
}

// DecodeText converts raw bytes to a string without a leading UTF-8 BOM.
func DecodeText(data []byte) string {
	return string(bytes.TrimPrefix(data, utf8BOM))
}

// WriteFileLocked writes data to path through a temp file and rename while
// holding an advisory lock on path + ".lock". Readers never see a partially
// written file, and concurrent writers fail fast with ErrLocked.
func WriteFileLocked(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure output directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrLocked)
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
