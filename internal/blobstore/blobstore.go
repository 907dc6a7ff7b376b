// Package blobstore keeps uploaded photo bytes on the local filesystem,
// addressed by their SHA-256 digest. Files are sharded into a two-level
// directory tree (digest ab12cd… lands in ab/12/) so no single directory can
// accumulate more than 65536 subdirectories regardless of collection size.
package blobstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

// ValidDigest matches a lowercase hex-encoded SHA-256 digest (64 characters).
var ValidDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Blob files are owner read/write, group read, so a serving principal in the
// owning group can read them directly.
const blobMode = 0o640

// Store is a filesystem-backed, write-once blob store.
type Store struct {
	root string
}

// New creates a blob store rooted at the given directory.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: root}, nil
}

// Path returns the filesystem path for a digest. Pure, no I/O.
func (s *Store) Path(sha string) string {
	return filepath.Join(s.root, sha[:2], sha[2:4], sha+".jpg")
}

// Exists reports whether a blob is present.
func (s *Store) Exists(sha string) bool {
	_, err := os.Stat(s.Path(sha))
	return err == nil
}

// Put stores a blob if it is not already present and reports whether it
// existed before the call. Writes are write-once: when two concurrent
// uploads race on the same digest, the loser observes the file created by
// the winner and returns existed=true without writing.
func (s *Store) Put(sha string, data []byte) (existed bool, err error) {
	if !ValidDigest.MatchString(sha) {
		return false, fmt.Errorf("invalid blob digest: %q", sha)
	}
	path := s.Path(sha)

	if _, err := os.Stat(path); err == nil {
		return true, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create blob dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, blobMode)
	if errors.Is(err, fs.ErrExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("create blob %s: %w", sha, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return false, fmt.Errorf("write blob %s: %w", sha, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return false, fmt.Errorf("close blob %s: %w", sha, err)
	}

	// O_CREATE honors the umask; force the intended bits.
	if err := os.Chmod(path, blobMode); err != nil {
		return false, fmt.Errorf("chmod blob %s: %w", sha, err)
	}
	return false, nil
}

// Delete removes a blob. A missing file is success: the goal state is
// "file does not exist".
func (s *Store) Delete(sha string) error {
	if !ValidDigest.MatchString(sha) {
		return nil
	}
	err := os.Remove(s.Path(sha))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob %s: %w", sha, err)
	}
	return nil
}
