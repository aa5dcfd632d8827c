package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// backupTimestamp is the suffix format for on-disk backups of files we are
// about to overwrite.
const backupTimestamp = "20060102-150405"

// backupFile copies path to path.bak.<timestamp> and returns the backup path.
// A missing original is not an error; it returns "".
func backupFile(path string, now time.Time) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	mode := fs.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	backup := fmt.Sprintf("%s.bak.%s", path, now.Format(backupTimestamp))
	if err := atomicWriteFile(backup, data, mode); err != nil {
		return "", err
	}
	return backup, nil
}

// fileSnapshot captures a file's content so a failed mutation can be rolled
// back byte-for-byte. Restore removes the file entirely when it did not
// exist at snapshot time.
type fileSnapshot struct {
	path    string
	existed bool
	data    []byte
	mode    fs.FileMode
}

func snapshotFile(path string) (fileSnapshot, error) {
	s := fileSnapshot{path: path}
	st, err := os.Stat(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	s.existed = true
	s.data = data
	s.mode = st.Mode().Perm()
	return s, nil
}

func (s fileSnapshot) restore() error {
	if !s.existed {
		err := os.Remove(s.path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return atomicWriteFile(s.path, s.data, s.mode)
}

// replaceFileValidated writes data to path under a snapshot transaction: if
// validate rejects the new content the prior bytes are restored. Returns
// whether a rollback happened.
func replaceFileValidated(path string, data []byte, perm os.FileMode, validate func() error) (bool, error) {
	snap, err := snapshotFile(path)
	if err != nil {
		return false, err
	}
	if err := atomicWriteFile(path, data, perm); err != nil {
		return false, err
	}
	if validate == nil {
		return false, nil
	}
	if err := validate(); err != nil {
		if rerr := snap.restore(); rerr != nil {
			return true, fmt.Errorf("validation failed (%v) and rollback failed: %w", err, rerr)
		}
		return true, fmt.Errorf("validation failed, previous content restored: %w", err)
	}
	return false, nil
}
