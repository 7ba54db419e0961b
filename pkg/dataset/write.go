package dataset

import (
	"os"
)

// WriteError reports a failed artifact write. It aborts the current pass.
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// writeFileAtomic writes data to a temporary file and renames it into place,
// so readers observe either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &WriteError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &WriteError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
