//go:build !windows

package pidfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// File is an on-disk record mapping a service to its process identifier.
// The format stays interoperable with foreign writers: the first line is
// the decimal PID (optionally newline-terminated). Our own writes append a
// second line of JSON metadata carrying the process start time so a
// recycled PID is not mistaken for the original process.
type File struct {
	Path string
}

// Meta is the optional second line of a pidfile.
type Meta struct {
	StartUnix int64 `json:"start_unix"`
}

// Read parses the pidfile. Meta is zero-valued for plain single-line files
// written by other implementations; that is not an error.
func (f File) Read() (int, Meta, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return 0, Meta{}, err
	}
	pidLine, rest, _ := strings.Cut(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	pidStr := strings.TrimSpace(pidLine)
	if pidStr == "" {
		return 0, Meta{}, fmt.Errorf("empty pidfile: %s", f.Path)
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, Meta{}, fmt.Errorf("invalid pid in %s: %w", f.Path, err)
	}
	var m Meta
	if rest = strings.TrimSpace(rest); rest != "" {
		// Tolerate trailing junk; the PID alone is authoritative.
		_ = json.Unmarshal([]byte(rest), &m)
	}
	return pid, m, nil
}

// Exists reports whether the record file is present.
func (f File) Exists() bool {
	_, err := os.Stat(f.Path)
	return err == nil
}

// Write records pid atomically: the content is staged in a temp file in the
// same directory and renamed over the destination, so a concurrent Read
// never observes a partial record. The parent directory must already exist;
// the supervisor creates it with the ownership the run-as identity needs.
func (f File) Write(pid int, m Meta) error {
	dir := filepath.Dir(f.Path)

	content := strconv.Itoa(pid) + "\n"
	if m.StartUnix > 0 {
		j, err := json.Marshal(m)
		if err == nil {
			content += string(j) + "\n"
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("stage pidfile in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Remove deletes the record. A missing file is not an error.
func (f File) Remove() error {
	err := os.Remove(f.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
