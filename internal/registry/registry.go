// Package registry maintains the endpoint registry: a newline-delimited
// text file listing running providers, and a small HTTP server exposing it.
package registry

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File is an append-only registry file. Blank lines and lines starting with
// "#" are ignored. An entry is never appended twice.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a registry backed by path. The file is created on the
// first Register.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the registry file location.
func (f *File) Path() string {
	return f.path
}

// Register appends entry unless it is already listed. It reports whether
// the entry was added.
func (f *File) Register(entry string) (bool, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" || strings.HasPrefix(entry, "#") || strings.ContainsAny(entry, "\r\n") {
		return false, fmt.Errorf("registry: invalid entry %q", entry)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("registry: %w", err)
	}
	for _, existing := range parse(data) {
		if existing == entry {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return false, fmt.Errorf("registry: %w", err)
	}
	out, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("registry: %w", err)
	}
	defer out.Close()

	line := entry + "\n"
	if len(data) > 0 {
		line = "\n" + line
	}
	if _, err := out.WriteString(line); err != nil {
		return false, fmt.Errorf("registry: %w", err)
	}
	return true, nil
}

// Entries lists the registered endpoints in file order. A missing file has
// no entries.
func (f *File) Entries() ([]string, error) {
	data, err := f.Read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	return parse(data), nil
}

// Read returns the raw file content.
func (f *File) Read() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return data, nil
}

func parse(data []byte) []string {
	entries := []string{}
	seen := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		entries = append(entries, line)
	}
	return entries
}
