// Package configtest provides testing utilities for hot-reloaded config
// files. File writes config files with modification times that are
// guaranteed to differ in whole seconds, so change detection does not
// depend on how fast the test runs.
package configtest

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// File is a config file in a test's temporary directory.
type File struct {
	t    testing.TB
	path string

	mu      sync.Mutex
	modTime time.Time
}

// NewFile writes content to name inside t.TempDir().
func NewFile(t testing.TB, name, content string) *File {
	t.Helper()
	f := &File{
		t:       t,
		path:    filepath.Join(t.TempDir(), name),
		modTime: time.Now().Add(-time.Hour).Truncate(time.Second),
	}
	f.write(content, f.modTime)
	return f
}

// Path returns the file's absolute path.
func (f *File) Path() string {
	return f.path
}

// ModTime returns the modification time the file was last given.
func (f *File) ModTime() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modTime
}

// Write replaces the content and moves the modification time one second
// forward.
func (f *File) Write(content string) {
	f.t.Helper()
	f.mu.Lock()
	f.modTime = f.modTime.Add(time.Second)
	mt := f.modTime
	f.mu.Unlock()
	f.write(content, mt)
}

// WriteKeepTime replaces the content but restores the previous
// modification time.
func (f *File) WriteKeepTime(content string) {
	f.t.Helper()
	f.write(content, f.ModTime())
}

// Touch moves the modification time one second forward without changing
// the content.
func (f *File) Touch() {
	f.t.Helper()
	f.mu.Lock()
	f.modTime = f.modTime.Add(time.Second)
	mt := f.modTime
	f.mu.Unlock()
	f.SetModTime(mt)
}

// SetModTime sets the modification time to mt.
func (f *File) SetModTime(mt time.Time) {
	f.t.Helper()
	if err := os.Chtimes(f.path, mt, mt); err != nil {
		f.t.Fatalf("setting mod time of %s: %v", f.path, err)
	}
}

// Remove deletes the file.
func (f *File) Remove() {
	f.t.Helper()
	if err := os.Remove(f.path); err != nil {
		f.t.Fatalf("removing %s: %v", f.path, err)
	}
}

func (f *File) write(content string, mt time.Time) {
	f.t.Helper()
	if err := os.WriteFile(f.path, []byte(content), 0o644); err != nil {
		f.t.Fatalf("writing %s: %v", f.path, err)
	}
	f.SetModTime(mt)
}
