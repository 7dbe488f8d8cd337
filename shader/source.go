// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobuffalo/packr"

	"github.com/devblok/trigon/utility/kar"
)

// Source is where shader sources are read from
type Source interface {

	// List returns every file name available
	List() []string

	// Find returns the contents of the named file
	Find(name string) ([]byte, error)
}

// Bundled returns the shaders shipped with the program
func Bundled() Source {
	return packr.NewBox("../shaders")
}

// DirSource reads shader sources from a directory on disk
type DirSource string

// List implements interface
func (d DirSource) List() []string {
	var names []string
	filepath.Walk(string(d), func(path string, f os.FileInfo, err error) error {
		if err != nil || f.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(string(d), path); err == nil {
			names = append(names, filepath.ToSlash(rel))
		}
		return nil
	})
	return names
}

// Find implements interface
func (d DirSource) Find(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
}

// Open picks a Source for path. An empty path means the bundled
// shaders, a .kar file is opened as an archive, anything else is
// treated as a directory. The returned closer must be called when done.
func Open(path string) (Source, io.Closer, error) {
	switch {
	case path == "":
		return Bundled(), nopCloser{}, nil
	case strings.HasSuffix(path, ".kar"):
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		ar, err := kar.Open(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		return ar, f, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s: not a directory or kar archive", path)
	}
	return DirSource(path), nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
