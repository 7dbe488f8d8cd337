// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestCompressExtract(t *testing.T) {
	c := qt.New(t)

	src := filepath.Join(c.TempDir(), "shaders")
	c.Assert(os.MkdirAll(filepath.Join(src, "nested"), 0o755), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(src, "triangle.vert.wgsl"), []byte("vertex"), 0o644), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(src, "nested", "triangle.frag.wgsl"), []byte("fragment"), 0o644), qt.IsNil)

	archive := filepath.Join(c.TempDir(), "shaders.kar")
	c.Assert(compressFiles(src, archive), qt.IsNil)
	c.Assert(compressFiles(src, archive), qt.ErrorMatches, "destination file exists.*")

	dst := c.TempDir()
	c.Assert(extractFiles(archive, dst), qt.IsNil)

	got, err := os.ReadFile(filepath.Join(dst, "triangle.vert.wgsl"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "vertex")

	got, err = os.ReadFile(filepath.Join(dst, "nested", "triangle.frag.wgsl"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "fragment")

	c.Assert(listFiles(archive), qt.IsNil)
}

func TestExtractPath(t *testing.T) {
	c := qt.New(t)

	p, err := extractPath("out", "a/b.wgsl")
	c.Assert(err, qt.IsNil)
	c.Assert(p, qt.Equals, filepath.Join("out", "a", "b.wgsl"))

	for _, name := range []string{"../evil", "a/../../evil", ".."} {
		_, err := extractPath("out", name)
		c.Assert(err, qt.IsNotNil, qt.Commentf(name))
	}
}

func TestExtractNotArchive(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(c.TempDir(), "plain.kar")
	c.Assert(os.WriteFile(path, []byte("not an archive at all"), 0o644), qt.IsNil)
	c.Assert(extractFiles(path, c.TempDir()), qt.IsNotNil)
}
