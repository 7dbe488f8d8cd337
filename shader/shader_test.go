// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/trigon/shader"
	"github.com/devblok/trigon/utility/kar"
)

// mapSource is an in-memory Source
type mapSource map[string]string

func (m mapSource) List() []string {
	var names []string
	for k := range m {
		names = append(names, k)
	}
	return names
}

func (m mapSource) Find(name string) ([]byte, error) {
	if v, ok := m[name]; ok {
		return []byte(v), nil
	}
	return nil, os.ErrNotExist
}

func bundled(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "shaders", name))
	require.NoError(t, err)
	return string(data)
}

func TestTypeOf(t *testing.T) {
	cases := map[string]shader.Type{
		"triangle.vert.wgsl":       shader.VertexType,
		"triangle.frag.wgsl":       shader.FragmentType,
		"nested/dir/tri.vert.wgsl": shader.VertexType,
		"triangle.wgsl":            shader.UnknownType,
		"triangle.geom.wgsl":       shader.UnknownType,
		"triangle.vert.spv":        shader.UnknownType,
		"a.b.vert.wgsl":            shader.UnknownType,
		".vert.wgsl":               shader.UnknownType,
	}
	for name, want := range cases {
		assert.Equal(t, want, shader.TypeOf(name), name)
	}
}

func TestDiscoverSorted(t *testing.T) {
	files := shader.Discover(mapSource{
		"z.frag.wgsl": "",
		"readme.md":   "",
		"a.vert.wgsl": "",
	})
	assert.Equal(t, []shader.File{
		{Name: "a.vert.wgsl", Type: shader.VertexType},
		{Name: "z.frag.wgsl", Type: shader.FragmentType},
	}, files)
}

func TestLoadSetMissingStage(t *testing.T) {
	_, err := shader.LoadSet(mapSource{"tri.vert.wgsl": ""})
	assert.True(t, errors.Is(err, shader.ErrShaderMissing))
}

func TestLoadSetAmbiguous(t *testing.T) {
	_, err := shader.LoadSet(mapSource{
		"a.vert.wgsl": "",
		"b.vert.wgsl": "",
		"a.frag.wgsl": "",
	})
	assert.True(t, errors.Is(err, shader.ErrShaderAmbiguous))
}

func TestCompileBundled(t *testing.T) {
	for _, name := range []string{"triangle.vert.wgsl", "triangle.frag.wgsl"} {
		t.Run(name, func(t *testing.T) {
			code, err := shader.Compile([]byte(bundled(t, name)))
			require.NoError(t, err)
			require.NotEmpty(t, code)
			assert.Equal(t, uint32(0x07230203), code[0])
		})
	}
}

func TestLoadSetBundled(t *testing.T) {
	set, err := shader.LoadSet(shader.Bundled())
	require.NoError(t, err)
	assert.Equal(t, shader.VertexType, set.Vertex.Type)
	assert.Equal(t, shader.FragmentType, set.Fragment.Type)
	assert.NotEmpty(t, set.Vertex.Code)
	assert.NotEmpty(t, set.Fragment.Code)
}

func TestCompileInvalid(t *testing.T) {
	_, err := shader.Compile([]byte("this is not wgsl"))
	assert.Error(t, err)
}

func TestLoadSetFromArchive(t *testing.T) {
	builder, err := kar.NewBuilder(kar.Header{Author: "test", Version: 1})
	require.NoError(t, err)
	defer builder.Close()

	for _, name := range []string{"triangle.vert.wgsl", "triangle.frag.wgsl"} {
		require.NoError(t, builder.Add(name, strings.NewReader(bundled(t, name))))
	}
	buf := bytes.NewBuffer(nil)
	_, err = builder.WriteTo(buf)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "shaders.kar")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	src, closer, err := shader.Open(path)
	require.NoError(t, err)
	defer closer.Close()

	set, err := shader.LoadSet(src)
	require.NoError(t, err)
	assert.Equal(t, "triangle.vert.wgsl", set.Vertex.Name)
	assert.Equal(t, "triangle.frag.wgsl", set.Fragment.Name)
	assert.Equal(t, shader.FragmentType, set.Fragment.Type)
}

func TestOpenDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "x.vert.wgsl"), []byte("v"), 0o644))

	src, closer, err := shader.Open(dir)
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, []string{"sub/x.vert.wgsl"}, src.List())
	data, err := src.Find("sub/x.vert.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))
}

func TestOpenNotDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, _, err := shader.Open(path)
	assert.Error(t, err)
}

func TestBundledHasBothStages(t *testing.T) {
	files := shader.Discover(shader.Bundled())
	require.Len(t, files, 2)
	assert.Equal(t, shader.FragmentType, files[0].Type)
	assert.Equal(t, shader.VertexType, files[1].Type)
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		shader.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		shader.SliceUint32(data)
	}
}
