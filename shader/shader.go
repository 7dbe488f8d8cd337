// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package shader finds the WGSL shader sources and compiles them
// to SPIR-V when the program starts.
package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/naga"
)

// Errors for shader sets that cannot be turned into a pipeline
var (
	ErrShaderMissing   = errors.New("shader missing")
	ErrShaderAmbiguous = errors.New("more than one shader for stage")
	ErrNotSPIRV        = errors.New("compiled output is not SPIR-V")
)

const (
	sourceSuffix = ".wgsl"
	spirvMagic   = 0x07230203
)

// Type represents the type of shader thats loaded
type Type int

// Identifies shader objects with their types
const (
	VertexType Type = iota
	FragmentType
	UnknownType
)

func (t Type) String() string {
	switch t {
	case VertexType:
		return "vertex"
	case FragmentType:
		return "fragment"
	}
	return "unknown"
}

// File is a shader source file found in a Source
type File struct {
	Name string
	Type Type
}

// TypeOf tells the stage from a file name. The name must have exactly
// two dots, the first part is the name of the shader, second is the stage
// and the third marks it as WGSL source, e.g. triangle.vert.wgsl.
func TypeOf(name string) Type {
	base := name
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if !strings.HasSuffix(base, sourceSuffix) {
		return UnknownType
	}
	nodes := strings.Split(strings.TrimSuffix(base, sourceSuffix), ".")
	if len(nodes) != 2 || nodes[0] == "" {
		return UnknownType
	}
	switch nodes[1] {
	case "vert":
		return VertexType
	case "frag":
		return FragmentType
	}
	return UnknownType
}

// Discover lists the shader source files found in src, sorted by name
func Discover(src Source) []File {
	var files []File
	for _, name := range src.List() {
		if t := TypeOf(name); t != UnknownType {
			files = append(files, File{Name: name, Type: t})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files
}

// Set is one vertex and one fragment shader
type Set struct {
	Vertex   Compiled
	Fragment Compiled
}

// Compiled is a shader ready for shader module creation
type Compiled struct {
	Name string
	Type Type
	Code []uint32
}

// LoadSet finds exactly one vertex and one fragment source in src
// and compiles both.
func LoadSet(src Source) (Set, error) {
	found := map[Type][]File{}
	for _, f := range Discover(src) {
		found[f.Type] = append(found[f.Type], f)
	}

	for _, want := range []Type{VertexType, FragmentType} {
		switch len(found[want]) {
		case 0:
			return Set{}, fmt.Errorf("%w: %s", ErrShaderMissing, want)
		case 1:
		default:
			return Set{}, fmt.Errorf("%w: %s", ErrShaderAmbiguous, want)
		}
	}

	var (
		set Set
		err error
	)
	if set.Vertex, err = compileFile(src, found[VertexType][0]); err != nil {
		return Set{}, err
	}
	if set.Fragment, err = compileFile(src, found[FragmentType][0]); err != nil {
		return Set{}, err
	}
	return set, nil
}

func compileFile(src Source, file File) (Compiled, error) {
	contents, err := src.Find(file.Name)
	if err != nil {
		return Compiled{}, fmt.Errorf("reading %s: %w", file.Name, err)
	}
	code, err := Compile(contents)
	if err != nil {
		return Compiled{}, fmt.Errorf("compiling %s: %w", file.Name, err)
	}
	return Compiled{Name: file.Name, Type: file.Type, Code: code}, nil
}

// Compile turns WGSL source into SPIR-V words
func Compile(source []byte) ([]uint32, error) {
	spirv, err := naga.Compile(string(source))
	if err != nil {
		return nil, err
	}
	if len(spirv) < 4 || len(spirv)%4 != 0 {
		return nil, ErrNotSPIRV
	}
	code := SliceUint32(spirv)
	if code[0] != spirvMagic {
		return nil, ErrNotSPIRV
	}
	return code, nil
}

// SliceUint32 reslices little endian bytes into words, that is used
// to submit vulkan shaders for processing. Trailing bytes are dropped.
func SliceUint32(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words
}
