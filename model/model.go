// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model holds the vertex layout and the fixed triangle.
package model

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
)

// Vertex is a model vertex
type Vertex struct {
	Pos   glm.Vec3
	Color glm.Vec4
}

// VertexSize is the tightly packed size of one Vertex in bytes
const VertexSize = int(unsafe.Sizeof(Vertex{}))

// Triangle is the one static triangle that gets drawn.
// Positions are in clip space, y pointing down.
var Triangle = []Vertex{
	{Pos: glm.Vec3{0.0, -0.5, 0.5}, Color: glm.Vec4{1, 0, 0, 1}},
	{Pos: glm.Vec3{0.5, 0.5, 0.5}, Color: glm.Vec4{0, 1, 0, 1}},
	{Pos: glm.Vec3{-0.5, 0.5, 0.5}, Color: glm.Vec4{0, 0, 1, 1}},
}

// Bytes returns the vertices as they are laid out in GPU memory
func Bytes(vertices []Vertex) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(vertices)*VertexSize))
	if err := binary.Write(buf, binary.LittleEndian, vertices); err != nil {
		panic(err) // only fixed size fields, cannot fail
	}
	return buf.Bytes()
}

// VertexBindingDescriptions return Vulkan Vertex descriptors
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(VertexSize),
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions return Vulkan attribute descriptors
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32a32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
	}
}
