package renderer

import (
	"image"
	"slices"
	"sync"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
)

const vertexStride = int32(unsafe.Sizeof(scene.Vertex{}))

type meshBuffers struct {
	vao, vbo, ebo uint32
	count         int32
	vertices      int
	influences    []float32
}

type textureHandle struct {
	id uint32
}

// garbage collects GL object names released off the render goroutine.
type garbage struct {
	sync.Mutex
	arrays   []uint32
	buffers  []uint32
	textures []uint32
}

func (g *garbage) addMesh(h any) {
	b, ok := h.(*meshBuffers)
	if !ok {
		return
	}
	g.Lock()
	g.arrays = append(g.arrays, b.vao)
	g.buffers = append(g.buffers, b.vbo, b.ebo)
	g.Unlock()
}

func (g *garbage) addTexture(h any) {
	t, ok := h.(*textureHandle)
	if !ok {
		return
	}
	g.Lock()
	g.textures = append(g.textures, t.id)
	g.Unlock()
}

// release deletes queued objects. It must run on the GL goroutine.
func (g *garbage) release() {
	g.Lock()
	defer g.Unlock()

	if len(g.arrays) > 0 {
		gl.DeleteVertexArrays(int32(len(g.arrays)), &g.arrays[0])
		g.arrays = g.arrays[:0]
	}
	if len(g.buffers) > 0 {
		gl.DeleteBuffers(int32(len(g.buffers)), &g.buffers[0])
		g.buffers = g.buffers[:0]
	}
	if len(g.textures) > 0 {
		gl.DeleteTextures(int32(len(g.textures)), &g.textures[0])
		g.textures = g.textures[:0]
	}
}

// buffers returns the GPU buffers for geo, uploading on first use.
func (r *Renderer) buffers(geo *scene.Geometry, dynamic bool) *meshBuffers {
	if h, ok := geo.GPU().(*meshBuffers); ok {
		return h
	}
	if geo.Disposed() || len(geo.Vertices) == 0 || len(geo.Indices) == 0 {
		return nil
	}

	usage := uint32(gl.STATIC_DRAW)
	if dynamic {
		usage = gl.DYNAMIC_DRAW
	}

	h := &meshBuffers{count: int32(len(geo.Indices)), vertices: len(geo.Vertices)}
	gl.GenVertexArrays(1, &h.vao)
	gl.BindVertexArray(h.vao)

	gl.GenBuffers(1, &h.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, h.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(geo.Vertices)*int(vertexStride), gl.Ptr(&geo.Vertices[0]), usage)

	gl.GenBuffers(1, &h.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, h.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(geo.Indices)*4, gl.Ptr(&geo.Indices[0]), gl.STATIC_DRAW)

	// Position, normal, texcoord
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, vertexStride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, vertexStride, gl.PtrOffset(12))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, vertexStride, gl.PtrOffset(24))
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	geo.SetGPU(h, r.trash.addMesh)
	return h
}

// updateMorphs re-uploads blended vertices when the influences changed
// since the last upload.
func (r *Renderer) updateMorphs(h *meshBuffers, m *scene.Mesh) {
	if slices.Equal(h.influences, m.Influences) {
		return
	}
	r.scratch = m.Geometry.Blend(r.scratch, m.Influences)
	if len(r.scratch) != h.vertices {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, h.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(r.scratch)*int(vertexStride), gl.Ptr(&r.scratch[0]))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	h.influences = append(h.influences[:0], m.Influences...)
}

// texture returns the GL name for t, uploading on first use; 0 when t is
// nil, disposed or empty.
func (r *Renderer) texture(t *scene.Texture) uint32 {
	if t == nil {
		return 0
	}
	if h, ok := t.GPU().(*textureHandle); ok {
		return h.id
	}
	if t.Disposed() || t.Image == nil {
		return 0
	}
	img := packed(t.Image)
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	wrapT := int32(gl.REPEAT)
	if t.Mapping == scene.MappingEquirect {
		wrapT = gl.CLAMP_TO_EDGE
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapT)

	t.SetGPU(&textureHandle{id: id}, r.trash.addTexture)
	return id
}

// packed returns img with a zero origin and no row padding.
func packed(img *image.RGBA) *image.RGBA {
	b := img.Rect
	if b.Min == (image.Point{}) && img.Stride == b.Dx()*4 {
		return img
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return out
}
