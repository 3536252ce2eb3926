// Package glbackend executes render passes and draws with OpenGL 4.1 core.
// Every method must be called on the goroutine that owns the GL context.
package glbackend

import (
	"fmt"
	"image"
	"slices"
	"sync"

	"framekit/internal/graphics"
	"framekit/internal/graphics/backend"
	"framekit/internal/logging"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	floatSize    = 4
	vertexFloats = 5
	// Instance matrices occupy attribute locations 3 to 6.
	instanceAttrib = 3
)

type mesh struct {
	vao      uint32
	vbo      uint32
	vertices int32
}

type fence struct {
	frame uint32
	sync  uintptr
}

// Backend is the OpenGL implementation of backend.Backend.
type Backend struct {
	unlit    *Shader
	programs map[uint32]*Shader
	meshes   map[uint32]*mesh

	streamVAO   uint32
	streamVBO   uint32
	instanceVBO uint32
	instances   []float32

	screenW, screenH int
	pass             backend.RenderPass

	frame  uint32
	fences []fence
	mu     sync.Mutex
	notify []func(frame uint32)
}

// New initialises GL and the default unlit program. The GL context must be
// current.
func New(screenW, screenH int) (*Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl init: %w", err)
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.SCISSOR_TEST)

	unlit, err := NewShader(unlitVert, unlitFrag)
	if err != nil {
		return nil, err
	}
	b := &Backend{
		unlit:    unlit,
		programs: map[uint32]*Shader{unlit.ID: unlit},
		meshes:   make(map[uint32]*mesh),
		screenW:  screenW,
		screenH:  screenH,
	}
	gl.GenBuffers(1, &b.instanceVBO)
	b.streamVAO, b.streamVBO = b.newVertexArray(nil, gl.STREAM_DRAW)

	logging.With("glbackend").Info("OpenGL ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))
	return b, nil
}

// DefaultProgram is the unlit program used when a draw names program zero.
func (b *Backend) DefaultProgram() uint32 { return b.unlit.ID }

// Resize updates the framebuffer size used to flip viewports.
func (b *Backend) Resize(w, h int) {
	b.screenW, b.screenH = w, h
}

// newVertexArray creates a VAO with position and uv attributes plus the
// per-instance matrix attributes bound to the shared instance buffer.
func (b *Backend) newVertexArray(vertices []float32, usage uint32) (vao, vbo uint32) {
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	if len(vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*floatSize, gl.Ptr(vertices), usage)
	}

	stride := int32(vertexFloats * floatSize)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, stride, 3*floatSize)

	gl.BindBuffer(gl.ARRAY_BUFFER, b.instanceVBO)
	for i := uint32(0); i < 4; i++ {
		loc := instanceAttrib + i
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointerWithOffset(loc, 4, gl.FLOAT, false, 16*floatSize, uintptr(i*4*floatSize))
		gl.VertexAttribDivisor(loc, 1)
	}
	gl.BindVertexArray(0)
	return vao, vbo
}

// UploadMesh stores vertex data (x, y, z, u, v per vertex) and returns the
// handle to put in RenderState.Mesh.
func (b *Backend) UploadMesh(vertices []float32) (uint32, error) {
	if len(vertices) == 0 || len(vertices)%vertexFloats != 0 {
		return 0, fmt.Errorf("glbackend: mesh data length %d is not a multiple of %d", len(vertices), vertexFloats)
	}
	vao, vbo := b.newVertexArray(vertices, gl.STATIC_DRAW)
	b.meshes[vao] = &mesh{vao: vao, vbo: vbo, vertices: int32(len(vertices) / vertexFloats)}
	return vao, nil
}

// DeleteMesh releases a mesh created by UploadMesh.
func (b *Backend) DeleteMesh(handle uint32) {
	m, ok := b.meshes[handle]
	if !ok {
		return
	}
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteVertexArrays(1, &m.vao)
	delete(b.meshes, handle)
}

// BeginRenderPass sets viewport, scissor and clears as the pass asks.
func (b *Backend) BeginRenderPass(pass backend.RenderPass) {
	b.pass = pass
	x, y, w, h := glViewport(pass.Viewport, b.screenH)
	gl.Viewport(x, y, w, h)
	gl.Scissor(x, y, w, h)

	mask := clearMask(pass.ClearMode)
	if mask&gl.COLOR_BUFFER_BIT != 0 {
		c := pass.ClearColor
		gl.ClearColor(float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, float32(c.A)/255)
	}
	if mask != 0 {
		gl.Clear(mask)
	}
}

// Render issues one draw with the matrices of the current pass.
func (b *Backend) Render(state backend.RenderState) {
	shader := b.programs[state.Program]
	if shader == nil {
		shader = b.unlit
	}
	shader.Use()
	shader.SetMatrix4("uView", b.pass.ViewMatrix)
	shader.SetMatrix4("uProj", b.pass.Projection)
	shader.SetMatrix4("uModel", state.Model)
	shader.SetVector4("uColor", colorOrWhite(state.Color))
	shader.SetBool("uUseTexture", state.Texture != 0)
	if state.Texture != 0 {
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, state.Texture)
		shader.SetInt("uTexture", 0)
	}

	vao, count := b.streamVAO, state.Vertices
	if state.Mesh != 0 {
		m, ok := b.meshes[state.Mesh]
		if !ok {
			logging.With("glbackend").Warn("draw with unknown mesh", "mesh", state.Mesh, "view", state.View)
			return
		}
		vao = m.vao
		if count <= 0 {
			count = m.vertices
		}
	} else {
		if len(state.Geometry) == 0 {
			return
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, b.streamVBO)
		gl.BufferData(gl.ARRAY_BUFFER, len(state.Geometry)*floatSize, gl.Ptr(state.Geometry), gl.STREAM_DRAW)
		count = int32(len(state.Geometry) / vertexFloats)
	}

	gl.BindVertexArray(vao)
	if state.Instances > 1 && len(state.Instanced) > 0 {
		b.instances = flattenMatrices(b.instances[:0], state.Instanced)
		gl.BindBuffer(gl.ARRAY_BUFFER, b.instanceVBO)
		gl.BufferData(gl.ARRAY_BUFFER, len(b.instances)*floatSize, gl.Ptr(b.instances), gl.STREAM_DRAW)
		shader.SetBool("uInstanced", true)
		gl.DrawArraysInstanced(gl.TRIANGLES, 0, count, int32(len(state.Instanced)))
	} else {
		shader.SetBool("uInstanced", false)
		gl.DrawArrays(gl.TRIANGLES, 0, count)
	}
	gl.BindVertexArray(0)
}

// OnFrameFinished registers fn to be told when the GPU finished a frame.
func (b *Backend) OnFrameFinished(fn func(frame uint32)) {
	b.mu.Lock()
	b.notify = append(b.notify, fn)
	b.mu.Unlock()
}

// EndFrame fences the commands of the current frame and reports every
// earlier frame whose fence has signalled. Call it after the scheduler's
// Update and before swapping buffers.
func (b *Backend) EndFrame() uint32 {
	b.fences = append(b.fences, fence{
		frame: b.frame,
		sync:  gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0),
	})
	b.frame++

	var done []uint32
	for len(b.fences) > 0 {
		f := b.fences[0]
		status := gl.ClientWaitSync(f.sync, 0, 0)
		if status != gl.ALREADY_SIGNALED && status != gl.CONDITION_SATISFIED {
			break
		}
		gl.DeleteSync(f.sync)
		done = append(done, f.frame)
		b.fences = b.fences[1:]
	}

	b.mu.Lock()
	notify := slices.Clone(b.notify)
	b.mu.Unlock()
	for _, frame := range done {
		for _, fn := range notify {
			fn(frame)
		}
	}
	return b.frame - 1
}

// Destroy releases every GL object owned by the backend.
func (b *Backend) Destroy() {
	for h := range b.meshes {
		b.DeleteMesh(h)
	}
	for _, f := range b.fences {
		gl.DeleteSync(f.sync)
	}
	b.fences = nil
	gl.DeleteBuffers(1, &b.streamVBO)
	gl.DeleteVertexArrays(1, &b.streamVAO)
	gl.DeleteBuffers(1, &b.instanceVBO)
	for id, s := range b.programs {
		s.Delete()
		delete(b.programs, id)
	}
}

// glViewport converts a top-left origin rectangle to GL's bottom-left origin.
func glViewport(r image.Rectangle, screenH int) (x, y, w, h int32) {
	return int32(r.Min.X), int32(screenH - r.Max.Y), int32(r.Dx()), int32(r.Dy())
}

func clearMask(m graphics.ClearMode) uint32 {
	switch m {
	case graphics.ClearSolidColor:
		return gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT
	case graphics.ClearDepth:
		return gl.DEPTH_BUFFER_BIT
	}
	return 0
}

func colorOrWhite(c mgl32.Vec4) mgl32.Vec4 {
	if c == (mgl32.Vec4{}) {
		return mgl32.Vec4{1, 1, 1, 1}
	}
	return c
}

func flattenMatrices(dst []float32, ms []mgl32.Mat4) []float32 {
	for _, m := range ms {
		dst = append(dst, m[:]...)
	}
	return dst
}
