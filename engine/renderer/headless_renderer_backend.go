package renderer

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/shader"
	"github.com/pkg/errors"
)

func init() {
	RegisterBackend(BackendTypeHeadless, func(_ Surface, cfg BackendConfig) (RendererBackend, error) {
		return NewHeadlessBackend(cfg), nil
	})
}

// CommandOp identifies a recorded headless command.
type CommandOp int

const (
	OpBeginFrame CommandOp = iota
	OpEndFrame
	OpPresent
	OpDrawArrays
	OpDrawElements
)

func (o CommandOp) String() string {
	switch o {
	case OpBeginFrame:
		return "begin_frame"
	case OpEndFrame:
		return "end_frame"
	case OpPresent:
		return "present"
	case OpDrawArrays:
		return "draw_arrays"
	case OpDrawElements:
		return "draw_elements"
	default:
		return "unknown"
	}
}

// Command is one recorded call with the state it would have drawn with.
type Command struct {
	Op    CommandOp
	Frame int

	// Program is the key of the bound program for draws.
	Program     string
	VertexArray VertexArray
	// Texture is whatever was bound at unit 0, possibly nil.
	Texture   Texture
	First     int
	Count     int
	IndexType ComponentType
	// Uniforms is a snapshot of the program's uniform values at draw time.
	Uniforms    map[string]shader.UniformValue
	DepthTest   bool
	FaceCulling bool

	ClearColor [4]float32
}

// Vec returns the float components of a recorded uniform, or nil when it was never set.
func (c Command) Vec(name string) []float32 {
	v, ok := c.Uniforms[name]
	if !ok {
		return nil
	}
	return v.Components()
}

// HeadlessBackend implements RendererBackend without a GPU by recording every frame and draw.
// Draws issued without a valid program or a vertex array are counted as skipped, mirroring
// what the GPU backends do.
type HeadlessBackend struct {
	mu sync.Mutex

	width, height int
	clearColor    [4]float32
	presentMode   PresentMode

	bindings Bindings
	commands []Command
	skipped  int
	frame    int
	inFrame  bool

	failPrograms map[string]bool
}

var _ RendererBackend = &HeadlessBackend{}

// NewHeadlessBackend creates a recording backend sized per cfg.
//
// Parameters:
//   - cfg: the backend configuration
//
// Returns:
//   - *HeadlessBackend: the backend
func NewHeadlessBackend(cfg BackendConfig) *HeadlessBackend {
	return &HeadlessBackend{
		width:        cfg.Width,
		height:       cfg.Height,
		clearColor:   cfg.ClearColor,
		presentMode:  cfg.PresentMode,
		failPrograms: make(map[string]bool),
	}
}

// FailProgram makes later CreateProgram calls with key return an invalid program.
func (b *HeadlessBackend) FailProgram(key string) {
	b.mu.Lock()
	b.failPrograms[key] = true
	b.mu.Unlock()
}

// Commands returns a copy of everything recorded since the last Reset.
func (b *HeadlessBackend) Commands() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Command, len(b.commands))
	copy(out, b.commands)
	return out
}

// Draws returns only the recorded draw commands.
func (b *HeadlessBackend) Draws() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Command
	for _, c := range b.commands {
		if c.Op == OpDrawArrays || c.Op == OpDrawElements {
			out = append(out, c)
		}
	}
	return out
}

// Skipped returns how many draws were dropped for lack of a drawable binding state.
func (b *HeadlessBackend) Skipped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.skipped
}

// Frames returns the number of completed frames.
func (b *HeadlessBackend) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame
}

// Reset clears the recorded commands and skip counter. Bindings are kept.
func (b *HeadlessBackend) Reset() {
	b.mu.Lock()
	b.commands = nil
	b.skipped = 0
	b.mu.Unlock()
}

// Size returns the current drawable size.
func (b *HeadlessBackend) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

func (b *HeadlessBackend) Info() BackendInfo {
	return BackendInfo{
		Name:     BackendTypeHeadless.String(),
		Vendor:   "none",
		Device:   "recorder",
		Version:  "1",
		Language: shader.LanguageNone,
	}
}

func (b *HeadlessBackend) ShadingLanguage() shader.Language {
	return shader.LanguageNone
}

func (b *HeadlessBackend) DepthRange() common.DepthRange {
	return common.DepthRangeNegativeOneToOne
}

type headlessBuffer struct {
	*Resource
	usage BufferUsage
	data  []byte
}

func (h *headlessBuffer) Size() int          { return len(h.data) }
func (h *headlessBuffer) Usage() BufferUsage { return h.usage }

// Bytes returns the uploaded contents.
func (h *headlessBuffer) Bytes() []byte { return h.data }

func (b *HeadlessBackend) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	data := make([]byte, len(desc.Data))
	copy(data, desc.Data)
	return &headlessBuffer{
		Resource: NewResource(ResourceKindBuffer, desc.Label, nil),
		usage:    desc.Usage,
		data:     data,
	}, nil
}

type headlessTexture struct {
	*Resource
	desc TextureDescriptor
}

func (h *headlessTexture) Width() int            { return h.desc.Width }
func (h *headlessTexture) Height() int           { return h.desc.Height }
func (h *headlessTexture) Format() TextureFormat { return h.desc.Format }

func (b *HeadlessBackend) CreateTexture(desc TextureDescriptor) (Texture, error) {
	return &headlessTexture{
		Resource: NewResource(ResourceKindTexture, desc.Label, nil),
		desc:     desc,
	}, nil
}

type headlessVertexArray struct {
	*Resource
	desc VertexArrayDescriptor
}

func (h *headlessVertexArray) Descriptor() VertexArrayDescriptor { return h.desc }

func (b *HeadlessBackend) CreateVertexArray(desc VertexArrayDescriptor) (VertexArray, error) {
	for _, a := range desc.Attributes {
		if a.Buffer.Released() {
			return nil, errors.Errorf("attribute %d references released buffer %q", a.Location, a.Buffer.Label())
		}
	}
	return &headlessVertexArray{
		Resource: NewResource(ResourceKindVertexArray, desc.Label, nil),
		desc:     desc,
	}, nil
}

type headlessProgram struct {
	*Resource
	backend  *HeadlessBackend
	valid    bool
	uniforms *shader.Uniforms
}

func (p *headlessProgram) Key() string                         { return p.Label() }
func (p *headlessProgram) Valid() bool                         { return p.valid && !p.Released() }
func (p *headlessProgram) Use()                                { p.backend.UseProgram(p) }
func (p *headlessProgram) SetVec2(name string, x, y float32)    { p.uniforms.SetVec2(name, x, y) }
func (p *headlessProgram) SetVec3(name string, x, y, z float32) { p.uniforms.SetVec3(name, x, y, z) }
func (p *headlessProgram) SetMat4(name string, m [16]float32)   { p.uniforms.SetMat4(name, m) }
func (p *headlessProgram) SetInt(name string, v int32)          { p.uniforms.SetInt(name, v) }

func (b *HeadlessBackend) CreateProgram(desc shader.ProgramDescriptor) shader.Program {
	b.mu.Lock()
	fail := b.failPrograms[desc.Key]
	b.mu.Unlock()
	return &headlessProgram{
		Resource: NewResource(ResourceKindProgram, desc.Key, nil),
		backend:  b,
		valid:    !fail,
		uniforms: shader.NewUniforms(),
	}
}

func (b *HeadlessBackend) UseProgram(p shader.Program) {
	b.mu.Lock()
	b.bindings.Program = p
	b.mu.Unlock()
}

func (b *HeadlessBackend) BindVertexArray(va VertexArray) {
	b.mu.Lock()
	b.bindings.VertexArray = va
	b.mu.Unlock()
}

func (b *HeadlessBackend) BindTexture(unit int, tex Texture) {
	if unit < 0 || unit >= MaxTextureUnits {
		return
	}
	b.mu.Lock()
	b.bindings.Textures[unit] = tex
	b.mu.Unlock()
}

func (b *HeadlessBackend) SetDepthTest(enabled bool) {
	b.mu.Lock()
	b.bindings.DepthTest = enabled
	b.mu.Unlock()
}

func (b *HeadlessBackend) SetFaceCulling(enabled bool) {
	b.mu.Lock()
	b.bindings.FaceCulling = enabled
	b.mu.Unlock()
}

func (b *HeadlessBackend) Bindings() Bindings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bindings
}

// recordDraw must be called with b.mu held.
func (b *HeadlessBackend) recordDraw(cmd Command) {
	if !b.bindings.Drawable() {
		b.skipped++
		return
	}
	cmd.Frame = b.frame
	cmd.Program = b.bindings.Program.Key()
	cmd.VertexArray = b.bindings.VertexArray
	cmd.Texture = b.bindings.Textures[0]
	cmd.DepthTest = b.bindings.DepthTest
	cmd.FaceCulling = b.bindings.FaceCulling
	if hp, ok := b.bindings.Program.(*headlessProgram); ok {
		cmd.Uniforms = hp.uniforms.Snapshot()
	}
	b.commands = append(b.commands, cmd)
}

func (b *HeadlessBackend) DrawArrays(first, count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordDraw(Command{Op: OpDrawArrays, First: first, Count: count})
}

func (b *HeadlessBackend) DrawElements(count int, indexType ComponentType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if va := b.bindings.VertexArray; va != nil && va.Descriptor().Indices == nil {
		b.skipped++
		return
	}
	b.recordDraw(Command{Op: OpDrawElements, Count: count, IndexType: indexType})
}

func (b *HeadlessBackend) SetClearColor(c [4]float32) {
	b.mu.Lock()
	b.clearColor = c
	b.mu.Unlock()
}

func (b *HeadlessBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFrame {
		return errors.New("BeginFrame called twice without EndFrame")
	}
	b.inFrame = true
	b.commands = append(b.commands, Command{Op: OpBeginFrame, Frame: b.frame, ClearColor: b.clearColor})
	return nil
}

func (b *HeadlessBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame {
		return errors.New("EndFrame called without BeginFrame")
	}
	b.inFrame = false
	b.commands = append(b.commands, Command{Op: OpEndFrame, Frame: b.frame})
	b.frame++
	return nil
}

func (b *HeadlessBackend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = append(b.commands, Command{Op: OpPresent, Frame: b.frame - 1})
	return nil
}

func (b *HeadlessBackend) Resize(width, height int) {
	b.mu.Lock()
	b.width, b.height = width, height
	b.mu.Unlock()
}

func (b *HeadlessBackend) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	b.presentMode = mode
	b.mu.Unlock()
}

func (b *HeadlessBackend) Release() {
	b.mu.Lock()
	b.bindings = Bindings{}
	b.mu.Unlock()
}
