package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/shader"
)

func newHeadless(t *testing.T) (Renderer, *HeadlessBackend) {
	t.Helper()
	r, err := NewRenderer(BackendTypeHeadless, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(r.Release)
	return r, r.Backend().(*HeadlessBackend)
}

func triangle(t *testing.T, r Renderer, indexed bool) VertexArray {
	t.Helper()
	vb, err := r.CreateBuffer(BufferDescriptor{Label: "tri", Usage: BufferUsageVertex, Data: make([]byte, 3*2*4)})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	desc := VertexArrayDescriptor{
		Label: "tri",
		Attributes: []VertexAttribute{
			{Location: 0, Buffer: vb, Components: 2, ComponentType: ComponentTypeFloat, Stride: 8},
		},
	}
	if indexed {
		ib, err := r.CreateBuffer(BufferDescriptor{Label: "tri-idx", Usage: BufferUsageIndex, Data: []byte{0, 1, 2}})
		if err != nil {
			t.Fatalf("CreateBuffer: %v", err)
		}
		desc.Indices = ib
		desc.IndexType = ComponentTypeUnsignedByte
	}
	va, err := r.CreateVertexArray(desc)
	if err != nil {
		t.Fatalf("CreateVertexArray: %v", err)
	}
	return va
}

func TestNewRendererUnknownBackend(t *testing.T) {
	if _, err := NewRenderer(RendererBackendType(99), nil); err == nil {
		t.Fatal("expected error for unregistered backend")
	}
}

func TestParseBackendType(t *testing.T) {
	tests := []struct {
		in      string
		want    RendererBackendType
		wantErr bool
	}{
		{"wgpu", BackendTypeWGPU, false},
		{"WebGPU", BackendTypeWGPU, false},
		{"opengl", BackendTypeOpenGL, false},
		{" gl ", BackendTypeOpenGL, false},
		{"headless", BackendTypeHeadless, false},
		{"vulkan", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBackendType(tt.in)
		if (err != nil) != tt.wantErr || (!tt.wantErr && got != tt.want) {
			t.Errorf("ParseBackendType(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestDrawSkippedWithoutBindings(t *testing.T) {
	r, hb := newHeadless(t)
	va := triangle(t, r, false)

	r.DrawArrays(0, 3)
	if hb.Skipped() != 1 || len(hb.Draws()) != 0 {
		t.Fatalf("draw without program: skipped=%d draws=%d", hb.Skipped(), len(hb.Draws()))
	}

	p := r.CreateProgram(shader.ProgramDescriptor{Key: "flat"})
	p.Use()
	r.DrawArrays(0, 3)
	if hb.Skipped() != 2 {
		t.Fatalf("draw without vertex array should be skipped, skipped=%d", hb.Skipped())
	}

	r.BindVertexArray(va)
	r.DrawArrays(0, 3)
	draws := hb.Draws()
	if len(draws) != 1 || draws[0].Program != "flat" || draws[0].Count != 3 {
		t.Fatalf("draws = %+v", draws)
	}
}

func TestInvalidProgramSkipsDraws(t *testing.T) {
	r, hb := newHeadless(t)
	hb.FailProgram("broken")
	va := triangle(t, r, false)

	p := r.CreateProgram(shader.ProgramDescriptor{Key: "broken"})
	if p == nil || p.Valid() {
		t.Fatalf("expected a non-nil invalid program, got %v", p)
	}
	p.Use()
	r.BindVertexArray(va)
	r.DrawArrays(0, 3)
	if len(hb.Draws()) != 0 || hb.Skipped() != 1 {
		t.Fatalf("invalid program drew: draws=%d skipped=%d", len(hb.Draws()), hb.Skipped())
	}
}

func TestBindingsPersistAcrossDraws(t *testing.T) {
	r, hb := newHeadless(t)
	va := triangle(t, r, true)
	tex, err := r.CreateTexture(TextureDescriptor{Label: "white", Width: 1, Height: 1, Format: TextureFormatRGB8, Pixels: []byte{255, 255, 255}, Sampler: DefaultSampler()})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}

	p := r.CreateProgram(shader.ProgramDescriptor{Key: "model"})
	p.Use()
	p.SetVec3("uColor", 1, 0.5, 0.2)
	r.BindVertexArray(va)
	r.BindTexture(0, tex)
	r.SetDepthTest(true)
	r.DrawElements(3, ComponentTypeUnsignedByte)
	r.DrawElements(3, ComponentTypeUnsignedByte)

	b := r.Bindings()
	if b.Program != p || b.VertexArray != va || b.Textures[0] != tex || !b.DepthTest {
		t.Fatalf("bindings not left in place: %+v", b)
	}
	draws := hb.Draws()
	if len(draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(draws))
	}
	for _, d := range draws {
		if d.Texture != tex || d.IndexType != ComponentTypeUnsignedByte || !d.DepthTest {
			t.Errorf("draw state = %+v", d)
		}
		if c := d.Vec("uColor"); len(c) != 3 || c[1] != 0.5 {
			t.Errorf("uColor = %v", c)
		}
	}
}

func TestDrawElementsNeedsIndices(t *testing.T) {
	r, hb := newHeadless(t)
	va := triangle(t, r, false)
	r.CreateProgram(shader.ProgramDescriptor{Key: "p"}).Use()
	r.BindVertexArray(va)
	r.DrawElements(3, ComponentTypeUnsignedShort)
	if len(hb.Draws()) != 0 || hb.Skipped() != 1 {
		t.Fatal("indexed draw on a non-indexed vertex array should be skipped")
	}
}

func TestResourceReleaseOnce(t *testing.T) {
	r, _ := newHeadless(t)
	calls := 0
	res := NewResource(ResourceKindBuffer, "x", func() { calls++ })
	res.Release()
	res.Release()
	if calls != 1 || !res.Released() {
		t.Fatalf("free called %d times", calls)
	}

	before := r.LiveResources()
	va := triangle(t, r, true)
	if got := r.LiveResources(); got != before+3 {
		t.Fatalf("live = %d, want %d", got, before+3)
	}
	va.Release()
	va.Release()
	if got := r.LiveResources(); got != before+2 {
		t.Fatalf("live after vertex array release = %d, want %d", got, before+2)
	}
	for _, a := range va.Descriptor().Attributes {
		a.Buffer.Release()
	}
	va.Descriptor().Indices.Release()
	if got := r.LiveResources(); got != before {
		t.Fatalf("live after full release = %d, want %d", got, before)
	}
}

func TestRendererReleaseFreesLeftovers(t *testing.T) {
	r, err := NewRenderer(BackendTypeHeadless, nil)
	if err != nil {
		t.Fatal(err)
	}
	va := triangle(t, r, false)
	p := r.CreateProgram(shader.ProgramDescriptor{Key: "leak"})
	r.Release()
	r.Release()
	if !va.Released() || p.Valid() {
		t.Fatal("leftover resources not released")
	}
	if r.LiveResources() != 0 {
		t.Fatalf("live = %d after Release", r.LiveResources())
	}
}

func TestDescriptorValidation(t *testing.T) {
	r, _ := newHeadless(t)
	if _, err := r.CreateBuffer(BufferDescriptor{Label: "empty"}); err == nil {
		t.Error("empty buffer accepted")
	}
	if _, err := r.CreateTexture(TextureDescriptor{Label: "short", Width: 2, Height: 2, Format: TextureFormatRGBA8, Pixels: make([]byte, 15)}); err == nil {
		t.Error("short pixel buffer accepted")
	}
	vb, _ := r.CreateBuffer(BufferDescriptor{Label: "vb", Data: make([]byte, 12)})
	bad := []VertexArrayDescriptor{
		{Label: "none"},
		{Label: "nil-buffer", Attributes: []VertexAttribute{{Components: 3, ComponentType: ComponentTypeFloat, Stride: 12}}},
		{Label: "components", Attributes: []VertexAttribute{{Buffer: vb, Components: 5, ComponentType: ComponentTypeFloat, Stride: 12}}},
		{Label: "stride", Attributes: []VertexAttribute{{Buffer: vb, Components: 3, ComponentType: ComponentTypeFloat}}},
		{Label: "dup", Attributes: []VertexAttribute{
			{Buffer: vb, Components: 3, ComponentType: ComponentTypeFloat, Stride: 12},
			{Buffer: vb, Components: 3, ComponentType: ComponentTypeFloat, Stride: 12},
		}},
		{Label: "index-type", Attributes: []VertexAttribute{{Buffer: vb, Components: 3, ComponentType: ComponentTypeFloat, Stride: 12}}, Indices: vb, IndexType: ComponentTypeFloat},
	}
	for _, d := range bad {
		if _, err := r.CreateVertexArray(d); err == nil {
			t.Errorf("vertex array %q accepted", d.Label)
		}
	}
}

func TestFrameRecording(t *testing.T) {
	r, hb := newHeadless(t)
	r.SetClearColor([4]float32{0.2, 0.2, 0.2, 1})
	if err := r.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := r.BeginFrame(); err == nil {
		t.Error("nested BeginFrame accepted")
	}
	if err := r.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if err := r.Present(); err != nil {
		t.Fatal(err)
	}
	cmds := hb.Commands()
	if len(cmds) != 3 || cmds[0].Op != OpBeginFrame || cmds[1].Op != OpEndFrame || cmds[2].Op != OpPresent {
		t.Fatalf("commands = %+v", cmds)
	}
	if cmds[0].ClearColor[0] != 0.2 {
		t.Errorf("clear color = %v", cmds[0].ClearColor)
	}
	if hb.Frames() != 1 {
		t.Errorf("frames = %d", hb.Frames())
	}

	r.Resize(1024, 768)
	if w, h := r.Size(); w != 1024 || h != 768 {
		t.Errorf("Size = %dx%d", w, h)
	}
	r.Resize(0, 768)
	if w, _ := hb.Size(); w != 1024 {
		t.Error("zero-width resize reached the backend")
	}
}

func TestComponentTypeSize(t *testing.T) {
	tests := map[ComponentType]int{
		ComponentTypeByte:          1,
		ComponentTypeUnsignedByte:  1,
		ComponentTypeShort:         2,
		ComponentTypeUnsignedShort: 2,
		ComponentTypeUnsignedInt:   4,
		ComponentTypeFloat:         4,
		ComponentType(42):          0,
	}
	for ct, want := range tests {
		if got := ct.Size(); got != want {
			t.Errorf("%s.Size() = %d, want %d", ct, got, want)
		}
	}
}
