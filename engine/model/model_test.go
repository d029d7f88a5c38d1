package model

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

func newHeadless(t *testing.T) (renderer.Renderer, *renderer.HeadlessBackend) {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(r.Release)
	return r, r.Backend().(*renderer.HeadlessBackend)
}

func newUnit(t *testing.T, r renderer.Renderer, withTexture bool) DrawUnit {
	t.Helper()
	vb, err := r.CreateBuffer(renderer.BufferDescriptor{Label: "pos", Usage: renderer.BufferUsageVertex, Data: make([]byte, 3*12)})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	ib, err := r.CreateBuffer(renderer.BufferDescriptor{Label: "idx", Usage: renderer.BufferUsageIndex, Data: []byte{0, 0, 1, 0, 2, 0}})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	va, err := r.CreateVertexArray(renderer.VertexArrayDescriptor{
		Label: "unit",
		Attributes: []renderer.VertexAttribute{
			{Location: 0, Buffer: vb, Components: 3, ComponentType: renderer.ComponentTypeFloat, Stride: 12},
		},
		Indices:   ib,
		IndexType: renderer.ComponentTypeUnsignedShort,
	})
	if err != nil {
		t.Fatalf("CreateVertexArray: %v", err)
	}
	u := DrawUnit{VertexArray: va, IndexCount: 3, IndexType: renderer.ComponentTypeUnsignedShort}
	if withTexture {
		tex, err := r.CreateTexture(renderer.TextureDescriptor{
			Label: "tex", Width: 1, Height: 1, Format: renderer.TextureFormatRGBA8,
			Pixels: []byte{255, 255, 255, 255}, Sampler: renderer.DefaultSampler(),
		})
		if err != nil {
			t.Fatalf("CreateTexture: %v", err)
		}
		u.Texture = tex
	}
	return u
}

func TestDrawWithoutUnitsIsNoop(t *testing.T) {
	r, hb := newHeadless(t)
	m := NewModel(r, nil)
	defer m.Release()

	m.Draw(mgl32.Ident4(), mgl32.Ident4())
	if n := len(hb.Commands()); n != 0 {
		t.Fatalf("recorded %d commands for an empty model", n)
	}
	if hb.Skipped() != 0 {
		t.Fatalf("skipped = %d, want 0", hb.Skipped())
	}
}

func TestDrawIssuesOneDrawPerUnit(t *testing.T) {
	r, hb := newHeadless(t)
	textured := newUnit(t, r, true)
	plain := newUnit(t, r, false)
	m := NewModel(r, []DrawUnit{textured, plain}, WithPosition([3]float32{1, 2, 3}))
	defer m.Release()

	view := mgl32.LookAtV(mgl32.Vec3{20, 20, 20}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Ortho(-5, 5, -5, 5, -100, 100)
	m.Draw(view, proj)

	draws := hb.Draws()
	if len(draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(draws))
	}
	for i, d := range draws {
		if d.Op != renderer.OpDrawElements || d.Count != 3 || d.IndexType != renderer.ComponentTypeUnsignedShort {
			t.Errorf("draw %d = %+v", i, d)
		}
		if !d.DepthTest || d.FaceCulling {
			t.Errorf("draw %d depth=%v cull=%v, want depth on and culling off", i, d.DepthTest, d.FaceCulling)
		}
		if got := d.Vec("uColor"); len(got) != 3 || got[0] != 1 || got[1] != 0.5 || got[2] != 0.2 {
			t.Errorf("draw %d uColor = %v", i, got)
		}
		if got := d.Vec("model"); len(got) != 16 || got[12] != 1 || got[13] != 2 || got[14] != 3 {
			t.Errorf("draw %d model translation = %v", i, got)
		}
	}
	if draws[0].Texture != textured.Texture {
		t.Error("first draw should bind the unit texture")
	}
	if draws[1].Texture != nil {
		t.Error("second draw should unbind the texture")
	}
}

// vec4Near compares componentwise with an absolute tolerance; the relative check in mgl32
// rejects values like cos(90°) against an exact zero.
func vec4Near(a, b mgl32.Vec4) bool {
	return a.ApproxFuncEqual(b, func(x, y float32) bool { return mgl32.Abs(x-y) < 1e-5 })
}

func TestModelMatrixRotationXMapsYToZ(t *testing.T) {
	r, _ := newHeadless(t)
	m := NewModel(r, nil, WithRotation([3]float32{90, 0, 0}))
	defer m.Release()

	got := m.ModelMatrix().Mul4x1(mgl32.Vec4{0, 1, 0, 1})
	want := mgl32.Vec4{0, 0, 1, 1}
	if !vec4Near(got, want) {
		t.Fatalf("rotated +Y = %v, want %v", got, want)
	}
}

func TestModelMatrixComposition(t *testing.T) {
	r, _ := newHeadless(t)
	m := NewModel(r, nil,
		WithPosition([3]float32{5, 0, 0}),
		WithRotation([3]float32{0, 90, 0}),
		WithUniformScale(2),
	)
	defer m.Release()

	// scale then rotate about Y then translate: (1,0,0) -> (2,0,0) -> (0,0,-2) -> (5,0,-2)
	got := m.ModelMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	want := mgl32.Vec4{5, 0, -2, 1}
	if !vec4Near(got, want) {
		t.Fatalf("transformed point = %v, want %v", got, want)
	}
}

func TestSettersAndRotate(t *testing.T) {
	r, _ := newHeadless(t)
	m := NewModel(r, nil)
	defer m.Release()

	if m.Scale() != [3]float32{1, 1, 1} {
		t.Fatalf("default scale = %v", m.Scale())
	}
	m.SetPosition([3]float32{1, 2, 3})
	m.SetScale([3]float32{0.01, 0.01, 0.01})
	m.SetRotation([3]float32{-90, 350, 0})
	m.Rotate([3]float32{0, 20, 0})

	tr := m.Transform()
	if tr.Position != [3]float32{1, 2, 3} || tr.Scale != [3]float32{0.01, 0.01, 0.01} {
		t.Fatalf("transform = %+v", tr)
	}
	if rot := m.Rotation(); rot[0] != -90 || mgl32.Abs(rot[1]-10) > 1e-4 {
		t.Fatalf("rotation = %v, want [-90 10 0]", rot)
	}
}

func TestReleaseFreesUnitsOnce(t *testing.T) {
	r, _ := newHeadless(t)
	u := newUnit(t, r, true)
	before := r.LiveResources()
	m := NewModel(r, []DrawUnit{u})

	m.Release()
	m.Release()

	// texture, vertex array, two buffers and the program
	if got := r.LiveResources(); got != before-4 {
		t.Fatalf("live resources = %d, want %d", got, before-4)
	}
	if !u.VertexArray.Released() || !u.Texture.Released() {
		t.Fatal("draw unit handles should be released")
	}
}
