package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-iso/engine/model"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func newHeadless(t *testing.T) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

func newTestLoader(r renderer.Renderer) *loader {
	return NewLoader(r, WithWorkers(2)).(*loader)
}

func floatBytes(v ...float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// triangleDocument builds a single-primitive document by hand: three u8 indices followed by
// three float positions, optionally followed by three float UVs.
func triangleDocument(withUV bool) *gltf.Document {
	data := []byte{0, 1, 2, 0}
	data = append(data, floatBytes(0, 0, 0, 1, 0, 0, 0, 1, 0)...)
	doc := &gltf.Document{
		Asset: gltf.Asset{Version: "2.0", Generator: "loader_test"},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 3},
			{Buffer: 0, ByteOffset: 4, ByteLength: 36},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentUbyte, Count: 3, Type: gltf.AccessorScalar},
			{BufferView: gltf.Index(1), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec3},
		},
	}
	attributes := map[string]uint32{attributePosition: 1}
	if withUV {
		doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{Buffer: 0, ByteOffset: uint32(len(data)), ByteLength: 24})
		data = append(data, floatBytes(0, 0, 1, 0, 0, 1)...)
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView: gltf.Index(2), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec2,
		})
		attributes[attributeTexCoord0] = 2
	}
	doc.Buffers = []*gltf.Buffer{{ByteLength: uint32(len(data)), Data: data}}
	doc.Meshes = []*gltf.Mesh{{
		Name:       "tri",
		Primitives: []*gltf.Primitive{{Indices: gltf.Index(0), Attributes: attributes}},
	}}
	return doc
}

// withDataURITexture gives every primitive of doc a base-color texture stored as a PNG data URI.
func withDataURITexture(t *testing.T, doc *gltf.Document, opaque bool) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, color.NRGBA{R: 255, G: uint8(x * 255), B: uint8(y * 255), A: 255})
		}
	}
	if !opaque {
		img.Set(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	doc.Images = []*gltf.Image{{URI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())}}
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}}
	doc.Materials = []*gltf.Material{{
		Name:                 "base",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{BaseColorTexture: &gltf.TextureInfo{Index: 0}},
	}}
	for _, mesh := range doc.Meshes {
		for _, prim := range mesh.Primitives {
			prim.Material = gltf.Index(0)
		}
	}
}

func loadDocument(l *loader, doc *gltf.Document) []model.DrawUnit {
	return l.upload(extractDocument(doc, "memory", ""))
}

func TestLoadMissingFile(t *testing.T) {
	r := newHeadless(t)
	l := newTestLoader(r)

	units := l.Load(filepath.Join(t.TempDir(), "missing.glb"))
	if len(units) != 0 {
		t.Fatalf("units = %d, want 0", len(units))
	}
	if r.LiveResources() != 0 {
		t.Fatalf("live resources = %d, want 0", r.LiveResources())
	}
}

func TestLoadCorruptFile(t *testing.T) {
	r := newHeadless(t)
	l := newTestLoader(r)
	path := filepath.Join(t.TempDir(), "corrupt.glb")
	if err := os.WriteFile(path, []byte("definitely not a glb"), 0o644); err != nil {
		t.Fatal(err)
	}

	if units := l.Load(path); len(units) != 0 {
		t.Fatalf("units = %d, want 0", len(units))
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	r := newHeadless(t)
	l := newTestLoader(r)
	path := filepath.Join(t.TempDir(), "model.obj")
	if err := os.WriteFile(path, []byte("v 0 0 0"), 0o644); err != nil {
		t.Fatal(err)
	}
	if units := l.Load(path); len(units) != 0 {
		t.Fatalf("units = %d, want 0", len(units))
	}
}

func TestFailedLoadDrawsNothing(t *testing.T) {
	r := newHeadless(t)
	hb := r.Backend().(*renderer.HeadlessBackend)
	units := newTestLoader(r).Load("nowhere/Soldier.glb")

	m := model.NewModel(r, units)
	defer m.Release()
	m.Draw(mgl32.Ident4(), mgl32.Ident4())
	if n := len(hb.Commands()); n != 0 {
		t.Fatalf("recorded %d commands, want 0", n)
	}
}

func TestLoadPositionOnlyGLB(t *testing.T) {
	r := newHeadless(t)
	l := newTestLoader(r)

	doc := gltf.NewDocument()
	positions := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}})
	indices := modeler.WriteIndices(doc, []uint16{0, 1, 2, 2, 1, 3})
	doc.Meshes = []*gltf.Mesh{{
		Name: "quad",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(indices),
			Attributes: map[string]uint32{attributePosition: positions},
		}},
	}}
	path := filepath.Join(t.TempDir(), "quad.glb")
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatalf("SaveBinary: %v", err)
	}

	units := l.Load(path)
	if len(units) != 1 {
		t.Fatalf("units = %d, want 1", len(units))
	}
	u := units[0]
	if u.Texture != nil {
		t.Error("position-only primitive should have no texture")
	}
	if u.IndexCount != 6 || u.IndexType != renderer.ComponentTypeUnsignedShort {
		t.Errorf("index count/type = %d/%s, want 6/u16", u.IndexCount, u.IndexType)
	}
	desc := u.VertexArray.Descriptor()
	if len(desc.Attributes) != 1 {
		t.Fatalf("attributes = %d, want 1", len(desc.Attributes))
	}
	pos := desc.Attributes[0]
	if pos.Location != positionLocation || pos.Components != 3 || pos.ComponentType != renderer.ComponentTypeFloat || pos.Stride != 12 {
		t.Errorf("position attribute = %+v", pos)
	}
	if _, ok := desc.Attribute(texCoordLocation); ok {
		t.Error("unexpected TEXCOORD_0 attribute")
	}
}

func TestLoadKeepsByteIndices(t *testing.T) {
	r := newHeadless(t)
	units := loadDocument(newTestLoader(r), triangleDocument(false))
	if len(units) != 1 {
		t.Fatalf("units = %d, want 1", len(units))
	}
	u := units[0]
	if u.IndexType != renderer.ComponentTypeUnsignedByte || u.IndexCount != 3 {
		t.Fatalf("index count/type = %d/%s, want 3/u8", u.IndexCount, u.IndexType)
	}
	ib, ok := u.VertexArray.Descriptor().Indices.(interface{ Bytes() []byte })
	if !ok {
		t.Fatal("headless index buffer does not expose its bytes")
	}
	if got := ib.Bytes(); !bytes.Equal(got, []byte{0, 1, 2}) {
		t.Fatalf("index bytes = %v, want [0 1 2]", got)
	}
}

func TestLoadTexCoordAndDataURITexture(t *testing.T) {
	tests := []struct {
		name   string
		opaque bool
		want   renderer.TextureFormat
	}{
		{"opaque image uploads as RGB8", true, renderer.TextureFormatRGB8},
		{"translucent image uploads as RGBA8", false, renderer.TextureFormatRGBA8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newHeadless(t)
			doc := triangleDocument(true)
			withDataURITexture(t, doc, tt.opaque)

			units := loadDocument(newTestLoader(r), doc)
			if len(units) != 1 {
				t.Fatalf("units = %d, want 1", len(units))
			}
			u := units[0]
			uv, ok := u.VertexArray.Descriptor().Attribute(texCoordLocation)
			if !ok || uv.Components != 2 || uv.Stride != 8 {
				t.Fatalf("TEXCOORD_0 attribute = %+v, present %v", uv, ok)
			}
			if u.Texture == nil {
				t.Fatal("expected a base-color texture")
			}
			if u.Texture.Width() != 2 || u.Texture.Height() != 2 || u.Texture.Format() != tt.want {
				t.Fatalf("texture = %dx%d format %d, want 2x2 format %d",
					u.Texture.Width(), u.Texture.Height(), u.Texture.Format(), tt.want)
			}
		})
	}
}

func TestTexturesAreNotShared(t *testing.T) {
	r := newHeadless(t)
	doc := triangleDocument(true)
	mesh := doc.Meshes[0]
	second := *mesh.Primitives[0]
	mesh.Primitives = append(mesh.Primitives, &second)
	withDataURITexture(t, doc, true)

	units := loadDocument(newTestLoader(r), doc)
	if len(units) != 2 {
		t.Fatalf("units = %d, want 2", len(units))
	}
	if units[0].Texture == nil || units[0].Texture == units[1].Texture {
		t.Fatal("each draw unit should own its own texture")
	}
}

func TestSkipsUnusablePrimitives(t *testing.T) {
	r := newHeadless(t)
	doc := triangleDocument(false)
	good := doc.Meshes[0].Primitives[0]
	doc.Meshes[0].Primitives = []*gltf.Primitive{
		good,
		{Attributes: map[string]uint32{attributePosition: 1}},
		{Indices: gltf.Index(0), Attributes: map[string]uint32{}},
		{Indices: gltf.Index(0), Attributes: map[string]uint32{attributePosition: 1}, Mode: gltf.PrimitiveLines},
	}
	// an accessor that claims more elements than its view holds
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView: gltf.Index(1), ComponentType: gltf.ComponentFloat, Count: 100, Type: gltf.AccessorVec3,
	})
	doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives,
		&gltf.Primitive{Indices: gltf.Index(0), Attributes: map[string]uint32{attributePosition: 2}})

	imported := extractDocument(doc, "memory", "")
	if imported.Skipped != 4 {
		t.Fatalf("skipped = %d, want 4", imported.Skipped)
	}
	units := newTestLoader(r).upload(imported)
	if len(units) != 1 {
		t.Fatalf("units = %d, want 1", len(units))
	}
}

func TestLoadReader(t *testing.T) {
	r := newHeadless(t)
	doc := triangleDocument(false)
	path := filepath.Join(t.TempDir(), "tri.glb")
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatalf("SaveBinary: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	units := newTestLoader(r).LoadReader("tri", bytes.NewReader(data), "")
	if len(units) != 1 || units[0].IndexCount != 3 {
		t.Fatalf("units = %+v", units)
	}
}

func TestReadAccessorStride(t *testing.T) {
	doc := triangleDocument(false)
	doc.BufferViews[1].ByteStride = 16
	doc.BufferViews[1].ByteLength = 36
	doc.Accessors[1].Count = 2
	e := newGLTFMeshExtractor(doc).(*gltfMeshExtractorImpl)

	acc, err := e.readAccessor(1, 3)
	if err != nil {
		t.Fatalf("readAccessor: %v", err)
	}
	if acc.Stride != 16 || len(acc.Data) != 36 {
		t.Fatalf("stride=%d len=%d, want 16/36", acc.Stride, len(acc.Data))
	}

	doc.Accessors[1].Count = 3
	if _, err := e.readAccessor(1, 3); err == nil {
		t.Fatal("expected an error when strided elements overrun the view")
	}
}

func TestLoadQuantizedPosition(t *testing.T) {
	r := newHeadless(t)
	data := []byte{0, 1, 2, 0}
	for _, v := range []uint16{0, 0, 0, 65535, 0, 0, 0, 65535, 0} {
		data = binary.LittleEndian.AppendUint16(data, v)
	}
	doc := &gltf.Document{
		Asset: gltf.Asset{Version: "2.0", Generator: "loader_test"},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 3},
			{Buffer: 0, ByteOffset: 4, ByteLength: 18},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentUbyte, Count: 3, Type: gltf.AccessorScalar},
			{BufferView: gltf.Index(1), ComponentType: gltf.ComponentUshort, Normalized: true, Count: 3, Type: gltf.AccessorVec3},
		},
		Buffers: []*gltf.Buffer{{ByteLength: uint32(len(data)), Data: data}},
		Meshes: []*gltf.Mesh{{
			Name: "quantized",
			Primitives: []*gltf.Primitive{{
				Indices:    gltf.Index(0),
				Attributes: map[string]uint32{attributePosition: 1},
			}},
		}},
	}

	units := loadDocument(newTestLoader(r), doc)
	if len(units) != 1 {
		t.Fatalf("units = %d, want 1", len(units))
	}
	pos, ok := units[0].VertexArray.Descriptor().Attribute(positionLocation)
	if !ok {
		t.Fatal("missing POSITION attribute")
	}
	// no byteStride: three u16 components packed tightly
	if pos.Stride != 6 || !pos.Normalized || pos.ComponentType != renderer.ComponentTypeUnsignedShort {
		t.Fatalf("POSITION = stride %d normalized %v type %s, want 6/true/u16",
			pos.Stride, pos.Normalized, pos.ComponentType)
	}
}

func TestDecodeDataURI(t *testing.T) {
	data, mime, err := decodeDataURI("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("abc")))
	if err != nil || mime != "image/png" || string(data) != "abc" {
		t.Fatalf("decodeDataURI = %q, %q, %v", data, mime, err)
	}
	if _, _, err := decodeDataURI("data:text/plain,abc"); err == nil {
		t.Fatal("expected error for non-base64 data URI")
	}
}
