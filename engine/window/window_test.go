package window

import "testing"

func TestGraphicsAPIString(t *testing.T) {
	if GraphicsAPIOpenGL.String() != "opengl" || GraphicsAPINone.String() != "none" {
		t.Fatalf("names = %q, %q", GraphicsAPIOpenGL, GraphicsAPINone)
	}
}

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{}
	for _, opt := range []WindowBuilderOption{
		WithTitle("Volgagian"),
		WithWidth(1024),
		WithHeight(768),
		WithMinWidth(320),
		WithMaxHeight(2000),
		WithGraphicsAPI(GraphicsAPIOpenGL),
		WithSamples(4),
	} {
		opt(w)
	}
	if w.title != "Volgagian" || w.width != 1024 || w.height != 768 {
		t.Fatalf("window = %+v", w)
	}
	if w.minWidth != 320 || w.maxHeight != 2000 || w.api != GraphicsAPIOpenGL || w.samples != 4 {
		t.Fatalf("window = %+v", w)
	}
}

func TestUninitializedWindowIsInert(t *testing.T) {
	w := &engineWindow{width: 800, height: 600, api: GraphicsAPIOpenGL}
	if w.IsRunning() {
		t.Fatal("window without a platform handle should not be running")
	}
	if x, y := w.CursorPosition(); x != 0 || y != 0 {
		t.Fatalf("cursor = %v,%v", x, y)
	}
	w.MakeContextCurrent()
	w.SwapBuffers()
	w.RequestClose()
	if err := w.Close(); err == nil {
		t.Fatal("closing an uninitialized window should fail")
	}

	w.setSize(1280, 720)
	if fw, fh := w.FramebufferSize(); fw != 1280 || fh != 720 {
		t.Fatalf("framebuffer = %dx%d", fw, fh)
	}
}
