package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-5

func TestDefaultProjectionExtents(t *testing.T) {
	c := NewCamera()
	p := c.Projection()

	// ortho(-5a, 5a, -5, 5, -100, 100)
	if got, want := p.At(0, 0), 2/(2*5*DefaultAspect); mgl32.Abs(got-want) > eps {
		t.Errorf("x scale = %v, want %v", got, want)
	}
	if got := p.At(1, 1); mgl32.Abs(got-0.2) > eps {
		t.Errorf("y scale = %v, want 0.2", got)
	}
	if got := p.At(2, 2); mgl32.Abs(got+0.01) > eps {
		t.Errorf("z scale = %v, want -0.01", got)
	}
}

func TestTargetProjectsToCenter(t *testing.T) {
	c := NewCamera()
	clip := c.ViewProjection().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if mgl32.Abs(clip.X()) > eps || mgl32.Abs(clip.Y()) > eps {
		t.Fatalf("origin projects to %v, want screen center", clip)
	}

	up := c.ViewProjection().Mul4x1(mgl32.Vec4{0, 1, 0, 1})
	if up.Y() <= 0 {
		t.Fatalf("+Y projects to %v, want above center", up)
	}
}

func TestSetAspect(t *testing.T) {
	c := NewCamera()
	c.SetAspect(2)
	if got := c.Projection().At(0, 0); mgl32.Abs(got-0.1) > eps {
		t.Fatalf("x scale after SetAspect(2) = %v, want 0.1", got)
	}
	c.SetAspect(0)
	if c.Aspect() != 2 {
		t.Fatalf("SetAspect(0) changed the aspect to %v", c.Aspect())
	}
}

func TestDepthRange(t *testing.T) {
	gl := NewCamera()
	wgpu := NewCamera(WithDepthRange(common.DepthRangeZeroToOne))

	for _, z := range []float32{-100, 0, 100} {
		a := gl.Projection().Mul4x1(mgl32.Vec4{0, 0, z, 1}).Z()
		b := wgpu.Projection().Mul4x1(mgl32.Vec4{0, 0, z, 1}).Z()
		if mgl32.Abs(b-(a*0.5+0.5)) > eps {
			t.Errorf("z=%v: zero-to-one depth %v, want %v", z, b, a*0.5+0.5)
		}
	}
}

func TestOptions(t *testing.T) {
	c := NewCamera(WithEye([3]float32{10, 10, 10}), WithViewSize(2), WithAspect(1), WithClipPlanes(-1, 1))
	if c.Eye() != [3]float32{10, 10, 10} || c.ViewSize() != 2 || c.Aspect() != 1 {
		t.Fatalf("options not applied: eye=%v size=%v aspect=%v", c.Eye(), c.ViewSize(), c.Aspect())
	}
	if got := c.Projection().At(0, 0); mgl32.Abs(got-0.5) > eps {
		t.Fatalf("x scale = %v, want 0.5", got)
	}
}
