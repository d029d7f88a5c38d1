package wgpu_backend

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/wgpu_backend/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

func init() {
	renderer.RegisterBackend(renderer.BackendTypeWGPU, New)
}

// SurfaceProvider is the capability a window needs to host the WebGPU backend.
type SurfaceProvider interface {
	renderer.Surface
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

type backend struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat        wgpu.TextureFormat
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor
	presentMode          wgpu.PresentMode
	sampleCount          renderer.MSAASampleCount
	width, height        int
	clearColor           [4]float32

	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	bindings renderer.Bindings

	pipelines   map[string]pipeline.Pipeline
	failedKeys  map[string]bool
	missingLogs map[string]bool

	uniformLayout *wgpu.BindGroupLayout
	textureLayout *wgpu.BindGroupLayout
	arena         *uniformArena
	whiteTexture  *texture
	zeroBuffer    *wgpu.Buffer

	info renderer.BackendInfo
}

var _ renderer.RendererBackend = &backend{}

// zeroBufferSize covers the widest input (vec4<f32>) read through a zero-stride layout.
const zeroBufferSize = 16

// New creates a WebGPU backend rendering into surface, which must implement SurfaceProvider.
//
// Parameters:
//   - surface: the window to render into
//   - cfg: the backend configuration
//
// Returns:
//   - renderer.RendererBackend: the backend
//   - error: an error if no adapter or device could be acquired
func New(surface renderer.Surface, cfg renderer.BackendConfig) (renderer.RendererBackend, error) {
	sp, ok := surface.(SurfaceProvider)
	if !ok || sp.SurfaceDescriptor() == nil {
		return nil, errors.New("surface does not provide a WebGPU surface descriptor")
	}

	runtime.LockOSThread()
	b := &backend{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		sampleCount: cfg.MSAA,
		clearColor:  cfg.ClearColor,
		pipelines:   make(map[string]pipeline.Pipeline),
		failedKeys:  make(map[string]bool),
		missingLogs: make(map[string]bool),
	}
	if b.sampleCount == 0 {
		b.sampleCount = renderer.MSAAOff
	}
	b.SetPresentMode(cfg.PresentMode)
	b.surface = b.instance.CreateSurface(sp.SurfaceDescriptor())

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.ForceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.releaseCore()
		return nil, errors.Wrap(err, "failed to request WebGPU adapter")
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		b.releaseCore()
		return nil, errors.Wrap(err, "failed to request WebGPU device")
	}
	b.device = device
	b.queue = device.GetQueue()

	adapterInfo := adapter.GetInfo()
	b.info = renderer.BackendInfo{
		Name:     renderer.BackendTypeWGPU.String(),
		Vendor:   adapterInfo.VendorName,
		Device:   adapterInfo.Name,
		Version:  fmt.Sprintf("%s %s", adapterInfo.BackendType.String(), adapterInfo.DriverDescription),
		Language: shader.LanguageWGSL,
	}

	if err := b.createSharedObjects(); err != nil {
		b.Release()
		return nil, err
	}

	width, height := cfg.Width, cfg.Height
	if w, h := surface.FramebufferSize(); w > 0 && h > 0 {
		width, height = w, h
	}
	if err := b.configureSurface(width, height); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

// createSharedObjects builds the bind group layouts every program shares, the uniform arena,
// the zero vertex buffer and the white fallback texture.
func (b *backend) createSharedObjects() error {
	var err error
	b.uniformLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Uniform Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   0,
				},
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create uniform bind group layout")
	}

	b.textureLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Texture Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    textureBinding,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
					Multisampled:  false,
				},
			},
			{
				Binding:    samplerBinding,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create texture bind group layout")
	}

	b.arena = newUniformArena(b.device, b.uniformLayout)

	b.zeroBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Zero Vertex Buffer",
		Size:  zeroBufferSize,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create zero vertex buffer")
	}
	b.queue.WriteBuffer(b.zeroBuffer, 0, make([]byte, zeroBufferSize))

	b.whiteTexture, err = b.createTexture(renderer.TextureDescriptor{
		Label:   "White Fallback",
		Width:   1,
		Height:  1,
		Format:  renderer.TextureFormatRGBA8,
		Pixels:  []byte{0xFF, 0xFF, 0xFF, 0xFF},
		Sampler: renderer.DefaultSampler(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create fallback texture")
	}
	return nil
}

// configureSurface (re)configures the swapchain and rebuilds the size-dependent MSAA and depth
// targets. Must be called with b.mu unlocked.
func (b *backend) configureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return errors.New("surface reports no supported formats")
	}
	b.surfaceFormat = pickSurfaceFormat(capabilities.Formats)
	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		alphaMode = capabilities.AlphaModes[0]
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   alphaMode,
	})
	b.width, b.height = width, height

	b.releaseTargets()

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if msaaEnabled {
		// The render pass draws into the MSAA texture; the swapchain view is the resolve target.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create MSAA texture")
		}
		b.msaaTexture = msaaTexture
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			return errors.Wrap(err, "failed to create MSAA texture view")
		}
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create depth texture")
	}
	b.depthTexture = depthTexture
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		return errors.Wrap(err, "failed to create depth texture view")
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          b.msaaTextureView, // nil when MSAA is off; set in BeginFrame
				ResolveTarget: nil,
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue:    b.wgpuClearColor(),
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
	return nil
}

func (b *backend) wgpuClearColor() wgpu.Color {
	return wgpu.Color{
		R: float64(b.clearColor[0]),
		G: float64(b.clearColor[1]),
		B: float64(b.clearColor[2]),
		A: float64(b.clearColor[3]),
	}
}

// releaseTargets must be called with b.mu held.
func (b *backend) releaseTargets() {
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if b.msaaTexture != nil {
		b.msaaTexture.Release()
		b.msaaTexture = nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTextureView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

func (b *backend) Info() renderer.BackendInfo { return b.info }

func (b *backend) ShadingLanguage() shader.Language { return shader.LanguageWGSL }

func (b *backend) DepthRange() common.DepthRange { return common.DepthRangeZeroToOne }

func (b *backend) UseProgram(p shader.Program) {
	b.mu.Lock()
	b.bindings.Program = p
	b.mu.Unlock()
}

func (b *backend) BindVertexArray(va renderer.VertexArray) {
	b.mu.Lock()
	b.bindings.VertexArray = va
	b.mu.Unlock()
}

func (b *backend) BindTexture(unit int, tex renderer.Texture) {
	if unit < 0 || unit >= renderer.MaxTextureUnits {
		return
	}
	b.mu.Lock()
	b.bindings.Textures[unit] = tex
	b.mu.Unlock()
}

func (b *backend) SetDepthTest(enabled bool) {
	b.mu.Lock()
	b.bindings.DepthTest = enabled
	b.mu.Unlock()
}

func (b *backend) SetFaceCulling(enabled bool) {
	b.mu.Lock()
	b.bindings.FaceCulling = enabled
	b.mu.Unlock()
}

func (b *backend) Bindings() renderer.Bindings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bindings
}

// pipelineFor returns the cached render pipeline for the bound program, vertex layouts and
// fixed-function state, creating it on first use. A key that failed once is not retried.
// Must be called with b.mu held.
func (b *backend) pipelineFor(p *program, layouts []wgpu.VertexBufferLayout) (pipeline.Pipeline, error) {
	key := pipeline.Key(p.ID(), layouts, b.bindings.DepthTest, b.bindings.FaceCulling)
	if pl, ok := b.pipelines[key]; ok {
		return pl, nil
	}
	if b.failedKeys[key] {
		return nil, errors.Errorf("pipeline %s previously failed", key)
	}

	pl := pipeline.NewPipeline(key, p.Key(),
		pipeline.WithVertexLayouts(layouts),
		pipeline.WithDepthTestEnabled(b.bindings.DepthTest),
		pipeline.WithFaceCulling(b.bindings.FaceCulling),
	)

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  key + " Render Pipeline",
		Layout: p.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: p.reflection.VertexEntry,
			Buffers:    pl.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: p.reflection.FragmentEntry,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    b.surfaceFormat,
					WriteMask: pl.WriteMask(),
					Blend:     pl.BlendState(),
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  pl.Topology(),
			FrontFace: pl.FrontFace(),
			CullMode:  pl.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: pl.DepthWriteEnabled(),
			DepthCompare:      pl.DepthCompare(),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		b.failedKeys[key] = true
		return nil, err
	}
	pl.SetRenderPipeline(created)
	b.pipelines[key] = pl
	return pl, nil
}

// dropPipelines releases every pipeline built for the program with id.
func (b *backend) dropPipelines(programID uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefix := fmt.Sprintf("p%d|", programID)
	for key, pl := range b.pipelines {
		if strings.HasPrefix(key, prefix) {
			pl.Release()
			delete(b.pipelines, key)
		}
	}
	for key := range b.failedKeys {
		if strings.HasPrefix(key, prefix) {
			delete(b.failedKeys, key)
		}
	}
}

// prepareDraw binds pipeline, uniforms, texture and vertex buffers for the current bindings.
// It reports false when the draw must be skipped. Must be called with b.mu held.
func (b *backend) prepareDraw() (*vertexArray, bool) {
	if b.framePass == nil || !b.bindings.Drawable() {
		return nil, false
	}
	p, ok := b.bindings.Program.(*program)
	if !ok {
		return nil, false
	}
	va, ok := b.bindings.VertexArray.(*vertexArray)
	if !ok {
		return nil, false
	}

	resolved, ok := va.resolved[p.ID()]
	if !ok {
		var missing []int
		resolved, missing = resolveVertexInputs(p.reflection.Inputs, va.desc)
		va.resolved[p.ID()] = resolved
		logKey := fmt.Sprintf("%s/%s", p.Key(), va.Label())
		if len(missing) > 0 && !b.missingLogs[logKey] {
			b.missingLogs[logKey] = true
			common.Logger().Warn("shader inputs have no matching vertex attribute",
				"program", p.Key(), "vertex_array", va.Label(), "locations", missing)
		}
	}

	pl, err := b.pipelineFor(p, resolved.layouts)
	if err != nil {
		common.Logger().Error("failed to create render pipeline", "program", p.Key(), "error", err)
		return nil, false
	}
	b.framePass.SetPipeline(pl.RenderPipeline())

	if block := p.reflection.Uniforms; block != nil {
		chunk, offset, err := b.arena.allocate(p.uniforms.Pack(*block))
		if err != nil {
			common.Logger().Error("failed to allocate uniforms", "program", p.Key(), "error", err)
			return nil, false
		}
		b.framePass.SetBindGroup(uniformGroup, chunk.BindGroup(), []uint32{offset})
	}

	if p.reflection.HasTextures() {
		tex := b.whiteTexture
		if bound, ok := b.bindings.Textures[0].(*texture); ok && !bound.Released() {
			tex = bound
		}
		b.framePass.SetBindGroup(textureGroup, tex.provider.BindGroup(), nil)
	}

	for slot, vs := range resolved.slots {
		buf, ok := vs.buffer.(*buffer)
		if !ok || buf.Released() {
			b.framePass.SetVertexBuffer(uint32(slot), b.zeroBuffer, 0, wgpu.WholeSize)
			continue
		}
		b.framePass.SetVertexBuffer(uint32(slot), buf.gpu, vs.offset, wgpu.WholeSize)
	}
	return va, true
}

func (b *backend) DrawArrays(first, count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.prepareDraw(); !ok {
		return
	}
	b.framePass.Draw(uint32(count), 1, uint32(first), 0)
}

func (b *backend) DrawElements(count int, indexType renderer.ComponentType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if va, ok := b.bindings.VertexArray.(*vertexArray); ok {
		if _, _, ok := va.indexBuffer(indexType); !ok {
			return
		}
	}
	va, ok := b.prepareDraw()
	if !ok {
		return
	}
	ib, format, _ := va.indexBuffer(indexType)
	b.framePass.SetIndexBuffer(ib, format, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(count), 1, 0, 0, 0)
}

func (b *backend) SetClearColor(c [4]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearColor = c
	if b.renderPassDescriptor != nil {
		b.renderPassDescriptor.ColorAttachments[0].ClearValue = b.wgpuClearColor()
	}
}

func (b *backend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	b.arena.reset()
	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *backend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("EndFrame called without BeginFrame")
	}
	b.framePass.End()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.abandonFrame()
		return err
	}

	b.arena.flush(b.queue)
	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	return nil
}

// abandonFrame drops every per-frame object after a failed encode. Must be called with b.mu held.
func (b *backend) abandonFrame() {
	if b.framePass != nil {
		b.framePass.End()
		b.framePass = nil
	}
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	b.arena.reset()
}

func (b *backend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return nil
	}
	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
	return nil
}

func (b *backend) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if err := b.configureSurface(width, height); err != nil {
		common.Logger().Error("failed to reconfigure surface", "width", width, "height", height, "error", err)
	}
}

func (b *backend) SetPresentMode(mode renderer.PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case renderer.PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass != nil || b.frameSurface != nil {
		b.abandonFrame()
	}
	for key, pl := range b.pipelines {
		pl.Release()
		delete(b.pipelines, key)
	}
	if b.arena != nil {
		b.arena.release()
		b.arena = nil
	}
	if b.whiteTexture != nil {
		b.whiteTexture.provider.Release()
		b.whiteTexture = nil
	}
	if b.zeroBuffer != nil {
		b.zeroBuffer.Release()
		b.zeroBuffer = nil
	}
	b.releaseTargets()
	if b.textureLayout != nil {
		b.textureLayout.Release()
		b.textureLayout = nil
	}
	if b.uniformLayout != nil {
		b.uniformLayout.Release()
		b.uniformLayout = nil
	}
	b.bindings = renderer.Bindings{}
	b.releaseCore()
}

// releaseCore frees the device, adapter, surface and instance, newest first.
func (b *backend) releaseCore() {
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
