package renderer

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-iso/common"
)

// ResourceKind names the category of a GPU object for registry bookkeeping.
type ResourceKind int

const (
	ResourceKindBuffer ResourceKind = iota
	ResourceKindTexture
	ResourceKindVertexArray
	ResourceKindProgram
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindBuffer:
		return "buffer"
	case ResourceKindTexture:
		return "texture"
	case ResourceKindVertexArray:
		return "vertex array"
	case ResourceKindProgram:
		return "program"
	default:
		return "unknown"
	}
}

var resourceIDs atomic.Uint64

// Resource is the release-once core every backend object embeds. The free function runs
// at most once no matter how many times Release is called.
type Resource struct {
	id       uint64
	kind     ResourceKind
	label    string
	released atomic.Bool
	free     func()

	mu        sync.Mutex
	onRelease func(*Resource)
}

// NewResource creates a resource whose GPU handle is freed by free.
//
// Parameters:
//   - kind: the resource category
//   - label: a debug label used in log records
//   - free: the function that deletes the GPU handle (nil allowed)
//
// Returns:
//   - *Resource: the new resource, not yet released
func NewResource(kind ResourceKind, label string, free func()) *Resource {
	return &Resource{
		id:    resourceIDs.Add(1),
		kind:  kind,
		label: label,
		free:  free,
	}
}

func (r *Resource) ID() uint64         { return r.id }
func (r *Resource) Kind() ResourceKind { return r.kind }
func (r *Resource) Label() string      { return r.label }
func (r *Resource) Released() bool     { return r.released.Load() }

// Release frees the GPU handle the first time it is called.
func (r *Resource) Release() {
	if r.released.Swap(true) {
		return
	}
	if r.free != nil {
		r.free()
	}
	r.mu.Lock()
	hook := r.onRelease
	r.mu.Unlock()
	if hook != nil {
		hook(r)
	}
}

func (r *Resource) resource() *Resource { return r }

func (r *Resource) setOnRelease(fn func(*Resource)) {
	r.mu.Lock()
	r.onRelease = fn
	r.mu.Unlock()
}

// Handle is implemented by every object that embeds *Resource.
type Handle interface {
	ID() uint64
	Kind() ResourceKind
	Label() string
	Released() bool
	Release()
	resource() *Resource
}

// Buffer is an immutable GPU buffer.
type Buffer interface {
	Handle
	Size() int
	Usage() BufferUsage
}

// Texture is a sampled 2D texture.
type Texture interface {
	Handle
	Width() int
	Height() int
	Format() TextureFormat
}

// VertexArray binds an attribute layout and an optional index buffer for drawing.
type VertexArray interface {
	Handle
	Descriptor() VertexArrayDescriptor
}

// registry tracks every live resource a renderer created so leftovers can be reported
// and released at teardown.
type registry struct {
	mu   sync.Mutex
	live map[uint64]Handle
}

func newRegistry() *registry {
	return &registry{live: make(map[uint64]Handle)}
}

func (g *registry) track(h Handle) {
	res := h.resource()
	if res.Released() {
		return
	}
	g.mu.Lock()
	g.live[res.ID()] = h
	g.mu.Unlock()
	res.setOnRelease(g.forget)
}

func (g *registry) forget(res *Resource) {
	g.mu.Lock()
	delete(g.live, res.ID())
	g.mu.Unlock()
}

func (g *registry) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live)
}

// releaseAll releases leftovers newest first so vertex arrays go before the buffers
// they reference.
func (g *registry) releaseAll() int {
	g.mu.Lock()
	leftovers := make([]Handle, 0, len(g.live))
	for _, h := range g.live {
		leftovers = append(leftovers, h)
	}
	g.mu.Unlock()

	sort.Slice(leftovers, func(i, j int) bool { return leftovers[i].ID() > leftovers[j].ID() })
	for _, h := range leftovers {
		common.Logger().Warn("releasing leaked GPU resource", "kind", h.Kind().String(), "label", h.Label(), "id", h.ID())
		h.Release()
	}
	return len(leftovers)
}
