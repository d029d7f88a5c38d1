package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/model"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

const (
	// decodeQueueSize bounds the number of pending image decode tasks.
	decodeQueueSize = 64

	// decodeIdleTimeout lets decode workers exit shortly after a load finishes.
	decodeIdleTimeout = 250 * time.Millisecond
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.Mutex

	renderer renderer.Renderer
	backend  loaderBackend

	workers     int
	decodePool  worker.DynamicWorkerPool
	progressBar bool
}

// Loader turns model files into draw units on a renderer. Loading never fails loudly: every
// problem is logged and the affected part is left out, so a broken file yields an empty list.
type Loader interface {
	// Load decodes the model file at path and uploads every usable primitive. Textures are
	// decoded in parallel; every GPU call happens on the calling goroutine, which must be
	// the render thread.
	//
	// Parameters:
	//   - path: the .gltf or .glb file to load
	//
	// Returns:
	//   - []model.DrawUnit: one unit per uploaded primitive, empty when nothing could be loaded
	Load(path string) []model.DrawUnit

	// LoadReader is Load for a self-contained glTF or GLB stream.
	//
	// Parameters:
	//   - name: the name used for the model in log records and resource labels
	//   - r: the reader providing model data
	//   - baseDir: the directory external images are resolved against
	//
	// Returns:
	//   - []model.DrawUnit: one unit per uploaded primitive, empty when nothing could be loaded
	LoadReader(name string, r io.Reader, baseDir string) []model.DrawUnit
}

var _ Loader = &loader{}

// NewLoader creates a Loader that uploads to r.
//
// Parameters:
//   - r: the renderer that owns the created resources
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader
func NewLoader(r renderer.Renderer, options ...LoaderBuilderOption) Loader {
	l := &loader{
		renderer: r,
		backend:  newGLTFLoaderBackend(),
		workers:  runtime.NumCPU(),
	}
	for _, option := range options {
		option(l)
	}
	l.workers = max(l.workers, 1)
	l.decodePool = worker.NewDynamicWorkerPool(l.workers, decodeQueueSize, decodeIdleTimeout)
	return l
}

func (l *loader) Load(path string) []model.DrawUnit {
	imported, err := l.decode(path)
	if err != nil {
		common.Logger().Error("failed to load model", "path", path, "error", err)
		return nil
	}
	return l.upload(imported)
}

func (l *loader) LoadReader(name string, r io.Reader, baseDir string) []model.DrawUnit {
	imported, err := l.backend.DecodeReader(name, r, baseDir)
	if err != nil {
		common.Logger().Error("failed to load model", "path", name, "error", err)
		return nil
	}
	return l.upload(imported)
}

func (l *loader) decode(path string) (*importedModel, error) {
	if err := checkFormat(path); err != nil {
		return nil, err
	}
	return l.backend.Decode(path)
}

// checkFormat rejects files the glTF backend cannot read, judged by extension.
func checkFormat(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return nil
	default:
		return errors.Errorf("unsupported model format %q", ext)
	}
}

// upload decodes the referenced images and creates the GPU resources of every primitive.
func (l *loader) upload(imported *importedModel) []model.DrawUnit {
	l.mu.Lock()
	defer l.mu.Unlock()

	log := common.Logger()
	pixels := l.decodeImages(imported)

	var bar *progressbar.ProgressBar
	if l.progressBar && len(imported.Primitives) > 0 {
		bar = progressbar.Default(int64(len(imported.Primitives)), "uploading "+filepath.Base(imported.Name))
	}

	units := make([]model.DrawUnit, 0, len(imported.Primitives))
	for i := range imported.Primitives {
		prim := &imported.Primitives[i]
		if log.Enabled(context.Background(), slog.LevelDebug) {
			log.Debug("decoded primitive", "model", imported.Name, "layout", common.SDump(describePrimitive(prim)))
		}

		var staging *common.TextureStagingData
		if data, ok := pixels[prim.ImageIndex]; ok {
			staging = &data
		}
		unit, err := l.uploadPrimitive(imported.Name, prim, staging)
		if err != nil {
			log.Warn("skipping primitive", "model", imported.Name, "primitive", prim.Name, "error", err)
			imported.Skipped++
		} else {
			units = append(units, unit)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Close()
	}

	log.Info("model loaded", "model", imported.Name, "units", len(units), "skipped", imported.Skipped)
	return units
}

// decodeImages decodes every available image on the worker pool and waits for all of them.
// Images that fail to decode are logged and left out, so their primitives draw untextured.
func (l *loader) decodeImages(imported *importedModel) map[int]common.TextureStagingData {
	out := make(map[int]common.TextureStagingData, len(imported.Images))
	if len(imported.Images) == 0 {
		return out
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for index, src := range imported.Images {
		if src == nil {
			continue
		}
		wg.Add(1)
		l.decodePool.SubmitTask(worker.Task{
			ID: index,
			Do: func() (any, error) {
				defer wg.Done()
				data, err := src.Decode()
				if err != nil {
					common.Logger().Warn("failed to decode texture", "model", imported.Name, "image", src.Name, "error", err)
					return nil, err
				}
				mu.Lock()
				out[index] = data
				mu.Unlock()
				return nil, nil
			},
		})
	}
	wg.Wait()
	return out
}

// uploadPrimitive creates the buffers, vertex array and optional texture of one primitive.
// On error, everything created so far for the primitive is released again.
func (l *loader) uploadPrimitive(modelName string, prim *importedPrimitive, staging *common.TextureStagingData) (unit model.DrawUnit, err error) {
	var created []renderer.Handle
	defer func() {
		if err != nil {
			for i := len(created) - 1; i >= 0; i-- {
				created[i].Release()
			}
		}
	}()

	label := modelName + ":" + prim.Name
	indices, err := l.renderer.CreateBuffer(renderer.BufferDescriptor{
		Label: label + ":indices",
		Usage: renderer.BufferUsageIndex,
		Data:  prim.Indices.Data,
	})
	if err != nil {
		return unit, err
	}
	created = append(created, indices)

	position, err := l.renderer.CreateBuffer(renderer.BufferDescriptor{
		Label: label + ":" + attributePosition,
		Usage: renderer.BufferUsageVertex,
		Data:  prim.Position.Data,
	})
	if err != nil {
		return unit, err
	}
	created = append(created, position)

	attributes := []renderer.VertexAttribute{
		vertexAttribute(positionLocation, 3, position, prim.Position),
	}
	if prim.TexCoord != nil {
		texCoord, err := l.renderer.CreateBuffer(renderer.BufferDescriptor{
			Label: label + ":" + attributeTexCoord0,
			Usage: renderer.BufferUsageVertex,
			Data:  prim.TexCoord.Data,
		})
		if err != nil {
			return unit, err
		}
		created = append(created, texCoord)
		attributes = append(attributes, vertexAttribute(texCoordLocation, 2, texCoord, *prim.TexCoord))
	}

	va, err := l.renderer.CreateVertexArray(renderer.VertexArrayDescriptor{
		Label:      label,
		Attributes: attributes,
		Indices:    indices,
		IndexType:  prim.Indices.ComponentType,
	})
	if err != nil {
		return unit, err
	}
	created = append(created, va)

	unit = model.DrawUnit{
		VertexArray: va,
		IndexCount:  prim.Indices.Count,
		IndexType:   prim.Indices.ComponentType,
	}

	if staging != nil {
		tex, terr := l.renderer.CreateTexture(textureDescriptor(label+":base_color", *staging))
		if terr != nil {
			// a missing texture is not worth losing the geometry over
			common.Logger().Warn("failed to create texture", "model", modelName, "primitive", prim.Name, "error", terr)
		} else {
			unit.Texture = tex
		}
	}
	return unit, nil
}

func vertexAttribute(location, components int, buf renderer.Buffer, acc accessorData) renderer.VertexAttribute {
	return renderer.VertexAttribute{
		Location:      location,
		Buffer:        buf,
		Components:    components,
		ComponentType: acc.ComponentType,
		Normalized:    acc.Normalized,
		Stride:        acc.Stride,
	}
}

// textureDescriptor describes a mipmapped, repeating base-color texture. Three-channel
// pixels stay RGB8; everything else is uploaded as RGBA8.
func textureDescriptor(label string, staging common.TextureStagingData) renderer.TextureDescriptor {
	format := renderer.TextureFormatRGBA8
	if staging.Channels == 3 {
		format = renderer.TextureFormatRGB8
	} else if staging.Channels != 4 {
		staging = staging.RGBA()
	}
	return renderer.TextureDescriptor{
		Label:           label,
		Width:           int(staging.Width),
		Height:          int(staging.Height),
		Format:          format,
		Pixels:          staging.Pixels,
		Sampler:         renderer.DefaultSampler(),
		GenerateMipmaps: true,
	}
}

// primitiveLayout is the debug view of a decoded primitive, without the raw bytes.
type primitiveLayout struct {
	Name          string
	IndexCount    int
	IndexType     string
	VertexCount   int
	PositionType  string
	PositionBytes int
	Stride        int
	TexCoord      string
	Image         int
}

func describePrimitive(prim *importedPrimitive) primitiveLayout {
	layout := primitiveLayout{
		Name:          prim.Name,
		IndexCount:    prim.Indices.Count,
		IndexType:     prim.Indices.ComponentType.String(),
		VertexCount:   prim.Position.Count,
		PositionType:  prim.Position.ComponentType.String(),
		PositionBytes: len(prim.Position.Data),
		Stride:        prim.Position.Stride,
		TexCoord:      "none",
		Image:         prim.ImageIndex,
	}
	if prim.TexCoord != nil {
		layout.TexCoord = fmt.Sprintf("%s x%d stride %d", prim.TexCoord.ComponentType, prim.TexCoord.Count, prim.TexCoord.Stride)
	}
	return layout
}
