package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/animation"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/color"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/texture"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"
)

// FetchFunc retrieves the bytes behind a URL.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// Decoder builds Models from glTF JSON or GLB bytes.
type Decoder struct {
	// Fetch resolves external buffers and images. When nil, only GLB
	// chunks and data URIs are readable.
	Fetch FetchFunc
	// MaxTextureSize downscales larger images (0 keeps them as-is).
	MaxTextureSize int
	Logger         *zap.Logger
}

// Decode parses data fetched from baseURL into a Model. On error every
// resource created so far is disposed.
func (d *Decoder) Decode(ctx context.Context, data []byte, baseURL string) (*Model, error) {
	doc := new(gltf.Document)
	dec := gltf.NewDecoderFS(bytes.NewReader(data), &fetchFS{ctx: ctx, base: baseURL, fetch: d.Fetch})
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding glTF: %w", err)
	}

	return assemble(d.newBuilder(ctx, doc, baseURL, d.Logger))
}

func (d *Decoder) newBuilder(ctx context.Context, doc *gltf.Document, baseURL string, log *zap.Logger) *builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &builder{
		ctx:       ctx,
		doc:       doc,
		base:      baseURL,
		dec:       d,
		log:       log,
		model:     &Model{URL: baseURL},
		textures:  make(map[int]*scene.Texture),
		materials: make(map[int]*scene.Material),
	}
}

func assemble(b *builder) (*Model, error) {
	if err := b.build(); err != nil {
		b.dispose()
		return nil, err
	}
	return b.model, nil
}

type builder struct {
	ctx  context.Context
	doc  *gltf.Document
	base string
	dec  *Decoder
	log  *zap.Logger

	model     *Model
	nodes     []*scene.Node
	textures  map[int]*scene.Texture
	materials map[int]*scene.Material
}

func (b *builder) build() error {
	b.nodes = make([]*scene.Node, len(b.doc.Nodes))
	for i, n := range b.doc.Nodes {
		node, err := b.buildNode(i, n)
		if err != nil {
			return err
		}
		b.nodes[i] = node
	}

	hasParent := make([]bool, len(b.nodes))
	for i, n := range b.doc.Nodes {
		for _, c := range n.Children {
			if c < 0 || c >= len(b.nodes) || c == i {
				return fmt.Errorf("node %d: invalid child %d", i, c)
			}
			b.nodes[i].Add(b.nodes[c])
			hasParent[c] = true
		}
	}

	root := scene.NewNode("model")
	b.model.Root = root
	if roots := b.sceneRoots(); roots != nil {
		for _, idx := range roots {
			if idx >= 0 && idx < len(b.nodes) {
				root.Add(b.nodes[idx])
			}
		}
	} else {
		for i, n := range b.nodes {
			if !hasParent[i] {
				root.Add(n)
			}
		}
	}

	for i, a := range b.doc.Animations {
		clip := b.buildClip(i, a)
		if clip != nil {
			b.model.Clips = append(b.model.Clips, clip)
		}
	}

	b.model.ResetMorphs()
	return b.ctx.Err()
}

// dispose releases everything built so far, including nodes not yet
// attached under the model root.
func (b *builder) dispose() {
	for _, n := range b.nodes {
		n.Dispose()
	}
	b.model.Dispose()
}

func (b *builder) sceneRoots() []int {
	if len(b.doc.Scenes) == 0 {
		return nil
	}
	idx := 0
	if b.doc.Scene != nil && *b.doc.Scene < len(b.doc.Scenes) {
		idx = *b.doc.Scene
	}
	return b.doc.Scenes[idx].Nodes
}

func (b *builder) buildNode(i int, n *gltf.Node) (*scene.Node, error) {
	name := n.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", i)
	}
	node := scene.NewNode(name)

	if m := toMat4(n.Matrix); m != math.Identity() && m != (math.Mat4{}) {
		node.Translation, node.Rotation, node.Scale = m.Decompose()
	} else {
		node.Translation = math.Vec3{X: float32(n.Translation[0]), Y: float32(n.Translation[1]), Z: float32(n.Translation[2])}
		if r := n.Rotation; r != [4]float64{} {
			node.Rotation = math.Quat{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2]), W: float32(r[3])}.Normalize()
		}
		if s := n.Scale; s != [3]float64{} {
			node.Scale = math.Vec3{X: float32(s[0]), Y: float32(s[1]), Z: float32(s[2])}
		}
	}

	if n.Mesh != nil {
		if *n.Mesh < 0 || *n.Mesh >= len(b.doc.Meshes) {
			return nil, fmt.Errorf("node %q: invalid mesh %d", name, *n.Mesh)
		}
		meshes, err := b.buildMesh(b.doc.Meshes[*n.Mesh], n.Skin != nil)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", name, err)
		}
		node.Meshes = meshes
	}
	return node, nil
}

func toMat4(m [16]float64) math.Mat4 {
	var out math.Mat4
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

// buildMesh converts every triangle primitive of m into a scene mesh. All
// primitives share the mesh's morph dictionary.
func (b *builder) buildMesh(m *gltf.Mesh, skinned bool) ([]*scene.Mesh, error) {
	names := targetNames(m.Extras)
	var out []*scene.Mesh

	for pi, p := range m.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			b.log.Debug("skipping non-triangle primitive", zap.String("mesh", m.Name), zap.Int("primitive", pi))
			continue
		}
		geo, err := b.buildGeometry(p)
		if err != nil {
			for _, built := range out {
				built.Geometry.Dispose()
			}
			return nil, fmt.Errorf("mesh %q primitive %d: %w", m.Name, pi, err)
		}

		mesh := &scene.Mesh{
			Name:     m.Name,
			Geometry: geo,
			Material: b.material(p.Material),
			Skinned:  skinned,
		}
		if n := len(geo.Morphs); n > 0 {
			mesh.Influences = make([]float32, n)
			for i := 0; i < n && i < len(m.Weights); i++ {
				mesh.Influences[i] = float32(m.Weights[i])
			}
			mesh.MorphDict = make(map[string]int, n)
			for i := 0; i < n; i++ {
				name := fmt.Sprintf("morph_%d", i)
				if i < len(names) && names[i] != "" {
					name = names[i]
				}
				mesh.MorphDict[name] = i
				geo.Morphs[i].Name = name
			}
		}
		out = append(out, mesh)
	}
	return out, nil
}

// targetNames reads the de-facto extras.targetNames morph name list.
func targetNames(extras any) []string {
	m, ok := extras.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := m["targetNames"].([]any)
	if !ok {
		return nil
	}
	names := make([]string, len(raw))
	for i, v := range raw {
		names[i], _ = v.(string)
	}
	return names
}

func (b *builder) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("invalid accessor %d", idx)
	}
	return b.doc.Accessors[idx], nil
}

func (b *builder) buildGeometry(p *gltf.Primitive) (*scene.Geometry, error) {
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("missing POSITION")
	}
	acr, err := b.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(b.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}

	vertices := make([]scene.Vertex, len(positions))
	for i, pos := range positions {
		vertices[i].Position = pos
	}

	hasNormals := false
	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		if acr, err := b.accessor(idx); err == nil {
			if normals, err := modeler.ReadNormal(b.doc, acr, nil); err == nil && len(normals) == len(vertices) {
				for i, n := range normals {
					vertices[i].Normal = n
				}
				hasNormals = true
			}
		}
	}
	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		if acr, err := b.accessor(idx); err == nil {
			if uvs, err := modeler.ReadTextureCoord(b.doc, acr, nil); err == nil {
				for i := 0; i < len(uvs) && i < len(vertices); i++ {
					vertices[i].TexCoord = uvs[i]
				}
			}
		}
	}

	var indices []uint32
	if p.Indices != nil {
		acr, err := b.accessor(*p.Indices)
		if err != nil {
			return nil, err
		}
		indices, err = modeler.ReadIndices(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("index %d out of range (%d vertices)", idx, len(vertices))
		}
	}

	if !hasNormals {
		computeNormals(vertices, indices)
	}

	geo := scene.NewGeometry(vertices, indices)
	for ti, target := range p.Targets {
		var mt scene.MorphTarget
		if idx, ok := target[gltf.POSITION]; ok {
			if acr, err := b.accessor(idx); err == nil {
				mt.Positions, _ = modeler.ReadPosition(b.doc, acr, nil)
			}
		}
		if idx, ok := target[gltf.NORMAL]; ok {
			if acr, err := b.accessor(idx); err == nil {
				mt.Normals, _ = modeler.ReadNormal(b.doc, acr, nil)
			}
		}
		if mt.Positions == nil && mt.Normals == nil {
			b.log.Debug("empty morph target", zap.Int("target", ti))
		}
		geo.Morphs = append(geo.Morphs, mt)
	}
	return geo, nil
}

func (b *builder) material(idx *int) *scene.Material {
	if idx == nil || *idx < 0 || *idx >= len(b.doc.Materials) {
		return scene.NewMaterial("")
	}
	if m, ok := b.materials[*idx]; ok {
		return m
	}

	src := b.doc.Materials[*idx]
	m := scene.NewMaterial(src.Name)
	m.DoubleSided = src.DoubleSided
	m.Transparent = src.AlphaMode == gltf.AlphaBlend

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if f := pbr.BaseColorFactor; f != nil {
			m.Color = color.Color{R: float32(f[0]), G: float32(f[1]), B: float32(f[2]), A: float32(f[3])}
			m.Opacity = float32(f[3])
		}
		if pbr.MetallicFactor != nil {
			m.Metalness = float32(*pbr.MetallicFactor)
		}
		if pbr.RoughnessFactor != nil {
			m.Roughness = float32(*pbr.RoughnessFactor)
		}
		if ti := pbr.BaseColorTexture; ti != nil {
			m.Map = b.texture(ti.Index)
		}
	}

	b.materials[*idx] = m
	return m
}

// texture decodes a texture's image once. Failures are logged and leave
// the slot empty.
func (b *builder) texture(idx int) *scene.Texture {
	if idx < 0 || idx >= len(b.doc.Textures) {
		return nil
	}
	src := b.doc.Textures[idx].Source
	if src == nil || *src < 0 || *src >= len(b.doc.Images) {
		return nil
	}
	if t, ok := b.textures[*src]; ok {
		return t
	}

	img := b.doc.Images[*src]
	data, name, err := b.imageData(img)
	if err != nil {
		b.log.Warn("texture unavailable", zap.String("image", name), zap.Error(err))
		b.textures[*src] = nil
		return nil
	}
	pix, err := texture.Decode(data, name, b.dec.MaxTextureSize)
	if err != nil {
		b.log.Warn("texture decode failed", zap.String("image", name), zap.Error(err))
		b.textures[*src] = nil
		return nil
	}

	t := scene.NewTexture(name, pix)
	b.textures[*src] = t
	b.model.Textures = append(b.model.Textures, t)
	return t
}

func (b *builder) imageData(img *gltf.Image) ([]byte, string, error) {
	name := img.Name
	if img.BufferView != nil {
		if name == "" {
			name = "embedded" + mimeExt(img.MimeType)
		}
		idx := *img.BufferView
		if idx < 0 || idx >= len(b.doc.BufferViews) {
			return nil, name, fmt.Errorf("invalid buffer view %d", idx)
		}
		bv := b.doc.BufferViews[idx]
		if bv.Buffer < 0 || bv.Buffer >= len(b.doc.Buffers) {
			return nil, name, fmt.Errorf("invalid buffer %d", bv.Buffer)
		}
		data := b.doc.Buffers[bv.Buffer].Data
		end := bv.ByteOffset + bv.ByteLength
		if bv.ByteOffset < 0 || end > len(data) {
			return nil, name, fmt.Errorf("buffer view %d out of range", idx)
		}
		return data[bv.ByteOffset:end], name, nil
	}

	if img.IsEmbeddedResource() {
		if name == "" {
			name = "embedded" + mimeExt(img.MimeType)
		}
		data, err := img.MarshalData()
		return data, name, err
	}

	if name == "" {
		name = img.URI
	}
	if b.dec.Fetch == nil {
		return nil, name, fmt.Errorf("external image %q without fetcher", img.URI)
	}
	ref, err := ResolveURL(b.base, img.URI)
	if err != nil {
		return nil, name, err
	}
	data, err := b.dec.Fetch(b.ctx, ref)
	return data, img.URI, err
}

func mimeExt(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	return ""
}

// buildClip converts a glTF animation. Channels targeting unknown nodes or
// using non-float outputs are dropped.
func (b *builder) buildClip(i int, a *gltf.Animation) *animation.Clip {
	name := a.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", i)
	}

	var channels []animation.Channel
	for _, ch := range a.Channels {
		if ch.Target.Node == nil || *ch.Target.Node < 0 || *ch.Target.Node >= len(b.nodes) {
			continue
		}
		if ch.Sampler < 0 || ch.Sampler >= len(a.Samplers) {
			continue
		}
		s := a.Samplers[ch.Sampler]
		node := b.nodes[*ch.Target.Node]

		times, err := b.readFloats(s.Input)
		if err != nil || len(times) == 0 {
			b.log.Debug("skipping channel input", zap.String("clip", name), zap.Error(err))
			continue
		}
		values, err := b.readFloats(s.Output)
		if err != nil || len(values) == 0 {
			b.log.Debug("skipping channel output", zap.String("clip", name), zap.Error(err))
			continue
		}

		out := animation.Channel{Node: node, Times: times, Values: values}
		switch ch.Target.Path {
		case gltf.TRSTranslation:
			out.Path, out.Stride = animation.PathTranslation, 3
		case gltf.TRSRotation:
			out.Path, out.Stride = animation.PathRotation, 4
		case gltf.TRSScale:
			out.Path, out.Stride = animation.PathScale, 3
		case gltf.TRSWeights:
			out.Path = animation.PathWeights
			out.Stride = morphCount(node)
		default:
			continue
		}
		switch s.Interpolation {
		case gltf.InterpolationStep:
			out.Interpolation = animation.InterpolationStep
		case gltf.InterpolationCubicSpline:
			out.Interpolation = animation.InterpolationCubicSpline
		default:
			out.Interpolation = animation.InterpolationLinear
		}

		perKey := out.Stride
		if out.Interpolation == animation.InterpolationCubicSpline {
			perKey *= 3
		}
		if perKey == 0 || len(values) < perKey*len(times) {
			b.log.Debug("channel value count mismatch", zap.String("clip", name), zap.String("node", node.Name))
			continue
		}
		channels = append(channels, out)
	}

	if len(channels) == 0 {
		return nil
	}
	return animation.NewClip(name, channels)
}

func morphCount(n *scene.Node) int {
	for _, m := range n.Meshes {
		if len(m.Influences) > 0 {
			return len(m.Influences)
		}
	}
	return 0
}

// readFloats flattens a float accessor of any width.
func (b *builder) readFloats(idx int) ([]float32, error) {
	acr, err := b.accessor(idx)
	if err != nil {
		return nil, err
	}
	raw, err := modeler.ReadAccessor(b.doc, acr, nil)
	if err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case []float32:
		return v, nil
	case [][2]float32:
		out := make([]float32, 0, len(v)*2)
		for _, e := range v {
			out = append(out, e[:]...)
		}
		return out, nil
	case [][3]float32:
		out := make([]float32, 0, len(v)*3)
		for _, e := range v {
			out = append(out, e[:]...)
		}
		return out, nil
	case [][4]float32:
		out := make([]float32, 0, len(v)*4)
		for _, e := range v {
			out = append(out, e[:]...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported accessor type %T", raw)
}

// ResolveURL resolves ref against base. Absolute refs and data URIs are
// returned unchanged.
func ResolveURL(base, ref string) (string, error) {
	if strings.HasPrefix(ref, "data:") || base == "" {
		return ref, nil
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", ref, err)
	}
	if r.IsAbs() {
		return ref, nil
	}
	bu, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", base, err)
	}
	return bu.ResolveReference(r).String(), nil
}

// fetchFS exposes the fetcher to the glTF decoder for external buffers.
type fetchFS struct {
	ctx   context.Context
	base  string
	fetch FetchFunc
}

func (f *fetchFS) Open(name string) (fs.File, error) {
	if f.fetch == nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	ref, err := ResolveURL(f.base, name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	data, err := f.fetch(f.ctx, ref)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &memFile{name: name, Reader: bytes.NewReader(data), size: int64(len(data))}, nil
}

type memFile struct {
	*bytes.Reader
	name string
	size int64
}

func (m *memFile) Stat() (fs.FileInfo, error) { return m, nil }
func (m *memFile) Close() error               { return nil }
func (m *memFile) Name() string               { return m.name }
func (m *memFile) Size() int64                { return m.size }
func (m *memFile) Mode() fs.FileMode          { return 0444 }
func (m *memFile) ModTime() time.Time         { return time.Time{} }
func (m *memFile) IsDir() bool                { return false }
func (m *memFile) Sys() any                   { return nil }

var _ io.ReaderAt = (*memFile)(nil)
