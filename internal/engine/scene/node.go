package scene

import "github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"

// Mesh is one drawable primitive: geometry, material and morph state.
type Mesh struct {
	Name     string
	Geometry *Geometry
	Material *Material

	// MorphDict maps morph target names to influence indices.
	MorphDict map[string]int
	// Influences holds one weight per morph target.
	Influences []float32

	RenderOrder int
	// Skinned meshes are drawn in the model root's space, ignoring their
	// own node transform.
	Skinned bool
}

// HasMorphs reports whether the mesh carries a morph dictionary.
func (m *Mesh) HasMorphs() bool {
	return m != nil && len(m.MorphDict) > 0
}

// ResetInfluences zeroes every morph weight.
func (m *Mesh) ResetInfluences() {
	for i := range m.Influences {
		m.Influences[i] = 0
	}
}

// Node is a transform in the scene graph carrying zero or more meshes.
type Node struct {
	Name        string
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3
	Visible     bool

	Meshes   []*Mesh
	Children []*Node
	Parent   *Node

	world math.Mat4
}

// NewNode returns a visible node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: math.QuatIdentity(),
		Scale:    math.Vec3{X: 1, Y: 1, Z: 1},
		Visible:  true,
		world:    math.Identity(),
	}
}

// Add attaches child, detaching it from any previous parent.
func (n *Node) Add(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.Parent != nil {
		child.Parent.Remove(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Remove detaches child if it is a direct child of n.
func (n *Node) Remove(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

// Local returns the node's TRS matrix.
func (n *Node) Local() math.Mat4 {
	return math.Compose(n.Translation, n.Rotation, n.Scale)
}

// World returns the world matrix computed by the last UpdateWorld.
func (n *Node) World() math.Mat4 {
	return n.world
}

// UpdateWorld recomputes world matrices for n and its descendants.
func (n *Node) UpdateWorld(parent math.Mat4) {
	n.world = parent.Mul(n.Local())
	for _, c := range n.Children {
		c.UpdateWorld(n.world)
	}
}

// UpdateWorldFromRoot recomputes world matrices using the ancestors' transforms.
func (n *Node) UpdateWorldFromRoot() {
	parent := math.Identity()
	var chain []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		parent = parent.Mul(chain[i].Local())
	}
	n.UpdateWorld(parent)
}

// Traverse visits n and all descendants depth-first in child order.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

// EachMesh visits every mesh under n in traversal order.
func (n *Node) EachMesh(fn func(*Node, *Mesh)) {
	n.Traverse(func(node *Node) {
		for _, m := range node.Meshes {
			fn(node, m)
		}
	})
}

// Find returns the first node named name, or nil.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Traverse(func(node *Node) {
		if found == nil && node.Name == name {
			found = node
		}
	})
	return found
}

// Bounds returns the world-space box of all geometry under n. World
// matrices are refreshed first.
func (n *Node) Bounds() math.Box3 {
	n.UpdateWorldFromRoot()
	var box math.Box3
	n.EachMesh(func(node *Node, m *Mesh) {
		if m.Geometry == nil || m.Geometry.Bounds.IsEmpty() {
			return
		}
		b := m.Geometry.Bounds
		w := node.World()
		for i := 0; i < 8; i++ {
			corner := math.Vec3{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z}
			if i&1 != 0 {
				corner.X = b.Max.X
			}
			if i&2 != 0 {
				corner.Y = b.Max.Y
			}
			if i&4 != 0 {
				corner.Z = b.Max.Z
			}
			box.ExpandByPoint(w.TransformVec3(corner))
		}
	})
	return box
}

// Dispose releases every geometry, material texture and morph state under
// n. Calling it more than once is a no-op.
func (n *Node) Dispose() {
	if n == nil {
		return
	}
	n.EachMesh(func(_ *Node, m *Mesh) {
		m.Geometry.Dispose()
		m.Material.Dispose()
	})
}
