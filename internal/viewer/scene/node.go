package scene

import (
	"cogentcore.org/core/math32"
)

// ============================================================
// Scene Graph
// ============================================================

type Kind string

const (
	KindGroup  Kind = "group"
	KindMesh   Kind = "mesh"
	KindLabel  Kind = "label"
	KindSphere Kind = "sphere"
)

// Node - узел дерева сцены. Дерево принадлежит сессии, все ссылки на узлы
// из индексов невладеющие.
type Node struct {
	Name     string
	Kind     Kind
	Visible  bool
	Parent   *Node
	Children []*Node

	Position math32.Vector3
	Rotation math32.Quat
	Scale    math32.Vector3
	// Matrix задаёт локальную трансформацию целиком, если не nil (glTF matrix).
	Matrix *math32.Matrix4

	// Bounds - локальная геометрия узла; пустой бокс у групп.
	Bounds math32.Box3

	Material         *Material
	OriginalMaterial *Material
	Text             string
}

func NewNode(name string, kind Kind) *Node {
	return &Node{
		Name:     name,
		Kind:     kind,
		Visible:  true,
		Rotation: math32.NewQuat(0, 0, 0, 1),
		Scale:    math32.Vec3(1, 1, 1),
		Bounds:   math32.B3Empty(),
	}
}

// NewGroup создаёт корень или промежуточный узел без геометрии.
func NewGroup(name string) *Node {
	return NewNode(name, KindGroup)
}

// NewBox создаёт меш с боксом заданного размера вокруг локального центра.
func NewBox(name string, size math32.Vector3) *Node {
	n := NewNode(name, KindMesh)
	half := size.MulScalar(0.5)
	n.Bounds = math32.Box3{Min: half.MulScalar(-1), Max: half}
	return n
}

// NewSphere создаёт сферу; для пикинга достаточно описанного бокса.
func NewSphere(name string, radius float32) *Node {
	n := NewNode(name, KindSphere)
	n.Bounds = math32.B3(-radius, -radius, -radius, radius, radius, radius)
	return n
}

func (n *Node) HasGeometry() bool {
	return !n.Bounds.IsEmpty()
}

func (n *Node) Add(child *Node) {
	if child.Parent != nil {
		child.Parent.Remove(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

func (n *Node) Remove(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return true
		}
	}
	return false
}

// Clear отсоединяет всех детей.
func (n *Node) Clear() {
	for _, c := range n.Children {
		c.Parent = nil
	}
	n.Children = nil
}

// Traverse обходит поддерево в прямом порядке. Если fn вернёт false,
// потомки узла пропускаются.
func (n *Node) Traverse(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

func (n *Node) Find(name string) *Node {
	var found *Node
	n.Traverse(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Name == name {
			found = c
			return false
		}
		return true
	})
	return found
}

// Ancestor ищет ближайшего предка (начиная с родителя), удовлетворяющего pred.
func (n *Node) Ancestor(pred func(*Node) bool) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if pred(p) {
			return p
		}
	}
	return nil
}

// EffectiveVisible учитывает видимость всех предков, как при рендере.
func (n *Node) EffectiveVisible() bool {
	for c := n; c != nil; c = c.Parent {
		if !c.Visible {
			return false
		}
	}
	return true
}

func (n *Node) LocalMatrix() math32.Matrix4 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	var m math32.Matrix4
	m.SetTransform(n.Position, n.Rotation, n.Scale)
	return m
}

func (n *Node) WorldMatrix() math32.Matrix4 {
	local := n.LocalMatrix()
	if n.Parent == nil {
		return local
	}
	parent := n.Parent.WorldMatrix()
	var world math32.Matrix4
	world.MulMatrices(&parent, &local)
	return world
}

// WorldPosition - начало локальных координат узла в мировых.
func (n *Node) WorldPosition() math32.Vector3 {
	m := n.WorldMatrix()
	return math32.Vec3(m[12], m[13], m[14])
}

// WorldBounds - собственный бокс узла в мировых координатах.
func (n *Node) WorldBounds() math32.Box3 {
	if !n.HasGeometry() {
		return math32.B3Empty()
	}
	m := n.WorldMatrix()
	return n.Bounds.MulMatrix4(&m)
}

// SubtreeBounds объединяет мировые боксы всего поддерева (Box3.setFromObject).
func (n *Node) SubtreeBounds() math32.Box3 {
	box := math32.B3Empty()
	n.Traverse(func(c *Node) bool {
		if c.HasGeometry() {
			box.ExpandByBox(c.WorldBounds())
		}
		return true
	})
	return box
}

// Clone делает глубокую копию поддерева без родителя.
func (n *Node) Clone() *Node {
	cp := *n
	cp.Parent = nil
	cp.Children = nil
	if n.Matrix != nil {
		m := *n.Matrix
		cp.Matrix = &m
	}
	cp.Material = n.Material.Clone()
	cp.OriginalMaterial = n.OriginalMaterial.Clone()
	for _, c := range n.Children {
		cp.Add(c.Clone())
	}
	return &cp
}

// Count возвращает число узлов в поддереве, удовлетворяющих pred.
func (n *Node) Count(pred func(*Node) bool) int {
	total := 0
	n.Traverse(func(c *Node) bool {
		if pred(c) {
			total++
		}
		return true
	})
	return total
}
