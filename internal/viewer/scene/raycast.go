package scene

import (
	"sort"

	"cogentcore.org/core/math32"
)

// ============================================================
// Raycasting
// ============================================================

type Intersection struct {
	Node     *Node
	Point    math32.Vector3
	Distance float32
}

// Raycast пересекает луч с видимыми узлами-кандидатами (и их потомками при
// recursive) по мировым боксам. Результат отсортирован от ближнего к дальнему.
func Raycast(ray math32.Ray, candidates []*Node, recursive bool) []Intersection {
	var hits []Intersection
	seen := make(map[*Node]bool)

	test := func(n *Node) {
		if seen[n] || !n.HasGeometry() || !n.EffectiveVisible() {
			return
		}
		seen[n] = true
		pt, ok := ray.IntersectBox(n.WorldBounds())
		if !ok {
			return
		}
		hits = append(hits, Intersection{Node: n, Point: pt, Distance: pt.DistanceTo(ray.Origin)})
	}

	for _, c := range candidates {
		if c == nil {
			continue
		}
		if !recursive {
			test(c)
			continue
		}
		c.Traverse(func(n *Node) bool {
			test(n)
			return true
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits
}
