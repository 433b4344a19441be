package indexer

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"cogentcore.org/core/math32"

	"building-viewer/internal/viewer/models"
	"building-viewer/internal/viewer/scene"
)

// ============================================================
// Index
// ============================================================

type Hotspot struct {
	Name         string
	ID           int
	Floor        string
	PanoramaPath string
	Node         *scene.Node
	Synthetic    bool
}

func (h *Hotspot) Info() models.HotspotInfo {
	return models.HotspotInfo{
		Name:         h.Name,
		ID:           h.ID,
		Floor:        h.Floor,
		PanoramaPath: h.PanoramaPath,
		Synthetic:    h.Synthetic,
		Position:     models.FromVector3(h.Node.WorldPosition()),
	}
}

type Index struct {
	Schema      Schema
	Floors      map[string]*scene.Node
	Hotspots    map[string]*Hotspot
	Diagnostics []models.Diagnostic
}

// Hotspot ищет чекпоинт по имени узла.
func (ix *Index) Hotspot(name string) (*Hotspot, bool) {
	h, ok := ix.Hotspots[name]
	return h, ok
}

// HotspotNodes - кандидаты для пикинга, в стабильном порядке.
func (ix *Index) HotspotNodes() []*scene.Node {
	names := ix.hotspotNames()
	out := make([]*scene.Node, 0, len(names))
	for _, name := range names {
		out = append(out, ix.Hotspots[name].Node)
	}
	return out
}

func (ix *Index) HotspotList() []models.HotspotInfo {
	names := ix.hotspotNames()
	out := make([]models.HotspotInfo, 0, len(names))
	for _, name := range names {
		out = append(out, ix.Hotspots[name].Info())
	}
	return out
}

// HasErrors сообщает, есть ли в отчёте ошибки схемы.
func (ix *Index) HasErrors() bool {
	for _, d := range ix.Diagnostics {
		if d.Severity == models.SeverityError {
			return true
		}
	}
	return false
}

func (ix *Index) hotspotNames() []string {
	names := make([]string, 0, len(ix.Hotspots))
	for name := range ix.Hotspots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ix *Index) report(sev models.Severity, code, node, format string, args ...any) {
	d := models.Diagnostic{Severity: sev, Code: code, Node: node, Message: fmt.Sprintf(format, args...)}
	ix.Diagnostics = append(ix.Diagnostics, d)
	log.Printf("[INDEXER] %s %s: %s", sev, code, d.Message)
}

// ============================================================
// Indexer
// ============================================================

// Build обходит дерево один раз, раскладывает узлы на этажи и чекпоинты,
// подсвечивает чекпоинты и вешает на них подписи. Дерево изменяется.
func Build(root *scene.Node, schema Schema) *Index {
	ix := &Index{
		Schema:   schema,
		Floors:   make(map[string]*scene.Node),
		Hotspots: make(map[string]*Hotspot),
	}

	var candidates []*scene.Node
	root.Traverse(func(n *scene.Node) bool {
		switch {
		case schema.IsFloor(n.Name):
			if _, dup := ix.Floors[n.Name]; dup {
				ix.report(models.SeverityWarning, models.CodeUnexpectedFloor, n.Name, "floor %s appears more than once, using the last one", n.Name)
			}
			ix.Floors[n.Name] = n
			log.Printf("[INDEXER] Found floor group %s", n.Name)
		case schema.FloorPrefix != "" && strings.HasPrefix(n.Name, schema.FloorPrefix):
			ix.report(models.SeverityWarning, models.CodeUnexpectedFloor, n.Name, "node %s looks like a floor but is not in the schema", n.Name)
		}
		if schema.IsHotspot(n.Name) {
			candidates = append(candidates, n)
		}
		return true
	})

	for _, n := range candidates {
		ix.addHotspot(n, false)
	}

	for _, name := range schema.Floors {
		if _, ok := ix.Floors[name]; !ok {
			ix.report(models.SeverityError, models.CodeMissingFloor, name, "required floor group %s not found", name)
		}
	}

	if primary, ok := ix.Floors[schema.PrimaryFloor]; ok && ix.countUnder(primary) == 0 {
		ix.synthesizeFallback(primary)
	}

	for _, name := range ix.hotspotNames() {
		h := ix.Hotspots[name]
		highlight(h.Node)
		attachLabel(h)
	}

	log.Printf("[INDEXER] Indexed %d floors, %d hotspots, %d diagnostics", len(ix.Floors), len(ix.Hotspots), len(ix.Diagnostics))
	return ix
}

func (ix *Index) addHotspot(n *scene.Node, synthetic bool) {
	schema := ix.Schema

	floor := schema.PrimaryFloor
	if owner := n.Ancestor(func(p *scene.Node) bool { return schema.IsFloor(p.Name) }); owner != nil {
		floor = owner.Name
	} else if !synthetic {
		ix.report(models.SeverityInfo, models.CodeOrphanHotspot, n.Name, "hotspot %s is outside any floor, assigned to %s", n.Name, floor)
	}

	id, ok := ExtractID(n.Name)
	if !ok {
		ix.report(models.SeverityWarning, models.CodeHotspotNoDigits, n.Name, "hotspot %s has no number, defaulting to %d", n.Name, id)
	}

	if _, dup := ix.Hotspots[n.Name]; dup {
		ix.report(models.SeverityWarning, models.CodeDuplicateHotspot, n.Name, "hotspot %s appears more than once, the last one wins", n.Name)
	}

	h := &Hotspot{
		Name:         n.Name,
		ID:           id,
		Floor:        floor,
		PanoramaPath: schema.PanoramaPath(floor, id),
		Node:         n,
		Synthetic:    synthetic,
	}
	ix.Hotspots[n.Name] = h
	log.Printf("[INDEXER] Found %s on %s, linked to %s", n.Name, floor, h.PanoramaPath)
}

// countUnder считает чекпоинты, реально лежащие в поддереве этажа.
func (ix *Index) countUnder(floor *scene.Node) int {
	total := 0
	for _, h := range ix.Hotspots {
		if h.Node.Ancestor(func(p *scene.Node) bool { return p == floor }) != nil {
			total++
		}
	}
	return total
}

// synthesizeFallback создаёт запасные сферы-чекпоинты, чтобы переход
// к панорамам работал и на ассете без чекпоинтов.
func (ix *Index) synthesizeFallback(floor *scene.Node) {
	schema := ix.Schema
	ix.report(models.SeverityInfo, models.CodeFallbackHotspots, floor.Name,
		"no hotspots on %s, creating %d fallback hotspots", floor.Name, schema.FallbackCount)

	for i := 1; i <= schema.FallbackCount; i++ {
		name := schema.Marker + strconv.Itoa(i)
		z := float32(-1)
		if i%2 == 0 {
			z = 1
		}
		sphere := scene.NewSphere(name, schema.FallbackRadius)
		sphere.Position = math32.Vec3(float32((i-3)*2), 1.5, z)
		floor.Add(sphere)
		ix.addHotspot(sphere, true)
	}
}

func highlight(n *scene.Node) {
	if n.Material != nil && n.OriginalMaterial == nil {
		n.OriginalMaterial = n.Material.Clone()
	}
	n.Material = scene.HighlightMaterial()
}

// attachLabel вешает над чекпоинтом плашку с номером. Имя подписи не содержит
// маркер, поэтому пикер поднимается от неё к родителю.
func attachLabel(h *Hotspot) {
	name := fmt.Sprintf("label_%d", h.ID)
	for _, c := range h.Node.Children {
		if c.Kind == scene.KindLabel && c.Name == name {
			return
		}
	}

	label := scene.NewBox(name, math32.Vec3(0.6, 0.2, 0.02))
	label.Kind = scene.KindLabel
	label.Text = strconv.Itoa(h.ID)

	top := float32(0.5)
	if h.Node.HasGeometry() {
		top = h.Node.Bounds.Max.Y + 0.3
	}
	label.Position = math32.Vec3(0, top, 0)
	h.Node.Add(label)
}
