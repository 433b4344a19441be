package picker

import (
	"errors"
	"log"

	"building-viewer/internal/viewer/indexer"
	"building-viewer/internal/viewer/scene"
)

// ============================================================
// Hotspot Picker
// ============================================================

var ErrNoHotspot = errors.New("no hotspot under pointer")

type Picker struct {
	index *indexer.Index
}

func New(index *indexer.Index) *Picker {
	return &Picker{index: index}
}

// ToNDC переводит координаты клика в пикселях окна в NDC.
func ToNDC(px, py, width, height float32) (float32, float32) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	return (px/width)*2 - 1, -(py/height)*2 + 1
}

// PickViewport - Pick по пиксельным координатам.
func (p *Picker) PickViewport(px, py, width, height float32, cam *scene.Camera) (*indexer.Hotspot, error) {
	x, y := ToNDC(px, py, width, height)
	return p.Pick(x, y, cam)
}

// Pick ищет ближайший чекпоинт под точкой экрана (NDC). Если луч попал в
// дочерний узел (например, подпись), поднимаемся к предку с маркером.
func (p *Picker) Pick(x, y float32, cam *scene.Camera) (*indexer.Hotspot, error) {
	candidates := p.index.HotspotNodes()
	if len(candidates) == 0 {
		log.Printf("[PICKER] No hotspots found for click detection")
		return nil, ErrNoHotspot
	}

	hits := scene.Raycast(cam.RayFromNDC(x, y), candidates, true)
	if len(hits) == 0 {
		log.Printf("[PICKER] No intersection with any hotspot")
		return nil, ErrNoHotspot
	}

	node := hits[0].Node
	if !p.index.Schema.IsHotspot(node.Name) {
		node = node.Ancestor(func(n *scene.Node) bool { return p.index.Schema.IsHotspot(n.Name) })
		if node == nil {
			log.Printf("[PICKER] Hit %s has no hotspot ancestor", hits[0].Node.Name)
			return nil, ErrNoHotspot
		}
	}

	h, ok := p.index.Hotspot(node.Name)
	if !ok {
		log.Printf("[PICKER] Clicked object is not in hotspot table: %s", node.Name)
		return nil, ErrNoHotspot
	}

	log.Printf("[PICKER] Hotspot %s clicked, panorama %s", h.Name, h.PanoramaPath)
	return h, nil
}
