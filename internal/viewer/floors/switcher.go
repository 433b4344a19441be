package floors

import (
	"errors"
	"fmt"
	"log"

	"building-viewer/internal/viewer/models"
	"building-viewer/internal/viewer/scene"
)

// ============================================================
// Floor Switcher
// ============================================================

var ErrUnknownFloor = errors.New("unknown floor")

// Switcher держит инвариант «видим ровно один этаж».
type Switcher struct {
	order   []string
	folders map[string]string
	nodes   map[string]*scene.Node
	current string
}

// New принимает упорядоченный список этажей схемы и найденные узлы.
// Начальное состояние - первый этаж списка.
func New(order []string, nodes map[string]*scene.Node, folder func(string) string) *Switcher {
	s := &Switcher{
		order:   order,
		folders: make(map[string]string, len(order)),
		nodes:   nodes,
	}
	for _, name := range order {
		s.folders[name] = folder(name)
	}
	if len(order) > 0 {
		if err := s.Select(order[0]); err != nil {
			log.Printf("[FLOORS] Initial floor %s not loaded", order[0])
		}
	}
	return s
}

// Select делает видимым этаж name и скрывает остальные известные этажи.
// Неизвестный этаж ничего не меняет.
func (s *Switcher) Select(name string) error {
	target, ok := s.nodes[name]
	if !ok || target == nil {
		log.Printf("[FLOORS] Floor not found: %s", name)
		return fmt.Errorf("%w: %s", ErrUnknownFloor, name)
	}
	for _, n := range s.nodes {
		if n != nil {
			n.Visible = false
		}
	}
	target.Visible = true
	s.current = name
	log.Printf("[FLOORS] Showing floor: %s", name)
	return nil
}

// SelectNumber: 1 → первый этаж схемы и т.д.
func (s *Switcher) SelectNumber(number int) error {
	if number < 1 || number > len(s.order) {
		log.Printf("[FLOORS] Floor number out of range: %d", number)
		return fmt.Errorf("%w: #%d", ErrUnknownFloor, number)
	}
	return s.Select(s.order[number-1])
}

func (s *Switcher) Current() string {
	return s.current
}

// Floors - снимок этажей схемы в порядке схемы; отсутствующие в ассете
// помечены невидимыми.
func (s *Switcher) Floors() []models.Floor {
	out := make([]models.Floor, 0, len(s.order))
	for i, name := range s.order {
		f := models.Floor{Name: name, Number: i + 1, Folder: s.folders[name]}
		if n, ok := s.nodes[name]; ok && n != nil {
			f.Visible = n.Visible
		}
		out = append(out, f)
	}
	return out
}

// VisibleCount нужен для проверки инварианта.
func (s *Switcher) VisibleCount() int {
	total := 0
	for _, n := range s.nodes {
		if n != nil && n.Visible {
			total++
		}
	}
	return total
}
