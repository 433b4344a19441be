package indexer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ============================================================
// Asset Schema
// ============================================================

// Schema - контракт именования узлов в GLB.
//
// Обязательные узлы: группы этажей с именами из Floors (точное совпадение).
// Чекпоинты: любые узлы, в имени которых есть Marker; номер панорамы берётся
// из первой группы цифр в имени.
type Schema struct {
	Floors         []string
	PrimaryFloor   string
	Marker         string
	FloorPrefix    string
	PanoramaDir    string
	FallbackCount  int
	FallbackRadius float32
}

func DefaultSchema() Schema {
	return Schema{
		Floors:         []string{"Floor_01", "Floor_02", "Floor_03"},
		PrimaryFloor:   "Floor_01",
		Marker:         "checkpoint",
		FloorPrefix:    "Floor_",
		PanoramaDir:    "panorama",
		FallbackCount:  3,
		FallbackRadius: 0.3,
	}
}

// Required перечисляет имена узлов, которые обязаны быть в ассете.
func (s Schema) Required() []string {
	out := make([]string, len(s.Floors))
	copy(out, s.Floors)
	return out
}

func (s Schema) IsFloor(name string) bool {
	for _, f := range s.Floors {
		if f == name {
			return true
		}
	}
	return false
}

func (s Schema) IsHotspot(name string) bool {
	return s.Marker != "" && strings.Contains(name, s.Marker)
}

// FloorNumber: Floor_01 → 1. Для имён не из схемы возвращает 0.
func (s Schema) FloorNumber(name string) int {
	for i, f := range s.Floors {
		if f == name {
			return i + 1
		}
	}
	return 0
}

// FloorFolder: Floor_01 → floor1, Floor_12 → floor12.
func (s Schema) FloorFolder(name string) string {
	if id, ok := ExtractID(strings.TrimPrefix(name, s.FloorPrefix)); ok {
		return fmt.Sprintf("floor%d", id)
	}
	return strings.ToLower(name)
}

// PanoramaPath строит путь картинки для чекпоинта этажа.
func (s Schema) PanoramaPath(floor string, id int) string {
	return fmt.Sprintf("%s/%s/Panorama%d.png", s.PanoramaDir, s.FloorFolder(floor), id)
}

var digitsRe = regexp.MustCompile(`\d+`)

// ExtractID возвращает первую группу цифр в имени. Если цифр нет или число
// не помещается в int, возвращает 1 и false.
func ExtractID(name string) (int, bool) {
	m := digitsRe.FindString(name)
	if m == "" {
		return 1, false
	}
	id, err := strconv.Atoi(m)
	if err != nil {
		return 1, false
	}
	return id, true
}
