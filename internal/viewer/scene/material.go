package scene

// ============================================================
// Materials
// ============================================================

type Material struct {
	Color       uint32  `json:"color"`
	Opacity     float32 `json:"opacity"`
	Transparent bool    `json:"transparent"`
	Texture     string  `json:"texture,omitempty"`
}

// HighlightMaterial - полупрозрачный красный для чекпоинтов.
func HighlightMaterial() *Material {
	return &Material{
		Color:       0xff0000,
		Opacity:     0.7,
		Transparent: true,
	}
}

// TextureMaterial - материал сферы панорамы.
func TextureMaterial(texture string) *Material {
	return &Material{
		Color:   0xffffff,
		Opacity: 1,
		Texture: texture,
	}
}

func (m *Material) Clone() *Material {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}
