package models

import (
	"time"

	"cogentcore.org/core/math32"
)

// ============================================================
// Geometry primitives
// ============================================================

type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func FromVector3(v math32.Vector3) Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

func (v Vec3) Vector3() math32.Vector3 {
	return math32.Vec3(v.X, v.Y, v.Z)
}

// Pose - положение камеры: позиция и эйлеровы углы XYZ в радианах.
type Pose struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`
}

// Quat возвращает ориентацию в виде кватерниона.
func (p Pose) Quat() math32.Quat {
	return math32.NewQuatEuler(p.Rotation.Vector3())
}

// RotationDegrees нужен только для логов.
func (p Pose) RotationDegrees() Vec3 {
	return FromVector3(p.Rotation.Vector3().MulScalar(math32.RadToDegFactor))
}

// ============================================================
// Building structures
// ============================================================

type Floor struct {
	Name    string `json:"name"`
	Number  int    `json:"number"`
	Folder  string `json:"folder"`
	Visible bool   `json:"visible"`
}

type HotspotInfo struct {
	Name         string `json:"name"`
	ID           int    `json:"id"`
	Floor        string `json:"floor"`
	PanoramaPath string `json:"panorama_path"`
	Synthetic    bool   `json:"synthetic"`
	Position     Vec3   `json:"position"`
}

type SavedView struct {
	ImagePath string    `json:"image_path"`
	Pose      Pose      `json:"pose"`
	SavedAt   time.Time `json:"saved_at"`
}

// ============================================================
// Diagnostics
// ============================================================

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

const (
	CodeMissingFloor     = "missing_floor"
	CodeUnexpectedFloor  = "unexpected_floor"
	CodeHotspotNoDigits  = "hotspot_no_digits"
	CodeDuplicateHotspot = "duplicate_hotspot"
	CodeFallbackHotspots = "fallback_hotspots"
	CodeOrphanHotspot    = "orphan_hotspot"
	CodeMissingPanorama  = "missing_panorama"
)

type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Node     string   `json:"node,omitempty"`
	Message  string   `json:"message"`
}

// ============================================================
// Session snapshot
// ============================================================

// OrbitControls - настройки орбитальных контролов, клиент применяет их к
// своей камере как есть.
type OrbitControls struct {
	EnableRotate    bool    `json:"enable_rotate"`
	EnableZoom      bool    `json:"enable_zoom"`
	EnablePan       bool    `json:"enable_pan"`
	EnableDamping   bool    `json:"enable_damping"`
	DampingFactor   float32 `json:"damping_factor"`
	MinDistance     float32 `json:"min_distance,omitempty"`
	MaxDistance     float32 `json:"max_distance,omitempty"`
	RotateSpeed     float32 `json:"rotate_speed,omitempty"`
	ZoomSpeed       float32 `json:"zoom_speed,omitempty"`
	AutoRotate      bool    `json:"auto_rotate"`
	AutoRotateSpeed float32 `json:"auto_rotate_speed,omitempty"`
	Target          Vec3    `json:"target"`
}

type PanoramaSnapshot struct {
	State       string `json:"state"`
	ImagePath   string `json:"image_path,omitempty"`
	Pose        Pose   `json:"pose"`
	AutoRotate  bool   `json:"auto_rotate"`
	RotateLabel string `json:"rotate_label"`
	Spheres     int    `json:"spheres"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`

	Controls OrbitControls `json:"controls"`
}

type CameraSnapshot struct {
	Pose            Pose    `json:"pose"`
	FOV             float32 `json:"fov"`
	ControlsEnabled bool    `json:"controls_enabled"`

	Controls OrbitControls `json:"controls"`
}

type SessionSnapshot struct {
	ID           string           `json:"id"`
	CurrentFloor string           `json:"current_floor"`
	Floors       []Floor          `json:"floors"`
	Hotspots     []HotspotInfo    `json:"hotspots"`
	Camera       CameraSnapshot   `json:"camera"`
	Panorama     PanoramaSnapshot `json:"panorama"`
	ActiveLoop   string           `json:"active_loop"`
	CreatedAt    time.Time        `json:"created_at"`
}
