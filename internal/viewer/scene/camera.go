package scene

import (
	"cogentcore.org/core/math32"

	"building-viewer/internal/viewer/models"
)

// ============================================================
// Perspective Camera
// ============================================================

type Camera struct {
	FOV    float32 // градусы, по вертикали
	Aspect float32
	Near   float32
	Far    float32
	Pose   models.Pose
}

func NewPerspectiveCamera(fov, aspect, near, far float32) *Camera {
	if aspect <= 0 {
		aspect = 1
	}
	return &Camera{FOV: fov, Aspect: aspect, Near: near, Far: far}
}

func (c *Camera) Position() math32.Vector3 {
	return c.Pose.Position.Vector3()
}

// RayFromNDC строит луч пикинга через точку экрана в NDC (-1..1).
func (c *Camera) RayFromNDC(x, y float32) math32.Ray {
	tanHalf := math32.Tan(math32.DegToRad(c.FOV * 0.5))
	dir := math32.Vec3(x*tanHalf*c.Aspect, y*tanHalf, -1).MulQuat(c.Pose.Quat()).Normal()
	return math32.Ray{Origin: c.Position(), Dir: dir}
}

// Forward - направление взгляда в мировых координатах.
func (c *Camera) Forward() math32.Vector3 {
	return math32.Vec3(0, 0, -1).MulQuat(c.Pose.Quat()).Normal()
}

// LookAt поворачивает камеру на цель, ось Y вверх.
func (c *Camera) LookAt(target math32.Vector3) {
	var q math32.Quat
	q.SetFromRotationMatrix(math32.NewLookAt(c.Position(), target, math32.Vec3(0, 1, 0)))
	c.Pose.Rotation = models.FromVector3(q.ToEuler())
}

// Frame ставит камеру так, чтобы бокс целиком попадал в кадр, и возвращает
// центр бокса как цель для контролов.
func (c *Camera) Frame(box math32.Box3) math32.Vector3 {
	if box.IsEmpty() {
		return math32.Vector3{}
	}
	center := box.Center()
	size := box.Size()
	maxDim := math32.Max(size.X, math32.Max(size.Y, size.Z))
	distance := maxDim / (2 * math32.Tan(math32.DegToRad(c.FOV)/2))

	c.Pose.Position = models.Vec3{X: center.X, Y: center.Y + distance*0.5, Z: center.Z + distance}
	c.LookAt(center)
	return center
}
