package sim

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is a rigid transform: a rotation followed by a translation.
// Rotation is a unit quaternion; the zero Pose is not valid, use
// IdentityPose.
type Pose struct {
	Position r3.Vec
	Rotation quat.Number
}

// IdentityPose returns the transform that leaves points unchanged.
func IdentityPose() Pose {
	return Pose{Rotation: quat.Number{Real: 1}}
}

// PoseXYYaw builds a planar pose at (x, y) rotated yaw radians about +Z.
func PoseXYYaw(x, y, yaw float64) Pose {
	return Pose{
		Position: r3.Vec{X: x, Y: y},
		Rotation: YawRotation(yaw),
	}
}

// YawRotation returns the unit quaternion for a rotation of yaw radians
// about the +Z axis.
func YawRotation(yaw float64) quat.Number {
	s, c := math.Sincos(yaw / 2)
	return quat.Number{Real: c, Kmag: s}
}

// Normalized returns p with a unit rotation. A degenerate rotation is
// replaced by the identity.
func (p Pose) Normalized() Pose {
	n := quat.Abs(p.Rotation)
	if n == 0 || math.IsNaN(n) {
		p.Rotation = quat.Number{Real: 1}
		return p
	}
	p.Rotation = quat.Scale(1/n, p.Rotation)
	return p
}

// Rotate applies only the rotation of p to v.
func (p Pose) Rotate(v r3.Vec) r3.Vec {
	q := p.Rotation
	r := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Apply transforms the point v from p's local frame into the parent frame.
func (p Pose) Apply(v r3.Vec) r3.Vec {
	return r3.Add(p.Rotate(v), p.Position)
}

// Compose returns p ∘ local: the world pose of a frame whose pose relative
// to p is local. This is how a sensor's mounting offset becomes a world pose.
func (p Pose) Compose(local Pose) Pose {
	return Pose{
		Position: p.Apply(local.Position),
		Rotation: quat.Mul(p.Rotation, local.Rotation),
	}.Normalized()
}

// Yaw returns the heading of p about +Z in radians.
func (p Pose) Yaw() float64 {
	q := p.Rotation
	return math.Atan2(2*(q.Real*q.Kmag+q.Imag*q.Jmag), 1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag))
}
