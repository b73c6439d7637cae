package tf

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a rigid-body pose: a translation plus a unit rotation
// quaternion. It supports identity, composition, inverse, NaN inspection,
// linear interpolation of the translation and spherical interpolation of
// the rotation, and nothing else — the graph traversal and chain
// composition in BufferCore never reach past this surface.
type Transform struct {
	Translation r3.Vec
	Rotation    quat.Number
}

// Identity returns the identity transform: zero translation, unit rotation.
func Identity() Transform {
	return Transform{
		Translation: r3.Vec{},
		Rotation:    quat.Number{Real: 1},
	}
}

// IsFinite reports whether every one of the 7 scalars is neither NaN nor
// infinite. SetTransform rejects any input that fails this check.
func (t Transform) IsFinite() bool {
	vals := [...]float64{
		t.Translation.X, t.Translation.Y, t.Translation.Z,
		t.Rotation.Imag, t.Rotation.Jmag, t.Rotation.Kmag, t.Rotation.Real,
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// rotate applies t's rotation to v by sandwiching it as a pure quaternion:
// v' = q * (0,v) * q^-1. Rotation is always assumed to carry a unit
// quaternion, so q^-1 == Conj(q).
func rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Compose returns a*b: apply b first, then a. Translations and rotations
// chain parent-first, the order a transform graph walk accumulates them in.
func Compose(a, b Transform) Transform {
	return Transform{
		Translation: r3.Add(a.Translation, rotate(a.Rotation, b.Translation)),
		Rotation:    quat.Mul(a.Rotation, b.Rotation),
	}
}

// Inverse returns the rigid-transform inverse of t.
func (t Transform) Inverse() Transform {
	qInv := quat.Conj(t.Rotation)
	return Transform{
		Translation: rotate(qInv, r3.Scale(-1, t.Translation)),
		Rotation:    qInv,
	}
}

// Lerp linearly interpolates the translation component between a and b;
// frac must be in [0,1]. Rotation is ignored — callers interpolate rotation
// separately via Slerp.
func Lerp(a, b r3.Vec, frac float64) r3.Vec {
	return r3.Add(a, r3.Scale(frac, r3.Sub(b, a)))
}

// Slerp spherically interpolates between two unit quaternions along the
// shortest arc, flipping the sign of b when the dot product is negative so
// interpolation never takes the long way around.
func Slerp(a, b quat.Number, frac float64) quat.Number {
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	if dot < 0 {
		b = quat.Scale(-1, b)
		dot = -dot
	}

	const epsilon = 1e-9
	if dot > 1-epsilon {
		// Nearly identical orientations: fall back to a normalized lerp to
		// avoid dividing by a near-zero sine below.
		return normalizeQuat(quat.Add(a, quat.Scale(frac, quat.Sub(b, a))))
	}

	theta0 := math.Acos(dot)
	theta := theta0 * frac
	sinTheta0 := math.Sin(theta0)
	sinTheta := math.Sin(theta)

	s0 := math.Cos(theta) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return quat.Add(quat.Scale(s0, a), quat.Scale(s1, b))
}

func normalizeQuat(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}
