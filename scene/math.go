package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// WorldUp is the world up axis.
var WorldUp = mgl32.Vec3{0, 1, 0}

// Translation returns the row-vector translation matrix for v.
func Translation(v mgl32.Vec3) mgl32.Mat4 {
	m := mgl32.Ident4()
	m.Set(3, 0, v[0])
	m.Set(3, 1, v[1])
	m.Set(3, 2, v[2])
	return m
}

// Scaling returns the scale matrix for s.
func Scaling(s mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Scale3D(s[0], s[1], s[2])
}

// rotationColumn is the column-vector form of the roll, then pitch, then
// yaw rotation. Its transpose is the row-vector form.
func rotationColumn(pitchYawRoll mgl32.Vec3) mgl32.Mat4 {
	return mgl32.HomogRotate3DY(pitchYawRoll[1]).
		Mul4(mgl32.HomogRotate3DX(pitchYawRoll[0])).
		Mul4(mgl32.HomogRotate3DZ(pitchYawRoll[2]))
}

// Rotation returns the row-vector rotation matrix that applies roll about
// Z, then pitch about X, then yaw about Y.
func Rotation(pitchYawRoll mgl32.Vec3) mgl32.Mat4 {
	return rotationColumn(pitchYawRoll).Transpose()
}

// RotateVector rotates v by the pitch/yaw/roll rotation.
func RotateVector(v, pitchYawRoll mgl32.Vec3) mgl32.Vec3 {
	return rotationColumn(pitchYawRoll).Mul4x1(v.Vec4(0)).Vec3()
}

// TransformPoint returns p*m.
func TransformPoint(p mgl32.Vec3, m mgl32.Mat4) mgl32.Vec3 {
	r := m.Transpose().Mul4x1(p.Vec4(1))
	if r[3] != 0 && r[3] != 1 {
		return r.Vec3().Mul(1 / r[3])
	}
	return r.Vec3()
}

// LookToLH returns a left-handed view matrix at eye looking along dir.
func LookToLH(eye, dir, up mgl32.Vec3) mgl32.Mat4 {
	z := dir.Normalize()
	x := up.Cross(z).Normalize()
	y := z.Cross(x)
	return mgl32.Mat4FromRows(
		mgl32.Vec4{x[0], y[0], z[0], 0},
		mgl32.Vec4{x[1], y[1], z[1], 0},
		mgl32.Vec4{x[2], y[2], z[2], 0},
		mgl32.Vec4{-x.Dot(eye), -y.Dot(eye), -z.Dot(eye), 1},
	)
}

// PerspectiveFovLH returns a left-handed perspective projection with depth
// mapped to [0, 1].
func PerspectiveFovLH(fovY, aspect, near, far float32) mgl32.Mat4 {
	h := float32(1 / math.Tan(float64(fovY)/2))
	w := h / aspect
	r := far / (far - near)
	return mgl32.Mat4FromRows(
		mgl32.Vec4{w, 0, 0, 0},
		mgl32.Vec4{0, h, 0, 0},
		mgl32.Vec4{0, 0, r, 1},
		mgl32.Vec4{0, 0, -r * near, 0},
	)
}

// OrthographicLH returns a left-handed orthographic projection of a
// width x height view volume with depth mapped to [0, 1].
func OrthographicLH(width, height, near, far float32) mgl32.Mat4 {
	r := 1 / (far - near)
	return mgl32.Mat4FromRows(
		mgl32.Vec4{2 / width, 0, 0, 0},
		mgl32.Vec4{0, 2 / height, 0, 0},
		mgl32.Vec4{0, 0, r, 0},
		mgl32.Vec4{0, 0, -r * near, 1},
	)
}

// decompose splits an affine S*R*T matrix into its parts. Shear is lost.
func decompose(m mgl32.Mat4) (position, pitchYawRoll, scale mgl32.Vec3) {
	position = mgl32.Vec3{m.At(3, 0), m.At(3, 1), m.At(3, 2)}
	var rows [3]mgl32.Vec3
	for i := 0; i < 3; i++ {
		rows[i] = mgl32.Vec3{m.At(i, 0), m.At(i, 1), m.At(i, 2)}
		scale[i] = rows[i].Len()
		if scale[i] != 0 {
			rows[i] = rows[i].Mul(1 / scale[i])
		}
	}
	pitchYawRoll = eulerFromRows(rows)
	return position, pitchYawRoll, scale
}

// eulerFromRows extracts pitch, yaw and roll from the rows of a row-vector
// rotation matrix. The angles reproduce the rotation, not necessarily the
// angles it was built from.
func eulerFromRows(r [3]mgl32.Vec3) mgl32.Vec3 {
	sp := -r[2][1]
	sp = mgl32.Clamp(sp, -1, 1)
	pitch := float32(math.Asin(float64(sp)))
	yaw := float32(math.Atan2(float64(r[2][0]), float64(r[2][2])))
	roll := float32(math.Atan2(float64(r[0][1]), float64(r[1][1])))
	return mgl32.Vec3{pitch, yaw, roll}
}
