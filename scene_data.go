package raytrace

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera supplies the per-frame camera state. View and Projection use the
// left-handed row-vector convention.
type Camera interface {
	Position() mgl32.Vec3
	View() mgl32.Mat4
	Projection() mgl32.Mat4
}

// SceneDataSize is the byte size of the scene constant buffer contents.
const SceneDataSize = 80

// SceneData is the per-frame constant buffer read by the ray generation
// shader to turn pixel coordinates into world-space rays.
//
// Layout:
//
//	float4x4 inverseViewProjection  // bytes  0..63, row-major
//	float3   cameraPosition         // bytes 64..75
//	float    pad                    // bytes 76..79
type SceneData struct {
	InverseViewProjection mgl32.Mat4
	CameraPosition        mgl32.Vec3
}

// NewSceneData computes inverse(View * Projection) and copies the camera
// position. A singular view-projection product is a caller error.
func NewSceneData(c Camera) SceneData {
	vp := c.View().Mul4(c.Projection())
	return SceneData{
		InverseViewProjection: vp.Inv(),
		CameraPosition:        c.Position(),
	}
}

// Bytes returns the constant buffer contents.
func (d SceneData) Bytes() []byte {
	b := make([]byte, SceneDataSize)
	off := 0
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint32(b[off:], math.Float32bits(d.InverseViewProjection.At(r, c)))
			off += 4
		}
	}
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(b[off:], math.Float32bits(d.CameraPosition[i]))
		off += 4
	}
	return b
}

// ParseSceneData decodes constant buffer contents written by Bytes.
func ParseSceneData(b []byte) SceneData {
	_ = b[SceneDataSize-1]
	var d SceneData
	off := 0
	f := func() float32 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
		off += 4
		return v
	}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			d.InverseViewProjection.Set(r, c, f())
		}
	}
	for i := 0; i < 3; i++ {
		d.CameraPosition[i] = f()
	}
	return d
}
