package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ProjectionType selects the camera projection.
type ProjectionType int

const (
	// Perspective is a field-of-view projection.
	Perspective ProjectionType = iota

	// Orthographic projects a 2*aspect x 2 world-unit volume.
	Orthographic
)

// Camera defaults.
const (
	DefaultMoveSpeed      = 5.0
	DefaultMouseLookSpeed = 0.002
	DefaultFieldOfView    = math.Pi / 4
	DefaultNearClip       = 0.01
	DefaultFarClip        = 100.0
)

// Key identifies a key the camera responds to.
type Key int

// Camera keys.
const (
	KeyW Key = iota
	KeyA
	KeyS
	KeyD
	KeySpace
	KeyX
	KeyShift
	KeyControl
)

// Input is the per-frame input state the camera reads.
type Input interface {
	KeyDown(k Key) bool
	MouseLeftDown() bool

	// MouseDelta returns the cursor movement since the previous frame in
	// pixels.
	MouseDelta() (dx, dy float32)
}

// Camera is a free-flying first person camera. Its transform lives in its
// own Graph node.
type Camera struct {
	graph *Graph
	node  NodeID

	MoveSpeed      float32
	MouseLookSpeed float32

	fov        float32
	aspect     float32
	near, far  float32
	projection ProjectionType

	view, proj mgl32.Mat4
}

// CameraOption configures a Camera.
type CameraOption func(*Camera)

// WithSpeeds sets the movement speed in units per second and the mouse look
// speed in radians per pixel.
func WithSpeeds(move, look float32) CameraOption {
	return func(c *Camera) {
		c.MoveSpeed = move
		c.MouseLookSpeed = look
	}
}

// WithFieldOfView sets the vertical field of view in radians.
func WithFieldOfView(fov float32) CameraOption {
	return func(c *Camera) { c.fov = fov }
}

// WithClipPlanes sets the near and far clip distances.
func WithClipPlanes(near, far float32) CameraOption {
	return func(c *Camera) {
		c.near = near
		c.far = far
	}
}

// WithProjection selects perspective or orthographic projection.
func WithProjection(p ProjectionType) CameraOption {
	return func(c *Camera) { c.projection = p }
}

// WithGraph places the camera node in g instead of a private graph, so it
// can be parented to other nodes.
func WithGraph(g *Graph) CameraOption {
	return func(c *Camera) { c.graph = g }
}

// NewCamera returns a camera at position looking down +Z.
func NewCamera(position mgl32.Vec3, aspect float32, opts ...CameraOption) *Camera {
	c := &Camera{
		MoveSpeed:      DefaultMoveSpeed,
		MouseLookSpeed: DefaultMouseLookSpeed,
		fov:            DefaultFieldOfView,
		aspect:         aspect,
		near:           DefaultNearClip,
		far:            DefaultFarClip,
		projection:     Perspective,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.graph == nil {
		c.graph = NewGraph()
	}
	c.node = c.graph.New()
	c.graph.SetPosition(c.node, position)
	c.updateView()
	c.UpdateProjection(aspect)
	return c
}

// Graph returns the graph holding the camera node.
func (c *Camera) Graph() *Graph { return c.graph }

// Node returns the camera's transform node.
func (c *Camera) Node() NodeID { return c.node }

// Position returns the camera's world position.
func (c *Camera) Position() mgl32.Vec3 {
	return TransformPoint(mgl32.Vec3{}, c.graph.World(c.node))
}

// View returns the view matrix.
func (c *Camera) View() mgl32.Mat4 { return c.view }

// Projection returns the projection matrix.
func (c *Camera) Projection() mgl32.Mat4 { return c.proj }

// AspectRatio returns the aspect ratio of the last projection update.
func (c *Camera) AspectRatio() float32 { return c.aspect }

// FieldOfView returns the vertical field of view in radians.
func (c *Camera) FieldOfView() float32 { return c.fov }

// SetFieldOfView changes the field of view and rebuilds the projection.
func (c *Camera) SetFieldOfView(fov float32) {
	c.fov = fov
	c.UpdateProjection(c.aspect)
}

// ClipPlanes returns the near and far clip distances.
func (c *Camera) ClipPlanes() (near, far float32) { return c.near, c.far }

// SetClipPlanes changes the clip distances and rebuilds the projection.
func (c *Camera) SetClipPlanes(near, far float32) {
	c.near, c.far = near, far
	c.UpdateProjection(c.aspect)
}

// UpdateProjection rebuilds the projection for a new aspect ratio, usually
// after a window resize.
func (c *Camera) UpdateProjection(aspect float32) {
	c.aspect = aspect
	if c.projection == Orthographic {
		c.proj = OrthographicLH(2*aspect, 2, c.near, c.far)
		return
	}
	c.proj = PerspectiveFovLH(c.fov, aspect, c.near, c.far)
}

func (c *Camera) updateView() {
	world := c.graph.World(c.node)
	forward := mgl32.Vec3{world.At(2, 0), world.At(2, 1), world.At(2, 2)}
	if forward.Len() == 0 {
		forward = c.graph.Forward(c.node)
	}
	c.view = LookToLH(c.Position(), forward, WorldUp)
}

// Update applies one frame of input: W/S/A/D move along the view, Space
// and X move along world Y, Shift and Control scale the speed by 5 and 0.1,
// and dragging with the left button turns the camera. Pitch is clamped to
// straight up or down.
func (c *Camera) Update(dt float32, in Input) {
	speed := dt * c.MoveSpeed
	if in.KeyDown(KeyShift) {
		speed *= 5
	}
	if in.KeyDown(KeyControl) {
		speed *= 0.1
	}

	g, n := c.graph, c.node
	if in.KeyDown(KeyW) {
		g.MoveRelative(n, mgl32.Vec3{0, 0, speed})
	}
	if in.KeyDown(KeyS) {
		g.MoveRelative(n, mgl32.Vec3{0, 0, -speed})
	}
	if in.KeyDown(KeyA) {
		g.MoveRelative(n, mgl32.Vec3{-speed, 0, 0})
	}
	if in.KeyDown(KeyD) {
		g.MoveRelative(n, mgl32.Vec3{speed, 0, 0})
	}
	if in.KeyDown(KeyX) {
		g.MoveAbsolute(n, mgl32.Vec3{0, -speed, 0})
	}
	if in.KeyDown(KeySpace) {
		g.MoveAbsolute(n, mgl32.Vec3{0, speed, 0})
	}

	if in.MouseLeftDown() {
		dx, dy := in.MouseDelta()
		g.Rotate(n, mgl32.Vec3{c.MouseLookSpeed * dy, c.MouseLookSpeed * dx, 0})
		rot := g.PitchYawRoll(n)
		rot[0] = mgl32.Clamp(rot[0], -math.Pi/2, math.Pi/2)
		g.SetRotation(n, rot)
	}

	c.updateView()
}
