package platform

import "github.com/gogpu/raytrace/scene"

// Raw code ranges. Key codes follow glfw (printable keys are their ASCII
// upper-case value, function keys start at 256).
const (
	MaxKeys         = 512
	MaxMouseButtons = 8
)

// Mouse buttons.
const (
	MouseButtonLeft   = 0
	MouseButtonRight  = 1
	MouseButtonMiddle = 2
)

// Input holds the current and previous frame's keyboard and mouse state.
//
// Window callbacks write into it through the Set* methods; the frame loop
// reads it and calls EndOfFrame once per frame. Out-of-range codes are
// ignored by setters and read as up.
type Input struct {
	keys     [MaxKeys]bool
	prevKeys [MaxKeys]bool

	buttons     [MaxMouseButtons]bool
	prevButtons [MaxMouseButtons]bool

	x, y         float64
	prevX, prevY float64
	cursorSeen   bool

	wheel float64

	keyboardCaptured bool
	mouseCaptured    bool

	// Bindings maps the camera's logical keys to raw key codes.
	Bindings map[scene.Key]int
}

// NewInput returns an Input with the given camera bindings.
func NewInput(bindings map[scene.Key]int) *Input {
	return &Input{Bindings: bindings}
}

// SetKey records a key press or release.
func (in *Input) SetKey(code int, down bool) {
	if code < 0 || code >= MaxKeys {
		return
	}
	in.keys[code] = down
}

// SetMouseButton records a button press or release.
func (in *Input) SetMouseButton(button int, down bool) {
	if button < 0 || button >= MaxMouseButtons {
		return
	}
	in.buttons[button] = down
}

// SetCursor records the cursor position in window coordinates. The first
// position seen also becomes the previous position, so the first frame
// reports no movement.
func (in *Input) SetCursor(x, y float64) {
	in.x, in.y = x, y
	if !in.cursorSeen {
		in.prevX, in.prevY = x, y
		in.cursorSeen = true
	}
}

// AddWheel accumulates vertical wheel movement for this frame.
func (in *Input) AddWheel(dy float64) {
	in.wheel += dy
}

// EndOfFrame copies the current state to the previous state and clears
// the wheel accumulator.
func (in *Input) EndOfFrame() {
	in.prevKeys = in.keys
	in.prevButtons = in.buttons
	in.prevX, in.prevY = in.x, in.y
	in.wheel = 0
}

// CaptureKeyboard makes every key query report up, for example while a
// UI element owns the keyboard.
func (in *Input) CaptureKeyboard(captured bool) { in.keyboardCaptured = captured }

// CaptureMouse makes every mouse query report no input.
func (in *Input) CaptureMouse(captured bool) { in.mouseCaptured = captured }

func (in *Input) key(code int, prev bool) bool {
	if in.keyboardCaptured || code < 0 || code >= MaxKeys {
		return false
	}
	if prev {
		return in.prevKeys[code]
	}
	return in.keys[code]
}

func (in *Input) button(b int, prev bool) bool {
	if in.mouseCaptured || b < 0 || b >= MaxMouseButtons {
		return false
	}
	if prev {
		return in.prevButtons[b]
	}
	return in.buttons[b]
}

// Down reports whether the key is held.
func (in *Input) Down(code int) bool { return in.key(code, false) }

// Up reports whether the key is not held.
func (in *Input) Up(code int) bool { return !in.key(code, false) }

// Pressed reports whether the key went down this frame.
func (in *Input) Pressed(code int) bool { return in.key(code, false) && !in.key(code, true) }

// Released reports whether the key went up this frame.
func (in *Input) Released(code int) bool { return !in.key(code, false) && in.key(code, true) }

// MouseDown reports whether the button is held.
func (in *Input) MouseDown(b int) bool { return in.button(b, false) }

// MousePressed reports whether the button went down this frame.
func (in *Input) MousePressed(b int) bool { return in.button(b, false) && !in.button(b, true) }

// MouseReleased reports whether the button went up this frame.
func (in *Input) MouseReleased(b int) bool { return !in.button(b, false) && in.button(b, true) }

// Cursor returns the cursor position in window coordinates.
func (in *Input) Cursor() (x, y float64) { return in.x, in.y }

// Wheel returns the wheel movement accumulated this frame.
func (in *Input) Wheel() float64 {
	if in.mouseCaptured {
		return 0
	}
	return in.wheel
}

// KeyDown reports whether the raw key bound to k is held. Unbound keys
// are never down.
func (in *Input) KeyDown(k scene.Key) bool {
	code, ok := in.Bindings[k]
	if !ok {
		return false
	}
	return in.Down(code)
}

// MouseLeftDown reports whether the left button is held.
func (in *Input) MouseLeftDown() bool { return in.MouseDown(MouseButtonLeft) }

// MouseDelta returns the cursor movement since the previous frame.
func (in *Input) MouseDelta() (dx, dy float32) {
	if in.mouseCaptured {
		return 0, 0
	}
	return float32(in.x - in.prevX), float32(in.y - in.prevY)
}

var _ scene.Input = (*Input)(nil)
