package platform

import (
	"testing"

	"github.com/gogpu/raytrace/scene"
)

func TestKeyTransitions(t *testing.T) {
	in := NewInput(nil)
	const k = 'W'

	in.SetKey(k, true)
	if !in.Down(k) || !in.Pressed(k) || in.Released(k) || in.Up(k) {
		t.Fatal("press not reported")
	}
	in.EndOfFrame()
	if !in.Down(k) || in.Pressed(k) {
		t.Error("held key reported as pressed again")
	}
	in.SetKey(k, false)
	if !in.Released(k) || in.Down(k) {
		t.Error("release not reported")
	}
	in.EndOfFrame()
	if in.Released(k) {
		t.Error("release reported twice")
	}
}

func TestOutOfRangeCodes(t *testing.T) {
	in := NewInput(nil)
	in.SetKey(-1, true)
	in.SetKey(MaxKeys, true)
	in.SetMouseButton(MaxMouseButtons, true)
	if in.Down(-1) || in.Down(MaxKeys) || in.MouseDown(MaxMouseButtons) {
		t.Error("out-of-range code reads as down")
	}
}

func TestMouse(t *testing.T) {
	in := NewInput(nil)
	in.SetCursor(100, 50)
	if dx, dy := in.MouseDelta(); dx != 0 || dy != 0 {
		t.Errorf("first sample delta = (%v, %v), want 0", dx, dy)
	}
	in.EndOfFrame()
	in.SetCursor(110, 45)
	if dx, dy := in.MouseDelta(); dx != 10 || dy != -5 {
		t.Errorf("delta = (%v, %v), want (10, -5)", dx, dy)
	}

	in.SetMouseButton(MouseButtonLeft, true)
	if !in.MouseLeftDown() || !in.MousePressed(MouseButtonLeft) {
		t.Error("left button press not reported")
	}

	in.AddWheel(1)
	in.AddWheel(0.5)
	if in.Wheel() != 1.5 {
		t.Errorf("Wheel = %v, want 1.5", in.Wheel())
	}
	in.EndOfFrame()
	if in.Wheel() != 0 || in.MousePressed(MouseButtonLeft) {
		t.Error("EndOfFrame did not reset per-frame mouse state")
	}
	in.SetMouseButton(MouseButtonLeft, false)
	if !in.MouseReleased(MouseButtonLeft) {
		t.Error("left button release not reported")
	}
}

func TestCapture(t *testing.T) {
	in := NewInput(map[scene.Key]int{scene.KeyW: 'W'})
	in.SetKey('W', true)
	in.SetMouseButton(MouseButtonLeft, true)
	in.SetCursor(0, 0)
	in.EndOfFrame()
	in.SetCursor(5, 5)
	in.AddWheel(2)

	in.CaptureKeyboard(true)
	in.CaptureMouse(true)
	if in.KeyDown(scene.KeyW) || in.MouseLeftDown() || in.Wheel() != 0 {
		t.Error("captured input leaked through")
	}
	if dx, dy := in.MouseDelta(); dx != 0 || dy != 0 {
		t.Errorf("captured delta = (%v, %v)", dx, dy)
	}

	in.CaptureKeyboard(false)
	in.CaptureMouse(false)
	if !in.KeyDown(scene.KeyW) || !in.MouseLeftDown() {
		t.Error("input lost after release of capture")
	}
}

func TestBindings(t *testing.T) {
	in := NewInput(map[scene.Key]int{scene.KeyShift: 340})
	in.SetKey(340, true)
	if !in.KeyDown(scene.KeyShift) {
		t.Error("bound key not down")
	}
	if in.KeyDown(scene.KeyControl) {
		t.Error("unbound key reads as down")
	}
}
