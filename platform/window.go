//go:build !nogpu

package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gogpu/raytrace/scene"
)

func init() {
	// GLFW event handling must run on the main OS thread.
	runtime.LockOSThread()
}

// DefaultBindings maps the camera keys to WASD, space, X, shift and
// control.
func DefaultBindings() map[scene.Key]int {
	return map[scene.Key]int{
		scene.KeyW:       int(glfw.KeyW),
		scene.KeyA:       int(glfw.KeyA),
		scene.KeyS:       int(glfw.KeyS),
		scene.KeyD:       int(glfw.KeyD),
		scene.KeySpace:   int(glfw.KeySpace),
		scene.KeyX:       int(glfw.KeyX),
		scene.KeyShift:   int(glfw.KeyLeftShift),
		scene.KeyControl: int(glfw.KeyLeftControl),
	}
}

// Window is a glfw window without a client API that feeds an Input.
type Window struct {
	window *glfw.Window
	input  *Input

	width, height int
	resized       bool
}

// NewWindow initializes glfw and opens a resizable window. Must be called
// from the main goroutine.
func NewWindow(title string, width, height int, input *Input) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("platform: initialize glfw: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	gw, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("platform: create window: %w", err)
	}
	w := &Window{window: gw, input: input}
	w.width, w.height = gw.GetFramebufferSize()

	gw.SetKeyCallback(w.keyCallback)
	gw.SetMouseButtonCallback(w.mouseButtonCallback)
	gw.SetCursorPosCallback(w.cursorPosCallback)
	gw.SetScrollCallback(w.scrollCallback)
	gw.SetFramebufferSizeCallback(w.framebufferSizeCallback)
	return w, nil
}

func (w *Window) keyCallback(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	switch action {
	case glfw.Press:
		w.input.SetKey(int(key), true)
	case glfw.Release:
		w.input.SetKey(int(key), false)
	}
}

func (w *Window) mouseButtonCallback(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	w.input.SetMouseButton(int(button), action == glfw.Press)
}

func (w *Window) cursorPosCallback(_ *glfw.Window, x, y float64) {
	w.input.SetCursor(x, y)
}

func (w *Window) scrollCallback(_ *glfw.Window, _, dy float64) {
	w.input.AddWheel(dy)
}

// Minimized windows report a zero framebuffer; those sizes are ignored.
func (w *Window) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	if width == 0 || height == 0 {
		return
	}
	if width != w.width || height != w.height {
		w.width, w.height = width, height
		w.resized = true
	}
}

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool { return w.window.ShouldClose() }

// RequestClose asks the frame loop to stop.
func (w *Window) RequestClose() { w.window.SetShouldClose(true) }

// PollEvents processes pending window events.
func (w *Window) PollEvents() { glfw.PollEvents() }

// Size returns the framebuffer size in pixels.
func (w *Window) Size() (width, height uint32) { return uint32(w.width), uint32(w.height) }

// Resized reports whether the framebuffer changed size since the last
// call.
func (w *Window) Resized() bool {
	r := w.resized
	w.resized = false
	return r
}

// AspectRatio returns width over height.
func (w *Window) AspectRatio() float32 { return float32(w.width) / float32(w.height) }

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) { w.window.SetTitle(title) }

// Close destroys the window and terminates glfw.
func (w *Window) Close() {
	w.window.Destroy()
	glfw.Terminate()
}
