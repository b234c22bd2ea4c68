// Package platform provides the window, frame timer and input state the
// demo loop runs on.
//
// [Input] and [Timer] are plain Go and usable without a window. [Window]
// wraps a glfw window created without a client API, feeds its callbacks
// into an [Input], and reports resizes. Zero-area framebuffer sizes
// (minimized windows) are never reported as resizes.
package platform
