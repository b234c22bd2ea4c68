//go:build !nogpu

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/urfave/cli"

	"github.com/gogpu/raytrace/backend/wgpu"
	"github.com/gogpu/raytrace/gpucore"
	"github.com/gogpu/raytrace/internal/config"
	"github.com/gogpu/raytrace/platform"
)

// titleInterval is how often the window title shows a new FPS figure.
const titleInterval = 500 * time.Millisecond

// runWindow opens a window and traces a frame per iteration until the
// window closes or Escape is pressed. P writes the next frame to a PNG.
func runWindow(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	setupLogging(c, cfg.Log.Level)

	input := platform.NewInput(platform.DefaultBindings())
	win, err := platform.NewWindow(cfg.Window.Title, int(cfg.Window.Width), int(cfg.Window.Height), input)
	if err != nil {
		return err
	}
	defer win.Close()

	width, height := win.Size()
	s, err := newSession(cfg, width, height)
	if err != nil {
		return err
	}
	defer s.Close()

	watchCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var updates <-chan config.Config
	if path := c.GlobalString("config"); path != "" {
		updates, err = config.Watch(watchCtx, path, func(err error) {
			logger.Warn("config reload failed", "err", err)
		})
		if err != nil {
			return err
		}
	}

	shots := 0
	capture := false
	s.swapChain.OnPresent = func(backBuffer gpucore.ResourceID, _ int) error {
		if !capture {
			return nil
		}
		capture = false
		w, h := s.swapChain.Size()
		img, err := s.ctx.ReadTexture(backBuffer, w, h, wgpu.BackBufferFormat, gpucore.ResourceStatePresent)
		if err != nil {
			return err
		}
		shots++
		path := fmt.Sprintf("rtdemo-%03d.png", shots)
		if err := writePNG(path, img); err != nil {
			return err
		}
		logger.Info("screenshot saved", "path", path)
		return nil
	}

	timer := platform.NewTimer()
	lastTitle := time.Now()
	for !win.ShouldClose() {
		win.PollEvents()

		select {
		case next, ok := <-updates:
			if ok {
				applyCamera(s.camera, next.Camera)
				s.cfg.Window.VSync = next.Window.VSync
				logger.Info("config reloaded", "fov", next.Camera.FieldOfView, "vsync", next.Window.VSync)
			}
		default:
		}

		if win.Resized() {
			w, h := win.Size()
			if err := s.Resize(w, h); err != nil {
				return fmt.Errorf("resize to %dx%d: %w", w, h, err)
			}
		}
		if input.Pressed(int(glfw.KeyEscape)) {
			win.RequestClose()
		}
		if input.Pressed(int(glfw.KeyP)) {
			capture = true
		}

		dt, _ := timer.Tick()
		s.camera.Update(dt, input)
		if err := s.Frame(); err != nil {
			return err
		}
		input.EndOfFrame()

		if time.Since(lastTitle) >= titleInterval {
			win.SetTitle(fmt.Sprintf("%s - %.0f fps", cfg.Window.Title, timer.FPS()))
			lastTitle = time.Now()
		}
	}
	return nil
}
