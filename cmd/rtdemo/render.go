//go:build !nogpu

package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/urfave/cli"

	"github.com/gogpu/raytrace/backend/wgpu"
	"github.com/gogpu/raytrace/gpucore"
)

// renderFrames traces --frames frames offscreen and writes the last
// presented back buffer to --out.
func renderFrames(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	setupLogging(c, cfg.Log.Level)

	width, height := cfg.Window.Width, cfg.Window.Height
	if w := c.Uint("width"); w != 0 {
		width = uint32(w)
	}
	if h := c.Uint("height"); h != 0 {
		height = uint32(h)
	}
	frames := c.Int("frames")
	if frames < 1 {
		return fmt.Errorf("--frames must be positive, got %d", frames)
	}

	s, err := newSession(cfg, width, height)
	if err != nil {
		return err
	}
	defer s.Close()

	var last *image.RGBA
	presented := 0
	s.swapChain.OnPresent = func(backBuffer gpucore.ResourceID, _ int) error {
		presented++
		if presented < frames {
			return nil
		}
		var err error
		last, err = s.ctx.ReadTexture(backBuffer, width, height, wgpu.BackBufferFormat, gpucore.ResourceStatePresent)
		return err
	}

	for i := 0; i < frames; i++ {
		if err := s.Frame(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	if last == nil {
		return fmt.Errorf("no frame captured after %d presents", presented)
	}
	if err := writePNG(c.String("out"), last); err != nil {
		return err
	}
	logger.Info("frame written", "path", c.String("out"), "frames", frames, "width", width, "height", height)
	return nil
}

// writePNG encodes img to path.
func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
