//go:build !nogpu

package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli"

	"github.com/gogpu/raytrace"
	"github.com/gogpu/raytrace/backend/wgpu"
	"github.com/gogpu/raytrace/graphics"
	"github.com/gogpu/raytrace/internal/config"
	"github.com/gogpu/raytrace/pipeline"
	"github.com/gogpu/raytrace/scene"
)

// builtinLibrary stands in for a compiled shader library. The emulated
// backend checks the exports of the pipeline but does not run the bytecode.
var builtinLibrary = []byte("rtdemo builtin library")

var logger *log.Logger

// setupLogging routes the package loggers through a charmbracelet logger.
// -v forces debug output.
func setupLogging(c *cli.Context, level string) {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "rtdemo",
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if c.GlobalBool("v") {
		lvl = log.DebugLevel
	}
	logger.SetLevel(lvl)
	raytrace.SetLogger(slog.New(logger))
}

// loadConfig reads the --config file, or the defaults without one, and
// applies the global overrides. Asset paths from the file resolve against
// its directory, defaults against the executable's directory and flags
// against the working directory.
func loadConfig(c *cli.Context) (config.Config, error) {
	var cfg config.Config
	if path := c.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	} else {
		dir, err := config.ExecutableDir()
		if err != nil {
			return config.Config{}, err
		}
		cfg = config.Default().ResolvePaths(dir)
	}

	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, err
	}
	if mesh := c.GlobalString("mesh"); mesh != "" {
		cfg.Scene.Mesh = config.Resolve(wd, mesh)
	}
	if lib := c.GlobalString("library"); lib != "" {
		cfg.Shader.Library = config.Resolve(wd, lib)
	}
	return cfg, nil
}

// session owns everything needed to trace frames.
type session struct {
	cfg       config.Config
	device    *wgpu.Device
	swapChain *wgpu.SwapChain
	ctx       *graphics.Context
	mesh      *scene.Mesh
	rt        *raytrace.Raytracer
	camera    *scene.Camera
}

// newSession opens the device and builds the scene at width x height.
func newSession(cfg config.Config, width, height uint32) (*session, error) {
	s := &session{cfg: cfg}
	if err := s.open(width, height); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) open(width, height uint32) error {
	var err error
	if s.device, err = wgpu.Open(wgpu.WithLabel("rtdemo")); err != nil {
		return err
	}
	if s.swapChain, err = wgpu.NewSwapChain(s.device, graphics.NumBackBuffers, width, height); err != nil {
		return err
	}
	s.ctx, err = graphics.New(s.device, s.swapChain,
		graphics.WithConstantBufferCount(s.cfg.Graphics.ConstantBuffers),
		graphics.WithTextureDescriptorCount(s.cfg.Graphics.TextureDescriptors),
		graphics.WithUploadRingGuard(s.cfg.Graphics.RingGuard),
		graphics.WithLabel("rtdemo"),
	)
	if err != nil {
		return err
	}
	if s.mesh, err = loadMesh(s.ctx, s.cfg.Scene.Mesh); err != nil {
		return err
	}
	lib, err := loadLibrary(s.cfg.Shader.Library)
	if err != nil {
		return err
	}

	s.rt = raytrace.New(s.ctx)
	if err := s.rt.Initialize(width, height, lib); err != nil {
		return err
	}
	if err := s.rt.CreateBLAS(s.mesh); err != nil {
		return err
	}
	if err := s.rt.CreateTLAS(); err != nil {
		return err
	}
	s.camera = newCamera(s.cfg.Camera, float32(width)/float32(height))
	return nil
}

// Close releases the scene and the device in reverse order of creation.
func (s *session) Close() {
	if s.rt != nil {
		s.rt.Close()
	}
	if s.mesh != nil {
		s.mesh.Release()
	}
	if s.ctx != nil {
		s.ctx.Close()
	}
	if s.swapChain != nil {
		s.swapChain.Release()
	}
	if s.device != nil {
		s.device.Close()
	}
}

// Frame traces one frame into the current back buffer and presents it.
func (s *session) Frame() error {
	if err := s.rt.Raytrace(s.camera, s.ctx.CurrentBackBuffer()); err != nil {
		return err
	}
	return s.ctx.EndFrame(s.cfg.Window.VSync)
}

// Resize resizes the swap chain, the output image and the projection.
func (s *session) Resize(width, height uint32) error {
	if err := s.ctx.Resize(width, height); err != nil {
		return err
	}
	if err := s.rt.ResizeOutputUAV(width, height); err != nil {
		return err
	}
	s.camera.UpdateProjection(float32(width) / float32(height))
	return nil
}

// loadMesh loads an OBJ file, or a single triangle in front of the default
// camera when path is empty.
func loadMesh(ctx *graphics.Context, path string) (*scene.Mesh, error) {
	if path != "" {
		return scene.LoadOBJ(ctx, path)
	}
	normal := mgl32.Vec3{0, 0, -1}
	vertices := []scene.Vertex{
		{Position: mgl32.Vec3{0, 0.5, 0}, UV: mgl32.Vec2{0.5, 0}, Normal: normal},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, UV: mgl32.Vec2{1, 1}, Normal: normal},
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, UV: mgl32.Vec2{0, 1}, Normal: normal},
	}
	indices := []uint32{0, 1, 2}
	scene.CalculateTangents(vertices, indices)
	return scene.NewMesh(ctx, "triangle", vertices, indices)
}

func loadLibrary(path string) (*pipeline.Library, error) {
	lib, err := pipeline.LoadLibrary(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("shader library not found, using builtin exports", "path", path)
		return pipeline.NewLibrary("builtin", builtinLibrary)
	}
	return lib, err
}

func newCamera(c config.Camera, aspect float32) *scene.Camera {
	projection := scene.Perspective
	if c.Orthographic {
		projection = scene.Orthographic
	}
	return scene.NewCamera(mgl32.Vec3(c.Position), aspect,
		scene.WithSpeeds(c.MoveSpeed, c.LookSpeed),
		scene.WithFieldOfView(mgl32.DegToRad(c.FieldOfView)),
		scene.WithClipPlanes(c.Near, c.Far),
		scene.WithProjection(projection),
	)
}

// applyCamera updates the live camera settings from a reloaded config.
func applyCamera(cam *scene.Camera, c config.Camera) {
	cam.MoveSpeed = c.MoveSpeed
	cam.MouseLookSpeed = c.LookSpeed
	cam.SetFieldOfView(mgl32.DegToRad(c.FieldOfView))
}
