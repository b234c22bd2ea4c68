// Package config loads the demo configuration from TOML and reloads it
// when the file changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is returned for configurations that fail validation.
var ErrInvalid = errors.New("config: invalid")

// Config is the demo configuration.
type Config struct {
	Window   Window   `toml:"window"`
	Shader   Shader   `toml:"shader"`
	Scene    Scene    `toml:"scene"`
	Camera   Camera   `toml:"camera"`
	Graphics Graphics `toml:"graphics"`
	Log      Log      `toml:"log"`
}

// Window configures the presentation surface.
type Window struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	VSync  bool   `toml:"vsync"`
}

// Shader locates the ray tracing shader library.
type Shader struct {
	Library string `toml:"library"`
}

// Scene locates the mesh to trace.
type Scene struct {
	Mesh string `toml:"mesh"`
}

// Camera configures the initial camera. FieldOfView is in degrees.
type Camera struct {
	Position     [3]float32 `toml:"position"`
	MoveSpeed    float32    `toml:"move_speed"`
	LookSpeed    float32    `toml:"look_speed"`
	FieldOfView  float32    `toml:"fov"`
	Near         float32    `toml:"near"`
	Far          float32    `toml:"far"`
	Orthographic bool       `toml:"orthographic"`
}

// Graphics sizes the shared descriptor heap and upload ring.
type Graphics struct {
	ConstantBuffers    uint32 `toml:"constant_buffers"`
	TextureDescriptors uint32 `toml:"texture_descriptors"`
	RingGuard          bool   `toml:"ring_guard"`
}

// Log selects the log level: debug, info, warn or error.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Window: Window{Title: "raytrace", Width: 1280, Height: 720, VSync: true},
		Shader: Shader{Library: "raytracing.lib"},
		Camera: Camera{
			Position:    [3]float32{0, 0, -2},
			MoveSpeed:   5,
			LookSpeed:   0.002,
			FieldOfView: 45,
			Near:        0.01,
			Far:         100,
		},
		Graphics: Graphics{ConstantBuffers: 1000, TextureDescriptors: 1000},
		Log:      Log{Level: "info"},
	}
}

// Parse decodes TOML data over the defaults. Unknown keys are errors.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("config: line %d column %d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path. Relative asset paths in the file
// are resolved against the file's directory.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg.ResolvePaths(dir), nil
}

// ResolvePaths returns c with the shader library and mesh paths made
// absolute against base.
func (c Config) ResolvePaths(base string) Config {
	c.Shader.Library = Resolve(base, c.Shader.Library)
	c.Scene.Mesh = Resolve(base, c.Scene.Mesh)
	return c
}

// Resolve joins a relative path with base and cleans it. Empty and
// absolute paths are returned cleaned but otherwise unchanged.
func Resolve(base, path string) string {
	switch {
	case path == "":
		return ""
	case filepath.IsAbs(path):
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// ExecutableDir returns the directory of the running binary with symlinks
// resolved. Assets of a configuration without a file resolve against it.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// Validate checks ranges the renderer relies on.
func (c Config) Validate() error {
	switch {
	case c.Window.Width == 0 || c.Window.Height == 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	case c.Camera.FieldOfView <= 0 || c.Camera.FieldOfView >= 180:
		return fmt.Errorf("%w: fov %v not in (0, 180)", ErrInvalid, c.Camera.FieldOfView)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("%w: clip planes %v..%v", ErrInvalid, c.Camera.Near, c.Camera.Far)
	case c.Graphics.ConstantBuffers == 0 || c.Graphics.TextureDescriptors == 0:
		return fmt.Errorf("%w: descriptor counts must be positive", ErrInvalid)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// Marshal encodes c as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
