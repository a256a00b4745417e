// Package config loads the demo's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/toxichemicals/GO/holy-textures/internal/shape"
	"github.com/toxichemicals/GO/holy-textures/internal/texture"
)

type Config struct {
	Window     WindowConfig    `yaml:"window"`
	ClearColor [4]float32      `yaml:"clearColor"`
	Shader     ShaderConfig    `yaml:"shader"`
	Textures   []TextureConfig `yaml:"textures"`
	Sphere     SphereConfig    `yaml:"sphere"`
	Cube       CubeConfig      `yaml:"cube"`
	// Model is an optional glTF/GLB file shown with the model key.
	Model string `yaml:"model,omitempty"`

	AngleIncrement float32       `yaml:"angleIncrement"`
	FetchTimeout   time.Duration `yaml:"fetchTimeout,omitempty"`
	FailurePolicy  string        `yaml:"failurePolicy"`

	// BaseDir is where relative paths resolve; the config file's directory
	// when loaded from disk.
	BaseDir string `yaml:"-"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
}

type ShaderConfig struct {
	// Document is an HTML file with the shader script blocks. Empty means
	// the built-in document.
	Document string `yaml:"document,omitempty"`
	Vertex   string `yaml:"vertex"`
	Fragment string `yaml:"fragment"`
}

type TextureConfig struct {
	Name        string `yaml:"name"`
	URI         string `yaml:"uri"`
	Placeholder string `yaml:"placeholder"`
}

type SphereConfig struct {
	Slices int `yaml:"slices"`
	Stacks int `yaml:"stacks"`
}

type CubeConfig struct {
	Subdivisions int `yaml:"subdivisions"`
}

// Default returns the stock demo configuration.
func Default() Config {
	return Config{
		Window:     WindowConfig{Width: 800, Height: 600, Title: "holy-textures", VSync: true},
		ClearColor: [4]float32{0, 0, 0, 1},
		Shader:     ShaderConfig{Vertex: "sphereMap-V", Fragment: "sphereMap-F"},
		Textures: []TextureConfig{
			{Name: "globe", URI: "1_earth_16k.jpg", Placeholder: "#ff0000"},
			{Name: "myimage", URI: "eyeball.jpeg", Placeholder: "#00ff00"},
		},
		Sphere:         SphereConfig{Slices: 20, Stacks: 20},
		Cube:           CubeConfig{Subdivisions: 20},
		AngleIncrement: 5,
		FailurePolicy:  texture.Strict.String(),
		BaseDir:        ".",
	}
}

// Load reads path over Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.BaseDir = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the demo cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Shader.Vertex == "" || c.Shader.Fragment == "" {
		errs = append(errs, errors.New("shader ids must be set"))
	}
	if len(c.Textures) != 2 {
		errs = append(errs, fmt.Errorf("want exactly 2 textures, got %d", len(c.Textures)))
	}
	for i, t := range c.Textures {
		if t.URI == "" {
			errs = append(errs, fmt.Errorf("texture %d: empty uri", i))
		}
		if _, err := texture.ParseColor(t.Placeholder); err != nil {
			errs = append(errs, fmt.Errorf("texture %d: %w", i, err))
		}
	}
	if c.Sphere.Slices < 3 || c.Sphere.Stacks < 2 {
		errs = append(errs, fmt.Errorf("sphere %dx%d is too coarse", c.Sphere.Slices, c.Sphere.Stacks))
	}
	if c.Cube.Subdivisions < 1 {
		errs = append(errs, fmt.Errorf("cube subdivisions %d", c.Cube.Subdivisions))
	}
	if c.AngleIncrement <= 0 {
		errs = append(errs, fmt.Errorf("angle increment %v", c.AngleIncrement))
	}
	if c.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("fetch timeout %v", c.FetchTimeout))
	}
	if _, err := texture.ParsePolicy(c.FailurePolicy); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Tessellation returns the generator parameters.
func (c Config) Tessellation() shape.Tessellation {
	return shape.Tessellation{
		SphereSlices: c.Sphere.Slices,
		SphereStacks: c.Sphere.Stacks,
		CubeDivs:     c.Cube.Subdivisions,
	}
}

// Sources converts the texture entries. Validate must have passed.
func (c Config) Sources() []texture.Source {
	out := make([]texture.Source, 0, len(c.Textures))
	for _, t := range c.Textures {
		ph, _ := texture.ParseColor(t.Placeholder)
		out = append(out, texture.Source{Name: t.Name, URI: t.URI, Placeholder: ph})
	}
	return out
}

// Policy returns the parsed failure policy.
func (c Config) Policy() texture.Policy {
	p, _ := texture.ParsePolicy(c.FailurePolicy)
	return p
}

// Clear returns the clear colour.
func (c Config) Clear() mgl32.Vec4 {
	return mgl32.Vec4(c.ClearColor)
}

// Resolve makes a relative path relative to BaseDir.
func (c Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}
