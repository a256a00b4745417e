// Package app wires the demo together: it owns the render state, the
// program, the meshes, the texture loader and the renderer, and decides
// when a frame needs drawing.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/toxichemicals/GO/holy-textures/internal/config"
	"github.com/toxichemicals/GO/holy-textures/internal/gpu"
	"github.com/toxichemicals/GO/holy-textures/internal/input"
	"github.com/toxichemicals/GO/holy-textures/internal/mesh"
	"github.com/toxichemicals/GO/holy-textures/internal/program"
	"github.com/toxichemicals/GO/holy-textures/internal/render"
	"github.com/toxichemicals/GO/holy-textures/internal/shader"
	"github.com/toxichemicals/GO/holy-textures/internal/shape"
	"github.com/toxichemicals/GO/holy-textures/internal/texture"
)

// InitError reports a startup step that left the context unusable.
type InitError struct {
	Step string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize %s: %v", e.Step, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Options carry the collaborators New does not build itself.
type Options struct {
	// Fetcher defaults to a texture.URIFetcher rooted at the config's
	// base directory.
	Fetcher texture.Fetcher
	// Wake interrupts the render thread's event wait after a Post.
	Wake func()
	// Observer receives every texture resolution.
	Observer func(texture.Result)
	Logger   *slog.Logger
}

// Context is everything one window renders with. Apart from Queue().Post,
// its methods must be called from the render thread.
type Context struct {
	dev      gpu.Device
	log      *slog.Logger
	queue    *Queue
	state    *render.State
	prog     *program.Program
	buildErr error
	meshes   mesh.Set
	loader   *texture.Loader
	renderer *render.Renderer
	input    *input.Handler
	cancel   context.CancelFunc

	dirty       bool
	swap        bool
	fullRenders int
}

// New builds the program and meshes, commits the texture placeholders,
// draws once with them and then starts fetching the real images. A shader
// build failure is logged and kept in BuildErr; the context still runs.
func New(dev gpu.Device, surface render.Surface, cfg config.Config, opts Options) (*Context, error) {
	if dev == nil {
		return nil, &InitError{Step: "graphics context", Err: errors.New("no device")}
	}
	if surface == nil {
		return nil, &InitError{Step: "drawing surface", Err: errors.New("no surface")}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &InitError{Step: "config", Err: err}
	}

	c := &Context{
		dev:    dev,
		log:    opts.Logger,
		queue:  NewQueue(opts.Wake),
		state:  render.NewState(),
		meshes: mesh.Set{},
	}
	if c.log == nil {
		c.log = slog.Default()
	}

	render.Setup(dev, cfg.Clear())

	doc, err := shader.Open(cfg.Resolve(cfg.Shader.Document))
	if err != nil {
		return nil, &InitError{Step: "shader document", Err: err}
	}
	c.prog, err = program.FromDocument(dev, doc, cfg.Shader.Vertex, cfg.Shader.Fragment)
	var be *program.BuildError
	switch {
	case errors.As(err, &be):
		c.buildErr = err
		c.log.Error("shader program failed to build", "stage", be.Stage, "id", be.ID, "log", be.Log)
	case err != nil:
		return nil, &InitError{Step: "shader program", Err: err}
	}

	for _, kind := range []shape.Kind{shape.Sphere, shape.Cube} {
		data, err := shape.Generate(kind, cfg.Tessellation())
		if err != nil {
			c.release()
			return nil, &InitError{Step: kind.String() + " mesh", Err: err}
		}
		if err := c.bind(kind, data); err != nil {
			c.release()
			return nil, &InitError{Step: kind.String() + " mesh", Err: err}
		}
	}
	if cfg.Model != "" {
		c.loadModel(cfg.Resolve(cfg.Model))
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = texture.NewFetcher(cfg.BaseDir)
	}
	c.loader = texture.NewLoader(dev, cfg.Sources(), texture.Options{
		Fetcher:  fetcher,
		Poster:   c.queue,
		Policy:   cfg.Policy(),
		Timeout:  cfg.FetchTimeout,
		OnReady:  c.onReady,
		Observer: opts.Observer,
		Logger:   c.log,
	})

	c.renderer = render.NewRenderer(dev, surface, c.prog, c.meshes, c.loader.Slot(0), c.loader.Slot(1), c.log)
	_, hasModel := c.meshes[shape.Model]
	c.input = input.NewHandler(c.state, cfg.AngleIncrement, hasModel, c.log)

	// placeholders are on screen before any fetch starts
	c.draw()

	var ctx context.Context
	ctx, c.cancel = context.WithCancel(context.Background())
	c.loader.Start(ctx)
	c.log.Info("started", "textures", c.loader.Gate().Total(), "policy", cfg.Policy())
	return c, nil
}

func (c *Context) bind(kind shape.Kind, data shape.Data) error {
	m, err := mesh.Bind(c.dev, data, c.prog.Attribs)
	if err != nil {
		return err
	}
	c.meshes[kind] = m
	c.log.Debug("mesh bound", "shape", kind, "vertices", data.VertexCount(), "indices", m.IndexCount())
	return nil
}

// loadModel adds the glTF model. Failures only disable the model key.
func (c *Context) loadModel(path string) {
	data, err := shape.LoadGLTF(path)
	if err == nil {
		err = c.bind(shape.Model, data)
	}
	if err != nil {
		c.log.Warn("model unavailable", "path", path, "err", err)
	}
}

func (c *Context) onReady() {
	c.fullRenders++
	c.log.Info("all textures resolved", "total", c.loader.Gate().Total())
	c.Redraw()
}

func (c *Context) draw() {
	c.renderer.Draw(c.state)
	c.swap = true
}

// Queue returns the render-thread task queue.
func (c *Context) Queue() *Queue { return c.queue }

// State returns the render selection.
func (c *Context) State() *render.State { return c.state }

// Loader returns the texture loader.
func (c *Context) Loader() *texture.Loader { return c.loader }

// Renderer returns the renderer.
func (c *Context) Renderer() *render.Renderer { return c.renderer }

// Program returns the shader program, which may be unlinked.
func (c *Context) Program() *program.Program { return c.prog }

// Meshes returns the bound meshes.
func (c *Context) Meshes() mesh.Set { return c.meshes }

// BuildErr returns the shader build failure, if there was one.
func (c *Context) BuildErr() error { return c.buildErr }

// FullRenders returns how many times the load gate requested a frame.
func (c *Context) FullRenders() int { return c.fullRenders }

// HandleKey applies a key press and schedules a frame when it changed
// anything.
func (c *Context) HandleKey(r rune) bool {
	if !c.input.HandleKey(r) {
		return false
	}
	c.Redraw()
	return true
}

// Redraw schedules a frame.
func (c *Context) Redraw() { c.dirty = true }

// Frame runs queued tasks, draws if a frame is scheduled and reports
// whether anything was drawn since the last call.
func (c *Context) Frame() bool {
	c.queue.Drain()
	if c.dirty {
		c.dirty = false
		c.draw()
	}
	swap := c.swap
	c.swap = false
	return swap
}

// Close stops outstanding fetches and deletes every GPU object.
func (c *Context) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.loader != nil {
		c.loader.Close()
	}
	c.queue.Drain()
	c.release()
}

func (c *Context) release() {
	c.meshes.Release(c.dev)
	if c.prog != nil {
		c.prog.Release(c.dev)
		c.prog = nil
	}
}
