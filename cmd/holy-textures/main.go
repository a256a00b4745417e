package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spf13/pflag"

	"github.com/toxichemicals/GO/holy-textures/internal/app"
	"github.com/toxichemicals/GO/holy-textures/internal/config"
	"github.com/toxichemicals/GO/holy-textures/internal/gpu/gldevice"
)

func init() {
	// GLFW event handling must run on the main thread.
	runtime.LockOSThread()
}

// AppCore owns the window and the render context built on it.
type AppCore struct {
	window *glfw.Window
	ctx    *app.Context
	cfg    config.Config
	log    *slog.Logger

	vsyncEnabled bool
}

// windowSurface reports the framebuffer size, which differs from the
// window size on high-DPI displays.
type windowSurface struct {
	window *glfw.Window
}

func (s windowSurface) DrawableSize() (int, int) {
	return s.window.GetFramebufferSize()
}

// initializeWindow handles GLFW initialization and window creation.
func (a *AppCore) initializeWindow() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	w := a.cfg.Window
	window, err := glfw.CreateWindow(w.Width, w.Height, w.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}
	a.window = window
	a.window.MakeContextCurrent()
	a.setVSync(w.VSync)
	return nil
}

func (a *AppCore) setVSync(on bool) {
	a.vsyncEnabled = on
	if on {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	a.log.Debug("vsync", "enabled", on)
}

// installCallbacks routes window events into the render context. Callbacks
// run inside glfw's event functions, so on the render thread.
func (a *AppCore) installCallbacks() {
	a.window.SetCharCallback(func(_ *glfw.Window, char rune) {
		a.ctx.HandleKey(char)
	})
	a.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyF2:
			a.setVSync(!a.vsyncEnabled)
		}
	})
	a.window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		a.log.Debug("framebuffer resized", "width", width, "height", height)
		a.ctx.Redraw()
	})
	a.window.SetRefreshCallback(func(_ *glfw.Window) {
		a.ctx.Redraw()
	})
}

// updateTitle shows load progress and the current selection.
func (a *AppCore) updateTitle() {
	gate := a.ctx.Loader().Gate()
	st := a.ctx.State()
	a.window.SetTitle(fmt.Sprintf("%s | %s, %s | textures %d/%d | frame %d",
		a.cfg.Window.Title, st.Shape, st.Mode, gate.Count(), gate.Total(), a.ctx.Renderer().Frames()))
}

func (a *AppCore) run() {
	for !a.window.ShouldClose() {
		if a.ctx.Frame() {
			a.window.SwapBuffers()
			a.updateTitle()
		}
		// Blocks until input arrives or a fetch posts its result.
		glfw.WaitEventsTimeout(0.5)
	}
}

// start opens the window and builds the render context on it.
func (a *AppCore) start() error {
	if err := a.initializeWindow(); err != nil {
		return fmt.Errorf("window initialization failed: %w", err)
	}
	dev, err := gldevice.New()
	if err != nil {
		return fmt.Errorf("OpenGL initialization failed: %w", err)
	}
	a.log.Info("OpenGL ready", "version", dev.Version())

	a.ctx, err = app.New(dev, windowSurface{a.window}, a.cfg, app.Options{
		Wake:   glfw.PostEmptyEvent,
		Logger: a.log,
	})
	if err != nil {
		return err
	}
	a.installCallbacks()
	return nil
}

func (a *AppCore) shutdown() {
	if a.ctx != nil {
		a.ctx.Close()
	}
	if a.window != nil {
		a.window.Destroy()
	}
	glfw.Terminate()
}

func main() {
	configPath := pflag.StringP("config", "c", "", "YAML configuration file")
	policy := pflag.String("failure-policy", "", "texture failure policy: strict or count-failures")
	model := pflag.String("model", "", "glTF/GLB model shown with the m key")
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	pflag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if *policy != "" {
		cfg.FailurePolicy = *policy
	}
	if *model != "" {
		cfg.Model = *model
	}

	a := &AppCore{cfg: cfg, log: logger}
	if err := a.start(); err != nil {
		logger.Error("application initialization failed", "err", err)
		a.shutdown()
		os.Exit(1)
	}

	logger.Info("running; keys: s c m | 1 2 3 (g i p) | x y z (shift reverses) | r reset | F2 vsync")
	a.run()
	logger.Info("shutting down")
	a.shutdown()
}
