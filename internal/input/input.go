// Package input maps key presses onto the render state.
package input

import (
	"log/slog"

	"github.com/toxichemicals/GO/holy-textures/internal/render"
	"github.com/toxichemicals/GO/holy-textures/internal/shape"
)

// DefaultIncrement is the rotation step in degrees.
const DefaultIncrement = 5

// Handler applies key presses to a State.
type Handler struct {
	state     *render.State
	increment float32
	// hasModel enables the model key.
	hasModel bool
	log      *slog.Logger
}

// NewHandler returns a handler for st. A non-positive increment means
// DefaultIncrement.
func NewHandler(st *render.State, increment float32, hasModel bool, logger *slog.Logger) *Handler {
	if increment <= 0 {
		increment = DefaultIncrement
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{state: st, increment: increment, hasModel: hasModel, log: logger}
}

// HandleKey applies r and reports whether the frame must be redrawn.
// Letters are case sensitive: the upper case rotation keys turn the other
// way.
func (h *Handler) HandleKey(r rune) bool {
	st := h.state
	switch r {
	case 's':
		st.Shape = shape.Sphere
	case 'c':
		st.Shape = shape.Cube
	case 'm':
		if !h.hasModel {
			h.log.Debug("no model loaded")
			return false
		}
		st.Shape = shape.Model

	case '1', 'g':
		st.Mode = render.SourceA
	case '2', 'i':
		st.Mode = render.SourceB
	case '3', 'p':
		st.Mode = render.Procedural

	case 'x':
		st.Rotate(0, h.increment)
	case 'X':
		st.Rotate(0, -h.increment)
	case 'y':
		st.Rotate(1, h.increment)
	case 'Y':
		st.Rotate(1, -h.increment)
	case 'z':
		st.Rotate(2, h.increment)
	case 'Z':
		st.Rotate(2, -h.increment)
	case 'r':
		st.ResetAngles()

	default:
		return false
	}
	h.log.Debug("key", "key", string(r), "shape", st.Shape, "mode", st.Mode, "angles", st.Angles())
	return true
}
