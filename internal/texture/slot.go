package texture

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/toxichemicals/GO/holy-textures/internal/gpu"
)

// State is a slot's position in its load lifecycle.
type State int

const (
	Pending State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Source describes one texture to load.
type Source struct {
	Name        string
	URI         string
	Placeholder color.RGBA
}

// Slot is one managed texture. Its handle is valid from the moment the
// placeholder is committed until Release.
type Slot struct {
	Name string
	URI  string
	// Unit is the texture unit the renderer binds this slot to.
	Unit int

	handle      gpu.Texture
	placeholder color.RGBA
	state       State
	err         error
}

// Handle returns the slot's texture object.
func (s *Slot) Handle() gpu.Texture { return s.handle }

// State returns the slot's load state.
func (s *Slot) State() State { return s.state }

// Err returns the error that failed the slot, if any.
func (s *Slot) Err() error { return s.err }

// commitPlaceholder creates the texture object and fills it with a single
// solid pixel so it can be bound before real content arrives.
func (s *Slot) commitPlaceholder(dev gpu.Device) {
	s.handle = dev.CreateTexture()
	s.state = Pending
	px := []byte{s.placeholder.R, s.placeholder.G, s.placeholder.B}
	gpu.WithTexture(dev, s.handle, func() {
		dev.TexImage2D(0, gpu.RGB, 1, 1, gpu.RGB, px)
		// no mipmaps yet; the default min filter would leave it incomplete
		dev.TexParameter(gpu.TexMinFilter, gpu.Linear)
	})
}

// upload replaces the placeholder with img. The internal format, format and
// type match the placeholder's so the object is redefined in place.
func (s *Slot) upload(dev gpu.Device, img *Image) {
	gpu.WithTexture(dev, s.handle, func() {
		dev.SetUnpackFlipY(true)
		dev.TexImage2D(0, gpu.RGB, img.Width, img.Height, gpu.RGB, img.Pix)
		// clamp-to-edge keeps non-power-of-two images complete
		dev.TexParameter(gpu.TexWrapS, gpu.ClampToEdge)
		dev.TexParameter(gpu.TexWrapT, gpu.ClampToEdge)
		dev.GenerateMipmap()
		dev.TexParameter(gpu.TexMinFilter, gpu.LinearMipmapLinear)
		dev.TexParameter(gpu.TexMagFilter, gpu.Linear)
	})
}

// Bind makes the slot's texture current on its unit.
func (s *Slot) Bind(dev gpu.Device) {
	dev.ActiveTexture(s.Unit)
	dev.BindTexture(s.handle)
}

// Unbind clears the slot's unit and leaves it active.
func (s *Slot) Unbind(dev gpu.Device) {
	dev.ActiveTexture(s.Unit)
	dev.BindTexture(0)
}

// Release deletes the texture object.
func (s *Slot) Release(dev gpu.Device) {
	if s.handle != 0 {
		dev.DeleteTexture(s.handle)
		s.handle = 0
	}
}

// ParseColor parses "#rrggbb" or "#rgb" into an opaque colour.
func ParseColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 0xff}
	hex := strings.TrimPrefix(s, "#")
	var err error
	switch len(hex) {
	case 6:
		_, err = fmt.Sscanf(hex, "%2x%2x%2x", &c.R, &c.G, &c.B)
	case 3:
		_, err = fmt.Sscanf(hex, "%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 17
		c.G *= 17
		c.B *= 17
	default:
		err = fmt.Errorf("want 3 or 6 hex digits")
	}
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return c, nil
}
