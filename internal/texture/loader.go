// Package texture manages the demo's texture slots: solid placeholders
// committed up front, background fetches, uploads on the render thread and
// the gate that fires once every slot has resolved.
package texture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/toxichemicals/GO/holy-textures/internal/gpu"
)

// Policy decides whether a failed fetch counts towards the gate.
type Policy int

const (
	// Strict never advances the gate on failure; one permanently failed
	// slot keeps the gate closed.
	Strict Policy = iota
	// CountFailures advances the gate on failure, leaving the placeholder
	// as the slot's final content.
	CountFailures
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case CountFailures:
		return "count-failures"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses the names returned by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "strict":
		return Strict, nil
	case "count-failures":
		return CountFailures, nil
	}
	return Strict, fmt.Errorf("unknown failure policy %q", s)
}

// Poster runs tasks on the render thread.
type Poster interface {
	Post(task func())
}

// Result is one slot's resolution.
type Result struct {
	Slot  *Slot
	State State
	Err   error
}

// Options configure a Loader.
type Options struct {
	Fetcher Fetcher
	Poster  Poster
	Policy  Policy
	// Timeout bounds each fetch. Zero means no limit.
	Timeout time.Duration
	// OnReady runs on the render thread when the gate completes.
	OnReady func()
	// Observer, if set, receives every resolution on the render thread.
	Observer func(Result)
	Logger   *slog.Logger
}

// Loader owns the slots and their gate. All methods except Start's
// background work must be called from the render thread.
type Loader struct {
	dev   gpu.Device
	slots []*Slot
	gate  *Gate
	opts  Options
	log   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewLoader creates one slot per source, binding slot i to texture unit i,
// and commits every placeholder before returning.
func NewLoader(dev gpu.Device, sources []Source, opts Options) *Loader {
	l := &Loader{dev: dev, opts: opts, log: opts.Logger}
	if l.log == nil {
		l.log = slog.Default()
	}
	if l.opts.Fetcher == nil {
		l.opts.Fetcher = NewFetcher(".")
	}
	l.gate = NewGate(len(sources), opts.OnReady)

	for i, src := range sources {
		s := &Slot{Name: src.Name, URI: src.URI, Unit: i, placeholder: src.Placeholder}
		s.commitPlaceholder(dev)
		l.slots = append(l.slots, s)
	}
	return l
}

// Slots returns the slots in unit order.
func (l *Loader) Slots() []*Slot { return l.slots }

// Slot returns the slot bound to unit i.
func (l *Loader) Slot(i int) *Slot { return l.slots[i] }

// Gate returns the load gate.
func (l *Loader) Gate() *Gate { return l.gate }

// Start launches one fetch per slot. Completions are posted to the
// Poster; Start itself never touches the device.
func (l *Loader) Start(ctx context.Context) {
	if l.opts.Poster == nil {
		panic("texture: Loader started without a Poster")
	}
	ctx, l.cancel = context.WithCancel(ctx)

	for _, s := range l.slots {
		l.wg.Add(1)
		go func(s *Slot) {
			defer l.wg.Done()
			img, err := l.fetch(ctx, s)
			l.opts.Poster.Post(func() { l.complete(s, img, err) })
		}(s)
	}
}

func (l *Loader) fetch(ctx context.Context, s *Slot) (*Image, error) {
	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	l.log.Debug("fetching texture", "slot", s.Name, "uri", s.URI)
	start := time.Now()
	img, err := l.opts.Fetcher.Fetch(ctx, s.URI)
	if err != nil {
		return nil, err
	}
	rgb := ToRGB(img)
	l.log.Debug("decoded texture", "slot", s.Name, "width", rgb.Width, "height", rgb.Height, "took", time.Since(start))
	return rgb, nil
}

// complete applies one fetch outcome. It runs on the render thread.
func (l *Loader) complete(s *Slot, img *Image, err error) {
	if l.closed || s.state != Pending {
		return
	}
	if err != nil {
		l.fail(s, &FetchError{Slot: s.Name, URI: s.URI, Err: err})
		return
	}

	s.upload(l.dev, img)
	s.state = Loaded
	if code := l.dev.Error(); code != gpu.NoError {
		s.err = &DeviceError{Slot: s.Name, Code: code}
		l.log.Error("device error after texture upload", "slot", s.Name, "err", s.err)
	}
	l.log.Info("texture loaded", "slot", s.Name, "width", img.Width, "height", img.Height)
	l.resolve(s, true)
}

func (l *Loader) fail(s *Slot, err *FetchError) {
	s.state = Failed
	s.err = err
	l.log.Warn("texture failed to load, keeping placeholder", "slot", s.Name, "uri", s.URI, "err", err.Err)
	l.resolve(s, l.opts.Policy == CountFailures)
}

func (l *Loader) resolve(s *Slot, advance bool) {
	if l.opts.Observer != nil {
		l.opts.Observer(Result{Slot: s, State: s.state, Err: s.err})
	}
	if !advance {
		return
	}
	l.gate.Advance()
	l.log.Debug("load gate advanced", "loaded", l.gate.Count(), "total", l.gate.Total())
}

// Wait blocks until every fetch goroutine has posted its result.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Close cancels outstanding fetches, drops any results still queued and
// deletes the slots' textures.
func (l *Loader) Close() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
	l.closed = true
	for _, s := range l.slots {
		s.Release(l.dev)
	}
}
