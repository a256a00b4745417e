package texture

import "sync"

// Gate counts resolved slots towards a fixed total and fires once when the
// count reaches it. Advance may be called from any goroutine.
type Gate struct {
	mu      sync.Mutex
	count   int
	total   int
	onReady func()
	done    chan struct{}
}

// NewGate returns a gate expecting total resolutions. onReady, if non-nil,
// runs on the goroutine whose Advance completes the gate. A gate with a
// total of zero is never ready; there is nothing to wait for and nothing
// to trigger.
func NewGate(total int, onReady func()) *Gate {
	return &Gate{total: total, onReady: onReady, done: make(chan struct{})}
}

// Advance records one resolution. It reports whether this call completed
// the gate. Calls beyond the total are ignored.
func (g *Gate) Advance() bool {
	g.mu.Lock()
	if g.count >= g.total {
		g.mu.Unlock()
		return false
	}
	g.count++
	fire := g.count == g.total
	if fire {
		close(g.done)
	}
	g.mu.Unlock()

	if fire && g.onReady != nil {
		g.onReady()
	}
	return fire
}

// Count returns the number of resolutions so far.
func (g *Gate) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Total returns the number of expected resolutions.
func (g *Gate) Total() int {
	return g.total
}

// Done is closed when the gate completes.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}
