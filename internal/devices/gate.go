package devices

import "sync"

// Gate tells the poll loop whether the host is ready. While any hold is
// outstanding the loop blocks instead of scanning or polling.
type Gate struct {
	mu    sync.Mutex
	holds int
	ready chan struct{}
}

// NewGate returns an open gate.
func NewGate() *Gate {
	ch := make(chan struct{})
	close(ch)
	return &Gate{ready: ch}
}

// Hold closes the gate until the returned release is called. Release is
// safe to call more than once.
func (g *Gate) Hold() (release func()) {
	g.mu.Lock()
	if g.holds == 0 {
		g.ready = make(chan struct{})
	}
	g.holds++
	g.mu.Unlock()

	return sync.OnceFunc(func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.holds--
		if g.holds == 0 {
			close(g.ready)
		}
	})
}

// Ready reports whether no hold is outstanding.
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holds == 0
}

// Holds returns the number of outstanding holds.
func (g *Gate) Holds() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holds
}

// Wait returns a channel that is closed once the gate is open.
func (g *Gate) Wait() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}
