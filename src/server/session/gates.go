package session

import "sync"

// ReadinessGate is a named one-shot signal: initially unset, set at most
// once, waiters suspend until it is set. Integrations use gates to express
// "this precondition for Ready has been satisfied".
type ReadinessGate struct {
	name string
	once sync.Once
	ch   chan struct{}
}

func newReadinessGate(name string) *ReadinessGate {
	return &ReadinessGate{name: name, ch: make(chan struct{})}
}

// Name returns the gate's name.
func (g *ReadinessGate) Name() string {
	return g.name
}

// Set marks the gate satisfied. Further calls are no-ops.
func (g *ReadinessGate) Set() {
	g.once.Do(func() { close(g.ch) })
}

// IsSet reports whether the gate has been satisfied.
func (g *ReadinessGate) IsSet() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}

// Done is closed once the gate is set.
func (g *ReadinessGate) Done() <-chan struct{} {
	return g.ch
}

// gateSet lazily creates gates by name so handlers and waiters can agree on
// a gate before either side has referenced it.
type gateSet struct {
	mu    sync.Mutex
	gates map[string]*ReadinessGate
}

func newGateSet() *gateSet {
	return &gateSet{gates: make(map[string]*ReadinessGate)}
}

func (gs *gateSet) gate(name string) *ReadinessGate {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if g, ok := gs.gates[name]; ok {
		return g
	}
	g := newReadinessGate(name)
	gs.gates[name] = g
	return g
}
