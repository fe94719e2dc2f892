package guard

import "time"

// State is the verification state of one tab.
type State int

const (
	Idle State = iota
	Verifying
	Authorized
	Denied
	Error
)

func (s State) String() string {
	switch s {
	case Verifying:
		return "verifying"
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type tabState struct {
	gen     uint64
	state   State
	touched time.Time
}

// begin starts a pass on tab and returns its generation. Older passes on the
// same tab lose ownership from this point on.
func (g *Guard) begin(tab string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.pruneLocked(now)

	ts, ok := g.tabs[tab]
	if !ok {
		ts = &tabState{}
		g.tabs[tab] = ts
	}
	ts.gen++
	ts.state = Verifying
	ts.touched = now
	return ts.gen
}

// owns reports whether gen is still the latest pass on tab.
func (g *Guard) owns(tab string, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	ts, ok := g.tabs[tab]
	return ok && ts.gen == gen
}

// settle records the final state of a pass if it still owns the tab.
func (g *Guard) settle(tab string, gen uint64, st State) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	ts, ok := g.tabs[tab]
	if !ok || ts.gen != gen {
		return false
	}
	ts.state = st
	ts.touched = g.now()
	return true
}

// State returns the current state of tab. Unknown tabs are Idle.
func (g *Guard) State(tab string) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ts, ok := g.tabs[tab]; ok {
		return ts.state
	}
	return Idle
}

// pruneLocked forgets settled tabs that have been quiet longer than the idle TTL.
func (g *Guard) pruneLocked(now time.Time) {
	if g.cfg.IdleTTL <= 0 || now.Sub(g.lastPrune) < g.cfg.IdleTTL/2 {
		return
	}
	g.lastPrune = now
	for tab, ts := range g.tabs {
		if ts.state != Verifying && now.Sub(ts.touched) > g.cfg.IdleTTL {
			delete(g.tabs, tab)
		}
	}
}
