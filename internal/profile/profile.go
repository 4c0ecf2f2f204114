// Package profile implements the per-function call counters and the
// COLD/WARM/HOT/COMPILING/COMPILED/FAILED state machine described in
// spec.md §4.7. The teacher (_examples/tinyrange-rtg) ahead-of-time
// compiles every function and has no profile-guided tiering, so this
// package has no direct pack analogue; it is built from spec.md §4.7's
// literal four-state description (COLD/WARM/HOT plus the COMPILING/
// COMPILED/FAILED extensions spec.md §4.9 requires for the JIT handoff).
package profile

import "sync"

// State is one function's profiling/compilation state. Transitions are
// one-way except FAILED, which is permanent (spec.md §4.7: "State
// transitions are one-way except FAILED (permanent)").
type State int

const (
	Cold State = iota
	Warm
	Hot
	Compiling
	Compiled
	Failed
)

// String names the state for diagnostics and the JIT driver's logging.
func (s State) String() string {
	switch s {
	case Cold:
		return "COLD"
	case Warm:
		return "WARM"
	case Hot:
		return "HOT"
	case Compiling:
		return "COMPILING"
	case Compiled:
		return "COMPILED"
	case Failed:
		return "FAILED"
	default:
		return "?"
	}
}

// entry is one function's live counter and state.
type entry struct {
	calls int64
	state State
}

// Profiler tracks every function's call count and tiering state. It is
// safe to share a single instance across the interpreter's call path and
// the JIT compilation driver, since spec.md §5 guarantees a single VM
// thread drives both — the mutex here guards against nothing more than
// defensive reentrancy from builtins, not real concurrency.
type Profiler struct {
	mu        sync.Mutex
	threshold int
	entries   map[int]*entry
}

// New constructs a profiler with the given hot-call threshold. spec.md
// §4.7's documented default is 100 calls.
func New(hotThreshold int) *Profiler {
	if hotThreshold <= 0 {
		hotThreshold = 100
	}
	return &Profiler{threshold: hotThreshold, entries: map[int]*entry{}}
}

func (p *Profiler) get(fnIndex int) *entry {
	e, ok := p.entries[fnIndex]
	if !ok {
		e = &entry{}
		p.entries[fnIndex] = e
	}
	return e
}

// RecordCall bumps fnIndex's counter and advances COLD->WARM->HOT at half
// and full threshold respectively (spec.md §4.7: "at half the hot
// threshold the state becomes WARM; at the hot threshold it becomes HOT").
// Calls once a function has left COLD/WARM/HOT (i.e. COMPILING, COMPILED,
// or FAILED) still count, but no longer drive a state transition.
func (p *Profiler) RecordCall(fnIndex int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.get(fnIndex)
	e.calls++
	switch e.state {
	case Cold:
		if e.calls >= int64(p.threshold) {
			e.state = Hot
		} else if e.calls >= int64(p.threshold/2) {
			e.state = Warm
		}
	case Warm:
		if e.calls >= int64(p.threshold) {
			e.state = Hot
		}
	}
}

// State reports fnIndex's current tier.
func (p *Profiler) State(fnIndex int) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.get(fnIndex).state
}

// Calls reports fnIndex's live call count.
func (p *Profiler) Calls(fnIndex int) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.get(fnIndex).calls
}

// MarkCompiling transitions a HOT function to COMPILING. Returns false if
// fnIndex was not HOT (the JIT driver should not attempt compilation twice).
func (p *Profiler) MarkCompiling(fnIndex int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.get(fnIndex)
	if e.state != Hot {
		return false
	}
	e.state = Compiling
	return true
}

// MarkCompiled transitions a COMPILING function to COMPILED.
func (p *Profiler) MarkCompiled(fnIndex int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.get(fnIndex).state = Compiled
}

// MarkFailed transitions a function to FAILED, permanently. Per spec.md
// §4.9: "any per-opcode failure in emission ... moves the function to
// FAILED and leaves it interpreter-only forever."
func (p *Profiler) MarkFailed(fnIndex int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.get(fnIndex).state = Failed
}
