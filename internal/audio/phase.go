package audio

import (
	"fmt"
	"sync"
)

// Phase is the initialization state of an audio session.
//
// The happy path is Uninitialized → AwaitingRuntimeBringup → LoadingBanks →
// Ready. Failed and Shutdown are terminal. No phase ever moves backwards.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseAwaitingRuntimeBringup
	PhaseLoadingBanks
	PhaseReady
	PhaseFailed
	PhaseShutdown
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseAwaitingRuntimeBringup:
		return "awaiting_runtime_bringup"
	case PhaseLoadingBanks:
		return "loading_banks"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	case PhaseShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseFailed || p == PhaseShutdown
}

// allowed lists the legal transitions out of each phase.
var allowed = map[Phase][]Phase{
	PhaseUninitialized:          {PhaseAwaitingRuntimeBringup, PhaseFailed},
	PhaseAwaitingRuntimeBringup: {PhaseLoadingBanks, PhaseFailed},
	PhaseLoadingBanks:           {PhaseReady, PhaseFailed},
	PhaseReady:                  {PhaseShutdown},
}

// gate holds the current phase and is shared by the loader, the session,
// and every handle wrapper. Advanced by lifecycle callbacks, read by the
// frame loop without blocking on bring-up.
type gate struct {
	mu    sync.RWMutex
	phase Phase
}

func newGate() *gate {
	return &gate{phase: PhaseUninitialized}
}

func (g *gate) Phase() Phase {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.phase
}

// advance moves to next if the transition is legal.
func (g *gate) advance(next Phase) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, p := range allowed[g.phase] {
		if p == next {
			g.phase = next
			return nil
		}
	}
	return &ConsistencyError{
		Code:    ErrCodeCallbackOrder,
		Message: fmt.Sprintf("illegal phase transition %s -> %s", g.phase, next),
	}
}

// expect fails unless the gate is currently in want.
func (g *gate) expect(op string, want Phase) error {
	if p := g.Phase(); p != want {
		return &ConsistencyError{
			Code:    ErrCodeCallbackOrder,
			Op:      op,
			Message: fmt.Sprintf("callback delivered in phase %s, expected %s", p, want),
		}
	}
	return nil
}

// check fails with NotReadyError unless the gate is in PhaseReady.
func (g *gate) check(op string) error {
	if p := g.Phase(); p != PhaseReady {
		return &NotReadyError{Op: op, Phase: p}
	}
	return nil
}
