// Package simstudio is an in-process simulation of the spatial audio
// engine. It implements every studio interface with deterministic,
// frame-driven behaviour and no audio output.
//
// Bring-up is delivered either from a background goroutine (ModeAsync),
// like a real runtime, or one callback per Step call (ModeStepped), which
// lets tests observe every intermediate phase.
//
// Faults can be injected per operation name to exercise error paths.
package simstudio

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/earshot/internal/spatial"
	"github.com/roach88/earshot/internal/studio"
)

// Mode selects how bring-up callbacks are delivered.
type Mode int

const (
	// ModeAsync delivers both callbacks from a goroutine started by Bootstrap.
	ModeAsync Mode = iota

	// ModeStepped delivers one callback per Step call.
	ModeStepped
)

// DefaultSampleRate is the native rate every simulated driver reports.
const DefaultSampleRate = 48000

// Engine is a simulated engine runtime. Its zero value is not usable; call
// New.
type Engine struct {
	mu sync.Mutex

	mode    Mode
	catalog Catalog
	stall   bool

	hooks   *studio.Hooks
	stage   int
	bootErr error
	done    chan struct{}

	staged map[string]string // name -> url
	debug  studio.DebugFunc

	faults   map[string]studio.Result
	rawState *int

	sys *system
}

// Option configures an Engine.
type Option func(*Engine)

// WithMode selects async or stepped bring-up.
func WithMode(m Mode) Option {
	return func(e *Engine) {
		e.mode = m
	}
}

// WithCatalog replaces the default catalog.
func WithCatalog(c Catalog) Option {
	return func(e *Engine) {
		e.catalog = c.clone()
	}
}

// WithStall makes bring-up stop after the pre-run callback, leaving the
// session permanently short of ready.
func WithStall() Option {
	return func(e *Engine) {
		e.stall = true
	}
}

// New creates a simulated engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		mode:    ModeAsync,
		catalog: DefaultCatalog(),
		staged:  make(map[string]string),
		faults:  make(map[string]studio.Result),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bootstrap implements studio.Bootstrapper.
func (e *Engine) Bootstrap(hooks studio.Hooks) {
	e.mu.Lock()
	if e.hooks != nil {
		e.mu.Unlock()
		return
	}
	e.hooks = &hooks
	mode := e.mode
	e.mu.Unlock()

	if mode == ModeAsync {
		go func() {
			for e.Step() {
			}
		}()
	}
}

// Step delivers the next pending bring-up callback. It reports whether
// another callback remains.
func (e *Engine) Step() bool {
	e.mu.Lock()
	hooks := e.hooks
	stage := e.stage
	stall := e.stall
	if hooks == nil || stage >= 2 || (stage == 1 && stall) {
		e.mu.Unlock()
		return false
	}
	e.stage++
	e.mu.Unlock()

	var err error
	switch stage {
	case 0:
		if hooks.PreRun != nil {
			err = hooks.PreRun(stager{e})
		}
	case 1:
		if hooks.RuntimeInitialized != nil {
			err = hooks.RuntimeInitialized(runtime{e})
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.bootErr = err
		e.stage = 2
	}
	if e.stage >= 2 {
		select {
		case <-e.done:
		default:
			close(e.done)
		}
		return false
	}
	return !(e.stage == 1 && e.stall)
}

// Run delivers every remaining callback.
func (e *Engine) Run() {
	for e.Step() {
	}
}

// Done is closed once bring-up has delivered its last callback.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// BootError returns the error a bring-up callback returned, if any.
func (e *Engine) BootError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bootErr
}

// InjectFault makes every later call to op return res. Op names match the
// studio method, e.g. "system.set_listener_weight" or "bank.load_sample_data".
// Injecting studio.OK clears the fault.
func (e *Engine) InjectFault(op string, res studio.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res == studio.OK {
		delete(e.faults, op)
		return
	}
	e.faults[op] = res
}

// ForcePlaybackState makes every instance report raw, including values
// outside the known set.
func (e *Engine) ForcePlaybackState(raw int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rawState = &raw
}

// SetDebugFunc implements studio.DebugSink.
func (e *Engine) SetDebugFunc(fn studio.DebugFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debug = fn
}

// StagedFiles returns staged bank names mapped to their source URLs.
func (e *Engine) StagedFiles() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.staged))
	for k, v := range e.staged {
		out[k] = v
	}
	return out
}

// fault returns the injected result for op. Caller holds e.mu.
func (e *Engine) fault(op string) studio.Result {
	if res, ok := e.faults[op]; ok {
		return res
	}
	return studio.OK
}

// emit prepares a debug message. Caller holds e.mu and runs the returned
// func once the lock is released, so the callback may log freely.
func (e *Engine) emit(flags studio.DebugFlags, fn, format string, args ...any) func() {
	debug := e.debug
	if debug == nil {
		return func() {}
	}
	msg := fmt.Sprintf(format, args...) + "\n"
	return func() { debug(flags, fn, msg) }
}

type stager struct{ e *Engine }

func (s stager) StageFile(dir, name, url string) error {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if res := s.e.fault("runtime.stage_file"); res != studio.OK {
		return fmt.Errorf("stage %s: %s", name, res)
	}
	if name == "" {
		return fmt.Errorf("stage: empty file name")
	}
	s.e.staged[strings.TrimPrefix(dir+name, "/")] = url
	return nil
}

type runtime struct{ e *Engine }

func (r runtime) CreateSystem() (studio.System, studio.Result) {
	r.e.mu.Lock()
	defer r.e.mu.Unlock()
	if res := r.e.fault("runtime.create_system"); res != studio.OK {
		return nil, res
	}
	r.e.sys = newSystem(r.e)
	return r.e.sys, studio.OK
}

// SetDebugFunc lets the loader find the debug sink on the runtime value.
func (r runtime) SetDebugFunc(fn studio.DebugFunc) {
	r.e.SetDebugFunc(fn)
}

// Snapshot is a point-in-time view of simulated engine state.
type Snapshot struct {
	Initialized     bool
	Released        bool
	Frames          int
	DSPBufferLength int
	DSPBufferCount  int
	SampleRate      int
	SpeakerMode     studio.SpeakerMode
	VirtualChannels int
	StudioFlags     studio.InitFlags
	LoadedBanks     []string
	SampleData      []string
	NumListeners    int
	Listeners       []ListenerState
	Parameters      map[string]float64
	LiveInstances   int
	Collected       int
}

// ListenerState is one listener slot as last set.
type ListenerState struct {
	Attributes spatial.Attributes3D
	Weight     float64
	Set        bool
}

// Snapshot returns the current state of the created system. The zero
// Snapshot is returned before CreateSystem.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.sys
	if s == nil {
		return Snapshot{}
	}

	snap := Snapshot{
		Initialized:     s.initialized,
		Released:        s.released,
		Frames:          s.frames,
		DSPBufferLength: s.core.bufferLength,
		DSPBufferCount:  s.core.bufferCount,
		SampleRate:      s.core.sampleRate,
		SpeakerMode:     s.core.speakerMode,
		VirtualChannels: s.virtualChannels,
		StudioFlags:     s.flags,
		NumListeners:    s.numListeners,
		Listeners:       append([]ListenerState(nil), s.listeners[:]...),
		Parameters:      make(map[string]float64, len(s.params)),
		LiveInstances:   len(s.instances),
		Collected:       s.collected,
	}
	for _, name := range s.bankOrder {
		snap.LoadedBanks = append(snap.LoadedBanks, name)
	}
	for k, v := range s.params {
		snap.Parameters[k] = v
	}
	for k := range s.sampleData {
		snap.SampleData = append(snap.SampleData, k)
	}
	sort.Strings(snap.SampleData)
	return snap
}
