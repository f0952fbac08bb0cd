// Package audio is the session layer between a host frame loop and a
// spatial audio engine.
//
// A Loader drives the engine's asynchronous bring-up through three phases
// (asset staging, runtime bring-up, bank loading) and hands out a Session
// once ready. The Session owns the engine system and exposes event lookup,
// listener updates, and global parameters; EventDescription and
// EventInstance wrap the engine's two-tier event model.
//
// Everything is driven from one logical thread: the host's frame loop plus
// callbacks delivered by the bring-up capability. Nothing blocks waiting
// for bring-up; the frame loop polls Loader.Session until it succeeds.
//
// Errors are structured: NotReadyError, EngineCallError, ValidationError,
// and ConsistencyError. None are retried here.
package audio

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/earshot/internal/studio"
	"github.com/roach88/earshot/internal/trace"
)

// Loader is the initialization state machine. It is one-shot: a failed or
// shut-down loader never returns to an earlier phase.
type Loader struct {
	cfg  Config
	boot studio.Bootstrapper
	sh   *shared

	debug studio.DebugFunc

	startOnce sync.Once

	mu      sync.Mutex
	session *Session
	err     error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.sh.logger = logger
	}
}

// WithRecorder records every engine call the session makes.
func WithRecorder(r trace.Recorder) LoaderOption {
	return func(l *Loader) {
		l.sh.recorder = r
	}
}

// WithClock sets the logical clock used to stamp recorded calls.
func WithClock(c *trace.Clock) LoaderOption {
	return func(l *Loader) {
		l.sh.clock = c
	}
}

// WithTokenGenerator sets how the session token is produced.
// Default: trace.UUIDv7Generator.
func WithTokenGenerator(g trace.TokenGenerator) LoaderOption {
	return func(l *Loader) {
		l.sh.token = g.Generate()
	}
}

// WithDebugFunc forwards engine debug output to fn when the runtime
// supports it. Use DebugLogger to route it into slog.
func WithDebugFunc(fn studio.DebugFunc) LoaderOption {
	return func(l *Loader) {
		l.debug = fn
	}
}

// NewLoader validates cfg and prepares a loader. Call Start to begin.
func NewLoader(cfg Config, boot studio.Bootstrapper, opts ...LoaderOption) (*Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if boot == nil {
		return nil, &ValidationError{Op: "loader.new", Message: "bootstrapper", Err: ErrNilHandle}
	}

	banks := make([]string, len(cfg.Banks))
	copy(banks, cfg.Banks)
	cfg.Banks = banks

	l := &Loader{
		cfg:  cfg,
		boot: boot,
		sh: &shared{
			gate:   newGate(),
			logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			clock:  trace.NewClock(),
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.sh.token == "" {
		l.sh.token = trace.UUIDv7Generator{}.Generate()
	}
	return l, nil
}

// Start hands the lifecycle callbacks to the bring-up capability. Only the
// first call has any effect. It does not wait for bring-up.
func (l *Loader) Start() {
	l.startOnce.Do(func() {
		l.sh.logger.Info("audio bring-up starting", "session", l.sh.token, "banks", l.cfg.Banks)
		l.boot.Bootstrap(studio.Hooks{
			PreRun:             l.preRun,
			RuntimeInitialized: l.runtimeInitialized,
		})
	})
}

// Phase returns the current phase without blocking.
func (l *Loader) Phase() Phase {
	return l.sh.gate.Phase()
}

// Token is the session correlation token.
func (l *Loader) Token() string {
	return l.sh.token
}

// Session returns the ready session. Before Ready it returns a
// NotReadyError carrying the current phase; after a fatal bring-up failure
// it returns that failure.
func (l *Loader) Session() (*Session, error) {
	const op = "loader.get_loaded"
	phase := l.Phase()

	l.mu.Lock()
	defer l.mu.Unlock()

	switch phase {
	case PhaseReady:
		return l.session, nil
	case PhaseFailed:
		return nil, l.err
	default:
		return nil, &NotReadyError{Op: op, Phase: phase}
	}
}

// Err returns the fatal bring-up error, if any.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// preRun stages every bank so the runtime can read it.
func (l *Loader) preRun(fs studio.FileStager) error {
	const op = "loader.pre_run"
	if err := l.sh.gate.expect(op, PhaseUninitialized); err != nil {
		return l.fail(err)
	}

	for _, name := range l.cfg.Banks {
		url := l.cfg.BanksPath + name
		err := fs.StageFile("/", name, url)
		result := studio.OK.String()
		if err != nil {
			result = err.Error()
		}
		l.sh.record("runtime.stage_file", name, map[string]any{"url": url}, result)
		if err != nil {
			return l.fail(fmt.Errorf("stage %s: %w", name, err))
		}
		l.sh.logger.Debug("bank staged", "bank", name, "url", url)
	}

	if err := l.transition(PhaseAwaitingRuntimeBringup); err != nil {
		return l.fail(err)
	}
	return nil
}

// runtimeInitialized creates and configures the studio system, loads the
// banks, and publishes the session.
func (l *Loader) runtimeInitialized(rt studio.Runtime) error {
	const op = "loader.runtime_initialized"
	if err := l.sh.gate.expect(op, PhaseAwaitingRuntimeBringup); err != nil {
		return l.fail(err)
	}

	if sink, ok := rt.(studio.DebugSink); ok && l.debug != nil {
		sink.SetDebugFunc(l.debug)
	}

	var system studio.System
	err := l.sh.invoke("runtime.create_system", "runtime", nil, func() studio.Result {
		var res studio.Result
		system, res = rt.CreateSystem()
		return res
	})
	if err != nil {
		return l.fail(err)
	}
	if system == nil {
		return l.fail(&ValidationError{Op: "runtime.create_system", Err: ErrNilHandle})
	}
	l.sh.system = system

	if err := l.configure(); err != nil {
		return l.failAndRelease(err)
	}
	if err := l.transition(PhaseLoadingBanks); err != nil {
		return l.failAndRelease(err)
	}

	banks, err := loadBanks(l.sh, l.cfg.Banks)
	if err != nil {
		return l.failAndRelease(err)
	}

	l.mu.Lock()
	l.session = newSession(l.sh, banks)
	l.mu.Unlock()

	if err := l.transition(PhaseReady); err != nil {
		return l.failAndRelease(err)
	}
	return nil
}

// configure applies buffer size, output format, and channel count.
func (l *Loader) configure() error {
	sh := l.sh

	var core studio.CoreSystem
	err := sh.invoke("system.get_core_system", "system", nil, func() studio.Result {
		var res studio.Result
		core, res = sh.system.CoreSystem()
		return res
	})
	if err != nil {
		return err
	}
	if core == nil {
		return &ValidationError{Op: "system.get_core_system", Err: ErrNilHandle}
	}

	err = sh.invoke("core.set_dsp_buffer_size", "core",
		map[string]any{"length": l.cfg.DSPBufferLength, "count": l.cfg.DSPBufferCount},
		func() studio.Result {
			return core.SetDSPBufferSize(l.cfg.DSPBufferLength, l.cfg.DSPBufferCount)
		})
	if err != nil {
		return err
	}

	var rate int
	err = sh.invoke("core.get_driver_info", "core", map[string]any{"driver": l.cfg.OutputDriver}, func() studio.Result {
		var res studio.Result
		rate, res = core.DriverInfo(l.cfg.OutputDriver)
		return res
	})
	if err != nil {
		return err
	}

	err = sh.invoke("core.set_software_format", "core",
		map[string]any{"sample_rate": rate, "speaker_mode": int(l.cfg.SpeakerMode)},
		func() studio.Result {
			return core.SetSoftwareFormat(rate, l.cfg.SpeakerMode, 0)
		})
	if err != nil {
		return err
	}

	flags := l.cfg.studioFlags()
	if flags&studio.InitLiveUpdate != 0 {
		sh.logger.Info("live update enabled")
	}
	return sh.invoke("system.initialize", "system",
		map[string]any{"virtual_channels": l.cfg.VirtualChannels, "live_update": l.cfg.LiveUpdate},
		func() studio.Result {
			return sh.system.Initialize(l.cfg.VirtualChannels, flags)
		})
}

// transition advances the gate and logs the change. It does not record a
// failure; callers decide between fail and failAndRelease.
func (l *Loader) transition(next Phase) error {
	from := l.Phase()
	if err := l.sh.gate.advance(next); err != nil {
		return err
	}
	l.sh.logger.Info("audio phase changed", "session", l.sh.token, "from", from.String(), "to", next.String())
	return nil
}

// fail records err as the fatal bring-up error and moves to PhaseFailed.
// The first failure wins.
func (l *Loader) fail(err error) error {
	l.mu.Lock()
	if l.err == nil {
		l.err = err
	}
	l.mu.Unlock()

	if p := l.Phase(); !p.Terminal() {
		_ = l.sh.gate.advance(PhaseFailed)
	}
	l.sh.logger.Error("audio bring-up failed", "session", l.sh.token, "error", err)
	return err
}

// failAndRelease releases the partially built system before failing, so no
// half-constructed engine outlives the loader.
func (l *Loader) failAndRelease(err error) error {
	if l.sh.system != nil {
		if relErr := l.sh.invoke("system.release", "system", nil, l.sh.system.Release); relErr != nil {
			l.sh.logger.Warn("release after failed bring-up", "error", relErr)
		}
	}
	return l.fail(err)
}
