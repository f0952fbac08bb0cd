package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/earshot/internal/audio"
	"github.com/roach88/earshot/internal/journal"
	"github.com/roach88/earshot/internal/simstudio"
	"github.com/roach88/earshot/internal/studio"
	"github.com/roach88/earshot/internal/trace"
)

// Harness runs one scenario against a fresh simulated engine and journal.
type Harness struct {
	store   *journal.Store
	engine  *simstudio.Engine
	session *audio.Session
	logger  *slog.Logger

	descs map[string]*audio.EventDescription
	insts map[string]*audio.EventInstance
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes session and engine debug logging to logger. The
// default discards it.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal with a stepped engine:
//  1. Inject scenario faults and bring the session up
//  2. Check the bring-up outcome against expect_init_error
//  3. Execute steps, checking each step's expect clause
//  4. Record the final phase and evaluate assertions
//
// An error is returned only when the harness itself cannot run; scenario
// failures are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer st.Close()

	token := scenario.Token
	if token == "" {
		token = DefaultToken
	}
	cfg := audio.DefaultConfig()
	cfg.BanksPath = scenario.BanksPath
	if cfg.BanksPath == "" {
		cfg.BanksPath = DefaultBanksPath
	}
	cfg.Banks = scenario.Banks
	if len(cfg.Banks) == 0 {
		cfg.Banks = DefaultBanks
	}

	engineOpts := []simstudio.Option{simstudio.WithMode(simstudio.ModeStepped)}
	if len(scenario.Catalog) > 0 {
		engineOpts = append(engineOpts, simstudio.WithCatalog(scenario.Catalog))
	}
	eng := simstudio.New(engineOpts...)
	for _, f := range scenario.Faults {
		res, _ := studio.ParseResult(f.Result)
		eng.InjectFault(f.Op, res)
	}

	ctx := context.Background()
	if err := st.BeginSession(ctx, journal.Session{Token: token, Name: scenario.Name, Banks: cfg.Banks}); err != nil {
		return nil, fmt.Errorf("failed to register session: %w", err)
	}

	buf := trace.NewBuffer()
	loader, err := audio.NewLoader(cfg, eng,
		audio.WithLogger(o.logger),
		audio.WithRecorder(trace.Tee{buf, st}),
		audio.WithClock(trace.NewClock()),
		audio.WithTokenGenerator(trace.NewFixedGenerator(token)),
		audio.WithDebugFunc(audio.DebugLogger(o.logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}

	h := &Harness{
		store:  st,
		engine: eng,
		logger: o.logger,
		descs:  make(map[string]*audio.EventDescription),
		insts:  make(map[string]*audio.EventInstance),
	}

	result := NewResult()
	loader.Start()
	eng.Run()

	session, initErr := loader.Session()
	switch {
	case scenario.ExpectInitError != "" && initErr == nil:
		result.AddError(fmt.Sprintf("bring-up: expected error %s, got success", scenario.ExpectInitError))
	case scenario.ExpectInitError != "" && string(audio.CodeOf(initErr)) != scenario.ExpectInitError:
		result.AddError(fmt.Sprintf("bring-up: expected error %s, got %v", scenario.ExpectInitError, initErr))
	case scenario.ExpectInitError == "" && initErr != nil:
		result.AddError(fmt.Sprintf("bring-up: unexpected error: %v", initErr))
	}

	if initErr == nil {
		h.session = session
		h.executeSteps(scenario.Steps, result)
	}

	phase := loader.Phase()
	if err := st.SetPhase(ctx, token, phase.String()); err != nil {
		return nil, fmt.Errorf("failed to record phase: %w", err)
	}
	if err := st.Err(); err != nil {
		return nil, fmt.Errorf("failed to journal calls: %w", err)
	}

	result.Trace = buf.Calls()
	result.State["phase"] = phase.String()
	if session != nil {
		result.State["banks"] = session.Banks()
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// executeSteps runs every step, checking each against its expect clause.
// A failed step is reported and execution continues.
func (h *Harness) executeSteps(steps []Step, result *Result) {
	for i, step := range steps {
		out, err := h.execute(step)

		var want string
		if step.Expect != nil {
			want = step.Expect.Error
		}
		got := string(audio.CodeOf(err))
		if err != nil && got == "" {
			got = err.Error()
		}

		switch {
		case want == "" && err != nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Op, err))
			continue
		case want != "" && err == nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got success", i, step.Op, want))
			continue
		case want != "" && got != want:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %v", i, step.Op, want, err))
			continue
		}

		if err == nil && step.Expect != nil {
			if msg := checkOutcome(step, out); msg != "" {
				result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Op, msg))
				continue
			}
		}

		h.logger.Debug("step completed", "step", i, "op", step.Op, "error", got)
	}
}

// outcome carries what a step returned, for expect checks.
type outcome struct {
	state string
	path  string
	count int
}

func checkOutcome(step Step, out outcome) string {
	e := step.Expect
	if e.State != "" && e.State != out.state {
		return fmt.Sprintf("expected state %s, got %s", e.State, out.state)
	}
	if e.Path != "" && e.Path != out.path {
		return fmt.Sprintf("expected path %q, got %q", e.Path, out.path)
	}
	if e.Count != nil && *e.Count != out.count {
		return fmt.Sprintf("expected %d events, got %d", *e.Count, out.count)
	}
	return ""
}

func (h *Harness) execute(step Step) (outcome, error) {
	var out outcome
	s := h.session

	switch step.Op {
	case OpEvent:
		d, err := s.Event(step.Path)
		if err != nil {
			return out, err
		}
		if step.As != "" {
			h.descs[step.As] = d
		}
	case OpEventList:
		list, err := s.EventList()
		if err != nil {
			return out, err
		}
		out.count = len(list)
	case OpCreateInstance:
		inst, err := h.descs[step.Event].CreateInstance()
		if err != nil {
			return out, err
		}
		if step.As != "" {
			h.insts[step.As] = inst
		}
	case OpLoadSampleData:
		return out, h.descs[step.Event].LoadSampleData()
	case OpPath:
		p, err := h.descs[step.Event].Path()
		out.path = p
		return out, err
	case OpPlayOneShot:
		return out, audio.PlayOneShot(h.descs[step.Event])
	case OpStart:
		return out, h.insts[step.Instance].Start()
	case OpStop:
		return out, h.insts[step.Instance].Stop()
	case OpRelease:
		return out, h.insts[step.Instance].Release()
	case OpSet3D:
		return out, h.insts[step.Instance].Set3DAttributes(step.Position, step.Velocity)
	case OpPlaybackState:
		state, err := h.insts[step.Instance].PlaybackState()
		if err != nil {
			return out, err
		}
		out.state = state.String()
	case OpSetListeners:
		return out, s.SetListeners(step.Listeners)
	case OpSetParameter:
		return out, s.SetParameterByName(step.Name, step.Value)
	case OpUpdate:
		n := max(step.Count, 1)
		for i := 0; i < n; i++ {
			if err := s.Update(); err != nil {
				return out, err
			}
		}
	case OpShutdown:
		return out, s.Shutdown()
	case OpFault:
		res, _ := studio.ParseResult(step.Fault.Result)
		h.engine.InjectFault(step.Fault.Op, res)
	case OpForceState:
		h.engine.ForcePlaybackState(step.Raw)
	default:
		return out, fmt.Errorf("unknown op %q", step.Op)
	}
	return out, nil
}
