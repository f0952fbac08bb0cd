package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/earshot/internal/audio"
	"github.com/roach88/earshot/internal/simstudio"
	"github.com/roach88/earshot/internal/spatial"
	"github.com/roach88/earshot/internal/studio"
)

// DefaultToken is the session token used when a scenario names none.
const DefaultToken = "test-session-default"

// DefaultBanksPath is the base URL banks are staged from.
const DefaultBanksPath = "banks/"

// DefaultBanks is the bank list used when a scenario names none.
var DefaultBanks = []string{"Master.bank", "Master.strings.bank", "SFX.bank"}

// Scenario defines a conformance test scenario.
// A scenario brings up a session, drives it through Steps, and asserts on
// the resulting engine calls and journal.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Token is the fixed session token. Defaults to DefaultToken.
	Token string `yaml:"token,omitempty"`

	// BanksPath defaults to DefaultBanksPath.
	BanksPath string `yaml:"banks_path,omitempty"`

	// Banks defaults to DefaultBanks.
	Banks []string `yaml:"banks,omitempty"`

	// Catalog replaces the simulated engine's default project.
	Catalog simstudio.Catalog `yaml:"catalog,omitempty"`

	// Faults are injected before bring-up starts.
	Faults []Fault `yaml:"faults,omitempty"`

	// ExpectInitError is the error code bring-up must fail with. Empty
	// means bring-up must succeed.
	ExpectInitError string `yaml:"expect_init_error,omitempty"`

	// Steps run in order against the ready session.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and journal.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions"`
}

// Fault makes an engine op return a non-OK result.
type Fault struct {
	// Op is the engine op, e.g. "system.set_listener_weight".
	Op string `yaml:"op"`

	// Result is the engine result name, e.g. "ERR_INVALID_PARAM". "OK"
	// clears an earlier fault.
	Result string `yaml:"result"`
}

// Step is one call into the session API.
type Step struct {
	// Op selects the call; see the Op constants.
	Op string `yaml:"op"`

	// Path is the event path for "event".
	Path string `yaml:"path,omitempty"`

	// Event names a description bound by an earlier step.
	Event string `yaml:"event,omitempty"`

	// Instance names an instance bound by an earlier step.
	Instance string `yaml:"instance,omitempty"`

	// As binds the step's description or instance for later steps.
	As string `yaml:"as,omitempty"`

	// Name and Value are the parameter for "set_parameter".
	Name  string  `yaml:"name,omitempty"`
	Value float64 `yaml:"value,omitempty"`

	// Count repeats "update". Defaults to 1.
	Count int `yaml:"count,omitempty"`

	// Position and Velocity are the motion for "set_3d".
	Position spatial.Vector2 `yaml:"position,omitempty"`
	Velocity spatial.Vector2 `yaml:"velocity,omitempty"`

	// Listeners are the batch for "set_listeners".
	Listeners []audio.Listener `yaml:"listeners,omitempty"`

	// Fault is injected by "fault".
	Fault *Fault `yaml:"fault,omitempty"`

	// Raw is the playback value forced by "force_state".
	Raw int `yaml:"raw,omitempty"`

	// Expect checks the step's outcome. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Error is the expected error code, e.g. "VALIDATION". Empty means
	// the step must succeed.
	Error string `yaml:"error,omitempty"`

	// State is the expected playback state for "playback_state".
	State string `yaml:"state,omitempty"`

	// Path is the expected path for "path".
	Path string `yaml:"path,omitempty"`

	// Count is the expected number of descriptions for "event_list".
	Count *int `yaml:"count,omitempty"`
}

// Step op constants.
const (
	OpEvent          = "event"
	OpEventList      = "event_list"
	OpCreateInstance = "create_instance"
	OpLoadSampleData = "load_sample_data"
	OpPath           = "path"
	OpPlayOneShot    = "play_one_shot"
	OpStart          = "start"
	OpStop           = "stop"
	OpRelease        = "release"
	OpSet3D          = "set_3d"
	OpPlaybackState  = "playback_state"
	OpSetListeners   = "set_listeners"
	OpSetParameter   = "set_parameter"
	OpUpdate         = "update"
	OpShutdown       = "shutdown"
	OpFault          = "fault"
	OpForceState     = "force_state"
)

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check an engine call appears
	// - "trace_order": Check engine calls first appear in order
	// - "trace_count": Check an engine call appears exactly N times
	// - "final_state": Query a journal table and verify expected values
	Type string `yaml:"type"`

	// Op is the engine op (used by trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Target narrows trace_contains and trace_count to one target.
	Target string `yaml:"target,omitempty"`

	// Result narrows trace_contains to one engine result.
	Result string `yaml:"result,omitempty"`

	// Args are the expected call arguments (used by trace_contains).
	// Subset match - only specified fields are validated.
	Args map[string]any `yaml:"args,omitempty"`

	// Ops is the expected op order (used by trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Table is the journal table or view (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 && s.ExpectInitError == "" {
		return fmt.Errorf("steps list is required unless expect_init_error is set")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, f := range s.Faults {
		if err := validateFault(f); err != nil {
			return fmt.Errorf("faults[%d]: %w", i, err)
		}
	}

	bound := map[string]string{}
	for i, step := range s.Steps {
		if err := validateStep(step, bound); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateFault(f Fault) error {
	if f.Op == "" {
		return fmt.Errorf("op is required")
	}
	if _, ok := studio.ParseResult(f.Result); !ok {
		return fmt.Errorf("unknown engine result %q", f.Result)
	}
	return nil
}

// validateStep checks a step's fields and that the names it refers to were
// bound earlier. bound maps each name to "event" or "instance".
func validateStep(step Step, bound map[string]string) error {
	needs := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%s: %s is required", step.Op, kind)
		}
		if bound[name] != kind {
			return fmt.Errorf("%s: %s %q is not bound", step.Op, kind, name)
		}
		return nil
	}
	bind := func(kind string) {
		if step.As != "" {
			bound[step.As] = kind
		}
	}

	switch step.Op {
	case OpEvent:
		if step.Path == "" {
			return fmt.Errorf("event: path is required")
		}
		bind("event")
	case OpCreateInstance:
		if err := needs("event", step.Event); err != nil {
			return err
		}
		bind("instance")
	case OpLoadSampleData, OpPath, OpPlayOneShot:
		return needs("event", step.Event)
	case OpStart, OpStop, OpRelease, OpSet3D, OpPlaybackState:
		return needs("instance", step.Instance)
	case OpSetParameter:
		if step.Name == "" {
			return fmt.Errorf("set_parameter: name is required")
		}
	case OpUpdate:
		if step.Count < 0 {
			return fmt.Errorf("update: count must be non-negative")
		}
	case OpFault:
		if step.Fault == nil {
			return fmt.Errorf("fault: fault is required")
		}
		return validateFault(*step.Fault)
	case OpEventList, OpSetListeners, OpShutdown, OpForceState:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
