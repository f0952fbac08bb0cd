package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/earshot/internal/simstudio"
	"github.com/roach88/earshot/internal/trace"
)

var defaultBanks = []string{"Master.bank", "Master.strings.bank", "SFX.bank"}

func testConfig(banks ...string) Config {
	if len(banks) == 0 {
		banks = defaultBanks
	}
	cfg := DefaultConfig()
	cfg.BanksPath = "banks/"
	cfg.Banks = banks
	return cfg
}

// fixture is a loader wired to a stepped simulated engine and a trace
// buffer.
type fixture struct {
	engine *simstudio.Engine
	loader *Loader
	calls  *trace.Buffer
}

func newFixture(t *testing.T, cfg Config, engineOpts ...simstudio.Option) *fixture {
	t.Helper()
	engineOpts = append([]simstudio.Option{simstudio.WithMode(simstudio.ModeStepped)}, engineOpts...)
	e := simstudio.New(engineOpts...)
	calls := trace.NewBuffer()
	l, err := NewLoader(cfg, e,
		WithRecorder(calls),
		WithTokenGenerator(trace.NewFixedGenerator("session-1")),
	)
	require.NoError(t, err)
	return &fixture{engine: e, loader: l, calls: calls}
}

// ready brings the fixture all the way up and returns the session.
func (f *fixture) ready(t *testing.T) *Session {
	t.Helper()
	f.loader.Start()
	f.engine.Run()
	s, err := f.loader.Session()
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func readySession(t *testing.T, engineOpts ...simstudio.Option) (*fixture, *Session) {
	t.Helper()
	f := newFixture(t, testConfig(), engineOpts...)
	return f, f.ready(t)
}

func nan() float64 { return math.NaN() }
