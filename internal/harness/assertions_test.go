package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/earshot/internal/journal"
	"github.com/roach88/earshot/internal/trace"
)

func sampleTrace() []trace.Call {
	return []trace.Call{
		{Seq: 1, Session: "s", Op: "system.get_event", Target: "event:/Weapons/Explosion", Result: "OK"},
		{Seq: 2, Session: "s", Op: "description.create_instance", Target: "event:/Weapons/Explosion", Args: map[string]any{"instance": "inst-1"}, Result: "OK"},
		{Seq: 3, Session: "s", Op: "instance.set_3d_attributes", Target: "inst-1", Args: map[string]any{
			"position": []any{-0.3, 0.4, 0.0},
			"velocity": []any{0.0, 0.0, 0.0},
		}, Result: "OK"},
		{Seq: 4, Session: "s", Op: "instance.start", Target: "inst-1", Result: "OK"},
		{Seq: 5, Session: "s", Op: "system.update", Target: "system", Result: "OK"},
		{Seq: 6, Session: "s", Op: "system.update", Target: "system", Result: "OK"},
		{Seq: 7, Session: "s", Op: "instance.release", Target: "inst-1", Result: "ERR_INVALID_HANDLE"},
	}
}

func TestAssertTraceContains_Found(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type:   AssertTraceContains,
		Op:     "description.create_instance",
		Args:   map[string]any{"instance": "inst-1"},
		Target: "event:/Weapons/Explosion",
	})
	assert.NoError(t, err)
}

func TestAssertTraceContains_NumericArgsCompareByValue(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type: AssertTraceContains,
		Op:   "instance.set_3d_attributes",
		Args: map[string]any{"position": []any{-0.3, 0.4, 0}},
	})
	assert.NoError(t, err)
}

func TestAssertTraceContains_ResultFilter(t *testing.T) {
	calls := sampleTrace()
	assert.NoError(t, assertTraceContains(calls, Assertion{Op: "instance.release", Result: "ERR_INVALID_HANDLE"}))
	assert.Error(t, assertTraceContains(calls, Assertion{Op: "instance.release", Result: "OK"}))
}

func TestAssertTraceContains_NotFound(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type: AssertTraceContains,
		Op:   "instance.stop",
	})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, AssertTraceContains, assertErr.Type)
	assert.Contains(t, assertErr.Expected, "instance.stop")
	assert.Equal(t, "not found in trace", assertErr.Actual)
	assert.Contains(t, err.Error(), "[4] instance.start inst-1")
}

func TestAssertTraceContains_WrongArgs(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type: AssertTraceContains,
		Op:   "description.create_instance",
		Args: map[string]any{"instance": "inst-2"},
	})
	assert.Error(t, err)
}

func TestAssertTraceContains_WrongTarget(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type:   AssertTraceContains,
		Op:     "instance.start",
		Target: "inst-2",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance.start on inst-2")
}

func TestAssertTraceOrder(t *testing.T) {
	tests := []struct {
		name    string
		ops     []string
		wantErr string
	}{
		{"in order", []string{"system.get_event", "instance.start", "instance.release"}, ""},
		{"non-consecutive", []string{"description.create_instance", "system.update"}, ""},
		{"reversed", []string{"instance.start", "system.get_event"}, "should be before"},
		{"missing", []string{"system.get_event", "instance.stop"}, "missing op: instance.stop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceOrder(sampleTrace(), Assertion{Type: AssertTraceOrder, Ops: tt.ops})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertTraceCount(t *testing.T) {
	calls := sampleTrace()
	assert.NoError(t, assertTraceCount(calls, Assertion{Op: "system.update", Count: 2}))
	assert.NoError(t, assertTraceCount(calls, Assertion{Op: "instance.stop", Count: 0}))
	assert.NoError(t, assertTraceCount(calls, Assertion{Op: "instance.start", Target: "inst-9", Count: 0}))

	err := assertTraceCount(calls, Assertion{Op: "system.update", Count: 3})
	require.Error(t, err)
	assertErr := err.(*AssertionError)
	assert.Equal(t, "3 occurrences of system.update", assertErr.Expected)
	assert.Equal(t, "2 occurrences", assertErr.Actual)
}

func journalWithCalls(t *testing.T) *journal.Store {
	t.Helper()
	st, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.BeginSession(ctx, journal.Session{Token: "s", Name: "demo", Banks: []string{"Master.bank"}}))
	require.NoError(t, st.SetPhase(ctx, "s", "ready"))
	for _, c := range sampleTrace() {
		require.NoError(t, st.WriteCall(ctx, c))
	}
	return st
}

func TestAssertFinalState(t *testing.T) {
	st := journalWithCalls(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name: "session phase",
			assertion: Assertion{
				Table:  "sessions",
				Where:  map[string]any{"token": "s"},
				Expect: map[string]any{"phase": "ready", "name": "demo"},
			},
		},
		{
			name: "op counts",
			assertion: Assertion{
				Table:  "op_counts",
				Where:  map[string]any{"session": "s", "op": "system.update"},
				Expect: map[string]any{"n": 2, "failures": 0},
			},
		},
		{
			name: "failures counted",
			assertion: Assertion{
				Table:  "op_counts",
				Where:  map[string]any{"session": "s", "op": "instance.release"},
				Expect: map[string]any{"failures": 1},
			},
		},
		{
			name: "call by seq",
			assertion: Assertion{
				Table:  "calls",
				Where:  map[string]any{"session": "s", "seq": 4},
				Expect: map[string]any{"op": "instance.start", "target": "inst-1"},
			},
		},
		{
			name: "value mismatch",
			assertion: Assertion{
				Table:  "sessions",
				Where:  map[string]any{"token": "s"},
				Expect: map[string]any{"phase": "shutdown"},
			},
			wantErr: `field "phase" = shutdown`,
		},
		{
			name: "row not found",
			assertion: Assertion{
				Table:  "sessions",
				Where:  map[string]any{"token": "other"},
				Expect: map[string]any{"phase": "ready"},
			},
			wantErr: "row not found",
		},
		{
			name: "ambiguous",
			assertion: Assertion{
				Table:  "calls",
				Where:  map[string]any{"op": "system.update"},
				Expect: map[string]any{"result": "OK"},
			},
			wantErr: "multiple rows matched",
		},
		{
			name: "missing column",
			assertion: Assertion{
				Table:  "sessions",
				Where:  map[string]any{"token": "s"},
				Expect: map[string]any{"colour": "blue"},
			},
			wantErr: `field "colour" not present`,
		},
		{
			name: "unsafe table name",
			assertion: Assertion{
				Table:  "sessions; DROP TABLE calls",
				Expect: map[string]any{"phase": "ready"},
			},
			wantErr: "invalid table name",
		},
		{
			name: "unsafe column name",
			assertion: Assertion{
				Table:  "sessions",
				Where:  map[string]any{"token OR 1=1": "s"},
				Expect: map[string]any{"phase": "ready"},
			},
			wantErr: "invalid column name",
		},
		{
			name: "unknown table",
			assertion: Assertion{
				Table:  "nope",
				Expect: map[string]any{"phase": "ready"},
			},
			wantErr: "query error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(ctx, st, tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStateValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"string", "ready", "ready", true},
		{"bytes as string", "ready", []byte("ready"), true},
		{"int vs int64", 60, int64(60), true},
		{"float vs int64", 2.0, int64(2), true},
		{"bool vs int64", true, int64(1), true},
		{"bool false", false, int64(0), true},
		{"string vs int", "1", int64(1), false},
		{"nil both", nil, nil, true},
		{"nil one", nil, "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateValuesEqual(tt.expected, tt.actual))
		})
	}
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Op: "system.update", Count: 2},
		{Type: AssertTraceContains, Op: "instance.stop"},
		{Type: AssertFinalState, Table: "sessions", Expect: map[string]any{"phase": "ready"}},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "instance.stop")
	assert.Contains(t, errs[1], "final_state requires journal context")
	assert.Contains(t, errs[2], `unknown assertion type "bogus"`)
}
