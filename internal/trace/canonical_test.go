package trace

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{"b": 1, "a": "x", "c": true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":true}`, string(out))
}

func TestMarshalCanonical_UTF16Order(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 but after it in UTF-16.
	out, err := MarshalCanonical(map[string]any{"\U0001F600": 1, "｡": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"｡\":2}", string(out))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	out, err := MarshalCanonical("a<b>&c")
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(out))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9.
	out, err := MarshalCanonical("cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"caf\u00e9\"", string(out))
}

func TestMarshalCanonical_Floats(t *testing.T) {
	out, err := MarshalCanonical([]any{-1.5, 0.1, 12.0, math.Copysign(0, -1)})
	require.NoError(t, err)
	assert.Equal(t, `[-1.5,0.1,12,0]`, string(out))

	_, err = MarshalCanonical(math.NaN())
	assert.Error(t, err)
	_, err = MarshalCanonical(math.Inf(1))
	assert.Error(t, err)
}

func TestMarshalCanonical_RejectsNil(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"k": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null is forbidden")
}

func TestMarshalCanonical_Calls(t *testing.T) {
	calls := []Call{
		{Seq: 1, Op: "system.update", Target: "system", Result: "OK"},
		{Seq: 2, Session: "s-1", Op: "instance.start", Target: "inst-1", Args: map[string]any{"mode": "immediate"}, Result: "OK"},
	}
	out, err := MarshalCanonical(calls)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"op":"system.update","result":"OK","seq":1,"target":"system"},`+
			`{"args":{"mode":"immediate"},"op":"instance.start","result":"OK","seq":2,"session":"s-1","target":"inst-1"}]`,
		string(out))
}
