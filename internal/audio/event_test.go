package audio

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/earshot/internal/simstudio"
	"github.com/roach88/earshot/internal/spatial"
	"github.com/roach88/earshot/internal/studio"
)

func explosion(t *testing.T, s *Session) *EventDescription {
	t.Helper()
	d, err := s.Event("event:/Weapons/Explosion")
	require.NoError(t, err)
	return d
}

// Scenario C: create, start, release, then the engine tears down.
func TestEventInstance_FireAndForgetLifecycle(t *testing.T) {
	f, s := readySession(t)
	inst, err := explosion(t, s).CreateInstance()
	require.NoError(t, err)
	assert.Equal(t, "inst-1", inst.ID())
	assert.Equal(t, "event:/Weapons/Explosion", inst.Event())

	require.NoError(t, inst.Start())
	state, err := inst.PlaybackState()
	require.NoError(t, err)
	assert.Equal(t, PlaybackStarting, state)

	require.NoError(t, s.Update())
	state, err = inst.PlaybackState()
	require.NoError(t, err)
	assert.Equal(t, PlaybackPlaying, state)

	require.NoError(t, inst.Release())
	assert.True(t, inst.Released())
	assert.Equal(t, 1, f.engine.Snapshot().LiveInstances, "teardown waits for playback to finish")

	for i := 0; i < 60; i++ {
		require.NoError(t, s.Update())
	}
	snap := f.engine.Snapshot()
	assert.Zero(t, snap.LiveInstances)
	assert.Equal(t, 1, snap.Collected)
}

func TestEventInstance_OperationsAfterReleaseAreRejected(t *testing.T) {
	f, s := readySession(t)
	inst, err := explosion(t, s).CreateInstance()
	require.NoError(t, err)
	require.NoError(t, inst.Release())
	f.calls.Reset()

	ops := map[string]func() error{
		"start":   inst.Start,
		"stop":    inst.Stop,
		"release": inst.Release,
		"set_3d": func() error {
			return inst.Set3DAttributes(spatial.Vector2{}, spatial.Vector2{})
		},
		"playback_state": func() error { _, err := inst.PlaybackState(); return err },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			assert.True(t, IsValidation(err))
			assert.ErrorIs(t, err, ErrInstanceReleased)
		})
	}
	assert.Empty(t, f.calls.Calls())
}

func TestEventInstance_FailedReleaseCanBeRetried(t *testing.T) {
	f, s := readySession(t)
	inst, err := explosion(t, s).CreateInstance()
	require.NoError(t, err)

	f.engine.InjectFault("instance.release", studio.ErrInternal)
	assert.True(t, IsEngineCall(inst.Release()))
	assert.False(t, inst.Released())

	f.engine.InjectFault("instance.release", studio.OK)
	assert.NoError(t, inst.Release())
	assert.True(t, inst.Released())
}

// Scenario E: NaN position never reaches the engine.
func TestEventInstance_NonFinitePositionRejected(t *testing.T) {
	f, s := readySession(t)
	inst, err := explosion(t, s).CreateInstance()
	require.NoError(t, err)

	err = inst.Set3DAttributes(spatial.Vector2{X: nan(), Y: 0}, spatial.Vector2{})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var se *spatial.ValidationError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "position", se.Vector)
	assert.Equal(t, "x", se.Axis)
	assert.Equal(t, spatial.ClassNaN, se.Class)
	assert.Zero(t, f.calls.Count("instance.set_3d_attributes"))
}

func TestEventInstance_Set3DAttributesConverts(t *testing.T) {
	f, s := readySession(t)
	inst, err := explosion(t, s).CreateInstance()
	require.NoError(t, err)

	require.NoError(t, inst.Set3DAttributes(spatial.Vector2{X: 100, Y: 50}, spatial.Vector2{X: -20, Y: 10}))
	calls := f.calls.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, "instance.set_3d_attributes", last.Op)
	assert.Equal(t, "inst-1", last.Target)
	assert.Equal(t, []any{-10.0, 5.0, 0.0}, last.Args["position"])
	assert.Equal(t, []any{2.0, 1.0, 0.0}, last.Args["velocity"])
}

func TestEventInstance_StopIsImmediate(t *testing.T) {
	f, s := readySession(t)
	inst, err := explosion(t, s).CreateInstance()
	require.NoError(t, err)
	require.NoError(t, inst.Start())
	require.NoError(t, s.Update())

	require.NoError(t, inst.Stop())
	state, err := inst.PlaybackState()
	require.NoError(t, err)
	assert.Equal(t, PlaybackStopped, state)

	calls := f.calls.Calls()
	for _, c := range calls {
		if c.Op == "instance.stop" {
			assert.Equal(t, "immediate", c.Args["mode"])
		}
	}
}

func TestEventInstance_UnknownPlaybackState(t *testing.T) {
	f, s := readySession(t)
	inst, err := explosion(t, s).CreateInstance()
	require.NoError(t, err)

	f.engine.ForcePlaybackState(7)
	_, err = inst.PlaybackState()
	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeUnknownPlaybackState, ce.Code)
	assert.Equal(t, "7", ce.Details["raw"])
}

func TestMapPlaybackState(t *testing.T) {
	tests := []struct {
		raw  int
		want PlaybackState
	}{
		{studio.RawPlaybackPlaying, PlaybackPlaying},
		{studio.RawPlaybackSustaining, PlaybackSustaining},
		{studio.RawPlaybackStopped, PlaybackStopped},
		{studio.RawPlaybackStarting, PlaybackStarting},
		{studio.RawPlaybackStopping, PlaybackStopping},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			got, err := mapPlaybackState(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, raw := range []int{-1, 5, 99} {
		_, err := mapPlaybackState(raw)
		assert.True(t, IsConsistency(err), "raw %d", raw)
	}
}

func TestPlaybackState_MarshalText(t *testing.T) {
	b, err := PlaybackSustaining.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "sustaining", string(b))
	assert.Equal(t, "playback(0)", PlaybackState(0).String())
}

func TestEventDescription_CreateInstanceFailure(t *testing.T) {
	f, s := readySession(t)
	d := explosion(t, s)
	f.engine.InjectFault("description.create_instance", studio.ErrMemory)

	_, err := d.CreateInstance()
	var ee *EngineCallError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, studio.ErrMemory, ee.Result)
	assert.Equal(t, "event:/Weapons/Explosion", ee.Target)
}

func TestEventDescription_LoadSampleDataIdempotent(t *testing.T) {
	f, s := readySession(t)
	d := explosion(t, s)
	require.NoError(t, d.LoadSampleData())
	require.NoError(t, d.LoadSampleData())
	assert.Contains(t, f.engine.Snapshot().SampleData, "event:/Weapons/Explosion")
}

func TestEventDescription_Path(t *testing.T) {
	_, s := readySession(t)
	path, err := explosion(t, s).Path()
	require.NoError(t, err)
	assert.Equal(t, "event:/Weapons/Explosion", path)
}

func TestEventDescription_PathTruncation(t *testing.T) {
	prefix := "event:/"
	tests := []struct {
		name      string
		length    int
		truncated bool
	}{
		{"fits with terminator", PathBufferSize - 2, false},
		{"terminator fills buffer", PathBufferSize - 1, true},
		{"longer than buffer", PathBufferSize + 40, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			long := prefix + strings.Repeat("a", tt.length-len(prefix))
			cat := simstudio.DefaultCatalog()
			cat["Master.bank"] = simstudio.BankSpec{Events: []simstudio.EventSpec{{Path: long}}}
			_, s := readySession(t, simstudio.WithCatalog(cat))

			d, err := s.Event(long)
			require.NoError(t, err)
			got, err := d.Path()
			if tt.truncated {
				var ce *ConsistencyError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, ErrCodeTruncatedPath, ce.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, long, got)
		})
	}
}

func TestNewEventDescription_RejectsNilHandle(t *testing.T) {
	_, err := newEventDescription(&shared{}, nil, "event:/X")
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, ErrNilHandle)
}

func TestPlayOneShot(t *testing.T) {
	f, s := readySession(t)
	require.NoError(t, PlayOneShot(explosion(t, s)))
	assert.Equal(t, []string{"description.create_instance", "instance.start", "instance.release"},
		f.calls.Ops()[len(f.calls.Ops())-3:])
}

func TestPlayOneShot_StartFailureStillReleases(t *testing.T) {
	f, s := readySession(t)
	f.engine.InjectFault("instance.start", studio.ErrInternal)

	err := PlayOneShot(explosion(t, s))
	require.Error(t, err)
	var ee *EngineCallError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "instance.start", ee.Op)
	assert.Equal(t, 1, f.calls.Count("instance.release"))

	require.NoError(t, s.Update())
	assert.Equal(t, 1, f.engine.Snapshot().Collected)
}
