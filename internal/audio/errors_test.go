package audio

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/earshot/internal/studio"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"not ready",
			&NotReadyError{Op: "system.update", Phase: PhaseLoadingBanks},
			"NOT_READY: audio session not ready (op=system.update, phase=loading_banks)",
		},
		{
			"engine call with target",
			&EngineCallError{Op: "system.get_event", Target: "event:/X", Result: studio.ErrEventNotFound},
			"ENGINE_CALL_FAILED: system.get_event returned ERR_EVENT_NOTFOUND (target=event:/X)",
		},
		{
			"engine call without target",
			&EngineCallError{Op: "system.update", Result: studio.ErrInternal},
			"ENGINE_CALL_FAILED: system.update returned ERR_INTERNAL",
		},
		{
			"validation wrapping",
			&ValidationError{Op: "instance.start", Message: "inst-3", Err: ErrInstanceReleased},
			"VALIDATION: inst-3: event instance already released (op=instance.start)",
		},
		{
			"validation cause only",
			&ValidationError{Op: "description.wrap", Err: ErrNilHandle},
			"VALIDATION: nil engine handle (op=description.wrap)",
		},
		{
			"consistency",
			newEventCountMismatchError(4, 3),
			"EVENT_COUNT_MISMATCH: master bank reported 4 events but listed 3 (op=bank.event_list)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("frame 12: %w", &NotReadyError{Op: "x", Phase: PhaseUninitialized})
	assert.True(t, IsNotReady(wrapped))
	assert.False(t, IsEngineCall(wrapped))
	assert.Equal(t, ErrCodeNotReady, CodeOf(wrapped))

	assert.True(t, IsEngineCall(&EngineCallError{}))
	assert.Equal(t, ErrCodeEngineCall, CodeOf(&EngineCallError{}))
	assert.True(t, IsValidation(&ValidationError{}))
	assert.Equal(t, ErrCodeValidation, CodeOf(&ValidationError{}))

	missing := newMissingMasterBankError([]string{"SFX.bank"})
	assert.True(t, IsConsistency(missing))
	assert.Equal(t, ErrCodeMissingMasterBank, CodeOf(missing))
	assert.Contains(t, missing.Error(), "Master.bank")

	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestPhase(t *testing.T) {
	assert.Equal(t, "awaiting_runtime_bringup", PhaseAwaitingRuntimeBringup.String())
	assert.Equal(t, "phase(42)", Phase(42).String())
	assert.True(t, PhaseFailed.Terminal())
	assert.True(t, PhaseShutdown.Terminal())
	assert.False(t, PhaseReady.Terminal())
}

func TestGate_NeverMovesBackwards(t *testing.T) {
	g := newGate()
	assert.Error(t, g.advance(PhaseReady), "cannot skip phases")
	assert.NoError(t, g.advance(PhaseAwaitingRuntimeBringup))
	assert.NoError(t, g.advance(PhaseLoadingBanks))
	assert.Error(t, g.advance(PhaseAwaitingRuntimeBringup))
	assert.NoError(t, g.advance(PhaseReady))
	assert.Error(t, g.advance(PhaseFailed), "a ready session only ends by shutdown")
	assert.NoError(t, g.advance(PhaseShutdown))

	for _, p := range []Phase{PhaseUninitialized, PhaseReady, PhaseFailed} {
		err := g.advance(p)
		assert.Equal(t, ErrCodeCallbackOrder, CodeOf(err))
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, testConfig().Validate())

	cfg := DefaultConfig()
	cfg.Banks = []string{"Master.bank", " "}
	cfg.DSPBufferCount = 0
	cfg.OutputDriver = -1
	err := cfg.Validate()
	var ve *ValidationError
	if assert.ErrorAs(t, err, &ve) {
		assert.Equal(t, "config.validate", ve.Op)
		assert.Contains(t, ve.Message, "banks[1] is empty")
		assert.Contains(t, ve.Message, "dsp buffer count")
		assert.Contains(t, ve.Message, "output driver")
	}

	assert.Error(t, DefaultConfig().Validate(), "no banks")
}

func TestConfig_StudioFlags(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, studio.InitNormal, cfg.studioFlags())
	cfg.LiveUpdate = true
	assert.Equal(t, studio.InitLiveUpdate, cfg.studioFlags())
}
