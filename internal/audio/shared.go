package audio

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/earshot/internal/spatial"
	"github.com/roach88/earshot/internal/studio"
	"github.com/roach88/earshot/internal/trace"
)

// shared is the state every wrapper of one session points at: the readiness
// gate, the owned system handle, and the call recorder. Engine handles are
// never package-level state; each belongs to exactly one session.
type shared struct {
	gate   *gate
	system studio.System
	logger *slog.Logger

	token    string
	clock    *trace.Clock
	recorder trace.Recorder

	instanceSeq atomic.Int64
}

// invoke runs one engine call, records it, and converts a non-OK result
// into an EngineCallError.
func (s *shared) invoke(op, target string, args map[string]any, fn func() studio.Result) error {
	res := fn()
	s.record(op, target, args, res.String())
	if res != studio.OK {
		s.logger.Debug("engine call failed", "op", op, "target", target, "result", res.String())
		return &EngineCallError{Op: op, Target: target, Result: res}
	}
	return nil
}

func (s *shared) record(op, target string, args map[string]any, result string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(trace.Call{
		Seq:     s.clock.Next(),
		Session: s.token,
		Op:      op,
		Target:  target,
		Args:    args,
		Result:  result,
	})
}

func (s *shared) nextInstanceID() string {
	return fmt.Sprintf("inst-%d", s.instanceSeq.Add(1))
}

// attrsArgs renders converted attributes for the call trace. Orientation is
// constant and left out.
func attrsArgs(a spatial.Attributes3D) map[string]any {
	return map[string]any{
		"position": []any{a.Position.X, a.Position.Y, a.Position.Z},
		"velocity": []any{a.Velocity.X, a.Velocity.Y, a.Velocity.Z},
	}
}
