package audio

import (
	"fmt"
	"math"

	"github.com/roach88/earshot/internal/spatial"
	"github.com/roach88/earshot/internal/studio"
)

// Listener is one virtual ear for a frame. Its index is its position in
// the slice handed to SetListeners.
type Listener struct {
	Position spatial.Vector2 `json:"position" yaml:"position"`
	Velocity spatial.Vector2 `json:"velocity" yaml:"velocity"`
	Weight   float64         `json:"weight" yaml:"weight"`
}

// ListenerManager pushes listener state to the engine in one batch.
type ListenerManager struct {
	sh  *shared
	max int
}

func newListenerManager(sh *shared) *ListenerManager {
	return &ListenerManager{sh: sh, max: studio.MaxListeners}
}

// Max returns the most listeners forwarded to the engine.
func (m *ListenerManager) Max() int {
	return m.max
}

// SetListeners applies listeners in index order. Entries beyond Max are
// dropped silently. Every kept listener is validated before the first
// engine call, so bad input never leaves a half-applied batch; an engine
// failure aborts the rest of the batch.
func (m *ListenerManager) SetListeners(listeners []Listener) error {
	const op = "session.set_listeners"
	if err := m.sh.gate.check(op); err != nil {
		return err
	}

	if len(listeners) > m.max {
		m.sh.logger.Debug("dropping excess listeners", "given", len(listeners), "max", m.max)
		listeners = listeners[:m.max]
	}
	if len(listeners) == 0 {
		return nil
	}

	attrs := make([]spatial.Attributes3D, len(listeners))
	for i, l := range listeners {
		a, err := spatial.Transform(l.Position, l.Velocity)
		if err != nil {
			return &ValidationError{Op: op, Message: fmt.Sprintf("listener %d", i), Err: err}
		}
		if math.IsNaN(l.Weight) || l.Weight < 0 || l.Weight > 1 {
			return &ValidationError{Op: op, Message: fmt.Sprintf("listener %d weight %v outside [0,1]", i, l.Weight)}
		}
		attrs[i] = a
	}

	n := len(listeners)
	err := m.sh.invoke("system.set_num_listeners", "system", map[string]any{"count": n}, func() studio.Result {
		return m.sh.system.SetNumListeners(n)
	})
	if err != nil {
		return err
	}

	for i, l := range listeners {
		target := fmt.Sprintf("listener-%d", i)
		err := m.sh.invoke("system.set_listener_attributes", target, attrsArgs(attrs[i]), func() studio.Result {
			return m.sh.system.SetListenerAttributes(i, attrs[i], nil)
		})
		if err != nil {
			return err
		}
		err = m.sh.invoke("system.set_listener_weight", target, map[string]any{"weight": l.Weight}, func() studio.Result {
			return m.sh.system.SetListenerWeight(i, l.Weight)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
