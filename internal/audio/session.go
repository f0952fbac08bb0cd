package audio

import (
	"fmt"
	"strings"

	"github.com/roach88/earshot/internal/studio"
)

// Session is the façade over a ready engine. It exclusively owns the studio
// system handle; banks, listeners, descriptions, and instances reach the
// engine only through it.
//
// A Session is obtained from Loader.Session once the loader is ready.
// Operations run in caller order with no internal queueing, and every one
// of them fails with NotReadyError after Shutdown.
type Session struct {
	sh        *shared
	banks     *BankRegistry
	listeners *ListenerManager
}

func newSession(sh *shared, banks *BankRegistry) *Session {
	return &Session{
		sh:        sh,
		banks:     banks,
		listeners: newListenerManager(sh),
	}
}

// Token is the correlation token stamped on every recorded call.
func (s *Session) Token() string {
	return s.sh.token
}

// Phase returns the session's current phase.
func (s *Session) Phase() Phase {
	return s.sh.gate.Phase()
}

// Banks returns the loaded bank filenames in load order.
func (s *Session) Banks() []string {
	return s.banks.Loaded()
}

// Listeners returns the session's listener manager.
func (s *Session) Listeners() *ListenerManager {
	return s.listeners
}

// Update runs one frame of engine processing: scheduling, parameter
// interpolation, and teardown of released instances. Call it once per host
// frame; skipping it stalls instance lifecycles.
func (s *Session) Update() error {
	const op = "system.update"
	if err := s.sh.gate.check(op); err != nil {
		return err
	}
	return s.sh.invoke(op, "system", nil, s.sh.system.Update)
}

// Shutdown releases the studio system. It is terminal.
func (s *Session) Shutdown() error {
	const op = "system.release"
	if err := s.sh.gate.check(op); err != nil {
		return err
	}
	if err := s.sh.invoke(op, "system", nil, s.sh.system.Release); err != nil {
		return err
	}
	if err := s.sh.gate.advance(PhaseShutdown); err != nil {
		return err
	}
	s.sh.logger.Info("audio session shut down", "session", s.sh.token)
	return nil
}

// Event resolves a description by path, e.g. "event:/Weapons/Explosion".
func (s *Session) Event(path string) (*EventDescription, error) {
	const op = "system.get_event"
	if err := s.sh.gate.check(op); err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return nil, &ValidationError{Op: op, Message: "event path is empty"}
	}

	var h studio.EventDescriptionHandle
	err := s.sh.invoke(op, path, nil, func() studio.Result {
		var res studio.Result
		h, res = s.sh.system.GetEvent(path)
		return res
	})
	if err != nil {
		return nil, err
	}
	return newEventDescription(s.sh, h, path)
}

// EventList returns every event the master bank exposes. A list whose
// length disagrees with the bank's reported count is a ConsistencyError.
func (s *Session) EventList() ([]*EventDescription, error) {
	const op = "session.get_event_list"
	if err := s.sh.gate.check(op); err != nil {
		return nil, err
	}

	handles, err := s.banks.masterEvents()
	if err != nil {
		return nil, err
	}

	out := make([]*EventDescription, 0, len(handles))
	for i, h := range handles {
		d, err := newEventDescription(s.sh, h, fmt.Sprintf("master[%d]", i))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// SetListeners delegates to the listener manager.
func (s *Session) SetListeners(listeners []Listener) error {
	return s.listeners.SetListeners(listeners)
}

// SetParameterByName sets a global parameter. The parameter's seek speed
// is honoured, not bypassed.
func (s *Session) SetParameterByName(name string, value float64) error {
	const op = "system.set_parameter_by_name"
	if err := s.sh.gate.check(op); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Op: op, Message: "parameter name is empty"}
	}
	return s.sh.invoke(op, name, map[string]any{"value": value}, func() studio.Result {
		return s.sh.system.SetParameterByName(name, value, false)
	})
}
