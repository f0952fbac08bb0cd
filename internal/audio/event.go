package audio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/roach88/earshot/internal/spatial"
	"github.com/roach88/earshot/internal/studio"
)

// PathBufferSize is the capacity of the buffer used to read event paths.
const PathBufferSize = 256

// EventDescription is an immutable event template. Descriptions are cheap
// engine-owned references and are never released.
type EventDescription struct {
	sh     *shared
	handle studio.EventDescriptionHandle
	label  string
}

func newEventDescription(sh *shared, h studio.EventDescriptionHandle, label string) (*EventDescription, error) {
	if h == nil {
		return nil, &ValidationError{Op: "description.wrap", Message: label, Err: ErrNilHandle}
	}
	return &EventDescription{sh: sh, handle: h, label: label}, nil
}

// Label is the name this description was obtained under: its path for
// Session.Event, or its list position for Session.EventList.
func (d *EventDescription) Label() string {
	return d.label
}

// CreateInstance spawns a new playback occurrence.
func (d *EventDescription) CreateInstance() (*EventInstance, error) {
	const op = "description.create_instance"
	if err := d.sh.gate.check(op); err != nil {
		return nil, err
	}

	id := d.sh.nextInstanceID()
	var h studio.EventInstanceHandle
	err := d.sh.invoke(op, d.label, map[string]any{"instance": id}, func() studio.Result {
		var res studio.Result
		h, res = d.handle.CreateInstance()
		return res
	})
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, &ValidationError{Op: op, Message: d.label, Err: ErrNilHandle}
	}
	return &EventInstance{sh: d.sh, handle: h, id: id, event: d.label}, nil
}

// LoadSampleData asks the engine to make this event's samples resident.
// Repeated calls are safe.
func (d *EventDescription) LoadSampleData() error {
	const op = "description.load_sample_data"
	if err := d.sh.gate.check(op); err != nil {
		return err
	}
	return d.sh.invoke(op, d.label, nil, d.handle.LoadSampleData)
}

// Path returns the event's hierarchical path. A path that fills the whole
// query buffer is treated as truncated and rejected.
func (d *EventDescription) Path() (string, error) {
	const op = "description.get_path"
	if err := d.sh.gate.check(op); err != nil {
		return "", err
	}

	buf := make([]byte, PathBufferSize)
	var retrieved int
	err := d.sh.invoke(op, d.label, map[string]any{"capacity": PathBufferSize}, func() studio.Result {
		var res studio.Result
		retrieved, res = d.handle.Path(buf)
		return res
	})
	if err != nil {
		return "", err
	}

	if retrieved >= len(buf) {
		return "", &ConsistencyError{
			Code:    ErrCodeTruncatedPath,
			Op:      op,
			Message: fmt.Sprintf("event path filled the %d byte buffer", len(buf)),
		}
	}
	return string(bytes.TrimRight(buf[:retrieved], "\x00")), nil
}

// EventInstance is one live occurrence of an event. It must be released
// exactly once; after Release every operation fails.
type EventInstance struct {
	sh       *shared
	handle   studio.EventInstanceHandle
	id       string
	event    string
	released bool
}

// ID identifies the instance within its session.
func (i *EventInstance) ID() string {
	return i.id
}

// Event is the label of the description this instance came from.
func (i *EventInstance) Event() string {
	return i.event
}

// Released reports whether Release has succeeded.
func (i *EventInstance) Released() bool {
	return i.released
}

func (i *EventInstance) guard(op string) error {
	if err := i.sh.gate.check(op); err != nil {
		return err
	}
	if i.released {
		return &ValidationError{Op: op, Message: i.id, Err: ErrInstanceReleased}
	}
	return nil
}

// Start begins playback, or restarts it if already playing.
func (i *EventInstance) Start() error {
	const op = "instance.start"
	if err := i.guard(op); err != nil {
		return err
	}
	return i.sh.invoke(op, i.id, nil, i.handle.Start)
}

// Stop halts playback immediately, without a fade.
func (i *EventInstance) Stop() error {
	const op = "instance.stop"
	if err := i.guard(op); err != nil {
		return err
	}
	return i.sh.invoke(op, i.id, map[string]any{"mode": "immediate"}, func() studio.Result {
		return i.handle.Stop(studio.StopImmediate)
	})
}

// Release marks the instance for teardown once playback finishes. The
// engine defers the actual teardown; this call is terminal either way.
func (i *EventInstance) Release() error {
	const op = "instance.release"
	if err := i.guard(op); err != nil {
		return err
	}
	if err := i.sh.invoke(op, i.id, nil, i.handle.Release); err != nil {
		return err
	}
	i.released = true
	return nil
}

// Set3DAttributes converts application-space motion and pushes it to the
// engine. Non-finite input is rejected before any engine call.
func (i *EventInstance) Set3DAttributes(position, velocity spatial.Vector2) error {
	const op = "instance.set_3d_attributes"
	if err := i.guard(op); err != nil {
		return err
	}
	attrs, err := spatial.Transform(position, velocity)
	if err != nil {
		return &ValidationError{Op: op, Err: err}
	}
	return i.sh.invoke(op, i.id, attrsArgs(attrs), func() studio.Result {
		return i.handle.Set3DAttributes(attrs)
	})
}

// PlaybackState reports where the instance is in its lifecycle.
func (i *EventInstance) PlaybackState() (PlaybackState, error) {
	const op = "instance.get_playback_state"
	if err := i.guard(op); err != nil {
		return 0, err
	}
	var raw int
	err := i.sh.invoke(op, i.id, nil, func() studio.Result {
		var res studio.Result
		raw, res = i.handle.PlaybackState()
		return res
	})
	if err != nil {
		return 0, err
	}
	return mapPlaybackState(raw)
}

// PlayOneShot creates, starts, and immediately releases an instance of d.
// The engine tears the instance down once playback completes.
func PlayOneShot(d *EventDescription) error {
	inst, err := d.CreateInstance()
	if err != nil {
		return err
	}
	if err := inst.Start(); err != nil {
		return errors.Join(err, inst.Release())
	}
	return inst.Release()
}
