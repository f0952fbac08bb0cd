package simstudio

import (
	"strings"

	"github.com/roach88/earshot/internal/spatial"
	"github.com/roach88/earshot/internal/studio"
)

type system struct {
	e *Engine

	core            *core
	initialized     bool
	released        bool
	virtualChannels int
	flags           studio.InitFlags
	frames          int

	banks     map[string]*bank
	bankOrder []string
	descs     map[string]*description

	sampleData map[string]bool

	numListeners int
	listeners    [studio.MaxListeners]ListenerState
	params       map[string]float64

	instances []*instance
	collected int
}

func newSystem(e *Engine) *system {
	return &system{
		e:            e,
		core:         &core{e: e},
		banks:        make(map[string]*bank),
		descs:        make(map[string]*description),
		sampleData:   make(map[string]bool),
		numListeners: 1,
		params:       make(map[string]float64),
	}
}

// check applies injected faults and handle validity. needInit requires a
// successful Initialize first. Caller holds e.mu.
func (s *system) check(op string, needInit bool) studio.Result {
	if res := s.e.fault(op); res != studio.OK {
		return res
	}
	if s.released {
		return studio.ErrInvalidHandle
	}
	if needInit && !s.initialized {
		return studio.ErrUninitialized
	}
	return studio.OK
}

func (s *system) CoreSystem() (studio.CoreSystem, studio.Result) {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if res := s.check("system.get_core_system", false); res != studio.OK {
		return nil, res
	}
	return s.core, studio.OK
}

func (s *system) Initialize(maxChannels int, flags studio.InitFlags) studio.Result {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if res := s.check("system.initialize", false); res != studio.OK {
		return res
	}
	if maxChannels <= 0 {
		return studio.ErrInvalidParam
	}
	if s.initialized {
		return studio.ErrInitialized
	}
	s.virtualChannels = maxChannels
	s.flags = flags
	s.initialized = true
	return studio.OK
}

// Update advances every instance by one frame and collects released
// instances that have stopped.
func (s *system) Update() studio.Result {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if res := s.check("system.update", true); res != studio.OK {
		return res
	}
	s.frames++

	live := s.instances[:0]
	for _, inst := range s.instances {
		inst.advance()
		if inst.released && inst.state == studio.RawPlaybackStopped {
			inst.valid = false
			s.collected++
			continue
		}
		live = append(live, inst)
	}
	for i := len(live); i < len(s.instances); i++ {
		s.instances[i] = nil
	}
	s.instances = live
	return studio.OK
}

func (s *system) Release() studio.Result {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if res := s.check("system.release", false); res != studio.OK {
		return res
	}
	s.released = true
	for _, inst := range s.instances {
		inst.valid = false
	}
	s.instances = nil
	return studio.OK
}

func (s *system) LoadBankFile(path string, _ studio.LoadBankFlags) (studio.Bank, studio.Result) {
	var notify func()
	defer func() {
		if notify != nil {
			notify()
		}
	}()
	s.e.mu.Lock()
	defer s.e.mu.Unlock()

	const fn = "Studio::System::loadBankFile"
	if res := s.check("system.load_bank_file", true); res != studio.OK {
		notify = s.e.emit(studio.DebugError, fn, "%s: %s", path, res)
		return nil, res
	}

	name := strings.TrimPrefix(path, "/")
	if _, ok := s.e.staged[name]; !ok {
		notify = s.e.emit(studio.DebugError|studio.DebugFile, fn, "file not staged: %s", path)
		return nil, studio.ErrFileNotFound
	}
	spec, ok := s.e.catalog[name]
	if !ok {
		notify = s.e.emit(studio.DebugError|studio.DebugFile, fn, "not a bank: %s", path)
		return nil, studio.ErrFileBad
	}
	if _, loaded := s.banks[name]; loaded {
		return nil, studio.ErrAlreadyLoaded
	}

	bk := &bank{sys: s, name: name, spec: spec}
	s.banks[name] = bk
	s.bankOrder = append(s.bankOrder, name)
	notify = s.e.emit(studio.DebugLog, fn, "loaded %s (%d events)", name, len(spec.Events))
	return bk, studio.OK
}

func (s *system) GetEvent(path string) (studio.EventDescriptionHandle, studio.Result) {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if res := s.check("system.get_event", true); res != studio.OK {
		return nil, res
	}
	for _, name := range s.bankOrder {
		for _, ev := range s.banks[name].spec.Events {
			if ev.Path == path {
				return s.description(ev), studio.OK
			}
		}
	}
	return nil, studio.ErrEventNotFound
}

// description returns the one stable handle for ev. Caller holds e.mu.
func (s *system) description(ev EventSpec) *description {
	if d, ok := s.descs[ev.Path]; ok {
		return d
	}
	d := &description{sys: s, spec: ev}
	s.descs[ev.Path] = d
	return d
}

func (s *system) SetNumListeners(n int) studio.Result {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if res := s.check("system.set_num_listeners", true); res != studio.OK {
		return res
	}
	if n < 1 || n > studio.MaxListeners {
		return studio.ErrInvalidParam
	}
	s.numListeners = n
	return studio.OK
}

func (s *system) SetListenerAttributes(index int, attrs spatial.Attributes3D, _ *spatial.Vector3) studio.Result {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if res := s.check("system.set_listener_attributes", true); res != studio.OK {
		return res
	}
	if index < 0 || index >= s.numListeners {
		return studio.ErrInvalidParam
	}
	s.listeners[index].Attributes = attrs
	s.listeners[index].Set = true
	return studio.OK
}

func (s *system) SetListenerWeight(index int, weight float64) studio.Result {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if res := s.check("system.set_listener_weight", true); res != studio.OK {
		return res
	}
	if index < 0 || index >= s.numListeners || weight < 0 || weight > 1 {
		return studio.ErrInvalidParam
	}
	s.listeners[index].Weight = weight
	return studio.OK
}

func (s *system) SetParameterByName(name string, value float64, _ bool) studio.Result {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if res := s.check("system.set_parameter_by_name", true); res != studio.OK {
		return res
	}
	if name == "" {
		return studio.ErrInvalidParam
	}
	s.params[name] = value
	return studio.OK
}

type core struct {
	e *Engine

	bufferLength int
	bufferCount  int
	sampleRate   int
	speakerMode  studio.SpeakerMode
}

func (c *core) SetDSPBufferSize(length, count int) studio.Result {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	if res := c.e.fault("core.set_dsp_buffer_size"); res != studio.OK {
		return res
	}
	if length <= 0 || count <= 0 {
		return studio.ErrInvalidParam
	}
	c.bufferLength, c.bufferCount = length, count
	return studio.OK
}

func (c *core) DriverInfo(id int) (int, studio.Result) {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	if res := c.e.fault("core.get_driver_info"); res != studio.OK {
		return 0, res
	}
	if id != 0 {
		return 0, studio.ErrInvalidParam
	}
	return DefaultSampleRate, studio.OK
}

func (c *core) SetSoftwareFormat(sampleRate int, mode studio.SpeakerMode, _ int) studio.Result {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	if res := c.e.fault("core.set_software_format"); res != studio.OK {
		return res
	}
	if sampleRate <= 0 {
		return studio.ErrInvalidParam
	}
	c.sampleRate, c.speakerMode = sampleRate, mode
	return studio.OK
}

type bank struct {
	sys  *system
	name string
	spec BankSpec
}

func (b *bank) LoadSampleData() studio.Result {
	b.sys.e.mu.Lock()
	defer b.sys.e.mu.Unlock()
	if res := b.sys.check("bank.load_sample_data", true); res != studio.OK {
		return res
	}
	b.sys.sampleData["bank:"+b.name] = true
	return studio.OK
}

func (b *bank) EventCount() (int, studio.Result) {
	b.sys.e.mu.Lock()
	defer b.sys.e.mu.Unlock()
	if res := b.sys.check("bank.get_event_count", true); res != studio.OK {
		return 0, res
	}
	if b.spec.ReportedCount != nil {
		return *b.spec.ReportedCount, studio.OK
	}
	return len(b.spec.Events), studio.OK
}

func (b *bank) EventList(buf []studio.EventDescriptionHandle) (int, studio.Result) {
	b.sys.e.mu.Lock()
	defer b.sys.e.mu.Unlock()
	if res := b.sys.check("bank.get_event_list", true); res != studio.OK {
		return 0, res
	}
	n := 0
	for _, ev := range b.spec.Events {
		if n == len(buf) {
			break
		}
		buf[n] = b.sys.description(ev)
		n++
	}
	return n, studio.OK
}

type description struct {
	sys  *system
	spec EventSpec
}

func (d *description) CreateInstance() (studio.EventInstanceHandle, studio.Result) {
	d.sys.e.mu.Lock()
	defer d.sys.e.mu.Unlock()
	if res := d.sys.check("description.create_instance", true); res != studio.OK {
		return nil, res
	}
	if len(d.sys.instances) >= d.sys.virtualChannels {
		return nil, studio.ErrMemory
	}
	inst := &instance{sys: d.sys, spec: d.spec, state: studio.RawPlaybackStopped, valid: true}
	d.sys.instances = append(d.sys.instances, inst)
	return inst, studio.OK
}

func (d *description) LoadSampleData() studio.Result {
	d.sys.e.mu.Lock()
	defer d.sys.e.mu.Unlock()
	if res := d.sys.check("description.load_sample_data", true); res != studio.OK {
		return res
	}
	d.sys.sampleData[d.spec.Path] = true
	return studio.OK
}

func (d *description) Path(buf []byte) (int, studio.Result) {
	d.sys.e.mu.Lock()
	defer d.sys.e.mu.Unlock()
	if res := d.sys.check("description.get_path", true); res != studio.OK {
		return 0, res
	}
	return copy(buf, d.spec.Path+"\x00"), studio.OK
}

type instance struct {
	sys   *system
	spec  EventSpec
	state int
	// played counts frames spent playing since the last Start.
	played   int
	released bool
	valid    bool
	attrs    spatial.Attributes3D
}

// check is system.check plus instance validity. Caller holds e.mu.
func (i *instance) check(op string) studio.Result {
	if res := i.sys.check(op, true); res != studio.OK {
		return res
	}
	if !i.valid {
		return studio.ErrInvalidHandle
	}
	return studio.OK
}

// advance moves the instance one frame forward. Caller holds e.mu.
func (i *instance) advance() {
	switch i.state {
	case studio.RawPlaybackStarting:
		i.state = studio.RawPlaybackPlaying
		i.played = 0
	case studio.RawPlaybackPlaying:
		i.played++
		if i.spec.Frames > 0 && i.played >= i.spec.Frames {
			i.state = studio.RawPlaybackStopped
		}
	case studio.RawPlaybackStopping:
		i.state = studio.RawPlaybackStopped
	}
}

func (i *instance) Start() studio.Result {
	i.sys.e.mu.Lock()
	defer i.sys.e.mu.Unlock()
	if res := i.check("instance.start"); res != studio.OK {
		return res
	}
	i.state = studio.RawPlaybackStarting
	i.played = 0
	return studio.OK
}

func (i *instance) Stop(mode studio.StopMode) studio.Result {
	i.sys.e.mu.Lock()
	defer i.sys.e.mu.Unlock()
	if res := i.check("instance.stop"); res != studio.OK {
		return res
	}
	switch {
	case i.state == studio.RawPlaybackStopped:
	case mode == studio.StopImmediate:
		i.state = studio.RawPlaybackStopped
	default:
		i.state = studio.RawPlaybackStopping
	}
	return studio.OK
}

func (i *instance) Release() studio.Result {
	i.sys.e.mu.Lock()
	defer i.sys.e.mu.Unlock()
	if res := i.check("instance.release"); res != studio.OK {
		return res
	}
	if i.released {
		return studio.ErrInvalidHandle
	}
	i.released = true
	return studio.OK
}

func (i *instance) Set3DAttributes(attrs spatial.Attributes3D) studio.Result {
	i.sys.e.mu.Lock()
	defer i.sys.e.mu.Unlock()
	if res := i.check("instance.set_3d_attributes"); res != studio.OK {
		return res
	}
	i.attrs = attrs
	return studio.OK
}

func (i *instance) PlaybackState() (int, studio.Result) {
	i.sys.e.mu.Lock()
	defer i.sys.e.mu.Unlock()
	if res := i.check("instance.get_playback_state"); res != studio.OK {
		return 0, res
	}
	if i.sys.e.rawState != nil {
		return *i.sys.e.rawState, studio.OK
	}
	return i.state, studio.OK
}
