// Package studio describes the spatial audio engine as earshot sees it.
//
// The engine is an opaque capability: it loads banks, resolves events,
// mixes, and plays. earshot only talks to it through the interfaces here,
// which mirror the engine's studio and core APIs closely enough that a
// native binding or the in-process simulator can sit behind them.
//
// Every call reports a Result. Anything other than OK is a failure the
// caller must surface; the engine never panics across this boundary.
package studio

import "github.com/roach88/earshot/internal/spatial"

// MaxListeners is the most listeners the engine will accept.
const MaxListeners = 8

// Bootstrapper brings the engine runtime up asynchronously.
//
// Bootstrap returns immediately. The implementation later calls
// hooks.PreRun once asset staging is possible, then hooks.RuntimeInitialized
// once the runtime can create systems. Hooks run on whatever goroutine the
// runtime delivers completions on.
type Bootstrapper interface {
	Bootstrap(hooks Hooks)
}

// Hooks are the lifecycle callbacks handed to a Bootstrapper.
type Hooks struct {
	// PreRun stages bank files so the runtime can read them.
	PreRun func(fs FileStager) error

	// RuntimeInitialized creates and configures systems and loads banks.
	RuntimeInitialized func(rt Runtime) error
}

// FileStager makes a remote file readable at dir/name.
type FileStager interface {
	StageFile(dir, name, url string) error
}

// Runtime creates studio systems once the engine runtime is up.
type Runtime interface {
	CreateSystem() (System, Result)
}

// InitFlags are studio initialization flags.
type InitFlags uint32

const (
	// InitNormal is the default behaviour.
	InitNormal InitFlags = 0

	// InitLiveUpdate lets the authoring tool connect to the running system.
	InitLiveUpdate InitFlags = 1 << 0
)

// LoadBankFlags control bank loading.
type LoadBankFlags uint32

// LoadBankNormal loads synchronously with default behaviour.
const LoadBankNormal LoadBankFlags = 0

// SpeakerMode selects the mixer output layout.
type SpeakerMode int

const (
	SpeakerModeDefault SpeakerMode = iota
	SpeakerModeMono
	SpeakerModeStereo
	SpeakerModeQuad
	SpeakerModeSurround
	SpeakerMode5Point1
	SpeakerMode7Point1
)

// StopMode controls how an instance stops.
type StopMode int

const (
	StopAllowFadeout StopMode = iota
	StopImmediate
)

// Raw playback state values as reported by the engine.
const (
	RawPlaybackPlaying    = 0
	RawPlaybackSustaining = 1
	RawPlaybackStopped    = 2
	RawPlaybackStarting   = 3
	RawPlaybackStopping   = 4
)

// System is the studio system handle.
type System interface {
	CoreSystem() (CoreSystem, Result)
	Initialize(maxChannels int, studioFlags InitFlags) Result
	Update() Result
	Release() Result

	LoadBankFile(path string, flags LoadBankFlags) (Bank, Result)
	GetEvent(path string) (EventDescriptionHandle, Result)

	SetNumListeners(n int) Result
	// SetListenerAttributes sets listener index's 3D state. A nil
	// attenuation position means the listener position is used.
	SetListenerAttributes(index int, attrs spatial.Attributes3D, attenuation *spatial.Vector3) Result
	SetListenerWeight(index int, weight float64) Result

	SetParameterByName(name string, value float64, ignoreSeekSpeed bool) Result
}

// CoreSystem is the low-level mixer system underneath a studio system.
type CoreSystem interface {
	SetDSPBufferSize(length, count int) Result
	// DriverInfo reports the native sample rate of output driver id.
	DriverInfo(id int) (sampleRate int, res Result)
	SetSoftwareFormat(sampleRate int, mode SpeakerMode, rawSpeakers int) Result
}

// Bank is a loaded bank.
type Bank interface {
	LoadSampleData() Result
	EventCount() (int, Result)
	// EventList fills buf and reports how many entries were written.
	EventList(buf []EventDescriptionHandle) (int, Result)
}

// EventDescriptionHandle is the engine's reference to an event template.
type EventDescriptionHandle interface {
	CreateInstance() (EventInstanceHandle, Result)
	LoadSampleData() Result
	// Path writes the NUL-terminated path into buf and reports how many
	// bytes were written, terminator included, capped at len(buf).
	Path(buf []byte) (retrieved int, res Result)
}

// EventInstanceHandle is the engine's reference to one playing occurrence.
type EventInstanceHandle interface {
	Start() Result
	Stop(mode StopMode) Result
	Release() Result
	Set3DAttributes(attrs spatial.Attributes3D) Result
	PlaybackState() (int, Result)
}
