package audio

import (
	"fmt"
	"strings"

	"github.com/roach88/earshot/internal/studio"
)

// MasterBankName is the well-known filename of the master bank.
const MasterBankName = "Master.bank"

// Defaults applied by DefaultConfig.
const (
	// Bring-up runs on the frame thread, so anything under 2048 samples
	// stutters on slower devices.
	DefaultDSPBufferLength = 2048
	DefaultDSPBufferCount  = 2
	DefaultVirtualChannels = 1024
)

// Config is everything the loader needs to bring up a session.
type Config struct {
	// BanksPath is prepended to each bank filename to form its source URL.
	BanksPath string

	// Banks are loaded in order. Exactly one must be MasterBankName.
	Banks []string

	DSPBufferLength int
	DSPBufferCount  int
	VirtualChannels int

	// OutputDriver is the driver whose native rate the mixer adopts.
	OutputDriver int
	SpeakerMode  studio.SpeakerMode

	// LiveUpdate lets the authoring tool attach to the running system.
	LiveUpdate bool
}

// DefaultConfig returns a Config with engine defaults and no banks.
func DefaultConfig() Config {
	return Config{
		DSPBufferLength: DefaultDSPBufferLength,
		DSPBufferCount:  DefaultDSPBufferCount,
		VirtualChannels: DefaultVirtualChannels,
		SpeakerMode:     studio.SpeakerModeDefault,
	}
}

// Validate rejects configs that cannot possibly bring up a session. The
// master bank requirement is enforced by the loader after loading, not here.
func (c Config) Validate() error {
	var problems []string
	if len(c.Banks) == 0 {
		problems = append(problems, "at least one bank is required")
	}
	for i, b := range c.Banks {
		if strings.TrimSpace(b) == "" {
			problems = append(problems, fmt.Sprintf("banks[%d] is empty", i))
		}
	}
	if c.DSPBufferLength <= 0 {
		problems = append(problems, "dsp buffer length must be positive")
	}
	if c.DSPBufferCount <= 0 {
		problems = append(problems, "dsp buffer count must be positive")
	}
	if c.VirtualChannels <= 0 {
		problems = append(problems, "virtual channels must be positive")
	}
	if c.OutputDriver < 0 {
		problems = append(problems, "output driver must not be negative")
	}
	if len(problems) > 0 {
		return &ValidationError{Op: "config.validate", Message: strings.Join(problems, "; ")}
	}
	return nil
}

func (c Config) studioFlags() studio.InitFlags {
	if c.LiveUpdate {
		return studio.InitLiveUpdate
	}
	return studio.InitNormal
}
