package audio

import (
	"fmt"

	"github.com/roach88/earshot/internal/studio"
)

// PlaybackState is the closed set of states an EventInstance reports.
type PlaybackState int

const (
	PlaybackStarting PlaybackState = iota + 1
	PlaybackPlaying
	PlaybackSustaining
	PlaybackStopping
	PlaybackStopped
)

func (s PlaybackState) String() string {
	switch s {
	case PlaybackStarting:
		return "starting"
	case PlaybackPlaying:
		return "playing"
	case PlaybackSustaining:
		return "sustaining"
	case PlaybackStopping:
		return "stopping"
	case PlaybackStopped:
		return "stopped"
	default:
		return fmt.Sprintf("playback(%d)", int(s))
	}
}

// MarshalText renders the state name.
func (s PlaybackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var rawPlaybackStates = map[int]PlaybackState{
	studio.RawPlaybackPlaying:    PlaybackPlaying,
	studio.RawPlaybackSustaining: PlaybackSustaining,
	studio.RawPlaybackStopped:    PlaybackStopped,
	studio.RawPlaybackStarting:   PlaybackStarting,
	studio.RawPlaybackStopping:   PlaybackStopping,
}

// mapPlaybackState translates a raw engine value. Unknown values mean the
// engine and this layer disagree about the protocol.
func mapPlaybackState(raw int) (PlaybackState, error) {
	if s, ok := rawPlaybackStates[raw]; ok {
		return s, nil
	}
	return 0, &ConsistencyError{
		Code:    ErrCodeUnknownPlaybackState,
		Op:      "instance.get_playback_state",
		Message: fmt.Sprintf("engine reported unknown playback state %d", raw),
		Details: map[string]string{"raw": fmt.Sprintf("%d", raw)},
	}
}
