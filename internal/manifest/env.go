package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Overrides are environment variables that take precedence over the
// manifest file.
type Overrides struct {
	BanksPath       string   `env:"EARSHOT_BANKS_PATH"`
	Banks           []string `env:"EARSHOT_BANKS" envSeparator:","`
	VirtualChannels *int     `env:"EARSHOT_VIRTUAL_CHANNELS"`
	LiveUpdate      *bool    `env:"EARSHOT_LIVE_UPDATE"`
}

// ParseOverrides reads overrides from environ, a list of KEY=value pairs
// as returned by os.Environ.
func ParseOverrides(environ []string) (Overrides, error) {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	var o Overrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: vars}); err != nil {
		return Overrides{}, &LoadError{Code: ErrCodeEnv, Message: fmt.Sprintf("parse env: %v", err)}
	}
	if o.VirtualChannels != nil && *o.VirtualChannels <= 0 {
		return Overrides{}, &LoadError{
			Code:    ErrCodeEnv,
			Message: fmt.Sprintf("EARSHOT_VIRTUAL_CHANNELS must be positive, got %d", *o.VirtualChannels),
		}
	}
	return o, nil
}

// Apply copies every set override onto m.
func (o Overrides) Apply(m *Manifest) {
	if o.BanksPath != "" {
		m.BanksPath = o.BanksPath
	}
	if len(o.Banks) > 0 {
		banks := make([]string, 0, len(o.Banks))
		for _, b := range o.Banks {
			if b = strings.TrimSpace(b); b != "" {
				banks = append(banks, b)
			}
		}
		m.Banks = banks
	}
	if o.VirtualChannels != nil {
		m.System.VirtualChannels = *o.VirtualChannels
	}
	if o.LiveUpdate != nil {
		m.System.LiveUpdate = *o.LiveUpdate
	}
}

// LoadWithEnv loads path and applies overrides from the process
// environment.
func LoadWithEnv(path string) (*Manifest, error) {
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	o, err := ParseOverrides(os.Environ())
	if err != nil {
		return nil, err
	}
	o.Apply(m)
	return m, nil
}
