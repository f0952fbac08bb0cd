// Package manifest loads session manifests: the bank list, engine
// settings, and optionally the bank catalog for the simulated engine.
//
// Manifests may be written in CUE, YAML, or TOML. Every format is checked
// against the same embedded CUE schema, which also supplies defaults, so
// a YAML manifest and its CUE equivalent decode identically. Unknown fields
// are rejected.
//
// Example (YAML):
//
//	banks_path: assets/banks/
//	banks: [Master.bank, Master.strings.bank, SFX.bank]
//	system:
//	  virtual_channels: 512
//	  live_update: true
package manifest

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/earshot/internal/audio"
	"github.com/roach88/earshot/internal/simstudio"
	"github.com/roach88/earshot/internal/studio"
)

//go:embed schema.cue
var schemaSource []byte

// Manifest describes one audio session.
type Manifest struct {
	Name      string            `json:"name,omitempty"`
	BanksPath string            `json:"banks_path"`
	Banks     []string          `json:"banks"`
	System    System            `json:"system"`
	Catalog   simstudio.Catalog `json:"catalog,omitempty"`
}

// System holds engine settings.
type System struct {
	DSPBufferLength int    `json:"dsp_buffer_length"`
	DSPBufferCount  int    `json:"dsp_buffer_count"`
	VirtualChannels int    `json:"virtual_channels"`
	OutputDriver    int    `json:"output_driver"`
	SpeakerMode     string `json:"speaker_mode"`
	LiveUpdate      bool   `json:"live_update"`
}

var speakerModes = map[string]studio.SpeakerMode{
	"default":  studio.SpeakerModeDefault,
	"mono":     studio.SpeakerModeMono,
	"stereo":   studio.SpeakerModeStereo,
	"quad":     studio.SpeakerModeQuad,
	"surround": studio.SpeakerModeSurround,
	"5.1":      studio.SpeakerMode5Point1,
	"7.1":      studio.SpeakerMode7Point1,
}

// Load reads and validates the manifest at path. The format is chosen by
// file extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading manifest: %v", err)}
	}
	return Parse(data, path)
}

// Parse validates data as a manifest. filename selects the format and is
// used in error positions.
func Parse(data []byte, filename string) (*Manifest, error) {
	ctx := cuecontext.New()

	var v cue.Value
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".cue":
		v = ctx.CompileBytes(data, cue.Filename(filename))
	case ".yaml", ".yml":
		raw := map[string]any{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing YAML: %v", err)}
		}
		v = ctx.Encode(raw)
	case ".toml":
		raw := map[string]any{}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing TOML: %v", err)}
		}
		v = ctx.Encode(raw)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupportedFormat, Message: fmt.Sprintf("unsupported manifest format %q", ext)}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(ErrCodeLoadFailed, err)
	}

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(ErrCodeSchema, err)
	}

	var m Manifest
	if err := unified.Decode(&m); err != nil {
		return nil, formatCUEError(ErrCodeSchema, err)
	}
	return &m, nil
}

// Config converts the manifest into loader configuration.
func (m *Manifest) Config() (audio.Config, error) {
	mode, ok := speakerModes[m.System.SpeakerMode]
	if !ok && m.System.SpeakerMode != "" {
		return audio.Config{}, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("unknown speaker mode %q", m.System.SpeakerMode)}
	}

	cfg := audio.DefaultConfig()
	cfg.BanksPath = m.BanksPath
	cfg.Banks = append([]string(nil), m.Banks...)
	if m.System.DSPBufferLength > 0 {
		cfg.DSPBufferLength = m.System.DSPBufferLength
	}
	if m.System.DSPBufferCount > 0 {
		cfg.DSPBufferCount = m.System.DSPBufferCount
	}
	if m.System.VirtualChannels > 0 {
		cfg.VirtualChannels = m.System.VirtualChannels
	}
	cfg.OutputDriver = m.System.OutputDriver
	cfg.SpeakerMode = mode
	cfg.LiveUpdate = m.System.LiveUpdate

	if err := cfg.Validate(); err != nil {
		return audio.Config{}, err
	}
	return cfg, nil
}

// EngineCatalog is the catalog the simulated engine should serve: the
// manifest's own, or the default project when none is given.
func (m *Manifest) EngineCatalog() simstudio.Catalog {
	if len(m.Catalog) == 0 {
		return simstudio.DefaultCatalog()
	}
	return m.Catalog
}
