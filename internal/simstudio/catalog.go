package simstudio

// EventSpec describes one authored event.
type EventSpec struct {
	Path string `json:"path" yaml:"path" toml:"path"`

	// Frames is how many updates the event plays before stopping on its
	// own. Zero means it loops until stopped.
	Frames int `json:"frames,omitempty" yaml:"frames,omitempty" toml:"frames,omitempty"`
}

// BankSpec describes the contents of one bank file.
type BankSpec struct {
	Events []EventSpec `json:"events,omitempty" yaml:"events,omitempty" toml:"events,omitempty"`

	// ReportedCount overrides the count the bank reports, to exercise
	// count/list disagreement. Nil means len(Events).
	ReportedCount *int `json:"reported_count,omitempty" yaml:"reported_count,omitempty" toml:"reported_count,omitempty"`
}

// Catalog maps bank filenames to their contents.
type Catalog map[string]BankSpec

// DefaultCatalog is a small authored project: a master bank listing every
// event, a strings bank, and an SFX bank.
func DefaultCatalog() Catalog {
	events := []EventSpec{
		{Path: "event:/Ambience/Country"},
		{Path: "event:/Music/Level 01"},
		{Path: "event:/UI/Cancel", Frames: 30},
		{Path: "event:/Vehicles/Ride-on Mower"},
		{Path: "event:/Weapons/Explosion", Frames: 60},
		{Path: "event:/Weapons/Pistol", Frames: 12},
	}
	return Catalog{
		"Master.bank":         {Events: events},
		"Master.strings.bank": {},
		"SFX.bank": {Events: []EventSpec{
			{Path: "event:/UI/Cancel", Frames: 30},
			{Path: "event:/Weapons/Explosion", Frames: 60},
			{Path: "event:/Weapons/Pistol", Frames: 12},
		}},
	}
}

// clone deep-copies the catalog so engines never share authored data.
func (c Catalog) clone() Catalog {
	out := make(Catalog, len(c))
	for name, b := range c {
		nb := BankSpec{Events: append([]EventSpec(nil), b.Events...)}
		if b.ReportedCount != nil {
			n := *b.ReportedCount
			nb.ReportedCount = &n
		}
		out[name] = nb
	}
	return out
}
