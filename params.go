package kmusic

import (
	"fmt"
	"math"
)

type (
	// ParamDef declares a synth or mixer parameter and its default value.
	ParamDef struct {
		Name    string
		Default float64
	}

	// Param is the value of one parameter in a project.
	Param struct {
		Name  string  `yaml:"name" json:"name"`
		Value float64 `yaml:"value" json:"value"`
	}

	// Params is an ordered list of parameter values.
	Params []Param
)

// ParamDefs lists the parameters a project stores, in display order. Values
// are normalized to [0, 1], except where the name says otherwise.
var ParamDefs = []ParamDef{
	{"helm_volume", 0.8},
	{"sample_volume", 0.8},
	{"drum_volume", 0.8},
	{"cutoff", 1},
	{"resonance", 0},
	{"attack", 0},
	{"decay", 0.5},
	{"sustain", 1},
	{"release", 0.2},
	{"delay_mix", 0},
	{"reverb_mix", 0},
	{"pitch_shift", 0.5},
}

// Presets names the synth patches selectable by a project's PatchIndex.
var Presets = []string{
	"clean keys",
	"warm pad",
	"pluck",
	"acid bass",
	"bell",
	"brass stab",
	"noise sweep",
	"sub bass",
}

// PresetTitle returns the display name of a preset, or an empty string for
// an out of range index.
func PresetTitle(index int) string {
	if index < 0 || index >= len(Presets) {
		return ""
	}
	return titleCaser.String(Presets[index])
}

// DefaultParams returns all declared parameters at their default values.
func DefaultParams() Params {
	ret := make(Params, len(ParamDefs))
	for i, d := range ParamDefs {
		ret[i] = Param{Name: d.Name, Value: d.Default}
	}
	return ret
}

func paramDef(name string) (ParamDef, bool) {
	for _, d := range ParamDefs {
		if d.Name == name {
			return d, true
		}
	}
	return ParamDef{}, false
}

// Get returns the value of the named parameter. Parameters that are
// declared but missing from p return their default.
func (p Params) Get(name string) (float64, bool) {
	for _, v := range p {
		if v.Name == name {
			return v.Value, true
		}
	}
	if d, ok := paramDef(name); ok {
		return d.Default, true
	}
	return 0, false
}

// Set sets the value of a declared parameter, clamping it to [0, 1].
// Missing declared parameters are appended.
func (p *Params) Set(name string, value float64) error {
	if _, ok := paramDef(name); !ok {
		return fmt.Errorf("unknown parameter %q", name)
	}
	if math.IsNaN(value) {
		return fmt.Errorf("parameter %q cannot be NaN", name)
	}
	value = clamp(value, 0, 1)
	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Value = value
			return nil
		}
	}
	*p = append(*p, Param{Name: name, Value: value})
	return nil
}

// Validate checks that every parameter is declared, appears once and has a
// value in [0, 1].
func (p Params) Validate() error {
	seen := map[string]bool{}
	for _, v := range p {
		if _, ok := paramDef(v.Name); !ok {
			return fmt.Errorf("unknown parameter %q", v.Name)
		}
		if seen[v.Name] {
			return fmt.Errorf("parameter %q appears twice", v.Name)
		}
		seen[v.Name] = true
		if !(v.Value >= 0 && v.Value <= 1) {
			return fmt.Errorf("parameter %q has value %v outside [0, 1]", v.Name, v.Value)
		}
	}
	return nil
}
