package kmusic

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	// Role identifies one of the three sequencers of a project.
	Role int

	// Track is the persisted form of a Sequencer.
	Track struct {
		Length int    `yaml:"length" json:"length"`
		Loop   bool   `yaml:"loop" json:"loop"`
		Notes  []Note `yaml:"notes" json:"notes"`
	}

	// Project is everything that is saved about a piece: the three
	// sequencers, tempo, synth patch selection and parameter values, the
	// chop markers and the source audio they refer to. The current step and
	// play state are not part of a project.
	Project struct {
		Version    int     `yaml:"version" json:"version"`
		Name       string  `yaml:"name" json:"name"`
		BPM        float64 `yaml:"bpm" json:"bpm"`
		Melodic    Track   `yaml:"melodic" json:"melodic"`
		Sample     Track   `yaml:"sample" json:"sample"`
		Drum       Track   `yaml:"drum" json:"drum"`
		PatchIndex int     `yaml:"patch" json:"patch"`
		Params     Params  `yaml:"params" json:"params"`
		Chops      Chops   `yaml:"chops,flow" json:"chops"`
		Source     string  `yaml:"source" json:"source"`
	}
)

const (
	Melodic Role = iota
	Sample
	Drum
	NumRoles
)

// ProjectVersion is the schema version written by this package.
const ProjectVersion = 2

// DefaultBPM is the tempo of a new project.
const DefaultBPM = 120

var roleNames = [NumRoles]string{"melodic", "sample", "drum"}

var titleCaser = cases.Title(language.English)

func (r Role) String() string {
	if r < 0 || r >= NumRoles {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// Title returns the role name capitalized for display.
func (r Role) Title() string {
	return titleCaser.String(r.String())
}

// ParseRole parses a role name as returned by Role.String.
func ParseRole(s string) (Role, error) {
	for i, name := range roleNames {
		if name == s {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sequencer role %q", s)
}

// Roles returns all roles in order.
func Roles() []Role {
	return []Role{Melodic, Sample, Drum}
}

// NewProject returns an empty project with one page per sequencer, default
// tempo and default parameter values.
func NewProject(name string) Project {
	newTrack := func() Track {
		return Track{Length: StepsPerPage, Loop: true, Notes: []Note{}}
	}
	return Project{
		Version: ProjectVersion,
		Name:    name,
		BPM:     DefaultBPM,
		Melodic: newTrack(),
		Sample:  newTrack(),
		Drum:    newTrack(),
		Params:  DefaultParams(),
		Chops:   Chops{},
	}
}

// Track returns a pointer to the track of the given role, or nil for an
// unknown role.
func (p *Project) Track(r Role) *Track {
	switch r {
	case Melodic:
		return &p.Melodic
	case Sample:
		return &p.Sample
	case Drum:
		return &p.Drum
	}
	return nil
}

// Copy makes a deep copy of a Project.
func (p *Project) Copy() Project {
	ret := *p
	for _, r := range Roles() {
		t := ret.Track(r)
		t.Notes = slices.Clone(t.Notes)
	}
	ret.Params = slices.Clone(p.Params)
	ret.Chops = slices.Clone(p.Chops)
	return ret
}

// Normalize replaces nil slices with empty ones, so that projects compare
// equal regardless of whether they were built in memory or decoded.
func (p *Project) Normalize() {
	for _, r := range Roles() {
		if t := p.Track(r); t.Notes == nil {
			t.Notes = []Note{}
		}
	}
	if p.Params == nil {
		p.Params = Params{}
	}
	if p.Chops == nil {
		p.Chops = Chops{}
	}
}

// Validate checks the invariants of a project: positive tempo, valid
// tracks and chops.
func (p *Project) Validate() error {
	if !(p.BPM > 0) || math.IsInf(p.BPM, 0) {
		return fmt.Errorf("BPM should be > 0, got %v", p.BPM)
	}
	if p.PatchIndex < 0 {
		return fmt.Errorf("patch index should be >= 0, got %d", p.PatchIndex)
	}
	for _, r := range Roles() {
		if err := p.Track(r).Validate(); err != nil {
			return fmt.Errorf("%v track: %w", r, err)
		}
	}
	if err := p.Params.Validate(); err != nil {
		return err
	}
	if len(p.Chops) > MaxChops {
		return fmt.Errorf("at most %d chops are allowed, got %d", MaxChops, len(p.Chops))
	}
	for i, c := range p.Chops {
		if c < 0 || math.IsNaN(c) {
			return fmt.Errorf("chop %d has a negative timestamp %v", i, c)
		}
	}
	return nil
}

// Validate checks that the length is a multiple of the page size, that
// every note has a valid range and velocity and that no two notes share an
// id and a start step.
func (t *Track) Validate() error {
	if t.Length < 0 || t.Length%StepsPerPage != 0 {
		return fmt.Errorf("length %d is not a multiple of %d", t.Length, StepsPerPage)
	}
	seen := make(map[noteKey]bool, len(t.Notes))
	for _, n := range t.Notes {
		if err := n.Validate(); err != nil {
			return err
		}
		if seen[n.key()] {
			return errors.New("two notes share the same id and start step")
		}
		seen[n.key()] = true
	}
	return nil
}
