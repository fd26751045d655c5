package kmusic_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/kmusic/kmusic"
)

func TestNewProjectIsValid(t *testing.T) {
	p := kmusic.NewProject("demo")
	if err := p.Validate(); err != nil {
		t.Fatalf("new project is invalid: %v", err)
	}
	for _, r := range kmusic.Roles() {
		if tr := p.Track(r); tr.Length != kmusic.StepsPerPage || !tr.Loop {
			t.Errorf("%v track: %+v", r, tr)
		}
	}
}

func TestProjectValidate(t *testing.T) {
	cases := map[string]func(p *kmusic.Project){
		"zero bpm":        func(p *kmusic.Project) { p.BPM = 0 },
		"infinite bpm":    func(p *kmusic.Project) { p.BPM = math.Inf(1) },
		"negative patch":  func(p *kmusic.Project) { p.PatchIndex = -1 },
		"odd length":      func(p *kmusic.Project) { p.Drum.Length = 17 },
		"empty note":      func(p *kmusic.Project) { p.Melodic.Notes = []kmusic.Note{{ID: 1, Start: 2, End: 2, Velocity: 1}} },
		"loud note":       func(p *kmusic.Project) { p.Melodic.Notes = []kmusic.Note{{ID: 1, Start: 2, End: 3, Velocity: 2}} },
		"duplicate notes": func(p *kmusic.Project) { p.Sample.Notes = []kmusic.Note{{1, 0, 1, 1}, {1, 0, 2, 1}} },
		"unknown param":   func(p *kmusic.Project) { p.Params = append(p.Params, kmusic.Param{Name: "wobble"}) },
		"negative chop":   func(p *kmusic.Project) { p.Chops = kmusic.Chops{-1} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := kmusic.NewProject("x")
			mutate(&p)
			if err := p.Validate(); err == nil {
				t.Fatalf("expected a validation error")
			}
		})
	}
}

func TestProjectCopyIsDeep(t *testing.T) {
	p := kmusic.NewProject("x")
	p.Melodic.Notes = append(p.Melodic.Notes, kmusic.Note{ID: 60, Start: 0, End: 1, Velocity: 1})
	p.Chops = kmusic.Chops{0, 1}
	c := p.Copy()
	c.Melodic.Notes[0].ID = 61
	c.Chops[0] = 0.5
	c.Params[0].Value = 0
	if p.Melodic.Notes[0].ID != 60 || p.Chops[0] != 0 || p.Params[0].Value == 0 {
		t.Fatalf("copy shares memory with the original")
	}
}

func TestNormalize(t *testing.T) {
	var p kmusic.Project
	p.Normalize()
	q := kmusic.Project{
		Melodic: kmusic.Track{Notes: []kmusic.Note{}},
		Sample:  kmusic.Track{Notes: []kmusic.Note{}},
		Drum:    kmusic.Track{Notes: []kmusic.Note{}},
		Params:  kmusic.Params{},
		Chops:   kmusic.Chops{},
	}
	if !reflect.DeepEqual(p, q) {
		t.Fatalf("got %+v, expected %+v", p, q)
	}
}

func TestRoles(t *testing.T) {
	for _, r := range kmusic.Roles() {
		parsed, err := kmusic.ParseRole(r.String())
		if err != nil || parsed != r {
			t.Errorf("ParseRole(%q) = %v, %v", r.String(), parsed, err)
		}
	}
	if kmusic.Drum.Title() != "Drum" {
		t.Errorf("title = %q", kmusic.Drum.Title())
	}
	if _, err := kmusic.ParseRole("bass"); err == nil {
		t.Errorf("unknown role was parsed")
	}
}

func TestParams(t *testing.T) {
	var p kmusic.Params
	if v, ok := p.Get("cutoff"); !ok || v != 1 {
		t.Fatalf("missing param should give its default, got %v, %v", v, ok)
	}
	if err := p.Set("cutoff", 1.5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := p.Get("cutoff"); v != 1 {
		t.Fatalf("value not clamped: %v", v)
	}
	p.Set("cutoff", 0.25)
	if v, _ := p.Get("cutoff"); v != 0.25 || len(p) != 1 {
		t.Fatalf("Set did not replace the value: %v", p)
	}
	if err := p.Set("wobble", 1); err == nil {
		t.Fatalf("unknown parameter was accepted")
	}
	if err := p.Set("cutoff", math.NaN()); err == nil {
		t.Fatalf("NaN was accepted")
	}
	if kmusic.PresetTitle(3) != "Acid Bass" || kmusic.PresetTitle(99) != "" {
		t.Fatalf("PresetTitle gave %q", kmusic.PresetTitle(3))
	}
}
