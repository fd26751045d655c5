package store

import (
	"fmt"

	"github.com/kmusic/kmusic"
)

type (
	// document is what a project file may contain: the current schema plus
	// the fields of the version 1 tile layout.
	document struct {
		kmusic.Project `yaml:",inline"`
		Tiles          map[string][]legacyTile `yaml:"tiles,omitempty" json:"tiles,omitempty"`
		KeyTiles       map[string][]legacyTile `yaml:"keyTiles,omitempty" json:"keyTiles,omitempty"`
	}

	// legacyTile is one placed cell of the version 1 layout. Step could be
	// fractional in old files; it is truncated to a whole step.
	legacyTile struct {
		SpriteName string  `yaml:"spriteName" json:"spriteName"`
		Step       float64 `yaml:"step" json:"step"`
		Note       int     `yaml:"note" json:"note"`
	}
)

func (d *document) migrate() (kmusic.Project, error) {
	version := d.Version
	if version == 0 && (d.Tiles != nil || d.KeyTiles != nil) {
		version = 1
	}
	switch version {
	case kmusic.ProjectVersion:
		return d.Project, nil
	case 1:
		return d.migrateTiles()
	default:
		return kmusic.Project{}, fmt.Errorf("unsupported schema version %d", d.Version)
	}
}

// migrateTiles converts pad tiles to drum notes and key tiles to melodic
// notes, each one step long at full velocity.
func (d *document) migrateTiles() (kmusic.Project, error) {
	p := kmusic.NewProject(d.Name)
	if d.BPM > 0 {
		p.BPM = d.BPM
	}
	if d.Source != "" {
		p.Source = d.Source
	}
	var err error
	if p.Drum, err = tilesToTrack(d.Tiles); err != nil {
		return kmusic.Project{}, fmt.Errorf("tiles: %w", err)
	}
	if p.Melodic, err = tilesToTrack(d.KeyTiles); err != nil {
		return kmusic.Project{}, fmt.Errorf("keyTiles: %w", err)
	}
	return p, nil
}

func tilesToTrack(groups map[string][]legacyTile) (kmusic.Track, error) {
	seq := kmusic.NewSequencer()
	maxStep := 0
	for _, tiles := range groups {
		for _, t := range tiles {
			step := int(t.Step)
			if err := seq.Notes.AddNote(t.Note, step, step+1, 1); err != nil {
				return kmusic.Track{}, err
			}
			maxStep = max(maxStep, step)
		}
	}
	seq.Length = (maxStep/kmusic.StepsPerPage + 1) * kmusic.StepsPerPage
	return seq.Track(), nil
}
