package kmusic

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// MaxChops is the maximum number of chop markers in a project.
const MaxChops = 16

// Chop marker nudge sizes, in seconds.
const (
	TrimStep  = 0.1
	MicroStep = 0.01
)

// ErrTooManyChops is returned when adding a marker to a full chop list.
var ErrTooManyChops = errors.New("maximum number of chops reached")

// Chops is a sorted list of timestamps, in seconds, into the source audio.
// Each pair of consecutive markers defines one segment.
type Chops []float64

// Add inserts a marker, keeping the list sorted, and returns its index.
func (c *Chops) Add(t float64) (int, error) {
	if len(*c) >= MaxChops {
		return -1, ErrTooManyChops
	}
	if t < 0 || math.IsNaN(t) {
		return -1, fmt.Errorf("chop timestamp %v is negative", t)
	}
	i, _ := slices.BinarySearch(*c, t)
	*c = slices.Insert(*c, i, t)
	return i, nil
}

// Nudge moves the marker at index by delta seconds, never below zero, and
// returns the new index of the moved marker after re-sorting.
func (c Chops) Nudge(index int, delta float64) (int, error) {
	if index < 0 || index >= len(c) {
		return -1, fmt.Errorf("chop index %d out of range", index)
	}
	t := math.Max(0, c[index]+delta)
	c[index] = t
	slices.Sort(c)
	return slices.Index(c, t), nil
}

// Remove deletes the marker at index.
func (c *Chops) Remove(index int) error {
	if index < 0 || index >= len(*c) {
		return fmt.Errorf("chop index %d out of range", index)
	}
	*c = slices.Delete(*c, index, index+1)
	return nil
}

// Segment is a time range [Start, End) in seconds.
type Segment struct {
	Start, End float64
}

// Segments returns the segments between consecutive markers. Fewer than two
// markers define no segments.
func (c Chops) Segments() []Segment {
	if len(c) < 2 {
		return nil
	}
	sorted := slices.Clone(c)
	slices.Sort(sorted)
	ret := make([]Segment, 0, len(sorted)-1)
	for i := 0; i+1 < len(sorted); i++ {
		ret = append(ret, Segment{Start: sorted[i], End: sorted[i+1]})
	}
	return ret
}
