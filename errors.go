package kmusic

import "fmt"

type (
	// InvalidRangeError is returned when a note or segment is given step
	// bounds that cannot describe a non-empty range starting at or after zero.
	// The store or sequencer is left unchanged.
	InvalidRangeError struct {
		ID    int
		Start int
		End   int
	}

	// NotFoundError is returned when a named project slot does not exist.
	NotFoundError struct {
		Name string
	}

	// CorruptDataError is returned when a persisted project cannot be decoded,
	// migrated or validated.
	CorruptDataError struct {
		Name string
		Err  error
	}

	// IOError wraps a failure of the underlying medium while reading or
	// writing.
	IOError struct {
		Op   string
		Path string
		Err  error
	}

	// MissingResourceWarning reports a referenced resource (typically the
	// source audio of a project) that is absent. It is never fatal: the caller
	// falls back to a substitute and may prompt the user for a replacement.
	MissingResourceWarning struct {
		Kind string
		Ref  string
	}
)

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid step range [%d, %d) for note %d", e.Start, e.End, e.ID)
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("project %q not found", e.Name)
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("project %q is corrupt: %v", e.Name, e.Err)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (w *MissingResourceWarning) Error() string {
	return fmt.Sprintf("missing %s: %s", w.Kind, w.Ref)
}
