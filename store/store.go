// Package store keeps projects on disk: one YAML file per named slot, plus
// the derived export directories and the source audio they refer to.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kmusic/kmusic"
)

// Store is a project store rooted at a directory:
//
//	<root>/projects/<name>.yml   project records
//	<root>/exports/<name>/       files exported from a project
//	<root>/audio/                source audio referenced by relative path
type Store struct {
	root string
}

const projectExt = ".yml"

// New returns a store rooted at root. Nothing is created on disk until the
// first Save.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the directory the store was created with.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) projectsDir() string {
	return filepath.Join(s.root, "projects")
}

func (s *Store) projectPath(name string) string {
	return filepath.Join(s.projectsDir(), SanitizeName(name)+projectExt)
}

// ExportDir returns the directory where the exports of a project go.
func (s *Store) ExportDir(name string) string {
	return filepath.Join(s.root, "exports", SanitizeName(name))
}

// ResolveSource turns the Source reference of a project into a path.
// Relative references are relative to the audio directory of the store.
func (s *Store) ResolveSource(ref string) string {
	if ref == "" || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(s.root, "audio", ref)
}

// Save writes the project to the slot named after it, replacing any
// previous version. The write is atomic: readers see either the old or the
// new record, never a partial one.
func (s *Store) Save(p kmusic.Project) error {
	name := SanitizeName(p.Name)
	if name == "" {
		return fmt.Errorf("cannot save a project without a name")
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("refusing to save project %q: %w", p.Name, err)
	}
	p = p.Copy()
	p.Version = kmusic.ProjectVersion
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("could not encode project %q: %w", p.Name, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("could not encode project %q: %w", p.Name, err)
	}
	if err := os.MkdirAll(s.projectsDir(), 0755); err != nil {
		return &kmusic.IOError{Op: "mkdir", Path: s.projectsDir(), Err: err}
	}
	return WriteFileAtomic(s.projectPath(name), buf.Bytes())
}

// Load reads the project in the named slot. Legacy records are migrated to
// the current schema. Problems that do not prevent using the project, such
// as a missing source audio file, are returned as warnings; the record is
// returned as it was stored.
func (s *Store) Load(name string) (kmusic.Project, []error, error) {
	path := s.projectPath(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return kmusic.Project{}, nil, &kmusic.NotFoundError{Name: name}
	}
	if err != nil {
		return kmusic.Project{}, nil, &kmusic.IOError{Op: "read", Path: path, Err: err}
	}
	p, err := decode(data)
	if err != nil {
		return kmusic.Project{}, nil, &kmusic.CorruptDataError{Name: name, Err: err}
	}
	p.Normalize()
	if p.Name == "" {
		p.Name = name
	}
	if err := p.Validate(); err != nil {
		return kmusic.Project{}, nil, &kmusic.CorruptDataError{Name: name, Err: err}
	}
	var warnings []error
	if p.Source != "" {
		if _, err := os.Stat(s.ResolveSource(p.Source)); err != nil {
			warnings = append(warnings, &kmusic.MissingResourceWarning{Kind: "source audio", Ref: p.Source})
		}
	}
	return p, warnings, nil
}

// Delete removes the named slot and everything exported from it. Missing
// exports are not an error; a missing slot is reported as a warning.
func (s *Store) Delete(name string) ([]error, error) {
	var warnings []error
	path := s.projectPath(name)
	if err := os.Remove(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &kmusic.IOError{Op: "remove", Path: path, Err: err}
		}
		warnings = append(warnings, &kmusic.NotFoundError{Name: name})
	}
	dir := s.ExportDir(name)
	if err := os.RemoveAll(dir); err != nil {
		return warnings, &kmusic.IOError{Op: "remove", Path: dir, Err: err}
	}
	return warnings, nil
}

// List returns the names of all slots, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.projectsDir())
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, &kmusic.IOError{Op: "list", Path: s.projectsDir(), Err: err}
	}
	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), projectExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), projectExt))
	}
	slices.Sort(names)
	return names, nil
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it and
// renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return &kmusic.IOError{Op: "create", Path: path, Err: err}
	}
	tmp := f.Name()
	fail := func(op string, err error) error {
		f.Close()
		os.Remove(tmp)
		return &kmusic.IOError{Op: op, Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		return fail("write", err)
	}
	if err := f.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &kmusic.IOError{Op: "close", Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &kmusic.IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// SanitizeName turns a project name into something safe to use as a file
// name.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer(
		" ", "-", "/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
	).Replace(name)
	return strings.Trim(name, ".")
}

// decode tries JSON first and falls back to YAML, then migrates the
// document to the current schema.
func decode(data []byte) (kmusic.Project, error) {
	var doc document
	if errJSON := json.Unmarshal(data, &doc); errJSON != nil {
		doc = document{}
		if errYaml := yaml.Unmarshal(data, &doc); errYaml != nil {
			return kmusic.Project{}, fmt.Errorf("not JSON (%v) nor YAML (%v)", errJSON, errYaml)
		}
	}
	return doc.migrate()
}
