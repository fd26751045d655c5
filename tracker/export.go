package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"text/template"

	"github.com/Masterminds/sprig"

	"github.com/kmusic/kmusic"
	"github.com/kmusic/kmusic/store"
)

// DefaultExportTemplate names exported chops like "my-song-chop-01".
const DefaultExportTemplate = `{{ .Project | lower }}-chop-{{ .Number | printf "%02d" }}`

type (
	// ExportItem is the data the export file name template is executed
	// with. The sprig functions are available in the template.
	ExportItem struct {
		Project    string
		Index      int // zero based
		Number     int // one based
		Start, End float64
	}

	// ExportProgress is reported once for every exported chop and once more
	// with Done set when the task ends. Err is the error of the item, or on
	// the final report the reason the task ended early.
	ExportProgress struct {
		Project string
		Index   int
		Total   int
		Path    string
		Err     error
		Done    bool
	}

	// ExportTask is an export running in the background.
	ExportTask struct {
		cancel context.CancelFunc
		done   chan struct{}
		paths  []string
		err    error
	}
)

// Cancel asks the task to stop before the next chop. Chops already written
// stay on disk.
func (t *ExportTask) Cancel() {
	t.cancel()
}

// Done is closed when the task has ended.
func (t *ExportTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task ends and returns the paths of the files
// written.
func (t *ExportTask) Wait() ([]string, error) {
	<-t.done
	return t.paths, t.err
}

// ExportChops writes every segment between consecutive chop markers of the
// open project to a 16-bit .wav file in the project's export directory. The
// work is done in the background on a copy of the waveform and markers.
// progress, if not nil, is called from the export goroutine after each
// file; the same values are also sent to the broker.
//
// Each file is written atomically, so an interrupted export never leaves a
// partially written file behind.
func (s *Service) ExportChops(ctx context.Context, st *store.Store, w *kmusic.Waveform, progress func(ExportProgress)) (*ExportTask, error) {
	if w == nil || len(w.Samples) == 0 {
		return nil, errors.New("no source audio to export from")
	}
	s.mu.Lock()
	name := s.project.Name
	segments := s.project.Chops.Segments()
	tmplText := s.exportTemplate
	logger := s.logger
	s.mu.Unlock()
	if len(segments) == 0 {
		return nil, errors.New("at least two chop markers are needed for an export")
	}
	names, err := exportNames(tmplText, name, segments)
	if err != nil {
		return nil, err
	}
	source := *w
	source.Samples = slices.Clone(w.Samples)
	dir := st.ExportDir(name)

	ctx, cancel := context.WithCancel(ctx)
	t := &ExportTask{cancel: cancel, done: make(chan struct{})}
	report := func(p ExportProgress) {
		p.Project = name
		p.Total = len(segments)
		if progress != nil {
			progress(p)
		}
		TrySend(s.broker.ToUI, any(p))
	}
	go func() {
		defer close(t.done)
		defer cancel()
		logger.Info("export started", "project", name, "chops", len(segments), "dir", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.err = &kmusic.IOError{Op: "mkdir", Path: dir, Err: err}
			report(ExportProgress{Index: -1, Err: t.err, Done: true})
			return
		}
		var errs []error
		for i, seg := range segments {
			if err := ctx.Err(); err != nil {
				t.err = err
				logger.Warn("export cancelled", "project", name, "written", len(t.paths))
				report(ExportProgress{Index: i, Err: err, Done: true})
				return
			}
			path := filepath.Join(dir, names[i])
			peak, err := exportSegment(&source, seg, path)
			if err != nil {
				err = fmt.Errorf("chop %d: %w", i+1, err)
				errs = append(errs, err)
				logger.Error("export failed", "path", path, "err", err)
			} else {
				t.paths = append(t.paths, path)
				logger.Debug("exported chop", "path", path, "peak", peak)
			}
			report(ExportProgress{Index: i, Path: path, Err: err})
		}
		t.err = errors.Join(errs...)
		logger.Info("export finished", "project", name, "written", len(t.paths))
		report(ExportProgress{Index: len(segments), Err: t.err, Done: true})
	}()
	return t, nil
}

func exportSegment(w *kmusic.Waveform, seg kmusic.Segment, path string) (float32, error) {
	clip, err := w.Segment(seg.Start, seg.End)
	if err != nil {
		return 0, err
	}
	data, err := clip.Wav()
	if err != nil {
		return 0, err
	}
	if err := store.WriteFileAtomic(path, data); err != nil {
		return 0, err
	}
	return clip.Peak(), nil
}

// exportNames executes the name template for every segment. Names are
// sanitized, made unique and given a .wav extension.
func exportNames(tmplText, project string, segments []kmusic.Segment) ([]string, error) {
	tmpl, err := template.New("export").Funcs(sprig.TxtFuncMap()).Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("invalid export name template: %w", err)
	}
	seen := map[string]bool{}
	names := make([]string, len(segments))
	for i, seg := range segments {
		var buf bytes.Buffer
		item := ExportItem{Project: project, Index: i, Number: i + 1, Start: seg.Start, End: seg.End}
		if err := tmpl.Execute(&buf, item); err != nil {
			return nil, fmt.Errorf("invalid export name template: %w", err)
		}
		base := store.SanitizeName(buf.String())
		if base == "" {
			base = fmt.Sprintf("chop-%02d", i+1)
		}
		name := base
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		seen[name] = true
		names[i] = name + ".wav"
	}
	return names, nil
}
