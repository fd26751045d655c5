package tracker_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/kmusic/kmusic"
	"github.com/kmusic/kmusic/store"
	"github.com/kmusic/kmusic/tracker"
)

func testWaveform() *kmusic.Waveform {
	w := &kmusic.Waveform{Samples: make([]float32, 1000), SampleRate: 1000, Channels: 1}
	for i := range w.Samples {
		w.Samples[i] = float32(i%100) / 100
	}
	return w
}

func chopService(t *testing.T, name string, chops ...float64) *tracker.Service {
	t.Helper()
	s, _ := newTestService(t)
	s.NewProject(name)
	for _, c := range chops {
		if _, err := s.AddChop(c); err != nil {
			t.Fatalf("AddChop(%v) failed: %v", c, err)
		}
	}
	return s
}

func TestExportChops(t *testing.T) {
	st := store.New(t.TempDir())
	s := chopService(t, "Demo", 0, 0.25, 0.5, 1)
	var reports []tracker.ExportProgress
	task, err := s.ExportChops(context.Background(), st, testWaveform(), func(p tracker.ExportProgress) {
		reports = append(reports, p)
	})
	if err != nil {
		t.Fatalf("ExportChops failed: %v", err)
	}
	paths, err := task.Wait()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	dir := st.ExportDir("Demo")
	expected := []string{
		filepath.Join(dir, "demo-chop-01.wav"),
		filepath.Join(dir, "demo-chop-02.wav"),
		filepath.Join(dir, "demo-chop-03.wav"),
	}
	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("got paths %v, expected %v", paths, expected)
	}
	for i, frames := range []int{250, 250, 500} {
		info, err := os.Stat(paths[i])
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if info.Size() != int64(44+2*frames) {
			t.Errorf("%s is %d bytes, expected %d", paths[i], info.Size(), 44+2*frames)
		}
	}
	if len(reports) != 4 || !reports[3].Done || reports[3].Err != nil || reports[0].Total != 3 {
		t.Fatalf("unexpected progress reports %+v", reports)
	}
	w, err := kmusic.LoadWaveform(paths[1])
	if err != nil {
		t.Fatalf("exported file does not load: %v", err)
	}
	if w.Frames() != 250 || w.SampleRate != 1000 {
		t.Fatalf("exported clip has %d frames at %d Hz", w.Frames(), w.SampleRate)
	}
}

func TestExportCancelKeepsWrittenFiles(t *testing.T) {
	st := store.New(t.TempDir())
	s := chopService(t, "cut", 0, 0.1, 0.2, 0.3, 0.4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	task, err := s.ExportChops(ctx, st, testWaveform(), func(p tracker.ExportProgress) {
		if p.Index == 0 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("ExportChops failed: %v", err)
	}
	paths, err := task.Wait()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected one file before the cancel, got %v", paths)
	}
	entries, _ := os.ReadDir(st.ExportDir("cut"))
	if len(entries) != 1 || entries[0].Name() != "cut-chop-01.wav" {
		t.Fatalf("export dir holds %v", entries)
	}
	if _, err := kmusic.LoadWaveform(paths[0]); err != nil {
		t.Fatalf("file written before the cancel is broken: %v", err)
	}
}

func TestExportTemplate(t *testing.T) {
	st := store.New(t.TempDir())
	s := tracker.NewService(nil, tracker.WithExportTemplate(`{{ .Project | upper }}_{{ .Number }}_{{ .Start | printf "%.2f" }}`))
	defer s.Close()
	s.NewProject("beat")
	s.AddChop(0)
	s.AddChop(0.5)
	task, err := s.ExportChops(context.Background(), st, testWaveform(), nil)
	if err != nil {
		t.Fatalf("ExportChops failed: %v", err)
	}
	paths, err := task.Wait()
	if err != nil || len(paths) != 1 || filepath.Base(paths[0]) != "BEAT_1_0.00.wav" {
		t.Fatalf("got %v, %v", paths, err)
	}
	msg, ok := tracker.TimeoutReceive(s.Broker().ToUI, time.Second)
	if p, isProgress := msg.(tracker.ExportProgress); !ok || !isProgress || p.Project != "beat" {
		t.Fatalf("expected export progress on the broker, got %v", msg)
	}
}

func TestExportErrors(t *testing.T) {
	st := store.New(t.TempDir())
	s := chopService(t, "few", 0.5)
	if _, err := s.ExportChops(context.Background(), st, testWaveform(), nil); err == nil {
		t.Fatalf("export with a single marker should fail")
	}
	s.AddChop(0.9)
	if _, err := s.ExportChops(context.Background(), st, nil, nil); err == nil {
		t.Fatalf("export without audio should fail")
	}
	// a segment past the end of the audio fails alone
	s.AddChop(5)
	task, err := s.ExportChops(context.Background(), st, testWaveform(), nil)
	if err != nil {
		t.Fatalf("ExportChops failed: %v", err)
	}
	paths, err := task.Wait()
	if err == nil || len(paths) != 1 {
		t.Fatalf("got %v, %v", paths, err)
	}
	bad := tracker.NewService(nil, tracker.WithExportTemplate("{{ .Nope"))
	defer bad.Close()
	bad.AddChop(0)
	bad.AddChop(0.5)
	if _, err := bad.ExportChops(context.Background(), st, testWaveform(), nil); err == nil {
		t.Fatalf("broken template should fail")
	}
}
