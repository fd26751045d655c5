package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"

	"github.com/kmusic/kmusic"
	"github.com/kmusic/kmusic/cmd"
	"github.com/kmusic/kmusic/config"
	"github.com/kmusic/kmusic/rpc"
	"github.com/kmusic/kmusic/store"
	"github.com/kmusic/kmusic/tracker"
	"github.com/kmusic/kmusic/version"
)

// fullVelocity plays every note at full velocity, for synths that do not
// respond to velocity well.
type fullVelocity struct{ kmusic.NoteTrigger }

func (f fullVelocity) NoteOn(id int, _ float64) { f.NoteTrigger.NoteOn(id, 1) }

func main() {
	defaultConfig, _ := config.Path()
	configPath := flag.String("config", defaultConfig, "Configuration file.")
	dataDir := flag.String("data", "", "Directory of the project store. Overrides the configuration.")
	bpm := flag.Float64("bpm", 0, "Tempo. Overrides the tempo saved in the project.")
	midiOut := flag.String("midi", "", "Prefix of the MIDI output port name. Overrides the configuration.")
	virtual := flag.String("virtual", "kmusic", "Name of the virtual MIDI port to open when no output matches; empty to disable.")
	syncAddr := flag.String("sync", "", "Address of a step sync receiver. Overrides the configuration.")
	create := flag.Bool("new", false, "Create the project if it does not exist.")
	list := flag.Bool("list", false, "List the projects in the store and exit.")
	ports := flag.Bool("ports", false, "List the MIDI output ports and exit.")
	logLevel := flag.String("log", "", "Log level: debug, info, warn or error. Overrides the configuration.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}

	if *ports {
		names, err := cmd.MIDIOutputs()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not list MIDI outputs: %v\n", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load configuration: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	logger := cmd.NewLogger(os.Stderr, "kmusic", level)
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *midiOut != "" {
		cfg.MIDI.Output = *midiOut
	}
	if *syncAddr != "" {
		cfg.SyncAddress = *syncAddr
	}
	root, err := cfg.ResolveDataDir()
	if err != nil {
		logger.Fatal("could not find a data directory", "err", err)
	}
	st := store.New(root)

	if *list {
		names, err := st.List()
		if err != nil {
			logger.Fatal("could not list projects", "err", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		os.Exit(0)
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	name := flag.Arg(0)

	options := []tracker.Option{tracker.WithLogger(logger)}
	if cfg.ExportName != "" {
		options = append(options, tracker.WithExportTemplate(cfg.ExportName))
	}
	if send, portName, closeMIDI, err := cmd.OpenMIDIOutput(cfg.MIDI.Output, *virtual); err != nil {
		logger.Warn("playing without MIDI output", "err", err)
	} else {
		defer closeMIDI()
		logger.Info("MIDI output open", "port", portName)
		options = append(options, midiTriggers(send, cfg.MIDI)...)
	}
	broker := tracker.NewBroker()
	svc := tracker.NewService(broker, options...)
	defer svc.Close()

	if _, err := svc.Open(st, name); err != nil {
		var notFound *kmusic.NotFoundError
		if !errors.As(err, &notFound) || !*create {
			logger.Fatal("could not open project", "name", name, "err", err)
		}
		svc.NewProject(name)
		if cfg.BPM > 0 {
			svc.SetBPM(cfg.BPM)
		}
		if err := svc.Save(st); err != nil {
			logger.Fatal("could not create project", "name", name, "err", err)
		}
	}
	recoveryPath := filepath.Join(root, "recovery", store.SanitizeName(name)+".json")
	if _, err := os.Stat(recoveryPath); err == nil {
		if err := svc.LoadRecovery(recoveryPath); err != nil {
			logger.Warn("could not recover unsaved changes", "path", recoveryPath, "err", err)
		} else {
			logger.Warn("recovered unsaved changes", "path", recoveryPath)
		}
	}
	if *bpm != 0 {
		if err := svc.SetBPM(*bpm); err != nil {
			logger.Fatal("invalid tempo", "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = log.WithContext(ctx, logger)

	go forwardSteps(ctx, broker, cfg.SyncAddress)
	go showPages(ctx, svc)

	_, patch := svc.Patch()
	logger.Info("playing", "project", name, "bpm", svc.BPM(), "patch", patch)
	for _, r := range kmusic.Roles() {
		notes, _ := svc.Notes(r)
		page, pages, _ := svc.CurrentPage(r)
		fmt.Println(renderPage(r, page, pages, notes, 0))
	}
	svc.Start()
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("clock stopped", "err", err)
	}
	if svc.ChangedSinceSave() {
		if err := svc.Save(st); err != nil {
			logger.Error("could not save project", "err", err)
			os.MkdirAll(filepath.Dir(recoveryPath), 0755)
			if err := svc.SaveRecovery(recoveryPath); err != nil {
				logger.Error("could not write recovery file", "err", err)
			}
		}
	}
}

func midiTriggers(send func(midi.Message) error, c config.MIDIConfig) []tracker.Option {
	var ret []tracker.Option
	for r, ch := range map[kmusic.Role]uint8{kmusic.Melodic: c.Melodic, kmusic.Sample: c.Sample, kmusic.Drum: c.Drum} {
		if ch == 0 {
			continue
		}
		var trig kmusic.NoteTrigger = tracker.NewMIDITrigger(send, ch-1)
		if !c.Velocity {
			trig = fullVelocity{trig}
		}
		ret = append(ret, tracker.WithTrigger(r, trig))
	}
	return ret
}

// forwardSteps sends playhead positions to a remote display, or discards
// them when no address is configured.
func forwardSteps(ctx context.Context, broker *tracker.Broker, addr string) {
	logger := log.FromContext(ctx)
	var sender chan<- rpc.StepSync
	if addr != "" {
		var err error
		if sender, err = rpc.Sender(addr); err != nil {
			logger.Warn("step sync disabled", "err", err)
		} else {
			defer close(sender)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case pos := <-broker.ToSync:
			if sender != nil {
				tracker.TrySend(sender, rpc.StepSync{Role: pos.Role.String(), Step: pos.Step, Page: pos.Page})
			}
		}
	}
}

// showPages prints a sequencer's page whenever its playhead enters it, and
// logs warnings and export progress.
func showPages(ctx context.Context, svc *tracker.Service) {
	logger := log.FromContext(ctx)
	for {
		msg, ok := tracker.TimeoutReceive(svc.Broker().ToUI, 100*time.Millisecond)
		if ctx.Err() != nil {
			return
		}
		if !ok {
			continue
		}
		switch m := msg.(type) {
		case tracker.PageChanged:
			notes, _ := svc.Notes(m.Role)
			_, pages, _ := svc.CurrentPage(m.Role)
			fmt.Println(renderPage(m.Role, m.Page, pages, notes, m.Step))
		case tracker.Warning:
			logger.Warn(m.Err.Error())
		case tracker.ExportProgress:
			logger.Info("export", "index", m.Index, "total", m.Total, "path", m.Path)
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "kmusic step sequencer player: plays a project from the store on MIDI.\nUsage: %s [flags] project\n", os.Args[0])
	flag.PrintDefaults()
}
