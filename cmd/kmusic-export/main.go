package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"

	"github.com/kmusic/kmusic"
	"github.com/kmusic/kmusic/cmd"
	"github.com/kmusic/kmusic/config"
	"github.com/kmusic/kmusic/oto"
	"github.com/kmusic/kmusic/store"
	"github.com/kmusic/kmusic/tracker"
	"github.com/kmusic/kmusic/version"
)

func main() {
	defaultConfig, _ := config.Path()
	configPath := flag.String("config", defaultConfig, "Configuration file.")
	dataDir := flag.String("data", "", "Directory of the project store. Overrides the configuration.")
	source := flag.String("source", "", "Source audio to chop. Overrides, and replaces, the source saved in the project.")
	nameTemplate := flag.String("name", "", "Template for the exported file names, e.g. '{{ .Project }}-{{ .Number }}'. Overrides the configuration.")
	preview := flag.Bool("p", false, "Play each chop after exporting.")
	matchTempo := flag.Bool("tempo", false, "Detect the tempo of the source audio and save it as the project tempo.")
	remove := flag.Bool("delete", false, "Delete the projects and their exports instead of exporting.")
	logLevel := flag.String("log", "", "Log level: debug, info, warn or error. Overrides the configuration.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
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
	logger := cmd.NewLogger(os.Stderr, "kmusic-export", level)
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *nameTemplate != "" {
		cfg.ExportName = *nameTemplate
	}
	root, err := cfg.ResolveDataDir()
	if err != nil {
		logger.Fatal("could not find a data directory", "err", err)
	}
	st := store.New(root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = log.WithContext(ctx, logger)

	options := []tracker.Option{tracker.WithLogger(logger)}
	if cfg.ExportName != "" {
		options = append(options, tracker.WithExportTemplate(cfg.ExportName))
	}
	svc := tracker.NewService(nil, options...)
	defer svc.Close()

	retval := 0
	for _, name := range flag.Args() {
		var err error
		if *remove {
			err = svc.Delete(st, name)
		} else {
			err = export(ctx, svc, st, name, *source, *preview, *matchTempo)
		}
		if err != nil {
			logger.Error("failed", "project", name, "err", err)
			retval = 1
		}
		if ctx.Err() != nil {
			break
		}
	}
	os.Exit(retval)
}

func export(ctx context.Context, svc *tracker.Service, st *store.Store, name, source string, preview, matchTempo bool) error {
	logger := log.FromContext(ctx)
	if _, err := svc.Open(st, name); err != nil {
		return err
	}
	if source != "" {
		svc.SetSource(source)
	}
	ref := svc.Source()
	if ref == "" {
		return fmt.Errorf("project has no source audio; give one with -source")
	}
	w, err := kmusic.LoadWaveform(st.ResolveSource(ref))
	if err != nil {
		return err
	}
	logger.Info("source loaded", "ref", ref, "seconds", w.Duration(), "peak", w.Peak())
	if matchTempo {
		if _, err := svc.MatchTempo(w); err != nil {
			logger.Warn("could not detect the tempo of the source", "ref", ref, "err", err)
		}
	}
	task, err := svc.ExportChops(ctx, st, w, func(p tracker.ExportProgress) {
		if p.Done {
			return
		}
		if p.Err != nil {
			logger.Error("chop failed", "chop", p.Index+1, "of", p.Total, "err", p.Err)
			return
		}
		logger.Info("chop written", "chop", p.Index+1, "of", p.Total, "path", p.Path)
	})
	if err != nil {
		return err
	}
	paths, err := task.Wait()
	if err != nil {
		return err
	}
	if svc.ChangedSinceSave() {
		if err := svc.Save(st); err != nil {
			return err
		}
	}
	if preview {
		return play(ctx, paths)
	}
	return nil
}

func play(ctx context.Context, paths []string) error {
	var (
		audio kmusic.AudioContext
		sink  kmusic.AudioSink
	)
	rate, channels := 0, 0
	for _, path := range paths {
		w, err := kmusic.LoadWaveform(path)
		if err != nil {
			return err
		}
		if audio == nil {
			// the device keeps the format of the first chop; all chops share
			// the format of the source
			device, err := oto.NewContext(w.SampleRate, w.Channels)
			if err != nil {
				return err
			}
			audio = device
			defer audio.Close()
			rate, channels = device.Format()
			sink = audio.Output()
			defer sink.Close()
		}
		if w.SampleRate != rate || w.Channels != channels {
			return fmt.Errorf("%s: %d Hz %d channel audio does not match the %d Hz %d channel device", path, w.SampleRate, w.Channels, rate, channels)
		}
		log.FromContext(ctx).Info("playing", "path", path)
		if err := kmusic.PlayWaveform(ctx, sink, w); err != nil {
			return err
		}
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "kmusic chop exporter: writes the chops of each project's source audio to .wav files.\nUsage: %s [flags] project ...\n", os.Args[0])
	flag.PrintDefaults()
}
