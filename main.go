package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"voicectrl/audio"
	"voicectrl/beep"
	"voicectrl/clipboard"
	"voicectrl/config"
	"voicectrl/dictation"
	"voicectrl/doctor"
	"voicectrl/encoder"
	"voicectrl/history"
	"voicectrl/hotkey"
	"voicectrl/log"
	"voicectrl/notify"
	"voicectrl/paste"
	"voicectrl/recorder"
	"voicectrl/transcriber"
	"voicectrl/tray"
)

var version = "dev"

var shutdownOnce sync.Once

func run() {
	if len(os.Args) > 1 && os.Args[1] == "history" {
		os.Exit(historyCommand(os.Stdout, os.Args[2:]))
	}

	configFlag := flag.String("config", "", "config directory (default: ~/.config/voice-ctrl)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: the config directory, use ./ for current dir)")
	deviceFlag := flag.String("device", "", "Use named microphone device (overrides input_device)")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	tuiFlag := flag.Bool("tui", false, "Show terminal status view")
	verboseFlag := flag.Bool("verbose", false, "Log info and warnings, not only errors")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	testFlag := flag.String("test", "", "Test mode: replay WAV file as microphone, driven by stdin")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("voice-ctrl %s\n", version)
		os.Exit(0)
	}

	cfgDir, err := config.ResolveDir(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logPath, err := log.ResolveDir(*logPathFlag, cfgDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	log.SetVerbose(*verboseFlag)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	setupCrashLog(log.Dir())

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	notifier := notify.NewDesktop()

	cfg, err := config.Load(cfgDir)
	if err != nil {
		log.Errorf("config: %v", err)
		if errors.Is(err, config.ErrInvalid) {
			notifier.Error(notify.KindConfiguration,
				"config.json was invalid and has been reset to defaults (backup saved as config.json.bak).")
		}
	}
	beep.SetEnabled(cfg.AudioFeedbackEnabled)

	shortcut, err := hotkey.Parse(cfg.KeyboardShortcut)
	if err != nil {
		log.Errorf("keyboard_shortcut: %v", err)
		notifier.Error(notify.KindConfiguration,
			fmt.Sprintf("Unknown keyboard shortcut %q, using %s.", cfg.KeyboardShortcut, config.DefaultShortcut))
		shortcut, _ = hotkey.Parse(config.DefaultShortcut)
	}

	primary, fallback, err := transcriber.Select(cfg)
	if err != nil {
		log.Errorf("transcriber: %v", err)
		notifier.Error(notify.KindConfiguration, err.Error())
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if l, ok := primary.(*transcriber.Local); ok {
		defer l.Close()
	}
	log.SessionStart(primary.Name(), shortcut.String())

	if *testFlag != "" {
		os.Exit(runTestMode(cfg, primary, fallback, *testFlag))
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	deviceName := cfg.InputDevice
	if *deviceFlag != "" {
		deviceName = *deviceFlag
	}
	var selectedDevice *audio.DeviceInfo
	if *setupFlag {
		selectedDevice, err = audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		} else if selectedDevice != nil {
			cfg.InputDevice = selectedDevice.Name
			if err := cfg.Save(); err != nil {
				log.Warnf("saving input_device: %v", err)
			}
		}
	} else if selectedDevice, err = audio.FindDevice(ctx, deviceName); err != nil {
		log.Warnf("%v, using system default", err)
	}

	if *doctorFlag {
		os.Exit(doctor.Run(doctor.Options{
			Config:    cfg,
			Audio:     ctx,
			Device:    selectedDevice,
			Shortcut:  shortcut,
			Clipboard: clipboard.System{},
			Primary:   primary,
		}))
	}

	captureDevice, err := ctx.NewCapture(selectedDevice, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Printf("Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer captureDevice.Close()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		log.Errorf("history: %v", err)
	}

	keys := &paste.Keystroke{}
	go func() {
		if err := keys.Init(); err != nil {
			log.Errorf("paste keystroke init: %v", err)
		}
	}()

	events := dictation.MultiEvents{tray.Events{}}
	if *tuiFlag {
		events = append(events, tuiEvents{})
	}

	orch := dictation.New(dictation.Config{
		Recorder: recorder.New(captureDevice, recorder.Config{
			MaxDuration: cfg.MaxDuration(),
			Cues:        beep.Player{},
		}),
		Primary:  primary,
		Fallback: fallback,
		Paster:   paste.New(clipboard.System{}, keys),
		History:  store,
		Notifier: notifier,
		Events:   events,
		ErrorCue: beep.PlayError,
	})

	runCtx, cancel := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer cancel()

	hk, err := hotkey.New(shortcut)
	if err == nil {
		err = hk.Register()
	}
	if err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Printf("Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Unregister()

	trayPresses := make(chan struct{}, 1)
	trayQuit := tray.Init(tray.Handlers{
		Toggle: func() {
			select {
			case trayPresses <- struct{}{}:
			default:
			}
		},
		CopyLast: func() {
			if e, ok := store.Latest(); ok {
				if err := clipboard.Copy(e.Text); err != nil {
					log.Errorf("copy last transcription: %v", err)
				}
			}
		},
	})
	go func() {
		select {
		case <-trayQuit:
			cancel()
		case <-runCtx.Done():
		}
	}()

	if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram(shortcut.String(), cfg.MaxDuration())
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			cancel()
		}()
		sendTUI(ModeLineMsg{Text: modeLineText(cfg, primary, fallback)})
		sendTUI(DeviceLineMsg{Text: "mic: " + captureDevice.DeviceName()})
	} else {
		fmt.Printf("voice-ctrl %s listening for %s (provider %s)\n", version, shortcut, primary.Name())
	}

	presses := dictation.Merge(runCtx.Done(), hotkey.Presses(hk, runCtx.Done()), trayPresses)
	orch.Run(runCtx, presses)

	shutdown(orch.Count())
	notifier.Wait()
}

func modeLineText(cfg *config.Config, primary, fallback transcriber.Transcriber) string {
	label := primary.Name()
	if fallback != nil {
		label += " → " + fallback.Name()
	}
	return fmt.Sprintf("[%s | %s | %s]", cfg.UploadFormat, label, cfg.Language)
}

func shutdown(count int) {
	shutdownOnce.Do(func() {
		if count > 0 {
			log.SessionEnd(count)
		}
		tray.Quit()
		tuiMu.Lock()
		if tuiProgram != nil {
			tuiProgram.Quit()
		}
		tuiMu.Unlock()
		log.Close()
	})
}

// setupCrashLog sends runtime crash output (including panics in cgo audio
// callbacks) to a file next to the log.
func setupCrashLog(dir string) {
	crashPath := filepath.Join(dir, "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}
