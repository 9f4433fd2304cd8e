package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/channel"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/deck"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/producer"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	fmt.Println("Mudra - Gesture Slide Control")

	configPath := flag.String("config", "", "path to config.json (default ~/.mudra/config.json)")
	serve := flag.Bool("serve", false, "run the inference gateway instead of the controller")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	st, err := openStore()
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	if err := st.Bindings().SeedDefaults(); err != nil {
		log.Fatalf("Failed to seed bindings: %v", err)
	}

	if *serve {
		runGateway(cfg, st)
		return
	}
	runController(cfg, st)
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

func openStore() (*store.Store, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	return store.New(filepath.Join(dir, "mudra.db"))
}

// runGateway serves the inference endpoint and the bindings API.
func runGateway(cfg config.Config, st *store.Store) {
	holder := detector.NewHolder(func() (detector.Detector, error) {
		return detector.NewMediaPipeDetector(detector.DefaultConfig())
	})
	defer holder.Close()

	srv := server.New(server.Config{
		Store:    st,
		Detector: holder,
	})

	fmt.Printf("Starting gateway on %s\n", cfg.ListenAddr)
	if err := srv.ListenAndServe(cfg.ListenAddr); err != nil {
		log.Fatalf("Gateway failed: %v", err)
	}
}

// runController wires the full control pipeline: camera, producer,
// channel, state machine, deck and tray.
func runController(cfg config.Config, st *store.Store) {
	bindings, err := st.Bindings().Active()
	if err != nil || len(bindings) == 0 {
		bindings = cfg.Bindings
	}

	ch := channel.New(channel.Config{
		URL:                  cfg.ServerURL,
		MaxReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:       cfg.ReconnectDelay(),
		AutoReconnect:        cfg.AutoReconnect,
	})
	dispatcher := channel.NewDispatcher(ch)
	defer dispatcher.Close()

	deckCtrl := deck.NewExecController(cfg.DeckHelper, 0)

	machine := gesture.NewStateMachine(deckCtrl, gesture.StateMachineConfig{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		LockDuration:        cfg.LockDuration(),
		Bindings:            bindings,
	})
	unsubPrediction := dispatcher.OnPrediction(machine.Handle)
	defer unsubPrediction()

	camera := capture.NewCamera(cfg.CameraID)
	if err := camera.Open(); err != nil {
		log.Fatalf("Failed to open camera %d: %v", cfg.CameraID, err)
	}
	defer camera.Close()

	start, stop := buildProducer(cfg, camera, ch)

	t := tray.New()

	unsubState := ch.OnConnectionChange(func(s channel.State) {
		t.SetConnectionState(s.String())
	})
	defer unsubState()

	machine.OnDialog(func(open bool) {
		if open {
			t.SetLastAction("exit dialog")
		}
	})

	t.OnToggle(func(enabled bool) {
		if enabled {
			start()
		} else {
			stop()
		}
	})
	t.OnReconnect(func() {
		ch.Connect()
	})
	t.OnQuit(func() {
		stop()
		ch.Disconnect()
	})

	ch.Connect()
	start()

	// Blocks until quit is chosen from the menu.
	t.Run()
}

// buildProducer returns start/stop controls for the producer selected by
// the configured mode.
func buildProducer(cfg config.Config, camera capture.Camera, ch *channel.Channel) (start, stop func()) {
	if cfg.Mode == "frames" {
		p := producer.NewFrameProducer(camera, ch, producer.FrameProducerConfig{
			FPS:       cfg.FrameFPS,
			Quality:   cfg.FrameQuality,
			MaxWidth:  cfg.MaxWidth,
			MaxHeight: cfg.MaxHeight,
		})
		return func() {
				if err := p.Start(); err != nil {
					log.Printf("frame producer start: %v", err)
				}
			}, func() {
				p.Stop()
			}
	}

	holder := detector.NewHolder(func() (detector.Detector, error) {
		return detector.NewMediaPipeDetector(detector.DefaultConfig())
	})

	p := producer.NewLandmarkProducer(camera, holder, ch, 0)

	var unsub func()
	return func() {
			if unsub != nil {
				return
			}
			unsub = p.Subscribe(func(producer.LandmarkMessage) {})
		}, func() {
			if unsub != nil {
				unsub()
				unsub = nil
			}
		}
}
