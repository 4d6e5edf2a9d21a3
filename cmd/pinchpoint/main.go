package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ayusman/pinchpoint/internal/app"
	"github.com/ayusman/pinchpoint/internal/capture"
	"github.com/ayusman/pinchpoint/internal/config"
	"github.com/ayusman/pinchpoint/internal/control"
	"github.com/ayusman/pinchpoint/internal/desktop"
	"github.com/ayusman/pinchpoint/internal/preview"
	"github.com/ayusman/pinchpoint/internal/screen"
	"github.com/ayusman/pinchpoint/internal/server"
	"github.com/ayusman/pinchpoint/internal/store"
	"github.com/ayusman/pinchpoint/internal/tray"
)

var (
	_ control.Cursor  = (*desktop.Robot)(nil)
	_ screen.Displays = (*desktop.Robot)(nil)
)

func main() {
	fmt.Println("Pinchpoint - Hand Pointer Control")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	params, err := control.NewParamsFrom(cfg.Params())
	if err != nil {
		log.Fatalf("Invalid parameters: %v", err)
	}

	var st *store.Store
	if cfg.RecordSessions {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		st, err = store.New(cfg.DBPath())
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		defer st.Close()
	}

	robot := desktop.NewRobot(cfg.MouseButton)
	frames := preview.NewBuffer()
	telemetry := server.NewTelemetry()

	a := app.New(app.Config{
		Camera: capture.NewCamera(capture.Config{
			DeviceID: cfg.CameraID,
			Width:    cfg.FrameWidth,
			Height:   cfg.FrameHeight,
			Mirror:   cfg.Mirror,
		}),
		Cursor:         robot,
		Displays:       robot,
		Params:         params,
		Mode:           cfg.MappingMode,
		ReleaseTimeout: cfg.PinchReleaseTimeout,
		Sink:           frames,
		Store:          st,
	})
	defer a.Close()

	t := tray.New(params.CursorSensitivity())
	a.OnStep(telemetry.Publish)
	a.OnStep(func(step control.Step) {
		if step.Button != control.ButtonNone {
			t.SetLastEvent(step.Button.String())
		}
	})

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	if staticDir != "" {
		fmt.Printf("Serving static files from: %s\n", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir:         staticDir,
		Store:             st,
		Params:            params,
		OnParamsChange:    func(s control.Snapshot) { t.SetSensitivity(s.CursorSensitivity) },
		Detection:         a,
		OnDetectionChange: t.SetEnabled,
		Preview:           frames,
		Telemetry:         telemetry,
	})

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.HTTPAddr)
		if err := srv.ListenAndServe(cfg.HTTPAddr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if cfg.Headless {
		runHeadless(a)
		return
	}

	t.OnToggle(func(enabled bool) error {
		if enabled {
			return a.Start()
		}
		a.Stop()
		return nil
	})
	t.OnSensitivity(params.SetCursorSensitivity)
	t.OnSettings(func() {
		log.Printf("settings available at http://localhost%s", cfg.HTTPAddr)
	})
	t.OnQuit(a.Stop)
	t.Run()
}

// runHeadless starts detection immediately and blocks until interrupted.
func runHeadless(a *app.App) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start detection: %v", err)
	}
	<-ctx.Done()
	log.Println("shutting down")
	a.Stop()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
