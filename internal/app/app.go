// Package app runs the pinchpoint detection loop: camera frames in, OS
// pointer motion and button events out.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchpoint/internal/capture"
	"github.com/ayusman/pinchpoint/internal/control"
	"github.com/ayusman/pinchpoint/internal/detector"
	"github.com/ayusman/pinchpoint/internal/screen"
	"github.com/ayusman/pinchpoint/internal/store"
)

// ErrAlreadyRunning is returned by Start while the loop is running.
var ErrAlreadyRunning = errors.New("detection already running")

// FrameSink receives every processed (annotated) frame.
type FrameSink interface {
	Publish(frame *gocv.Mat) error
}

// Config holds configuration options for the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Cursor   control.Cursor
	Displays screen.Displays
	Params   *control.Params
	Mode     screen.Mode
	// ReleaseTimeout is how long a held pinch survives without a detected
	// hand. Zero disables the safety release.
	ReleaseTimeout time.Duration
	Sink           FrameSink
	Store          *store.Store
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Stats counts frames processed by the current or last session.
type Stats struct {
	Frames     int64 `json:"frames"`
	Detections int64 `json:"detections"`
}

// App is the main application that turns hand observations into pointer
// control.
type App struct {
	config   Config
	params   *control.Params
	mapper   *screen.Mapper
	ctrl     *control.Controller
	recorder *Recorder
	clock    func() time.Time

	mu       sync.Mutex
	detector detector.Detector
	done     chan struct{}
	running  atomic.Bool

	frames     atomic.Int64
	detections atomic.Int64

	obsMu     sync.RWMutex
	observers []func(control.Step)
}

// New creates a new App instance with the given configuration. Without a
// detector it tries MediaPipe and falls back to a mock detector.
func New(config Config) *App {
	params := config.Params
	if params == nil {
		params = control.NewParams()
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	a := &App{
		config:   config,
		params:   params,
		mapper:   screen.NewMapper(config.Displays, config.Mode),
		ctrl:     control.New(params, config.Cursor, control.WithReleaseTimeout(config.ReleaseTimeout)),
		recorder: NewRecorder(config.Store),
		clock:    clock,
		detector: config.Detector,
	}

	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(a.detectorConfig()); err == nil {
			a.detector = mp
			log.Println("using mediapipe hand detection")
		} else {
			log.Printf("mediapipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	return a
}

// Start opens the camera, initialises the controller from the current
// cursor position and starts the detection loop. A camera that cannot be
// opened is reported here and the loop is not started.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running.Load() {
		return ErrAlreadyRunning
	}
	if a.done != nil {
		// The previous loop left on its own; close out its session first.
		a.finish()
	}

	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	det := a.detector
	if c, ok := det.(detector.Configurable); ok {
		c.Configure(a.detectorConfig())
	}

	now := a.clock()
	if err := a.ctrl.Reset(now); err != nil {
		a.config.Camera.Close()
		return err
	}

	a.frames.Store(0)
	a.detections.Store(0)
	if err := a.recorder.Begin(string(a.mapper.Mode()), now); err != nil {
		log.Printf("session journal unavailable: %v", err)
	}

	a.done = make(chan struct{})
	a.running.Store(true)
	go a.run(det, a.done)

	log.Printf("detection started (mapping %s)", a.mapper.Mode())
	return nil
}

// Stop asks the loop to exit and waits for the frame in progress to
// finish. A held button is released. It also cleans up after a loop that
// already exited on its own, and is a no-op when never started.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done == nil {
		return
	}
	a.finish()
}

// finish waits for the loop, closes the camera and ends the session.
// Callers hold a.mu and a.done is not nil.
func (a *App) finish() {
	a.running.Store(false)
	<-a.done
	a.done = nil

	if err := a.config.Camera.Close(); err != nil {
		log.Printf("error closing camera: %v", err)
	}

	stats := a.Stats()
	if err := a.recorder.End(a.clock(), stats.Frames, stats.Detections); err != nil {
		log.Printf("error closing session: %v", err)
	}

	log.Printf("detection stopped after %d frames", stats.Frames)
}

// Close stops the loop and shuts down the detector.
func (a *App) Close() error {
	a.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detector != nil {
		return a.detector.Close()
	}
	return nil
}

// IsRunning reports whether the detection loop is running. It turns false
// as soon as the loop exits, including when the camera goes away.
func (a *App) IsRunning() bool {
	return a.running.Load()
}

// OnStep registers a function called with every frame's controller step.
// Observers run on the detection goroutine and must not block.
func (a *App) OnStep(fn func(control.Step)) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, fn)
}

func (a *App) notify(step control.Step) {
	a.obsMu.RLock()
	defer a.obsMu.RUnlock()
	for _, fn := range a.observers {
		fn(step)
	}
}

// Params returns the live control parameters.
func (a *App) Params() *control.Params {
	return a.params
}

// Mode returns the screen mapping mode.
func (a *App) Mode() screen.Mode {
	return a.mapper.Mode()
}

// Stats returns frame counters for the current or last session.
func (a *App) Stats() Stats {
	return Stats{
		Frames:     a.frames.Load(),
		Detections: a.detections.Load(),
	}
}

// SessionID returns the journal ID of the current session, if any.
func (a *App) SessionID() string {
	return a.recorder.SessionID()
}

// SetDetector sets the hand detector used from the next Start.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detector
}

// detectorConfig reads the confidences the model is opened with.
func (a *App) detectorConfig() detector.Config {
	config := detector.DefaultConfig()
	config.MinConfidence = a.params.DetectionConfidence()
	config.MinTrackingConf = a.params.TrackingConfidence()
	return config
}
