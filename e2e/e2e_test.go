package e2e

import (
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchpoint/internal/app"
	"github.com/ayusman/pinchpoint/internal/capture"
	"github.com/ayusman/pinchpoint/internal/control"
	"github.com/ayusman/pinchpoint/internal/detector"
	"github.com/ayusman/pinchpoint/internal/screen"
	"github.com/ayusman/pinchpoint/internal/server"
	"github.com/ayusman/pinchpoint/internal/store"
)

type cursor struct {
	mu    sync.Mutex
	pos   image.Point
	calls []string
}

func (c *cursor) Position() (image.Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos, nil
}

func (c *cursor) Move(p image.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = p
	return nil
}

func (c *cursor) ButtonDown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "down")
	return nil
}

func (c *cursor) ButtonUp() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "up")
	return nil
}

func (c *cursor) Buttons() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

var dual = screen.Layout{Widths: []int{1920, 1080}, Height: 1080}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	palm := detector.OpenPalmLandmarks()
	pinch := detector.PinchLandmarks()
	mock := detector.NewMockDetector()
	mock.SetHand(&palm)
	mock.SetSequence([]*detector.HandLandmarks{&palm, &palm, &pinch, &pinch, &pinch, &palm})

	pointer := &cursor{pos: image.Pt(1500, 500)}
	application := app.New(app.Config{
		Camera:         capture.NewMockCamera([]*gocv.Mat{&frame}, true),
		Detector:       mock,
		Cursor:         pointer,
		Displays:       screen.StaticDisplays(dual),
		Mode:           screen.ModeTiled,
		ReleaseTimeout: control.DefaultReleaseTimeout,
		Store:          s,
	})
	defer application.Close()

	telemetry := server.NewTelemetry()
	application.OnStep(telemetry.Publish)

	srv := server.New(server.Config{
		Store:     s,
		Params:    application.Params(),
		Detection: application,
		Telemetry: telemetry,
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	t.Run("EnableDetection", func(t *testing.T) {
		running := postDetection(t, client, ts.URL, true)
		if !running {
			t.Fatal("detection should be running")
		}
	})

	t.Run("ProcessFrames", func(t *testing.T) {
		deadline := time.Now().Add(3 * time.Second)
		for application.Stats().Frames < 10 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		if got := application.Stats().Frames; got < 10 {
			t.Fatalf("processed %d frames, want at least 10", got)
		}
	})

	t.Run("TuneSensitivity", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPatch, ts.URL+"/api/params",
			strings.NewReader(`{"cursor_sensitivity": 2}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("patch params error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if got := application.Params().CursorSensitivity(); got != 2 {
			t.Errorf("CursorSensitivity() = %v, want 2", got)
		}
	})

	sessionID := application.SessionID()

	t.Run("DisableDetection", func(t *testing.T) {
		if postDetection(t, client, ts.URL, false) {
			t.Fatal("detection should be stopped")
		}
	})

	t.Run("PinchWasClicked", func(t *testing.T) {
		got := pointer.Buttons()
		if len(got) != 2 || got[0] != "down" || got[1] != "up" {
			t.Errorf("buttons = %v, want [down up]", got)
		}
	})

	t.Run("SessionJournal", func(t *testing.T) {
		if sessionID == "" {
			t.Fatal("no session was recorded")
		}

		resp, err := client.Get(ts.URL + "/api/sessions/" + sessionID + "/events")
		if err != nil {
			t.Fatalf("get events error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Events []struct {
				Kind string `json:"kind"`
			} `json:"events"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode error = %v", err)
		}

		var kinds []string
		for _, e := range body.Events {
			kinds = append(kinds, e.Kind)
		}
		if strings.Join(kinds, ",") != "down,up" {
			t.Errorf("event kinds = %v, want [down up]", kinds)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("health error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after detection run")
		}
	})
}

func TestE2E_PointerPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	pointer := &cursor{pos: image.Pt(100, 100)}
	mapper := screen.NewMapper(screen.StaticDisplays(dual), screen.ModeTiled)
	ctrl := control.New(control.NewParams(), pointer)

	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	if err := ctrl.Reset(start); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	geometry := detector.FrameGeometry{Width: 640, Height: 480}
	palm := detector.OpenPalmLandmarks()
	pinch := detector.PinchLandmarks()
	hands := []detector.HandLandmarks{palm, pinch, pinch, palm}

	var last image.Point
	for i := range hands {
		hand := hands[i]
		target, desktop, err := mapper.Map(hand.Center(geometry), geometry)
		if err != nil {
			t.Fatalf("Map() error = %v", err)
		}

		step, err := ctrl.Update(control.Input{
			Now:      start.Add(time.Duration(i+1) * 33 * time.Millisecond),
			Target:   &target,
			Desktop:  desktop,
			Distance: hand.PinchDistance(),
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if !step.Position.In(desktop) {
			t.Errorf("frame %d: position %v outside %v", i, step.Position, desktop)
		}
		last = step.Position
	}

	if last.X <= 100 || last.Y <= 100 {
		t.Errorf("cursor %v should have moved toward the hand", last)
	}
	if got := pointer.Buttons(); len(got) != 2 || got[0] != "down" || got[1] != "up" {
		t.Errorf("buttons = %v, want [down up]", got)
	}
}

func postDetection(t *testing.T, client *http.Client, baseURL string, enabled bool) bool {
	t.Helper()

	body := `{"enabled": false}`
	if enabled {
		body = `{"enabled": true}`
	}
	resp, err := client.Post(baseURL+"/api/detection", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post detection error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var got struct {
		Running bool `json:"running"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	return got.Running
}
