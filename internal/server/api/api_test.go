package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/pinchpoint/internal/control"
	"github.com/ayusman/pinchpoint/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestParamsHandler_Get(t *testing.T) {
	handler := NewParamsHandler(control.NewParams(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/params", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var got control.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got != control.DefaultSnapshot() {
		t.Errorf("expected defaults, got %+v", got)
	}
}

func TestParamsHandler_Put(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantSens   float64
	}{
		{
			name:       "partial update",
			body:       `{"cursor_sensitivity": 2.0}`,
			wantStatus: http.StatusOK,
			wantSens:   2.0,
		},
		{
			name:       "out of range is rejected",
			body:       `{"cursor_sensitivity": 3.0}`,
			wantStatus: http.StatusBadRequest,
			wantSens:   1.0,
		},
		{
			name:       "one bad field rejects all",
			body:       `{"cursor_sensitivity": 1.5, "detection_confidence": 4}`,
			wantStatus: http.StatusBadRequest,
			wantSens:   1.0,
		},
		{
			name:       "unknown field",
			body:       `{"speed": 1.5}`,
			wantStatus: http.StatusBadRequest,
			wantSens:   1.0,
		},
		{
			name:       "invalid json",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantSens:   1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := control.NewParams()
			handler := NewParamsHandler(params, nil)

			req := httptest.NewRequest(http.MethodPut, "/api/params", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if got := params.CursorSensitivity(); got != tt.wantSens {
				t.Errorf("sensitivity = %v, want %v", got, tt.wantSens)
			}
		})
	}
}

func TestParamsHandler_NotifiesAcceptedChanges(t *testing.T) {
	var got []control.Snapshot
	handler := NewParamsHandler(control.NewParams(), func(s control.Snapshot) {
		got = append(got, s)
	})

	for _, body := range []string{`{"cursor_sensitivity": 1.5}`, `{"cursor_sensitivity": 9}`} {
		req := httptest.NewRequest(http.MethodPatch, "/api/params", bytes.NewBufferString(body))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if len(got) != 1 {
		t.Fatalf("onChange called %d times, want 1", len(got))
	}
	if got[0].CursorSensitivity != 1.5 {
		t.Errorf("onChange sensitivity = %v, want 1.5", got[0].CursorSensitivity)
	}
}

func TestParamsHandler_MethodNotAllowed(t *testing.T) {
	handler := NewParamsHandler(control.NewParams(), nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/params", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

type fakeDetection struct {
	running  bool
	startErr error
	starts   int
	stops    int
}

func (f *fakeDetection) Start() error {
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}

func (f *fakeDetection) Stop() {
	f.stops++
	f.running = false
}

func (f *fakeDetection) IsRunning() bool { return f.running }

func TestDetectionHandler(t *testing.T) {
	post := func(h http.Handler, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/detection", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("start and stop", func(t *testing.T) {
		d := &fakeDetection{}
		var changes []bool
		h := NewDetectionHandler(d, func(running bool) { changes = append(changes, running) })

		if rec := post(h, `{"enabled": true}`); rec.Code != http.StatusOK {
			t.Fatalf("start: status %d", rec.Code)
		}
		if rec := post(h, `{"enabled": true}`); rec.Code != http.StatusOK {
			t.Fatalf("repeat start: status %d", rec.Code)
		}
		if rec := post(h, `{"enabled": false}`); rec.Code != http.StatusOK {
			t.Fatalf("stop: status %d", rec.Code)
		}

		if d.starts != 1 || d.stops != 1 {
			t.Errorf("starts/stops = %d/%d, want 1/1", d.starts, d.stops)
		}
		if len(changes) != 2 || !changes[0] || changes[1] {
			t.Errorf("changes = %v, want [true false]", changes)
		}
	})

	t.Run("start failure", func(t *testing.T) {
		d := &fakeDetection{startErr: errors.New("camera unavailable")}
		h := NewDetectionHandler(d, nil)

		rec := post(h, `{"enabled": true}`)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
		}
		var resp errorResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp.Error != "camera unavailable" {
			t.Errorf("error = %q", resp.Error)
		}
	})

	t.Run("missing enabled", func(t *testing.T) {
		h := NewDetectionHandler(&fakeDetection{}, nil)

		if rec := post(h, `{}`); rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("get reports state", func(t *testing.T) {
		h := NewDetectionHandler(&fakeDetection{running: true}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/detection", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		var resp detectionResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !resp.Running {
			t.Error("expected running = true")
		}
	})
}

func seedSession(t *testing.T, s *store.Store) string {
	t.Helper()
	start := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	sess := &store.Session{MappingMode: "tiled", StartedAt: start}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	for i, kind := range []store.EventKind{store.EventDown, store.EventUp} {
		e := &store.Event{SessionID: sess.ID, Kind: kind, X: 100 + i, Y: 200, At: start.Add(time.Duration(i) * time.Second)}
		if err := s.Events().Append(e); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
	}
	if err := s.Sessions().Finish(sess.ID, start.Add(time.Minute), 1800, 1700); err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}
	return sess.ID
}

func TestSessionHandler_List(t *testing.T) {
	s := newTestStore(t)
	id := seedSession(t, s)
	handler := NewSessionHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listSessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Sessions) != 1 || response.Sessions[0].ID != id {
		t.Fatalf("unexpected sessions %+v", response.Sessions)
	}
	if response.Sessions[0].Frames != 1800 || response.Sessions[0].EndedAt == "" {
		t.Errorf("unexpected session %+v", response.Sessions[0])
	}
}

func TestSessionHandler_BadLimit(t *testing.T) {
	handler := NewSessionHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?limit=zero", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestSessionHandler_GetAndEvents(t *testing.T) {
	s := newTestStore(t)
	id := seedSession(t, s)
	handler := NewSessionHandler(s)

	t.Run("get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var resp sessionResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp.MappingMode != "tiled" || resp.Detections != 1700 {
			t.Errorf("unexpected session %+v", resp)
		}
	})

	t.Run("events", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/events", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var resp listEventsResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if len(resp.Events) != 2 || resp.Events[0].Kind != "down" || resp.Events[1].Kind != "up" {
			t.Errorf("unexpected events %+v", resp.Events)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		for _, path := range []string{"/api/sessions/missing", "/api/sessions/missing/events"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusNotFound {
				t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
			}
		}
	})

	t.Run("delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
		}
		if _, err := s.Sessions().GetByID(id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("session should be gone, got %v", err)
		}
	})
}
