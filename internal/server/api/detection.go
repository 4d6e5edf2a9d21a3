package api

import (
	"encoding/json"
	"net/http"
)

// Detection is the start/stop surface of the detection loop.
type Detection interface {
	Start() error
	Stop()
	IsRunning() bool
}

type detectionRequest struct {
	Enabled *bool `json:"enabled"`
}

type detectionResponse struct {
	Running bool `json:"running"`
}

// DetectionHandler turns the detection loop on and off.
type DetectionHandler struct {
	detection Detection
	onChange  func(running bool)
}

// NewDetectionHandler creates a DetectionHandler. onChange, if not nil, is
// called after the running state was changed through the API.
func NewDetectionHandler(d Detection, onChange func(running bool)) *DetectionHandler {
	return &DetectionHandler{detection: d, onChange: onChange}
}

// ServeHTTP handles GET and POST on /api/detection.
func (h *DetectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, detectionResponse{Running: h.detection.IsRunning()})
	case http.MethodPost:
		h.set(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// set starts or stops detection. Requests matching the current state
// succeed without doing anything.
func (h *DetectionHandler) set(w http.ResponseWriter, r *http.Request) {
	var req detectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "Request must include \"enabled\"")
		return
	}

	was := h.detection.IsRunning()
	switch {
	case *req.Enabled && !was:
		if err := h.detection.Start(); err != nil && !h.detection.IsRunning() {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	case !*req.Enabled && was:
		h.detection.Stop()
	}

	running := h.detection.IsRunning()
	if running != was && h.onChange != nil {
		h.onChange(running)
	}
	writeJSON(w, http.StatusOK, detectionResponse{Running: running})
}
