package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/pinchpoint/internal/preview"
)

// StreamHandler serves the annotated preview as MJPEG.
type StreamHandler struct {
	source *preview.Buffer
}

// NewStreamHandler creates a new StreamHandler reading from source.
func NewStreamHandler(source *preview.Buffer) *StreamHandler {
	return &StreamHandler{source: source}
}

// ServeHTTP streams the newest preview frame to the client each time one is
// published. Frames published while the client is still writing are
// skipped.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var seq uint64
	for {
		jpeg, next, err := h.source.Next(r.Context(), seq)
		if err != nil {
			return
		}
		seq = next

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
