package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/pinchpoint/internal/control"
)

// ParamsHandler exposes the live control parameters.
type ParamsHandler struct {
	params   *control.Params
	onChange func(control.Snapshot)
}

// NewParamsHandler creates a new ParamsHandler. onChange, if not nil, is
// called with the new values after every accepted update.
func NewParamsHandler(p *control.Params, onChange func(control.Snapshot)) *ParamsHandler {
	return &ParamsHandler{params: p, onChange: onChange}
}

// ServeHTTP handles GET and PUT on /api/params.
func (h *ParamsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.params.Snapshot())
	case http.MethodPut, http.MethodPatch:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update applies a partial parameter change. Every supplied field is
// validated before any is stored.
func (h *ParamsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req control.Update
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot, err := h.params.Apply(req)
	if err != nil {
		if errors.Is(err, control.ErrOutOfRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update parameters")
		return
	}
	if h.onChange != nil {
		h.onChange(snapshot)
	}

	writeJSON(w, http.StatusOK, snapshot)
}
