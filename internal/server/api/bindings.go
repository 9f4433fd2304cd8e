// Package api provides HTTP API handlers for the inference gateway.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// BindingHandler handles HTTP requests for gesture binding resources.
type BindingHandler struct {
	store *store.Store
}

// NewBindingHandler creates a new BindingHandler with the given store.
func NewBindingHandler(s *store.Store) *BindingHandler {
	return &BindingHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *BindingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/bindings or /api/bindings/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/bindings")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type createBindingRequest struct {
	Gesture   string `json:"gesture"`
	Direction string `json:"direction"`
	Action    string `json:"action"`
	Position  int    `json:"position"`
}

type updateBindingRequest struct {
	Gesture   *string `json:"gesture"`
	Direction *string `json:"direction"`
	Action    *string `json:"action"`
	Position  *int    `json:"position"`
	Enabled   *bool   `json:"enabled"`
}

type bindingResponse struct {
	ID        string `json:"id"`
	Gesture   string `json:"gesture"`
	Direction string `json:"direction,omitempty"`
	Action    string `json:"action"`
	Position  int    `json:"position"`
	Enabled   bool   `json:"enabled"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type listBindingsResponse struct {
	Bindings []bindingResponse `json:"bindings"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func validAction(a string) bool {
	switch gesture.Action(a) {
	case gesture.ActionNextSlide, gesture.ActionPrevSlide, gesture.ActionOpenExitDialog:
		return true
	}
	return false
}

// toResponse converts a store.Binding to a bindingResponse.
func toResponse(b *store.Binding) bindingResponse {
	return bindingResponse{
		ID:        b.ID,
		Gesture:   b.Gesture,
		Direction: b.Direction,
		Action:    string(b.Action),
		Position:  b.Position,
		Enabled:   b.Enabled,
		CreatedAt: b.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: b.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/bindings and returns all bindings in match order.
func (h *BindingHandler) list(w http.ResponseWriter, r *http.Request) {
	bindings, err := h.store.Bindings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bindings")
		return
	}

	response := listBindingsResponse{
		Bindings: make([]bindingResponse, 0, len(bindings)),
	}
	for _, b := range bindings {
		response.Bindings = append(response.Bindings, toResponse(b))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/bindings/{id} and returns a single binding.
func (h *BindingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	binding, err := h.store.Bindings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get binding")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(binding))
}

// create handles POST /api/bindings and creates a new binding.
func (h *BindingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Gesture == "" {
		writeError(w, http.StatusBadRequest, "Gesture is required")
		return
	}
	if !validAction(req.Action) {
		writeError(w, http.StatusBadRequest, "Invalid action")
		return
	}

	binding := &store.Binding{
		Gesture:   req.Gesture,
		Direction: req.Direction,
		Action:    gesture.Action(req.Action),
		Position:  req.Position,
		Enabled:   true,
	}

	if err := h.store.Bindings().Create(binding); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create binding")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(binding))
}

// update handles PUT /api/bindings/{id} and updates an existing binding.
func (h *BindingHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	binding, err := h.store.Bindings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get binding")
		return
	}

	var req updateBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Gesture != nil {
		if *req.Gesture == "" {
			writeError(w, http.StatusBadRequest, "Gesture cannot be empty")
			return
		}
		binding.Gesture = *req.Gesture
	}
	if req.Direction != nil {
		binding.Direction = *req.Direction
	}
	if req.Action != nil {
		if !validAction(*req.Action) {
			writeError(w, http.StatusBadRequest, "Invalid action")
			return
		}
		binding.Action = gesture.Action(*req.Action)
	}
	if req.Position != nil {
		binding.Position = *req.Position
	}
	if req.Enabled != nil {
		binding.Enabled = *req.Enabled
	}

	if err := h.store.Bindings().Update(binding); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update binding")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(binding))
}

// delete handles DELETE /api/bindings/{id} and removes a binding.
func (h *BindingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Bindings().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete binding")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
