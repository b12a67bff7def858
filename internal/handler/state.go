package handler

import (
	"encoding/json"
	"net/http"

	"tradewinds-engine/internal/economy"
	"tradewinds-engine/pkg/apierror"
	"tradewinds-engine/pkg/response"
)

// StateHandler serves read-only snapshots of the economy aggregate and
// the small set of non-trade commands.
type StateHandler struct {
	controller *economy.Controller
}

// NewStateHandler creates a state handler.
func NewStateHandler(controller *economy.Controller) *StateHandler {
	return &StateHandler{controller: controller}
}

// Player handles GET /api/v1/player
func (h *StateHandler) Player(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.controller.PlayerSnapshot())
}

// Merchants handles GET /api/v1/merchants
func (h *StateHandler) Merchants(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.controller.MerchantsSnapshot())
}

// Market handles GET /api/v1/market
func (h *StateHandler) Market(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.controller.BoardSnapshot())
}

// LocationRequest is the body of a location update command.
type LocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateLocation handles PUT /api/v1/player/location
func (h *StateHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		response.Error(w, apierror.BadRequest("coordinates out of range"))
		return
	}

	h.controller.UpdateLocation(req.Lat, req.Lng)
	response.JSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

// DismissError handles POST /api/v1/errors/dismiss
func (h *StateHandler) DismissError(w http.ResponseWriter, r *http.Request) {
	h.controller.DismissError()
	response.JSON(w, http.StatusOK, map[string]bool{"dismissed": true})
}

// Background handles POST /api/v1/lifecycle/background
func (h *StateHandler) Background(w http.ResponseWriter, r *http.Request) {
	h.controller.Background()
	response.JSON(w, http.StatusOK, map[string]string{"state": "background"})
}

// Foreground handles POST /api/v1/lifecycle/foreground
func (h *StateHandler) Foreground(w http.ResponseWriter, r *http.Request) {
	h.controller.Foreground()
	response.JSON(w, http.StatusOK, map[string]string{"state": "foreground"})
}
