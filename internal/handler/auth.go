package handler

import (
	"encoding/json"
	"net/http"

	"tradewinds-engine/internal/economy"
	"tradewinds-engine/pkg/apierror"
	"tradewinds-engine/pkg/response"
)

// AuthHandler exposes session lifecycle commands to the UI layer.
type AuthHandler struct {
	controller *economy.Controller
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(controller *economy.Controller) *AuthHandler {
	return &AuthHandler{controller: controller}
}

// credentialsRequest is the body of login and register commands.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func decodeCredentials(r *http.Request) (*credentialsRequest, error) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apierror.BadRequest("invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return nil, apierror.BadRequest("username and password are required")
	}
	return &req, nil
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.controller.Login(r.Context(), req.Username, req.Password); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.controller.PlayerSnapshot())
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := h.controller.Register(r.Context(), req.Username, req.Password); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, h.controller.PlayerSnapshot())
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.controller.Logout(r.Context())
	response.JSON(w, http.StatusOK, map[string]string{"mode": string(h.controller.Mode())})
}
