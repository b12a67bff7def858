package handler

import (
	"net/http"

	"tradewinds-engine/internal/events"
	"tradewinds-engine/pkg/response"
)

// FeedHandler serves the bounded live-event buffers kept by the event
// channel.
type FeedHandler struct {
	channel *events.Channel
}

// NewFeedHandler creates a feed handler.
func NewFeedHandler(channel *events.Channel) *FeedHandler {
	return &FeedHandler{channel: channel}
}

// Feed handles GET /api/v1/feed
func (h *FeedHandler) Feed(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.channel.Feed())
}

// NearbyPlayers handles GET /api/v1/players/nearby
func (h *FeedHandler) NearbyPlayers(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.channel.NearbyPlayers())
}
