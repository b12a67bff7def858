// Package handler serves the local UI bridge: a loopback HTTP surface the
// rendering layer polls for snapshots and posts commands to. Handlers never
// mutate engine state themselves; they delegate to the economy controller.
package handler

import (
	"net/http"
	"runtime"
	"time"

	"tradewinds-engine/internal/economy"
	"tradewinds-engine/internal/events"
	"tradewinds-engine/pkg/response"
)

// StartTime tracks when the engine started for uptime calculation
var StartTime = time.Now()

// StatusHandler reports engine health and connection status.
type StatusHandler struct {
	version    string
	controller *economy.Controller
	channel    *events.Channel
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(version string, controller *economy.Controller, channel *events.Channel) *StatusHandler {
	return &StatusHandler{version: version, controller: controller, channel: channel}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	response.JSON(w, http.StatusOK, resp)
}

// StatusResponse is the unified engine status the UI polls.
type StatusResponse struct {
	Service       string  `json:"service"`
	Mode          string  `json:"mode"`
	Connection    string  `json:"connection"`
	LatencyMS     int64   `json:"latency_ms"`
	LastError     string  `json:"last_error,omitempty"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	MemoryMB      float64 `json:"memory_mb"`
}

// Status handles GET /api/status - unified status for the UI layer
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	resp := StatusResponse{
		Service:       "tradewinds-engine",
		Mode:          string(h.controller.Mode()),
		Connection:    h.channel.State().String(),
		LatencyMS:     h.channel.Latency().Milliseconds(),
		LastError:     h.controller.LastError(),
		UptimeSeconds: int64(time.Since(StartTime).Seconds()),
		MemoryMB:      float64(int(memoryMB*100)) / 100,
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.JSON(w, http.StatusOK, resp)
}
