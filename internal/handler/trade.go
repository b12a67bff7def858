package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tradewinds-engine/internal/economy"
	"tradewinds-engine/pkg/apierror"
	"tradewinds-engine/pkg/response"
)

// TradeHandler exposes buy and sell commands to the UI layer.
type TradeHandler struct {
	controller *economy.Controller
}

// NewTradeHandler creates a trade handler.
func NewTradeHandler(controller *economy.Controller) *TradeHandler {
	return &TradeHandler{controller: controller}
}

// BuyRequest is the body of a buy command.
type BuyRequest struct {
	MerchantID string `json:"merchantId"`
	ItemName   string `json:"itemName"`
}

// Buy handles POST /api/v1/trade/buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	if req.MerchantID == "" || req.ItemName == "" {
		response.Error(w, apierror.BadRequest("merchantId and itemName are required"))
		return
	}

	if err := h.controller.Buy(r.Context(), req.MerchantID, req.ItemName); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.controller.PlayerSnapshot())
}

// SellRequest is the body of a sell command.
type SellRequest struct {
	ItemID     string `json:"itemId"`
	MerchantID string `json:"merchantId"`
}

// Sell handles POST /api/v1/trade/sell
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	if req.ItemID == "" || req.MerchantID == "" {
		response.Error(w, apierror.BadRequest("itemId and merchantId are required"))
		return
	}

	if err := h.controller.Sell(r.Context(), req.ItemID, req.MerchantID); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, h.controller.PlayerSnapshot())
}

// History handles GET /api/v1/trade/history
func (h *TradeHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, offset := 20, 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	response.JSON(w, http.StatusOK, h.controller.History(r.Context(), limit, offset))
}
