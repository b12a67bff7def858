package events

import (
	"encoding/json"
	"fmt"
	"time"

	"tradewinds-engine/internal/model"
)

// wireEvent is the envelope of every message on the socket.
type wireEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// pongEvent and errorEvent are handled inside the channel; they never
// reach the controller.
type pongEvent struct{}

func (pongEvent) EventName() string { return "pong" }

type errorEvent struct {
	Message string
}

func (errorEvent) EventName() string { return "error" }

// decodeEvent converts a named wire event into a typed domain event.
// Malformed payloads yield an error; the caller drops and logs them
// instead of crashing or guessing. When strict is false, unknown enum
// values inside merchant payloads fall back to defaults.
func decodeEvent(name string, payload json.RawMessage, strict bool) (model.DomainEvent, error) {
	switch name {
	case "pong":
		return pongEvent{}, nil

	case "error":
		var p struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("error event: %w", err)
		}
		return errorEvent{Message: p.Message}, nil

	case "welcome":
		var p struct {
			Message  string `json:"message"`
			PlayerID string `json:"playerId"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("welcome event: %w", err)
		}
		return model.WelcomeEvent{Message: p.Message, PlayerID: p.PlayerID}, nil

	case "priceUpdate":
		var p struct {
			ItemName string `json:"itemName"`
			NewPrice int64  `json:"newPrice"`
			District string `json:"district"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("priceUpdate event: %w", err)
		}
		if p.ItemName == "" || p.NewPrice <= 0 {
			return nil, fmt.Errorf("priceUpdate event: missing item name or price")
		}
		return model.PriceUpdateEvent{ItemName: p.ItemName, NewPrice: p.NewPrice, District: p.District}, nil

	case "nearbyMerchants":
		var p struct {
			Merchants []model.MerchantWire `json:"merchants"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("nearbyMerchants event: %w", err)
		}
		out := model.NearbyMerchantsEvent{}
		for i := range p.Merchants {
			m, err := p.Merchants[i].Decode(strict)
			if err != nil {
				return nil, fmt.Errorf("nearbyMerchants event: %w", err)
			}
			out.Merchants = append(out.Merchants, m)
		}
		return out, nil

	case "playerJoined", "playerLeft":
		var p struct {
			PlayerID string `json:"playerId"`
			Username string `json:"username"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("%s event: %w", name, err)
		}
		return model.PlayerPresenceEvent{
			PlayerID: p.PlayerID,
			Username: p.Username,
			Joined:   name == "playerJoined",
		}, nil

	case "playersInArea":
		var p struct {
			Players []model.AreaPlayer `json:"players"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("playersInArea event: %w", err)
		}
		return model.PlayersInAreaEvent{Players: p.Players}, nil

	case "tradeNotification":
		var p struct {
			PlayerName string `json:"playerName"`
			ItemName   string `json:"itemName"`
			Price      int64  `json:"price"`
			Direction  string `json:"direction"`
			Timestamp  int64  `json:"timestamp"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("tradeNotification event: %w", err)
		}
		at := time.Now()
		if p.Timestamp > 0 {
			at = time.UnixMilli(p.Timestamp)
		}
		return model.TradeNotificationEvent{
			PlayerName: p.PlayerName,
			ItemName:   p.ItemName,
			Price:      p.Price,
			Direction:  p.Direction,
			At:         at,
		}, nil

	case "marketAlert":
		var p struct {
			Message  string `json:"message"`
			District string `json:"district"`
			Severity string `json:"severity"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("marketAlert event: %w", err)
		}
		if p.Message == "" {
			return nil, fmt.Errorf("marketAlert event: empty message")
		}
		return model.MarketAlertEvent{Message: p.Message, District: p.District, Severity: p.Severity}, nil

	case "systemMessage":
		var p struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("systemMessage event: %w", err)
		}
		return model.SystemMessageEvent{Message: p.Message}, nil

	default:
		return nil, fmt.Errorf("unknown event %q", name)
	}
}
