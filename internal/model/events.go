package model

import "time"

// DomainEvent is a decoded server push event. The event channel produces
// these; only the economy controller applies them to domain state.
type DomainEvent interface {
	EventName() string
}

// PriceUpdateEvent patches the current price of one board entry, matched
// by display name.
type PriceUpdateEvent struct {
	ItemName string
	NewPrice int64
	District string
}

func (PriceUpdateEvent) EventName() string { return "priceUpdate" }

// NearbyMerchantsEvent replaces or appends merchants by identity.
type NearbyMerchantsEvent struct {
	Merchants []*Merchant
}

func (NearbyMerchantsEvent) EventName() string { return "nearbyMerchants" }

// TradeNotificationEvent announces a trade completed elsewhere.
type TradeNotificationEvent struct {
	PlayerName string
	ItemName   string
	Price      int64
	Direction  string
	At         time.Time
}

func (TradeNotificationEvent) EventName() string { return "tradeNotification" }

// MarketAlertEvent is a broadcast market or system announcement.
type MarketAlertEvent struct {
	Message  string
	District string
	Severity string
}

func (MarketAlertEvent) EventName() string { return "marketAlert" }

// SystemMessageEvent is a plain broadcast from the server.
type SystemMessageEvent struct {
	Message string
}

func (SystemMessageEvent) EventName() string { return "systemMessage" }

// WelcomeEvent is sent once after a successful connection.
type WelcomeEvent struct {
	Message  string
	PlayerID string
}

func (WelcomeEvent) EventName() string { return "welcome" }

// PlayerPresenceEvent reports a player joining or leaving the area.
type PlayerPresenceEvent struct {
	PlayerID string
	Username string
	Joined   bool
}

func (e PlayerPresenceEvent) EventName() string {
	if e.Joined {
		return "playerJoined"
	}
	return "playerLeft"
}

// PlayersInAreaEvent lists players currently nearby.
type PlayersInAreaEvent struct {
	Players []AreaPlayer
}

func (PlayersInAreaEvent) EventName() string { return "playersInArea" }

// AreaPlayer is one entry of a playersInArea event.
type AreaPlayer struct {
	PlayerID string  `json:"playerId"`
	Username string  `json:"username"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}
