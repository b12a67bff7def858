package events

import (
	"encoding/json"
	"testing"

	"tradewinds-engine/internal/model"
)

func TestDecodePriceUpdate(t *testing.T) {
	event, err := decodeEvent("priceUpdate", json.RawMessage(`{"itemName":"Silk Bolt","newPrice":6100,"district":"Cloth Row"}`), false)
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	update, ok := event.(model.PriceUpdateEvent)
	if !ok {
		t.Fatalf("decodeEvent() = %T, want PriceUpdateEvent", event)
	}
	if update.ItemName != "Silk Bolt" || update.NewPrice != 6100 {
		t.Errorf("decoded event = %+v", update)
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		payload string
	}{
		{"truncated json", "priceUpdate", `{"itemName":`},
		{"price update without name", "priceUpdate", `{"newPrice":100}`},
		{"price update with zero price", "priceUpdate", `{"itemName":"Silk Bolt","newPrice":0}`},
		{"market alert without message", "marketAlert", `{"district":"Old Walls"}`},
		{"unknown event", "mysteryEvent", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeEvent(tt.event, json.RawMessage(tt.payload), false); err == nil {
				t.Error("decodeEvent() error = nil, want rejection")
			}
		})
	}
}

func TestDecodeMerchantEnumFallback(t *testing.T) {
	payload := json.RawMessage(`{"merchants":[{"id":"m1","name":"Old Marta","mood":"ecstatic","personality":"cheerful"}]}`)

	// Lenient decode falls back to the personality's default mood.
	event, err := decodeEvent("nearbyMerchants", payload, false)
	if err != nil {
		t.Fatalf("decodeEvent(lenient) error = %v", err)
	}
	merchants := event.(model.NearbyMerchantsEvent).Merchants
	if len(merchants) != 1 {
		t.Fatalf("decoded %d merchants, want 1", len(merchants))
	}
	if merchants[0].Mood != model.MoodFriendly {
		t.Errorf("fallback mood = %s, want friendly (cheerful default)", merchants[0].Mood)
	}

	// Strict decode rejects the unknown mood outright.
	if _, err := decodeEvent("nearbyMerchants", payload, true); err == nil {
		t.Error("decodeEvent(strict) error = nil, want rejection of unknown mood")
	}
}

func TestDecodePresenceEvents(t *testing.T) {
	joined, err := decodeEvent("playerJoined", json.RawMessage(`{"playerId":"p1","username":"kara"}`), false)
	if err != nil {
		t.Fatalf("decodeEvent(playerJoined) error = %v", err)
	}
	if e := joined.(model.PlayerPresenceEvent); !e.Joined || e.Username != "kara" {
		t.Errorf("decoded event = %+v", e)
	}

	left, err := decodeEvent("playerLeft", json.RawMessage(`{"playerId":"p1","username":"kara"}`), false)
	if err != nil {
		t.Fatalf("decodeEvent(playerLeft) error = %v", err)
	}
	if e := left.(model.PlayerPresenceEvent); e.Joined {
		t.Error("playerLeft decoded with Joined = true")
	}
}
