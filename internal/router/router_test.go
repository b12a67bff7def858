package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradewinds-engine/internal/cache"
	"tradewinds-engine/internal/config"
	"tradewinds-engine/internal/economy"
	"tradewinds-engine/internal/events"
	"tradewinds-engine/internal/handler"
	"tradewinds-engine/internal/request"
)

// newTestBridge wires a real offline engine behind the bridge router. The
// game API and socket endpoints are unreachable on purpose; everything
// runs against the offline simulation.
func newTestBridge(t *testing.T) *httptest.Server {
	t.Helper()

	client, err := request.NewClient(request.Config{
		BaseURL:         "http://127.0.0.1:1",
		RequestTimeout:  time.Second,
		TransferTimeout: time.Second,
		RetryDelay:      time.Millisecond,
		CacheTTL:        time.Minute,
	}, cache.NewMemoryCache(), nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	channel := events.NewChannel(events.Config{
		URL:               "ws://127.0.0.1:1",
		HandshakeTimeout:  time.Second,
		HeartbeatInterval: time.Minute,
		EventBufferSize:   10,
	}, client)

	controller := economy.NewController(config.EconomyConfig{
		OfflineRefreshInterval: time.Hour,
		RestockInterval:        time.Hour,
		InventoryCapacity:      20,
		StartingMoney:          50000,
	}, false, client, channel)

	srv := httptest.NewServer(New(Config{
		StatusHandler: handler.NewStatusHandler("test", controller, channel),
		AuthHandler:   handler.NewAuthHandler(controller),
		TradeHandler:  handler.NewTradeHandler(controller),
		StateHandler:  handler.NewStateHandler(controller),
		FeedHandler:   handler.NewFeedHandler(channel),
	}))
	t.Cleanup(srv.Close)
	return srv
}

type bridgeEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func getJSON(t *testing.T, url string, wantStatus int) bridgeEnvelope {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	var env bridgeEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("GET %s: undecodable body: %v", url, err)
	}
	return env
}

func postJSON(t *testing.T, url string, body any) (*http.Response, bridgeEnvelope) {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	defer resp.Body.Close()
	var env bridgeEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("POST %s: undecodable body: %v", url, err)
	}
	return resp, env
}

func TestBridgeStatusReportsOfflineMode(t *testing.T) {
	srv := newTestBridge(t)

	env := getJSON(t, srv.URL+"/api/status", http.StatusOK)
	if !env.Success {
		t.Fatal("status envelope success = false")
	}
	var status struct {
		Mode       string `json:"mode"`
		Connection string `json:"connection"`
	}
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("undecodable status data: %v", err)
	}
	if status.Mode != "offline" {
		t.Errorf("mode = %q, want offline", status.Mode)
	}
	if status.Connection != "disconnected" {
		t.Errorf("connection = %q, want disconnected", status.Connection)
	}
}

func TestBridgePlayerSnapshot(t *testing.T) {
	srv := newTestBridge(t)

	env := getJSON(t, srv.URL+"/api/v1/player", http.StatusOK)
	var player struct {
		Money    int64 `json:"money"`
		Capacity int   `json:"capacity"`
	}
	if err := json.Unmarshal(env.Data, &player); err != nil {
		t.Fatalf("undecodable player data: %v", err)
	}
	if player.Money != 50000 {
		t.Errorf("money = %d, want 50000", player.Money)
	}
	if player.Capacity != 20 {
		t.Errorf("capacity = %d, want 20", player.Capacity)
	}
}

func TestBridgeOfflineBuyFlow(t *testing.T) {
	srv := newTestBridge(t)

	env := getJSON(t, srv.URL+"/api/v1/merchants", http.StatusOK)
	var merchants []struct {
		ID              string `json:"id"`
		RequiredLicense int    `json:"requiredLicense"`
		Stock           []struct {
			Item struct {
				Name            string `json:"name"`
				RequiredLicense int    `json:"requiredLicense"`
			} `json:"item"`
		} `json:"stock"`
	}
	if err := json.Unmarshal(env.Data, &merchants); err != nil {
		t.Fatalf("undecodable merchants data: %v", err)
	}
	if len(merchants) == 0 {
		t.Fatal("no seeded merchants returned")
	}

	// Pick a merchant and item the starting license can trade with.
	var merchantID, itemName string
	for _, m := range merchants {
		if m.RequiredLicense > 1 {
			continue
		}
		for _, s := range m.Stock {
			if s.Item.RequiredLicense <= 1 {
				merchantID, itemName = m.ID, s.Item.Name
				break
			}
		}
		if merchantID != "" {
			break
		}
	}
	if merchantID == "" {
		t.Fatal("no license-1 merchant with tradable stock in seed data")
	}

	resp, buyEnv := postJSON(t, srv.URL+"/api/v1/trade/buy", map[string]string{
		"merchantId": merchantID,
		"itemName":   itemName,
	})
	if resp.StatusCode != http.StatusOK || !buyEnv.Success {
		t.Fatalf("buy status = %d, success = %v, error = %+v", resp.StatusCode, buyEnv.Success, buyEnv.Error)
	}

	var player struct {
		Money     int64 `json:"money"`
		Inventory []struct {
			Name string `json:"name"`
		} `json:"inventory"`
	}
	if err := json.Unmarshal(buyEnv.Data, &player); err != nil {
		t.Fatalf("undecodable buy response: %v", err)
	}
	if player.Money >= 50000 {
		t.Errorf("money = %d after buy, want less than 50000", player.Money)
	}
	if len(player.Inventory) != 1 || player.Inventory[0].Name != itemName {
		t.Errorf("inventory = %+v, want the purchased %s", player.Inventory, itemName)
	}
}

func TestBridgeRejectsInvalidTradeBody(t *testing.T) {
	srv := newTestBridge(t)

	resp, env := postJSON(t, srv.URL+"/api/v1/trade/buy", map[string]string{"merchantId": "m1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if env.Success {
		t.Error("envelope success = true for invalid body")
	}
	if env.Error == nil || env.Error.Code != "BAD_REQUEST" {
		t.Errorf("error = %+v, want BAD_REQUEST", env.Error)
	}
}

func TestBridgeLocationValidation(t *testing.T) {
	srv := newTestBridge(t)

	body, _ := json.Marshal(map[string]float64{"lat": 200, "lng": 29})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/player/location", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT location error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d for out-of-range latitude, want 400", resp.StatusCode)
	}
}

func TestBridgeAttachesRequestID(t *testing.T) {
	srv := newTestBridge(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health error = %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing from bridge response")
	}
}

func TestBridgeMarketBoardSeeded(t *testing.T) {
	srv := newTestBridge(t)

	env := getJSON(t, srv.URL+"/api/v1/market", http.StatusOK)
	var board []struct {
		Item struct {
			Name         string `json:"name"`
			CurrentPrice int64  `json:"currentPrice"`
		} `json:"item"`
		District string `json:"district"`
	}
	if err := json.Unmarshal(env.Data, &board); err != nil {
		t.Fatalf("undecodable market data: %v", err)
	}
	if len(board) == 0 {
		t.Fatal("market board is empty; offline seed missing")
	}
	for i, entry := range board {
		if entry.Item.CurrentPrice < 1 {
			t.Errorf("board[%d] %s has price %d, want >= 1", i, entry.Item.Name, entry.Item.CurrentPrice)
		}
		if entry.District == "" {
			t.Errorf("board[%d] has no district", i)
		}
	}
}
