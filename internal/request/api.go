package request

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"tradewinds-engine/internal/model"
	"tradewinds-engine/pkg/apierror"
)

// envelope is the standard JSON response shape of the game API.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeEnvelope unwraps a response envelope and returns its data payload.
func decodeEnvelope(resp *Response) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, apierror.MalformedResponse("")
	}
	if !env.Success {
		msg := ""
		if env.Error != nil {
			msg = env.Error.Message
		}
		return nil, apierror.ClientError(resp.StatusCode, msg)
	}
	return env.Data, nil
}

// AuthResult is the payload of a successful login or registration.
type AuthResult struct {
	Token  string            `json:"token"`
	Player *model.PlayerWire `json:"player"`
}

// Login authenticates and installs the returned session token.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
}

// Register creates an account and installs the returned session token.
func (c *Client) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", map[string]string{
		"username": username,
		"password": password,
	})
}

// Refresh exchanges the current token for a fresh one.
func (c *Client) Refresh(ctx context.Context) error {
	resp, err := c.Call(ctx, http.MethodPost, "/auth/refresh", nil, CallOptions{RequiresAuth: true})
	if err != nil {
		return err
	}
	data, err := decodeEnvelope(resp)
	if err != nil {
		return err
	}
	var result AuthResult
	if err := json.Unmarshal(data, &result); err != nil || result.Token == "" {
		return apierror.MalformedResponse("refresh returned no token")
	}
	c.SetToken(ctx, result.Token)
	return nil
}

func (c *Client) authenticate(ctx context.Context, route string, creds map[string]string) (*AuthResult, error) {
	resp, err := c.Call(ctx, http.MethodPost, route, creds, CallOptions{})
	if err != nil {
		return nil, err
	}
	data, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var result AuthResult
	if err := json.Unmarshal(data, &result); err != nil || result.Token == "" {
		return nil, apierror.MalformedResponse("auth response missing token")
	}

	c.SetToken(ctx, result.Token)
	log.Printf("[RequestLayer] Authenticated via %s", route)
	if c.OnAuthenticated != nil {
		c.OnAuthenticated(result.Token)
	}
	return &result, nil
}

// PlayerData fetches the authoritative player snapshot.
func (c *Client) PlayerData(ctx context.Context) (*model.PlayerWire, error) {
	resp, err := c.Call(ctx, http.MethodGet, "/game/player/data", nil,
		CallOptions{RequiresAuth: true})
	if err != nil {
		return nil, err
	}
	data, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	var player model.PlayerWire
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, apierror.MalformedResponse("unreadable player data")
	}
	return &player, nil
}

// UpdateLocation reports the player's position to the server.
func (c *Client) UpdateLocation(ctx context.Context, lat, lng float64) error {
	body := map[string]any{
		"lat":       lat,
		"lng":       lng,
		"timestamp": time.Now().UnixMilli(),
	}
	resp, err := c.Call(ctx, http.MethodPut, "/game/player/location", body,
		CallOptions{RequiresAuth: true})
	if err != nil {
		return err
	}
	_, err = decodeEnvelope(resp)
	return err
}

// MarketPrices fetches the current market price board.
func (c *Client) MarketPrices(ctx context.Context) ([]model.BoardEntry, error) {
	resp, err := c.Call(ctx, http.MethodGet, "/game/market/prices", nil,
		CallOptions{RequiresAuth: true, Cacheable: true})
	if err != nil {
		return nil, err
	}
	data, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Item     model.ItemWire `json:"item"`
		District string         `json:"district"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, apierror.MalformedResponse("unreadable market prices")
	}
	entries := make([]model.BoardEntry, 0, len(rows))
	for _, row := range rows {
		item, err := row.Item.Decode()
		if err != nil {
			return nil, apierror.MalformedResponse(fmt.Sprintf("market row: %v", err))
		}
		entries = append(entries, model.BoardEntry{Item: item, District: row.District})
	}
	return entries, nil
}

// Merchants fetches merchants, optionally filtered by position.
func (c *Client) Merchants(ctx context.Context, lat, lng *float64, strictDecode bool) ([]*model.Merchant, error) {
	route := "/game/merchants"
	if lat != nil && lng != nil {
		params := url.Values{}
		params.Set("lat", fmt.Sprintf("%f", *lat))
		params.Set("lng", fmt.Sprintf("%f", *lng))
		route += "?" + params.Encode()
	}

	resp, err := c.Call(ctx, http.MethodGet, route, nil,
		CallOptions{RequiresAuth: true, Cacheable: true})
	if err != nil {
		return nil, err
	}
	data, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	var wires []model.MerchantWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, apierror.MalformedResponse("unreadable merchant list")
	}
	merchants := make([]*model.Merchant, 0, len(wires))
	for i := range wires {
		m, err := wires[i].Decode(strictDecode)
		if err != nil {
			return nil, apierror.MalformedResponse(err.Error())
		}
		merchants = append(merchants, m)
	}
	return merchants, nil
}

// TradeResult is the authoritative outcome of a buy or sell. The server is
// the source of truth; the controller applies it wholesale.
type TradeResult struct {
	NewMoney       int64           `json:"newMoney"`
	NewTrustPoints int             `json:"newTrustPoints"`
	PurchasedItem  *model.ItemWire `json:"purchasedItem"`
	SoldItemID     string          `json:"soldItemId"`
	Price          int64           `json:"price"`
}

// BuyItem executes a buy against the server.
func (c *Client) BuyItem(ctx context.Context, merchantID, itemName string) (*TradeResult, error) {
	body := map[string]string{
		"merchantId": merchantID,
		"itemName":   itemName,
	}
	return c.trade(ctx, "/game/trade/buy", body)
}

// SellItem executes a sell against the server.
func (c *Client) SellItem(ctx context.Context, itemID, merchantID string) (*TradeResult, error) {
	body := map[string]string{
		"itemId":     itemID,
		"merchantId": merchantID,
	}
	return c.trade(ctx, "/game/trade/sell", body)
}

func (c *Client) trade(ctx context.Context, route string, body map[string]string) (*TradeResult, error) {
	resp, err := c.Call(ctx, http.MethodPost, route, body, CallOptions{RequiresAuth: true})
	if err != nil {
		return nil, err
	}
	data, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	var result TradeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, apierror.MalformedResponse("unreadable trade result")
	}
	return &result, nil
}

// HistoryEntry is one completed trade from the server-side ledger.
type HistoryEntry struct {
	ID        string    `json:"id"`
	ItemName  string    `json:"itemName"`
	Merchant  string    `json:"merchant"`
	Direction string    `json:"direction"`
	Price     int64     `json:"price"`
	At        time.Time `json:"at"`
}

// TradeHistory fetches a page of the player's trade ledger.
func (c *Client) TradeHistory(ctx context.Context, limit, offset int) ([]HistoryEntry, error) {
	route := fmt.Sprintf("/game/trade/history?limit=%d&offset=%d", limit, offset)
	resp, err := c.Call(ctx, http.MethodGet, route, nil,
		CallOptions{RequiresAuth: true, Cacheable: true})
	if err != nil {
		return nil, err
	}
	data, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, apierror.MalformedResponse("unreadable trade history")
	}
	return entries, nil
}
