// Package economy hosts the engine's top-level orchestrator. The
// controller exclusively owns the player, the merchant roster, and the
// market board; it switches between offline simulation and online
// authoritative modes and applies all push updates itself.
package economy

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"tradewinds-engine/internal/config"
	"tradewinds-engine/internal/events"
	"tradewinds-engine/internal/model"
	"tradewinds-engine/internal/request"
	"tradewinds-engine/pkg/apierror"
)

// Mode is the controller's trading mode.
type Mode string

const (
	// ModeOffline trades against the locally simulated economy.
	ModeOffline Mode = "offline"
	// ModeOnline trades against the authoritative server economy.
	ModeOnline Mode = "online"
)

// GameAPI is the request layer surface the controller needs.
type GameAPI interface {
	IsAuthenticated() bool
	RestoreToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
	Login(ctx context.Context, username, password string) (*request.AuthResult, error)
	Register(ctx context.Context, username, password string) (*request.AuthResult, error)
	Logout(ctx context.Context)
	PlayerData(ctx context.Context) (*model.PlayerWire, error)
	UpdateLocation(ctx context.Context, lat, lng float64) error
	Merchants(ctx context.Context, lat, lng *float64, strictDecode bool) ([]*model.Merchant, error)
	MarketPrices(ctx context.Context) ([]model.BoardEntry, error)
	BuyItem(ctx context.Context, merchantID, itemName string) (*request.TradeResult, error)
	SellItem(ctx context.Context, itemID, merchantID string) (*request.TradeResult, error)
	TradeHistory(ctx context.Context, limit, offset int) ([]request.HistoryEntry, error)
}

// EventSource is the event channel surface the controller needs.
type EventSource interface {
	Connect(ctx context.Context) error
	Disconnect()
	State() events.ConnectionState
	StateChanges() <-chan events.ConnectionState
	Events() <-chan model.DomainEvent
	UpdateLocation(lat, lng float64) error
	Background()
	Foreground()
}

// TradeRecord is one completed local trade.
type TradeRecord struct {
	ItemName  string    `json:"itemName"`
	Merchant  string    `json:"merchant"`
	Direction string    `json:"direction"`
	Price     int64     `json:"price"`
	At        time.Time `json:"at"`
}

// historyLimit bounds the locally kept trade history.
const historyLimit = 50

// Controller owns the player/merchant/market aggregate.
type Controller struct {
	cfg     config.EconomyConfig
	decode  bool // strict decode policy for server payloads
	api     GameAPI
	channel EventSource

	mu        sync.RWMutex
	player    *model.Player
	merchants []*model.Merchant
	board     []model.BoardEntry
	mode      Mode
	lastError string
	history   []TradeRecord
	rng       *rand.Rand

	cancel context.CancelFunc
}

// NewController creates the controller with a seeded offline economy.
func NewController(cfg config.EconomyConfig, strictDecode bool, api GameAPI, channel EventSource) *Controller {
	c := &Controller{
		cfg:     cfg,
		decode:  strictDecode,
		api:     api,
		channel: channel,
		player:  model.NewPlayer(cfg.StartingMoney, cfg.InventoryCapacity),
		mode:    ModeOffline,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	c.seedOfflineEconomy()
	return c
}

// Start restores a persisted session if one exists and launches the
// controller's event loop. Blocking work stays off the caller.
func (c *Controller) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(runCtx)

	token, err := c.api.RestoreToken(ctx)
	if err != nil {
		log.Printf("[EconomyController] Token restore failed: %v", err)
		return
	}
	if token == "" {
		return
	}

	// Silent re-authentication: swap the stored token for a fresh one
	// before going online with it. A rejected token tears the session
	// down through the usual 401 path.
	if err := c.api.Refresh(ctx); err != nil {
		log.Printf("[EconomyController] Stored session rejected: %v", err)
		return
	}
	log.Println("[EconomyController] Restored previous session")
	if err := c.channel.Connect(ctx); err != nil {
		log.Printf("[EconomyController] Event channel connect failed: %v", err)
	}
}

// Stop terminates the event loop and disconnects.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.channel.Disconnect()
}

// run is the controller's single write path for push data: every inbound
// event and state change is applied here, serialized with UI-triggered
// transactions through the aggregate mutex.
func (c *Controller) run(ctx context.Context) {
	restock := time.NewTicker(c.cfg.RestockInterval)
	defer restock.Stop()
	refresh := time.NewTicker(c.cfg.OfflineRefreshInterval)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-c.channel.Events():
			if !ok {
				return
			}
			c.applyEvent(ctx, event)

		case state := <-c.channel.StateChanges():
			c.evaluateMode(ctx, state)

		case <-restock.C:
			c.restockMerchants()

		case <-refresh.C:
			c.refreshOfflineCatalog()
		}
	}
}

// Mode returns the current trading mode.
func (c *Controller) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// LastError returns the user-visible message of the most recent failure.
func (c *Controller) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// DismissError clears the last-error slot.
func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = ""
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	c.lastError = err.Error()
	c.mu.Unlock()
	return err
}

func (c *Controller) succeed() {
	c.mu.Lock()
	c.lastError = ""
	c.mu.Unlock()
}

// evaluateMode recomputes the trading mode after a connection state
// change. Online requires both an authenticated session and a connected
// event channel; losing either degrades to offline.
func (c *Controller) evaluateMode(ctx context.Context, state events.ConnectionState) {
	online := c.api.IsAuthenticated() && state == events.StateConnected

	c.mu.Lock()
	prev := c.mode
	if online {
		c.mode = ModeOnline
	} else {
		c.mode = ModeOffline
	}
	next := c.mode
	c.mu.Unlock()

	if prev == next {
		return
	}
	log.Printf("[EconomyController] Mode %s -> %s (connection %s)", prev, next, state)

	if next == ModeOnline {
		c.syncFromServer(ctx)
	}
}

// syncFromServer replaces local projections with authoritative state on
// entering online mode.
func (c *Controller) syncFromServer(ctx context.Context) {
	wire, err := c.api.PlayerData(ctx)
	if err != nil {
		log.Printf("[EconomyController] Player sync failed: %v", err)
	} else if player, derr := wire.Decode(); derr != nil {
		log.Printf("[EconomyController] Player sync undecodable: %v", derr)
	} else {
		c.mu.Lock()
		player.Relationships = c.player.Relationships
		player.Lat, player.Lng = c.player.Lat, c.player.Lng
		c.player = player
		c.mu.Unlock()
	}

	if merchants, err := c.api.Merchants(ctx, nil, nil, c.decode); err != nil {
		log.Printf("[EconomyController] Merchant sync failed: %v", err)
	} else if len(merchants) > 0 {
		c.mu.Lock()
		c.merchants = merchants
		c.mu.Unlock()
	}

	if board, err := c.api.MarketPrices(ctx); err != nil {
		log.Printf("[EconomyController] Market sync failed: %v", err)
	} else if len(board) > 0 {
		c.mu.Lock()
		c.board = board
		c.mu.Unlock()
	}
}

// applyEvent merges one decoded push event into local state.
func (c *Controller) applyEvent(ctx context.Context, event model.DomainEvent) {
	switch e := event.(type) {
	case model.PriceUpdateEvent:
		c.applyPriceUpdate(e)

	case model.NearbyMerchantsEvent:
		c.applyNearbyMerchants(e)

	case model.WelcomeEvent:
		// Welcome doubles as the connected-session confirmation.
		c.evaluateMode(ctx, c.channel.State())

	default:
		// Presence, notifications, and alerts live in the channel's
		// bounded feed; they carry no domain state to merge.
	}
}

// applyPriceUpdate patches only the price of a matching board entry.
// Unmatched item names are ignored, never inserted.
func (c *Controller) applyPriceUpdate(e model.PriceUpdateEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.board {
		if c.board[i].Item.Name == e.ItemName {
			c.board[i].Item.CurrentPrice = e.NewPrice
			return
		}
	}
}

// applyNearbyMerchants upserts merchants by identity: replace on matching
// id, append otherwise.
func (c *Controller) applyNearbyMerchants(e model.NearbyMerchantsEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, incoming := range e.Merchants {
		replaced := false
		for i, existing := range c.merchants {
			if existing.ID == incoming.ID {
				c.merchants[i] = incoming
				replaced = true
				break
			}
		}
		if !replaced {
			c.merchants = append(c.merchants, incoming)
		}
	}
}

// Login authenticates and brings the engine online.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	if _, err := c.api.Login(ctx, username, password); err != nil {
		return c.fail(err)
	}
	c.succeed()
	if err := c.channel.Connect(ctx); err != nil {
		log.Printf("[EconomyController] Event channel connect failed: %v", err)
	}
	return nil
}

// Register creates an account and brings the engine online.
func (c *Controller) Register(ctx context.Context, username, password string) error {
	if _, err := c.api.Register(ctx, username, password); err != nil {
		return c.fail(err)
	}
	c.succeed()
	if err := c.channel.Connect(ctx); err != nil {
		log.Printf("[EconomyController] Event channel connect failed: %v", err)
	}
	return nil
}

// Logout tears the session down and degrades to offline mode.
func (c *Controller) Logout(ctx context.Context) {
	c.channel.Disconnect()
	c.api.Logout(ctx)

	c.mu.Lock()
	c.mode = ModeOffline
	c.mu.Unlock()
	log.Println("[EconomyController] Logged out, offline mode")
}

// HandleSessionExpired reacts to a request-layer 401 or an event-channel
// auth failure: the session is already gone, so just degrade.
func (c *Controller) HandleSessionExpired() {
	c.channel.Disconnect()

	c.mu.Lock()
	c.mode = ModeOffline
	c.lastError = "Session expired, please sign in again"
	c.mu.Unlock()
	log.Println("[EconomyController] Session expired, offline mode")
}

// Buy purchases an item from a merchant in whichever mode is active.
func (c *Controller) Buy(ctx context.Context, merchantID, itemName string) error {
	if c.Mode() == ModeOnline {
		return c.buyOnline(ctx, merchantID, itemName)
	}
	return c.buyOffline(merchantID, itemName)
}

// Sell sells an owned item to a merchant in whichever mode is active.
func (c *Controller) Sell(ctx context.Context, itemID, merchantID string) error {
	if c.Mode() == ModeOnline {
		return c.sellOnline(ctx, itemID, merchantID)
	}
	return c.sellOffline(itemID, merchantID)
}

// buyOnline delegates the trade to the server and applies its verdict
// wholesale. No client-side recomputation of the outcome.
func (c *Controller) buyOnline(ctx context.Context, merchantID, itemName string) error {
	result, err := c.api.BuyItem(ctx, merchantID, itemName)
	if err != nil {
		return c.fail(err)
	}
	if result.PurchasedItem == nil {
		return c.fail(apierror.MalformedResponse("buy result missing item"))
	}
	item, err := result.PurchasedItem.Decode()
	if err != nil {
		return c.fail(apierror.MalformedResponse(err.Error()))
	}

	c.mu.Lock()
	c.player.Money = result.NewMoney
	c.player.TrustPoints = result.NewTrustPoints
	c.player.Inventory = append(c.player.Inventory, item)
	c.recordTrade(item.Name, merchantID, "buy", result.Price)
	c.bumpRelationship(merchantID, result.Price)
	c.mu.Unlock()

	c.succeed()
	return nil
}

// sellOnline delegates the trade to the server and applies its verdict
// wholesale.
func (c *Controller) sellOnline(ctx context.Context, itemID, merchantID string) error {
	result, err := c.api.SellItem(ctx, itemID, merchantID)
	if err != nil {
		return c.fail(err)
	}

	soldID := result.SoldItemID
	if soldID == "" {
		soldID = itemID
	}

	c.mu.Lock()
	c.player.Money = result.NewMoney
	c.player.TrustPoints = result.NewTrustPoints
	itemName := itemID
	if idx := c.player.FindItem(soldID); idx >= 0 {
		itemName = c.player.Inventory[idx].Name
		c.player.Inventory = append(c.player.Inventory[:idx], c.player.Inventory[idx+1:]...)
	}
	c.recordTrade(itemName, merchantID, "sell", result.Price)
	c.bumpRelationship(merchantID, result.Price)
	c.mu.Unlock()

	c.succeed()
	return nil
}

// recordTrade appends to the bounded local trade history. Callers must
// hold c.mu.
func (c *Controller) recordTrade(itemName, merchantID, direction string, price int64) {
	c.history = append(c.history, TradeRecord{
		ItemName:  itemName,
		Merchant:  merchantID,
		Direction: direction,
		Price:     price,
		At:        time.Now(),
	})
	if len(c.history) > historyLimit {
		c.history = c.history[len(c.history)-historyLimit:]
	}
}

// bumpRelationship grows per-merchant goodwill proportionally to the trade
// value. Callers must hold c.mu.
func (c *Controller) bumpRelationship(merchantID string, price int64) {
	rel := c.player.Relationship(merchantID)
	points := price / 1000
	if points < 1 {
		points = 1
	}
	rel.Points += points
	rel.TradeCount++
	rel.TotalVolume += price
}

// UpdateLocation records the player's position and, when online, reports
// it both ways: the throttled socket send for realtime proximity and the
// durable HTTP update for the server-side player record.
func (c *Controller) UpdateLocation(lat, lng float64) {
	c.mu.Lock()
	c.player.Lat, c.player.Lng = lat, lng
	online := c.mode == ModeOnline
	c.mu.Unlock()

	if !online {
		return
	}
	if err := c.channel.UpdateLocation(lat, lng); err != nil {
		log.Printf("[EconomyController] Location update failed: %v", err)
	}
	go func() {
		if err := c.api.UpdateLocation(context.Background(), lat, lng); err != nil {
			log.Printf("[EconomyController] Location report failed: %v", err)
		}
	}()
}

// Background pauses high-frequency network work (app went to background).
func (c *Controller) Background() {
	c.channel.Background()
}

// Foreground resumes full-frequency network work.
func (c *Controller) Foreground() {
	c.channel.Foreground()
}

// PlayerSnapshot returns a deep copy of the player aggregate.
func (c *Controller) PlayerSnapshot() *model.Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.player.Clone()
}

// MerchantsSnapshot returns a deep copy of the merchant roster.
func (c *Controller) MerchantsSnapshot() []*model.Merchant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Merchant, 0, len(c.merchants))
	for _, m := range c.merchants {
		out = append(out, m.Clone())
	}
	return out
}

// BoardSnapshot returns a copy of the market price board.
func (c *Controller) BoardSnapshot() []model.BoardEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.BoardEntry(nil), c.board...)
}

// History returns the trade ledger: the authoritative server page when
// online, the bounded local ring otherwise. A failed server fetch falls
// back to the local ring rather than surfacing an error.
func (c *Controller) History(ctx context.Context, limit, offset int) []TradeRecord {
	if c.Mode() == ModeOnline {
		entries, err := c.api.TradeHistory(ctx, limit, offset)
		if err != nil {
			log.Printf("[EconomyController] Trade history fetch failed: %v", err)
		} else {
			out := make([]TradeRecord, 0, len(entries))
			for _, e := range entries {
				out = append(out, TradeRecord{
					ItemName:  e.ItemName,
					Merchant:  e.Merchant,
					Direction: e.Direction,
					Price:     e.Price,
					At:        e.At,
				})
			}
			return out
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]TradeRecord(nil), c.history...)
}
