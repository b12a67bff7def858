package economy

import (
	"log"
	"math"

	"tradewinds-engine/internal/model"
	"tradewinds-engine/internal/pricing"
	"tradewinds-engine/pkg/apierror"
	"tradewinds-engine/pkg/uid"
)

// Offline simulation: seed data, local trades, price drift, and restock.
// The simulation runs whenever the engine is not both authenticated and
// connected, so a fresh install is playable with zero network access.

const (
	// Offline sale proceeds: base price times a random factor in this range.
	offlineSellMin = 0.7
	offlineSellMax = 0.9

	// Hourly catalog drift range.
	driftMin = 0.8
	driftMax = 1.2

	// Fixed reputation awards for offline trades.
	offlineBuyTrust  = 1
	offlineSellTrust = 2
)

type seedItem struct {
	name     string
	category model.ItemCategory
	grade    model.ItemGrade
	price    int64
	license  int
}

var seedCatalog = []seedItem{
	{"Saffron Bundle", model.CategorySpice, model.GradeRare, 4200, 1},
	{"Black Peppercorn", model.CategorySpice, model.GradeCommon, 650, 1},
	{"Cinnamon Bark", model.CategorySpice, model.GradeUncommon, 1400, 1},
	{"Silk Bolt", model.CategoryTextile, model.GradeRare, 5600, 2},
	{"Wool Bale", model.CategoryTextile, model.GradeCommon, 480, 1},
	{"Dyed Linen", model.CategoryTextile, model.GradeUncommon, 1150, 1},
	{"Raw Sapphire", model.CategoryGem, model.GradeExquisite, 18500, 3},
	{"Polished Amber", model.CategoryGem, model.GradeUncommon, 2300, 1},
	{"Copper Ingot", model.CategoryMetal, model.GradeCommon, 520, 1},
	{"Silver Bar", model.CategoryMetal, model.GradeRare, 7800, 2},
	{"Ancient Coin", model.CategoryRelic, model.GradeExquisite, 24000, 3},
	{"Ceremonial Mask", model.CategoryRelic, model.GradeLegendary, 92000, 4},
	{"Salted Fish Crate", model.CategoryProvision, model.GradeCommon, 320, 1},
	{"Honey Cask", model.CategoryProvision, model.GradeUncommon, 880, 1},
}

type seedMerchant struct {
	name        string
	district    string
	lat, lng    float64
	license     int
	modifier    float64
	personality model.Personality
	preferred   []model.ItemCategory
	disliked    []model.ItemCategory
	trust       int
	stock       []string // item names from seedCatalog
}

var seedMerchants = []seedMerchant{
	{
		name: "Old Marta", district: "Harbor Quarter",
		lat: 41.014, lng: 28.976,
		license: 1, modifier: 1.0, personality: model.PersonalityCheerful,
		preferred: []model.ItemCategory{model.CategoryProvision, model.CategorySpice},
		disliked:  []model.ItemCategory{model.CategoryRelic},
		trust:     0,
		stock:     []string{"Salted Fish Crate", "Honey Cask", "Black Peppercorn", "Wool Bale"},
	},
	{
		name: "Kerem the Weaver", district: "Cloth Row",
		lat: 41.016, lng: 28.970,
		license: 1, modifier: 1.05, personality: model.PersonalityStoic,
		preferred: []model.ItemCategory{model.CategoryTextile},
		disliked:  []model.ItemCategory{model.CategoryMetal},
		trust:     0,
		stock:     []string{"Wool Bale", "Dyed Linen", "Silk Bolt", "Cinnamon Bark"},
	},
	{
		name: "Brassbeard Tomas", district: "Foundry Gate",
		lat: 41.021, lng: 28.981,
		license: 2, modifier: 0.95, personality: model.PersonalityGruff,
		preferred: []model.ItemCategory{model.CategoryMetal},
		disliked:  []model.ItemCategory{model.CategoryTextile, model.CategoryProvision},
		trust:     150,
		stock:     []string{"Copper Ingot", "Silver Bar", "Polished Amber"},
	},
	{
		name: "Madame Izel", district: "Gilded Arcade",
		lat: 41.011, lng: 28.968,
		license: 3, modifier: 1.15, personality: model.PersonalityShrewd,
		preferred: []model.ItemCategory{model.CategoryGem},
		disliked:  []model.ItemCategory{model.CategoryProvision},
		trust:     400,
		stock:     []string{"Raw Sapphire", "Polished Amber", "Saffron Bundle", "Silk Bolt"},
	},
	{
		name: "The Curator", district: "Old Walls",
		lat: 41.008, lng: 28.979,
		license: 3, modifier: 1.1, personality: model.PersonalityGenerous,
		preferred: []model.ItemCategory{model.CategoryRelic},
		disliked:  nil,
		trust:     600,
		stock:     []string{"Ancient Coin", "Ceremonial Mask", "Raw Sapphire"},
	},
}

// stockForGrade sizes merchant shelves by item rarity.
func stockForGrade(grade model.ItemGrade) (stock, maxStock, restockQty int) {
	switch grade {
	case model.GradeLegendary:
		return 1, 1, 1
	case model.GradeExquisite:
		return 1, 2, 1
	case model.GradeRare:
		return 3, 5, 1
	case model.GradeUncommon:
		return 5, 8, 2
	default:
		return 8, 12, 3
	}
}

// seedOfflineEconomy builds the initial merchant roster and market board
// from static seed data. Called once from the constructor, before any
// concurrent access exists.
func (c *Controller) seedOfflineEconomy() {
	items := make(map[string]model.TradeItem, len(seedCatalog))
	for _, s := range seedCatalog {
		item := model.TradeItem{
			ID:              uid.Short(),
			Name:            s.name,
			Category:        s.category,
			Grade:           s.grade,
			BasePrice:       s.price,
			CurrentPrice:    s.price,
			RequiredLicense: s.license,
		}
		items[s.name] = item
	}

	for _, s := range seedMerchants {
		m := &model.Merchant{
			ID:                  uid.Short(),
			Name:                s.name,
			District:            s.district,
			Lat:                 s.lat,
			Lng:                 s.lng,
			RequiredLicense:     s.license,
			PriceModifier:       s.modifier,
			Mood:                s.personality.DefaultMood(),
			Personality:         s.personality,
			PreferredCategories: s.preferred,
			DislikedCategories:  s.disliked,
			TrustRequired:       s.trust,
		}
		for _, name := range s.stock {
			item, ok := items[name]
			if !ok {
				continue
			}
			stock, maxStock, restockQty := stockForGrade(item.Grade)
			m.Stock = append(m.Stock, model.StockedItem{
				Item:       item,
				Stock:      stock,
				MaxStock:   maxStock,
				RestockQty: restockQty,
			})
		}
		c.merchants = append(c.merchants, m)

		for _, stocked := range m.Stock {
			c.board = append(c.board, model.BoardEntry{
				Item:     stocked.Item,
				District: m.District,
			})
		}
	}
}

// buyOffline runs a purchase entirely against local state. All checks
// pass before the first mutation, so a failed trade changes nothing.
func (c *Controller) buyOffline(merchantID, itemName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	merchant := c.findMerchant(merchantID)
	if merchant == nil {
		return c.failLocked(apierror.ItemNotFound("Merchant not found"))
	}

	var stocked *model.StockedItem
	for i := range merchant.Stock {
		if merchant.Stock[i].Item.Name == itemName {
			stocked = &merchant.Stock[i]
			break
		}
	}
	if stocked == nil {
		return c.failLocked(apierror.ItemNotFound(""))
	}
	if stocked.Stock <= 0 {
		return c.failLocked(apierror.ItemNotFound("The merchant is out of stock"))
	}

	if c.player.LicenseTier < merchant.RequiredLicense || c.player.LicenseTier < stocked.Item.RequiredLicense {
		return c.failLocked(apierror.LicenseInsufficient(""))
	}
	if !pricing.CanNegotiate(merchant, c.player) {
		return c.failLocked(apierror.MerchantRefuses(""))
	}

	price := pricing.Quote(stocked.Item, merchant, c.player, pricing.DirectionBuy)
	if c.player.Money < price {
		return c.failLocked(apierror.InsufficientFunds(""))
	}
	if !c.player.HasCapacity() {
		return c.failLocked(apierror.InventoryFull(""))
	}

	owned := stocked.Item
	owned.ID = uid.Short()

	stocked.Stock--
	c.player.Money -= price
	c.player.Inventory = append(c.player.Inventory, owned)
	c.player.TrustPoints += offlineBuyTrust
	c.bumpRelationship(merchant.ID, price)
	c.recordTrade(owned.Name, merchant.ID, "buy", price)
	c.lastError = ""

	log.Printf("[EconomyController] Offline buy: %s from %s for %d", owned.Name, merchant.Name, price)
	return nil
}

// sellOffline liquidates an owned item against local state. The payout is
// the item's base price scaled by a random factor; offline selling is
// deliberately less lucrative than a live market.
func (c *Controller) sellOffline(itemID, merchantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.player.FindItem(itemID)
	if idx < 0 {
		return c.failLocked(apierror.ItemNotFound("You do not own that item"))
	}
	merchant := c.findMerchant(merchantID)
	if merchant == nil {
		return c.failLocked(apierror.ItemNotFound("Merchant not found"))
	}
	// The license gates the merchant, not the goods: an unlicensed trader
	// cannot deal with a high-tier merchant in either direction.
	if c.player.LicenseTier < merchant.RequiredLicense {
		return c.failLocked(apierror.LicenseInsufficient(""))
	}
	if !pricing.CanNegotiate(merchant, c.player) {
		return c.failLocked(apierror.MerchantRefuses(""))
	}

	item := c.player.Inventory[idx]
	factor := offlineSellMin + c.rng.Float64()*(offlineSellMax-offlineSellMin)
	price := int64(math.Round(float64(item.BasePrice) * factor))
	if price < 1 {
		price = 1
	}

	c.player.Inventory = append(c.player.Inventory[:idx], c.player.Inventory[idx+1:]...)
	c.player.Money += price
	c.player.TrustPoints += offlineSellTrust
	c.bumpRelationship(merchant.ID, price)
	c.recordTrade(item.Name, merchant.ID, "sell", price)
	c.lastError = ""

	log.Printf("[EconomyController] Offline sell: %s to %s for %d", item.Name, merchant.Name, price)
	return nil
}

// failLocked records the last error without re-taking the mutex. Callers
// must hold c.mu.
func (c *Controller) failLocked(err error) error {
	c.lastError = err.Error()
	return err
}

// findMerchant returns the roster merchant with the given ID. Callers must
// hold c.mu.
func (c *Controller) findMerchant(id string) *model.Merchant {
	for _, m := range c.merchants {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// restockMerchants replenishes merchant shelves. Only meaningful offline;
// online stock is authoritative server state.
func (c *Controller) restockMerchants() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeOffline {
		return
	}
	for _, m := range c.merchants {
		m.Restock()
	}
	log.Println("[EconomyController] Offline restock cycle complete")
}

// refreshOfflineCatalog drifts every board price around its base and rolls
// fresh merchant moods. Drifting from the base rather than the previous
// price keeps the simulation from random-walking into absurd territory.
func (c *Controller) refreshOfflineCatalog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeOffline {
		return
	}

	drift := func(base int64) int64 {
		factor := driftMin + c.rng.Float64()*(driftMax-driftMin)
		price := int64(math.Round(float64(base) * factor))
		if price < 1 {
			price = 1
		}
		return price
	}

	prices := make(map[string]int64, len(c.board))
	for i := range c.board {
		p := drift(c.board[i].Item.BasePrice)
		c.board[i].Item.CurrentPrice = p
		prices[c.board[i].Item.ID] = p
	}

	for _, m := range c.merchants {
		for i := range m.Stock {
			if p, ok := prices[m.Stock[i].Item.ID]; ok {
				m.Stock[i].Item.CurrentPrice = p
			}
		}
		// Moods wander around the personality default: mostly home, with
		// an occasional good or bad day.
		m.Mood = c.rollMood(m.Personality)
	}
	log.Println("[EconomyController] Offline catalog refreshed")
}

var moodLadder = []model.Mood{
	model.MoodHostile, model.MoodGrumpy, model.MoodNeutral,
	model.MoodFriendly, model.MoodDelighted,
}

// rollMood picks the personality's default mood most of the time and a
// neighboring mood otherwise.
func (c *Controller) rollMood(p model.Personality) model.Mood {
	home := 2
	for i, m := range moodLadder {
		if m == p.DefaultMood() {
			home = i
			break
		}
	}
	switch roll := c.rng.Float64(); {
	case roll < 0.15 && home > 0:
		return moodLadder[home-1]
	case roll > 0.85 && home < len(moodLadder)-1:
		return moodLadder[home+1]
	default:
		return moodLadder[home]
	}
}
