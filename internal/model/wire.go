package model

import "fmt"

// Wire payload types shared by the HTTP API and the event channel. Decoding
// is strict about shape but configurable about unknown enum values: the
// served product historically defaulted unknown merchant moods and
// personalities instead of rejecting them, so that behavior is kept behind
// an explicit policy flag rather than being silently hard-coded.

// ItemWire is the wire form of a trade item.
type ItemWire struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	Grade           string `json:"grade"`
	BasePrice       int64  `json:"basePrice"`
	CurrentPrice    int64  `json:"currentPrice"`
	RequiredLicense int    `json:"requiredLicense"`
}

// Decode converts the wire item into a domain item.
func (w *ItemWire) Decode() (TradeItem, error) {
	if w.Name == "" {
		return TradeItem{}, fmt.Errorf("item has no name")
	}
	id := w.ID
	if id == "" {
		// Some payloads identify items by name only.
		id = w.Name
	}
	price := w.CurrentPrice
	if price <= 0 {
		price = w.BasePrice
	}
	return TradeItem{
		ID:              id,
		Name:            w.Name,
		Category:        ItemCategory(w.Category),
		Grade:           ItemGrade(w.Grade),
		BasePrice:       w.BasePrice,
		CurrentPrice:    price,
		RequiredLicense: w.RequiredLicense,
	}, nil
}

// StockedItemWire is the wire form of a merchant stock row.
type StockedItemWire struct {
	Item       ItemWire `json:"item"`
	Stock      int      `json:"stock"`
	MaxStock   int      `json:"maxStock"`
	RestockQty int      `json:"restockQty"`
}

// MerchantWire is the wire form of a merchant.
type MerchantWire struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	District        string            `json:"district"`
	Lat             float64           `json:"lat"`
	Lng             float64           `json:"lng"`
	RequiredLicense int               `json:"requiredLicense"`
	PriceModifier   float64           `json:"priceModifier"`
	Mood            string            `json:"mood"`
	Personality     string            `json:"personality"`
	Preferred       []string          `json:"preferred"`
	Disliked        []string          `json:"disliked"`
	TrustRequired   int               `json:"trustRequired"`
	Stock           []StockedItemWire `json:"stock"`
}

// Decode converts the wire merchant into a domain merchant. When strict is
// false, unknown moods and personalities fall back to the personality
// default and stoic respectively; when strict, they are rejected.
func (w *MerchantWire) Decode(strict bool) (*Merchant, error) {
	if w.ID == "" {
		return nil, fmt.Errorf("merchant has no id")
	}
	if w.Name == "" {
		return nil, fmt.Errorf("merchant %s has no name", w.ID)
	}

	personality, ok := ParsePersonality(w.Personality)
	if !ok {
		if strict {
			return nil, fmt.Errorf("merchant %s has unknown personality %q", w.ID, w.Personality)
		}
		personality = PersonalityStoic
	}

	mood, ok := ParseMood(w.Mood)
	if !ok {
		if strict && w.Mood != "" {
			return nil, fmt.Errorf("merchant %s has unknown mood %q", w.ID, w.Mood)
		}
		mood = personality.DefaultMood()
	}

	modifier := w.PriceModifier
	if modifier <= 0 {
		modifier = 1.0
	}

	m := &Merchant{
		ID:              w.ID,
		Name:            w.Name,
		District:        w.District,
		Lat:             w.Lat,
		Lng:             w.Lng,
		RequiredLicense: w.RequiredLicense,
		PriceModifier:   modifier,
		Mood:            mood,
		Personality:     personality,
		TrustRequired:   w.TrustRequired,
	}
	for _, c := range w.Preferred {
		m.PreferredCategories = append(m.PreferredCategories, ItemCategory(c))
	}
	for _, c := range w.Disliked {
		m.DislikedCategories = append(m.DislikedCategories, ItemCategory(c))
	}
	for _, sw := range w.Stock {
		item, err := sw.Item.Decode()
		if err != nil {
			return nil, fmt.Errorf("merchant %s stock: %w", w.ID, err)
		}
		m.Stock = append(m.Stock, StockedItem{
			Item:       item,
			Stock:      sw.Stock,
			MaxStock:   sw.MaxStock,
			RestockQty: sw.RestockQty,
		})
	}
	return m, nil
}

// PlayerWire is the wire form of an authoritative player snapshot.
type PlayerWire struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Money       int64      `json:"money"`
	TrustPoints int        `json:"trustPoints"`
	LicenseTier int        `json:"licenseTier"`
	Capacity    int        `json:"capacity"`
	Inventory   []ItemWire `json:"inventory"`
}

// Decode converts the wire player into a domain player. Relationships are
// local state and survive the merge; the caller re-attaches them.
func (w *PlayerWire) Decode() (*Player, error) {
	if w.ID == "" {
		return nil, fmt.Errorf("player snapshot has no id")
	}
	p := &Player{
		ID:            w.ID,
		Username:      w.Username,
		Money:         w.Money,
		TrustPoints:   w.TrustPoints,
		LicenseTier:   w.LicenseTier,
		Capacity:      w.Capacity,
		Relationships: make(map[string]*Relationship),
	}
	for _, iw := range w.Inventory {
		item, err := iw.Decode()
		if err != nil {
			return nil, fmt.Errorf("player inventory: %w", err)
		}
		p.Inventory = append(p.Inventory, item)
	}
	return p, nil
}
