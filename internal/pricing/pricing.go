// Package pricing computes trade prices. Everything here is pure: the same
// item, merchant, player, and direction always produce the same price.
package pricing

import (
	"math"

	"tradewinds-engine/internal/model"
)

// Direction is the side of the trade from the player's point of view.
type Direction int

const (
	// DirectionBuy means the player buys from the merchant.
	DirectionBuy Direction = iota
	// DirectionSell means the player sells to the merchant.
	DirectionSell
)

const (
	// sellHaircut is the merchant's default buy-back discount.
	sellHaircut = 0.8

	// Preference factors by direction.
	preferredBuyFactor  = 0.9
	preferredSellFactor = 1.2
	dislikedBuyFactor   = 1.3
	dislikedSellFactor  = 0.8

	// Relationship bonus: 2% per friendship level, capped at 20%.
	bonusPerLevel = 0.02
	maxBonus      = 0.20
)

// step applies one multiplicative factor and rounds to the nearest whole
// price. Rounding happens after every discrete step, not once at the end.
func step(price int64, factor float64) int64 {
	return int64(math.Round(float64(price) * factor))
}

// RelationshipBonus returns the clamped discount/premium fraction for a
// friendship level.
func RelationshipBonus(level int) float64 {
	bonus := float64(level) * bonusPerLevel
	if bonus > maxBonus {
		bonus = maxBonus
	}
	if bonus < 0 {
		bonus = 0
	}
	return bonus
}

// Quote computes the final trade price. Factors apply in a fixed order:
// sell haircut, merchant modifier, mood, item preference, relationship.
// The result never drops below 1.
func Quote(item model.TradeItem, merchant *model.Merchant, player *model.Player, dir Direction) int64 {
	price := item.CurrentPrice

	if dir == DirectionSell {
		price = step(price, sellHaircut)
	}

	price = step(price, merchant.PriceModifier)
	price = step(price, merchant.Mood.PriceFactor())

	switch {
	case merchant.Prefers(item.Category):
		if dir == DirectionBuy {
			price = step(price, preferredBuyFactor)
		} else {
			price = step(price, preferredSellFactor)
		}
	case merchant.Dislikes(item.Category):
		if dir == DirectionBuy {
			price = step(price, dislikedBuyFactor)
		} else {
			price = step(price, dislikedSellFactor)
		}
	}

	bonus := RelationshipBonus(player.Relationship(merchant.ID).Level())
	if dir == DirectionSell {
		price = step(price, 1+bonus)
	} else {
		price = step(price, 1-bonus)
	}

	if price < 1 {
		price = 1
	}
	return price
}

// CanNegotiate reports whether the merchant will trade with the player at
// all. A merchant refuses when the player's reputation is below its
// threshold or its current mood is one of the hostile no-negotiation
// states.
func CanNegotiate(merchant *model.Merchant, player *model.Player) bool {
	if player.TrustPoints < merchant.TrustRequired {
		return false
	}
	return !merchant.Mood.RefusesNegotiation()
}
