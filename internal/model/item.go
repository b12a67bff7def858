package model

// ItemCategory groups trade items for merchant preference matching.
type ItemCategory string

const (
	CategorySpice     ItemCategory = "spice"
	CategoryTextile   ItemCategory = "textile"
	CategoryGem       ItemCategory = "gem"
	CategoryMetal     ItemCategory = "metal"
	CategoryRelic     ItemCategory = "relic"
	CategoryProvision ItemCategory = "provision"
)

// ItemGrade is the rarity grade of a trade item.
type ItemGrade string

const (
	GradeCommon    ItemGrade = "common"
	GradeUncommon  ItemGrade = "uncommon"
	GradeRare      ItemGrade = "rare"
	GradeExquisite ItemGrade = "exquisite"
	GradeLegendary ItemGrade = "legendary"
)

// TradeItem is a tradeable good. Everything except CurrentPrice is fixed
// once the item is fetched; CurrentPrice drifts via simulation offline or
// server push online.
type TradeItem struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Category        ItemCategory `json:"category"`
	Grade           ItemGrade    `json:"grade"`
	BasePrice       int64        `json:"basePrice"`
	CurrentPrice    int64        `json:"currentPrice"`
	RequiredLicense int          `json:"requiredLicense"`
}

// BoardEntry is one row of the market price board. The board is keyed by
// the stable item ID; the display name is an attribute, not the key, since
// two districts may list identically named goods.
type BoardEntry struct {
	Item     TradeItem `json:"item"`
	District string    `json:"district"`
}
