package pricing

import (
	"testing"

	"tradewinds-engine/internal/model"
)

func testItem(price int64, cat model.ItemCategory) model.TradeItem {
	return model.TradeItem{
		ID:           "item-1",
		Name:         "Test Good",
		Category:     cat,
		Grade:        model.GradeCommon,
		BasePrice:    price,
		CurrentPrice: price,
	}
}

func testMerchant(modifier float64, mood model.Mood) *model.Merchant {
	return &model.Merchant{
		ID:            "merchant-1",
		Name:          "Test Merchant",
		PriceModifier: modifier,
		Mood:          mood,
	}
}

func TestQuoteBuyAppliesFactorsInOrder(t *testing.T) {
	// 1000 * 1.1 = 1100, mood neutral, preferred buy * 0.9 = 990.
	item := testItem(1000, model.CategorySpice)
	merchant := testMerchant(1.1, model.MoodNeutral)
	merchant.PreferredCategories = []model.ItemCategory{model.CategorySpice}
	player := model.NewPlayer(0, 10)

	got := Quote(item, merchant, player, DirectionBuy)
	if got != 990 {
		t.Errorf("Quote() = %d, want 990", got)
	}
}

func TestQuoteSellAppliesHaircutAndBonus(t *testing.T) {
	// 1000 * 0.8 = 800, * 1.1 = 880, friendly * 0.95 = 836,
	// level 5 bonus * 1.1 = 919.6 -> 920.
	item := testItem(1000, model.CategoryMetal)
	merchant := testMerchant(1.1, model.MoodFriendly)
	player := model.NewPlayer(0, 10)
	player.Relationship(merchant.ID).Points = 500

	got := Quote(item, merchant, player, DirectionSell)
	if got != 920 {
		t.Errorf("Quote() = %d, want 920", got)
	}
}

func TestQuoteBuyDislikedCategoryMarkup(t *testing.T) {
	item := testItem(1000, model.CategoryGem)
	merchant := testMerchant(1.0, model.MoodNeutral)
	merchant.DislikedCategories = []model.ItemCategory{model.CategoryGem}
	player := model.NewPlayer(0, 10)

	got := Quote(item, merchant, player, DirectionBuy)
	if got != 1300 {
		t.Errorf("Quote() = %d, want 1300", got)
	}
}

func TestQuoteRoundsEveryStep(t *testing.T) {
	// 333 * 0.8 = 266.4 -> 266, * 1.0, neutral, no preference, no bonus.
	item := testItem(333, model.CategoryTextile)
	merchant := testMerchant(1.0, model.MoodNeutral)
	player := model.NewPlayer(0, 10)

	got := Quote(item, merchant, player, DirectionSell)
	if got != 266 {
		t.Errorf("Quote() = %d, want 266", got)
	}
}

func TestQuoteNeverBelowOne(t *testing.T) {
	item := testItem(2, model.CategoryProvision)
	merchant := testMerchant(0.2, model.MoodDelighted)
	player := model.NewPlayer(0, 10)

	got := Quote(item, merchant, player, DirectionBuy)
	if got != 1 {
		t.Errorf("Quote() = %d, want floor of 1", got)
	}
}

func TestQuoteIsDeterministic(t *testing.T) {
	item := testItem(4200, model.CategorySpice)
	merchant := testMerchant(1.15, model.MoodGrumpy)
	merchant.PreferredCategories = []model.ItemCategory{model.CategorySpice}
	player := model.NewPlayer(0, 10)
	player.Relationship(merchant.ID).Points = 250

	first := Quote(item, merchant, player, DirectionBuy)
	for i := 0; i < 100; i++ {
		if got := Quote(item, merchant, player, DirectionBuy); got != first {
			t.Fatalf("Quote() = %d on iteration %d, want %d", got, i, first)
		}
	}
}

func TestRelationshipBonus(t *testing.T) {
	tests := []struct {
		level int
		want  float64
	}{
		{0, 0},
		{1, 0.02},
		{5, 0.1},
		{10, 0.2},
		{25, 0.2},
		{-3, 0},
	}
	for _, tt := range tests {
		if got := RelationshipBonus(tt.level); got != tt.want {
			t.Errorf("RelationshipBonus(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestCanNegotiate(t *testing.T) {
	player := model.NewPlayer(0, 10)
	player.TrustPoints = 100

	tests := []struct {
		name     string
		mood     model.Mood
		required int
		want     bool
	}{
		{"neutral with enough trust", model.MoodNeutral, 50, true},
		{"trust below threshold", model.MoodNeutral, 200, false},
		{"hostile refuses", model.MoodHostile, 0, false},
		{"grumpy refuses", model.MoodGrumpy, 0, false},
		{"delighted trades", model.MoodDelighted, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merchant := testMerchant(1.0, tt.mood)
			merchant.TrustRequired = tt.required
			if got := CanNegotiate(merchant, player); got != tt.want {
				t.Errorf("CanNegotiate() = %v, want %v", got, tt.want)
			}
		})
	}
}
