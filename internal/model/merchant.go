package model

// Mood is a merchant's transient emotional state. Each mood carries a
// multiplicative price factor and a negotiation flag; the two most hostile
// moods refuse negotiation entirely.
type Mood string

const (
	MoodHostile   Mood = "hostile"
	MoodGrumpy    Mood = "grumpy"
	MoodNeutral   Mood = "neutral"
	MoodFriendly  Mood = "friendly"
	MoodDelighted Mood = "delighted"
)

// moodTraits maps each mood to its price factor and negotiation flag.
var moodTraits = map[Mood]struct {
	PriceFactor        float64
	RefusesNegotiation bool
}{
	MoodHostile:   {1.5, true},
	MoodGrumpy:    {1.2, true},
	MoodNeutral:   {1.0, false},
	MoodFriendly:  {0.95, false},
	MoodDelighted: {0.85, false},
}

// PriceFactor returns the multiplicative price factor for the mood.
// Unknown moods behave as neutral.
func (m Mood) PriceFactor() float64 {
	if t, ok := moodTraits[m]; ok {
		return t.PriceFactor
	}
	return 1.0
}

// RefusesNegotiation reports whether a merchant in this mood refuses
// to trade at all.
func (m Mood) RefusesNegotiation() bool {
	if t, ok := moodTraits[m]; ok {
		return t.RefusesNegotiation
	}
	return false
}

// ParseMood converts a wire string into a Mood. The boolean reports
// whether the value was recognized.
func ParseMood(s string) (Mood, bool) {
	m := Mood(s)
	_, ok := moodTraits[m]
	return m, ok
}

// Personality fixes a merchant's default mood and negotiation difficulty.
type Personality string

const (
	PersonalityGruff    Personality = "gruff"
	PersonalityShrewd   Personality = "shrewd"
	PersonalityStoic    Personality = "stoic"
	PersonalityCheerful Personality = "cheerful"
	PersonalityGenerous Personality = "generous"
)

// personalityTraits maps each personality to its default mood and
// negotiation difficulty (higher = harder to please).
var personalityTraits = map[Personality]struct {
	DefaultMood Mood
	Difficulty  int
}{
	PersonalityGruff:    {MoodGrumpy, 4},
	PersonalityShrewd:   {MoodNeutral, 5},
	PersonalityStoic:    {MoodNeutral, 3},
	PersonalityCheerful: {MoodFriendly, 2},
	PersonalityGenerous: {MoodDelighted, 1},
}

// DefaultMood returns the mood a merchant with this personality starts in.
// Unknown personalities default to stoic behavior.
func (p Personality) DefaultMood() Mood {
	if t, ok := personalityTraits[p]; ok {
		return t.DefaultMood
	}
	return MoodNeutral
}

// Difficulty returns the negotiation difficulty for the personality.
func (p Personality) Difficulty() int {
	if t, ok := personalityTraits[p]; ok {
		return t.Difficulty
	}
	return 3
}

// ParsePersonality converts a wire string into a Personality. The boolean
// reports whether the value was recognized.
func ParsePersonality(s string) (Personality, bool) {
	p := Personality(s)
	_, ok := personalityTraits[p]
	return p, ok
}

// StockedItem is an item a merchant keeps in stock.
type StockedItem struct {
	Item       TradeItem `json:"item"`
	Stock      int       `json:"stock"`
	MaxStock   int       `json:"maxStock"`
	RestockQty int       `json:"restockQty"`
}

// Merchant is a trading counterparty. Created from static seed data
// offline or from a server payload online.
type Merchant struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	District            string         `json:"district"`
	Lat                 float64        `json:"lat"`
	Lng                 float64        `json:"lng"`
	RequiredLicense     int            `json:"requiredLicense"`
	PriceModifier       float64        `json:"priceModifier"`
	Mood                Mood           `json:"mood"`
	Personality         Personality    `json:"personality"`
	PreferredCategories []ItemCategory `json:"preferredCategories"`
	DislikedCategories  []ItemCategory `json:"dislikedCategories"`
	TrustRequired       int            `json:"trustRequired"`
	Stock               []StockedItem  `json:"stock"`
}

// Prefers reports whether the merchant favors the item's category.
func (m *Merchant) Prefers(cat ItemCategory) bool {
	for _, c := range m.PreferredCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// Dislikes reports whether the merchant dislikes the item's category.
func (m *Merchant) Dislikes(cat ItemCategory) bool {
	for _, c := range m.DislikedCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// Restock replenishes every stocked item proportionally toward its max,
// adding at most RestockQty per cycle.
func (m *Merchant) Restock() {
	for i := range m.Stock {
		s := &m.Stock[i]
		if s.Stock >= s.MaxStock {
			continue
		}
		s.Stock += s.RestockQty
		if s.Stock > s.MaxStock {
			s.Stock = s.MaxStock
		}
	}
}

// Clone returns a deep copy for read-only snapshots.
func (m *Merchant) Clone() *Merchant {
	out := *m
	out.PreferredCategories = append([]ItemCategory(nil), m.PreferredCategories...)
	out.DislikedCategories = append([]ItemCategory(nil), m.DislikedCategories...)
	out.Stock = append([]StockedItem(nil), m.Stock...)
	return &out
}
