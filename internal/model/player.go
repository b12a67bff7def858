package model

// RelationshipTier is the stepped tier derived from friendship points.
type RelationshipTier string

const (
	TierStranger     RelationshipTier = "stranger"
	TierAcquaintance RelationshipTier = "acquaintance"
	TierRegular      RelationshipTier = "regular"
	TierFriend       RelationshipTier = "friend"
	TierPartner      RelationshipTier = "partner"
)

// Relationship tracks accumulated goodwill with one merchant. Friendship
// points never decrease.
type Relationship struct {
	MerchantID  string `json:"merchantId"`
	Points      int64  `json:"points"`
	TradeCount  int    `json:"tradeCount"`
	TotalVolume int64  `json:"totalVolume"`
}

// pointsPerLevel converts raw friendship points into whole levels used by
// the pricing bonus.
const pointsPerLevel = 100

// Level returns the friendship level (one level per 100 points).
func (r *Relationship) Level() int {
	return int(r.Points / pointsPerLevel)
}

// Tier returns the stepped relationship tier.
func (r *Relationship) Tier() RelationshipTier {
	switch lvl := r.Level(); {
	case lvl >= 10:
		return TierPartner
	case lvl >= 6:
		return TierFriend
	case lvl >= 3:
		return TierRegular
	case lvl >= 1:
		return TierAcquaintance
	default:
		return TierStranger
	}
}

// Player is the local player aggregate. The economy controller is its
// exclusive owner; everything else sees copies.
type Player struct {
	ID            string                   `json:"id"`
	Username      string                   `json:"username"`
	Money         int64                    `json:"money"`
	TrustPoints   int                      `json:"trustPoints"`
	LicenseTier   int                      `json:"licenseTier"`
	Capacity      int                      `json:"capacity"`
	Inventory     []TradeItem              `json:"inventory"`
	Relationships map[string]*Relationship `json:"relationships"`
	Lat           float64                  `json:"lat"`
	Lng           float64                  `json:"lng"`
}

// NewPlayer creates a fresh player with the given starting money and
// inventory capacity.
func NewPlayer(startingMoney int64, capacity int) *Player {
	return &Player{
		ID:            "local",
		Username:      "trader",
		Money:         startingMoney,
		TrustPoints:   0,
		LicenseTier:   1,
		Capacity:      capacity,
		Relationships: make(map[string]*Relationship),
	}
}

// Relationship returns the record for a merchant, creating it on first use.
func (p *Player) Relationship(merchantID string) *Relationship {
	if p.Relationships == nil {
		p.Relationships = make(map[string]*Relationship)
	}
	r, ok := p.Relationships[merchantID]
	if !ok {
		r = &Relationship{MerchantID: merchantID}
		p.Relationships[merchantID] = r
	}
	return r
}

// HasCapacity reports whether the inventory can take one more item.
func (p *Player) HasCapacity() bool {
	return len(p.Inventory) < p.Capacity
}

// FindItem returns the index of the first owned item with the given ID,
// or -1 when absent.
func (p *Player) FindItem(itemID string) int {
	for i, it := range p.Inventory {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy for read-only snapshots.
func (p *Player) Clone() *Player {
	out := *p
	out.Inventory = append([]TradeItem(nil), p.Inventory...)
	out.Relationships = make(map[string]*Relationship, len(p.Relationships))
	for id, r := range p.Relationships {
		cp := *r
		out.Relationships[id] = &cp
	}
	return &out
}
