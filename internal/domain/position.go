package domain

// Position is one wallet's exposure on one outcome token, as reported by the
// positions endpoint. Snapshots age out quickly, so they are cached with a
// shorter ttl than profiles.
type Position struct {
	Asset        string  // outcome token id
	ConditionID  string  // market condition id
	Outcome      string  // outcome label
	OutcomeIndex int     // 0 = first outcome, 1 = second
	Size         float64 // shares held
	AvgPrice     float64 // average entry price
	CurPrice     float64 // current market price
}

// Value returns the position's USD value at the current price.
func (p *Position) Value() float64 {
	return p.Size * p.CurPrice
}
