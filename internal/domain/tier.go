package domain

import "fmt"

// Tier is the visibility stage of a post. Transitions are strictly forward
// (seed → tier1 → tier2 → tier3); expired and frozen are absorbing.
type Tier string

const (
	TierSeed    Tier = "seed"
	Tier1       Tier = "tier1"
	Tier2       Tier = "tier2"
	Tier3       Tier = "tier3"
	TierExpired Tier = "expired"
	TierFrozen  Tier = "frozen"
)

// ParseTier converts a stored tier string back into a Tier.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case TierSeed, Tier1, Tier2, Tier3, TierExpired, TierFrozen:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// Next returns the tier a post advances to from t. The second return value is
// false when t has no forward transition (tier3, expired, frozen).
func (t Tier) Next() (Tier, bool) {
	switch t {
	case TierSeed:
		return Tier1, true
	case Tier1:
		return Tier2, true
	case Tier2:
		return Tier3, true
	case Tier3, TierExpired, TierFrozen:
		return "", false
	}
	return "", false
}

// Terminal reports whether t is an absorbing state.
func (t Tier) Terminal() bool {
	return t == TierExpired || t == TierFrozen
}

// rank orders active tiers for monotonicity checks. Absorbing states have no
// rank.
func (t Tier) rank() int {
	switch t {
	case TierSeed:
		return 0
	case Tier1:
		return 1
	case Tier2:
		return 2
	case Tier3:
		return 3
	}
	return -1
}

// Before reports whether t is a strictly earlier active tier than other.
func (t Tier) Before(other Tier) bool {
	return t.rank() >= 0 && other.rank() >= 0 && t.rank() < other.rank()
}

func (t Tier) String() string { return string(t) }
