package practice

import "fmt"

// Tier is an ordinal difficulty level.
type Tier string

const (
	TierBasic        Tier = "basic"
	TierIntermediate Tier = "intermediate"
	TierAdvanced     Tier = "advanced"
	TierExpert       Tier = "expert"
)

var tierRank = map[Tier]int{
	TierBasic:        0,
	TierIntermediate: 1,
	TierAdvanced:     2,
	TierExpert:       3,
}

// Rank orders tiers from basic (0) to expert (3). Unknown tiers rank -1.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return -1
}

func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// Rule maps every round up to and including UpTo onto Tier.
type Rule struct {
	UpTo int  `yaml:"up_to"`
	Tier Tier `yaml:"tier"`
}

// Curve is a step function from round to tier. Rules are evaluated in
// ascending order and the first whose bound covers the round wins. Rounds
// past the last bound get Final.
type Curve struct {
	Rules []Rule
	Final Tier
}

func (c Curve) TierFor(round int) Tier {
	for _, r := range c.Rules {
		if round <= r.UpTo {
			return r.Tier
		}
	}
	return c.Final
}

// Reachable lists every tier the curve can produce, without duplicates.
func (c Curve) Reachable() []Tier {
	seen := make(map[Tier]bool, len(c.Rules)+1)
	var out []Tier
	for _, r := range c.Rules {
		if !seen[r.Tier] {
			seen[r.Tier] = true
			out = append(out, r.Tier)
		}
	}
	if !seen[c.Final] {
		out = append(out, c.Final)
	}
	return out
}

func (c Curve) validate() error {
	prevBound := 0
	prevRank := -1
	for i, r := range c.Rules {
		if !r.Tier.Valid() {
			return fmt.Errorf("rule %d: unknown tier %q", i, r.Tier)
		}
		if r.UpTo <= prevBound {
			return fmt.Errorf("rule %d: bound %d not above previous bound %d", i, r.UpTo, prevBound)
		}
		if r.Tier.Rank() < prevRank {
			return fmt.Errorf("rule %d: tier %s regresses", i, r.Tier)
		}
		prevBound, prevRank = r.UpTo, r.Tier.Rank()
	}
	if !c.Final.Valid() {
		return fmt.Errorf("unknown final tier %q", c.Final)
	}
	if c.Final.Rank() < prevRank {
		return fmt.Errorf("final tier %s regresses", c.Final)
	}
	return nil
}

// SelectTier maps a mode and a 1-based round onto a difficulty tier using
// the embedded catalog. Unknown modes get TierBasic.
func SelectTier(mode Mode, round int) Tier {
	return Default().SelectTier(mode, round)
}
