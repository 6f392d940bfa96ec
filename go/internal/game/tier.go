package game

import "time"

// Tier is the point bucket a reaction falls into.
type Tier struct {
	Points int    `json:"points"`
	Label  string `json:"label"`
}

var (
	TierFast   = Tier{Points: 30, Label: "fast"}
	TierMedium = Tier{Points: 20, Label: "medium"}
	TierSlow   = Tier{Points: 10, Label: "slow"}
)

// Thresholds are the inclusive upper bounds of the fast and medium tiers.
type Thresholds struct {
	Fast   time.Duration `yaml:"fast"`
	Medium time.Duration `yaml:"medium"`
}

// ClassifyReaction maps a reaction time onto a tier.
func ClassifyReaction(reaction time.Duration, th Thresholds) Tier {
	switch {
	case reaction <= th.Fast:
		return TierFast
	case reaction <= th.Medium:
		return TierMedium
	default:
		return TierSlow
	}
}

// TierByPoints returns the tier awarding the given points.
func TierByPoints(points int) (Tier, bool) {
	switch points {
	case TierFast.Points:
		return TierFast, true
	case TierMedium.Points:
		return TierMedium, true
	case TierSlow.Points:
		return TierSlow, true
	default:
		return Tier{}, false
	}
}
