package game

import "time"

const (
	ColorGreen   = "#22c55e"
	ColorAmber   = "#f59e0b"
	ColorRed     = "#ef4444"
	ColorNeutral = "#9ca3af"
)

// Countdown is what a renderer needs to draw the radial timer.
type Countdown struct {
	Fraction     float64 `json:"fraction"`
	SweepDegrees float64 `json:"sweep_degrees"`
	Color        string  `json:"color"`
}

// CountdownFor projects the remaining time of s onto an arc starting at 0°.
func CountdownFor(s RoundState, total time.Duration) Countdown {
	fraction := 0.0
	if total > 0 {
		fraction = float64(s.Remaining) / float64(total)
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return Countdown{
		Fraction:     fraction,
		SweepDegrees: 360 * fraction,
		Color:        TierColor(s.LastTierPoints),
	}
}

// TierColor keys the countdown color on the last tier awarded.
func TierColor(points int) string {
	switch points {
	case TierFast.Points:
		return ColorGreen
	case TierMedium.Points:
		return ColorAmber
	case TierSlow.Points:
		return ColorRed
	default:
		return ColorNeutral
	}
}
