package game

import (
	"fmt"
	"sort"
	"time"
	"unicode/utf8"
)

// MaxRoundDuration is the longest countdown a variant may configure.
const MaxRoundDuration = 1200 * time.Millisecond

const (
	LowercaseAlphabet = "abcdefghijklmnopqrstuvwxyz"
	ExtendedAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GrowthStep unlocks the first Extended symbols of the extended alphabet once
// the round count reaches Round. Extended < 0 unlocks the whole set.
type GrowthStep struct {
	Round    int `yaml:"round"`
	Extended int `yaml:"extended"`
}

// Variant bundles the timing, scoring, and alphabet rules of one game flavor.
type Variant struct {
	Name             string        `yaml:"name"`
	RoundDuration    time.Duration `yaml:"round_duration"`
	TickInterval     time.Duration `yaml:"tick_interval"`
	Thresholds       Thresholds    `yaml:"thresholds"`
	BaseAlphabet     string        `yaml:"base_alphabet"`
	ExtendedAlphabet string        `yaml:"extended_alphabet"`
	Growth           []GrowthStep  `yaml:"growth"`
}

// BaseVariant is the original game: 700ms per symbol, lowercase only.
func BaseVariant() Variant {
	return Variant{
		Name:          "base",
		RoundDuration: 700 * time.Millisecond,
		TickInterval:  10 * time.Millisecond,
		Thresholds: Thresholds{
			Fast:   550 * time.Millisecond,
			Medium: 700 * time.Millisecond,
		},
		BaseAlphabet: LowercaseAlphabet,
	}
}

// ExpandingVariant gives more time per symbol but grows the alphabet as the
// player clears rounds.
func ExpandingVariant() Variant {
	return Variant{
		Name:          "expanding",
		RoundDuration: MaxRoundDuration,
		TickInterval:  10 * time.Millisecond,
		Thresholds: Thresholds{
			Fast:   500 * time.Millisecond,
			Medium: 800 * time.Millisecond,
		},
		BaseAlphabet:     LowercaseAlphabet,
		ExtendedAlphabet: ExtendedAlphabet,
		Growth: []GrowthStep{
			{Round: 15, Extended: 5},
			{Round: 30, Extended: 15},
			{Round: 45, Extended: -1},
		},
	}
}

// Validate checks the variant is playable.
func (v Variant) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidVariant)
	}
	if v.RoundDuration <= 0 || v.RoundDuration > MaxRoundDuration {
		return fmt.Errorf("%w: %s: round duration %s must be in (0, %s]", ErrInvalidVariant, v.Name, v.RoundDuration, MaxRoundDuration)
	}
	if v.TickInterval <= 0 || v.TickInterval > v.RoundDuration {
		return fmt.Errorf("%w: %s: tick interval %s must be in (0, %s]", ErrInvalidVariant, v.Name, v.TickInterval, v.RoundDuration)
	}
	if v.Thresholds.Fast <= 0 || v.Thresholds.Fast > v.Thresholds.Medium {
		return fmt.Errorf("%w: %s: thresholds must satisfy 0 < fast <= medium", ErrInvalidVariant, v.Name)
	}
	if v.BaseAlphabet == "" || !utf8.ValidString(v.BaseAlphabet) {
		return fmt.Errorf("%w: %s: base alphabet is empty or not valid UTF-8", ErrInvalidVariant, v.Name)
	}
	if !utf8.ValidString(v.ExtendedAlphabet) {
		return fmt.Errorf("%w: %s: extended alphabet is not valid UTF-8", ErrInvalidVariant, v.Name)
	}
	for _, r := range v.BaseAlphabet + v.ExtendedAlphabet {
		if !acceptsSymbol(r) {
			return fmt.Errorf("%w: %s: symbol %q is not a printable key", ErrInvalidVariant, v.Name, r)
		}
	}

	extendedLen := utf8.RuneCountInString(v.ExtendedAlphabet)
	prevRound, prevCount := 0, 0
	for i, step := range v.Growth {
		count := step.Extended
		if count < 0 {
			count = extendedLen
		}
		if step.Round < 0 || (i > 0 && step.Round <= prevRound) {
			return fmt.Errorf("%w: %s: growth rounds must be increasing", ErrInvalidVariant, v.Name)
		}
		if count > extendedLen {
			return fmt.Errorf("%w: %s: growth step at round %d unlocks %d of %d extended symbols", ErrInvalidVariant, v.Name, step.Round, count, extendedLen)
		}
		if count < prevCount {
			return fmt.Errorf("%w: %s: alphabet may not shrink at round %d", ErrInvalidVariant, v.Name, step.Round)
		}
		prevRound, prevCount = step.Round, count
	}
	return nil
}

// Catalog is the set of playable variants keyed by name.
type Catalog struct {
	variants map[string]Variant
}

// DefaultCatalog holds the built-in variants.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog()
	return c
}

// NewCatalog starts from the built-in variants and adds or replaces the given
// ones by name.
func NewCatalog(extra ...Variant) (*Catalog, error) {
	c := &Catalog{variants: make(map[string]Variant)}
	for _, v := range append([]Variant{BaseVariant(), ExpandingVariant()}, extra...) {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		c.variants[v.Name] = v
	}
	return c, nil
}

// Get looks up a variant; an empty name selects the base variant.
func (c *Catalog) Get(name string) (Variant, error) {
	if name == "" {
		name = BaseVariant().Name
	}
	v, ok := c.variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// Names returns the variant names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.variants))
	for name := range c.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
