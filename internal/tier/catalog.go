// Package tier defines the static level catalog and the luck policy built on it.
package tier

import (
	"fmt"

	"telegram-casino-bot/internal/model"
)

// Custom luck bounds. Admin input outside the range is clamped, not rejected.
const (
	MinCustomLuck     = 0.1
	MaxCustomLuck     = 3.0
	DefaultCustomLuck = 1.0
)

// Catalog is the seed catalog. Prices and luck multipliers strictly increase
// with the level. Price is what it costs to reach the level from the one below.
var Catalog = []model.Tier{
	{Level: 1, Name: "Rookie", Price: 0, Luck: 1.00, Description: "Everyone starts here"},
	{Level: 2, Name: "Amateur", Price: 2500, Luck: 1.05, Description: "+5% luck"},
	{Level: 3, Name: "Gambler", Price: 5000, Luck: 1.10, Description: "+10% luck"},
	{Level: 4, Name: "Regular", Price: 10000, Luck: 1.15, Description: "+15% luck"},
	{Level: 5, Name: "Pro", Price: 20000, Luck: 1.20, Description: "+20% luck"},
	{Level: 6, Name: "Expert", Price: 35000, Luck: 1.30, Description: "+30% luck"},
	{Level: 7, Name: "Master", Price: 50000, Luck: 1.40, Description: "+40% luck"},
	{Level: 8, Name: "Champion", Price: 75000, Luck: 1.50, Description: "+50% luck"},
	{Level: 9, Name: "Legend", Price: 100000, Luck: 1.65, Description: "+65% luck"},
	{Level: 10, Name: "Mythic", Price: 150000, Luck: 1.80, Description: "+80% luck, the top of the ladder"},
}

// MaxLevel is the terminal tier.
var MaxLevel = len(Catalog)

// Get returns the catalog entry for a level.
func Get(level int) (model.Tier, bool) {
	if level < 1 || level > len(Catalog) {
		return model.Tier{}, false
	}
	return Catalog[level-1], true
}

// Next returns the tier one step above the given level.
// ok is false at the terminal tier.
func Next(level int) (model.Tier, bool) {
	return Get(level + 1)
}

// ClampLuck bounds a custom luck multiplier to [MinCustomLuck, MaxCustomLuck].
func ClampLuck(v float64) float64 {
	if v != v { // NaN
		return DefaultCustomLuck
	}
	return min(max(v, MinCustomLuck), MaxCustomLuck)
}

// EffectiveLuck combines the tier multiplier with the account's custom override.
func EffectiveLuck(level int, custom float64) float64 {
	t, ok := Get(level)
	if !ok {
		t = Catalog[0]
	}
	return t.Luck * ClampLuck(custom)
}

// Validate checks that a catalog is non-empty, dense from level 1 and
// strictly increasing in both price and luck with luck at least 1.0.
func Validate(catalog []model.Tier) error {
	if len(catalog) == 0 {
		return fmt.Errorf("empty tier catalog")
	}
	for i, t := range catalog {
		if t.Level != i+1 {
			return fmt.Errorf("tier at index %d has level %d", i, t.Level)
		}
		if t.Luck < 1.0 {
			return fmt.Errorf("tier %d luck %.2f below 1.0", t.Level, t.Luck)
		}
		if i == 0 {
			continue
		}
		prev := catalog[i-1]
		if t.Price <= prev.Price || t.Luck <= prev.Luck {
			return fmt.Errorf("tier %d does not increase over tier %d", t.Level, prev.Level)
		}
	}
	return nil
}
