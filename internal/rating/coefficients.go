// Package rating computes the WTR composite skill rating from raw battle
// counters normalized against server-wide expectation baselines.
package rating

// Tier adjustment constants. The rating scale is anchored at the game's
// neutral tier; each tier above or below it moves the above-nominal part
// of the rating by PerTierBonus.
const (
	NeutralTier  = 7.5
	PerTierBonus = 0.1

	// DefaultTier substitutes for ships missing from the tier table
	// (brand-new or delisted hulls).
	DefaultTier = 7.5
)

// Coefficients is the per-region weight set applied to the normalized
// ratios. Fetched wholesale from the reference-data service and never
// partially mutated.
type Coefficients struct {
	WinsWeight           float64 `json:"wins_weight"`
	DamageWeight         float64 `json:"damage_weight"`
	FragsWeight          float64 `json:"frags_weight"`
	CaptureWeight        float64 `json:"capture_weight"`
	DroppedCaptureWeight float64 `json:"dropped_capture_weight"`
	ShipFragsImportance  float64 `json:"ship_frags_importance_weight"`
	NominalRating        float64 `json:"nominal_rating"`
}

// Valid reports whether the set can be used for computation. A zero
// nominal rating would collapse every rating to zero and indicates a
// broken upstream payload.
func (c Coefficients) Valid() bool {
	return c.NominalRating > 0
}
