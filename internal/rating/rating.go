package rating

import (
	"math"

	"warships-rating/internal/stats"
)

// Compute derives the WTR value for one ship from its per-battle averages.
//
// expected holds the server-wide per-battle averages for the same ship,
// actualPerBattle the entity's own per-battle averages, avgTier the tier
// used for the above-nominal adjustment. Pure and total over well-formed
// input: zero expected values yield a zero ratio rather than a division
// error, callers guarantee the six tracked counters are present (0 when
// genuinely absent).
func Compute(expected, actualPerBattle stats.Sample, coeff Coefficients, avgTier float64) float64 {
	wins := ratio(actualPerBattle, expected, stats.Wins)
	damage := ratio(actualPerBattle, expected, stats.DamageDealt)
	capture := ratio(actualPerBattle, expected, stats.CapturePoints)
	dropped := ratio(actualPerBattle, expected, stats.DroppedCapturePoints)
	frags := fragsRatio(expected, actualPerBattle, coeff)

	raw := wins*coeff.WinsWeight +
		damage*coeff.DamageWeight +
		frags*coeff.FragsWeight +
		capture*coeff.CaptureWeight +
		dropped*coeff.DroppedCaptureWeight

	value := raw * coeff.NominalRating

	// Only the part of the rating above nominal is tier-sensitive.
	adjustedBase := math.Min(value, coeff.NominalRating)
	excess := math.Max(0, value-coeff.NominalRating)
	tierCoef := 1 + (avgTier-NeutralTier)*PerTierBonus
	return adjustedBase + excess*tierCoef
}

// fragsRatio blends ship kills and aircraft kills into a single frags
// ratio, weighting each side by how much of the expected kill volume it
// represents. The degenerate single-sided cases are handled explicitly so
// a missing counter never produces a 0*Inf artifact.
func fragsRatio(expected, actual stats.Sample, coeff Coefficients) float64 {
	expShips := expected.Get(stats.Frags)
	expPlanes := expected.Get(stats.PlanesKilled)
	if expShips+expPlanes <= 0 {
		return 1.0
	}

	aircraftCoef := expPlanes / (expPlanes + coeff.ShipFragsImportance*expShips)
	switch {
	case aircraftCoef >= 1:
		return ratio(actual, expected, stats.PlanesKilled)
	case aircraftCoef <= 0:
		return ratio(actual, expected, stats.Frags)
	}
	shipCoef := 1 - aircraftCoef
	return ratio(actual, expected, stats.Frags)*shipCoef +
		ratio(actual, expected, stats.PlanesKilled)*aircraftCoef
}

func ratio(actual, expected stats.Sample, key string) float64 {
	exp := expected.Get(key)
	if exp <= 0 {
		return 0
	}
	return actual.Get(key) / exp
}

// Aggregate combines per-ship ratings into one entity-level rating,
// weighted by battle count. Ships without a recorded battle or without an
// expectation baseline contribute nothing; a missing tier falls back to
// DefaultTier. Zero eligible ships yield 0, the defined rating of an
// entity with no tracked battles.
func Aggregate(expectedByShip map[int64]stats.Sample, coeff Coefficients, actualByShip map[int64]stats.Sample, tierByShip map[int64]float64) float64 {
	var total, totalBattles float64
	for shipID, actual := range actualByShip {
		battles := actual.Get(stats.Battles)
		if battles <= 0 {
			continue
		}
		expected, ok := expectedByShip[shipID]
		if !ok {
			// Expected for brand-new or delisted ships, not an error.
			continue
		}
		tier, ok := tierByShip[shipID]
		if !ok {
			tier = DefaultTier
		}
		r := Compute(expected, actual.PerBattle(), coeff, tier)
		total += r * battles
		totalBattles += battles
	}
	return math.Round(total / math.Max(totalBattles, 1))
}

// WeightedAverage folds already-computed ratings into one, weighted by
// each contributor's battle count. Used for the clan-level rating over
// member ratings.
func WeightedAverage(ratings, battles []float64) float64 {
	var total, totalBattles float64
	for i, r := range ratings {
		if battles[i] <= 0 {
			continue
		}
		total += r * battles[i]
		totalBattles += battles[i]
	}
	return math.Round(total / math.Max(totalBattles, 1))
}
