package rating

import (
	"testing"

	"warships-rating/internal/stats"
)

// Dyadic weights keep the identity checks exact in floating point.
var exactCoeff = Coefficients{
	WinsWeight:           0.25,
	DamageWeight:         0.25,
	FragsWeight:          0.25,
	CaptureWeight:        0.125,
	DroppedCaptureWeight: 0.125,
	ShipFragsImportance:  1,
	NominalRating:        1000,
}

func baseline() stats.Sample {
	return stats.Sample{
		stats.Wins:                 stats.Num(0.55),
		stats.DamageDealt:          stats.Num(45000),
		stats.Frags:                stats.Num(1.2),
		stats.CapturePoints:        stats.Num(2.5),
		stats.DroppedCapturePoints: stats.Num(0.4),
		stats.PlanesKilled:         stats.Num(0.05),
	}
}

func TestComputeNeutralIdentity(t *testing.T) {
	// expected == actual means every ratio is 1, and at the neutral tier
	// the result must be exactly nominal * sum(weights).
	exp := baseline()
	got := Compute(exp, exp.Clone(), exactCoeff, NeutralTier)

	want := exactCoeff.NominalRating * (exactCoeff.WinsWeight +
		exactCoeff.DamageWeight +
		exactCoeff.FragsWeight +
		exactCoeff.CaptureWeight +
		exactCoeff.DroppedCaptureWeight)
	if got != want {
		t.Errorf("Compute at neutral tier = %v, want %v", got, want)
	}
}

func TestComputeTierAdjustmentAboveNominal(t *testing.T) {
	// Doubled dyadic ratios, no expected kills so the frags ratio
	// defaults to 1: raw = 2*.25 + 2*.25 + 1*.25 + 2*.125 + 2*.125 =
	// 1.75, value 1750, excess 750, tier 10 coef 1.25 -> 1937.5.
	exp := stats.Sample{
		stats.Wins:                 stats.Num(0.25),
		stats.DamageDealt:          stats.Num(25000),
		stats.CapturePoints:        stats.Num(2),
		stats.DroppedCapturePoints: stats.Num(0.5),
		stats.Frags:                stats.Num(0),
		stats.PlanesKilled:         stats.Num(0),
	}
	actual := stats.Sample{
		stats.Wins:                 stats.Num(0.5),
		stats.DamageDealt:          stats.Num(50000),
		stats.CapturePoints:        stats.Num(4),
		stats.DroppedCapturePoints: stats.Num(1),
	}

	if got := Compute(exp, actual, exactCoeff, 10); got != 1937.5 {
		t.Errorf("Compute at tier 10 = %v, want 1937.5", got)
	}
	// Below-tier excess shrinks: coef 1 + (5-7.5)*0.1 = 0.75.
	if got := Compute(exp, actual, exactCoeff, 5); got != 1562.5 {
		t.Errorf("Compute at tier 5 = %v, want 1562.5", got)
	}
	// The part at or below nominal is tier-insensitive.
	half := exp.Clone()
	if got := Compute(half, stats.Sample{stats.Wins: stats.Num(0.25)}, exactCoeff, 10); got != Compute(half, stats.Sample{stats.Wins: stats.Num(0.25)}, exactCoeff, 5) {
		t.Errorf("below-nominal rating changed with tier: %v", got)
	}
}

func TestFragsBlendingDegenerateCases(t *testing.T) {
	// Only aircraft kills expected: planes ratio alone.
	expPlanesOnly := stats.Sample{
		stats.Frags:        stats.Num(0),
		stats.PlanesKilled: stats.Num(0.05),
	}
	actual := stats.Sample{stats.PlanesKilled: stats.Num(0.1), stats.Frags: stats.Num(99)}
	if got := Compute(expPlanesOnly, actual, exactCoeff, NeutralTier); got != 500 {
		t.Errorf("planes-only blend = %v, want 500", got)
	}

	// Only ship kills expected: ship ratio alone.
	expShipsOnly := stats.Sample{
		stats.Frags:        stats.Num(1.2),
		stats.PlanesKilled: stats.Num(0),
	}
	actual = stats.Sample{stats.Frags: stats.Num(2.4), stats.PlanesKilled: stats.Num(99)}
	if got := Compute(expShipsOnly, actual, exactCoeff, NeutralTier); got != 500 {
		t.Errorf("ships-only blend = %v, want 500", got)
	}

	// No expected kills at all: frags ratio defaults to 1.
	expNone := stats.Sample{
		stats.Frags:        stats.Num(0),
		stats.PlanesKilled: stats.Num(0),
	}
	if got := Compute(expNone, stats.Sample{}, exactCoeff, NeutralTier); got != 250 {
		t.Errorf("no-kill blend = %v, want 250", got)
	}
}

func TestAggregateZeroBattleShipContributesNothing(t *testing.T) {
	expected := map[int64]stats.Sample{42: baseline(), 43: baseline()}
	tiers := map[int64]float64{42: 7.5, 43: 7.5}

	active := stats.Sample{
		stats.Battles:              stats.Num(100),
		stats.Wins:                 stats.Num(55),
		stats.DamageDealt:          stats.Num(4500000),
		stats.Frags:                stats.Num(120),
		stats.CapturePoints:        stats.Num(250),
		stats.DroppedCapturePoints: stats.Num(40),
		stats.PlanesKilled:         stats.Num(5),
	}
	idle := stats.Sample{stats.Battles: stats.Num(0), stats.Frags: stats.Num(50)}

	with := Aggregate(expected, exactCoeff, map[int64]stats.Sample{42: active, 43: idle}, tiers)
	without := Aggregate(expected, exactCoeff, map[int64]stats.Sample{42: active}, tiers)
	if with != without {
		t.Errorf("zero-battle ship changed the aggregate: %v vs %v", with, without)
	}
}

func TestAggregateSkipsShipsWithoutBaseline(t *testing.T) {
	actual := map[int64]stats.Sample{
		99: {stats.Battles: stats.Num(50), stats.Frags: stats.Num(80)},
	}
	got := Aggregate(map[int64]stats.Sample{}, exactCoeff, actual, map[int64]float64{})
	if got != 0 {
		t.Errorf("aggregate with no baselines = %v, want 0", got)
	}
}

func TestAggregateNoEligibleShipsIsZero(t *testing.T) {
	if got := Aggregate(nil, exactCoeff, nil, nil); got != 0 {
		t.Errorf("empty aggregate = %v, want 0", got)
	}
}

// The pinned end-to-end fixture: one ship, 100 battles, neutral tier.
func TestAggregatePinnedFixture(t *testing.T) {
	coeff := Coefficients{
		WinsWeight:           0.3,
		DamageWeight:         0.35,
		FragsWeight:          0.2,
		CaptureWeight:        0.1,
		DroppedCaptureWeight: 0.05,
		ShipFragsImportance:  1,
		NominalRating:        1000,
	}
	expected := map[int64]stats.Sample{42: baseline()}
	actual := map[int64]stats.Sample{42: {
		stats.Battles:              stats.Num(100),
		stats.Wins:                 stats.Num(60),
		stats.DamageDealt:          stats.Num(5000000),
		stats.Frags:                stats.Num(150),
		stats.CapturePoints:        stats.Num(300),
		stats.DroppedCapturePoints: stats.Num(50),
		stats.PlanesKilled:         stats.Num(10),
	}}
	tiers := map[int64]float64{42: 7.5}

	// wins 60/55*.3 + dmg 10/9*.35 + frags (1.25*.96 + 2*.04)*.2 +
	// cap 1.2*.1 + dropped 1.25*.05 = 1.15466..., times 1000, rounded.
	if got := Aggregate(expected, coeff, actual, tiers); got != 1155 {
		t.Errorf("pinned fixture aggregate = %v, want 1155", got)
	}
}

func TestAggregateDefaultTierForUnknownShip(t *testing.T) {
	// Ship missing from the tier table gets the neutral default, so a
	// below-nominal rating is unchanged versus an explicit 7.5.
	expected := map[int64]stats.Sample{42: baseline()}
	actual := map[int64]stats.Sample{42: {
		stats.Battles: stats.Num(10),
		stats.Wins:    stats.Num(3),
	}}
	withTier := Aggregate(expected, exactCoeff, actual, map[int64]float64{42: 7.5})
	withoutTier := Aggregate(expected, exactCoeff, actual, map[int64]float64{})
	if withTier != withoutTier {
		t.Errorf("default tier differs from explicit neutral: %v vs %v", withTier, withoutTier)
	}
}

func TestWeightedAverage(t *testing.T) {
	got := WeightedAverage([]float64{1000, 2000}, []float64{100, 300})
	if got != 1750 {
		t.Errorf("weighted average = %v, want 1750", got)
	}
	if got := WeightedAverage(nil, nil); got != 0 {
		t.Errorf("empty weighted average = %v, want 0", got)
	}
	if got := WeightedAverage([]float64{1234}, []float64{0}); got != 0 {
		t.Errorf("zero-battle weighted average = %v, want 0", got)
	}
}
