package stats

import (
	"encoding/json"
	"fmt"
)

// Counter names used by the rating pipeline. Upstream payloads may carry
// more counters than these; a Sample keeps whatever it was given.
const (
	Battles              = "battles"
	Wins                 = "wins"
	DamageDealt          = "damage_dealt"
	Frags                = "frags"
	CapturePoints        = "capture_points"
	DroppedCapturePoints = "dropped_capture_points"
	PlanesKilled         = "planes_killed"
	XP                   = "xp"
	SurvivedBattles      = "survived_battles"
	ShipsSpotted         = "ships_spotted"
	MaxDamageDealt       = "max_damage_dealt"
)

// Field is one entry of a Sample: either a numeric counter or a nested
// group of counters (the hit/shot pairs of a weapon type). A Field with a
// non-nil Nested sample is a group; its Value is ignored.
type Field struct {
	Value  float64
	Nested Sample
}

// Num returns a numeric field.
func Num(v float64) Field {
	return Field{Value: v}
}

// Group returns a nested field.
func Group(s Sample) Field {
	return Field{Nested: s}
}

// IsNested reports whether the field is a nested group rather than a number.
func (f Field) IsNested() bool {
	return f.Nested != nil
}

// Sample is a set of named battle counters, possibly nested one level or
// more (main battery, secondaries, torpedoes carry hit/shot pairs).
type Sample map[string]Field

// Get returns the numeric value of a top-level counter, 0 if the counter
// is absent or nested.
func (s Sample) Get(key string) float64 {
	f, ok := s[key]
	if !ok || f.IsNested() {
		return 0
	}
	return f.Value
}

// Clone returns a deep copy. Cached samples are handed out by value so a
// caller can never mutate cache state through the result.
func (s Sample) Clone() Sample {
	if s == nil {
		return nil
	}
	out := make(Sample, len(s))
	for k, f := range s {
		if f.IsNested() {
			out[k] = Group(f.Nested.Clone())
		} else {
			out[k] = f
		}
	}
	return out
}

// Scale returns a copy with every numeric counter multiplied by factor,
// recursing into nested groups.
func (s Sample) Scale(factor float64) Sample {
	out := make(Sample, len(s))
	for k, f := range s {
		if f.IsNested() {
			out[k] = Group(f.Nested.Scale(factor))
		} else {
			out[k] = Num(f.Value * factor)
		}
	}
	return out
}

// PerBattle divides every counter by the sample's own battle count. A
// sample with no recorded battles yields nil.
func (s Sample) PerBattle() Sample {
	battles := s.Get(Battles)
	if battles <= 0 {
		return nil
	}
	return s.Scale(1 / battles)
}

// Merge sums any number of samples into one. A key appears in the result
// iff it appears in at least one input; nested groups merge recursively.
// Summation is commutative and associative up to floating-point ordering.
// Zero inputs yield an empty sample, a single input is deep-copied.
func Merge(samples ...Sample) Sample {
	out := Sample{}
	for _, s := range samples {
		for k, f := range s {
			prev, ok := out[k]
			switch {
			case !ok:
				if f.IsNested() {
					out[k] = Group(f.Nested.Clone())
				} else {
					out[k] = f
				}
			case f.IsNested() && prev.IsNested():
				out[k] = Group(Merge(prev.Nested, f.Nested))
			case !f.IsNested() && !prev.IsNested():
				out[k] = Num(prev.Value + f.Value)
			default:
				// Numeric vs nested under the same key means the inputs
				// disagree on shape; keep the nested side.
				if f.IsNested() {
					out[k] = Group(f.Nested.Clone())
				}
			}
		}
	}
	return out
}

// Diff returns s minus other for every counter present in s. Counters
// absent from other subtract zero. Used to derive a recent-window delta
// from two all-time snapshots.
func (s Sample) Diff(other Sample) Sample {
	out := make(Sample, len(s))
	for k, f := range s {
		if f.IsNested() {
			o := other[k]
			if o.IsNested() {
				out[k] = Group(f.Nested.Diff(o.Nested))
			} else {
				out[k] = Group(f.Nested.Clone())
			}
			continue
		}
		out[k] = Num(f.Value - other.Get(k))
	}
	return out
}

// UnmarshalJSON accepts the upstream statistics shape: numbers become
// counters, objects become nested groups, anything else (strings, bools,
// nulls the API mixes in) is dropped.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("stats: decode sample: %w", err)
	}
	out := make(Sample, len(raw))
	for k, v := range raw {
		if len(v) == 0 {
			continue
		}
		switch v[0] {
		case '{':
			var nested Sample
			if err := json.Unmarshal(v, &nested); err != nil {
				return err
			}
			out[k] = Group(nested)
		case '"', 't', 'f', 'n', '[':
			continue
		default:
			var num float64
			if err := json.Unmarshal(v, &num); err != nil {
				return fmt.Errorf("stats: counter %q: %w", k, err)
			}
			out[k] = Num(num)
		}
	}
	*s = out
	return nil
}

// MarshalJSON writes counters as numbers and groups as objects.
func (s Sample) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(s))
	for k, f := range s {
		var (
			b   []byte
			err error
		)
		if f.IsNested() {
			b, err = json.Marshal(f.Nested)
		} else {
			b, err = json.Marshal(f.Value)
		}
		if err != nil {
			return nil, err
		}
		m[k] = b
	}
	return json.Marshal(m)
}
