package world

import "hash/fnv"

// Condition is the arena's current weather.
type Condition uint8

const (
	ConditionClear Condition = iota
	ConditionRain
	ConditionFog
	ConditionStorm
)

func (c Condition) String() string {
	switch c {
	case ConditionClear:
		return "clear"
	case ConditionRain:
		return "rain"
	case ConditionFog:
		return "fog"
	case ConditionStorm:
		return "storm"
	default:
		return "unknown"
	}
}

// MarshalText writes the condition name.
func (c Condition) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Weather holds perception modifiers for the current condition.
type Weather struct {
	Condition    Condition `json:"condition"`
	SightScale   float64   `json:"sight_scale"`   // Multiplier on view distance
	HearingScale float64   `json:"hearing_scale"` // Multiplier on hearing distance
	Description  string    `json:"description"`
}

// ForCondition maps a condition to perception modifiers.
func ForCondition(c Condition) Weather {
	w := Weather{Condition: c, SightScale: 1, HearingScale: 1}
	switch c {
	case ConditionRain:
		// Rain drowns out footsteps more than it hides shapes.
		w.SightScale = 0.85
		w.HearingScale = 0.6
		w.Description = "steady rain"
	case ConditionFog:
		w.SightScale = 0.45
		w.HearingScale = 1.1
		w.Description = "thick fog"
	case ConditionStorm:
		w.SightScale = 0.6
		w.HearingScale = 0.4
		w.Description = "howling storm"
	default:
		w.Description = "clear skies"
	}
	return w
}

// WeatherCycle switches condition every Period seconds. The sequence is a
// pure function of the seed and the period index, so replays agree.
type WeatherCycle struct {
	Seed   int64
	Period float64
}

// Weights out of 10: clear 5, rain 2, fog 2, storm 1.
var conditionTable = [10]Condition{
	ConditionClear, ConditionClear, ConditionClear, ConditionClear, ConditionClear,
	ConditionRain, ConditionRain, ConditionFog, ConditionFog, ConditionStorm,
}

// At returns the weather at simulated time t seconds.
func (wc WeatherCycle) At(t float64) Weather {
	if wc.Period <= 0 || t < 0 {
		return ForCondition(ConditionClear)
	}
	idx := uint64(t / wc.Period)
	h := fnv.New64a()
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(uint64(wc.Seed) >> (8 * i))
		buf[8+i] = byte(idx >> (8 * i))
	}
	h.Write(buf[:])
	return ForCondition(conditionTable[h.Sum64()%uint64(len(conditionTable))])
}
