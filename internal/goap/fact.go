// Package goap implements goal-oriented action planning: typed facts and
// world states, the action contract, a bounded forward planner, and the
// per-agent plan executor that drives it every tick.
package goap

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the value held by a Fact.
type Kind uint8

const (
	KindBool Kind = iota
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	default:
		return "unknown"
	}
}

// Fact is a named value in a WorldState: either a boolean or a number.
// Two facts are equal only when both tag and value match.
type Fact struct {
	kind Kind
	b    bool
	n    float64
}

// Bool returns a boolean fact.
func Bool(v bool) Fact { return Fact{kind: KindBool, b: v} }

// Number returns a numeric fact.
func Number(v float64) Fact { return Fact{kind: KindNumber, n: v} }

// Kind reports which variant the fact holds.
func (f Fact) Kind() Kind { return f.kind }

// Bool returns the boolean value and whether the fact is a boolean.
func (f Fact) Bool() (bool, bool) { return f.b, f.kind == KindBool }

// Number returns the numeric value and whether the fact is a number.
func (f Fact) Number() (float64, bool) { return f.n, f.kind == KindNumber }

// Equal compares tag and value.
func (f Fact) Equal(o Fact) bool {
	if f.kind != o.kind {
		return false
	}
	if f.kind == KindBool {
		return f.b == o.b
	}
	return f.n == o.n
}

// Value returns the fact as a plain Go value (bool or float64).
func (f Fact) Value() any {
	if f.kind == KindBool {
		return f.b
	}
	return f.n
}

func (f Fact) String() string {
	if f.kind == KindBool {
		return strconv.FormatBool(f.b)
	}
	return strconv.FormatFloat(f.n, 'g', -1, 64)
}

// MarshalJSON writes the bare value.
func (f Fact) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value())
}

// UnmarshalJSON accepts a JSON boolean or number.
func (f *Fact) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := FactOf(v)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// FactOf converts a plain value into a Fact. Integers become numbers.
func FactOf(v any) (Fact, error) {
	switch x := v.(type) {
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	default:
		return Fact{}, fmt.Errorf("fact: unsupported value %T", v)
	}
}

// ParseFact reads "true", "false" or a decimal number.
func ParseFact(s string) (Fact, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Fact{}, fmt.Errorf("fact %q: not a bool or number", s)
	}
	return Number(n), nil
}

// WorldState maps fact names to values. It has no ordering; String and Keys
// sort for determinism.
type WorldState map[string]Fact

// NewWorldState returns an empty state.
func NewWorldState() WorldState { return make(WorldState) }

// Clone returns an independent copy.
func (ws WorldState) Clone() WorldState {
	out := make(WorldState, len(ws))
	for k, v := range ws {
		out[k] = v
	}
	return out
}

// SetBool stores a boolean fact.
func (ws WorldState) SetBool(key string, v bool) WorldState {
	ws[key] = Bool(v)
	return ws
}

// SetNumber stores a numeric fact.
func (ws WorldState) SetNumber(key string, v float64) WorldState {
	ws[key] = Number(v)
	return ws
}

// Get returns the fact under key.
func (ws WorldState) Get(key string) (Fact, bool) {
	f, ok := ws[key]
	return f, ok
}

// BoolOf returns the boolean under key; absent or numeric facts read as false.
func (ws WorldState) BoolOf(key string) bool {
	v, ok := ws[key].Bool()
	return ok && v
}

// NumberOf returns the number under key; absent or boolean facts read as 0.
func (ws WorldState) NumberOf(key string) float64 {
	v, _ := ws[key].Number()
	return v
}

// Satisfies reports whether every fact in conds is present in ws with an
// equal value. An absent key fails the match.
func (ws WorldState) Satisfies(conds WorldState) bool {
	for k, want := range conds {
		have, ok := ws[k]
		if !ok || !have.Equal(want) {
			return false
		}
	}
	return true
}

// Apply returns a copy of ws with effects written over it.
func (ws WorldState) Apply(effects WorldState) WorldState {
	out := make(WorldState, len(ws)+len(effects))
	for k, v := range ws {
		out[k] = v
	}
	for k, v := range effects {
		out[k] = v
	}
	return out
}

// Equal reports key-for-key equality.
func (ws WorldState) Equal(o WorldState) bool {
	if len(ws) != len(o) {
		return false
	}
	return ws.Satisfies(o)
}

// Keys returns the fact names in sorted order.
func (ws WorldState) Keys() []string {
	keys := make([]string, 0, len(ws))
	for k := range ws {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Env exposes the facts as plain values for expression evaluation.
func (ws WorldState) Env() map[string]any {
	env := make(map[string]any, len(ws))
	for k, v := range ws {
		env[k] = v.Value()
	}
	return env
}

func (ws WorldState) String() string {
	if len(ws) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(ws))
	for _, k := range ws.Keys() {
		parts = append(parts, k+": "+ws[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Goal is a partial world state the agent wants to hold.
type Goal struct {
	Name    string     `json:"name"`
	Desired WorldState `json:"desired"`
}

// NewGoal builds a goal from a name and desired facts.
func NewGoal(name string, desired WorldState) Goal {
	return Goal{Name: name, Desired: desired}
}

// SatisfiedBy reports whether ws holds every desired fact.
func (g Goal) SatisfiedBy(ws WorldState) bool {
	return ws.Satisfies(g.Desired)
}

// Same compares desired facts key for key; names are labels only.
func (g Goal) Same(o Goal) bool {
	return g.Desired.Equal(o.Desired)
}

// IsZero reports whether the goal was never set.
func (g Goal) IsZero() bool {
	return g.Name == "" && len(g.Desired) == 0
}

func (g Goal) String() string {
	return fmt.Sprintf("%s%s", g.Name, g.Desired)
}
