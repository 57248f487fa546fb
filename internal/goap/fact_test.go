package goap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactEqualityComparesTagAndValue(t *testing.T) {
	assert.True(t, Bool(true).Equal(Bool(true)))
	assert.False(t, Bool(true).Equal(Bool(false)))
	assert.True(t, Number(2.5).Equal(Number(2.5)))
	assert.False(t, Number(1).Equal(Bool(true)))
	assert.False(t, Number(0).Equal(Bool(false)))
}

func TestFactAccessors(t *testing.T) {
	b, ok := Bool(true).Bool()
	assert.True(t, ok)
	assert.True(t, b)
	_, ok = Bool(true).Number()
	assert.False(t, ok)

	n, ok := Number(3).Number()
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)
	assert.Equal(t, KindNumber, Number(3).Kind())
}

func TestParseFact(t *testing.T) {
	f, err := ParseFact("true")
	require.NoError(t, err)
	assert.True(t, f.Equal(Bool(true)))

	f, err = ParseFact(" 0.25 ")
	require.NoError(t, err)
	assert.True(t, f.Equal(Number(0.25)))

	_, err = ParseFact("maybe")
	assert.Error(t, err)
}

func TestWorldStateSatisfies(t *testing.T) {
	ws := NewWorldState().SetBool("hasTarget", true).SetNumber("ammo", 3)

	assert.True(t, ws.Satisfies(WorldState{"hasTarget": Bool(true)}))
	assert.True(t, ws.Satisfies(WorldState{}))
	assert.False(t, ws.Satisfies(WorldState{"hasTarget": Bool(false)}))
	assert.False(t, ws.Satisfies(WorldState{"missing": Bool(false)}), "absent key must fail")
	assert.False(t, ws.Satisfies(WorldState{"ammo": Bool(true)}), "tag mismatch must fail")
}

func TestWorldStateApplyLeavesOriginal(t *testing.T) {
	ws := NewWorldState().SetBool("a", false)
	next := ws.Apply(WorldState{"a": Bool(true), "b": Number(1)})

	assert.True(t, next.BoolOf("a"))
	assert.Equal(t, 1.0, next.NumberOf("b"))
	assert.False(t, ws.BoolOf("a"))
	_, ok := ws.Get("b")
	assert.False(t, ok)
}

func TestWorldStateEqualAndString(t *testing.T) {
	a := WorldState{"x": Bool(true), "n": Number(2)}
	b := WorldState{"n": Number(2), "x": Bool(true)}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(WorldState{"x": Bool(true)}))
	assert.Equal(t, "{n: 2, x: true}", a.String())
	assert.Equal(t, "{}", WorldState{}.String())
}

func TestWorldStateJSONRoundTrip(t *testing.T) {
	ws := WorldState{"visible": Bool(true), "noise": Number(0.5)}
	raw, err := json.Marshal(ws)
	require.NoError(t, err)
	assert.JSONEq(t, `{"visible":true,"noise":0.5}`, string(raw))

	var back WorldState
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, ws.Equal(back))
}

func TestGoalSameIgnoresName(t *testing.T) {
	g1 := NewGoal("attack", WorldState{"playerAttacked": Bool(true)})
	g2 := NewGoal("kill", WorldState{"playerAttacked": Bool(true)})
	g3 := NewGoal("attack", WorldState{"playerAttacked": Bool(false)})

	assert.True(t, g1.Same(g2))
	assert.False(t, g1.Same(g3))
	assert.True(t, g1.SatisfiedBy(WorldState{"playerAttacked": Bool(true), "x": Bool(false)}))
	assert.False(t, g1.SatisfiedBy(WorldState{}))
}
