package goap

import "github.com/talgya/warden/internal/geom"

type testAgent struct {
	pos geom.Vec3
}

func (a *testAgent) Position() geom.Vec3 { return a.pos }

// stubAction is a scriptable action for planner and executor tests.
type stubAction struct {
	BaseAction
	resets    int
	checks    int
	performs  int
	checkOK   func() bool
	performOK func() bool
	doneAfter int // IsDone after this many performs; 0 means immediately
	onPerform func()
}

func newStub(name string, cost float64, pre, eff WorldState) *stubAction {
	return &stubAction{BaseAction: NewBaseAction(name, cost, pre, eff)}
}

func (s *stubAction) Reset() {
	s.BaseAction.Reset()
	s.resets++
	s.performs = 0
}

func (s *stubAction) CheckProceduralPrecondition(*testAgent) bool {
	s.checks++
	if s.checkOK == nil {
		return true
	}
	return s.checkOK()
}

func (s *stubAction) Perform(*testAgent) bool {
	s.performs++
	if s.onPerform != nil {
		s.onPerform()
	}
	if s.performOK == nil {
		return true
	}
	return s.performOK()
}

func (s *stubAction) IsDone(*testAgent) bool {
	return s.performs >= s.doneAfter
}

func asActions(stubs ...*stubAction) []Action[*testAgent] {
	out := make([]Action[*testAgent], len(stubs))
	for i, s := range stubs {
		out[i] = s
	}
	return out
}

// mapSensor serves a mutable state and counts decay calls.
type mapSensor struct {
	ws      WorldState
	decayed float64
}

func (m *mapSensor) Decay(dt float64)       { m.decayed += dt }
func (m *mapSensor) WorldState() WorldState { return m.ws.Clone() }

type funcSelector func(WorldState) Goal

func (f funcSelector) Select(ws WorldState) Goal { return f(ws) }
