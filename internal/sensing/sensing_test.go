package sensing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/goap"
)

type fakeSelf struct {
	pos    geom.Vec3
	home   geom.Vec3
	health float64
	patrol bool
}

func (f *fakeSelf) Position() geom.Vec3 { return f.pos }
func (f *fakeSelf) Health() float64     { return f.health }
func (f *fakeSelf) Home() geom.Vec3     { return f.home }
func (f *fakeSelf) HasPatrol() bool     { return f.patrol }

func newTestBuilder(self *fakeSelf) *Builder {
	return NewBuilder(self, NewMemory(MemoryConfig{PlayerSeconds: 2, NoiseSeconds: 1}), NewCooldowns(), DefaultBuilderConfig())
}

func TestCooldowns(t *testing.T) {
	c := NewCooldowns()
	assert.True(t, c.Ready("x"))
	c.Start("x", 1)
	assert.False(t, c.Ready("x"))
	c.Decay(0.4)
	assert.InDelta(t, 0.6, c.Remaining("x"), 1e-9)
	c.Decay(0.6)
	assert.True(t, c.Ready("x"))
	assert.Empty(t, c.Active())

	c.Start("b", 1)
	c.Start("a", 1)
	assert.Equal(t, []string{"a", "b"}, c.Active())
	c.Start("a", 0)
	c.Clear("b")
	assert.Empty(t, c.Active())
}

func TestMemoryPlayerDecay(t *testing.T) {
	m := NewMemory(MemoryConfig{PlayerSeconds: 1, NoiseSeconds: 1})
	m.Observe(Percepts{PlayerVisible: true, PlayerPos: geom.XZ(3, 4)})
	pos, ok := m.LastKnown()
	require.True(t, ok)
	assert.Equal(t, geom.XZ(3, 4), pos)

	m.MarkLastKnownChecked()
	assert.True(t, m.LastKnownChecked())

	m.Decay(0.5)
	_, ok = m.LastKnown()
	assert.True(t, ok)
	m.Decay(0.5)
	_, ok = m.LastKnown()
	assert.False(t, ok)
	assert.False(t, m.LastKnownChecked())
}

func TestMemorySightingClearsChecked(t *testing.T) {
	m := NewMemory(DefaultMemoryConfig())
	m.Observe(Percepts{PlayerVisible: true, PlayerPos: geom.XZ(1, 1)})
	m.MarkLastKnownChecked()
	m.Observe(Percepts{PlayerVisible: true, PlayerPos: geom.XZ(2, 2)})
	assert.False(t, m.LastKnownChecked())
}

func TestMemoryLouderNoiseWins(t *testing.T) {
	m := NewMemory(DefaultMemoryConfig())
	m.Observe(Percepts{NoiseHeard: true, NoisePos: geom.XZ(1, 0), NoiseLoudness: 0.8})
	m.Observe(Percepts{NoiseHeard: true, NoisePos: geom.XZ(9, 0), NoiseLoudness: 0.3})
	pos, loud, ok := m.Noise()
	require.True(t, ok)
	assert.Equal(t, geom.XZ(1, 0), pos)
	assert.Equal(t, 0.8, loud)

	m.Observe(Percepts{NoiseHeard: true, NoisePos: geom.XZ(5, 0), NoiseLoudness: 0.9})
	pos, _, _ = m.Noise()
	assert.Equal(t, geom.XZ(5, 0), pos)

	// Once investigated, any new noise takes over.
	m.MarkNoiseInvestigated()
	m.Observe(Percepts{NoiseHeard: true, NoisePos: geom.XZ(7, 0), NoiseLoudness: 0.1})
	pos, _, _ = m.Noise()
	assert.Equal(t, geom.XZ(7, 0), pos)
	assert.False(t, m.NoiseInvestigated())
}

func TestMarkWithoutMemoryIsNoop(t *testing.T) {
	m := NewMemory(DefaultMemoryConfig())
	m.MarkLastKnownChecked()
	m.MarkNoiseInvestigated()
	assert.False(t, m.LastKnownChecked())
	assert.False(t, m.NoiseInvestigated())
}

func TestBuilderEmitsEveryFact(t *testing.T) {
	b := newTestBuilder(&fakeSelf{health: 100})
	ws := b.WorldState()
	for _, name := range Facts {
		_, ok := ws.Get(name)
		assert.True(t, ok, name)
	}
	assert.Len(t, ws, len(Facts))
}

func TestBuilderDerivedFacts(t *testing.T) {
	self := &fakeSelf{pos: geom.XZ(0, 0), home: geom.XZ(0, 0.5), health: 20, patrol: true}
	b := newTestBuilder(self)
	b.Sense(Percepts{PlayerVisible: true, PlayerPos: geom.XZ(1, 0)})

	ws := b.WorldState()
	assert.True(t, ws.BoolOf(PlayerVisible))
	assert.True(t, ws.BoolOf(PlayerKnown))
	assert.True(t, ws.BoolOf(NearPlayer))
	assert.True(t, ws.BoolOf(AttackReady))
	assert.False(t, ws.BoolOf(PlayerAttacked))
	assert.True(t, ws.BoolOf(AtHome))
	assert.True(t, ws.BoolOf(LowHealth))
	assert.Equal(t, 20.0, ws.NumberOf(Health))
	assert.True(t, ws.BoolOf(HasPatrol))
	assert.False(t, ws.BoolOf(Patrolled))

	self.pos = geom.XZ(-5, 0)
	ws = b.WorldState()
	assert.False(t, ws.BoolOf(NearPlayer))
	assert.False(t, ws.BoolOf(AtHome))
}

func TestBuilderCooldownFacts(t *testing.T) {
	b := newTestBuilder(&fakeSelf{health: 100})
	b.Cooldowns().Start(CooldownAttack, 1)
	b.Cooldowns().Start(CooldownHit, 0.25)
	b.Cooldowns().Start(CooldownUnreachable, 2)

	ws := b.WorldState()
	assert.False(t, ws.BoolOf(AttackReady))
	assert.True(t, ws.BoolOf(PlayerAttacked))
	assert.True(t, ws.BoolOf(TargetUnreachable))

	b.Decay(1)
	ws = b.WorldState()
	assert.True(t, ws.BoolOf(AttackReady))
	assert.False(t, ws.BoolOf(PlayerAttacked))
	assert.True(t, ws.BoolOf(TargetUnreachable))
}

func TestBuilderNoiseFacts(t *testing.T) {
	b := newTestBuilder(&fakeSelf{health: 100})
	b.Sense(Percepts{NoiseHeard: true, NoisePos: geom.XZ(4, 4), NoiseLoudness: 0.6})
	b.Sense(Percepts{})

	ws := b.WorldState()
	assert.True(t, ws.BoolOf(NoiseHeard), "noise stays remembered after it stops")
	assert.Equal(t, 0.6, ws.NumberOf(NoiseLoudness))

	b.Memory().MarkNoiseInvestigated()
	ws = b.WorldState()
	assert.False(t, ws.BoolOf(NoiseHeard))
	assert.True(t, ws.BoolOf(NoiseInvestigated))

	b.Decay(1)
	ws = b.WorldState()
	assert.False(t, ws.BoolOf(NoiseInvestigated))
	assert.Equal(t, 0.0, ws.NumberOf(NoiseLoudness))
}

func TestBuilderIsASensor(t *testing.T) {
	var _ goap.Sensor = newTestBuilder(&fakeSelf{})
}
