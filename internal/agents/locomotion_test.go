package agents

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/warden/internal/geom"
	"github.com/talgya/warden/internal/world"
)

func TestLocomotionWalksPath(t *testing.T) {
	ctx, clock, _ := newContext(t, walledArena(10, 10))
	body := &testBody{pos: geom.XZ(1.5, 1.5)}
	l := NewLocomotion(ctx, body, DefaultLocomotionConfig())

	assert.Equal(t, MoveIdle, l.FollowPath(tickDT))

	target := geom.XZ(5.5, 1.5)
	require.True(t, l.RequestPath(target))
	require.Len(t, l.Path(), 4, "start cell excluded")
	assert.Equal(t, target, l.Path()[3])

	var status MoveStatus
	for i := 0; i < 50 && status != MoveArrived; i++ {
		clock.Advance(tickDT)
		status = l.FollowPath(tickDT)
	}
	assert.Equal(t, MoveArrived, status)
	assert.LessOrEqual(t, geom.FlatDist(body.pos, target), DefaultLocomotionConfig().WaypointTolerance+1e-9)
	assert.Equal(t, 4, l.Index())
}

func TestLocomotionNegativeToleranceStaysFinite(t *testing.T) {
	ctx, clock, _ := newContext(t, walledArena(10, 10))
	body := &testBody{pos: geom.XZ(1.5, 1.5)}
	cfg := DefaultLocomotionConfig()
	cfg.WaypointTolerance = -0.5
	l := NewLocomotion(ctx, body, cfg)

	target := geom.XZ(5.5, 1.5)
	require.True(t, l.RequestPath(target))
	for i := 0; i < 50; i++ {
		clock.Advance(tickDT)
		l.FollowPath(tickDT)
		require.False(t, math.IsNaN(body.pos.X) || math.IsNaN(body.pos.Z), "tick %d", i)
	}
	assert.InDelta(t, 0, geom.FlatDist(body.pos, target), 1e-6)
}

func TestLocomotionRepathThrottle(t *testing.T) {
	ctx, clock, pf := newContext(t, walledArena(10, 10))
	body := &testBody{pos: geom.XZ(1.5, 1.5)}
	l := NewLocomotion(ctx, body, DefaultLocomotionConfig())

	require.True(t, l.RequestPath(geom.XZ(5.5, 5.5)))
	require.True(t, l.RequestPath(geom.XZ(8.5, 8.5)))
	assert.Equal(t, 1, pf.calls, "cooldown holds the old path")

	clock.Advance(1)
	require.True(t, l.RequestPath(geom.XZ(5.5, 6)))
	assert.Equal(t, 1, pf.calls, "target moved less than the threshold")

	require.True(t, l.RequestPath(geom.XZ(8.5, 8.5)))
	assert.Equal(t, 2, pf.calls)
	assert.Equal(t, geom.XZ(8.5, 8.5), l.Target())

	l.Invalidate()
	assert.Nil(t, l.Path())
	require.True(t, l.RequestPath(geom.XZ(8.5, 8.5)))
	assert.Equal(t, 3, pf.calls, "invalidate skips the cooldown")
}

func TestLocomotionNoPath(t *testing.T) {
	a := walledArena(10, 5)
	for z := 1; z < 4; z++ {
		a.SetTile(5, z, world.TerrainWall)
	}
	ctx, clock, pf := newContext(t, a)
	body := &testBody{pos: geom.XZ(1.5, 1.5)}
	l := NewLocomotion(ctx, body, DefaultLocomotionConfig())

	var got []MoveStatus
	l.OnBlocked = func(_ geom.Vec3, s MoveStatus) { got = append(got, s) }

	assert.False(t, l.RequestPath(geom.XZ(8.5, 1.5)))
	assert.Equal(t, MoveNoPath, l.FollowPath(tickDT))
	assert.False(t, l.RequestPath(geom.XZ(8.5, 1.5)))
	assert.Equal(t, 1, pf.calls)
	assert.Equal(t, []MoveStatus{MoveNoPath}, got, "signalled once per failed query")

	clock.Advance(1)
	assert.True(t, l.RequestPath(geom.XZ(3.5, 3.5)), "a reachable target recovers")
	assert.Equal(t, MoveMoving, l.FollowPath(tickDT))
}

func TestLocomotionBlockedStep(t *testing.T) {
	ctx, _, _ := newContext(t, walledArena(10, 10))
	ctx.Mover = wallMover{}
	body := &testBody{pos: geom.XZ(1.5, 1.5)}
	l := NewLocomotion(ctx, body, DefaultLocomotionConfig())

	var target geom.Vec3
	l.OnBlocked = func(to geom.Vec3, s MoveStatus) {
		if s == MoveBlocked {
			target = to
		}
	}
	require.True(t, l.RequestPath(geom.XZ(4.5, 1.5)))
	assert.Equal(t, MoveBlocked, l.FollowPath(tickDT))
	assert.Equal(t, MoveBlocked, l.Status())
	assert.Nil(t, l.Path(), "blocked path is dropped")
	assert.Equal(t, geom.XZ(4.5, 1.5), target)
	assert.Equal(t, geom.XZ(1.5, 1.5), body.pos)
}

func TestLocomotionProbeSeesWall(t *testing.T) {
	a := walledArena(10, 10)
	ctx, _, _ := newContext(t, a)
	body := &testBody{pos: geom.XZ(1.5, 1.5)}
	l := NewLocomotion(ctx, body, DefaultLocomotionConfig())
	require.True(t, l.RequestPath(geom.XZ(4.5, 1.5)))

	// A wall dropped in after planning is caught by the probe.
	a.SetTile(2, 1, world.TerrainWall)
	assert.Equal(t, MoveBlocked, l.FollowPath(tickDT))
	assert.Equal(t, geom.XZ(1.5, 1.5), body.pos)
}

func TestMoveStatusString(t *testing.T) {
	assert.Equal(t, "no_path", MoveNoPath.String())
	b, err := MoveArrived.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "arrived", string(b))
}
