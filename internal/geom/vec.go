// Package geom provides the small vector and box types shared by the
// pathfinder, the arena and the agents.
// Y is up; the 2D grid lives on the X/Z plane.
package geom

import (
	"fmt"
	"math"
)

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// V is a convenience constructor for Vec3.
func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

// XZ returns a point on the ground plane.
func XZ(x, z float64) Vec3 { return Vec3{X: x, Z: z} }

// Zero is the origin.
var Zero = Vec3{}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// LenSq returns the squared length.
func (v Vec3) LenSq() float64 { return v.Dot(v) }

// Len returns the length.
func (v Vec3) Len() float64 { return math.Sqrt(v.LenSq()) }

// Normalize returns a unit vector in the direction of v, or Zero for a zero vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Zero
	}
	return v.Scale(1 / l)
}

// Flat drops the vertical component.
func (v Vec3) Flat() Vec3 { return Vec3{X: v.X, Z: v.Z} }

// DistSq returns the squared distance between two points.
func DistSq(a, b Vec3) float64 { return a.Sub(b).LenSq() }

// Dist returns the distance between two points.
func Dist(a, b Vec3) float64 { return math.Sqrt(DistSq(a, b)) }

// FlatDist returns the distance between two points on the ground plane.
func FlatDist(a, b Vec3) float64 { return a.Sub(b).Flat().Len() }

// MoveTowards steps from cur toward target by at most maxStep.
func MoveTowards(cur, target Vec3, maxStep float64) Vec3 {
	d := target.Sub(cur)
	l := d.Len()
	if l <= maxStep || l == 0 {
		return target
	}
	return cur.Add(d.Scale(maxStep / l))
}

// Position lets a Vec3 stand in wherever something with a position is wanted.
func (v Vec3) Position() Vec3 { return v }

func (v Vec3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// Clamp01 limits t to [0, 1].
func Clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Box is an axis-aligned bounding box described by its center and half extents.
type Box struct {
	Center Vec3 `json:"center"`
	Half   Vec3 `json:"half"`
}

// Min returns the lowest corner.
func (b Box) Min() Vec3 { return b.Center.Sub(b.Half) }

// Max returns the highest corner.
func (b Box) Max() Vec3 { return b.Center.Add(b.Half) }

// Size returns the full extents.
func (b Box) Size() Vec3 { return b.Half.Scale(2) }

// Contains reports whether p lies inside the box (inclusive).
func (b Box) Contains(p Vec3) bool {
	lo, hi := b.Min(), b.Max()
	return p.X >= lo.X && p.X <= hi.X &&
		p.Y >= lo.Y && p.Y <= hi.Y &&
		p.Z >= lo.Z && p.Z <= hi.Z
}

// Overlaps reports whether two boxes intersect with a non-empty volume
// on every axis that has extent.
func (b Box) Overlaps(o Box) bool {
	return overlap1(b.Center.X, b.Half.X, o.Center.X, o.Half.X) &&
		overlap1(b.Center.Y, b.Half.Y, o.Center.Y, o.Half.Y) &&
		overlap1(b.Center.Z, b.Half.Z, o.Center.Z, o.Half.Z)
}

func overlap1(c1, h1, c2, h2 float64) bool {
	return math.Abs(c1-c2) < h1+h2 || (h1 == 0 && h2 == 0 && c1 == c2)
}

// Encapsulate grows the box so it contains p.
func (b Box) Encapsulate(p Vec3) Box {
	lo := b.Min()
	hi := b.Max()
	lo = Vec3{math.Min(lo.X, p.X), math.Min(lo.Y, p.Y), math.Min(lo.Z, p.Z)}
	hi = Vec3{math.Max(hi.X, p.X), math.Max(hi.Y, p.Y), math.Max(hi.Z, p.Z)}
	return BoxFromMinMax(lo, hi)
}

// BoxFromMinMax builds a box from two corners.
func BoxFromMinMax(lo, hi Vec3) Box {
	return Box{
		Center: lo.Add(hi).Scale(0.5),
		Half:   hi.Sub(lo).Scale(0.5),
	}
}
