// Package terrain builds a crack-free, curvature-adaptive LOD mesh from a
// regular height-field using a shared-vertex quadtree per tile.
package terrain

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// HeightField is the read-only height source the mesh is built from.
// Sample (i, j) lies at world (i*Scale.X/(sx-1), j*Scale.Y/(sy-1)) with Z up.
type HeightField interface {
	Size() (sx, sy int)
	Scale() mgl32.Vec3
	Height(i, j int) float32
	Normal(i, j int) mgl32.Vec3
}

// TileGrid partitions the height-field into X x Y tiles.
// Hidden, when set, reports tiles that produce no geometry.
type TileGrid struct {
	X, Y   int
	Hidden func(i, j int) bool
}

func (g TileGrid) hidden(i, j int) bool {
	return g.Hidden != nil && g.Hidden(i, j)
}

// Vertex is an entry of the global vertex list. Its index in that list is
// its identity; quads sharing a point share the index.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// DrawVertex is the packed render vertex (position, normal).
type DrawVertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// SkirtVertex is the packed skirt vertex (position, normal, uv).
type SkirtVertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

// Vertex strides in bytes, for renderer vertex declarations.
const (
	DrawVertexStride  = 24
	SkirtVertexStride = 32
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NewAABB returns the box spanning the given points.
func NewAABB(points ...mgl32.Vec3) AABB {
	b := AABB{
		Min: mgl32.Vec3{math32.Inf(1), math32.Inf(1), math32.Inf(1)},
		Max: mgl32.Vec3{math32.Inf(-1), math32.Inf(-1), math32.Inf(-1)},
	}
	for _, p := range points {
		b.Extend(p)
	}
	return b
}

// Extend grows the box to include p.
func (b *AABB) Extend(p mgl32.Vec3) {
	for k := 0; k < 3; k++ {
		b.Min[k] = math32.Min(b.Min[k], p[k])
		b.Max[k] = math32.Max(b.Max[k], p[k])
	}
}

// ExtendZ grows the vertical range of the box to include z.
func (b *AABB) ExtendZ(z float32) {
	b.Min[2] = math32.Min(b.Min[2], z)
	b.Max[2] = math32.Max(b.Max[2], z)
}

// Union grows the box to include other.
func (b *AABB) Union(other AABB) {
	b.Extend(other.Min)
	b.Extend(other.Max)
}

// Contains reports whether p lies inside the box (inclusive).
func (b AABB) Contains(p mgl32.Vec3) bool {
	for k := 0; k < 3; k++ {
		if p[k] < b.Min[k] || p[k] > b.Max[k] {
			return false
		}
	}
	return true
}

// Card is a cardinal direction of a quad: an edge, or the center.
type Card uint8

// Cardinal directions. Center is only a vertex slot, never a neighbor.
const (
	North Card = iota
	South
	East
	West
	Center
)

var cardNames = [...]string{"N", "S", "E", "W", "C"}

func (c Card) String() string {
	return cardNames[c]
}

// Diag is a corner of a quad, also naming which child a quad is.
type Diag uint8

// Corner directions. DiagNone marks a root, which is nobody's child.
const (
	NorthEast Diag = iota
	NorthWest
	SouthWest
	SouthEast
	DiagNone
)

var diagNames = [...]string{"NE", "NW", "SW", "SE", "-"}

func (d Diag) String() string {
	return diagNames[d]
}

// edges lists the four edge directions in iteration order.
var edges = [4]Card{North, South, East, West}

// opposite returns the edge direction facing c.
func opposite(c Card) Card {
	switch c {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	}
	panic(invariantf("no opposite for %v", c))
}

// cardToDiag returns the corner at the clockwise (cw) or counterclockwise
// end of edge c, seen from inside the quad.
func cardToDiag(c Card, cw bool) Diag {
	switch c {
	case North:
		if cw {
			return NorthEast
		}
		return NorthWest
	case West:
		if cw {
			return NorthWest
		}
		return SouthWest
	case South:
		if cw {
			return SouthWest
		}
		return SouthEast
	case East:
		if cw {
			return SouthEast
		}
		return NorthEast
	}
	panic(invariantf("no corner for %v", c))
}
