package terrain

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Assembly is the renderable result of a build: one shared vertex array,
// one skirt vertex array, and per-tile index lists into them.
type Assembly struct {
	TilesX, TilesY int

	Vertices      []DrawVertex
	SkirtVertices []SkirtVertex

	// SkirtDrop is the z of the plane skirts hang down to.
	SkirtDrop float32

	// Tiles is row-major, [j*TilesX+i]. Hidden and empty tiles are nil.
	Tiles []*TileMesh
}

// TileMesh is one tile's triangle list and skirts.
type TileMesh struct {
	Indices   []uint16 // into Assembly.Vertices
	PrimCount int
	Bounds    AABB
	Skirts    []SkirtDraw
}

// SkirtDraw is one skirt strip of a tile.
type SkirtDraw struct {
	Indices   []uint16 // into Assembly.SkirtVertices
	PrimCount int
}

// Tile returns the mesh of tile (i, j), or nil if it has no geometry.
func (a *Assembly) Tile(i, j int) *TileMesh {
	if i < 0 || i >= a.TilesX || j < 0 || j >= a.TilesY {
		return nil
	}
	return a.Tiles[j*a.TilesX+i]
}

// PrimCount returns the triangle count of tile (i, j).
func (a *Assembly) PrimCount(i, j int) int {
	if t := a.Tile(i, j); t != nil {
		return t.PrimCount
	}
	return 0
}

// TriangleCount returns the surface triangles over all tiles.
func (a *Assembly) TriangleCount() int {
	n := 0
	for _, t := range a.Tiles {
		if t != nil {
			n += t.PrimCount
		}
	}
	return n
}

// DrawBounds returns the box enclosing tile (i, j) including its skirts.
func (a *Assembly) DrawBounds(i, j int) (AABB, bool) {
	t := a.Tile(i, j)
	if t == nil {
		return AABB{}, false
	}
	box := t.Bounds
	if len(t.Skirts) > 0 {
		box.ExtendZ(a.SkirtDrop)
	}
	return box, true
}

// VisibleTiles returns the tiles whose draw bounds intersect the frustum of
// viewProj, in row-major order.
func (a *Assembly) VisibleTiles(viewProj mgl32.Mat4) [][2]int {
	planes := frustumPlanes(viewProj)
	var out [][2]int
	for j := 0; j < a.TilesY; j++ {
		for i := 0; i < a.TilesX; i++ {
			box, ok := a.DrawBounds(i, j)
			if !ok {
				continue
			}
			if boxInFrustum(box, planes) {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}

// plane is Normal.p + D = 0 with the inside on the positive side.
type plane struct {
	Normal mgl32.Vec3
	D      float32
}

// frustumPlanes extracts left, right, bottom, top, near and far planes
// from a view-projection matrix.
func frustumPlanes(m mgl32.Mat4) [6]plane {
	r3 := m.Row(3)
	var planes [6]plane
	for k := 0; k < 3; k++ {
		r := m.Row(k)
		planes[2*k] = plane{Normal: r3.Vec3().Add(r.Vec3()), D: r3.W() + r.W()}
		planes[2*k+1] = plane{Normal: r3.Vec3().Sub(r.Vec3()), D: r3.W() - r.W()}
	}
	for k := range planes {
		l := planes[k].Normal.Len()
		if l == 0 {
			continue
		}
		planes[k].Normal = planes[k].Normal.Mul(1 / l)
		planes[k].D /= l
	}
	return planes
}

// boxInFrustum reports whether any part of box may be inside all planes.
func boxInFrustum(box AABB, planes [6]plane) bool {
	for _, p := range planes {
		var far mgl32.Vec3
		for k := 0; k < 3; k++ {
			if p.Normal[k] >= 0 {
				far[k] = box.Max[k]
			} else {
				far[k] = box.Min[k]
			}
		}
		if p.Normal.Dot(far)+p.D < 0 {
			return false
		}
	}
	return true
}
