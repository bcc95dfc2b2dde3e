package terrain

import (
	"github.com/go-gl/mathgl/mgl32"
)

// skip reports whether the caller asked for vertex v to be left out.
func (b *Builder) skip(v vertexID) bool {
	return b.opts.SkipVertex != nil && b.opts.SkipVertex(b.pos(v))
}

// collectIndices appends the triangles of q's leaves to out and refreshes
// q's vertical bounds from what it emits.
func (b *Builder) collectIndices(q nodeID, out []uint32) []uint32 {
	n := &b.nodes[q]
	if n.haveChildren {
		for _, d := range childOrder {
			c := n.children[d]
			out = b.collectIndices(c, out)
			n.bounds.ExtendZ(b.nodes[c].bounds.Min.Z())
			n.bounds.ExtendZ(b.nodes[c].bounds.Max.Z())
		}
		return out
	}

	if n.card[Center] == noVertex {
		return b.collectSimple(q, out)
	}
	return b.collectFan(q, out)
}

// collectSimple emits a quad without a center as two triangles.
func (b *Builder) collectSimple(q nodeID, out []uint32) []uint32 {
	n := &b.nodes[q]
	for _, v := range n.diag {
		n.bounds.ExtendZ(b.pos(v).Z())
	}

	d := n.diag
	if b.skip(d[NorthWest]) && b.skip(d[SouthWest]) && b.skip(d[SouthEast]) && b.skip(d[NorthEast]) {
		return out
	}
	return append(out,
		uint32(d[SouthWest]), uint32(d[NorthWest]), uint32(d[SouthEast]),
		uint32(d[SouthEast]), uint32(d[NorthWest]), uint32(d[NorthEast]),
	)
}

// fanEdges walks a fan quad counterclockwise from the northwest corner:
// each step is a corner followed by the edge running to the next corner.
var fanEdges = [4]struct {
	from Diag
	edge Card
	to   Diag
}{
	{NorthWest, West, SouthWest},
	{SouthWest, South, SouthEast},
	{SouthEast, East, NorthEast},
	{NorthEast, North, NorthWest},
}

// collectFan emits a quad with a center as a triangle fan around it, with
// an extra triangle for every edge midpoint present.
func (b *Builder) collectFan(q nodeID, out []uint32) []uint32 {
	n := &b.nodes[q]
	c := n.card[Center]
	d := n.diag
	if b.skip(d[NorthWest]) && b.skip(d[SouthWest]) && b.skip(d[SouthEast]) &&
		b.skip(d[NorthEast]) && b.skip(c) {
		return out
	}

	n.bounds.ExtendZ(b.pos(c).Z())
	for _, step := range fanEdges {
		from := d[step.from]
		n.bounds.ExtendZ(b.pos(from).Z())
		out = append(out, uint32(from))
		if mid := n.card[step.edge]; mid != noVertex {
			n.bounds.ExtendZ(b.pos(mid).Z())
			out = append(out, uint32(c), uint32(mid), uint32(mid))
		}
		out = append(out, uint32(c), uint32(d[step.to]))
	}
	return out
}

// skirtNormals lists the outer edges in skirt collection order with the
// outward normal of each.
var skirtNormals = [4]struct {
	dir  Card
	norm mgl32.Vec3
}{
	{North, mgl32.Vec3{0, 1, 0}},
	{West, mgl32.Vec3{-1, 0, 0}},
	{South, mgl32.Vec3{0, -1, 0}},
	{East, mgl32.Vec3{1, 0, 0}},
}

// collectSkirt appends top/bottom vertex pairs along q's edge dir if that
// edge has no neighbor, walking from its counterclockwise to its clockwise
// corner.
func (b *Builder) collectSkirt(q nodeID, norm mgl32.Vec3, dir Card, out []SkirtVertex) []SkirtVertex {
	n := &b.nodes[q]
	if n.neighbor[dir] != noNode {
		return out
	}

	if n.level == 0 {
		out = b.skirtPair(n.diag[cardToDiag(dir, false)], norm, out)
	}
	if n.haveChildren {
		out = b.collectSkirt(n.children[cardToDiag(dir, false)], norm, dir, out)
		return b.collectSkirt(n.children[cardToDiag(dir, true)], norm, dir, out)
	}
	out = b.skirtPair(n.card[dir], norm, out)
	return b.skirtPair(n.diag[cardToDiag(dir, true)], norm, out)
}

// skirtPair appends the top and bottom skirt vertices below v. The bottom
// sits on the drop plane z = -Scale.Z.
func (b *Builder) skirtPair(v vertexID, norm mgl32.Vec3, out []SkirtVertex) []SkirtVertex {
	if v == noVertex {
		return out
	}
	p := b.pos(v)
	uvAxis := norm.Cross(mgl32.Vec3{0, 0, 1}).Mul(b.opts.SkirtUVTile)
	u := p.Dot(uvAxis)
	depth := b.scale.Z()

	top := SkirtVertex{Position: p, Normal: norm, UV: mgl32.Vec2{u, 0}}
	bottom := SkirtVertex{
		Position: mgl32.Vec3{p.X(), p.Y(), -depth},
		Normal:   norm,
		UV:       mgl32.Vec2{u, (p.Z()/depth + 3) * 0.25},
	}
	return append(out, top, bottom)
}

// skirtIndices builds the strip of quads over the pairs in verts[first:],
// dropping a quad only when both of its top vertices are skipped.
func (b *Builder) skirtIndices(verts []SkirtVertex, first int) []uint32 {
	numQuads := (len(verts)-first)/2 - 1
	out := make([]uint32, 0, numQuads*6)
	for i := 0; i < numQuads; i++ {
		f := first + 2*i
		if b.skipSkirt(verts[f]) && b.skipSkirt(verts[f+2]) {
			continue
		}
		v := uint32(f)
		out = append(out, v, v+1, v+2, v+2, v+1, v+3)
	}
	return out
}

func (b *Builder) skipSkirt(v SkirtVertex) bool {
	return b.opts.SkipVertex != nil && b.opts.SkipVertex(v.Position)
}
