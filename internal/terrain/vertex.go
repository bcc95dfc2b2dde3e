package terrain

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// gridEpsilon is how close, in sample units, a position must be to a grid
// point to be snapped onto it.
const gridEpsilon = 1e-4

// centerTension blends a center from its projected position (0) towards the
// plain corner average (1).
const centerTension = 1.0

// gridPos returns the world position of sample (i, j).
func (b *Builder) gridPos(i, j int) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(float64(i) * float64(b.scale.X()) / float64(b.sx-1)),
		float32(float64(j) * float64(b.scale.Y()) / float64(b.sy-1)),
		b.hf.Height(i, j),
	}
}

// gridVertex returns the vertex for sample (i, j), creating it on first use.
// Every grid sample maps to at most one vertex.
func (b *Builder) gridVertex(i, j int) vertexID {
	key := [2]int{i, j}
	if v, ok := b.gridVerts[key]; ok {
		return v
	}
	v := b.newVertex(b.gridPos(i, j), b.hf.Normal(i, j))
	b.gridVerts[key] = v
	return v
}

// lookUpVertex returns the grid vertex at p if p lies on a sample point.
// A position that rounds to a sample outside the field is a broken tree.
func (b *Builder) lookUpVertex(p mgl32.Vec3) (vertexID, bool) {
	x := float64(p.X()) * float64(b.sx-1) / float64(b.scale.X())
	y := float64(p.Y()) * float64(b.sy-1) / float64(b.scale.Y())
	rx, ry := math.Round(x), math.Round(y)
	if math.Abs(x-rx) > gridEpsilon || math.Abs(y-ry) > gridEpsilon {
		return noVertex, false
	}

	i, j := int(rx), int(ry)
	if i < 0 || i >= b.sx || j < 0 || j >= b.sy {
		panic(invariantf("grid sample (%d,%d) outside %dx%d field", i, j, b.sx, b.sy))
	}
	return b.gridVertex(i, j), true
}

// makeVertex creates the midpoint vertex of the edge v0-v1. On a sample
// point it is the true sample; otherwise the midpoint is bent towards the
// surface implied by the endpoint normals.
func (b *Builder) makeVertex(v0, v1 vertexID) vertexID {
	p0, p1 := b.verts[v0], b.verts[v1]
	pAvg := p0.Position.Add(p1.Position).Mul(0.5)
	if v, ok := b.lookUpVertex(pAvg); ok {
		return v
	}

	nC := normalize(p0.Normal.Add(p1.Normal))
	proj0 := projectOnto(pAvg, nC, p0)
	proj1 := projectOnto(pAvg, nC, p1)
	pProj := proj0.Add(proj1).Mul(0.5)
	pC := pProj.Add(pAvg.Sub(pProj).Mul(0.5))

	return b.newVertex(pC, nC)
}

// makeCenter creates the center vertex of q from its four corners.
func (b *Builder) makeCenter(q nodeID) vertexID {
	var corners [4]Vertex
	for d, v := range b.nodes[q].diag {
		corners[d] = b.verts[v]
	}

	var pAvg, nSum mgl32.Vec3
	for _, c := range corners {
		pAvg = pAvg.Add(c.Position)
		nSum = nSum.Add(c.Normal)
	}
	pAvg = pAvg.Mul(0.25)
	if v, ok := b.lookUpVertex(pAvg); ok {
		return v
	}

	nC := normalize(nSum)
	var pProj mgl32.Vec3
	for _, c := range corners {
		pProj = pProj.Add(projectOnto(pAvg, nC, c))
	}
	pProj = pProj.Mul(0.25)
	pC := pProj.Add(pAvg.Sub(pProj).Mul(centerTension))

	return b.newVertex(pC, nC)
}

// makeCardinal creates q's vertex in slot c: an edge midpoint or the center.
// The slot must be empty.
func (b *Builder) makeCardinal(q nodeID, c Card) vertexID {
	if b.nodes[q].card[c] != noVertex {
		panic(invariantf("quad %d already has a %v vertex", q, c))
	}

	d := b.nodes[q].diag
	var v vertexID
	switch c {
	case North:
		v = b.makeVertex(d[NorthEast], d[NorthWest])
	case West:
		v = b.makeVertex(d[NorthWest], d[SouthWest])
	case South:
		v = b.makeVertex(d[SouthWest], d[SouthEast])
	case East:
		v = b.makeVertex(d[SouthEast], d[NorthEast])
	case Center:
		v = b.makeCenter(q)
	}

	b.nodes[q].card[c] = v
	b.nodes[q].bounds.ExtendZ(b.pos(v).Z())
	return v
}

// setCard installs a vertex made by a neighbor on q's edge c. A quad with an
// edge vertex always has a center, so one is made if missing.
func (b *Builder) setCard(q nodeID, c Card, v vertexID) {
	if b.nodes[q].card[c] != noVertex {
		panic(invariantf("quad %d already has a %v vertex", q, c))
	}
	b.nodes[q].card[c] = v
	b.nodes[q].bounds.ExtendZ(b.pos(v).Z())

	if b.nodes[q].card[Center] == noVertex {
		b.makeCardinal(q, Center)
	}
}

// projectOnto moves p along n until it meets the tangent plane of plane.
// A direction parallel to the plane leaves p where it is.
func projectOnto(p, n mgl32.Vec3, plane Vertex) mgl32.Vec3 {
	denom := n.Dot(plane.Normal)
	if math32.Abs(denom) < 1e-6 {
		return p
	}
	t := plane.Position.Sub(p).Dot(plane.Normal) / denom
	return p.Add(n.Mul(t))
}

// normalize returns v scaled to unit length, or +Z for a zero vector.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return mgl32.Vec3{0, 0, 1}
	}
	return v.Mul(1 / l)
}
