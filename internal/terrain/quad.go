package terrain

import (
	"github.com/go-gl/mathgl/mgl32"
)

// nodeID addresses a quad in the builder's node arena.
type nodeID int32

// vertexID addresses a vertex in the builder's global vertex list.
type vertexID int32

const (
	noNode   nodeID   = -1
	noVertex vertexID = -1
)

// quadNode is one quadtree cell. Corner vertices are always present;
// edge-midpoint and center vertices appear only once the quad, or a
// neighbor sharing the edge, subdivides.
type quadNode struct {
	diag         [4]vertexID // indexed by Diag
	card         [5]vertexID // indexed by Card, Center last
	neighbor     [4]nodeID   // same-level quads across each edge
	children     [4]nodeID   // indexed by Diag
	parent       nodeID
	level        int
	direction    Diag // which child of parent, DiagNone for roots
	bounds       AABB
	haveChildren bool
}

// childOrder is the order children are created and queued in.
var childOrder = [4]Diag{NorthWest, SouthWest, SouthEast, NorthEast}

// newQuad appends a quad to the arena. The arena doubles as the
// subdivision worklist, so every new quad is queued for processing.
// Any *quadNode held across this call is invalidated.
func (b *Builder) newQuad(dir Diag) nodeID {
	id := nodeID(len(b.nodes))
	b.nodes = append(b.nodes, quadNode{
		diag:      [4]vertexID{noVertex, noVertex, noVertex, noVertex},
		card:      [5]vertexID{noVertex, noVertex, noVertex, noVertex, noVertex},
		neighbor:  [4]nodeID{noNode, noNode, noNode, noNode},
		children:  [4]nodeID{noNode, noNode, noNode, noNode},
		parent:    noNode,
		direction: dir,
	})
	return id
}

// newVertex appends a vertex to the global list.
func (b *Builder) newVertex(p, n mgl32.Vec3) vertexID {
	id := vertexID(len(b.verts))
	b.verts = append(b.verts, Vertex{Position: p, Normal: n})
	return id
}

func (b *Builder) pos(v vertexID) mgl32.Vec3 {
	return b.verts[v].Position
}

// setNeighbor links q and n across edge dir, keeping both sides in sync.
func (b *Builder) setNeighbor(q nodeID, dir Card, n nodeID) {
	if b.nodes[q].neighbor[dir] == n {
		return
	}
	b.nodes[q].neighbor[dir] = n
	if n != noNode {
		opp := opposite(dir)
		if b.nodes[n].neighbor[opp] != q {
			b.setNeighbor(n, opp, q)
		}
	}
}

// childNeighbor returns child of q's neighbor in direction nei, if any.
func (b *Builder) childNeighbor(q nodeID, nei Card, child Diag) nodeID {
	n := b.nodes[q].neighbor[nei]
	if n == noNode {
		return noNode
	}
	return b.nodes[n].children[child]
}

// setParent attaches q under par, picking up corners and neighbors.
// All of par's children must exist so siblings can find each other.
func (b *Builder) setParent(q, par nodeID) {
	b.nodes[q].parent = par
	b.nodes[q].level = b.nodes[par].level + 1

	b.shareParentVerts(q)
	b.linkNeighbors(q)
	b.setBoundsFromDiags(q)
}

// shareParentVerts fills q's corners from its parent: the outer corner is
// the parent's, the inner corner the parent's center, the other two the
// parent's edge midpoints.
func (b *Builder) shareParentVerts(q nodeID) {
	n := &b.nodes[q]
	p := &b.nodes[n.parent]
	switch n.direction {
	case NorthWest:
		n.diag[NorthWest] = p.diag[NorthWest]
		n.diag[SouthWest] = p.card[West]
		n.diag[SouthEast] = p.card[Center]
		n.diag[NorthEast] = p.card[North]
	case SouthWest:
		n.diag[NorthWest] = p.card[West]
		n.diag[SouthWest] = p.diag[SouthWest]
		n.diag[SouthEast] = p.card[South]
		n.diag[NorthEast] = p.card[Center]
	case SouthEast:
		n.diag[NorthWest] = p.card[Center]
		n.diag[SouthWest] = p.card[South]
		n.diag[SouthEast] = p.diag[SouthEast]
		n.diag[NorthEast] = p.card[East]
	case NorthEast:
		n.diag[NorthWest] = p.card[North]
		n.diag[SouthWest] = p.card[Center]
		n.diag[SouthEast] = p.card[East]
		n.diag[NorthEast] = p.diag[NorthEast]
	}
	for d, v := range n.diag {
		if v == noVertex {
			panic(invariantf("child %v of quad %d missing corner %v", n.direction, n.parent, Diag(d)))
		}
	}
}

// linkNeighbors connects q to its siblings and to the matching children of
// its parent's neighbors.
func (b *Builder) linkNeighbors(q nodeID) {
	par := b.nodes[q].parent
	p := b.nodes[par]
	switch b.nodes[q].direction {
	case NorthWest:
		b.setNeighbor(q, North, b.childNeighbor(par, North, SouthWest))
		b.setNeighbor(q, West, b.childNeighbor(par, West, NorthEast))
		b.setNeighbor(q, South, p.children[SouthWest])
		b.setNeighbor(q, East, p.children[NorthEast])
	case SouthWest:
		b.setNeighbor(q, South, b.childNeighbor(par, South, NorthWest))
		b.setNeighbor(q, West, b.childNeighbor(par, West, SouthEast))
		b.setNeighbor(q, North, p.children[NorthWest])
		b.setNeighbor(q, East, p.children[SouthEast])
	case SouthEast:
		b.setNeighbor(q, South, b.childNeighbor(par, South, NorthEast))
		b.setNeighbor(q, East, b.childNeighbor(par, East, SouthWest))
		b.setNeighbor(q, North, p.children[NorthEast])
		b.setNeighbor(q, West, p.children[SouthWest])
	case NorthEast:
		b.setNeighbor(q, North, b.childNeighbor(par, North, SouthEast))
		b.setNeighbor(q, East, b.childNeighbor(par, East, NorthWest))
		b.setNeighbor(q, South, p.children[SouthEast])
		b.setNeighbor(q, West, p.children[NorthWest])
	}
}

// makeRootVerts sets the corners of the root quad of tile (i, j), reusing
// the corners of already built western and southern roots.
func (b *Builder) makeRootVerts(q nodeID, i, j int) {
	n := &b.nodes[q]
	if w := n.neighbor[West]; w != noNode {
		n.diag[SouthWest] = b.nodes[w].diag[SouthEast]
		n.diag[NorthWest] = b.nodes[w].diag[NorthEast]
	}
	if s := n.neighbor[South]; s != noNode {
		n.diag[SouthWest] = b.nodes[s].diag[NorthWest]
		n.diag[SouthEast] = b.nodes[s].diag[NorthEast]
	}

	gi, gj := i*b.cells, j*b.cells
	if n.diag[SouthWest] == noVertex {
		n.diag[SouthWest] = b.gridVertex(gi, gj)
	}
	if n.diag[NorthWest] == noVertex {
		n.diag[NorthWest] = b.gridVertex(gi, gj+b.cells)
	}
	if n.diag[SouthEast] == noVertex {
		n.diag[SouthEast] = b.gridVertex(gi+b.cells, gj)
	}
	if n.diag[NorthEast] == noVertex {
		n.diag[NorthEast] = b.gridVertex(gi+b.cells, gj+b.cells)
	}

	b.setBoundsFromDiags(q)
}

// setBoundsFromDiags resets q's bounds to its four corners.
func (b *Builder) setBoundsFromDiags(q nodeID) {
	n := &b.nodes[q]
	n.bounds = NewAABB(
		b.pos(n.diag[NorthEast]),
		b.pos(n.diag[NorthWest]),
		b.pos(n.diag[SouthWest]),
		b.pos(n.diag[SouthEast]),
	)
}
