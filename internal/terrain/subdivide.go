package terrain

import (
	"github.com/Faultbox/terramesh/internal/logger"
	"go.uber.org/zap"
)

// Per-split upper bounds on what makeChildren adds for one quad: four
// children, and a center, four edge midpoints and up to four neighbor
// centers.
const (
	quadsPerSplit = 4
	vertsPerSplit = 9
)

// subdivide drains the worklist. New children are appended to the arena
// behind the cursor, so quads are visited breadth first.
func (b *Builder) subdivide() {
	for b.processed < len(b.nodes) {
		q := nodeID(b.processed)
		b.processed++
		if b.shouldDivide(q) {
			b.makeChildren(q)
		}
	}
}

// shouldDivide reports whether q is curved enough to split and the split,
// including any neighbor splits it forces, fits the quad and vertex caps.
func (b *Builder) shouldDivide(q nodeID) bool {
	n := &b.nodes[q]
	if n.haveChildren {
		return false
	}

	sw := b.pos(n.diag[SouthWest])
	ne := b.pos(n.diag[NorthEast])
	k := b.curv.Lookup(n.level, (sw.X()+ne.X())*0.5, (sw.Y()+ne.Y())*0.5)
	if k <= b.opts.MinCurvature {
		return false
	}

	splits := b.splitCost(q)
	if len(b.nodes)+quadsPerSplit*splits > b.opts.MaxQuads ||
		len(b.verts)+vertsPerSplit*splits > b.opts.MaxVerts {
		if !b.capReached {
			b.capReached = true
			logger.Info("Subdivision capped",
				zap.Int("quads", len(b.nodes)),
				zap.Int("verts", len(b.verts)),
				zap.Int("level", n.level))
		}
		return false
	}
	return true
}

// splitCost counts the makeChildren calls splitting q would make: q itself
// plus every coarser neighbor that must split first so q's children have
// same-level neighbors.
func (b *Builder) splitCost(q nodeID) int {
	n := &b.nodes[q]
	if n.haveChildren {
		return 0
	}
	cost := 1
	if n.parent == noNode {
		return cost
	}
	for _, dir := range edges {
		if n.neighbor[dir] != noNode {
			continue
		}
		if np := b.nodes[n.parent].neighbor[dir]; np != noNode {
			cost += b.splitCost(np)
		}
	}
	return cost
}

// makeChildren splits q into four children. Missing same-level neighbors
// are created first by splitting the parent's neighbors, so every child
// edge is shared with a same-level quad or lies on an outer border.
// Calling it on a quad that already has children does nothing.
func (b *Builder) makeChildren(q nodeID) {
	if b.nodes[q].haveChildren {
		return
	}
	if b.nodes[q].card[Center] == noVertex {
		b.makeCardinal(q, Center)
	}

	for _, dir := range edges {
		if par := b.nodes[q].parent; b.nodes[q].neighbor[dir] == noNode && par != noNode {
			if np := b.nodes[par].neighbor[dir]; np != noNode {
				b.makeChildren(np)
			}
		}
		b.getOrCreateEdgeVertex(q, dir)
	}

	var kids [4]nodeID
	for _, d := range childOrder {
		kids[d] = b.newQuad(d)
		b.nodes[q].children[d] = kids[d]
	}
	for _, d := range childOrder {
		b.setParent(kids[d], q)
	}
	b.nodes[q].haveChildren = true
}

// getOrCreateEdgeVertex returns q's midpoint vertex on edge dir. An existing
// vertex on either side of the edge is reused; otherwise one is made and
// installed on both q and the neighbor.
func (b *Builder) getOrCreateEdgeVertex(q nodeID, dir Card) (v vertexID, created bool) {
	opp := opposite(dir)
	nb := b.nodes[q].neighbor[dir]

	v = b.nodes[q].card[dir]
	if v != noVertex {
		if nb != noNode {
			switch nv := b.nodes[nb].card[opp]; nv {
			case noVertex:
				b.setCard(nb, opp, v)
			case v:
			default:
				panic(invariantf("quads %d and %d disagree on their %v/%v vertex", q, nb, dir, opp))
			}
		}
		return v, false
	}

	if nb != noNode {
		if nv := b.nodes[nb].card[opp]; nv != noVertex {
			b.setCard(q, dir, nv)
			return nv, false
		}
		if b.nodes[nb].card[Center] == noVertex {
			b.makeCardinal(nb, Center)
		}
	}

	v = b.makeCardinal(q, dir)
	if nb != noNode {
		b.setCard(nb, opp, v)
	}
	return v, true
}
