package terrain

import (
	"fmt"
)

// validate walks every quad and checks the topology the mesh relies on to
// be crack free: symmetric same-level neighbors, shared edge and corner
// vertices, and consistent parent links.
func (b *Builder) validate() error {
	for id := range b.nodes {
		if err := b.validateQuad(nodeID(id)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariant, err)
		}
	}
	return nil
}

func (b *Builder) validateQuad(q nodeID) error {
	n := &b.nodes[q]
	for d, v := range n.diag {
		if v == noVertex {
			return fmt.Errorf("quad %d has no %v corner", q, Diag(d))
		}
	}
	if n.card[Center] == noVertex {
		for _, dir := range edges {
			if n.card[dir] != noVertex {
				return fmt.Errorf("quad %d has a %v vertex but no center", q, dir)
			}
		}
	}

	for _, dir := range edges {
		nb := n.neighbor[dir]
		if nb == noNode {
			continue
		}
		opp := opposite(dir)
		m := &b.nodes[nb]
		if m.neighbor[opp] != q {
			return fmt.Errorf("quad %d sees %d to the %v, but not the reverse", q, nb, dir)
		}
		if m.level != n.level {
			return fmt.Errorf("quad %d (level %d) and neighbor %d (level %d) differ in level", q, n.level, nb, m.level)
		}
		if n.card[dir] != m.card[opp] {
			return fmt.Errorf("quads %d and %d do not share their %v edge vertex", q, nb, dir)
		}
		if n.diag[cardToDiag(dir, true)] != m.diag[cardToDiag(opp, false)] ||
			n.diag[cardToDiag(dir, false)] != m.diag[cardToDiag(opp, true)] {
			return fmt.Errorf("quads %d and %d do not share their %v corners", q, nb, dir)
		}
	}

	if n.haveChildren {
		for d, c := range n.children {
			if c == noNode {
				return fmt.Errorf("quad %d is missing child %v", q, Diag(d))
			}
			k := &b.nodes[c]
			if k.parent != q || k.direction != Diag(d) || k.level != n.level+1 {
				return fmt.Errorf("child %v of quad %d is not linked back", Diag(d), q)
			}
		}
	}
	if n.parent != noNode && b.nodes[n.parent].children[n.direction] != q {
		return fmt.Errorf("quad %d is not its parent's %v child", q, n.direction)
	}
	return nil
}
