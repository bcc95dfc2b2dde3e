package heightfield

// TileMask records which tiles of a tile grid are hidden.
type TileMask struct {
	hidden map[[2]int]struct{}
}

// NewTileMask returns a mask with the given tiles hidden.
func NewTileMask(tiles ...[2]int) *TileMask {
	m := &TileMask{hidden: make(map[[2]int]struct{}, len(tiles))}
	for _, t := range tiles {
		m.Hide(t[0], t[1])
	}
	return m
}

// Hide marks tile (i, j) hidden.
func (m *TileMask) Hide(i, j int) {
	m.hidden[[2]int{i, j}] = struct{}{}
}

// Show clears the hidden mark on tile (i, j).
func (m *TileMask) Show(i, j int) {
	delete(m.hidden, [2]int{i, j})
}

// Hidden reports whether tile (i, j) is hidden. A nil mask hides nothing.
func (m *TileMask) Hidden(i, j int) bool {
	if m == nil {
		return false
	}
	_, ok := m.hidden[[2]int{i, j}]
	return ok
}

// Len returns the number of hidden tiles.
func (m *TileMask) Len() int {
	if m == nil {
		return 0
	}
	return len(m.hidden)
}
