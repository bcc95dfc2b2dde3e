package terrain

import (
	"fmt"

	"github.com/Faultbox/terramesh/internal/logger"
	"go.uber.org/zap"
)

// maxIndexedVertices is the most vertices 16-bit indices can address.
const maxIndexedVertices = 1 << 16

// bake turns the finished tree into render buffers. Tiles whose geometry
// was entirely skipped are dropped.
func (b *Builder) bake() (*Assembly, Stats, error) {
	tileIndices := b.collectTiles()

	skirtVerts, skirts := b.collectSkirts()
	if len(skirtVerts) > maxIndexedVertices {
		return nil, Stats{}, fmt.Errorf("%w: %d skirt vertices", ErrIndexOverflow, len(skirtVerts))
	}

	stats := Stats{
		Quads:      len(b.nodes),
		CapReached: b.capReached,
	}

	verts := b.verts
	if b.opts.Remap {
		verts = remapVertices(b.verts, tileIndices)
	}
	if len(verts) > maxIndexedVertices {
		return nil, Stats{}, fmt.Errorf("%w: %d vertices", ErrIndexOverflow, len(verts))
	}

	asm := &Assembly{
		TilesX:        b.grid.X,
		TilesY:        b.grid.Y,
		Vertices:      make([]DrawVertex, len(verts)),
		SkirtVertices: skirtVerts,
		SkirtDrop:     -b.scale.Z(),
		Tiles:         make([]*TileMesh, len(b.roots)),
	}
	for k, v := range verts {
		asm.Vertices[k] = DrawVertex{Position: v.Position, Normal: v.Normal}
	}

	for idx, indices := range tileIndices {
		if indices == nil {
			continue
		}
		asm.Tiles[idx] = &TileMesh{
			Indices:   narrow(indices),
			PrimCount: len(indices) / 3,
			Bounds:    b.nodes[b.roots[idx]].bounds,
			Skirts:    skirts[idx],
		}
		stats.Tiles++
		stats.Triangles += len(indices) / 3
		for _, s := range skirts[idx] {
			stats.SkirtTriangles += s.PrimCount
		}
	}
	stats.Vertices = len(asm.Vertices)
	stats.SkirtVertices = len(asm.SkirtVertices)
	return asm, stats, nil
}

// collectTiles gathers each root's triangles. Roots that emit nothing are
// cleared so no later pass sees them.
func (b *Builder) collectTiles() [][]uint32 {
	out := make([][]uint32, len(b.roots))
	for idx, root := range b.roots {
		if root == noNode {
			continue
		}
		indices := b.collectIndices(root, nil)
		if len(indices) == 0 {
			b.roots[idx] = noNode
			logger.Debug("Tile emitted no geometry",
				zap.Int("i", idx%b.grid.X),
				zap.Int("j", idx/b.grid.X))
			continue
		}
		out[idx] = indices
	}
	return out
}

// collectSkirts walks the outer edges of every live root. Each run of more
// than one pair becomes a skirt strip of its tile.
func (b *Builder) collectSkirts() ([]SkirtVertex, [][]SkirtDraw) {
	var verts []SkirtVertex
	draws := make([][]SkirtDraw, len(b.roots))
	for idx, root := range b.roots {
		if root == noNode {
			continue
		}
		for _, s := range skirtNormals {
			first := len(verts)
			verts = b.collectSkirt(root, s.norm, s.dir, verts)
			if len(verts)-first <= 2 {
				continue
			}
			indices := b.skirtIndices(verts, first)
			if len(indices) == 0 {
				continue
			}
			draws[idx] = append(draws[idx], SkirtDraw{
				Indices:   narrow(indices),
				PrimCount: len(indices) / 3,
			})
		}
	}
	return verts, draws
}

// remapVertices renumbers vertices in first-use order across all tiles,
// rewriting the indices in place, and returns the used vertices only.
func remapVertices(verts []Vertex, tiles [][]uint32) []Vertex {
	remap := make([]int32, len(verts)) // new index + 1, 0 while unseen
	out := make([]Vertex, 0, len(verts))
	for _, indices := range tiles {
		for k, v := range indices {
			if remap[v] == 0 {
				out = append(out, verts[v])
				remap[v] = int32(len(out))
			}
			indices[k] = uint32(remap[v] - 1)
		}
	}
	return out
}

// narrow converts indices to 16 bits. Callers check the vertex count first.
func narrow(indices []uint32) []uint16 {
	out := make([]uint16, len(indices))
	for k, v := range indices {
		out[k] = uint16(v)
	}
	return out
}
