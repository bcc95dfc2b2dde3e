package export

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/terramesh/internal/terrain"
)

// BoxWireframeVertexCount is the number of endpoints in a box wireframe
// (12 edges x 2).
const BoxWireframeVertexCount = 24

// BoxWireframe returns line endpoints for the edges of box grown by padding
// on every side, two consecutive points per edge.
func BoxWireframe(box terrain.AABB, padding float32) []mgl32.Vec3 {
	lo := box.Min.Sub(mgl32.Vec3{padding, padding, padding})
	hi := box.Max.Add(mgl32.Vec3{padding, padding, padding})

	corner := func(x, y, z bool) mgl32.Vec3 {
		p := lo
		if x {
			p[0] = hi[0]
		}
		if y {
			p[1] = hi[1]
		}
		if z {
			p[2] = hi[2]
		}
		return p
	}

	out := make([]mgl32.Vec3, 0, BoxWireframeVertexCount)
	for _, z := range []bool{false, true} {
		// Bottom and top rings.
		out = append(out,
			corner(false, false, z), corner(true, false, z),
			corner(true, false, z), corner(true, true, z),
			corner(true, true, z), corner(false, true, z),
			corner(false, true, z), corner(false, false, z),
		)
	}
	// Verticals.
	for _, c := range [][2]bool{{false, false}, {true, false}, {true, true}, {false, true}} {
		out = append(out, corner(c[0], c[1], false), corner(c[0], c[1], true))
	}
	return out
}
