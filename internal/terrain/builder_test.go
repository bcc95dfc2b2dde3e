package terrain

import (
	"errors"
	"testing"

	"github.com/Faultbox/terramesh/pkg/heightfield"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func build(t *testing.T, hf HeightField, grid TileGrid, opts Options) *Builder {
	t.Helper()
	b := NewBuilder(opts)
	if err := b.Init(hf, grid); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if b.Assembly() == nil {
		t.Fatal("expected an assembly after Init")
	}
	return b
}

// checkMesh verifies index ranges and that no directed edge is used twice,
// and returns the number of edges used in one direction only.
func checkMesh(t *testing.T, asm *Assembly) int {
	t.Helper()
	directed := make(map[[2]uint16]int)
	for idx, tile := range asm.Tiles {
		if tile == nil {
			continue
		}
		if len(tile.Indices)%3 != 0 || tile.PrimCount != len(tile.Indices)/3 {
			t.Fatalf("tile %d: %d indices for %d triangles", idx, len(tile.Indices), tile.PrimCount)
		}
		for k := 0; k < len(tile.Indices); k += 3 {
			tri := tile.Indices[k : k+3]
			for e := 0; e < 3; e++ {
				a, b := tri[e], tri[(e+1)%3]
				if int(a) >= len(asm.Vertices) {
					t.Fatalf("tile %d: index %d out of %d vertices", idx, a, len(asm.Vertices))
				}
				if a == b {
					t.Fatalf("tile %d: degenerate triangle %v", idx, tri)
				}
				directed[[2]uint16{a, b}]++
			}
		}
	}

	open := 0
	for e, n := range directed {
		if n > 1 {
			t.Fatalf("edge %v used %d times in the same direction", e, n)
		}
		if directed[[2]uint16{e[1], e[0]}] == 0 {
			open++
		}
	}
	return open
}

func TestBuildFlat(t *testing.T) {
	b := build(t, flatField(t, 9), TileGrid{X: 2, Y: 2}, DefaultOptions())
	asm := b.Assembly()

	for j := 0; j < 2; j++ {
		for i := 0; i < 2; i++ {
			if got := asm.PrimCount(i, j); got != 2 {
				t.Errorf("tile (%d,%d) has %d triangles, want 2", i, j, got)
			}
		}
	}
	if got := len(asm.Vertices); got != 9 {
		t.Errorf("expected 9 shared vertices, got %d", got)
	}
	for _, v := range asm.Vertices {
		if v.Normal != (mgl32.Vec3{0, 0, 1}) {
			t.Errorf("expected +Z normal, got %v", v.Normal)
		}
	}

	st := b.Stats()
	if st.Quads != 4 || st.Triangles != 8 || st.Tiles != 4 {
		t.Errorf("unexpected stats %+v", st)
	}
	if st.SkirtTriangles != 16 || st.SkirtVertices != 32 {
		t.Errorf("expected 16 skirt triangles over 32 vertices, got %d over %d",
			st.SkirtTriangles, st.SkirtVertices)
	}
	if open := checkMesh(t, asm); open != 8 {
		t.Errorf("expected 8 border edges, got %d", open)
	}
}

func TestBuildSpikeSubdivides(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxQuads = 200
	opts.MaxVerts = 2000
	opts.Validate = true

	b := build(t, spikeField(t), TileGrid{X: 1, Y: 1}, opts)
	st := b.Stats()
	if st.Triangles <= 2 {
		t.Errorf("expected the spike to subdivide, got %d triangles", st.Triangles)
	}
	if st.Quads > opts.MaxQuads {
		t.Errorf("quads %d exceed cap %d", st.Quads, opts.MaxQuads)
	}
	if !st.CapReached {
		t.Error("expected the quad cap to stop subdivision")
	}

	found := false
	for _, v := range b.Assembly().Vertices {
		if v.Position.X() == 1 && v.Position.Y() == 1 {
			found = true
			if v.Position.Z() != 1 {
				t.Errorf("spike vertex z = %v, want the exact sample 1", v.Position.Z())
			}
		}
	}
	if !found {
		t.Error("expected a vertex on the spike sample")
	}
	checkMesh(t, b.Assembly())
}

func TestBuildNoiseCrackFree(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxQuads = 3000
	opts.MaxVerts = 10000
	opts.Validate = true

	b := build(t, noiseField(t, 33), TileGrid{X: 2, Y: 2}, opts)
	asm := b.Assembly()
	st := b.Stats()
	if st.Triangles <= 8 {
		t.Fatalf("expected noise terrain to subdivide, got %d triangles", st.Triangles)
	}

	// Every open edge of the surface must be covered by exactly one skirt
	// segment; a crack would leave extra open edges.
	open := checkMesh(t, asm)
	if want := st.SkirtTriangles / 2; open != want {
		t.Errorf("surface has %d open edges, skirts cover %d", open, want)
	}
}

func TestBuildRespectsVertexCap(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxVerts = 60
	b := build(t, noiseField(t, 33), TileGrid{X: 2, Y: 2}, opts)

	st := b.Stats()
	if st.Vertices > opts.MaxVerts {
		t.Errorf("vertices %d exceed cap %d", st.Vertices, opts.MaxVerts)
	}
	if !st.CapReached {
		t.Error("expected the vertex cap to be reached")
	}
}

func TestBuildDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxQuads = 1000
	hf := noiseField(t, 33)

	a := build(t, hf, TileGrid{X: 2, Y: 2}, opts).Assembly()
	b := build(t, hf, TileGrid{X: 2, Y: 2}, opts).Assembly()
	if len(a.Vertices) != len(b.Vertices) {
		t.Fatalf("vertex counts differ: %d vs %d", len(a.Vertices), len(b.Vertices))
	}
	for k := range a.Vertices {
		if a.Vertices[k] != b.Vertices[k] {
			t.Fatalf("vertex %d differs: %v vs %v", k, a.Vertices[k], b.Vertices[k])
		}
	}
	for k := range a.Tiles {
		ai, bi := a.Tiles[k].Indices, b.Tiles[k].Indices
		if len(ai) != len(bi) {
			t.Fatalf("tile %d index counts differ", k)
		}
		for n := range ai {
			if ai[n] != bi[n] {
				t.Fatalf("tile %d index %d differs", k, n)
			}
		}
	}
}

func TestBuildRemap(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxQuads = 1000
	hf := noiseField(t, 33)
	grid := TileGrid{X: 2, Y: 2, Hidden: heightfield.NewTileMask([2]int{1, 0}).Hidden}

	opts.Remap = false
	plain := build(t, hf, grid, opts)
	opts.Remap = true
	remapped := build(t, hf, grid, opts)

	if plain.Stats().Triangles != remapped.Stats().Triangles {
		t.Errorf("remap changed triangle count: %d vs %d",
			plain.Stats().Triangles, remapped.Stats().Triangles)
	}
	if len(remapped.Assembly().Vertices) > len(plain.Assembly().Vertices) {
		t.Error("remap should never add vertices")
	}

	// First use order: indices only ever step one past the highest seen.
	next := uint16(0)
	for _, tile := range remapped.Assembly().Tiles {
		if tile == nil {
			continue
		}
		for _, v := range tile.Indices {
			if v > next {
				t.Fatalf("index %d appears before %d", v, next)
			}
			if v == next {
				next++
			}
		}
	}
	if int(next) != len(remapped.Assembly().Vertices) {
		t.Errorf("%d vertices referenced, %d kept", next, len(remapped.Assembly().Vertices))
	}
}

func TestRemapVertices(t *testing.T) {
	verts := make([]Vertex, 8)
	for k := range verts {
		verts[k].Position = mgl32.Vec3{float32(k), 0, 0}
	}
	tiles := [][]uint32{{5, 2, 5}, nil, {7, 2}}

	out := remapVertices(verts, tiles)
	if len(out) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(out))
	}
	for k, want := range []float32{5, 2, 7} {
		if out[k].Position.X() != want {
			t.Errorf("vertex %d = %v, want source %v", k, out[k].Position.X(), want)
		}
	}
	want := [][]uint32{{0, 1, 0}, nil, {2, 1}}
	for n := range tiles {
		for k := range tiles[n] {
			if tiles[n][k] != want[n][k] {
				t.Errorf("tile %d index %d = %d, want %d", n, k, tiles[n][k], want[n][k])
			}
		}
	}
}

func TestBuildHiddenTiles(t *testing.T) {
	tests := []struct {
		name       string
		hidden     [][2]int
		triangles  int
		vertices   int
		skirtTris  int
		nilTileIdx []int
	}{
		{"one corner hidden", [][2]int{{1, 1}}, 6, 8, 16, []int{3}},
		{"diagonal pair", [][2]int{{1, 0}, {0, 1}}, 4, 7, 16, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := TileGrid{X: 2, Y: 2, Hidden: heightfield.NewTileMask(tt.hidden...).Hidden}
			b := build(t, flatField(t, 9), grid, DefaultOptions())
			asm := b.Assembly()

			if got := b.Stats().Triangles; got != tt.triangles {
				t.Errorf("triangles = %d, want %d", got, tt.triangles)
			}
			if got := len(asm.Vertices); got != tt.vertices {
				t.Errorf("vertices = %d, want %d", got, tt.vertices)
			}
			if got := b.Stats().SkirtTriangles; got != tt.skirtTris {
				t.Errorf("skirt triangles = %d, want %d", got, tt.skirtTris)
			}
			for _, idx := range tt.nilTileIdx {
				if asm.Tiles[idx] != nil {
					t.Errorf("expected hidden tile %d to be nil", idx)
				}
			}
			checkMesh(t, asm)
		})
	}
}

func TestBuildSkipVertex(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipVertex = func(p mgl32.Vec3) bool { return p.X() <= 4 }

	b := build(t, flatField(t, 9), TileGrid{X: 2, Y: 2}, opts)
	asm := b.Assembly()
	if asm.Tile(0, 0) != nil || asm.Tile(0, 1) != nil {
		t.Error("expected fully skipped western tiles to be dropped")
	}
	if asm.Tile(1, 0) == nil || asm.Tile(1, 1) == nil {
		t.Error("expected eastern tiles to survive")
	}
	if got := b.Stats().Triangles; got != 4 {
		t.Errorf("triangles = %d, want 4", got)
	}
}

func TestBuildSkirts(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxQuads = 500
	hf := noiseField(t, 33)
	b := build(t, hf, TileGrid{X: 2, Y: 2}, opts)
	asm := b.Assembly()
	center := mgl32.Vec3{hf.Scale().X() / 2, hf.Scale().Y() / 2, 0}

	if len(asm.SkirtVertices)%2 != 0 {
		t.Fatalf("expected skirt vertices in pairs, got %d", len(asm.SkirtVertices))
	}
	for k := 0; k < len(asm.SkirtVertices); k += 2 {
		top, bottom := asm.SkirtVertices[k], asm.SkirtVertices[k+1]
		if top.Position.X() != bottom.Position.X() || top.Position.Y() != bottom.Position.Y() {
			t.Fatalf("pair %d not vertical: %v / %v", k/2, top.Position, bottom.Position)
		}
		if bottom.Position.Z() != asm.SkirtDrop {
			t.Fatalf("pair %d bottom at %v, want %v", k/2, bottom.Position.Z(), asm.SkirtDrop)
		}
		if top.UV.Y() != 0 || top.UV.X() != bottom.UV.X() {
			t.Fatalf("pair %d has bad uv %v / %v", k/2, top.UV, bottom.UV)
		}
		if top.Normal.Z() != 0 || top.Normal.Len() != 1 {
			t.Fatalf("pair %d normal %v is not horizontal unit", k/2, top.Normal)
		}
		out := top.Position.Sub(center)
		out[2] = 0
		if top.Normal.Dot(out) <= 0 {
			t.Fatalf("pair %d normal %v points into the field at %v", k/2, top.Normal, top.Position)
		}
	}

	for idx, tile := range asm.Tiles {
		if tile == nil {
			continue
		}
		if len(tile.Skirts) != 2 {
			t.Errorf("corner tile %d has %d skirt strips, want 2", idx, len(tile.Skirts))
		}
		for _, s := range tile.Skirts {
			for _, v := range s.Indices {
				if int(v) >= len(asm.SkirtVertices) {
					t.Fatalf("skirt index %d out of %d", v, len(asm.SkirtVertices))
				}
			}
		}
	}
}

func TestBuildBounds(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxQuads = 500
	b := build(t, noiseField(t, 33), TileGrid{X: 2, Y: 2}, opts)
	asm := b.Assembly()

	for idx, tile := range asm.Tiles {
		for _, v := range tile.Indices {
			p := asm.Vertices[v].Position
			if p.Z() < tile.Bounds.Min.Z() || p.Z() > tile.Bounds.Max.Z() {
				t.Fatalf("tile %d vertex z %v outside bounds %v", idx, p.Z(), tile.Bounds)
			}
		}
	}
}

func TestMakeVertexSnapsToGrid(t *testing.T) {
	hf := flatField(t, 5)
	hf.SetHeight(1, 0, 0.7)

	b := NewBuilder(DefaultOptions())
	if err := b.begin(hf, TileGrid{X: 1, Y: 1}); err != nil {
		t.Fatal(err)
	}
	v0, v1 := b.gridVertex(0, 0), b.gridVertex(2, 0)
	mid := b.makeVertex(v0, v1)
	if mid != b.gridVertex(1, 0) {
		t.Fatalf("expected midpoint to reuse the grid vertex")
	}
	if got := b.pos(mid); got != (mgl32.Vec3{1, 0, 0.7}) {
		t.Errorf("midpoint = %v, want exact sample (1,0,0.7)", got)
	}
}

func TestMakeVertexStaysOnPlane(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	if err := b.begin(flatField(t, 5), TileGrid{X: 1, Y: 1}); err != nil {
		t.Fatal(err)
	}

	// z = x/2 with its true normal; the bent midpoint must stay on it.
	n := normalize(mgl32.Vec3{-0.5, 0, 1})
	v0 := b.newVertex(mgl32.Vec3{0.25, 0.3, 0.125}, n)
	v1 := b.newVertex(mgl32.Vec3{0.5, 0.3, 0.25}, n)

	p := b.pos(b.makeVertex(v0, v1))
	want := mgl32.Vec3{0.375, 0.3, 0.1875}
	if !p.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("midpoint = %v, want %v", p, want)
	}
}

func TestMakeVertexBendsTowardsNormals(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	if err := b.begin(flatField(t, 5), TileGrid{X: 1, Y: 1}); err != nil {
		t.Fatal(err)
	}

	// A ridge: both endpoints at z=0 with normals tilted away from each
	// other, so the surface bulges up between them.
	v0 := b.newVertex(mgl32.Vec3{0.25, 0.3, 0}, normalize(mgl32.Vec3{-1, 0, 1}))
	v1 := b.newVertex(mgl32.Vec3{0.75, 0.3, 0}, normalize(mgl32.Vec3{1, 0, 1}))

	p := b.pos(b.makeVertex(v0, v1))
	if p.Z() <= 0 {
		t.Errorf("expected midpoint above the chord, got %v", p)
	}
	if math32.Abs(p.X()-0.5) > 1e-6 {
		t.Errorf("expected symmetric midpoint at x=0.5, got %v", p.X())
	}
}

func TestMakeCenterUsesCornerAverage(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	if err := b.begin(flatField(t, 5), TileGrid{X: 1, Y: 1}); err != nil {
		t.Fatal(err)
	}

	// Flat corners with normals tilted outwards: projection alone would
	// lift the center, the full blend keeps it on the corner average.
	q := b.newQuad(DiagNone)
	corners := []struct {
		d    Diag
		p, n mgl32.Vec3
	}{
		{NorthEast, mgl32.Vec3{0.75, 0.75, 0}, mgl32.Vec3{1, 1, 1}},
		{NorthWest, mgl32.Vec3{0.25, 0.75, 0}, mgl32.Vec3{-1, 1, 1}},
		{SouthWest, mgl32.Vec3{0.25, 0.25, 0}, mgl32.Vec3{-1, -1, 1}},
		{SouthEast, mgl32.Vec3{0.75, 0.25, 0}, mgl32.Vec3{1, -1, 1}},
	}
	for _, c := range corners {
		b.nodes[q].diag[c.d] = b.newVertex(c.p, normalize(c.n))
	}

	v := b.makeCenter(q)
	if got, want := b.pos(v), (mgl32.Vec3{0.5, 0.5, 0}); !got.ApproxEqualThreshold(want, 1e-6) {
		t.Errorf("center = %v, want %v", got, want)
	}
	if n := b.verts[v].Normal; !n.ApproxEqualThreshold(mgl32.Vec3{0, 0, 1}, 1e-6) {
		t.Errorf("center normal = %v, want +Z", n)
	}
}

func TestLookUpVertexOutsideFieldPanics(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	if err := b.begin(flatField(t, 5), TileGrid{X: 1, Y: 1}); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if _, ok := recover().(invariantError); !ok {
			t.Error("expected an invariant panic")
		}
	}()
	b.lookUpVertex(mgl32.Vec3{9, 0, 0})
}

func TestValidateDetectsBrokenNeighbors(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxQuads = 300
	b := NewBuilder(opts)
	if err := b.begin(noiseField(t, 33), TileGrid{X: 2, Y: 2}); err != nil {
		t.Fatal(err)
	}
	b.makeRoots()
	b.subdivide()
	if err := b.validate(); err != nil {
		t.Fatalf("expected a valid tree, got %v", err)
	}

	b.nodes[1].neighbor[West] = noNode
	if err := b.validate(); !errors.Is(err, ErrInvariant) {
		t.Errorf("expected ErrInvariant, got %v", err)
	}
}

func TestInitRecoversInvariantPanics(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipVertex = func(mgl32.Vec3) bool { panic(invariantf("broken")) }

	b := NewBuilder(opts)
	err := b.Init(flatField(t, 9), TileGrid{X: 2, Y: 2})
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
	if b.Assembly() != nil {
		t.Error("expected no assembly after a failed build")
	}
}

func TestInitPropagatesOtherPanics(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipVertex = func(mgl32.Vec3) bool { panic("caller bug") }

	defer func() {
		if r := recover(); r != "caller bug" {
			t.Errorf("expected caller panic to propagate, got %v", r)
		}
	}()
	b := NewBuilder(opts)
	_ = b.Init(flatField(t, 9), TileGrid{X: 2, Y: 2})
	t.Error("expected Init to panic")
}

func TestInitErrors(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	if err := b.Init(nil, TileGrid{X: 1, Y: 1}); !errors.Is(err, ErrNilHeightField) {
		t.Errorf("expected ErrNilHeightField, got %v", err)
	}
	if err := b.Init(flatField(t, 9), TileGrid{X: 3, Y: 3}); !errors.Is(err, ErrInvalidTileGrid) {
		t.Errorf("expected ErrInvalidTileGrid, got %v", err)
	}
	if b.Assembly() != nil {
		t.Error("expected no assembly after failed Init")
	}
}

func TestBakeIndexOverflow(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	b.opts.Remap = false
	b.grid = TileGrid{X: 1, Y: 1}
	b.roots = []nodeID{noNode}
	b.verts = make([]Vertex, maxIndexedVertices+1)

	if _, _, err := b.bake(); !errors.Is(err, ErrIndexOverflow) {
		t.Errorf("expected ErrIndexOverflow, got %v", err)
	}
}

func TestEnableDisable(t *testing.T) {
	hf := flatField(t, 9)
	grid := TileGrid{X: 2, Y: 2}
	b := NewBuilder(DefaultOptions())

	b.Disable()
	if b.Enabled() || !b.Pending() {
		t.Fatal("expected disabled and pending")
	}
	if err := b.Init(hf, grid); err != nil {
		t.Fatalf("Init while disabled failed: %v", err)
	}
	if b.Assembly() != nil {
		t.Error("expected no build while disabled")
	}

	if err := b.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if b.Assembly() == nil || b.Pending() {
		t.Fatal("expected the deferred build to run on Enable")
	}

	b.Disable()
	if b.Assembly() != nil {
		t.Error("expected Disable to drop the assembly")
	}
	if err := b.Enable(); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if got := b.Stats().Triangles; got != 8 {
		t.Errorf("rebuild produced %d triangles, want 8", got)
	}
}

func TestKurvature(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxQuads = 50

	b := build(t, spikeField(t), TileGrid{X: 1, Y: 1}, opts)
	if got := b.Kurvature(0, 1, 1); got != 0 {
		t.Errorf("expected 0 once the pyramid is released, got %v", got)
	}

	opts.KeepCurvature = true
	b = build(t, spikeField(t), TileGrid{X: 1, Y: 1}, opts)
	if got := b.Kurvature(0, 1, 1); got != 1 {
		t.Errorf("Kurvature(0) = %v, want 1", got)
	}
}
