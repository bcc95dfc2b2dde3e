package terrain

import (
	"fmt"
	"time"

	"github.com/Faultbox/terramesh/internal/logger"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Options tunes a build.
type Options struct {
	// MaxQuads caps the number of quads in the tree.
	MaxQuads int
	// MaxVerts caps the number of vertices created during subdivision.
	MaxVerts int
	// MinCurvature is the curvature a quad must exceed to split.
	MinCurvature float32
	// CurvatureExponent shapes the base curvature before normalization.
	CurvatureExponent float32
	// Remap renumbers vertices in first-use order and drops unused ones.
	Remap bool
	// SkirtUVTile scales the horizontal skirt texture coordinate.
	SkirtUVTile float32
	// KeepCurvature keeps the curvature pyramid after a build for Kurvature.
	KeepCurvature bool
	// Validate checks tree invariants after subdivision.
	Validate bool
	// SkipVertex, when set, marks positions whose geometry may be dropped.
	SkipVertex func(p mgl32.Vec3) bool
}

// DefaultOptions returns the stock build settings.
func DefaultOptions() Options {
	return Options{
		MaxQuads:          20000,
		MaxVerts:          60000,
		MinCurvature:      0.1,
		CurvatureExponent: DefaultCurvatureExponent,
		Remap:             true,
		SkirtUVTile:       0.01,
	}
}

// Stats describes the last successful build.
type Stats struct {
	Quads          int
	Vertices       int
	Triangles      int
	SkirtVertices  int
	SkirtTriangles int
	Tiles          int
	CapReached     bool
	Elapsed        time.Duration
}

type buildRequest struct {
	hf   HeightField
	grid TileGrid
}

// Builder turns a height-field into a tiled, crack-free mesh. A Builder is
// not safe for concurrent use.
type Builder struct {
	opts Options

	enabled bool
	pending bool
	request *buildRequest // last Init call, rebuilt by Enable

	// Transient build state, released when a build ends.
	hf         HeightField
	grid       TileGrid
	sx, sy     int
	cells      int
	scale      mgl32.Vec3
	nodes      []quadNode
	verts      []Vertex
	roots      []nodeID // [j*grid.X+i], noNode for hidden or empty tiles
	gridVerts  map[[2]int]vertexID
	processed  int
	capReached bool

	curv     *CurvaturePyramid
	assembly *Assembly
	stats    Stats
}

// NewBuilder returns an enabled builder. Unset caps, exponent and skirt
// tiling fall back to their defaults.
func NewBuilder(opts Options) *Builder {
	def := DefaultOptions()
	if opts.MaxQuads <= 0 {
		opts.MaxQuads = def.MaxQuads
	}
	if opts.MaxVerts <= 0 {
		opts.MaxVerts = def.MaxVerts
	}
	if opts.CurvatureExponent <= 0 {
		opts.CurvatureExponent = def.CurvatureExponent
	}
	if opts.SkirtUVTile == 0 {
		opts.SkirtUVTile = def.SkirtUVTile
	}
	return &Builder{opts: opts, enabled: true}
}

// Init builds the mesh for hf split into grid, replacing any previous
// result. While the builder is disabled the request is stored and built on
// the next Enable.
func (b *Builder) Init(hf HeightField, grid TileGrid) (err error) {
	b.Dispose()
	b.request = &buildRequest{hf: hf, grid: grid}
	if !b.enabled {
		b.pending = true
		logger.Debug("Builder disabled, deferring build")
		return nil
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(invariantError)
			if !ok {
				panic(r)
			}
			b.done()
			b.Dispose()
			err = fmt.Errorf("%w: %s", ErrInvariant, ie.msg)
			logger.Error("Terrain build failed", zap.Error(err))
		}
	}()

	if err := b.begin(hf, grid); err != nil {
		return err
	}
	b.makeRoots()
	b.subdivide()

	if b.opts.Validate {
		if err := b.validate(); err != nil {
			b.done()
			return err
		}
	}

	asm, stats, err := b.bake()
	if err != nil {
		b.done()
		return err
	}
	b.done()

	stats.Elapsed = time.Since(start)
	b.assembly = asm
	b.stats = stats
	b.pending = false

	logger.Info("Terrain built",
		zap.Int("tiles", stats.Tiles),
		zap.Int("quads", stats.Quads),
		zap.Int("vertices", stats.Vertices),
		zap.Int("triangles", stats.Triangles),
		zap.Int("skirtVertices", stats.SkirtVertices),
		zap.Bool("capped", stats.CapReached),
		zap.Duration("elapsed", stats.Elapsed))
	return nil
}

// begin validates the input and sets up the transient build state.
func (b *Builder) begin(hf HeightField, grid TileGrid) error {
	curv, err := BuildCurvaturePyramid(hf, grid, b.opts.CurvatureExponent)
	if err != nil {
		return err
	}
	sx, sy, cells, _ := tileCells(hf, grid)

	b.hf = hf
	b.grid = grid
	b.sx, b.sy = sx, sy
	b.cells = cells
	b.scale = hf.Scale()
	b.curv = curv
	b.nodes = make([]quadNode, 0, min(b.opts.MaxQuads, 4096))
	b.verts = make([]Vertex, 0, min(b.opts.MaxVerts, 4096))
	b.roots = make([]nodeID, grid.X*grid.Y)
	b.gridVerts = make(map[[2]int]vertexID)
	b.processed = 0
	b.capReached = false

	logger.Debug("Curvature pyramid built",
		zap.Int("samplesX", sx),
		zap.Int("samplesY", sy),
		zap.Int("cellsPerTile", cells),
		zap.Int("levels", curv.Levels(0, 0)))
	return nil
}

// makeRoots creates one root quad per visible tile in row-major order,
// linking each to its western and southern roots.
func (b *Builder) makeRoots() {
	for j := 0; j < b.grid.Y; j++ {
		for i := 0; i < b.grid.X; i++ {
			idx := j*b.grid.X + i
			if b.grid.hidden(i, j) {
				b.roots[idx] = noNode
				logger.Debug("Tile hidden", zap.Int("i", i), zap.Int("j", j))
				continue
			}
			q := b.newQuad(DiagNone)
			b.roots[idx] = q
			if i > 0 {
				if w := b.roots[idx-1]; w != noNode {
					b.setNeighbor(q, West, w)
				}
			}
			if j > 0 {
				if s := b.roots[idx-b.grid.X]; s != noNode {
					b.setNeighbor(q, South, s)
				}
			}
			b.makeRootVerts(q, i, j)
		}
	}
}

// done releases the transient build state.
func (b *Builder) done() {
	b.hf = nil
	b.nodes = nil
	b.verts = nil
	b.roots = nil
	b.gridVerts = nil
	b.processed = 0
	if !b.opts.KeepCurvature {
		b.curv = nil
	}
}

// Dispose drops the last build result and its curvature pyramid.
func (b *Builder) Dispose() {
	b.assembly = nil
	b.stats = Stats{}
	b.curv = nil
}

// Enable turns building back on. If a build was requested or dropped while
// disabled, the last requested build runs now.
func (b *Builder) Enable() error {
	if b.enabled {
		return nil
	}
	b.enabled = true
	if b.pending && b.request != nil {
		return b.Init(b.request.hf, b.request.grid)
	}
	b.pending = false
	return nil
}

// Disable drops the current result and defers builds until Enable. Call it
// around bulk height edits and rebuild once with Enable.
func (b *Builder) Disable() {
	b.Dispose()
	b.enabled = false
	b.pending = true
}

// Enabled reports whether builds run immediately.
func (b *Builder) Enabled() bool {
	return b.enabled
}

// Pending reports whether a build is waiting for Enable.
func (b *Builder) Pending() bool {
	return b.pending
}

// Assembly returns the last build result, or nil.
func (b *Builder) Assembly() *Assembly {
	return b.assembly
}

// Stats returns statistics of the last build.
func (b *Builder) Stats() Stats {
	return b.stats
}

// Kurvature samples the curvature pyramid at world (x, y) for a quad at
// level. It reads 0 unless the pyramid is kept past the build.
func (b *Builder) Kurvature(level int, x, y float32) float32 {
	if b.curv == nil {
		return 0
	}
	return b.curv.Lookup(level, x, y)
}
