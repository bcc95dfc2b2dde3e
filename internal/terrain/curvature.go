package terrain

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultCurvatureExponent flattens the curvature response so moderate
// features still register against the sharpest one.
const DefaultCurvatureExponent = 0.65

// curvatureMap is one square level of a tile's pyramid.
type curvatureMap struct {
	size   int
	values []float32
}

func newCurvatureMap(size int) curvatureMap {
	return curvatureMap{size: size, values: make([]float32, size*size)}
}

func (m curvatureMap) at(i, j int) float32 {
	return m.values[j*m.size+i]
}

func (m curvatureMap) set(i, j int, v float32) {
	m.values[j*m.size+i] = v
}

// CurvaturePyramid holds, per tile, curvature maps at halving resolutions.
// Coarser levels take the max of the finer 3x3 neighborhood so small sharp
// features survive down-sampling.
type CurvaturePyramid struct {
	tilesX, tilesY int
	cells          int // height-field cells per tile side
	scale          mgl32.Vec3
	tiles          [][]curvatureMap // [j*tilesX+i], finest level first
}

// BuildCurvaturePyramid computes the normalized base curvature of hf and a
// max-reduced pyramid for every tile of grid, hidden tiles included.
func BuildCurvaturePyramid(hf HeightField, grid TileGrid, exponent float32) (*CurvaturePyramid, error) {
	sx, sy, cells, err := tileCells(hf, grid)
	if err != nil {
		return nil, err
	}

	base := curvatureBase(hf, sx, sy, exponent)

	p := &CurvaturePyramid{
		tilesX: grid.X,
		tilesY: grid.Y,
		cells:  cells,
		scale:  hf.Scale(),
		tiles:  make([][]curvatureMap, grid.X*grid.Y),
	}
	for j := 0; j < grid.Y; j++ {
		for i := 0; i < grid.X; i++ {
			p.tiles[j*grid.X+i] = buildTileLevels(base, sx, i*cells, j*cells, cells+1)
		}
	}
	return p, nil
}

// tileCells validates that grid evenly divides hf into square tiles.
func tileCells(hf HeightField, grid TileGrid) (sx, sy, cells int, err error) {
	if hf == nil {
		return 0, 0, 0, ErrNilHeightField
	}
	sx, sy = hf.Size()
	if grid.X < 1 || grid.Y < 1 {
		return 0, 0, 0, fmt.Errorf("%w: %dx%d tiles", ErrInvalidTileGrid, grid.X, grid.Y)
	}
	if sx < 2 || sy < 2 {
		return 0, 0, 0, fmt.Errorf("%w: height-field %dx%d too small", ErrInvalidTileGrid, sx, sy)
	}
	if (sx-1)%grid.X != 0 || (sy-1)%grid.Y != 0 {
		return 0, 0, 0, fmt.Errorf("%w: %dx%d samples not divisible into %dx%d tiles",
			ErrInvalidTileGrid, sx, sy, grid.X, grid.Y)
	}
	cx, cy := (sx-1)/grid.X, (sy-1)/grid.Y
	if cx != cy {
		return 0, 0, 0, fmt.Errorf("%w: non-square tiles %dx%d", ErrInvalidTileGrid, cx, cy)
	}
	if cx&(cx-1) != 0 {
		return 0, 0, 0, fmt.Errorf("%w: %d cells per tile is not a power of two", ErrInvalidTileGrid, cx)
	}
	return sx, sy, cx, nil
}

// curvatureBase returns max(|d2h/dx2|, |d2h/dy2|)^exponent per sample,
// normalized so the sharpest sample is 1.
func curvatureBase(hf HeightField, sx, sy int, exponent float32) []float32 {
	base := make([]float32, sx*sy)
	var hiK float32
	for j := 0; j < sy; j++ {
		for i := 0; i < sx; i++ {
			h0 := sample(hf, i, j)
			kx := math32.Abs(sample(hf, i-1, j) - 2*h0 + sample(hf, i+1, j))
			ky := math32.Abs(sample(hf, i, j-1) - 2*h0 + sample(hf, i, j+1))

			k := math32.Pow(math32.Max(kx, ky), exponent)
			base[j*sx+i] = k
			hiK = math32.Max(hiK, k)
		}
	}
	if hiK > 0 {
		for n := range base {
			base[n] /= hiK
		}
	}
	return base
}

// buildTileLevels copies the tile's window of base and max-reduces it down
// to a single cell. Sizes run 2^k+1 down to 1.
func buildTileLevels(base []float32, stride, cornerX, cornerY, size int) []curvatureMap {
	finest := newCurvatureMap(size)
	for j := 0; j < size; j++ {
		for i := 0; i < size; i++ {
			finest.set(i, j, base[(cornerY+j)*stride+cornerX+i])
		}
	}
	levels := []curvatureMap{finest}

	prevSize := size
	size >>= 1
	size |= 1
	for size > 0 {
		prev := levels[len(levels)-1]
		next := newCurvatureMap(size)
		for j := 0; j < size; j++ {
			for i := 0; i < size; i++ {
				var k float32
				for jj := 2*j - 1; jj <= 2*j+1; jj++ {
					for ii := 2*i - 1; ii <= 2*i+1; ii++ {
						if ii >= 0 && ii < prevSize && jj >= 0 && jj < prevSize {
							k = math32.Max(k, prev.at(ii, jj))
						}
					}
				}
				next.set(i, j, k)
			}
		}
		levels = append(levels, next)

		prevSize = size
		size >>= 1
		if size > 1 {
			size++
		}
	}
	return levels
}

// Levels returns the depth of tile (i, j)'s pyramid.
func (p *CurvaturePyramid) Levels(i, j int) int {
	return len(p.tiles[j*p.tilesX+i])
}

// LevelSize returns the side length of the given storage level of tile
// (i, j), where storage level 0 is the finest.
func (p *CurvaturePyramid) LevelSize(i, j, level int) int {
	return p.tiles[j*p.tilesX+i][level].size
}

// At returns the stored curvature of cell (ci, cj) at storage level of tile
// (i, j).
func (p *CurvaturePyramid) At(i, j, level, ci, cj int) float32 {
	return p.tiles[j*p.tilesX+i][level].at(ci, cj)
}

// Lookup bilinearly samples the curvature at world (x, y) for a quad at
// quadLevel. Quad level 0 reads the tile's coarsest map and each deeper
// level one finer map; levels past the pyramid depth read the finest map.
// Positions outside the tile clamp to its border.
func (p *CurvaturePyramid) Lookup(quadLevel int, x, y float32) float32 {
	tileScaleX := float32(p.tilesX) / p.scale.X()
	tileScaleY := float32(p.tilesY) / p.scale.Y()

	iTile := clampInt(int(math32.Floor(x*tileScaleX)), 0, p.tilesX-1)
	jTile := clampInt(int(math32.Floor(y*tileScaleY)), 0, p.tilesY-1)

	levels := p.tiles[jTile*p.tilesX+iTile]
	level := len(levels) - quadLevel - 1
	if level < 0 {
		level = 0
	}
	m := levels[level]

	sz := p.cells >> level
	if sz <= 1 {
		return m.at(0, 0)
	}

	cornerX := float32(iTile) / tileScaleX
	cornerY := float32(jTile) / tileScaleY
	fx := (x - cornerX) * tileScaleX * float32(sz)
	fy := (y - cornerY) * tileScaleY * float32(sz)

	ix, tx := splitCell(fx, sz)
	iy, ty := splitCell(fy, sz)

	return m.at(ix, iy)*(1-tx)*(1-ty) +
		m.at(ix+1, iy)*tx*(1-ty) +
		m.at(ix, iy+1)*(1-tx)*ty +
		m.at(ix+1, iy+1)*tx*ty
}

// splitCell splits a continuous coordinate over cells [0, cells) into a
// cell index and fraction, clamping to the border cells.
func splitCell(f float32, cells int) (int, float32) {
	i := int(math32.Floor(f))
	t := f - float32(i)
	if i < 0 {
		return 0, 0
	}
	if i >= cells {
		return cells - 1, 1
	}
	return i, t
}

// sample reads a height with indices clamped to the field.
func sample(hf HeightField, i, j int) float32 {
	sx, sy := hf.Size()
	return hf.Height(clampInt(i, 0, sx-1), clampInt(j, 0, sy-1))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
