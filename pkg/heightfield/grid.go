// Package heightfield provides regular height grids, their binary file format
// and procedural generation for the terrain mesher.
package heightfield

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Grid is a regular height-field of Width x Height samples spanning Scale
// world units. Sample (i, j) sits at world position
// (i*Scale.X/(Width-1), j*Scale.Y/(Height-1)). Heights are in world units,
// expected to lie in [0, Scale.Z].
type Grid struct {
	width   int
	height  int
	scale   mgl32.Vec3
	heights []float32
}

// New creates a flat grid of the given sample dimensions and world scale.
func New(width, height int, scale mgl32.Vec3) (*Grid, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if scale.X() <= 0 || scale.Y() <= 0 || scale.Z() <= 0 {
		return nil, fmt.Errorf("%w: scale %v", ErrInvalidDimensions, scale)
	}
	return &Grid{
		width:   width,
		height:  height,
		scale:   scale,
		heights: make([]float32, width*height),
	}, nil
}

// FromHeights creates a grid from row-major heights (index j*width+i).
func FromHeights(width, height int, scale mgl32.Vec3, heights []float32) (*Grid, error) {
	g, err := New(width, height, scale)
	if err != nil {
		return nil, err
	}
	if len(heights) != width*height {
		return nil, fmt.Errorf("%w: got %d heights for %dx%d", ErrInvalidDimensions, len(heights), width, height)
	}
	copy(g.heights, heights)
	return g, nil
}

// Size returns the number of samples along X and Y.
func (g *Grid) Size() (int, int) {
	return g.width, g.height
}

// Scale returns the world extents of the grid.
func (g *Grid) Scale() mgl32.Vec3 {
	return g.scale
}

// Height returns the height at sample (i, j), clamping i and j to the grid.
func (g *Grid) Height(i, j int) float32 {
	i = clampIndex(i, g.width)
	j = clampIndex(j, g.height)
	return g.heights[j*g.width+i]
}

// SetHeight sets the height at sample (i, j). Out of range samples are ignored.
func (g *Grid) SetHeight(i, j int, h float32) {
	if i < 0 || j < 0 || i >= g.width || j >= g.height {
		return
	}
	g.heights[j*g.width+i] = h
}

// Normal returns the surface normal at sample (i, j) from central differences,
// falling back to one-sided differences on the border.
func (g *Grid) Normal(i, j int) mgl32.Vec3 {
	var dHdX float32
	if i < g.width-1 {
		dHdX = g.Height(i+1, j)
	} else {
		dHdX = g.Height(i, j)
	}
	if i > 0 {
		dHdX -= g.Height(i-1, j)
	} else {
		dHdX -= g.Height(i, j)
	}
	dHdX /= 2 * g.scale.X() / float32(g.width-1)

	var dHdY float32
	if j < g.height-1 {
		dHdY = g.Height(i, j+1)
	} else {
		dHdY = g.Height(i, j)
	}
	if j > 0 {
		dHdY -= g.Height(i, j-1)
	} else {
		dHdY -= g.Height(i, j)
	}
	dHdY /= 2 * g.scale.Y() / float32(g.height-1)

	n := mgl32.Vec3{-dHdX, -dHdY, 1}
	return n.Mul(1 / n.Len())
}

// HeightAt returns the bilinearly interpolated height at a world position.
func (g *Grid) HeightAt(x, y float32) float32 {
	fx := x * float32(g.width-1) / g.scale.X()
	fy := y * float32(g.height-1) / g.scale.Y()

	i := int(math32.Floor(fx))
	j := int(math32.Floor(fy))
	dx := fx - float32(i)
	dy := fy - float32(j)

	south := lerp(g.Height(i, j), g.Height(i+1, j), dx)
	north := lerp(g.Height(i, j+1), g.Height(i+1, j+1), dx)
	return lerp(south, north, dy)
}

// Range returns the lowest and highest sample.
func (g *Grid) Range() (lo, hi float32) {
	lo, hi = g.heights[0], g.heights[0]
	for _, h := range g.heights {
		lo = math32.Min(lo, h)
		hi = math32.Max(hi, h)
	}
	return lo, hi
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
