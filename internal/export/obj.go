// Package export writes built terrain meshes to interchange formats.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/terramesh/internal/terrain"
)

// ErrNoMesh is returned when there is nothing to export.
var ErrNoMesh = errors.New("export: no mesh")

// OBJOptions selects what goes into an OBJ file besides the surface.
type OBJOptions struct {
	Skirts bool // skirt strips, one group per tile
	Bounds bool // tile bounds as line wireframes
}

// WriteOBJFile writes asm as Wavefront OBJ to path.
func WriteOBJFile(path string, asm *terrain.Assembly, opts OBJOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteOBJ(f, asm, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteOBJ writes asm as Wavefront OBJ. Each tile becomes a group. Faces
// are wound counterclockwise seen from above.
func WriteOBJ(w io.Writer, asm *terrain.Assembly, opts OBJOptions) error {
	if asm == nil {
		return ErrNoMesh
	}
	o := &objWriter{w: bufio.NewWriter(w), next: 1}

	o.printf("# terramesh %dx%d tiles, %d vertices, %d triangles\n",
		asm.TilesX, asm.TilesY, len(asm.Vertices), asm.TriangleCount())
	o.printf("o terrain\n")
	for _, v := range asm.Vertices {
		o.vertex(v.Position, v.Normal)
	}
	o.forTiles(asm, func(i, j int, t *terrain.TileMesh) {
		o.printf("g tile_%d_%d\n", i, j)
		o.faces(t.Indices, 1, false)
	})

	if opts.Skirts && len(asm.SkirtVertices) > 0 {
		base := o.next
		o.printf("o skirts\n")
		for _, v := range asm.SkirtVertices {
			o.vertex(v.Position, v.Normal)
			o.printf("vt %g %g\n", v.UV.X(), v.UV.Y())
		}
		o.forTiles(asm, func(i, j int, t *terrain.TileMesh) {
			if len(t.Skirts) == 0 {
				return
			}
			o.printf("g skirt_%d_%d\n", i, j)
			for _, s := range t.Skirts {
				o.faces(s.Indices, base, true)
			}
		})
	}

	if opts.Bounds {
		o.printf("o bounds\n")
		o.forTiles(asm, func(i, j int, t *terrain.TileMesh) {
			box, _ := asm.DrawBounds(i, j)
			first := o.next
			for _, p := range BoxWireframe(box, 0) {
				o.printf("v %g %g %g\n", p.X(), p.Y(), p.Z())
				o.next++
			}
			o.printf("g bounds_%d_%d\n", i, j)
			for k := 0; k < BoxWireframeVertexCount; k += 2 {
				o.printf("l %d %d\n", first+k, first+k+1)
			}
		})
	}

	if o.err != nil {
		return o.err
	}
	return o.w.Flush()
}

// objWriter tracks the next 1-based vertex number and the first write
// error, after which all writes are dropped.
type objWriter struct {
	w    *bufio.Writer
	next int
	err  error
}

func (o *objWriter) printf(format string, args ...any) {
	if o.err != nil {
		return
	}
	_, o.err = fmt.Fprintf(o.w, format, args...)
}

func (o *objWriter) vertex(p, n mgl32.Vec3) {
	o.printf("v %g %g %g\n", p.X(), p.Y(), p.Z())
	o.printf("vn %g %g %g\n", n.X(), n.Y(), n.Z())
	o.next++
}

// faces writes triangles whose indices are offset by base. Meshes are
// clockwise from above, so the last two corners are swapped. Texture
// coordinates, when present, are numbered from 1 in index order.
func (o *objWriter) faces(indices []uint16, base int, uv bool) {
	for k := 0; k+2 < len(indices); k += 3 {
		a, b, c := int(indices[k]), int(indices[k+1]), int(indices[k+2])
		if uv {
			o.printf("f %d/%d/%d %d/%d/%d %d/%d/%d\n",
				a+base, a+1, a+base, c+base, c+1, c+base, b+base, b+1, b+base)
			continue
		}
		o.printf("f %d//%d %d//%d %d//%d\n", a+base, a+base, c+base, c+base, b+base, b+base)
	}
}

func (o *objWriter) forTiles(asm *terrain.Assembly, fn func(i, j int, t *terrain.TileMesh)) {
	for j := 0; j < asm.TilesY; j++ {
		for i := 0; i < asm.TilesX; i++ {
			if t := asm.Tile(i, j); t != nil {
				fn(i, j, t)
			}
		}
	}
}
