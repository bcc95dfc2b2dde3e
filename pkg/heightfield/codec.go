package heightfield

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"
)

// Height-field file errors.
var (
	ErrInvalidMagic       = errors.New("invalid height-field magic: expected 'HFLD'")
	ErrUnsupportedVersion = errors.New("unsupported height-field version")
	ErrTruncatedData      = errors.New("truncated height-field data")
	ErrInvalidDimensions  = errors.New("invalid height-field dimensions")
)

const (
	fileMagic    = "HFLD"
	versionMajor = 1
	versionMinor = 0

	// headerSize is magic + version + width + height + scale.
	headerSize = 4 + 2 + 4 + 4 + 12

	maxDimension = 8193
)

// Parse decodes a height-field file from raw bytes.
//
// Layout (little endian):
//
//	"HFLD" | minor u8 | major u8 | width u32 | height u32 |
//	scale 3 x f32 | width*height x f32 heights, row major
func Parse(data []byte) (*Grid, error) {
	if len(data) < headerSize {
		return nil, ErrTruncatedData
	}
	if string(data[0:4]) != fileMagic {
		return nil, ErrInvalidMagic
	}

	major, minor := data[5], data[4]
	if major != versionMajor {
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedVersion, major, minor)
	}

	r := bytes.NewReader(data[6:])

	var width, height uint32
	if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
		return nil, fmt.Errorf("%w: reading width", ErrTruncatedData)
	}
	if err := binary.Read(r, binary.LittleEndian, &height); err != nil {
		return nil, fmt.Errorf("%w: reading height", ErrTruncatedData)
	}
	if width < 2 || height < 2 || width > maxDimension || height > maxDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}

	var scale mgl32.Vec3
	if err := binary.Read(r, binary.LittleEndian, &scale); err != nil {
		return nil, fmt.Errorf("%w: reading scale", ErrTruncatedData)
	}

	heights := make([]float32, int(width)*int(height))
	if err := binary.Read(r, binary.LittleEndian, heights); err != nil {
		return nil, fmt.Errorf("%w: reading %d heights", ErrTruncatedData, len(heights))
	}

	return FromHeights(int(width), int(height), scale, heights)
}

// ParseFile decodes a height-field file from disk.
func ParseFile(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading height-field file: %w", err)
	}
	return Parse(data)
}

// Encode writes g in the height-field file format.
func Encode(w io.Writer, g *Grid) error {
	buf := new(bytes.Buffer)
	buf.Grow(headerSize + 4*len(g.heights))

	buf.WriteString(fileMagic)
	buf.WriteByte(versionMinor)
	buf.WriteByte(versionMajor)
	binary.Write(buf, binary.LittleEndian, uint32(g.width))
	binary.Write(buf, binary.LittleEndian, uint32(g.height))
	binary.Write(buf, binary.LittleEndian, g.scale)
	binary.Write(buf, binary.LittleEndian, g.heights)

	_, err := w.Write(buf.Bytes())
	return err
}

// WriteFile encodes g to path.
func WriteFile(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
