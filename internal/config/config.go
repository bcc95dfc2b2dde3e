// Package config handles mesher configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/terramesh/internal/terrain"
	"github.com/Faultbox/terramesh/pkg/heightfield"
)

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("config: invalid settings")

// Config holds all mesher settings.
type Config struct {
	Mesh    MeshConfig    `yaml:"mesh"`
	Skirt   SkirtConfig   `yaml:"skirt"`
	Terrain TerrainConfig `yaml:"terrain"`
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// MeshConfig holds subdivision settings.
type MeshConfig struct {
	MaxQuads          int     `yaml:"max_quads"`
	MaxVerts          int     `yaml:"max_verts"`
	MinCurvature      float32 `yaml:"min_curvature"`
	CurvatureExponent float32 `yaml:"curvature_exponent"`
	Remap             bool    `yaml:"remap"`
	KeepCurvature     bool    `yaml:"keep_curvature"`
	Validate          bool    `yaml:"validate"`
}

// SkirtConfig holds skirt settings.
type SkirtConfig struct {
	UVTile float32 `yaml:"uv_tile"`
}

// TerrainConfig holds the tile layout.
type TerrainConfig struct {
	TilesX      int      `yaml:"tiles_x"`
	TilesY      int      `yaml:"tiles_y"`
	HiddenTiles [][2]int `yaml:"hidden_tiles"`
}

// InputConfig selects the height-field source. An empty Heightfield path
// generates procedural terrain from the remaining fields.
type InputConfig struct {
	Heightfield string  `yaml:"heightfield"`
	Size        int     `yaml:"size"`
	ScaleX      float32 `yaml:"scale_x"`
	ScaleY      float32 `yaml:"scale_y"`
	ScaleZ      float32 `yaml:"scale_z"`
	Seed        int64   `yaml:"seed"`
	Octaves     int     `yaml:"octaves"`
}

// OutputConfig holds output paths.
type OutputConfig struct {
	OBJ string `yaml:"obj"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	opts := terrain.DefaultOptions()
	noise := heightfield.DefaultNoiseParams()
	return &Config{
		Mesh: MeshConfig{
			MaxQuads:          opts.MaxQuads,
			MaxVerts:          opts.MaxVerts,
			MinCurvature:      opts.MinCurvature,
			CurvatureExponent: opts.CurvatureExponent,
			Remap:             opts.Remap,
		},
		Skirt: SkirtConfig{
			UVTile: opts.SkirtUVTile,
		},
		Terrain: TerrainConfig{
			TilesX: 4,
			TilesY: 4,
		},
		Input: InputConfig{
			Size:    noise.Size,
			ScaleX:  noise.Scale.X(),
			ScaleY:  noise.Scale.Y(),
			ScaleZ:  noise.Scale.Z(),
			Seed:    noise.Seed,
			Octaves: noise.Octaves,
		},
		Output: OutputConfig{
			OBJ: "terrain.obj",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks settings a build cannot recover from.
func (c *Config) Validate() error {
	switch {
	case c.Mesh.MaxQuads <= 0:
		return fmt.Errorf("%w: mesh.max_quads must be positive", ErrInvalidConfig)
	case c.Mesh.MaxVerts <= 0:
		return fmt.Errorf("%w: mesh.max_verts must be positive", ErrInvalidConfig)
	case c.Mesh.MinCurvature < 0:
		return fmt.Errorf("%w: mesh.min_curvature must not be negative", ErrInvalidConfig)
	case c.Terrain.TilesX < 1 || c.Terrain.TilesY < 1:
		return fmt.Errorf("%w: terrain needs at least one tile each way", ErrInvalidConfig)
	case c.Input.Heightfield == "" && c.Input.Size < 2:
		return fmt.Errorf("%w: input.size must be at least 2", ErrInvalidConfig)
	}
	for _, t := range c.Terrain.HiddenTiles {
		if t[0] < 0 || t[0] >= c.Terrain.TilesX || t[1] < 0 || t[1] >= c.Terrain.TilesY {
			return fmt.Errorf("%w: hidden tile %v outside %dx%d grid",
				ErrInvalidConfig, t, c.Terrain.TilesX, c.Terrain.TilesY)
		}
	}
	return nil
}

// MeshOptions converts the mesh and skirt settings to build options.
func (c *Config) MeshOptions() terrain.Options {
	opts := terrain.DefaultOptions()
	opts.MaxQuads = c.Mesh.MaxQuads
	opts.MaxVerts = c.Mesh.MaxVerts
	opts.MinCurvature = c.Mesh.MinCurvature
	opts.CurvatureExponent = c.Mesh.CurvatureExponent
	opts.Remap = c.Mesh.Remap
	opts.KeepCurvature = c.Mesh.KeepCurvature
	opts.Validate = c.Mesh.Validate
	opts.SkirtUVTile = c.Skirt.UVTile
	return opts
}

// TileGrid returns the tile layout, with hidden tiles masked out.
func (c *Config) TileGrid() terrain.TileGrid {
	grid := terrain.TileGrid{X: c.Terrain.TilesX, Y: c.Terrain.TilesY}
	if len(c.Terrain.HiddenTiles) > 0 {
		grid.Hidden = heightfield.NewTileMask(c.Terrain.HiddenTiles...).Hidden
	}
	return grid
}

// NoiseParams returns the procedural terrain settings.
func (c *Config) NoiseParams() heightfield.NoiseParams {
	p := heightfield.DefaultNoiseParams()
	p.Size = c.Input.Size
	p.Scale = mgl32.Vec3{c.Input.ScaleX, c.Input.ScaleY, c.Input.ScaleZ}
	p.Seed = c.Input.Seed
	p.Octaves = c.Input.Octaves
	return p
}
