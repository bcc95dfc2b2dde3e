package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging and tree validation")
	flagInput    = flag.String("input", "", "Height-field file (.hfld); empty generates terrain")
	flagOBJ      = flag.String("obj", "", "Write the mesh as Wavefront OBJ to this path")
	flagTiles    = flag.String("tiles", "", "Tile grid as N or NxM")
	flagMaxQuads = flag.Int("max-quads", 0, "Quad cap")
	flagNoRemap  = flag.Bool("no-remap", false, "Keep build-order vertex numbering")
	flagSave     = flag.Bool("save-config", false, "Write the effective config to the user config dir")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SaveRequested reports whether --save-config was given.
func SaveRequested() bool {
	return *flagSave
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) error {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Mesh.Validate = true
	}
	if *flagInput != "" {
		cfg.Input.Heightfield = *flagInput
	}
	if *flagOBJ != "" {
		cfg.Output.OBJ = *flagOBJ
	}
	if *flagTiles != "" {
		x, y, err := parseTiles(*flagTiles)
		if err != nil {
			return err
		}
		cfg.Terrain.TilesX, cfg.Terrain.TilesY = x, y
	}
	if *flagMaxQuads > 0 {
		cfg.Mesh.MaxQuads = *flagMaxQuads
	}
	if *flagNoRemap {
		cfg.Mesh.Remap = false
	}
	return nil
}

// parseTiles reads "N" as an NxN grid or "NxM" as N across, M down.
func parseTiles(s string) (x, y int, err error) {
	xs, ys, found := strings.Cut(strings.ToLower(s), "x")
	x, err = strconv.Atoi(xs)
	if err != nil || x < 1 {
		return 0, 0, fmt.Errorf("%w: bad --tiles %q", ErrInvalidConfig, s)
	}
	if !found {
		return x, x, nil
	}
	y, err = strconv.Atoi(ys)
	if err != nil || y < 1 {
		return 0, 0, fmt.Errorf("%w: bad --tiles %q", ErrInvalidConfig, s)
	}
	return x, y, nil
}
