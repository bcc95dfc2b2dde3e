// Package main is the entry point for the terramesh command.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/terramesh/internal/config"
	"github.com/Faultbox/terramesh/internal/export"
	"github.com/Faultbox/terramesh/internal/logger"
	"github.com/Faultbox/terramesh/internal/terrain"
	"github.com/Faultbox/terramesh/pkg/heightfield"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	if config.SaveRequested() {
		if err := cfg.Save(); err != nil {
			logger.Error("failed to save config", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("config saved", zap.String("dir", config.ConfigDir()))
	}

	if err := run(cfg); err != nil {
		logger.Error("build failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	hf, err := loadHeightField(cfg)
	if err != nil {
		return err
	}

	b := terrain.NewBuilder(cfg.MeshOptions())
	if err := b.Init(hf, cfg.TileGrid()); err != nil {
		return err
	}
	defer b.Dispose()

	st := b.Stats()
	logger.Info("mesh ready",
		zap.Int("tiles", st.Tiles),
		zap.Int("quads", st.Quads),
		zap.Int("vertices", st.Vertices),
		zap.Int("triangles", st.Triangles),
		zap.Int("skirtTriangles", st.SkirtTriangles),
		zap.Bool("capReached", st.CapReached),
		zap.Duration("elapsed", st.Elapsed))

	if cfg.Output.OBJ == "" {
		return nil
	}
	if err := export.WriteOBJFile(cfg.Output.OBJ, b.Assembly(), export.OBJOptions{Skirts: true}); err != nil {
		return fmt.Errorf("writing %s: %w", cfg.Output.OBJ, err)
	}
	logger.Info("wrote OBJ", zap.String("path", cfg.Output.OBJ))
	return nil
}

func loadHeightField(cfg *config.Config) (*heightfield.Grid, error) {
	if path := cfg.Input.Heightfield; path != "" {
		logger.Info("loading height-field", zap.String("path", path))
		return heightfield.ParseFile(path)
	}
	p := cfg.NoiseParams()
	logger.Info("generating height-field",
		zap.Int("size", p.Size),
		zap.Int64("seed", p.Seed),
		zap.Int("octaves", p.Octaves))
	return heightfield.Generate(p)
}
