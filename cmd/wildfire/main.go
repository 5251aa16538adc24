//go:build ebiten

package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"wildfire/internal/app"
	"wildfire/internal/logging"
	"wildfire/internal/sims/wildfire"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	worldCfg, err := cfg.World()
	if err != nil {
		log.Error(ctx, "invalid configuration", logging.Err(err))
		os.Exit(2)
	}
	world, err := wildfire.NewWithConfig(worldCfg)
	if err != nil {
		log.Error(ctx, "create world", logging.Err(err))
		os.Exit(1)
	}
	cfg.Seed = worldCfg.Seed

	game := app.New(world, cfg, log)
	w, h := game.ScreenSize()

	ebiten.SetWindowTitle("wildfire: " + string(world.Strategy()))
	ebiten.SetTPS(60)
	ebiten.SetWindowSize(w, h)

	log.Info(ctx, "starting",
		logging.Int("width", worldCfg.Width),
		logging.Int("height", worldCfg.Height),
		logging.Int64("seed", worldCfg.Seed),
		logging.String("strategy", string(world.Strategy())),
	)
	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Error(ctx, "game loop", logging.Err(err))
		os.Exit(1)
	}
}
