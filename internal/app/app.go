//go:build ebiten

package app

import (
	"context"
	"image/color"
	"time"

	"wildfire/internal/core"
	"wildfire/internal/logging"
	"wildfire/internal/render"
	"wildfire/internal/sims/wildfire"
	"wildfire/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type paletteProvider interface {
	Palette() []color.RGBA
}

type stateProvider interface {
	State() wildfire.State
	Metrics() wildfire.Metrics
}

// Game adapts a core simulation to the ebiten.Game interface.
type Game struct {
	sim     core.Sim
	painter *render.GridPainter
	overlay *ui.Overlay
	hud     *ui.HUD
	timer   *core.FixedStep
	log     logging.Logger

	palette  []color.RGBA
	hudWidth int

	scale    int
	paused   bool
	tickOnce bool
	finished bool
	seed     int64
}

// New constructs a Game for the provided simulation. The parameter panel is
// drawn to the right of the grid when hudWidth is positive.
func New(sim core.Sim, cfg *Config, log logging.Logger) *Game {
	if log == nil {
		log = logging.Noop()
	}
	gp := render.NewGridPainter(sim.Size().W, sim.Size().H)
	g := &Game{
		sim:      sim,
		painter:  gp,
		overlay:  ui.NewOverlay(sim, cfg.Scale),
		hud:      ui.NewHUD(sim, cfg.HUDWidth),
		timer:    core.NewFixedStep(cfg.TPS),
		log:      log,
		hudWidth: max(cfg.HUDWidth, 0),
		scale:    max(cfg.Scale, 1),
		seed:     cfg.Seed,
	}
	if p, ok := sim.(paletteProvider); ok {
		g.palette = p.Palette()
	} else {
		g.palette = []color.RGBA{{A: 255}, {R: 255, G: 255, B: 255, A: 255}}
	}
	return g
}

// Reset reinitializes the simulation state with the provided seed and applies
// any parameters staged through the HUD.
func (g *Game) Reset(seed int64) {
	if !g.finished {
		g.logFinished()
	}
	g.seed = seed
	g.sim.Reset(seed)
	g.tickOnce = false
	g.finished = false
	g.hud.MarkApplied()
	g.log.Info(context.Background(), "reset", logging.Int64("seed", seed))
}

// Update handles per-frame logic and advances the simulation.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.paused = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.tickOnce = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.Reset(g.seed)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.Reset(time.Now().UnixNano())
	}

	if g.overlay != nil {
		g.overlay.Update()
	}
	g.hud.Update(g.sim.Size().W * g.scale)

	steps := g.timer.Due()
	if g.paused {
		steps = 0
	}
	if g.tickOnce {
		steps = max(steps, 1)
		g.tickOnce = false
	}
	for i := 0; i < steps && !g.finished; i++ {
		g.sim.Step()
		g.checkFinished()
	}
	return nil
}

// Draw renders the current simulation state.
func (g *Game) Draw(screen *ebiten.Image) {
	g.painter.Blit(screen, g.sim.Cells(), g.palette, g.scale, 0)
	if g.overlay != nil {
		g.overlay.Draw(screen)
	}
	g.hud.Draw(screen, g.sim.Size().W*g.scale, g.scale)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.ScreenSize()
}

// ScreenSize reports the window size needed for the grid and the panel.
func (g *Game) ScreenSize() (int, int) {
	s := g.sim.Size()
	return s.W*g.scale + g.hudWidth, max(s.H*g.scale, g.hud.MinHeight())
}

func (g *Game) checkFinished() {
	sp, ok := g.sim.(stateProvider)
	if !ok || sp.State() != wildfire.StateDepleted {
		return
	}
	g.finished = true
	g.logFinished()
}

func (g *Game) logFinished() {
	sp, ok := g.sim.(stateProvider)
	if !ok {
		return
	}
	m := sp.Metrics()
	if m.Tick == 0 {
		return
	}
	g.log.Info(context.Background(), "run finished",
		logging.Int("tick", m.Tick),
		logging.String("state", m.State.String()),
		logging.Float("percentage_lost", m.PercentageLost),
		logging.Int("burnout_time", m.BurnoutTime),
		logging.Int("total_cost", m.TotalCost),
	)
}
