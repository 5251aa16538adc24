//go:build !ebiten

package ui

import "wildfire/internal/core"

// HUD is a no-op placeholder for headless builds.
type HUD struct{}

// NewHUD returns nil in the headless build.
func NewHUD(core.Sim, int) *HUD { return nil }

// MarkApplied is a no-op in the headless build.
func (h *HUD) MarkApplied() {}

// Update is a no-op in the headless build.
func (h *HUD) Update(int) {}

// Draw is a no-op in the headless build.
func (h *HUD) Draw(any, int, int) {}

// MinHeight is zero in the headless build.
func (h *HUD) MinHeight() int { return 0 }
