//go:build ebiten

package ui

import (
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"wildfire/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

type parameterProvider interface {
	Parameters() core.ParameterSnapshot
}

var (
	colorPanel    = color.RGBA{R: 16, G: 16, B: 20, A: 255}
	colorTitle    = color.RGBA{R: 200, G: 200, B: 210, A: 255}
	colorText     = color.RGBA{R: 220, G: 220, B: 230, A: 255}
	colorMuted    = color.RGBA{R: 160, G: 160, B: 170, A: 255}
	colorPending  = color.RGBA{R: 250, G: 200, B: 80, A: 255}
	colorSection  = color.RGBA{R: 90, G: 90, B: 100, A: 255}
	colorButton   = color.RGBA{R: 54, G: 56, B: 64, A: 255}
	colorButtonFg = color.RGBA{R: 230, G: 230, B: 240, A: 255}
	colorDisabled = color.RGBA{R: 32, G: 34, B: 40, A: 255}
	colorDimFg    = color.RGBA{R: 120, G: 120, B: 130, A: 255}
)

// HUD renders the parameter panel to the right of the simulation view. Edits
// are staged on the sim and take effect on its next reset; edited values are
// highlighted until then.
type HUD struct {
	sim        core.Sim
	width      int
	panel      *ebiten.Image
	lastHeight int
	snapshot   core.ParameterSnapshot
	status     []core.Parameter
	applied    map[string]string

	controls     []hudControlState
	intSetter    core.IntParameterSetter
	floatSetter  core.FloatParameterSetter
	stringSetter core.StringParameterSetter
	panelOffsetX int
	title        string

	pixel *ebiten.Image
}

// NewHUD constructs a HUD for the provided simulation and panel width.
func NewHUD(sim core.Sim, width int) *HUD {
	if width < 0 {
		width = 0
	}
	h := &HUD{sim: sim, width: width}
	if width > 0 {
		h.pixel = ebiten.NewImage(1, 1)
		h.pixel.Fill(color.White)
	}
	h.title = buildTitle(sim)
	if provider, ok := sim.(core.ParameterControlsProvider); ok {
		controls := provider.ParameterControls()
		h.controls = make([]hudControlState, len(controls))
		for i, ctrl := range controls {
			h.controls[i] = hudControlState{control: ctrl, value: "--"}
		}
		h.layoutControls()
	}
	if setter, ok := sim.(core.IntParameterSetter); ok {
		h.intSetter = setter
	}
	if setter, ok := sim.(core.FloatParameterSetter); ok {
		h.floatSetter = setter
	}
	if setter, ok := sim.(core.StringParameterSetter); ok {
		h.stringSetter = setter
	}
	h.MarkApplied()
	return h
}

// MarkApplied records the current parameter values as live, clearing the
// pending highlight. Call it after resetting the sim.
func (h *HUD) MarkApplied() {
	if h == nil {
		return
	}
	h.applied = map[string]string{}
	provider, ok := h.sim.(parameterProvider)
	if !ok {
		return
	}
	for _, g := range provider.Parameters().Groups {
		for _, p := range g.Params {
			h.applied[p.Key] = p.Value
		}
	}
}

// Update refreshes the cached parameter snapshot from the simulation and handles
// HUD interactions.
func (h *HUD) Update(panelOffsetX int) {
	if h == nil {
		return
	}
	h.panelOffsetX = panelOffsetX
	if provider, ok := h.sim.(core.StatusProvider); ok {
		h.status = provider.Status()
	}
	provider, ok := h.sim.(parameterProvider)
	if !ok {
		h.snapshot = core.ParameterSnapshot{}
		return
	}
	h.snapshot = provider.Parameters()
	h.refreshControlValues()
	h.handleInput()
}

// Draw paints the HUD panel anchored to the right edge of the simulation view.
func (h *HUD) Draw(screen *ebiten.Image, offsetX int, scale int) {
	if h == nil || h.width <= 0 {
		return
	}
	if scale <= 0 {
		scale = 1
	}
	height := max(h.sim.Size().H*scale, h.MinHeight())
	if h.panel == nil || h.panel.Bounds().Dx() != h.width || h.lastHeight != height {
		h.panel = ebiten.NewImage(h.width, height)
		h.lastHeight = height
	}
	h.panel.Fill(colorPanel)
	h.drawControls()
	h.drawStatus()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}

// MinHeight is the panel height needed to show every control and status line.
func (h *HUD) MinHeight() int {
	if h == nil || h.width <= 0 {
		return 0
	}
	return h.statusTop() + statusLines*statusLineHeight + panelPadding
}

func buildTitle(sim core.Sim) string {
	if sim == nil || sim.Name() == "" {
		return "Controls"
	}
	name := sim.Name()
	return strings.ToUpper(name[:1]) + name[1:] + " Controls"
}

func (h *HUD) refreshControlValues() {
	for i := range h.controls {
		state := &h.controls[i]
		param, ok := h.snapshot.Lookup(state.control.Key)
		state.hasValue = false
		state.value = "--"
		if !ok {
			continue
		}
		state.pending = h.applied[param.Key] != param.Value
		switch state.control.Type {
		case core.ParamTypeInt:
			parsed, err := strconv.Atoi(param.Value)
			if err != nil {
				continue
			}
			state.intValue = parsed
			state.floatValue = float64(parsed)
			state.value = strconv.Itoa(parsed)
			state.hasValue = true
		case core.ParamTypeFloat:
			parsed, err := strconv.ParseFloat(param.Value, 64)
			if err != nil {
				continue
			}
			state.floatValue = parsed
			state.value = formatFloat(state.control, parsed)
			state.hasValue = true
		case core.ParamTypeEnum:
			idx := indexOf(state.control.Options, param.Value)
			if idx < 0 {
				continue
			}
			state.enumIndex = idx
			state.value = param.Value
			state.hasValue = true
		}
	}
}

func (h *HUD) handleInput() {
	if len(h.controls) == 0 {
		return
	}
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	if mx < h.panelOffsetX {
		return
	}
	px := mx - h.panelOffsetX
	for i := range h.controls {
		state := &h.controls[i]
		if !state.hasValue {
			continue
		}
		if pointInRect(px, my, state.minusRect) {
			h.applyAdjustment(state, -1)
			return
		}
		if pointInRect(px, my, state.plusRect) {
			h.applyAdjustment(state, 1)
			return
		}
	}
}

func (h *HUD) applyAdjustment(state *hudControlState, direction int) {
	if !h.canAdjust(state, direction) {
		return
	}
	switch state.control.Type {
	case core.ParamTypeInt:
		target := clampInt(state.intValue+direction*intStep(state.control), state.control)
		if target != state.intValue && h.intSetter.SetIntParameter(state.control.Key, target) {
			state.intValue = target
			state.floatValue = float64(target)
			state.value = strconv.Itoa(target)
		}
	case core.ParamTypeFloat:
		target := clampFloat(state.floatValue+float64(direction)*floatStep(state.control), state.control)
		if math.Abs(target-state.floatValue) < 1e-9 {
			return
		}
		if h.floatSetter.SetFloatParameter(state.control.Key, target) {
			state.floatValue = target
			state.value = formatFloat(state.control, target)
		}
	case core.ParamTypeEnum:
		n := len(state.control.Options)
		next := ((state.enumIndex+direction)%n + n) % n
		if h.stringSetter.SetStringParameter(state.control.Key, state.control.Options[next]) {
			state.enumIndex = next
			state.value = state.control.Options[next]
		}
	}
}

func (h *HUD) canAdjust(state *hudControlState, direction int) bool {
	if state == nil || direction == 0 {
		return false
	}
	switch state.control.Type {
	case core.ParamTypeInt:
		if h.intSetter == nil {
			return false
		}
		target := state.intValue + direction*intStep(state.control)
		if state.control.HasMin && direction < 0 && target < int(math.Round(state.control.Min)) {
			return false
		}
		if state.control.HasMax && direction > 0 && target > int(math.Round(state.control.Max)) {
			return false
		}
		return true
	case core.ParamTypeFloat:
		if h.floatSetter == nil {
			return false
		}
		target := state.floatValue + float64(direction)*floatStep(state.control)
		if state.control.HasMin && direction < 0 && target < state.control.Min-1e-9 {
			return false
		}
		if state.control.HasMax && direction > 0 && target > state.control.Max+1e-9 {
			return false
		}
		return true
	case core.ParamTypeEnum:
		return h.stringSetter != nil && len(state.control.Options) > 1
	default:
		return false
	}
}

func (h *HUD) drawControls() {
	face := basicfont.Face7x13
	headerY := panelPadding + headerBaseline
	text.Draw(h.panel, h.title, face, panelPadding, headerY, colorTitle)
	if len(h.controls) == 0 {
		text.Draw(h.panel, "No adjustable parameters", face, panelPadding, headerY+infoSpacing, colorMuted)
		return
	}
	for i := range h.controls {
		state := &h.controls[i]
		labelY := state.top + labelBaseline
		text.Draw(h.panel, state.control.Label, face, panelPadding, labelY, colorText)

		valueColor := colorText
		switch {
		case !state.hasValue:
			valueColor = colorMuted
		case state.pending:
			valueColor = colorPending
		}
		bounds := text.BoundString(face, state.value)
		valueX := state.minusRect.Min.X - buttonGap - bounds.Dx()
		text.Draw(h.panel, state.value, face, valueX, labelY, valueColor)

		minusLabel, plusLabel := "-", "+"
		if state.control.Type == core.ParamTypeEnum {
			minusLabel, plusLabel = "<", ">"
		}
		h.drawButton(state.minusRect, minusLabel, state.hasValue && h.canAdjust(state, -1))
		h.drawButton(state.plusRect, plusLabel, state.hasValue && h.canAdjust(state, 1))
	}
}

func (h *HUD) drawStatus() {
	if len(h.status) == 0 {
		return
	}
	face := basicfont.Face7x13
	top := h.statusTop()
	h.fillRect(image.Rect(panelPadding, top-statusGap/2, h.width-panelPadding, top-statusGap/2+1), colorSection)
	for i, p := range h.status {
		if i >= statusLines {
			break
		}
		y := top + i*statusLineHeight + statusBaseline
		text.Draw(h.panel, p.Label, face, panelPadding, y, colorMuted)
		value := p.Value
		if p.Type == core.ParamTypeFloat {
			if f, err := strconv.ParseFloat(p.Value, 64); err == nil {
				value = strconv.FormatFloat(f, 'f', 2, 64)
			}
		}
		bounds := text.BoundString(face, value)
		text.Draw(h.panel, value, face, h.width-panelPadding-bounds.Dx(), y, colorText)
	}
}

func (h *HUD) statusTop() int {
	return controlsTop + len(h.controls)*lineHeight + statusGap
}

func (h *HUD) drawButton(rect image.Rectangle, label string, enabled bool) {
	bg, fg := colorButton, colorButtonFg
	if !enabled {
		bg, fg = colorDisabled, colorDimFg
	}
	h.fillRect(rect, bg)

	face := basicfont.Face7x13
	bounds := text.BoundString(face, label)
	x := rect.Min.X + (rect.Dx()-bounds.Dx())/2
	y := rect.Min.Y + (rect.Dy()-bounds.Dy())/2 + bounds.Dy()
	text.Draw(h.panel, label, face, x, y, fg)
}

func (h *HUD) fillRect(rect image.Rectangle, col color.RGBA) {
	if h.pixel == nil || rect.Empty() {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(rect.Dx()), float64(rect.Dy()))
	op.GeoM.Translate(float64(rect.Min.X), float64(rect.Min.Y))
	op.ColorScale.ScaleWithColor(col)
	h.panel.DrawImage(h.pixel, op)
}

func (h *HUD) layoutControls() {
	if h.width <= 0 {
		return
	}
	for i := range h.controls {
		top := controlsTop + i*lineHeight
		buttonY := top + (lineHeight-buttonSize)/2
		plusRect := image.Rect(h.width-panelPadding-buttonSize, buttonY, h.width-panelPadding, buttonY+buttonSize)
		minusRect := image.Rect(plusRect.Min.X-buttonGap-buttonSize, buttonY, plusRect.Min.X-buttonGap, buttonY+buttonSize)
		h.controls[i].top = top
		h.controls[i].minusRect = minusRect
		h.controls[i].plusRect = plusRect
	}
}

func intStep(ctrl core.ParameterControl) int {
	if step := int(math.Round(ctrl.Step)); step > 0 {
		return step
	}
	return 1
}

func floatStep(ctrl core.ParameterControl) float64 {
	if ctrl.Step > 0 {
		return ctrl.Step
	}
	return 0.05
}

func clampInt(v int, ctrl core.ParameterControl) int {
	if ctrl.HasMin {
		v = max(v, int(math.Round(ctrl.Min)))
	}
	if ctrl.HasMax {
		v = min(v, int(math.Round(ctrl.Max)))
	}
	return v
}

func clampFloat(v float64, ctrl core.ParameterControl) float64 {
	if ctrl.HasMin && v < ctrl.Min {
		v = ctrl.Min
	}
	if ctrl.HasMax && v > ctrl.Max {
		v = ctrl.Max
	}
	return v
}

func formatFloat(ctrl core.ParameterControl, value float64) string {
	step := floatStep(ctrl)
	precision := 1
	switch {
	case step < 0.001:
		precision = 4
	case step < 0.01:
		precision = 3
	case step < 0.1:
		precision = 2
	case step >= 1:
		precision = 0
	}
	return strconv.FormatFloat(value, 'f', precision, 64)
}

func indexOf(options []string, v string) int {
	for i, o := range options {
		if o == v {
			return i
		}
	}
	return -1
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return x >= rect.Min.X && x < rect.Max.X && y >= rect.Min.Y && y < rect.Max.Y
}

type hudControlState struct {
	control core.ParameterControl
	value   string

	intValue   int
	floatValue float64
	enumIndex  int
	hasValue   bool
	pending    bool

	top       int
	minusRect image.Rectangle
	plusRect  image.Rectangle
}

const (
	panelPadding     = 12
	lineHeight       = 32
	buttonSize       = 22
	buttonGap        = 6
	headerBaseline   = 18
	labelBaseline    = 21
	infoSpacing      = 36
	controlsTop      = panelPadding + headerBaseline + 14
	statusGap        = 18
	statusLines      = 10
	statusLineHeight = 18
	statusBaseline   = 13
)
