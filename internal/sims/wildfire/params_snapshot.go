package wildfire

import (
	"strconv"

	"wildfire/internal/core"
)

// Parameters reports the configuration the next Reset will use.
func (w *World) Parameters() core.ParameterSnapshot {
	params := w.pending.Params
	groups := []core.ParameterGroup{
		{
			Name: "World",
			Params: []core.Parameter{
				intParam("w", "Width", w.pending.Width),
				intParam("h", "Height", w.pending.Height),
				int64Param("seed", "Seed", w.pending.Seed),
				enumParam("neighborhood", "Neighborhood", string(params.Neighborhood)),
			},
		},
		{
			Name: "Forest",
			Params: []core.Parameter{
				floatParam("max_density", "Max density", params.MaxDensity),
				enumParam("density_dist", "Density distribution", string(params.DensityDist)),
				floatParam("density_alpha", "Density alpha", params.DensityAlpha),
				floatParam("density_beta", "Density beta", params.DensityBeta),
				floatParam("growth_rate", "Growth rate", params.GrowthRate),
				boolParam("seasonal_growth", "Seasonal growth", params.SeasonalGrowth),
				floatParam("water_chance", "Water chance", params.WaterChance),
				floatParam("road_chance", "Road chance", params.RoadChance),
			},
		},
		{
			Name: "Fire",
			Params: []core.Parameter{
				enumParam("ignition_law", "Ignition law", string(params.IgnitionLaw)),
				floatParam("ignition_coefficient", "Ignition coefficient", params.IgnitionCoefficient),
				floatParam("spread_coefficient", "Spread coefficient", params.SpreadCoefficient),
				floatParam("burn_decay", "Burn decay", params.BurnDecay),
				floatParam("burnout_threshold", "Burnout threshold", params.BurnoutThreshold),
			},
		},
		{
			Name: "Firefighters",
			Params: []core.Parameter{
				intParam("number_firefighters", "Firefighters", params.NumberFirefighters),
				enumParam("firefighter_strategy", "Strategy", string(params.Strategy)),
				intParam("firefighter_response_delay", "Response delay", params.ResponseDelay),
				floatParam("extinguish_difficulty", "Extinguish difficulty", params.ExtinguishDifficulty),
				intParam("extinguish_radius", "Extinguish radius", params.ExtinguishRadius),
				boolParam("extinguish_always", "Always extinguish", params.ExtinguishAlways),
				intParam("fire_line_margin", "Fire line margin", params.FireLineMargin),
				floatParam("cut_down_amount", "Cut-down amount", params.CutDownAmount),
				floatParam("burn_threshold", "Burn threshold", params.BurnThreshold),
				floatParam("intelligent_threshold", "Intelligent threshold", params.IntelligentThreshold),
			},
		},
	}
	return core.ParameterSnapshot{Groups: groups}
}

// ParameterControls lists the parameters the HUD may adjust between runs.
func (w *World) ParameterControls() []core.ParameterControl {
	strategies := make([]string, 0, len(StrategyKinds()))
	for _, k := range StrategyKinds() {
		strategies = append(strategies, string(k))
	}
	return []core.ParameterControl{
		{Key: "firefighter_strategy", Label: "Strategy", Type: core.ParamTypeEnum, Options: strategies},
		{Key: "number_firefighters", Label: "Firefighters", Type: core.ParamTypeInt, Step: 1, Min: 0, HasMin: true, Max: 500, HasMax: true},
		{Key: "firefighter_response_delay", Label: "Response delay", Type: core.ParamTypeInt, Step: 1, Min: 0, HasMin: true, Max: 200, HasMax: true},
		{Key: "spread_coefficient", Label: "Spread coefficient", Type: core.ParamTypeFloat, Step: 0.05, Min: 0, HasMin: true, Max: 2, HasMax: true},
		{Key: "ignition_coefficient", Label: "Ignition coefficient", Type: core.ParamTypeFloat, Step: 0.005, Min: 0, HasMin: true, Max: 0.2, HasMax: true},
		{Key: "burn_decay", Label: "Burn decay", Type: core.ParamTypeFloat, Step: 0.05, Min: 0, HasMin: true, Max: 1, HasMax: true},
		{Key: "growth_rate", Label: "Growth rate", Type: core.ParamTypeFloat, Step: 0.05, Min: 0, HasMin: true, Max: 1, HasMax: true},
		{Key: "extinguish_difficulty", Label: "Extinguish difficulty", Type: core.ParamTypeFloat, Step: 0.5, Min: 0.5, HasMin: true, Max: 50, HasMax: true},
		{Key: "fire_line_margin", Label: "Fire line margin", Type: core.ParamTypeInt, Step: 1, Min: 0, HasMin: true, Max: 50, HasMax: true},
		{Key: "cut_down_amount", Label: "Cut-down amount", Type: core.ParamTypeFloat, Step: 25, Min: 0, HasMin: true, Max: 1000, HasMax: true},
	}
}

// Status reports the live metrics of the current run.
func (w *World) Status() []core.Parameter {
	m := w.metrics
	return []core.Parameter{
		intParam("tick", "Tick", m.Tick),
		enumParam("state", "State", m.State.String()),
		intParam("on_fire", "Trees on fire", m.OnFire),
		floatParam("percentage_lost", "Lost %", m.PercentageLost),
		floatParam("average_density", "Avg density", m.AverageDensity),
		intParam("burnout_time", "Burnout time", m.BurnoutTime),
		intParam("extinguish_cost", "Extinguish cost", m.ExtinguishCost),
		intParam("burn_cost", "Burn cost", m.BurnCost),
		intParam("cut_down_cost", "Cut-down cost", m.CutDownCost),
		enumParam("strategy", "Active strategy", string(w.Strategy())),
	}
}

// SetIntParameter stages an integer parameter for the next Reset.
func (w *World) SetIntParameter(key string, value int) bool {
	switch key {
	case "number_firefighters", "firefighter_response_delay", "fire_line_margin", "extinguish_radius":
		return w.stage(key, strconv.Itoa(value))
	}
	return false
}

// SetFloatParameter stages a floating point parameter for the next Reset.
func (w *World) SetFloatParameter(key string, value float64) bool {
	switch key {
	case "spread_coefficient", "ignition_coefficient", "burn_decay", "burnout_threshold", "growth_rate",
		"extinguish_difficulty", "cut_down_amount", "burn_threshold", "intelligent_threshold":
		return w.stage(key, strconv.FormatFloat(value, 'f', -1, 64))
	}
	return false
}

// SetStringParameter stages an enum parameter for the next Reset.
func (w *World) SetStringParameter(key, value string) bool {
	switch key {
	case "firefighter_strategy", "ignition_law", "neighborhood", "density_dist":
		return w.stage(key, value)
	}
	return false
}

// Pending returns the configuration staged for the next Reset.
func (w *World) Pending() Config { return w.pending }

// Stage sets any configuration key for the next Reset. It reports false for
// unknown keys, unparsable values, size changes and invalid results.
func (w *World) Stage(key, value string) bool { return w.stage(key, value) }

// stage applies key to a copy of the pending config and keeps it only when the
// result still validates. Grid size is fixed for the lifetime of a world.
func (w *World) stage(key, value string) bool {
	next := w.pending
	if !Apply(&next, key, value) {
		return false
	}
	if next.Width != w.w || next.Height != w.h {
		return false
	}
	if next.Validate() != nil {
		return false
	}
	w.pending = next
	return true
}

func intParam(key, label string, value int) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeInt,
		Value: strconv.Itoa(value),
	}
}

func int64Param(key, label string, value int64) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeInt,
		Value: strconv.FormatInt(value, 10),
	}
}

func floatParam(key, label string, value float64) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeFloat,
		Value: strconv.FormatFloat(value, 'f', -1, 64),
	}
}

func boolParam(key, label string, value bool) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeBool,
		Value: strconv.FormatBool(value),
	}
}

func enumParam(key, label, value string) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeEnum,
		Value: value,
	}
}
