package reaction

import "github.com/smzlabs/zonedash/internal/domain"

// Preset is one locked mode parameter set for the reaction engine.
type Preset struct {
	LookbackBars       int
	WindowBars         int
	BreakDepthATR      float64
	ReclaimWindowBars  int
	CompBars           int
	CompMax            float64
	TriggerExitBarsMax int
	ConfirmScore       float64
}

var presets = map[domain.Mode]Preset{
	domain.ModeScalp: {
		LookbackBars:       12,
		WindowBars:         2,
		BreakDepthATR:      0.25,
		ReclaimWindowBars:  1,
		CompBars:           3,
		CompMax:            0.35,
		TriggerExitBarsMax: 2,
		ConfirmScore:       7.0,
	},
	domain.ModeSwing: {
		LookbackBars:       15,
		WindowBars:         6,
		BreakDepthATR:      0.25,
		ReclaimWindowBars:  3,
		CompBars:           5,
		CompMax:            0.45,
		TriggerExitBarsMax: 3,
		ConfirmScore:       7.0,
	},
	domain.ModeLong: {
		LookbackBars:       25,
		WindowBars:         10,
		BreakDepthATR:      0.25,
		ReclaimWindowBars:  5,
		CompBars:           8,
		CompMax:            0.55,
		TriggerExitBarsMax: 4,
		ConfirmScore:       7.0,
	},
}

// PresetFor returns the parameter set for a mode.
func PresetFor(mode domain.Mode) (Preset, bool) {
	p, ok := presets[mode]
	return p, ok
}
