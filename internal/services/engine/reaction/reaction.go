// Package reaction implements the reaction-quality engine: per-bar touch
// detection, rejection-speed / displacement / structure scoring and the
// IDLE -> ARMED -> TRIGGERED -> CONFIRMED stage machine.
package reaction

import (
	"math"

	"github.com/pkg/errors"

	"github.com/smzlabs/zonedash/internal/domain"
)

var (
	// ErrATRUnavailable is returned when no finite positive ATR exists.
	ErrATRUnavailable = errors.New("ATR_UNAVAILABLE")
	// ErrBarsUnavailable is returned when fewer than lookbackBars usable
	// bars were provided.
	ErrBarsUnavailable = errors.New("BARS_UNAVAILABLE")
	// ErrUnknownMode is returned for a mode without a preset.
	ErrUnknownMode = errors.New("unknown reaction mode")
)

// Side of the zone the caller trades against.
const (
	SideLong  = "LONG"  // zone acts as support, reaction expected up
	SideShort = "SHORT" // zone acts as resistance, reaction expected down
)

const (
	scalpPad          = 1.30
	padATRFraction    = 0.10
	padCap            = 1.00
	weakDispScalp     = 0.15
	weakDispDefault   = 0.20
	slowReactionBars  = 2
	structureHoldPts  = 2
	structureFakePts  = 1
	rejectionScale    = 2.5
	displacementScale = 2.5
)

// Band is the zone the engine scores against.
type Band struct {
	Lo   float64
	Hi   float64
	Side string // SideLong, SideShort or empty to infer from the reaction
}

// Input bundles one evaluation request.
type Input struct {
	Bars      domain.Bars
	Zone      Band
	ATR       float64
	Mode      domain.Mode
	PrevStage domain.Stage
}

// Result is the externally visible reaction shape.
type Result struct {
	ReactionScore    float64               `json:"reactionScore"`
	StructureState   domain.StructureState `json:"structureState"`
	ReasonCodes      []string              `json:"reasonCodes"`
	RejectionSpeed   float64               `json:"rejectionSpeed"`
	DisplacementATR  float64               `json:"displacementAtr"`
	ReclaimOrFailure float64               `json:"reclaimOrFailure"`
	TouchQuality     float64               `json:"touchQuality"`
	Samples          int                   `json:"samples"`
	Price            float64               `json:"price"`
	ATR              float64               `json:"atr"`
	Armed            bool                  `json:"armed"`
	Stage            domain.Stage          `json:"stage"`
	Compression      float64               `json:"compression"`
	Mode             domain.Mode           `json:"mode"`
	InZone           bool                  `json:"inZone"`
}

// Evaluate scores how violently and decisively price reacted at the zone.
func Evaluate(in Input) (Result, error) {
	preset, ok := PresetFor(in.Mode)
	if !ok {
		return Result{}, ErrUnknownMode
	}
	if math.IsNaN(in.ATR) || math.IsInf(in.ATR, 0) || in.ATR <= 0 {
		return Result{}, ErrATRUnavailable
	}

	usable := make(domain.Bars, 0, len(in.Bars))
	for _, b := range in.Bars {
		if b.Valid() {
			usable = append(usable, b)
		}
	}
	if len(usable) < preset.LookbackBars {
		return Result{}, ErrBarsUnavailable
	}
	bars := usable.Tail(preset.LookbackBars)

	pad := scalpPad
	if in.Mode != domain.ModeScalp {
		pad = math.Min(padATRFraction*in.ATR, padCap)
	}

	lastClose, _ := bars.LastClose()
	inZone := lastClose >= in.Zone.Lo-pad && lastClose <= in.Zone.Hi+pad

	res := Result{
		StructureState: domain.StructureHold,
		Samples:        len(bars),
		Price:          lastClose,
		ATR:            in.ATR,
		Mode:           in.Mode,
		InZone:         inZone,
		ReasonCodes:    []string{},
	}

	compHigh, compLow, _ := bars.Tail(preset.CompBars).Range()
	res.Compression = (compHigh - compLow) / in.ATR

	window := bars.Tail(preset.WindowBars)
	windowStart := len(bars) - len(window)

	touchIdx := -1 // index into bars of the most recent touch
	touched := 0
	for i := windowStart; i < len(bars); i++ {
		if bars[i].Touches(in.Zone.Lo, in.Zone.Hi) {
			touched++
			touchIdx = i
		}
	}
	res.TouchQuality = float64(touched) / float64(len(window))

	rawScore := 0.0
	rBars := 0 // bars from touch until close exits the band, 0 = never exited

	if touchIdx < 0 {
		res.ReasonCodes = append(res.ReasonCodes, domain.ReasonNoTouch)
	} else {
		rejection := 0
		for k := touchIdx; k < len(bars); k++ {
			if bars[k].Close < in.Zone.Lo || bars[k].Close > in.Zone.Hi {
				rBars = k - touchIdx + 1
				break
			}
		}
		if rBars > 0 {
			switch {
			case rBars <= 1:
				rejection = 4
			case rBars <= 2:
				rejection = 3
			case rBars <= 3:
				rejection = 2
			case rBars <= 5:
				rejection = 1
			}
		}

		displacement := peakDisplacement(bars[touchIdx:], in.Zone, in.ATR)
		dispPts := 0
		switch {
		case displacement >= 1.0:
			dispPts = 4
		case displacement >= 0.7:
			dispPts = 3
		case displacement >= 0.4:
			dispPts = 2
		case displacement >= 0.2:
			dispPts = 1
		}
		res.DisplacementATR = displacement

		state := structureState(bars[touchIdx:], in.Zone, in.ATR, preset)
		res.StructureState = state
		structPts := 0
		switch state {
		case domain.StructureHold:
			structPts = structureHoldPts
			res.ReclaimOrFailure = 10
		case domain.StructureReclaim:
			structPts = structureFakePts
			res.ReclaimOrFailure = 5
			res.ReasonCodes = append(res.ReasonCodes, domain.ReasonReclaim)
		case domain.StructureFailure:
			res.ReclaimOrFailure = 0
			res.ReasonCodes = append(res.ReasonCodes, domain.ReasonFailure)
		}

		rawScore = float64(rejection) + float64(dispPts) + float64(structPts)
		res.RejectionSpeed = float64(rejection) * rejectionScale

		if in.Mode == domain.ModeScalp && rBars > slowReactionBars {
			res.ReasonCodes = append(res.ReasonCodes, domain.ReasonSlowReaction)
		}
		weak := weakDispDefault
		if in.Mode == domain.ModeScalp {
			weak = weakDispScalp
		}
		if displacement < weak {
			res.ReasonCodes = append(res.ReasonCodes, domain.ReasonWeakDisplacement)
		}
	}

	// stage machine
	armed := inZone && res.Compression <= preset.CompMax
	outsidePadded := lastClose < in.Zone.Lo-pad || lastClose > in.Zone.Hi+pad
	triggered := outsidePadded && rBars > 0 && rBars <= preset.TriggerExitBarsMax

	confirmed := rawScore >= preset.ConfirmScore
	if in.Mode == domain.ModeScalp {
		confirmed = confirmed && (in.PrevStage == domain.StageArmed || in.PrevStage == domain.StageTriggered)
	}

	stage := domain.StageIdle
	switch {
	case confirmed:
		stage = domain.StageConfirmed
	case triggered:
		stage = domain.StageTriggered
	case armed:
		stage = domain.StageArmed
	}

	// hard gate: price away from the zone without a valid triggered exit
	// means the engine has nothing to say
	away := !inZone && !triggered
	if away && stage != domain.StageTriggered {
		stage = domain.StageIdle
		armed = false
	}
	res.Stage = stage
	res.Armed = armed

	res.ReactionScore = rawScore
	if away {
		// golden rule: never report a score while price is away from the zone
		res.ReactionScore = 0
		res.ReasonCodes = append(res.ReasonCodes, domain.ReasonNotInZone)
	}

	return res, nil
}

// peakDisplacement returns the largest close distance beyond the band after
// the touch, measured from the nearer edge, in ATRs.
func peakDisplacement(bars domain.Bars, zone Band, atr float64) float64 {
	peak := 0.0
	for _, b := range bars {
		var d float64
		switch {
		case b.Close > zone.Hi:
			d = b.Close - zone.Hi
		case b.Close < zone.Lo:
			d = zone.Lo - b.Close
		}
		if d > peak {
			peak = d
		}
	}
	return peak / atr
}

// structureState classifies what happened at the opposite zone edge after
// the touch: held, broke and reclaimed, or broke for good.
func structureState(bars domain.Bars, zone Band, atr float64, preset Preset) domain.StructureState {
	side := zone.Side
	if side == "" {
		side = inferSide(bars, zone)
	}
	breakDepth := preset.BreakDepthATR * atr

	breakIdx := -1
	for i, b := range bars {
		broke := false
		if side == SideLong {
			broke = b.Low < zone.Lo-breakDepth
		} else {
			broke = b.High > zone.Hi+breakDepth
		}
		if broke {
			breakIdx = i
			break
		}
	}
	if breakIdx < 0 {
		return domain.StructureHold
	}

	for i := breakIdx + 1; i < len(bars) && i <= breakIdx+preset.ReclaimWindowBars; i++ {
		if bars[i].Close >= zone.Lo && bars[i].Close <= zone.Hi {
			return domain.StructureReclaim
		}
	}
	return domain.StructureFailure
}

// inferSide guesses the reaction direction from where closes escaped the band.
func inferSide(bars domain.Bars, zone Band) string {
	above, below := 0.0, 0.0
	for _, b := range bars {
		if b.Close > zone.Hi && b.Close-zone.Hi > above {
			above = b.Close - zone.Hi
		}
		if b.Close < zone.Lo && zone.Lo-b.Close > below {
			below = zone.Lo - b.Close
		}
	}
	if below > above {
		return SideShort
	}
	return SideLong
}
