package domain

import "fmt"

// Stage is the coarse readiness label of the reaction engine.
type Stage string

const (
	StageIdle      Stage = "IDLE"
	StageArmed     Stage = "ARMED"
	StageTriggered Stage = "TRIGGERED"
	StageConfirmed Stage = "CONFIRMED"
)

// StructureState describes how price behaved at the far zone edge.
type StructureState string

const (
	StructureHold    StructureState = "HOLD"
	StructureReclaim StructureState = "RECLAIM" // aliased from FAKEOUT_RECLAIM
	StructureFailure StructureState = "FAILURE"
)

// PermissionState is the trade-permission verdict.
type PermissionState string

const (
	PermissionAllow   PermissionState = "ALLOW"
	PermissionCaution PermissionState = "CAUTION"
	PermissionBlocked PermissionState = "BLOCKED"
)

// IntentAction is what the caller wants to do with the position.
type IntentAction string

const (
	ActionNewEntry IntentAction = "NEW_ENTRY"
	ActionAdd      IntentAction = "ADD"
	ActionScaleOut IntentAction = "SCALE_OUT"
	ActionExit     IntentAction = "EXIT"
)

// Reason codes shared across engines.
const (
	ReasonE5Invalid        = "E5_INVALID"
	ReasonNotInZone        = "NOT_IN_ZONE"
	ReasonNoTouch          = "NO_TOUCH"
	ReasonSlowReaction     = "SLOW_REACTION"
	ReasonWeakDisplacement = "WEAK_DISPLACEMENT"
	ReasonFailure          = "FAILURE"
	ReasonReclaim          = "RECLAIM"
	ReasonReactionFailed   = "REACTION_FAILED"
	ReasonLiquidityFail    = "LIQUIDITY_FAIL"
	ReasonEodRiskOff       = "EOD_RISK_OFF"
	ReasonLowScore         = "LOW_SCORE"
	ReasonShelfWithRiskOn  = "SHELF_WITH_RISK_ON"
)

// Engine5 is the consumed confluence contract. Only its shape matters here.
type Engine5 struct {
	Invalid     bool     `json:"invalid"`
	Total       float64  `json:"total"`
	ReasonCodes []string `json:"reasonCodes"`
	Label       string   `json:"label,omitempty"`
	Flags       []string `json:"flags,omitempty"`
	Compression *float64 `json:"compression,omitempty"`
	Bias        string   `json:"bias,omitempty"`
}

// MeterReading is one timeframe slice of the external market meter.
type MeterReading struct {
	Risk  string `json:"risk,omitempty"`
	PSI   string `json:"psi,omitempty"`
	State string `json:"state,omitempty"`
	Bias  string `json:"bias,omitempty"`
}

// MarketMeter is the external multi-timeframe market state snapshot.
type MarketMeter struct {
	EOD MeterReading `json:"eod"`
	H1  MeterReading `json:"h1"`
	H4  MeterReading `json:"h4"`
	M10 MeterReading `json:"m10"`
}

// RiskOff / RiskOn are the eod risk values the permission engine keys on.
const (
	RiskOff = "RISK_OFF"
	RiskOn  = "RISK_ON"
)

// ZoneContextFlags carries degradation markers for the permission gates.
type ZoneContextFlags struct {
	Degraded       bool `json:"degraded"`
	LiquidityFail  bool `json:"liquidityFail"`
	ReactionFailed bool `json:"reactionFailed"`
}

// ZoneContext locates the caller relative to the zone catalog.
type ZoneContext struct {
	ZoneType   ZoneKind         `json:"zoneType"` // NEGOTIATED, INSTITUTIONAL, SHELF or NONE
	ZoneID     string           `json:"zoneId"`
	WithinZone bool             `json:"withinZone"`
	Flags      ZoneContextFlags `json:"flags"`
	Meta       map[string]any   `json:"meta,omitempty"`
}

// ZoneNone marks the absence of an active zone in a ZoneContext.
const ZoneNone ZoneKind = "NONE"

// Intent is the caller's declared position action.
type Intent struct {
	Action IntentAction `json:"action"`
}

// Permission is the gating decision itself.
type Permission struct {
	State PermissionState `json:"state"`
	Bias  string          `json:"bias,omitempty"`
}

// Downgrade records a verdict that was lowered after the threshold pass.
type Downgrade struct {
	From   PermissionState `json:"from"`
	To     PermissionState `json:"to"`
	Reason string          `json:"reason"`
}

// PermissionVerdict is the full trade-permission output.
type PermissionVerdict struct {
	Permission  Permission `json:"permission"`
	ReasonCodes []string   `json:"reasonCodes"`
	Downgrade   *Downgrade `json:"downgrade,omitempty"`
}

// GoSignal is the binary rising-edge trading signal.
type GoSignal struct {
	Signal          bool     `json:"signal"`
	Direction       string   `json:"direction,omitempty"`
	TriggerType     string   `json:"triggerType,omitempty"`
	TriggerLine     string   `json:"triggerLine,omitempty"`
	Price           float64  `json:"price,omitempty"`
	AtUTC           string   `json:"atUtc"`
	CooldownUntilMs int64    `json:"cooldownUntilMs,omitempty"`
	ReasonCodes     []string `json:"reasonCodes"`
}

// GoKey builds the dedupe key for a GO event.
func GoKey(symbol, strategy string, sig GoSignal) string {
	return fmt.Sprintf("%s|%s|%s|%s", symbol, strategy, sig.Direction, sig.AtUTC)
}
