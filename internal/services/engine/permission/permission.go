// Package permission implements the trade-permission engine: a pure gating
// function over the confluence score, the market meter and zone context.
// No I/O, no global state.
package permission

import "github.com/smzlabs/zonedash/internal/domain"

const (
	allowThreshold    = 70.0
	cautionThreshold  = 40.0
	lowScoreThreshold = 55.0
)

// Input bundles the four permission inputs.
type Input struct {
	Engine5     domain.Engine5     `json:"engine5"`
	MarketMeter domain.MarketMeter `json:"marketMeter"`
	ZoneContext domain.ZoneContext `json:"zoneContext"`
	Intent      domain.Intent      `json:"intent"`
}

// Decide evaluates the ordered gating rules and score thresholds.
// Deterministic: the same four inputs always produce the same verdict.
func Decide(in Input) domain.PermissionVerdict {
	if reason, blocked := gate(in); blocked {
		return domain.PermissionVerdict{
			Permission:  domain.Permission{State: domain.PermissionBlocked, Bias: in.Engine5.Bias},
			ReasonCodes: []string{reason},
		}
	}

	verdict := domain.PermissionVerdict{
		Permission:  domain.Permission{Bias: in.Engine5.Bias},
		ReasonCodes: []string{},
	}

	total := in.Engine5.Total
	switch {
	case total >= allowThreshold:
		verdict.Permission.State = domain.PermissionAllow
	case total >= cautionThreshold:
		verdict.Permission.State = domain.PermissionCaution
		if total < lowScoreThreshold {
			verdict.ReasonCodes = append(verdict.ReasonCodes, domain.ReasonLowScore)
		}
	default:
		verdict.Permission.State = domain.PermissionBlocked
		verdict.ReasonCodes = append(verdict.ReasonCodes, domain.ReasonLowScore)
	}

	// shelf zones do not earn a full ALLOW while the dominant meter runs hot
	if verdict.Permission.State == domain.PermissionAllow &&
		in.ZoneContext.ZoneType == domain.ZoneShelf &&
		in.MarketMeter.EOD.Risk == domain.RiskOn {
		verdict.Permission.State = domain.PermissionCaution
		verdict.ReasonCodes = append(verdict.ReasonCodes, domain.ReasonShelfWithRiskOn)
		verdict.Downgrade = &domain.Downgrade{
			From:   domain.PermissionAllow,
			To:     domain.PermissionCaution,
			Reason: domain.ReasonShelfWithRiskOn,
		}
	}

	return verdict
}

// gate applies the ordered blocking rules; the first match wins.
func gate(in Input) (string, bool) {
	switch {
	case in.Engine5.Invalid:
		return domain.ReasonE5Invalid, true
	case !in.ZoneContext.WithinZone && in.Intent.Action == domain.ActionNewEntry:
		return domain.ReasonNotInZone, true
	case in.ZoneContext.Flags.ReactionFailed:
		return domain.ReasonReactionFailed, true
	case in.ZoneContext.Flags.LiquidityFail:
		return domain.ReasonLiquidityFail, true
	case in.MarketMeter.EOD.Risk == domain.RiskOff && in.Intent.Action == domain.ActionNewEntry:
		return domain.ReasonEodRiskOff, true
	}
	return "", false
}
