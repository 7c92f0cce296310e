package permission

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smzlabs/zonedash/internal/domain"
)

func baseInput() Input {
	return Input{
		Engine5: domain.Engine5{Total: 82, Bias: "LONG"},
		MarketMeter: domain.MarketMeter{
			EOD: domain.MeterReading{Risk: domain.RiskOff},
		},
		ZoneContext: domain.ZoneContext{
			ZoneType:   domain.ZoneNegotiated,
			ZoneID:     "neg-1",
			WithinZone: true,
		},
		Intent: domain.Intent{Action: domain.ActionNewEntry},
	}
}

func TestDecideHighScoreInZoneAllows(t *testing.T) {
	in := baseInput()
	in.MarketMeter.EOD.Risk = domain.RiskOn

	v := Decide(in)

	require.Equal(t, domain.PermissionAllow, v.Permission.State)
	require.Equal(t, "LONG", v.Permission.Bias)
	require.Empty(t, v.ReasonCodes)
	require.Nil(t, v.Downgrade)
}

func TestDecideGateOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		reason string
	}{
		{
			name:   "invalid engine5 wins over everything",
			mutate: func(in *Input) { in.Engine5.Invalid = true; in.ZoneContext.WithinZone = false },
			reason: domain.ReasonE5Invalid,
		},
		{
			name:   "new entry outside zone",
			mutate: func(in *Input) { in.ZoneContext.WithinZone = false },
			reason: domain.ReasonNotInZone,
		},
		{
			name:   "reaction failed",
			mutate: func(in *Input) { in.ZoneContext.Flags.ReactionFailed = true },
			reason: domain.ReasonReactionFailed,
		},
		{
			name:   "liquidity fail",
			mutate: func(in *Input) { in.ZoneContext.Flags.LiquidityFail = true },
			reason: domain.ReasonLiquidityFail,
		},
		{
			name:   "eod risk off blocks new entries",
			mutate: func(in *Input) {},
			reason: domain.ReasonEodRiskOff,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput()
			tc.mutate(&in)

			v := Decide(in)

			require.Equal(t, domain.PermissionBlocked, v.Permission.State)
			require.Equal(t, []string{tc.reason}, v.ReasonCodes)
		})
	}
}

func TestDecideRiskOffAllowsManagementActions(t *testing.T) {
	in := baseInput()
	in.MarketMeter.EOD.Risk = domain.RiskOff
	in.Intent.Action = domain.ActionScaleOut

	v := Decide(in)

	require.Equal(t, domain.PermissionAllow, v.Permission.State)
}

func TestDecideScoreThresholds(t *testing.T) {
	tests := []struct {
		total   float64
		state   domain.PermissionState
		reasons []string
	}{
		{total: 70, state: domain.PermissionAllow, reasons: []string{}},
		{total: 69.9, state: domain.PermissionCaution, reasons: []string{}},
		{total: 55, state: domain.PermissionCaution, reasons: []string{}},
		{total: 54.9, state: domain.PermissionCaution, reasons: []string{domain.ReasonLowScore}},
		{total: 40, state: domain.PermissionCaution, reasons: []string{domain.ReasonLowScore}},
		{total: 39.9, state: domain.PermissionBlocked, reasons: []string{domain.ReasonLowScore}},
	}

	for _, tc := range tests {
		in := baseInput()
		in.MarketMeter.EOD.Risk = domain.RiskOn
		in.Engine5.Total = tc.total

		v := Decide(in)

		require.Equalf(t, tc.state, v.Permission.State, "total=%v", tc.total)
		require.Equalf(t, tc.reasons, v.ReasonCodes, "total=%v", tc.total)
	}
}

func TestDecideShelfWithRiskOnDowngrades(t *testing.T) {
	in := baseInput()
	in.MarketMeter.EOD.Risk = domain.RiskOn
	in.ZoneContext.ZoneType = domain.ZoneShelf

	v := Decide(in)

	require.Equal(t, domain.PermissionCaution, v.Permission.State)
	require.Contains(t, v.ReasonCodes, domain.ReasonShelfWithRiskOn)
	require.NotNil(t, v.Downgrade)
	require.Equal(t, domain.PermissionAllow, v.Downgrade.From)
	require.Equal(t, domain.PermissionCaution, v.Downgrade.To)
}

func TestDecideShelfWithoutRiskOnKeepsAllow(t *testing.T) {
	in := baseInput()
	in.MarketMeter.EOD.Risk = "NEUTRAL"
	in.ZoneContext.ZoneType = domain.ZoneShelf

	v := Decide(in)

	require.Equal(t, domain.PermissionAllow, v.Permission.State)
	require.Nil(t, v.Downgrade)
}

func TestDecideIsDeterministic(t *testing.T) {
	in := baseInput()
	in.MarketMeter.EOD.Risk = domain.RiskOn
	in.ZoneContext.ZoneType = domain.ZoneShelf

	first := Decide(in)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, Decide(in))
	}
}
