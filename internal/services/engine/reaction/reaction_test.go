package reaction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smzlabs/zonedash/internal/domain"
)

// flatBars builds n identical bars hovering at price, strictly ascending in time.
func flatBars(n int, start int64, price float64) domain.Bars {
	bars := make(domain.Bars, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, domain.Bar{
			Time:   start + int64(i)*600,
			Open:   price,
			High:   price + 0.2,
			Low:    price - 0.2,
			Close:  price,
			Volume: 1000,
		})
	}
	return bars
}

func TestEvaluateScalpStrongBounceConfirms(t *testing.T) {
	zone := Band{Lo: 100, Hi: 101}
	bars := flatBars(10, 1_700_000_000, 103)
	bars = append(bars,
		domain.Bar{Time: 1_700_006_000, Open: 102.8, High: 102.9, Low: 100.5, Close: 100.8, Volume: 5000},
		domain.Bar{Time: 1_700_006_600, Open: 100.8, High: 102.4, Low: 100.6, Close: 102.2, Volume: 8000},
	)

	res, err := Evaluate(Input{
		Bars:      bars,
		Zone:      zone,
		ATR:       1.0,
		Mode:      domain.ModeScalp,
		PrevStage: domain.StageArmed,
	})
	require.NoError(t, err)

	require.True(t, res.InZone)
	require.Equal(t, domain.StageConfirmed, res.Stage)
	require.Equal(t, domain.StructureHold, res.StructureState)
	require.InDelta(t, 10.0, res.ReactionScore, 1e-9)
	require.InDelta(t, 10.0, res.ReclaimOrFailure, 1e-9)
	require.InDelta(t, 1.0, res.TouchQuality, 1e-9)
	require.NotContains(t, res.ReasonCodes, domain.ReasonNotInZone)
}

func TestEvaluateScalpConfirmNeedsPriorArming(t *testing.T) {
	zone := Band{Lo: 100, Hi: 101}
	bars := flatBars(10, 1_700_000_000, 103)
	bars = append(bars,
		domain.Bar{Time: 1_700_006_000, Open: 102.8, High: 102.9, Low: 100.5, Close: 100.8, Volume: 5000},
		domain.Bar{Time: 1_700_006_600, Open: 100.8, High: 102.4, Low: 100.6, Close: 102.2, Volume: 8000},
	)

	res, err := Evaluate(Input{
		Bars:      bars,
		Zone:      zone,
		ATR:       1.0,
		Mode:      domain.ModeScalp,
		PrevStage: domain.StageIdle,
	})
	require.NoError(t, err)

	require.NotEqual(t, domain.StageConfirmed, res.Stage)
}

func TestEvaluateSwingTriggeredExitKeepsScore(t *testing.T) {
	// last close sits beyond the padded band but the exit happened fast,
	// so the reaction still counts
	zone := Band{Lo: 100, Hi: 101}
	bars := make(domain.Bars, 0, 15)
	for i := 0; i < 13; i++ {
		bars = append(bars, domain.Bar{
			Time: 1_700_000_000 + int64(i)*3600, Open: 100.4, High: 100.8, Low: 100.2, Close: 100.5, Volume: 1000,
		})
	}
	bars = append(bars,
		domain.Bar{Time: 1_700_046_800, Open: 100.5, High: 101.0, Low: 100.3, Close: 100.9, Volume: 4000},
		domain.Bar{Time: 1_700_050_400, Open: 100.9, High: 102.2, Low: 100.8, Close: 102.1, Volume: 9000},
	)

	res, err := Evaluate(Input{Bars: bars, Zone: zone, ATR: 1.0, Mode: domain.ModeSwing})
	require.NoError(t, err)

	require.False(t, res.InZone)
	require.Equal(t, domain.StageConfirmed, res.Stage)
	require.Greater(t, res.ReactionScore, 0.0)
	require.NotContains(t, res.ReasonCodes, domain.ReasonNotInZone)
}

func TestEvaluateAwayFromZoneReportsNothing(t *testing.T) {
	zone := Band{Lo: 100, Hi: 101}
	bars := flatBars(12, 1_700_000_000, 110)

	res, err := Evaluate(Input{Bars: bars, Zone: zone, ATR: 1.0, Mode: domain.ModeScalp})
	require.NoError(t, err)

	require.False(t, res.InZone)
	require.Equal(t, domain.StageIdle, res.Stage)
	require.False(t, res.Armed)
	require.Zero(t, res.ReactionScore)
	require.Contains(t, res.ReasonCodes, domain.ReasonNoTouch)
	require.Contains(t, res.ReasonCodes, domain.ReasonNotInZone)
}

func TestEvaluateStructureFailure(t *testing.T) {
	// price touches support, breaks a quarter ATR below and never closes
	// back inside the band
	zone := Band{Lo: 100, Hi: 101, Side: SideLong}
	bars := make(domain.Bars, 0, 15)
	for i := 0; i < 10; i++ {
		bars = append(bars, domain.Bar{
			Time: 1_700_000_000 + int64(i)*3600, Open: 100.5, High: 100.9, Low: 100.3, Close: 100.6, Volume: 1000,
		})
	}
	for i := 10; i < 15; i++ {
		price := 99.4 - 0.2*float64(i-10)
		bars = append(bars, domain.Bar{
			Time: 1_700_000_000 + int64(i)*3600, Open: price + 0.1, High: price + 0.3, Low: price - 0.2, Close: price, Volume: 2000,
		})
	}

	res, err := Evaluate(Input{Bars: bars, Zone: zone, ATR: 1.0, Mode: domain.ModeSwing})
	require.NoError(t, err)

	require.Equal(t, domain.StructureFailure, res.StructureState)
	require.Contains(t, res.ReasonCodes, domain.ReasonFailure)
	require.Zero(t, res.ReclaimOrFailure)
}

func TestEvaluateInputErrors(t *testing.T) {
	bars := flatBars(30, 1_700_000_000, 100.5)
	zone := Band{Lo: 100, Hi: 101}

	_, err := Evaluate(Input{Bars: bars, Zone: zone, ATR: 0, Mode: domain.ModeScalp})
	require.ErrorIs(t, err, ErrATRUnavailable)

	_, err = Evaluate(Input{Bars: bars[:5], Zone: zone, ATR: 1, Mode: domain.ModeScalp})
	require.ErrorIs(t, err, ErrBarsUnavailable)

	_, err = Evaluate(Input{Bars: bars, Zone: zone, ATR: 1, Mode: domain.Mode("daytrade")})
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestEvaluateSkipsMalformedBars(t *testing.T) {
	bars := flatBars(12, 1_700_000_000, 100.5)
	// a bar whose high sits below its close must not count toward lookback
	bars = append(bars, domain.Bar{Time: 1_700_007_200, Open: 100, High: 99, Low: 98, Close: 100.5, Volume: 10})

	res, err := Evaluate(Input{Bars: bars, Zone: Band{Lo: 100, Hi: 101}, ATR: 1.0, Mode: domain.ModeScalp})
	require.NoError(t, err)
	require.Equal(t, 12, res.Samples)
}

func TestPresetsLocked(t *testing.T) {
	for _, mode := range []domain.Mode{domain.ModeScalp, domain.ModeSwing, domain.ModeLong} {
		p, ok := PresetFor(mode)
		require.True(t, ok)
		require.Greater(t, p.LookbackBars, 0)
		require.GreaterOrEqual(t, p.LookbackBars, p.WindowBars)
		require.InDelta(t, 7.0, p.ConfirmScore, 1e-9)
	}

	_, ok := PresetFor(domain.Mode("daytrade"))
	require.False(t, ok)
}
