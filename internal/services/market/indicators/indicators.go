// Package indicators wraps the cinar/indicator library for the handful of
// technical values the engines consume.
package indicators

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/volatility"

	"github.com/smzlabs/zonedash/internal/domain"
)

// CalculateATR calculates the Wilder Average True Range series for the
// given period.
func CalculateATR(bars domain.Bars, period int) ([]float64, error) {
	if len(bars) < period+1 {
		return nil, fmt.Errorf("not enough data points for ATR: need %d, got %d", period+1, len(bars))
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}

	atr := volatility.NewAtrWithPeriod[float64](period)
	highChan := helper.SliceToChan(highs)
	lowChan := helper.SliceToChan(lows)
	closeChan := helper.SliceToChan(closes)
	outputChan := atr.Compute(highChan, lowChan, closeChan)

	return helper.ChanToSlice(outputChan), nil
}

// LatestATR returns the most recent ATR value. ok is false when the series
// cannot be computed or the last value is not a finite positive number.
func LatestATR(bars domain.Bars, period int) (float64, bool) {
	series, err := CalculateATR(bars, period)
	if err != nil || len(series) == 0 {
		return 0, false
	}
	last := series[len(series)-1]
	if math.IsNaN(last) || math.IsInf(last, 0) || last <= 0 {
		return 0, false
	}
	return last, true
}
