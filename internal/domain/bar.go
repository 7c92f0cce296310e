package domain

// Bar is a single OHLCV sample. Time is epoch seconds.
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Valid reports whether the bar satisfies low <= min(open,close) <= max(open,close) <= high.
func (b Bar) Valid() bool {
	lo, hi := b.Open, b.Close
	if lo > hi {
		lo, hi = hi, lo
	}
	return b.Low <= lo && hi <= b.High && b.Volume >= 0
}

// Touches reports whether the bar range overlaps the [lo, hi] price band.
func (b Bar) Touches(lo, hi float64) bool {
	return b.Low <= hi && b.High >= lo
}

// Bars is an ordered bar sequence, strictly ascending by time.
type Bars []Bar

// Sorted reports whether the sequence is strictly ascending by time.
func (bs Bars) Sorted() bool {
	for i := 1; i < len(bs); i++ {
		if bs[i].Time <= bs[i-1].Time {
			return false
		}
	}
	return true
}

// Tail returns the last n bars (or all of them when fewer exist).
func (bs Bars) Tail(n int) Bars {
	if n <= 0 || len(bs) <= n {
		return bs
	}
	return bs[len(bs)-n:]
}

// LastClose returns the close of the most recent bar.
func (bs Bars) LastClose() (float64, bool) {
	if len(bs) == 0 {
		return 0, false
	}
	return bs[len(bs)-1].Close, true
}

// Range returns the highest high and lowest low across the sequence.
func (bs Bars) Range() (high, low float64, ok bool) {
	if len(bs) == 0 {
		return 0, 0, false
	}
	high, low = bs[0].High, bs[0].Low
	for _, b := range bs[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, true
}
