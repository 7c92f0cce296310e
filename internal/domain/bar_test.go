package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBarValid(t *testing.T) {
	require.True(t, Bar{Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10}.Valid())
	require.True(t, Bar{Open: 100, High: 100, Low: 100, Close: 100}.Valid())

	require.False(t, Bar{Open: 100, High: 99, Low: 98, Close: 100.5}.Valid())   // close above high
	require.False(t, Bar{Open: 97, High: 101, Low: 99, Close: 100}.Valid())     // open below low
	require.False(t, Bar{Open: 100, High: 101, Low: 99, Close: 100, Volume: -1}.Valid())
}

func TestBarTouches(t *testing.T) {
	b := Bar{High: 101, Low: 99}

	require.True(t, b.Touches(100, 102))
	require.True(t, b.Touches(101, 105)) // edge contact counts
	require.True(t, b.Touches(95, 99))
	require.False(t, b.Touches(101.01, 105))
	require.False(t, b.Touches(95, 98.99))
}

func TestBarsSorted(t *testing.T) {
	require.True(t, Bars{{Time: 1}, {Time: 2}, {Time: 3}}.Sorted())
	require.False(t, Bars{{Time: 1}, {Time: 1}}.Sorted())
	require.False(t, Bars{{Time: 2}, {Time: 1}}.Sorted())
	require.True(t, Bars{}.Sorted())
}

func TestBarsTail(t *testing.T) {
	bs := Bars{{Time: 1}, {Time: 2}, {Time: 3}}

	require.Len(t, bs.Tail(2), 2)
	require.Equal(t, int64(2), bs.Tail(2)[0].Time)
	require.Len(t, bs.Tail(10), 3)
	require.Len(t, bs.Tail(0), 3)
}

func TestBarsRange(t *testing.T) {
	bs := Bars{
		{High: 101, Low: 99},
		{High: 103, Low: 100},
		{High: 102, Low: 98},
	}

	high, low, ok := bs.Range()
	require.True(t, ok)
	require.InDelta(t, 103, high, 1e-9)
	require.InDelta(t, 98, low, 1e-9)

	_, _, ok = Bars{}.Range()
	require.False(t, ok)
}

func TestGoKey(t *testing.T) {
	sig := GoSignal{Direction: "LONG", AtUTC: "2025-06-02T14:29:40Z"}
	require.Equal(t, "SPY|intraday_scalp@10m|LONG|2025-06-02T14:29:40Z",
		GoKey("SPY", "intraday_scalp@10m", sig))
}
