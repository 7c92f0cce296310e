package domain

// Mode selects a reaction-engine preset.
type Mode string

const (
	ModeScalp Mode = "scalp"
	ModeSwing Mode = "swing"
	ModeLong  Mode = "long"
)

// StrategyCard is one dashboard card. The Wave* fields describe the Elliott
// view the card displays, which intentionally differs from the card's own
// tf/degree.
type StrategyCard struct {
	ID         string
	TF         string
	Degree     string
	Wave       string
	Mode       Mode
	WaveDegree string // Engine 2 display degree
	WaveTF     string // Engine 2 display timeframe
}

// StrategyCards are the three locked dashboard strategies.
var StrategyCards = []StrategyCard{
	{ID: "intraday_scalp@10m", TF: "10m", Degree: "minute", Wave: "W1", Mode: ModeScalp, WaveDegree: "minor", WaveTF: "1h"},
	{ID: "minor_swing@1h", TF: "1h", Degree: "minor", Wave: "W1", Mode: ModeSwing, WaveDegree: "intermediate", WaveTF: "1h"},
	{ID: "intermediate_long@4h", TF: "4h", Degree: "intermediate", Wave: "W1", Mode: ModeLong, WaveDegree: "primary", WaveTF: "1d"},
}

// CardByID looks a strategy card up by its id.
func CardByID(id string) (StrategyCard, bool) {
	for _, c := range StrategyCards {
		if c.ID == id {
			return c, true
		}
	}
	return StrategyCard{}, false
}
