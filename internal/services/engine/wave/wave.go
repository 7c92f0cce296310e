// Package wave adapts the external Fib-levels payloads into the compact
// Elliott block the dashboard cards display: wave phase plus a fib score.
package wave

import "fmt"

// waveOrder is the Elliott wave key sequence the phase walk follows.
var waveOrder = []string{"W1", "W2", "W3", "W4", "W5"}

// Mark is one labeled wave point of a fib payload.
type Mark struct {
	TSec  int64   `json:"tSec"`
	Price float64 `json:"price,omitempty"`
}

// FibPayload is the external fib-levels contract for one (degree, wave).
type FibPayload struct {
	OK            bool            `json:"ok"`
	Symbol        string          `json:"symbol,omitempty"`
	TF            string          `json:"tf,omitempty"`
	Degree        string          `json:"degree,omitempty"`
	Wave          string          `json:"wave,omitempty"`
	Invalidated   bool            `json:"invalidated"`
	InRetraceZone bool            `json:"inRetraceZone"`
	Near50        bool            `json:"near50"`
	WaveMarks     map[string]Mark `json:"waveMarks,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

// Block is the per-card Elliott summary.
type Block struct {
	OK       bool   `json:"ok"`
	FibScore int    `json:"fibScore"`
	Phase    string `json:"phase,omitempty"`
	NextMark string `json:"nextMark,omitempty"`
	Wave     string `json:"wave,omitempty"`
	Degree   string `json:"degree,omitempty"`
	TF       string `json:"tf,omitempty"`
}

// Summarize prefers the W1 payload when it is ok, falls back to W4, and
// derives {phase, fibScore} against the card's last bar time in seconds.
func Summarize(w1, w4 *FibPayload, lastBarSec int64) Block {
	payload := w1
	if payload == nil || !payload.OK {
		payload = w4
	}
	if payload == nil || !payload.OK {
		return Block{OK: false, FibScore: 0}
	}

	block := Block{
		OK:     true,
		Wave:   payload.Wave,
		Degree: payload.Degree,
		TF:     payload.TF,
	}

	if !payload.Invalidated {
		if payload.InRetraceZone {
			block.FibScore += 10
		}
		if payload.Near50 {
			block.FibScore += 10
		}
	}

	block.Phase, block.NextMark = phase(payload.WaveMarks, lastBarSec)
	return block
}

// phase walks the wave marks against the last bar time. UNKNOWN when there
// are no marks or no usable bar time, PRE_W1 before the first mark,
// IN_<Wk> otherwise.
func phase(marks map[string]Mark, lastBarSec int64) (string, string) {
	if len(marks) == 0 || lastBarSec <= 0 {
		return "UNKNOWN", ""
	}

	lastKey := ""
	for _, key := range waveOrder {
		mark, ok := marks[key]
		if !ok {
			continue
		}
		if mark.TSec <= lastBarSec {
			lastKey = key
		}
	}

	next := nextMark(marks, lastKey)
	if lastKey == "" {
		return "PRE_W1", next
	}
	return fmt.Sprintf("IN_%s", lastKey), next
}

// nextMark returns the first present wave after lastKey.
func nextMark(marks map[string]Mark, lastKey string) string {
	seen := lastKey == ""
	for _, key := range waveOrder {
		if seen {
			if _, ok := marks[key]; ok {
				return key
			}
			continue
		}
		if key == lastKey {
			seen = true
		}
	}
	return ""
}
