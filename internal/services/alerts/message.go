package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/smzlabs/zonedash/internal/domain"
)

const maxReasonCodes = 4

// azLocation is the operator's display timezone for cooldown times.
var azLocation = func() *time.Location {
	loc, err := time.LoadLocation("America/Phoenix")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// ComposeMessage builds the push title and body for a GO signal.
func ComposeMessage(symbol string, sig domain.GoSignal) (title, body string) {
	direction := sig.Direction
	if direction == "" {
		direction = "GO"
	}
	title = fmt.Sprintf("%s GO %s", symbol, direction)

	var lines []string
	if sig.TriggerType != "" {
		trigger := sig.TriggerType
		if sig.TriggerLine != "" {
			trigger = fmt.Sprintf("%s @ %s", trigger, sig.TriggerLine)
		}
		lines = append(lines, "Trigger: "+trigger)
	}
	if sig.Price > 0 {
		lines = append(lines, fmt.Sprintf("Price: %.2f", sig.Price))
	}
	if sig.AtUTC != "" {
		lines = append(lines, "At: "+sig.AtUTC)
	}
	if sig.CooldownUntilMs > 0 {
		until := time.UnixMilli(sig.CooldownUntilMs).In(azLocation)
		lines = append(lines, "Cooldown until "+until.Format("3:04 PM MST"))
	}
	if len(sig.ReasonCodes) > 0 {
		codes := sig.ReasonCodes
		if len(codes) > maxReasonCodes {
			codes = codes[:maxReasonCodes]
		}
		lines = append(lines, "Reasons: "+strings.Join(codes, ", "))
	}
	return title, strings.Join(lines, "\n")
}
