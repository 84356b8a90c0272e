package notification

import "fmt"

// BreakerAlert reports a circuit breaker transition. Opening is critical,
// recovery is informational.
func BreakerAlert(name, from, to string) Alert {
	level := AlertInfo
	switch to {
	case "open":
		level = AlertCritical
	case "half-open":
		level = AlertWarning
	}
	return Alert{
		Level:   level,
		Title:   fmt.Sprintf("%s circuit %s", name, to),
		Message: fmt.Sprintf("%s breaker moved from %s to %s", name, from, to),
		Fields:  map[string]any{"breaker": name, "from": from, "to": to},
	}
}
