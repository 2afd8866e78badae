package models

import "fmt"

// Trend is the single rise/fall signal exposed to views.
type Trend int

const (
	Falling Trend = iota
	Rising
)

func TrendFromFlag(flag int) Trend {
	if flag != 0 {
		return Rising
	}
	return Falling
}

func (t Trend) String() string {
	if t == Rising {
		return "rising"
	}
	return "falling"
}

func (t Trend) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Trend) UnmarshalText(b []byte) error {
	switch string(b) {
	case "rising":
		*t = Rising
	case "falling":
		*t = Falling
	default:
		return fmt.Errorf("unknown trend %q", b)
	}
	return nil
}
