package viewer

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"trade-viewer/internal/refdata"
)

var printer = message.NewPrinter(language.Japanese)

// TimeAgo renders the age of a snapshot in whole minutes.
func TimeAgo(fetchTime, now time.Time) string {
	if fetchTime.IsZero() {
		return ""
	}
	minutes := int(now.Sub(fetchTime) / time.Minute)
	if minutes < 1 {
		return "ただ今"
	}
	return fmt.Sprintf("%d分前", minutes)
}

// FormatPercent renders a quota multiplier as a whole percentage.
func FormatPercent(quota float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(quota*100)))
}

// FormatPrice renders a price with thousands separators.
func FormatPrice(price float64) string {
	return printer.Sprint(number.Decimal(price, number.MaxFractionDigits(2)))
}

// StationName falls back to the raw id when the station is unmapped.
func StationName(names refdata.Names, stationID string) string {
	return names.NameOr(stationID)
}
