package core

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// FormatYen renders an amount with digit grouping, e.g. "¥1,234" or "-¥1,234".
func FormatYen(n int64) string {
	if n < 0 {
		return "-¥" + humanize.Comma(-n)
	}
	return "¥" + humanize.Comma(n)
}

// FormatJapaneseDate renders a YYYY-MM-DD date as "2026年1月15日".
// Unparsable input is returned unchanged.
func FormatJapaneseDate(date string) string {
	d, err := ParseDate(date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%d年%d月%d日", d.Year(), int(d.Month()), d.Day())
}

// MonthLabel renders "2026年1月".
func MonthLabel(year, month int) string {
	return fmt.Sprintf("%d年%d月", year, month)
}
