// Package chart computes SVG geometry for the category breakdown pie chart.
package chart

import (
	"fmt"
	"math"
	"strconv"

	"kakeibo/internal/core"
)

const (
	// ViewBox is the SVG viewBox used by the rendered chart.
	ViewBox = "0 0 200 200"

	centerX = 100.0
	centerY = 100.0
	radius  = 90.0

	startAngle = -90.0
)

// Palette is cycled by slice index.
var Palette = []string{
	"#ef4444", "#f97316", "#f59e0b", "#eab308",
	"#84cc16", "#22c55e", "#10b981", "#14b8a6",
	"#06b6d4", "#0ea5e9", "#3b82f6", "#6366f1",
	"#8b5cf6", "#a855f7", "#d946ef", "#ec4899",
}

// Slice is one rendered pie segment.
type Slice struct {
	Category   string
	Color      string
	StartAngle float64
	EndAngle   float64
	// Path is the SVG path for the segment. Empty when FullCircle is set.
	Path       string
	FullCircle bool
}

// LegendEntry is one row of the legend next to the chart.
type LegendEntry struct {
	Color      string
	Category   string
	Amount     string
	Percentage string
}

// Color returns the palette colour for the i-th entry.
func Color(i int) string {
	return Palette[i%len(Palette)]
}

// Pie lays out slices clockwise from 12 o'clock. Entries with no amount
// produce no visible slice but keep their palette position.
func Pie(data []core.CategoryBreakdown) []Slice {
	total := core.BreakdownTotal(data)
	if total <= 0 {
		return nil
	}

	slices := make([]Slice, 0, len(data))
	current := startAngle
	for i, d := range data {
		sweep := float64(d.Amount) / float64(total) * 360
		s := Slice{
			Category:   d.Category,
			Color:      Color(i),
			StartAngle: current,
			EndAngle:   current + sweep,
		}
		if d.Amount == total {
			s.FullCircle = true
		} else if d.Amount > 0 {
			s.Path = slicePath(s.StartAngle, s.EndAngle)
		}
		current = s.EndAngle
		slices = append(slices, s)
	}
	return slices
}

// slicePath builds "M cx cy L sx sy A r r 0 large 1 ex ey Z".
func slicePath(start, end float64) string {
	sx, sy := point(start)
	ex, ey := point(end)
	large := 0
	if end-start > 180 {
		large = 1
	}
	return fmt.Sprintf("M %s %s L %s %s A %s %s 0 %d 1 %s %s Z",
		num(centerX), num(centerY),
		num(sx), num(sy),
		num(radius), num(radius),
		large,
		num(ex), num(ey))
}

func point(angleDeg float64) (float64, float64) {
	rad := angleDeg * math.Pi / 180
	return centerX + radius*math.Cos(rad), centerY + radius*math.Sin(rad)
}

// num prints a coordinate with at most 3 decimals and no trailing zeros.
func num(v float64) string {
	v = math.Round(v*1000) / 1000
	if v == 0 {
		v = 0 // normalise -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Legend pairs each breakdown entry with its slice colour.
func Legend(data []core.CategoryBreakdown) []LegendEntry {
	out := make([]LegendEntry, 0, len(data))
	for i, d := range data {
		out = append(out, LegendEntry{
			Color:      Color(i),
			Category:   d.Category,
			Amount:     core.FormatYen(d.Amount),
			Percentage: strconv.FormatFloat(d.Percentage, 'f', 1, 64) + "%",
		})
	}
	return out
}
