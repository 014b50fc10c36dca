// Package chart provides sparkline rendering for soil metrics with
// threshold-colored blocks and minute tick marks on the timeline.
package chart

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Point is one charted value with its sample time.
type Point struct {
	Value float64
	Time  time.Time
}

// Band is the acceptable range for a metric. A value outside the band
// is in violation; a value close to a bound is a warning. The zero
// value means unbounded.
type Band struct {
	Low     float64
	High    float64
	HasLow  bool
	HasHigh bool
}

// nearFraction of the band span counts as "approaching a bound".
const nearFraction = 0.1

// ValueColor returns the color for a value relative to its band.
func ValueColor(v float64, b Band) lipgloss.Color {
	switch {
	case b.HasLow && v < b.Low:
		return lipgloss.Color("196") // red
	case b.HasHigh && v > b.High:
		return lipgloss.Color("196")
	case nearBound(v, b):
		return lipgloss.Color("220") // yellow
	default:
		return lipgloss.Color("78") // soft green
	}
}

func nearBound(v float64, b Band) bool {
	span := bandSpan(b)
	if b.HasLow && v < b.Low+span*nearFraction {
		return true
	}
	if b.HasHigh && v > b.High-span*nearFraction {
		return true
	}
	return false
}

func bandSpan(b Band) float64 {
	switch {
	case b.HasLow && b.HasHigh:
		return b.High - b.Low
	case b.HasLow:
		return math.Abs(b.Low)
	case b.HasHigh:
		return math.Abs(b.High)
	default:
		return 0
	}
}

// RenderSparkline renders the points as color-coded blocks scaled to
// [rangeMin, rangeMax], with a subtle pipe at each minute boundary.
func RenderSparkline(points []Point, width int, rangeMin, rangeMax float64, band Band) string {
	if width <= 0 {
		return ""
	}

	if len(points) == 0 {
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
		return dim.Render(strings.Repeat("╌", width))
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)
	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	for i := 0; i < padLen; i++ {
		sb.WriteString(dim.Render("╌"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i, p := range points {
		norm := (p.Value - rangeMin) / span
		norm = math.Max(0, math.Min(1, norm))

		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}

		if isMinuteTick(points, i) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}

		color := ValueColor(p.Value, band)
		style := lipgloss.NewStyle().Foreground(color)
		if color == lipgloss.Color("196") {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}

	return sb.String()
}

func isMinuteTick(points []Point, i int) bool {
	p := points[i]
	if p.Time.IsZero() {
		return false
	}
	if p.Time.Second() == 0 {
		return true
	}
	if i > 0 && !points[i-1].Time.IsZero() {
		return p.Time.Minute() != points[i-1].Time.Minute()
	}
	return false
}

// RenderTimeline renders HH:MM labels under the sparkline at each
// minute tick position.
func RenderTimeline(points []Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	type tick struct {
		pos   int
		label string
	}
	var ticks []tick

	for i, p := range points {
		if isMinuteTick(points, i) {
			ticks = append(ticks, tick{pos: padLen + i, label: p.Time.Format("15:04")})
		}
	}

	lastEnd := -1
	for _, t := range ticks {
		start := t.pos - 2
		if start < 0 {
			start = 0
		}
		end := start + len(t.label)
		if end > width {
			continue
		}
		if start <= lastEnd+1 {
			continue
		}
		for j, ch := range t.label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	return lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render(string(line))
}

// RenderValue renders a measurement with its unit, color-coded against
// the band.
func RenderValue(v float64, unit string, decimals int, band Band) string {
	s := fmt.Sprintf("%.*f%s", decimals, v, unit)
	color := ValueColor(v, band)
	style := lipgloss.NewStyle().Foreground(color)
	if color == lipgloss.Color("196") {
		style = style.Bold(true)
	}
	return style.Render(s)
}
