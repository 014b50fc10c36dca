// Package monitor implements the soil telemetry dashboard TUI using
// BubbleTea. It is a stateless consumer of the session's read API:
// readings, latest sample, and active alerts are polled on each tick.
package monitor

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/soilmon/internal/alert"
	"github.com/luki/soilmon/internal/chart"
	"github.com/luki/soilmon/internal/config"
	"github.com/luki/soilmon/internal/export"
	"github.com/luki/soilmon/internal/session"
	"github.com/luki/soilmon/internal/telemetry"
	"github.com/luki/soilmon/internal/window"
)

const pollInterval = 1 * time.Second

// metric describes how one measurement renders.
type metric struct {
	name     string
	unit     string
	decimals int
	band     chart.Band
	value    func(telemetry.Reading) float64
}

var metrics = []metric{
	{"Moisture", "%", 1,
		chart.Band{Low: alert.MoistureLow, HasLow: true},
		func(r telemetry.Reading) float64 { return r.Moisture }},
	{"Temperature", "°C", 1,
		chart.Band{High: alert.TempHigh, HasHigh: true},
		func(r telemetry.Reading) float64 { return r.Temperature }},
	{"EC", " µS/cm", 0,
		chart.Band{},
		func(r telemetry.Reading) float64 { return r.EC }},
	{"pH", "", 2,
		chart.Band{Low: alert.PHMin, High: alert.PHMax, HasLow: true, HasHigh: true},
		func(r telemetry.Reading) float64 { return r.PH }},
	{"Nitrogen", "", 0,
		chart.Band{},
		func(r telemetry.Reading) float64 { return r.Nitrogen }},
	{"Phosphorus", "", 0,
		chart.Band{},
		func(r telemetry.Reading) float64 { return r.Phosphorus }},
	{"Potassium", "", 0,
		chart.Band{},
		func(r telemetry.Reading) float64 { return r.Potassium }},
}

// filterSpans are the range filters cycled by the f key.
var filterSpans = []struct {
	label string
	span  time.Duration
}{
	{"all", 0},
	{"1h", time.Hour},
	{"24h", 24 * time.Hour},
}

// ── Messages ─────────────────────────────────────────────────────────

type tickMsg time.Time

type stateMsg struct {
	readings  []telemetry.Reading
	latest    telemetry.Reading
	hasLatest bool
	alerts    []string
	err       error
	at        time.Time
}

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the dashboard.
type Model struct {
	sess *session.Session
	cfg  config.Config

	readings  []telemetry.Reading
	latest    telemetry.Reading
	hasLatest bool
	alerts    []string
	err       error

	filterIdx int
	statusMsg string
	width     int
	height    int
	scroll    int
	lastPoll  time.Time
	startTime time.Time
	paused    bool
}

// New creates the initial dashboard model for a running session.
func New(sess *session.Session, cfg config.Config) Model {
	return Model{
		sess:      sess,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// ── Commands ─────────────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) pollCmd() tea.Cmd {
	sess := m.sess
	rng := m.currentRange()
	return func() tea.Msg {
		latest, ok := sess.Latest()
		return stateMsg{
			readings:  sess.Readings(rng),
			latest:    latest,
			hasLatest: ok,
			alerts:    sess.ActiveAlerts(),
			err:       sess.Err(),
			at:        time.Now(),
		}
	}
}

func (m Model) currentRange() *window.Range {
	span := filterSpans[m.filterIdx].span
	if span == 0 {
		return nil
	}
	now := time.Now()
	return &window.Range{
		Start: now.Add(-span).UnixMilli(),
		End:   now.UnixMilli(),
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.sess.Close()
			return m, tea.Quit
		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		case "home":
			m.scroll = 0
		case " ", "p":
			m.paused = !m.paused
		case "f":
			m.filterIdx = (m.filterIdx + 1) % len(filterSpans)
			return m, m.pollCmd()
		case "e":
			m.statusMsg = m.doExport()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.paused {
			return m, tickCmd()
		}
		return m, tea.Batch(m.pollCmd(), tickCmd())

	case stateMsg:
		m.readings = msg.readings
		m.latest = msg.latest
		m.hasLatest = msg.hasLatest
		m.alerts = msg.alerts
		m.err = msg.err
		m.lastPoll = msg.at
	}

	return m, nil
}

// doExport writes the current (filtered) window as CSV next to the
// working directory and reports the outcome for the status line.
func (m Model) doExport() string {
	name := export.Filename(m.cfg.ExportBase, time.Now())
	data := m.sess.Export(m.currentRange())
	if err := os.WriteFile(name, []byte(data), 0644); err != nil {
		return fmt.Sprintf("export failed: %v", err)
	}
	return "exported " + name
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("22")
	colorTitleFg  = lipgloss.Color("114")
	colorBorder   = lipgloss.Color("65")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorAlert    = lipgloss.Color("196")
	colorPaused   = lipgloss.Color("196")
	colorValue    = lipgloss.Color("250")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string

	sections = append(sections, m.renderTitleBar(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorAlert).
			Bold(true).
			Width(contentWidth).
			Padding(0, 1).
			Render(fmt.Sprintf(" LIVE FEED DOWN: %v", m.err))
		sections = append(sections, errBox)
	}

	if len(m.alerts) > 0 {
		sections = append(sections, m.renderAlerts(contentWidth))
	}

	if len(m.readings) == 0 {
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Waiting for sensor data...")
		sections = append(sections, waiting)
	} else {
		sections = append(sections, m.renderMetricPanels(contentWidth)...)
	}

	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}

	start := m.scroll
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("SOIL MONITOR")

	var statusParts []string

	statusParts = append(statusParts, lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime)))))

	if !m.lastPoll.IsZero() {
		statusParts = append(statusParts, lipgloss.NewStyle().
			Foreground(colorDim).
			Render(m.lastPoll.Format("15:04:05")))
	}

	statusParts = append(statusParts, lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("window %d", len(m.readings))))

	if m.filterIdx != 0 {
		statusParts = append(statusParts, lipgloss.NewStyle().
			Foreground(colorTitleFg).
			Render("last "+filterSpans[m.filterIdx].label))
	}

	if m.paused {
		statusParts = append(statusParts, lipgloss.NewStyle().
			Foreground(colorPaused).
			Bold(true).
			Render("PAUSED"))
	}

	if m.statusMsg != "" {
		statusParts = append(statusParts, lipgloss.NewStyle().
			Foreground(colorLabel).
			Render(m.statusMsg))
	}

	sep := lipgloss.NewStyle().Foreground(colorDim).Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderAlerts(width int) string {
	style := lipgloss.NewStyle().Foreground(colorAlert).Bold(true)
	var rows []string
	for _, msg := range m.alerts {
		rows = append(rows, style.Render("▲ "+msg))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAlert).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderMetricPanels(totalWidth int) []string {
	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}

	chartWidth := innerWidth - 50
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	labelW := 12
	valueW := 11

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(colorValue)
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var rows []string
	var lastPts []chart.Point

	for _, mt := range metrics {
		pts := make([]chart.Point, 0, len(m.readings))
		lo, hi, sum := math.MaxFloat64, -math.MaxFloat64, 0.0
		for _, r := range m.readings {
			v := mt.value(r)
			pts = append(pts, chart.Point{Value: v, Time: time.UnixMilli(r.Timestamp)})
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			sum += v
		}
		avg := sum / float64(len(pts))

		rangeMin, rangeMax := chartRange(lo, hi, mt.band)

		label := lipgloss.NewStyle().
			Foreground(colorLabel).
			Width(labelW).
			Render(mt.name)

		current := mt.value(m.latest)
		value := lipgloss.NewStyle().
			Width(valueW).
			Align(lipgloss.Right).
			Render(chart.RenderValue(current, mt.unit, mt.decimals, mt.band))

		if len(pts) > chartWidth {
			lastPts = pts[len(pts)-chartWidth:]
		} else {
			lastPts = pts
		}
		spark := chart.RenderSparkline(pts, chartWidth, rangeMin, rangeMax, mt.band)

		stats := dimS.Render(" avg") + valS.Render(fmt.Sprintf("%7.1f", avg)) +
			dimS.Render(" lo") + valS.Render(fmt.Sprintf("%7.1f", lo)) +
			dimS.Render(" hi") + valS.Render(fmt.Sprintf("%7.1f", hi))

		rows = append(rows, label+" "+value+" "+frameL+spark+frameR+stats)
	}

	if len(lastPts) > 0 {
		timeline := chart.RenderTimeline(lastPts, chartWidth)
		if strings.TrimSpace(timeline) != "" {
			pad := strings.Repeat(" ", labelW+valueW+2)
			rows = append(rows, pad+" "+timeline)
		}
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))

	return []string{panel}
}

// chartRange widens the observed span a little and pulls band bounds
// into view so threshold crossings are visible on the sparkline.
func chartRange(lo, hi float64, b chart.Band) (float64, float64) {
	min := lo - (hi-lo)*0.1
	max := hi + (hi-lo)*0.1
	if b.HasLow && b.Low < min {
		min = b.Low
	}
	if b.HasHigh && b.High > max {
		max = b.High
	}
	if max <= min {
		max = min + 1
	}
	return min, max
}

func (m Model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  e") + keyS.Render(":export") +
		dimS.Render("  f") + keyS.Render(":filter") +
		dimS.Render("  j/k") + keyS.Render(":scroll") +
		dimS.Render("  p") + keyS.Render(":pause")

	legend := dimS.Render("thresholds: moisture<20  ph 6–8.5  temp>60")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + strings.Repeat(" ", gap) + keys)
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	min := d / time.Minute
	d -= min * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, min, s)
	}
	return fmt.Sprintf("%dm%02ds", min, s)
}
