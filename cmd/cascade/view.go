package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/daviddao/cascadance/internal/timeline"
)

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1E1E2E")).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6C7086")).
				Background(lipgloss.Color("#313244")).
				Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	playStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")).
			Bold(true)

	menuStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAB387"))

	tooltipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#1E1E2E")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#89B4FA"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#1E1E2E"))
)

// contextHelp returns help text appropriate for the current interaction.
func (m uiModel) contextHelp() string {
	switch {
	case m.prompting():
		return "enter: save tag | tab: complete | esc: cancel"
	case m.editing >= 0:
		return "r: rename | d: delete | m: move | esc: close"
	case m.analyzing:
		return "analyzing audio... | q: quit"
	}
	if mv, ok := m.editor.Mode().(*timeline.Moving); ok {
		if mv.Colliding {
			return "no room here | right click/esc: cancel"
		}
		return "click: place | right click/esc: cancel"
	}
	return "click: seek | right drag: tag range | right click: edit | wheel/+/-: zoom | space: play | ?: help | q: quit"
}

// --- View rendering ---

func (m uiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(m.renderTitleBar())
	b.WriteRune('\n')
	b.WriteString(m.renderToolbar())
	b.WriteRune('\n')

	lines := m.renderCanvas()
	if len(lines) > 0 {
		b.WriteString(truncateLines(strings.Join(lines, "\n"), m.width))
		b.WriteRune('\n')
	}

	footer := m.renderStatusBar()
	if m.showHelp {
		footer = m.help.View(keys)
	}

	// Pad to fill screen.
	rendered := strings.Count(b.String(), "\n")
	for rendered < m.height-strings.Count(footer, "\n")-1 {
		b.WriteRune('\n')
		rendered++
	}

	b.WriteString(footer)
	return b.String()
}

func (m uiModel) renderTitleBar() string {
	title := titleStyle.Render("cascade") + " " + filepath.Base(m.track)

	var stats []string
	if m.snap != nil {
		stats = append(stats,
			fmt.Sprintf("%d segments", m.snap.TotalSegments),
			fmt.Sprintf("%.0f%% tagged", m.snap.Coverage*100))
	}
	if n := m.editor.Tracks().Len(); n > 0 {
		stats = append(stats, humanize.Comma(int64(n))+" samples")
	}
	if m.fileSize > 0 {
		stats = append(stats, humanize.Bytes(uint64(m.fileSize)))
	}
	if !m.lastSave.IsZero() {
		stats = append(stats, "saved "+humanize.Time(m.lastSave))
	}
	right := dimStyle.Render(strings.Join(stats, " | "))
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(right)-1))
	return truncateLines(title+gap+right, m.width)
}

// renderToolbar shows the tag prompt or edit menu when one is open, and
// otherwise the transport, zoom and colour mode.
func (m uiModel) renderToolbar() string {
	if m.prompting() {
		return m.prompt.View()
	}
	if seg := m.segments.At(m.editing); m.editing >= 0 && seg != nil {
		return menuStyle.Render(fmt.Sprintf("Edit %s [%s - %s]: (r)ename (d)elete (m)ove",
			seg.Tag, clock(seg.Start), clock(seg.End)))
	}

	state := dimStyle.Render("||")
	if m.playing {
		state = playStyle.Render(">")
	}
	pos := fmt.Sprintf("%s / %s", clock(m.state.position), clock(m.editor.Viewport().Duration))

	mode := "Hue"
	if m.mode == timeline.ColorMix {
		mode = "Mix"
	}
	parts := []string{
		state + " " + pos,
		tabActiveStyle.Render(m.editor.ZoomLabel()),
		tabInactiveStyle.Render("COLOR: " + mode),
	}
	return strings.Join(parts, " ")
}

// renderCanvas draws the editor and lays the hover tooltip over it.
func (m uiModel) renderCanvas() []string {
	if m.canvasRows == 0 {
		return nil
	}
	m.editor.Render(m.canvas, m.state.position)
	lines := m.canvas.Lines()

	if _, idle := m.editor.Mode().(timeline.Idle); !idle || m.prompting() {
		return lines
	}
	h := m.editor.Hovered()
	tip := h.Tooltip()
	if tip == "" {
		return lines
	}
	box := strings.Split(tooltipStyle.Render(tip), "\n")
	bw := lipgloss.Width(box[0])

	// Below and right of the pointer, flipped near the right or bottom edge.
	col, row := int(h.X)/cellWidth, int(h.Y)/cellHeight
	x, y := col+2, row+1
	if x+bw > m.width {
		x = col - 1 - bw
	}
	if y+len(box) > len(lines) {
		y = row - len(box)
	}
	x, y = max(x, 0), max(y, 0)
	for i, bl := range box {
		if y+i < len(lines) {
			lines[y+i] = overlay(lines[y+i], bl, x)
		}
	}
	return lines
}

// overlay replaces the cells of line starting at col with s.
func overlay(line, s string, col int) string {
	left := ansi.Truncate(line, col, "")
	if pad := col - lipgloss.Width(left); pad > 0 {
		left += strings.Repeat(" ", pad)
	}
	right := ansi.TruncateLeft(line, col+lipgloss.Width(s), "")
	return left + s + right
}

func (m uiModel) renderStatusBar() string {
	left := " " + m.contextHelp()
	if m.status != "" {
		left = " " + errorStyle.Render(m.status)
	}
	h := m.editor.Hovered()
	right := fmt.Sprintf("%s | %s ", m.editor.Mode(), h.Cursor)
	left = ansi.Truncate(left, max(0, m.width-len(right)-1), "…")
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(left)-len(right)))
	return truncateLines(statusBarStyle.Render(left+gap+right), m.width)
}

// truncateLines truncates each line in content to at most width visible
// characters, preserving ANSI escape codes. This prevents terminal line
// wrapping when the window is resized narrower.
func truncateLines(content string, width int) string {
	if width <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = ansi.Truncate(line, width, "")
		}
	}
	return strings.Join(lines, "\n")
}

// clock formats seconds as m:ss.t.
func clock(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	tenths := int(sec*10 + 0.5)
	return fmt.Sprintf("%d:%02d.%d", tenths/600, tenths/10%60, tenths%10)
}
