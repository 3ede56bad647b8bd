package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"colloquy/engine"
	"colloquy/store"
)

type tickMsg time.Time

var statusColors = map[engine.Status]string{
	engine.StatusIdle:       "241",
	engine.StatusListening:  "42",
	engine.StatusProcessing: "220",
	engine.StatusThinking:   "214",
	engine.StatusSpeaking:   "39",
	engine.StatusError:      "196",
}

var statusGlyphs = map[engine.Status]string{
	engine.StatusIdle:       "○",
	engine.StatusListening:  "●",
	engine.StatusProcessing: "◐",
	engine.StatusThinking:   "◌",
	engine.StatusSpeaking:   "▶",
	engine.StatusError:      "✗",
}

// dashboard is the live conversation view: status, microphone level and the
// reconciled transcript. It polls the engine on a fixed cadence; the engine
// getters are safe from any goroutine.
type dashboard struct {
	eng *engine.Engine

	status        engine.Status
	level         float64
	smoothed      float64
	turns         []store.Turn
	width, height int
	frame         int
}

func newDashboard(eng *engine.Engine) dashboard {
	return dashboard{eng: eng, status: eng.Status()}
}

func dashboardTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m dashboard) Init() tea.Cmd {
	return dashboardTick()
}

func (m dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "b", " ":
			m.eng.BargeIn()
		}

	case tickMsg:
		m.frame++
		m.status = m.eng.Status()
		m.level = m.eng.AudioLevel()
		m.smoothed = m.smoothed*0.6 + m.level*0.4
		m.turns = m.eng.Turns()
		return m, dashboardTick()
	}
	return m, nil
}

func (m dashboard) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var left []string

	color := statusColors[m.status]
	statusLine := lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Bold(true).
		Render(fmt.Sprintf("%s %s", statusGlyphs[m.status], strings.ToUpper(m.status.String())))
	left = append(left, statusLine, "")

	left = append(left, renderLevelBar(m.smoothed, m.status == engine.StatusListening))
	left = append(left, "")

	if id := m.eng.SessionID(); id != "" {
		idStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
		left = append(left, idStyle.Render("session "+shortID(id)))
	}

	left = append(left, "")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	left = append(left,
		boldStyle.Render("space")+helpStyle.Render(" barge-in"),
		boldStyle.Render("q")+helpStyle.Render(" end chat"),
		"",
		helpStyle.Render("colloquy "+version),
	)

	const leftWidth = 30
	leftPanel := lipgloss.NewStyle().
		Width(leftWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(left, "\n"))

	rightWidth := m.width - leftWidth - 1
	if rightWidth < 20 {
		rightWidth = 20
	}
	rightPanel := lipgloss.NewStyle().
		Width(rightWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(m.renderTranscript(rightWidth - 2))

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m dashboard) renderTranscript(wrapWidth int) string {
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	if len(m.turns) == 0 {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("Say something to start the conversation")
	}

	userStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	assistantStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	roleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Newest turns at the bottom; trim to what fits.
	var lines []string
	for _, turn := range m.turns {
		style := assistantStyle
		label := "durmah"
		if turn.Role == store.RoleUser {
			style = userStyle
			label = "you"
		}
		lines = append(lines, roleStyle.Render(label))
		for _, l := range wrapText(turn.Content, wrapWidth) {
			lines = append(lines, style.Render(l))
		}
		lines = append(lines, "")
	}
	if max := m.height - 2; len(lines) > max && max > 0 {
		lines = lines[len(lines)-max:]
	}
	return strings.Join(lines, "\n")
}

func renderLevelBar(level float64, active bool) string {
	const width = 24
	filled := int(level * float64(width) * 3) // full scale well below max RMS
	if filled > width {
		filled = width
	}
	color := "241"
	if active {
		color = "42"
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(bar)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
