package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/CPJKU/con-espressione/debug"
	"github.com/CPJKU/con-espressione/session"
	"github.com/CPJKU/con-espressione/theme"
)

// Control surface key step sizes
const (
	tempoStep  = 0.05
	scalerStep = 5.0
)

type Model struct {
	Manager  *session.Manager
	Theme    *theme.Theme
	quitting bool
}

type UpdateMsg struct{}

func NewModel(manager *session.Manager, th *theme.Theme) Model {
	return Model{
		Manager: manager,
		Theme:   th,
	}
}

func ListenForUpdates(manager *session.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Manager)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		surface := m.Manager.Surface()
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Manager.Stop()
			return m, tea.Quit

		case "enter", " ":
			// Rejections and load failures land in the manager's Err and
			// render below the help line
			if err := m.Manager.Play(); err != nil {
				debug.Log("tui", "play: %v", err)
			}

		case "s":
			m.Manager.Stop()

		case "j", "down":
			idx, _ := m.Manager.CurrentSong()
			m.Manager.SelectSong(idx + 1)

		case "k", "up":
			idx, _ := m.Manager.CurrentSong()
			m.Manager.SelectSong(idx - 1)

		case "+", "=":
			m.Manager.SetTempo(surface.Tempo() + tempoStep)

		case "-", "_":
			m.Manager.SetTempo(surface.Tempo() - tempoStep)

		case "v":
			m.Manager.SetVelocity(surface.Velocity() - 1)

		case "V":
			m.Manager.SetVelocity(surface.Velocity() + 1)

		case "d":
			m.Manager.SetScaler(surface.Scaler() - scalerStep)

		case "D":
			m.Manager.SetScaler(surface.Scaler() + scalerStep)
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	surface := m.Manager.Surface()
	state := m.Manager.State()
	playing := m.Manager.Playing()

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	songStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())
	errStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	stateSym := m.Theme.Symbols.Stopped
	if playing {
		stateSym = m.Theme.Symbols.Playing
	}

	header := headerStyle.Render(fmt.Sprintf(
		"con-espressione  %c %-9s  tempo:%.2fx  vel:%3d  scaler:%5.1f",
		stateSym, state, surface.Tempo(), surface.Velocity(), surface.Scaler()))

	// Song list
	cur, _ := m.Manager.CurrentSong()
	var songs strings.Builder
	for i, song := range m.Manager.Songs() {
		cursor := m.Theme.Symbols.NoCursor
		style := songStyle
		if i == cur {
			cursor = m.Theme.Symbols.Cursor
			style = headerStyle
		}
		name := song.Name
		if name == "" {
			name = song.Path
		}
		kind := "expressive"
		if song.Literal() {
			kind = "literal"
		}
		songs.WriteString(style.Render(fmt.Sprintf(" %c %d: %s (%s)", cursor, i, name, kind)))
		songs.WriteString("\n")
	}

	help := dimStyle.Render("j/k:song  enter:play  s:stop  +/-:tempo  v/V:velocity  d/D:scaler  q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(songs.String())
	out.WriteString("\n")
	out.WriteString(help)

	if err := m.Manager.Err(); err != nil {
		out.WriteString("\n")
		out.WriteString(errStyle.Render(fmt.Sprintf("last run: %v", err)))
	}

	return out.String()
}
