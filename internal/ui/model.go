// Package ui implements the terminal player view.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19radio/internal/app/playback"
	"github.com/osa030/19radio/internal/app/player"
)

// VolumeStep is the volume change per +/- key press.
const VolumeStep = 5

const (
	volumeBarWidth = 20
	historyLimit   = 5
)

var levelGlyphs = []rune("▁▂▃▄▅▆▇█")

// Player is the subset of the player manager the view drives.
type Player interface {
	Toggle() error
	SetVolume(volume int) (int, error)
	AdjustVolume(delta int) (int, error)
	GetStatus() *player.Status
	SubscribeLevels() (<-chan struct{}, func())
	Done() <-chan struct{}
}

var (
	primaryColor = lipgloss.Color("#7C3AED")
	accentColor  = lipgloss.Color("#F59E0B")
	textColor    = lipgloss.Color("#CDD6F4")
	dimTextColor = lipgloss.Color("#6C7086")
	playingColor = lipgloss.Color("#A6E3A1")
	errorColor   = lipgloss.Color("#F38BA8")

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	textStyle = lipgloss.NewStyle().
			Foreground(textColor)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimTextColor)

	liveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(errorColor).
			Bold(true).
			Padding(0, 1)

	playingStyle = lipgloss.NewStyle().
			Foreground(playingColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	volumeStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	levelStyle = lipgloss.NewStyle().
			Foreground(playingColor)
)

type levelsMsg struct{}

type closedMsg struct{}

// Model is the bubbletea model of the player view.
type Model struct {
	player      Player
	keys        KeyMap
	levels      <-chan struct{}
	unsubscribe func()
	status      *player.Status
	width       int
	height      int
}

// NewModel creates a model bound to p. The returned model holds a levels
// subscription; call Release once the program has exited.
func NewModel(p Player) Model {
	levels, unsubscribe := p.SubscribeLevels()
	return Model{
		player:      p,
		keys:        DefaultKeyMap,
		levels:      levels,
		unsubscribe: unsubscribe,
		status:      p.GetStatus(),
	}
}

// Run starts the view and blocks until the user quits or the player closes.
func Run(p Player) error {
	m := NewModel(p)
	defer m.Release()

	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Release drops the levels subscription.
func (m Model) Release() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts waiting for waveform ticks.
func (m Model) Init() tea.Cmd {
	return m.waitForLevels()
}

func (m Model) waitForLevels() tea.Cmd {
	levels, done := m.levels, m.player.Done()
	return func() tea.Msg {
		select {
		case _, ok := <-levels:
			if !ok {
				return closedMsg{}
			}
			return levelsMsg{}
		case <-done:
			return closedMsg{}
		}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case levelsMsg:
		m.status = m.player.GetStatus()
		return m, m.waitForLevels()

	case closedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		if err := m.player.Toggle(); err != nil {
			zlog.Warn().Msgf("ui: toggle failed: %v", err)
		}

	case key.Matches(msg, m.keys.VolUp):
		if _, err := m.player.AdjustVolume(VolumeStep); err != nil {
			zlog.Warn().Msgf("ui: volume up failed: %v", err)
		}

	case key.Matches(msg, m.keys.VolDown):
		if _, err := m.player.AdjustVolume(-VolumeStep); err != nil {
			zlog.Warn().Msgf("ui: volume down failed: %v", err)
		}

	// digit keys set the volume in tens
	case len(msg.String()) == 1 && msg.String()[0] >= '0' && msg.String()[0] <= '9':
		if _, err := m.player.SetVolume(int(msg.String()[0]-'0') * 10); err != nil {
			zlog.Warn().Msgf("ui: set volume failed: %v", err)
		}

	default:
		return m, nil
	}

	m.status = m.player.GetStatus()
	return m, nil
}

// View renders the player.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderCard())
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	if m.status.State.Status == playback.StatusFailed {
		b.WriteString(errorStyle.Render("✗ " + m.status.State.ErrorMessage))
		b.WriteString("\n")
	}
	b.WriteString(levelStyle.Render(renderLevels(m.status.Levels)))
	b.WriteString("\n")
	b.WriteString(m.renderVolume())
	b.WriteString("\n\n")
	b.WriteString(m.renderHistory())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderCard() string {
	st := m.status.Station
	title := titleStyle.Render(st.DisplayName())
	if st.Live {
		title += " " + liveStyle.Render("LIVE")
	}

	lines := []string{title}
	if st.Genre != "" {
		lines = append(lines, textStyle.Render(st.Genre))
	}
	if host := st.Host(); host != "" {
		lines = append(lines, dimStyle.Render(host))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatus() string {
	switch m.status.State.Status {
	case playback.StatusConnecting:
		return dimStyle.Render("⏳ Connecting...")
	case playback.StatusPlaying:
		return playingStyle.Render("▶ Playing")
	case playback.StatusPaused:
		return dimStyle.Render("⏸ Paused")
	case playback.StatusFailed:
		return errorStyle.Render("■ Stopped")
	default:
		return dimStyle.Render("■ Stopped")
	}
}

func (m Model) renderVolume() string {
	vol := m.status.State.Volume
	icon := "🔊"
	if vol == 0 {
		icon = "🔇"
	}
	return volumeStyle.Render(fmt.Sprintf("%s [%s] %d%%", icon, renderBar(vol, playback.MaxVolume, volumeBarWidth), vol))
}

func (m Model) renderHistory() string {
	if len(m.status.History) == 0 {
		return dimStyle.Render("No recent stations")
	}

	lines := []string{textStyle.Render("Recent")}
	for i, e := range m.status.History {
		if i == historyLimit {
			break
		}
		lines = append(lines, dimStyle.Render(fmt.Sprintf("  %s  %s", e.PlayedAt.Format("15:04"), e.StationName)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHelp() string {
	parts := make([]string, 0, len(m.keys.ShortHelp())+1)
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, fmt.Sprintf("%s:%s", h.Key, h.Desc))
	}
	parts = append(parts, "0-9:volume")
	return dimStyle.Render(strings.Join(parts, "  "))
}

// renderLevels maps levels in [0, 100] to block glyphs. Zero renders blank.
func renderLevels(levels []int) string {
	var b strings.Builder
	for _, l := range levels {
		if l <= 0 {
			b.WriteRune(' ')
			continue
		}
		idx := (l*len(levelGlyphs) - 1) / 100
		if idx >= len(levelGlyphs) {
			idx = len(levelGlyphs) - 1
		}
		b.WriteRune(levelGlyphs[idx])
	}
	return b.String()
}

func renderBar(value, max, width int) string {
	filled := (value * width) / max
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
