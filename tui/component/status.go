package component

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pssrag/llm"
)

// QueryStartedMsg starts the spinner when a question goes out.
type QueryStartedMsg struct{}

// StatusTextMsg updates the status line while a question is in flight;
// the pipeline publishes these through the notifier broker.
type StatusTextMsg struct {
	Text string
}

// QueryFinishedMsg stops the spinner.
type QueryFinishedMsg struct{}

// StatsMsg refreshes the service counters shown on the status line.
type StatsMsg struct {
	Stats    llm.PerformanceStats
	Degraded bool
}

// StatusModel shows a spinner plus status text, and the service counters.
type StatusModel struct {
	spinner  spinner.Model
	running  bool
	text     string
	stats    llm.PerformanceStats
	degraded bool
	width    int
}

// NewStatusModel creates the status component.
func NewStatusModel() StatusModel {
	s := spinner.New()
	s.Spinner = spinner.Jump
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return StatusModel{
		spinner: s,
		text:    "Ready",
	}
}

// Init initializes the component. The spinner starts on demand.
func (m StatusModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the status line.
func (m StatusModel) Update(msg tea.Msg) (StatusModel, tea.Cmd) {
	switch msg := msg.(type) {
	case QueryStartedMsg:
		if !m.running {
			m.running = true
			m.text = "Processing..."
			return m, m.spinner.Tick
		}
	case StatusTextMsg:
		m.text = msg.Text
		return m, nil
	case QueryFinishedMsg:
		m.running = false
		m.text = "Ready"
		return m, nil
	case StatsMsg:
		m.stats = msg.Stats
		m.degraded = msg.Degraded
		return m, nil
	}

	if m.running {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the component.
func (m StatusModel) View() string {
	style := lipgloss.NewStyle().Padding(1, 0)

	content := m.text
	if m.running {
		content = fmt.Sprintf("%s %s", m.spinner.View(), m.text)
	}

	if m.stats.TotalRequests > 0 {
		counters := fmt.Sprintf("  |  %d requests, %.0f%% ok, avg %.2fs",
			m.stats.TotalRequests, m.stats.SuccessRate, m.stats.AverageResponseTime)
		content += lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(counters)
	}
	if m.degraded {
		content += lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("  [degraded mode]")
	}
	return style.Render(content)
}

// SetWidth sets the component width.
func (m *StatusModel) SetWidth(width int) {
	m.width = width
}

// IsRunning reports whether the spinner is active.
func (m StatusModel) IsRunning() bool {
	return m.running
}
