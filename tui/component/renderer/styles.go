package renderer

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used for transcript rendering.
type Styles struct {
	User     lipgloss.Style
	Answer   lipgloss.Style
	Error    lipgloss.Style
	Meta     lipgloss.Style
	Degraded lipgloss.Style
}

// DefaultStyles returns the default transcript styles.
func DefaultStyles() *Styles {
	return &Styles{
		User:     lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		Answer:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Meta:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Degraded: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}
