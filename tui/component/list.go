package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"pssrag/llm"
	"pssrag/lookup"
	"pssrag/tui/component/renderer"
)

const welcomeText = "Ask a question about past projects and press Enter.\nCtrl+C or Esc to quit."

// ListModel is the transcript viewport. It stores rendered blocks and
// delegates formatting to the report renderer.
type ListModel struct {
	viewport viewport.Model
	blocks   []string
	renderer *renderer.ReportRenderer
	width    int
	height   int
	ready    bool
}

// NewListModel creates the transcript component.
func NewListModel() ListModel {
	vp := viewport.New(30, 30)
	vp.SetContent(welcomeText)

	return ListModel{
		viewport: vp,
		renderer: renderer.NewReportRenderer(nil),
		width:    30,
		height:   5,
		ready:    true,
	}
}

// Init initializes the component.
func (m ListModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the transcript.
func (m ListModel) Update(msg tea.Msg) (ListModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.viewport.ScrollUp(3)
		case tea.MouseButtonWheelDown:
			m.viewport.ScrollDown(3)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// AddQuestion appends the user's question to the transcript.
func (m *ListModel) AddQuestion(question string) {
	m.appendBlock(m.renderer.RenderQuestion(question))
}

// AddReport appends an answer report to the transcript.
func (m *ListModel) AddReport(report llm.Report) {
	m.appendBlock(m.renderer.RenderReport(report))
}

// AddError appends a rejection or failure to the transcript.
func (m *ListModel) AddError(err error) {
	m.appendBlock(m.renderer.RenderError(err))
}

// AddProjectInfo appends related hours, resumes and project sheets.
func (m *ListModel) AddProjectInfo(rows []lookup.Row, resumes, sheets map[string]string) {
	if block := m.renderer.RenderProjectInfo(rows, resumes, sheets); block != "" {
		m.appendBlock(block)
	}
}

func (m *ListModel) appendBlock(block string) {
	m.blocks = append(m.blocks, block)
	m.updateViewportContent()
	m.viewport.GotoBottom()
}

// View renders the component.
func (m ListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return m.viewport.View()
}

// SetSize sets the component dimensions.
func (m *ListModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	if height < 1 {
		height = 1
	}

	m.viewport.Width = width
	m.viewport.Height = height
	m.ready = true

	m.renderer.SetViewportWidth(width)
	if len(m.blocks) > 0 {
		m.updateViewportContent()
	}
	m.viewport.GotoBottom()
}

func (m *ListModel) updateViewportContent() {
	if len(m.blocks) == 0 {
		m.viewport.SetContent(welcomeText)
		return
	}
	m.viewport.SetContent(strings.Join(m.blocks, "\n\n"))
}
