package chat

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"pssrag/llm"
	"pssrag/lookup"
	"pssrag/pubsub"
	"pssrag/rag"
	"pssrag/tui/component"
)

// answerMsg carries the outcome of one question.
type answerMsg struct {
	report llm.Report
	err    error
}

// ProjectInfo are the optional collaborators shown alongside answers:
// the hours table and the folders holding resumes and project sheets.
type ProjectInfo struct {
	Table      *lookup.Table
	ResumesDir string
	SheetsDir  string
}

// Model is the chat interface: transcript, status line and input box over
// the question-answering pipeline.
type Model struct {
	list   component.ListModel
	edit   component.EditModel
	status component.StatusModel

	system   *rag.System
	info     ProjectInfo
	clientID string
	sub      <-chan pubsub.Event[string]
	ctx      context.Context

	width  int
	height int
}

// InitialModel creates the chat model. notifier may be nil; status-line
// updates are skipped without it. The session id doubles as the
// rate-limit client id.
func InitialModel(system *rag.System, notifier *pubsub.Broker[string], info ProjectInfo) Model {
	ctx := context.Background()

	var sub <-chan pubsub.Event[string]
	if notifier != nil {
		sub = notifier.Subscribe(ctx)
	}

	return Model{
		list:     component.NewListModel(),
		edit:     component.NewEditModel(),
		status:   component.NewStatusModel(),
		system:   system,
		info:     info,
		clientID: uuid.NewString(),
		sub:      sub,
		ctx:      ctx,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.list.Init(),
		m.edit.Init(),
		m.status.Init(),
		m.waitForNotification(),
		m.checkHealth(),
	)
}

// healthMsg carries the startup health probe outcome.
type healthMsg struct {
	status llm.HealthStatus
}

// checkHealth probes the generation backend once at startup and reports
// the outcome on the status line.
func (m Model) checkHealth() tea.Cmd {
	return func() tea.Msg {
		return healthMsg{status: m.system.HealthCheck(m.ctx, m.clientID)}
	}
}

// notificationMsg is one pipeline status line from the notifier broker.
type notificationMsg struct {
	text string
}

// waitForNotification relays pipeline status lines into the update loop.
func (m Model) waitForNotification() tea.Cmd {
	if m.sub == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-m.sub
		if !ok {
			return nil
		}
		return notificationMsg{text: event.Payload}
	}
}

// ask runs the question through the pipeline off the update loop.
func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		report, err := m.system.Ask(m.ctx, m.clientID, question)
		return answerMsg{report: report, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		statusHeight := lipgloss.Height(m.status.View())
		editHeight := m.edit.Height()
		listHeight := m.height - statusHeight - editHeight

		m.list.SetSize(m.width, listHeight)
		m.edit.SetWidth(m.width)
		m.status.SetWidth(m.width)

	case component.EditorSubmitMsg:
		m.list.AddQuestion(msg.Value)
		cmds = append(cmds,
			m.ask(msg.Value),
			func() tea.Msg { return component.QueryStartedMsg{} },
		)

	case answerMsg:
		if msg.err != nil {
			m.list.AddError(msg.err)
		} else {
			m.list.AddReport(msg.report)
			m.addProjectInfo(msg.report)
		}
		cmds = append(cmds,
			func() tea.Msg { return component.QueryFinishedMsg{} },
			func() tea.Msg {
				return component.StatsMsg{
					Stats:    m.system.Stats(),
					Degraded: m.system.Degraded(),
				}
			},
		)

	case notificationMsg:
		// Surface the status line and keep listening for the next one.
		cmds = append(cmds,
			m.waitForNotification(),
			func() tea.Msg { return component.StatusTextMsg{Text: msg.text} },
		)

	case healthMsg:
		text := "Service unhealthy, answers may fail"
		if msg.status.Healthy {
			text = fmt.Sprintf("Service healthy (%s)", msg.status.ModelID)
		}
		cmds = append(cmds, func() tea.Msg {
			return component.StatusTextMsg{Text: text}
		})

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd

	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)

	m.edit, cmd = m.edit.Update(msg)
	cmds = append(cmds, cmd)

	m.status, cmd = m.status.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// addProjectInfo looks up hours, resumes and project sheets for the
// answered projects. Everything here is optional and best effort.
func (m *Model) addProjectInfo(report llm.Report) {
	if len(report.ProjectIDs) == 0 {
		return
	}

	var rows []lookup.Row
	resumes := map[string]string{}
	if m.info.Table != nil {
		rows = m.info.Table.FilterByProjects(report.ProjectIDs)
		if m.info.ResumesDir != "" {
			resumes = lookup.FindResumes(m.info.ResumesDir, lookup.Employees(rows))
		}
	}

	sheets := map[string]string{}
	if m.info.SheetsDir != "" {
		all, err := lookup.FindProjectSheets(m.info.SheetsDir)
		if err == nil {
			wanted := make(map[string]struct{}, len(report.ProjectIDs))
			for _, id := range report.ProjectIDs {
				wanted[id] = struct{}{}
			}
			for name, path := range all {
				ids := rag.ExtractProjectIDs([]string{name})
				if len(ids) == 0 {
					continue
				}
				if _, ok := wanted[ids[0]]; ok {
					sheets[name] = path
				}
			}
		}
	}

	m.list.AddProjectInfo(rows, resumes, sheets)
}

func (m Model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.list.View(),
		m.status.View(),
		m.edit.View(),
	)
}
