package renderer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"pssrag/llm"
	"pssrag/lookup"
)

// ReportRenderer turns answer reports into styled terminal output. The
// per-chunk answer bodies are rendered as markdown.
type ReportRenderer struct {
	markdownRenderer *glamour.TermRenderer
	styles           *Styles
	viewportWidth    int
}

// NewReportRenderer creates a renderer with the default styles.
func NewReportRenderer(styles *Styles) *ReportRenderer {
	if styles == nil {
		styles = DefaultStyles()
	}

	markdownRenderer, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dracula"),
		glamour.WithWordWrap(0),
	)
	return &ReportRenderer{
		markdownRenderer: markdownRenderer,
		styles:           styles,
	}
}

// SetViewportWidth sets the wrap width for rendered blocks.
func (r *ReportRenderer) SetViewportWidth(width int) {
	r.viewportWidth = width
}

// RenderQuestion renders the user's question line.
func (r *ReportRenderer) RenderQuestion(question string) string {
	return r.wrap(r.styles.User.Render("You:") + " " + question)
}

// RenderError renders a rejected or failed question.
func (r *ReportRenderer) RenderError(err error) string {
	return r.wrap(r.styles.Error.Render("Rejected: " + err.Error()))
}

// RenderReport renders a full answer report: one block per source
// document, then the related project ids and timing.
func (r *ReportRenderer) RenderReport(report llm.Report) string {
	if len(report.Answers) == 0 {
		return r.wrap(r.styles.Meta.Render("No matching project documents found."))
	}

	var sb strings.Builder
	for _, answer := range report.Answers {
		sb.WriteString(r.styles.Answer.Render(answer.SourceName))
		sb.WriteString("\n")

		if answer.Result.Success {
			sb.WriteString(r.renderMarkdown(answer.Result.Response))
			sb.WriteString("\n")
			sb.WriteString(r.styles.Meta.Render(r.answerMeta(answer)))
		} else {
			sb.WriteString(r.styles.Error.Render("Error: " + answer.Result.Err))
		}
		sb.WriteString("\n\n")
	}

	if len(report.ProjectIDs) > 0 {
		sb.WriteString(r.styles.Meta.Render("Related projects: " + strings.Join(report.ProjectIDs, ", ")))
		sb.WriteString("\n")
	}
	sb.WriteString(r.styles.Meta.Render(fmt.Sprintf("Answered in %.2fs", report.Elapsed.Seconds())))

	return r.wrap(sb.String())
}

func (r *ReportRenderer) answerMeta(answer llm.ChunkAnswer) string {
	meta := fmt.Sprintf("%s, %.2fs", answer.Result.ModelID, answer.Result.ResponseTime.Seconds())
	if answer.Quality > 0 {
		meta += fmt.Sprintf(", quality %d/100", answer.Quality)
	}
	if answer.Result.Degraded {
		meta += " " + r.styles.Degraded.Render("[degraded mode]")
	}
	return meta
}

// RenderProjectInfo renders the hours table rows, resume paths and
// project sheet paths related to the answered projects.
func (r *ReportRenderer) RenderProjectInfo(rows []lookup.Row, resumes, sheets map[string]string) string {
	if len(rows) == 0 && len(resumes) == 0 && len(sheets) == 0 {
		return ""
	}

	var sb strings.Builder
	if len(rows) > 0 {
		sb.WriteString(r.styles.Answer.Render("Employees and Hours"))
		sb.WriteString("\n")
		for _, row := range rows {
			sb.WriteString(fmt.Sprintf("  %-24s %-8s %8.1f\n", row.Employee, row.ProjectID, row.Hours))
		}
	}
	if len(resumes) > 0 {
		sb.WriteString(r.styles.Answer.Render("Resumes"))
		sb.WriteString("\n")
		for _, emp := range sortedKeys(resumes) {
			sb.WriteString("  " + emp + ": " + r.styles.Meta.Render(resumes[emp]) + "\n")
		}
	}
	if len(sheets) > 0 {
		sb.WriteString(r.styles.Answer.Render("Project Sheets"))
		sb.WriteString("\n")
		for _, name := range sortedKeys(sheets) {
			sb.WriteString("  " + name + ": " + r.styles.Meta.Render(sheets[name]) + "\n")
		}
	}
	return r.wrap(strings.TrimRight(sb.String(), "\n"))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// renderMarkdown renders markdown content, falling back to the raw text
// when rendering fails.
func (r *ReportRenderer) renderMarkdown(content string) string {
	if r.markdownRenderer == nil {
		return content
	}
	rendered, err := r.markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}

func (r *ReportRenderer) wrap(content string) string {
	if r.viewportWidth > 0 {
		return lipgloss.NewStyle().Width(r.viewportWidth).Render(content)
	}
	return content
}
