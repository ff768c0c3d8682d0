package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragingest/internal/domain"
)

type stageStartedMsg struct{ stage string }

type stageDoneMsg struct {
	stage  string
	detail string
}

type failedMsg struct{ err error }

type doneMsg struct{}

type step struct {
	stage  string
	detail string
	done   bool
}

// Progress is the Bubble Tea model showing a running ingestion.
type Progress struct {
	title    string
	spinner  spinner.Model
	steps    []step
	err      error
	finished bool
	canceled bool
	onCancel func()
}

// NewProgress creates a progress view. onCancel is invoked when the user
// presses Ctrl+C and may be nil.
func NewProgress(title string, onCancel func()) Progress {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	return Progress{title: title, spinner: sp, onCancel: onCancel}
}

// Init starts the spinner.
func (m Progress) Init() tea.Cmd { return m.spinner.Tick }

// Update applies pipeline events and key presses.
func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.canceled = true
			if m.onCancel != nil {
				m.onCancel()
			}
			return m, tea.Quit
		}
		return m, nil
	case stageStartedMsg:
		m.steps = append(m.steps, step{stage: msg.stage})
		return m, nil
	case stageDoneMsg:
		m = m.complete(msg.stage, msg.detail)
		return m, nil
	case failedMsg:
		m.err = msg.err
		return m, tea.Quit
	case doneMsg:
		m.finished = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// complete marks the most recent running step for stage as done, adding it
// when no start event was seen.
func (m Progress) complete(stage, detail string) Progress {
	steps := append([]step(nil), m.steps...)
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].stage == stage && !steps[i].done {
			steps[i].done = true
			steps[i].detail = detail
			m.steps = steps
			return m
		}
	}
	m.steps = append(steps, step{stage: stage, detail: detail, done: true})
	return m
}

// Err returns the failure reported by the pipeline, if any.
func (m Progress) Err() error { return m.err }

// Canceled reports whether the user interrupted the run.
func (m Progress) Canceled() bool { return m.canceled }

// View renders the step list.
func (m Progress) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	for _, s := range m.steps {
		if s.done {
			b.WriteString(doneStyle.Render("✓ "+s.stage) + " " + detailStyle.Render(s.detail))
		} else if m.err == nil && !m.canceled {
			b.WriteString(m.spinner.View() + " " + s.stage)
		} else {
			b.WriteString(detailStyle.Render("· " + s.stage))
		}
		b.WriteString("\n")
	}
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	case m.canceled:
		b.WriteString(errorStyle.Render("canceled") + "\n")
	case m.finished:
		b.WriteString(doneStyle.Render("done") + "\n")
	}
	return b.String()
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// sender is the subset of *tea.Program used by TUIReporter.
type sender interface {
	Send(msg tea.Msg)
}

// TUIReporter forwards pipeline events to a running Progress program.
type TUIReporter struct {
	p sender
}

// NewTUIReporter returns a reporter sending to p.
func NewTUIReporter(p *tea.Program) *TUIReporter {
	return &TUIReporter{p: p}
}

func (r *TUIReporter) Connected(endpoint string) {
	r.p.Send(stageDoneMsg{stage: domain.StageConnect, detail: endpoint})
}

func (r *TUIReporter) StageStarted(stage string) {
	r.p.Send(stageStartedMsg{stage: stage})
}

func (r *TUIReporter) Segmented(source string, segments int) {
	r.p.Send(stageDoneMsg{stage: domain.StageSegment, detail: fmt.Sprintf("%d segment(s) from %s", segments, source)})
}

func (r *TUIReporter) Embedded(model string, embeddings int) {
	r.p.Send(stageDoneMsg{stage: domain.StageEmbed, detail: fmt.Sprintf("%d embeddings (%s)", embeddings, model)})
}

func (r *TUIReporter) Provisioned(collection string, res domain.ProvisionResult) {
	detail := fmt.Sprintf("collection '%s' already exists", collection)
	if res.Created {
		detail = fmt.Sprintf("collection '%s' created in %d us", collection, res.Duration.Microseconds())
	}
	r.p.Send(stageDoneMsg{stage: domain.StageProvision, detail: detail})
}

func (r *TUIReporter) Written(collection string, res domain.WriteResult) {
	detail := fmt.Sprintf("%d points into '%s': %s in %d us", res.Points, collection, res.Status, res.Duration.Microseconds())
	if res.Outcome == domain.OutcomeCollectionMissing {
		detail = fmt.Sprintf("collection '%s' does not exist, nothing written", collection)
	}
	r.p.Send(stageDoneMsg{stage: domain.StageWrite, detail: detail})
}

func (r *TUIReporter) Collections(res domain.ListResult, _ map[string]uint64) {
	r.p.Send(stageDoneMsg{stage: "collections", detail: fmt.Sprintf("%d collection(s)", len(res.Collections))})
}

func (r *TUIReporter) Failed(err error) { r.p.Send(failedMsg{err: err}) }

func (r *TUIReporter) Done() { r.p.Send(doneMsg{}) }
