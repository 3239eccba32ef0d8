package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
	"github.com/yungbote/docfill-backend/internal/modules/fulfillment"
	"github.com/yungbote/docfill-backend/internal/platform/dbctx"
	"github.com/yungbote/docfill-backend/internal/services"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4D96FF"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000"))
	offerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C792EA")).Italic(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6BCB77")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// consentWords are typed instead of an answer to accept the auto-suggest
// offer.
var consentWords = map[string]bool{"/suggest": true, "suggest": true, "yes": true, "y": true}

type questionMsg struct {
	q   *services.QuestionView
	err error
}

type answerMsg struct {
	out *fulfillment.Outcome
	err error
}

type finalizeMsg struct {
	res *services.FinalizeResult
	err error
}

type fillModel struct {
	ctx   context.Context
	svc   services.FulfillmentService
	id    uuid.UUID
	input textinput.Model

	question *services.QuestionView
	status   string
	hint     string
	busy     bool
	result   *services.FinalizeResult
	err      error
}

func newFillModel(ctx context.Context, svc services.FulfillmentService, id uuid.UUID) fillModel {
	ti := textinput.New()
	ti.Placeholder = "type your answer"
	ti.CharLimit = 500
	ti.Width = 60
	ti.Focus()
	return fillModel{ctx: ctx, svc: svc, id: id, input: ti, busy: true}
}

func (m fillModel) dbc() dbctx.Context { return dbctx.Context{Ctx: m.ctx} }

func (m fillModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.fetchQuestion())
}

func (m fillModel) fetchQuestion() tea.Cmd {
	return func() tea.Msg {
		q, err := m.svc.NextQuestion(m.dbc(), m.id)
		return questionMsg{q: q, err: err}
	}
}

func (m fillModel) submit(placeholderID, raw string, consent bool) tea.Cmd {
	return func() tea.Msg {
		out, err := m.svc.SubmitAnswer(m.dbc(), m.id, placeholderID, services.AnswerInput{RawInput: raw, ConsentAutoSuggest: consent})
		return answerMsg{out: out, err: err}
	}
}

func (m fillModel) finalize() tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.Finalize(m.dbc(), m.id)
		return finalizeMsg{res: res, err: err}
	}
}

func (m fillModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.onEnter()
		}
	case questionMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.question = msg.q
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = ""
			m.hint = errorText(msg.err)
			return m, nil
		}
		m.status, m.hint = describeOutcome(msg.out)
		m.busy = true
		return m, m.fetchQuestion()
	case finalizeMsg:
		m.busy = false
		if msg.err != nil {
			m.hint = errorText(msg.err)
			return m, nil
		}
		m.result = msg.res
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m fillModel) onEnter() (tea.Model, tea.Cmd) {
	if m.busy || m.question == nil {
		return m, nil
	}
	if m.question.Complete {
		m.busy = true
		return m, m.finalize()
	}
	raw := m.input.Value()
	m.input.SetValue("")
	consent := m.question.Offer != "" && consentWords[strings.ToLower(strings.TrimSpace(raw))]
	if consent {
		raw = ""
	}
	m.busy = true
	return m, m.submit(m.question.Question.ID, raw, consent)
}

func (m fillModel) View() string {
	var b strings.Builder
	if m.question == nil {
		b.WriteString(mutedStyle.Render("loading..."))
		return b.String()
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("docfill  %s", progressLine(m.question.Progress))))
	b.WriteString("\n\n")
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	if m.hint != "" {
		b.WriteString(hintStyle.Render(m.hint) + "\n")
	}
	if m.result != nil {
		b.WriteString(okStyle.Render(fmt.Sprintf("finalized as %s: %s", m.result.Classification, m.result.Location)) + "\n")
		return b.String()
	}
	if m.question.Complete {
		b.WriteString(okStyle.Render("All placeholders are filled.") + "\n")
		b.WriteString(mutedStyle.Render("enter: finalize  esc: quit") + "\n")
		return b.String()
	}
	q := m.question.Question
	b.WriteString(promptStyle.Render(m.question.Prompt) + "\n")
	if q.Attempts > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("attempt %d", q.Attempts+1)) + "\n")
	}
	if m.question.Offer != "" {
		b.WriteString(offerStyle.Render(m.question.Offer) + "\n")
		b.WriteString(mutedStyle.Render("type /suggest to accept") + "\n")
	}
	b.WriteString("\n" + m.input.View() + "\n")
	b.WriteString(mutedStyle.Render("enter: submit  esc: quit") + "\n")
	return b.String()
}

func describeOutcome(out *fulfillment.Outcome) (string, string) {
	switch out.Status {
	case fulfillment.OutcomeAccepted:
		return okStyle.Render("saved: " + out.NormalizedValue), ""
	case fulfillment.OutcomeAutoFilled:
		return offerStyle.Render("suggested: " + out.Value), ""
	default:
		return "", out.Hint
	}
}

func errorText(err error) string {
	var de *fill.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

func progressLine(p fulfillment.Progress) string {
	return fmt.Sprintf("%d/%d filled (%d suggested, %d pending)", p.Filled+p.AutoFilled, p.Total, p.AutoFilled, p.Pending)
}

func renderPlaceholderLine(p services.PlaceholderView) string {
	value := "-"
	if p.Value != nil {
		value = *p.Value
	}
	status := string(p.Status)
	switch p.Status {
	case fill.StatusAccepted:
		status = okStyle.Render(status)
	case fill.StatusAutoFilled:
		status = offerStyle.Render(status)
	default:
		status = mutedStyle.Render(status)
	}
	return fmt.Sprintf("%-16s %-28s %-13s %-12s %s", p.ID, p.Name, p.ExpectedType, status, value)
}
