package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/garage/internal/estimate"
)

type estimatesState int

const (
	estimatesStateBrowse estimatesState = iota
	estimatesStateReject
)

var (
	statusFilters = []estimate.Status{"", estimate.StatusDraft, estimate.StatusApproved, estimate.StatusRejected, estimate.StatusConverted}
	statusLabels  = []string{"All", "Draft", "Approved", "Rejected", "Converted"}
)

// EstimatesModel is the desk's estimate board: approve, reject and reopen estimates,
// and hand them off to conversion or import.
type EstimatesModel struct {
	CommonModel
	svc   *estimate.Service
	actor estimate.Actor

	state     estimatesState
	table     table.Model
	estimates []*estimate.Estimate
	form      *huh.Form

	statusFilterIdx int

	filter  estimate.ListFilter
	loading bool
	err     error
	status  string
}

func NewEstimatesModel(svc *estimate.Service, actor estimate.Actor, initial estimate.Status) EstimatesModel {
	columns := []table.Column{
		{Title: "Number", Width: 16},
		{Title: "Status", Width: 11},
		{Title: "Total", Width: 12},
		{Title: "Valid Until", Width: 12},
		{Title: "Notes", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := EstimatesModel{
		svc:    svc,
		actor:  actor,
		table:  t,
		filter: estimate.ListFilter{SiteID: actor.SiteID},
	}

	for i, st := range statusFilters {
		if st == initial {
			m.statusFilterIdx = i
		}
	}

	m.applyFilter()

	return m
}

func (m EstimatesModel) Title() string { return "Estimates" }

func (m EstimatesModel) ShortHelp() string {
	if m.state == estimatesStateReject {
		return "Enter: confirm | Esc: cancel"
	}

	return "Esc: back | a: approve | x: reject | o: reopen | c: convert | i: import | d: delete | s: filter | r: refresh"
}

func (m EstimatesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m EstimatesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadEstimatesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.estimates = msg.estimates
		m.refreshTable()

		return m, nil

	case estimateActionMsg:
		m.status = msg.done
		if msg.err != nil {
			m.status = "Error: " + Describe(msg.err)
		}

		m.state = estimatesStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(msg.Height - 10)

		return m, nil
	}

	switch m.state {
	case estimatesStateBrowse:
		return m.updateBrowse(msg)
	case estimatesStateReject:
		return m.updateReject(msg)
	}

	return m, nil
}

func (m EstimatesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(statusFilters)
			m.applyFilter()

			return m, m.loadCmd()
		case "a":
			return m, m.transitionCmd(estimate.StatusApproved, "", "Approved")
		case "o":
			return m, m.transitionCmd(estimate.StatusDraft, "", "Reopened as draft")
		case "x":
			return m.enterRejectMode()
		case "d":
			return m, m.deleteCmd()
		case "c":
			if e := m.selected(); e != nil {
				return m, func() tea.Msg { return ConvertMsg{Estimate: e} }
			}
		case "i":
			e := m.selected()
			if e == nil {
				return m, nil
			}

			if !e.IsEditable() {
				m.status = fmt.Sprintf("%s is %s, only drafts take imported lines", e.Number, e.Status)
				return m, nil
			}

			return m, func() tea.Msg { return ImportMsg{Estimate: e} }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m EstimatesModel) enterRejectMode() (tea.Model, tea.Cmd) {
	e := m.selected()
	if e == nil {
		return m, nil
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Key("note").
				Title("Reason for rejecting " + e.Number).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a reason is required")
					}

					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = estimatesStateReject
	m.table.Blur()

	return m, m.form.Init()
}

func (m EstimatesModel) updateReject(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = estimatesStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.transitionCmd(estimate.StatusRejected, m.form.GetString("note"), "Rejected")
}

func (m EstimatesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading estimates...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render("Error: " + Describe(m.err))
	}

	header := fmt.Sprintf("Filter: [s] Status: %s", activeStyle(statusLabels[m.statusFilterIdx]))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == estimatesStateReject && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("Reject Estimate\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func (m *EstimatesModel) applyFilter() {
	if st := statusFilters[m.statusFilterIdx]; st != "" {
		m.filter.Status = &st
		return
	}

	m.filter.Status = nil
}

func (m *EstimatesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.estimates))
	for _, e := range m.estimates {
		rows = append(rows, table.Row{
			e.Number,
			string(e.Status),
			FormatMoney(e.Total),
			FormatDate(e.ValidUntil),
			e.Notes,
		})
	}

	m.table.SetRows(rows)
}

func (m EstimatesModel) selected() *estimate.Estimate {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.estimates) {
		return nil
	}

	return m.estimates[idx]
}

// Messages

type loadEstimatesMsg struct {
	estimates []*estimate.Estimate
	err       error
}

func (m EstimatesModel) loadCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		estimates, err := m.svc.List(ctx, filter)

		return loadEstimatesMsg{estimates: estimates, err: err}
	}
}

type estimateActionMsg struct {
	done string
	err  error
}

func (m EstimatesModel) transitionCmd(to estimate.Status, note, done string) tea.Cmd {
	e := m.selected()
	if e == nil {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		updated, err := m.svc.Transition(ctx, estimate.TransitionParams{
			SiteID:       m.actor.SiteID,
			EstimateID:   e.ID,
			ActorID:      m.actor.ID,
			To:           to,
			Note:         note,
			Capabilities: m.actor.Capabilities,
		})
		if err != nil {
			return estimateActionMsg{err: err}
		}

		return estimateActionMsg{done: fmt.Sprintf("%s: %s", done, updated.Number)}
	}
}

func (m EstimatesModel) deleteCmd() tea.Cmd {
	e := m.selected()
	if e == nil {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.svc.Delete(ctx, m.actor, e.ID); err != nil {
			return estimateActionMsg{err: err}
		}

		return estimateActionMsg{done: "Deleted " + e.Number}
	}
}
