package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/importer"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateFilePick importState = iota
	importStateImporting
	importStateResult
)

// ImportModel appends a supplier parts list to a draft estimate.
type ImportModel struct {
	CommonModel
	importService   *importer.Service
	estimateService *estimate.Service
	actor           estimate.Actor
	estimate        *estimate.Estimate

	state      importState
	filePicker filepicker.Model
	lines      list.Model

	status string
	err    error
}

func NewImportModel(impSvc *importer.Service, estSvc *estimate.Service, actor estimate.Actor, e *estimate.Estimate) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		importService:   impSvc,
		estimateService: estSvc,
		actor:           actor,
		estimate:        e,
		filePicker:      fp,
	}
}

func (m ImportModel) Title() string { return "Import Parts List" }

func (m ImportModel) ShortHelp() string {
	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}

		if m.state == importStateResult && m.err == nil {
			var cmd tea.Cmd
			m.lines, cmd = m.lines.Update(msg)

			return m, cmd
		}

	case importResultMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = "Error: " + Describe(msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Imported %d lines into %s (%d matched, charset %s). New total %s.",
			len(msg.result.Lines), msg.estimate.Number, msg.result.Matched, msg.result.Charset, FormatMoney(msg.estimate.Total))

		items := make([]list.Item, len(msg.result.Lines))
		for i, l := range msg.result.Lines {
			items[i] = importedItem{line: l, matched: l.CatalogID != nil}
		}

		m.lines = list.New(items, importedDelegate{}, 80, 20)
		m.lines.Title = "Imported Lines"
		m.lines.SetShowStatusBar(false)
		m.lines.SetFilteringEnabled(false)
		m.lines.SetShowHelp(false)

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select parts list for %s:\n\n%s", m.estimate.Number, m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	}

	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.status) +
				"\n\n(Esc to go back)",
		)
	}

	return style.Render(
		lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.status) +
			"\n\n" + m.lines.View() +
			"\n(Esc to go back)",
	)
}

// Messages

type importResultMsg struct {
	result   *importer.Result
	estimate *estimate.Estimate
	err      error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := m.importService.Lines(ctx, m.actor.SiteID, f)
		if err != nil {
			return importResultMsg{err: err}
		}

		updated, err := m.estimateService.AddLines(ctx, m.actor, m.estimate.ID, result.Lines)
		if err != nil {
			return importResultMsg{err: err}
		}

		return importResultMsg{result: result, estimate: updated}
	}
}

// Imported line list item

type importedItem struct {
	line    estimate.LineParams
	matched bool
}

func (i importedItem) Title() string       { return i.line.Description }
func (i importedItem) Description() string { return "" }
func (i importedItem) FilterValue() string { return i.line.Description }

// Imported line list delegate

type importedDelegate struct{}

func (d importedDelegate) Height() int                             { return 1 }
func (d importedDelegate) Spacing() int                            { return 0 }
func (d importedDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d importedDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(importedItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	mark := lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render("catalog")
	if !item.matched {
		mark = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("new    ")
	}

	fmt.Fprintf(w, "%s%s  %6s x %10s  %s",
		cursor, mark,
		item.line.Quantity.String(),
		FormatMoney(item.line.UnitPrice),
		item.line.Description,
	)
}
