package view

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/garage/internal/catalog"
	"github.com/MrJamesThe3rd/garage/internal/conversion"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	"github.com/MrJamesThe3rd/garage/internal/job"
)

const convertTimeout = 30 * time.Second

type convertState int

const (
	convertStateLoading convertState = iota
	convertStateForm
	convertStateSubmitting
	convertStateResult
)

// convertInput holds the form bindings. It lives on the heap so the copies
// Bubble Tea makes of the model share it with the form.
type convertInput struct {
	priority       string
	promise        PromiseChoice
	customDate     string
	diagnosis      string
	odometer       string
	classification string
	strict         bool
}

// ConvertModel is the wizard that turns an approved estimate into a job.
type ConvertModel struct {
	CommonModel
	orchestrator *conversion.Orchestrator
	catalog      *catalog.Service
	actor        estimate.Actor
	estimate     *estimate.Estimate

	state convertState
	form  *huh.Form
	input *convertInput

	result *conversion.Result
	err    error
}

func NewConvertModel(orch *conversion.Orchestrator, cat *catalog.Service, actor estimate.Actor, e *estimate.Estimate) ConvertModel {
	return ConvertModel{
		orchestrator: orch,
		catalog:      cat,
		actor:        actor,
		estimate:     e,
		input: &convertInput{
			priority:  string(job.PriorityMedium),
			promise:   PromiseTomorrow,
			diagnosis: e.Notes,
		},
	}
}

func (m ConvertModel) Title() string { return "Convert " + m.estimate.Number }

func (m ConvertModel) ShortHelp() string {
	if m.state == convertStateResult {
		return "Esc: back"
	}

	return "Tab: next | Enter: confirm | Esc: cancel"
}

func (m ConvertModel) Init() tea.Cmd {
	return m.loadClassificationsCmd()
}

func (m ConvertModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case classificationsMsg:
		if msg.err != nil {
			m.state = convertStateResult
			m.err = msg.err

			return m, nil
		}

		m.form = m.buildForm(msg.classifications)
		m.state = convertStateForm

		return m, m.form.Init()

	case convertResultMsg:
		m.state = convertStateResult
		m.result = msg.result
		m.err = msg.err

		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}
	}

	if m.state != convertStateForm {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.state = convertStateSubmitting
		return m, m.convertCmd()
	case huh.StateAborted:
		return m, Back
	}

	return m, cmd
}

func (m ConvertModel) buildForm(classifications []catalog.Classification) *huh.Form {
	in := m.input

	priorities := make([]huh.Option[string], 0, 4)
	for _, p := range []job.Priority{job.PriorityLow, job.PriorityMedium, job.PriorityHigh, job.PriorityUrgent} {
		priorities = append(priorities, huh.NewOption(string(p), string(p)))
	}

	promises := make([]huh.Option[PromiseChoice], 0, 5)
	for _, p := range []PromiseChoice{PromiseTomorrow, PromiseTwoDays, PromiseNextWeek, PromiseCustom, PromiseDefault} {
		promises = append(promises, huh.NewOption(p.String(), p))
	}

	classOptions := []huh.Option[string]{huh.NewOption("None", "")}
	for _, c := range classifications {
		if c.Active {
			classOptions = append(classOptions, huh.NewOption(fmt.Sprintf("%s (%s)", c.Name, c.Code), c.Code))
		}
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Priority").
				Options(priorities...).
				Value(&in.priority),
			huh.NewSelect[PromiseChoice]().
				Title("Promised for").
				Options(promises...).
				Value(&in.promise),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Promise date").
				Placeholder("YYYY-MM-DD").
				Value(&in.customDate).
				Validate(func(s string) error {
					_, err := ParseDate(s, time.Local)
					return err
				}),
		).WithHideFunc(func() bool { return in.promise != PromiseCustom }),
		huh.NewGroup(
			huh.NewText().
				Title("Diagnosis").
				Value(&in.diagnosis),
			huh.NewInput().
				Title("Odometer").
				Placeholder("km").
				Value(&in.odometer).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}

					if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil || n < 0 {
						return fmt.Errorf("odometer must be a whole number")
					}

					return nil
				}),
			huh.NewSelect[string]().
				Title("Classification").
				Options(classOptions...).
				Value(&in.classification),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Strict input?").
				Description("Refuse to convert instead of filling in defaults.").
				Value(&in.strict),
		),
	).WithWidth(60).WithShowHelp(false)
}

// options translates the form into conversion options.
func (in *convertInput) options(now time.Time) (conversion.Options, error) {
	promised, err := PromiseDate(in.promise, in.customDate, now)
	if err != nil {
		return conversion.Options{}, err
	}

	opts := conversion.Options{
		Priority:       in.priority,
		PromisedAt:     promised,
		Diagnosis:      in.diagnosis,
		Classification: in.classification,
		StrictInput:    in.strict,
	}

	if s := strings.TrimSpace(in.odometer); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return conversion.Options{}, fmt.Errorf("odometer: %w", err)
		}

		opts.Odometer = &n
	}

	return opts, nil
}

func (m ConvertModel) View() string {
	style := lipgloss.NewStyle().Padding(1, 2)
	header := fmt.Sprintf("Convert %s (%s, total %s)\n\n", m.estimate.Number, m.estimate.Status, FormatMoney(m.estimate.Total))

	switch m.state {
	case convertStateLoading:
		return style.Render(header + "Loading classifications...")
	case convertStateForm:
		return style.Render(header + m.form.View())
	case convertStateSubmitting:
		return style.Render(header + "Creating job...")
	}

	if m.err != nil {
		return style.Render(header +
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("Error: "+Describe(m.err)) +
			"\n\n(Esc to go back)")
	}

	msg := fmt.Sprintf("Created job %s", m.result.JobNumber)
	if m.result.AlreadyConverted {
		msg = fmt.Sprintf("Already converted to job %s", m.result.JobNumber)
	}

	if m.result.Anomaly != "" {
		msg += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("Warning: "+m.result.Anomaly)
	}

	return style.Render(header + lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(msg) + "\n\n(Esc to go back)")
}

// Messages

type classificationsMsg struct {
	classifications []catalog.Classification
	err             error
}

func (m ConvertModel) loadClassificationsCmd() tea.Cmd {
	siteID := m.actor.SiteID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		cs, err := m.catalog.Classifications(ctx, siteID)

		return classificationsMsg{classifications: cs, err: err}
	}
}

type convertResultMsg struct {
	result *conversion.Result
	err    error
}

func (m ConvertModel) convertCmd() tea.Cmd {
	in := m.input
	req := conversion.Request{
		SiteID:     m.actor.SiteID,
		EstimateID: m.estimate.ID,
		ActorID:    m.actor.ID,
	}

	return func() tea.Msg {
		opts, err := in.options(time.Now())
		if err != nil {
			return convertResultMsg{err: err}
		}

		req.Options = opts

		ctx, cancel := context.WithTimeout(context.Background(), convertTimeout)
		defer cancel()

		res, err := m.orchestrator.Convert(ctx, req)

		return convertResultMsg{result: res, err: err}
	}
}

