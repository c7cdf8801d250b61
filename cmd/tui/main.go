package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/garage/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/garage/internal/catalog"
	catalogStore "github.com/MrJamesThe3rd/garage/internal/catalog/store"
	"github.com/MrJamesThe3rd/garage/internal/config"
	"github.com/MrJamesThe3rd/garage/internal/conversion"
	conversionStore "github.com/MrJamesThe3rd/garage/internal/conversion/store"
	"github.com/MrJamesThe3rd/garage/internal/database"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	estimateStore "github.com/MrJamesThe3rd/garage/internal/estimate/store"
	"github.com/MrJamesThe3rd/garage/internal/history"
	"github.com/MrJamesThe3rd/garage/internal/importer"
	"github.com/MrJamesThe3rd/garage/internal/sequence"
)

type model struct {
	estimateService *estimate.Service
	orchestrator    *conversion.Orchestrator
	catalogService  *catalog.Service
	importService   *importer.Service
	actor           estimate.Actor

	currentView View

	estimatesView view.EstimatesModel
	convertView   view.ConvertModel
	importView    view.ImportModel
}

type View int

const (
	ViewMenu      View = 0
	ViewEstimates View = 1
	ViewConvert   View = 2
	ViewImport    View = 3
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Desk.SiteID == uuid.Nil || cfg.Desk.ActorID == uuid.Nil {
		slog.Error("DESK_SITE_ID and DESK_ACTOR_ID are required")
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString(), database.PoolOptions{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnLifetime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	caps, err := database.ProbeCapabilities(context.Background(), db)
	if err != nil {
		slog.Error("failed to probe schema", "error", err)
		os.Exit(1)
	}

	caps = caps.Without(cfg.Features.Disabled...)

	// The terminal belongs to the UI; service logs go nowhere.
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	numbers := sequence.NewAllocator(sequence.Format{
		Prefixes: map[sequence.Kind]string{
			sequence.KindEstimate: cfg.Numbering.EstimatePrefix,
			sequence.KindJob:      cfg.Numbering.JobPrefix,
		},
		Padding: cfg.Numbering.Padding,
	})
	recorder := history.NewBestEffort(log)

	catSvc := catalog.NewService(catalogStore.New(db))
	estSvc := estimate.NewService(estimateStore.New(db), numbers, recorder)
	impSvc := importer.NewService(catSvc, log)
	orch := conversion.New(conversion.Deps{
		Repo:          conversionStore.New(db, caps),
		Catalog:       catSvc,
		Capabilities:  caps,
		Numbers:       numbers,
		History:       recorder,
		Logger:        log,
		PromiseOffset: cfg.Conversion.PromiseOffset,
	})

	actor := estimate.Actor{
		SiteID:       cfg.Desk.SiteID,
		ID:           cfg.Desk.ActorID,
		Capabilities: estimate.NewCapabilities("approve", "reject", "edit"),
	}

	return model{
		estimateService: estSvc,
		orchestrator:    orch,
		catalogService:  catSvc,
		importService:   impSvc,
		actor:           actor,
		currentView:     ViewMenu,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				return m.openEstimates("")
			case "2":
				return m.openEstimates(estimate.StatusDraft)
			case "3":
				return m.openEstimates(estimate.StatusApproved)
			}
		}

		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case view.ConvertMsg:
		m.currentView = ViewConvert
		m.convertView = view.NewConvertModel(m.orchestrator, m.catalogService, m.actor, msg.Estimate)

		return m, m.convertView.Init()
	case view.ImportMsg:
		m.currentView = ViewImport
		m.importView = view.NewImportModel(m.importService, m.estimateService, m.actor, msg.Estimate)

		return m, m.importView.Init()
	case view.BackMsg:
		// Wizards return to the board, the board returns to the menu.
		if m.currentView == ViewConvert || m.currentView == ViewImport {
			m.currentView = ViewEstimates
			return m, m.estimatesView.Init()
		}

		m.currentView = ViewMenu

		return m, nil
	}

	switch m.currentView {
	case ViewEstimates:
		var newModel tea.Model
		newModel, cmd = m.estimatesView.Update(msg)
		m.estimatesView = newModel.(view.EstimatesModel)
	case ViewConvert:
		var newModel tea.Model
		newModel, cmd = m.convertView.Update(msg)
		m.convertView = newModel.(view.ConvertModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	}

	return m, cmd
}

func (m model) openEstimates(status estimate.Status) (tea.Model, tea.Cmd) {
	m.currentView = ViewEstimates
	m.estimatesView = view.NewEstimatesModel(m.estimateService, m.actor, status)

	return m, m.estimatesView.Init()
}

func (m model) View() string {
	var current view.View

	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Garage Estimate Desk\n\n" +
				"1. All Estimates\n" +
				"2. Drafts\n" +
				"3. Approved, Ready to Convert\n\n" +
				"q. Quit",
		)
	case ViewEstimates:
		current = m.estimatesView
	case ViewConvert:
		current = m.convertView
	case ViewImport:
		current = m.importView
	default:
		return "Unknown View"
	}

	help := lipgloss.NewStyle().Faint(true).Render(current.ShortHelp())
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Render(current.Title())

	return fmt.Sprintf("%s\n%s\n%s", title, current.View(), help)
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
