package view

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrJamesThe3rd/garage/internal/estimate"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

// ConvertMsg asks the desk to open the conversion wizard for an estimate.
type ConvertMsg struct {
	Estimate *estimate.Estimate
}

// ImportMsg asks the desk to open the parts list import for a draft estimate.
type ImportMsg struct {
	Estimate *estimate.Estimate
}
