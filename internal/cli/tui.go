package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/patriline/pkg/genealogy"
	"github.com/matzehuels/patriline/pkg/pipeline"
)

// List styles.
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// pedigreeBrowserModel is the bubbletea model for browsing the pedigrees
// of a completed run.
type pedigreeBrowserModel struct {
	pop       *genealogy.Population
	pedigrees []*genealogy.Pedigree
	cursor    int
	height    int
	offset    int
}

// newPedigreeBrowser creates a browser over the run's pedigrees.
func newPedigreeBrowser(result *pipeline.Result) pedigreeBrowserModel {
	return pedigreeBrowserModel{
		pop:       result.Population,
		pedigrees: result.Pedigrees.All(),
		height:    15,
	}
}

func (m pedigreeBrowserModel) Init() tea.Cmd {
	return nil
}

func (m pedigreeBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.pedigrees)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 8
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m pedigreeBrowserModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Pedigrees"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.pedigrees) {
		end = len(m.pedigrees)
	}

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		ped := m.pedigrees[i]

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}

		rootGen := "—"
		if root, ok := m.pop.Individual(ped.Root()); ok {
			rootGen = fmt.Sprintf("%d", root.Generation())
		}
		present := ped.SizeGeneration(m.pop, 0)

		rows = append(rows, []string{
			cursor,
			fmt.Sprintf("%d", ped.ID()),
			fmt.Sprintf("%d", ped.Size()),
			fmt.Sprintf("%d", present),
			fmt.Sprintf("%d", ped.Root()),
			rootGen,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Pedigree", "Members", "Present", "Root", "Root gen").
		Rows(rows...)
	b.WriteString(t.Render())
	b.WriteString("\n")

	if len(m.pedigrees) > 0 {
		b.WriteString(listDimStyle.Render(
			fmt.Sprintf("%d/%d", m.cursor+1, len(m.pedigrees))))
		b.WriteString("\n")
	}
	return b.String()
}

// runPedigreeBrowser opens the interactive pedigree browser for a run.
func runPedigreeBrowser(result *pipeline.Result) error {
	_, err := tea.NewProgram(newPedigreeBrowser(result)).Run()
	return err
}
