// Package tui implements the bubbletea program behind "heapstore inspect":
// a page-chain listing alongside live buffer-pool frame state, with a scan
// cursor the operator can step forward one record at a time.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"heapstore/pkg/access"
	"heapstore/pkg/buffer"
	"heapstore/pkg/heap"
	"heapstore/pkg/primitives"
)

var (
	primaryColor = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true).
			Padding(1)
)

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Step key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
	Step: key.NewBinding(key.WithKeys("n", "enter"), key.WithHelp("n/enter", "step scan cursor")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type pageSummary struct {
	pageNo    primitives.PageNumber
	usedSlots int
}

// Model is the inspect command's bubbletea program.
type Model struct {
	hf *heap.File
	bm *buffer.Manager
	sc *access.ScanCursor

	pages     []pageSummary
	cursor    int
	statusMsg string
	err       error
}

// New builds the inspector model for an already-open heap file, walking the
// page chain once up front with an unfiltered scan to build the page summary
// list, and opens the unfiltered scan cursor the operator steps forward with
// 'n'. Pages holding no live record do not appear in the summary list.
func New(hf *heap.File, bm *buffer.Manager) (*Model, error) {
	m := &Model{hf: hf, bm: bm}
	if err := m.reloadPages(); err != nil {
		return nil, err
	}
	sc, err := access.OpenScan(hf, nil)
	if err != nil {
		return nil, err
	}
	m.sc = sc
	return m, nil
}

func (m *Model) reloadPages() error {
	sc, err := access.OpenScan(m.hf, nil)
	if err != nil {
		return err
	}
	defer sc.Close()

	index := map[primitives.PageNumber]int{}
	var pages []pageSummary
	for {
		rid, err := sc.Next()
		if err != nil {
			break
		}
		i, ok := index[rid.PageNo]
		if !ok {
			i = len(pages)
			index[rid.PageNo] = i
			pages = append(pages, pageSummary{pageNo: rid.PageNo})
		}
		pages[i].usedSlots++
	}

	m.pages = pages
	return nil
}

// Close releases the inspector's own scan cursor. The caller remains
// responsible for closing the underlying heap file.
func (m *Model) Close() error {
	if m.sc == nil {
		return nil
	}
	return m.sc.Close()
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, keys.Quit):
		return m, tea.Quit
	case key.Matches(keyMsg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, keys.Down):
		if m.cursor < len(m.pages)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, keys.Step):
		rid, err := m.sc.Next()
		if err != nil {
			m.statusMsg = fmt.Sprintf("scan: %v", err)
		} else {
			m.statusMsg = fmt.Sprintf("scanned %s", rid.String())
		}
	}
	return m, nil
}

func (m *Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("heapstore inspector") + "\n")
	b.WriteString(fmt.Sprintf("file %d (%s) | pages %d | records %d\n\n",
		m.hf.FileID(), m.hf.FileName(), len(m.pages), m.hf.RecordCount()))

	b.WriteString(headerStyle.Render(" page chain ") + "\n")
	for i, p := range m.pages {
		line := fmt.Sprintf("page %-6d slots used %d", p.pageNo, p.usedSlots)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(line) + "\n")
		} else {
			b.WriteString(cellStyle.Render(line) + "\n")
		}
	}

	b.WriteString("\n" + headerStyle.Render(" buffer pool ") + "\n")
	for i, fs := range m.bm.Stats() {
		b.WriteString(cellStyle.Render(fmt.Sprintf(
			"frame %-3d valid=%-5v file=%-4d page=%-6d pin=%-3d dirty=%-5v refbit=%-5v",
			i, fs.Valid, fs.File, fs.Page, fs.Pin, fs.Dirty, fs.Refbit,
		)) + "\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n" + m.statusMsg + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("↑/↓: move | n/enter: step scan cursor | q: quit"))
	return b.String()
}
