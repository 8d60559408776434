// Package ui renders the Hall of Fame in the terminal and feeds viewport
// scroll positions to the listing loader.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Romaric250/ticsummit26-sub001/hall-of-fame/listing"
	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

// reserved rows for the header and footer.
const chromeHeight = 4

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	activeTab     = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("39"))
	inactiveTab   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	cardTitle     = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	featuredBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Render("★")
)

// stateMsg carries the loader state after a fetch resolved.
type stateMsg struct {
	state listing.State
	err   error
	query bool
}

// Options selects the initial filter.
type Options struct {
	Search   string
	Category string
}

// Model is the bubbletea model of the Hall of Fame browser.
type Model struct {
	ctx    context.Context
	loader *listing.Loader

	viewport   viewport.Model
	search     textinput.Model
	editing    bool
	categories []string
	category   int

	state listing.State
	err   error
	epoch uint64
	// snapshots of epochs below minEpoch belong to replaced queries.
	minEpoch uint64
	width    int
	height   int
}

// New builds a Model around loader. The loader is owned by the caller.
func New(ctx context.Context, loader *listing.Loader, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "Search projects..."
	ti.Prompt = "/ "
	ti.CharLimit = 80
	ti.Width = 40
	ti.SetValue(strings.TrimSpace(opts.Search))

	categories := append([]string{domain.CategoryAll}, domain.ProjectCategories...)
	idx := 0
	for i, c := range categories {
		if strings.EqualFold(c, opts.Category) {
			idx = i
		}
	}

	return Model{
		ctx:        ctx,
		loader:     loader,
		viewport:   viewport.New(80, 20),
		search:     ti,
		categories: categories,
		category:   idx,
		state:      listing.State{HasMore: true, IsInitialLoading: true},
		minEpoch:   1,
	}
}

// Category returns the selected category filter.
func (m Model) Category() string { return m.categories[m.category] }

// State returns the loader state the model last rendered.
func (m Model) State() listing.State { return m.state }

func (m Model) Init() tea.Cmd {
	return m.startQuery()
}

func (m Model) startQuery() tea.Cmd {
	loader, ctx := m.loader, m.ctx
	search, category := m.search.Value(), m.Category()
	return func() tea.Msg {
		err := loader.StartNewQuery(ctx, search, category)
		return stateMsg{state: loader.State(), err: err, query: true}
	}
}

// restart clears the list right away and starts a query for the current
// filter. Results still arriving for earlier filters are dropped.
func (m *Model) restart() tea.Cmd {
	m.minEpoch = max(m.minEpoch, m.state.Epoch) + 1
	m.err = nil
	m.state = listing.State{Epoch: m.state.Epoch, HasMore: true, IsInitialLoading: true}
	m.render()
	m.viewport.GotoTop()
	return m.startQuery()
}

// scrolled reports the viewport geometry to the loader. Nothing is sent back
// unless a page was requested.
func (m Model) scrolled() tea.Cmd {
	if !m.state.HasMore || m.state.Loading() {
		return nil
	}
	loader, ctx := m.loader, m.ctx
	top := float64(m.viewport.YOffset)
	height := float64(m.viewport.Height)
	total := float64(m.viewport.TotalLineCount())
	return func() tea.Msg {
		fetched, err := loader.OnScroll(ctx, top, height, total)
		if !fetched && err == nil {
			return nil
		}
		return stateMsg{state: loader.State(), err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.render()
		return m, m.scrolled()

	case stateMsg:
		if msg.state.Epoch < m.minEpoch {
			if msg.query && msg.err != nil {
				// The query never started.
				m.err = msg.err
				m.state.IsInitialLoading = false
				m.render()
			}
			return m, nil
		}
		if stale(msg.state, m.state) {
			return m, nil
		}
		m.err = msg.err
		m.state = msg.state
		m.render()
		if m.state.Epoch != m.epoch {
			m.epoch = m.state.Epoch
			m.viewport.GotoTop()
		}
		return m, m.scrolled()

	case tea.KeyMsg:
		if m.editing {
			switch msg.Type {
			case tea.KeyEnter:
				m.editing = false
				m.search.Blur()
				return m, m.restart()
			case tea.KeyEsc:
				m.editing = false
				m.search.Blur()
				return m, nil
			}
			m.search, cmd = m.search.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "/":
			m.editing = true
			return m, m.search.Focus()
		case "tab":
			m.category = (m.category + 1) % len(m.categories)
			return m, m.restart()
		case "shift+tab":
			m.category = (m.category + len(m.categories) - 1) % len(m.categories)
			return m, m.restart()
		case "r":
			return m, m.restart()
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, tea.Batch(cmd, m.scrolled())
}

// stale reports whether snapshot got was taken before the one already shown.
// Commands resolve concurrently, so their messages may arrive out of order.
func stale(got, shown listing.State) bool {
	if got.Epoch != shown.Epoch {
		return got.Epoch < shown.Epoch
	}
	return got.Page < shown.Page || (got.Page == shown.Page && got.Loading() && !shown.Loading())
}

func (m *Model) render() {
	var sb strings.Builder
	for i, p := range m.state.Items {
		if i > 0 {
			sb.WriteString("\n")
		}
		writeCard(&sb, p)
	}
	switch {
	case m.state.IsInitialLoading:
		sb.WriteString(mutedStyle.Render("Loading projects..."))
	case m.state.IsLoadingMore:
		sb.WriteString("\n" + mutedStyle.Render("Loading more..."))
	case len(m.state.Items) == 0 && m.err == nil:
		sb.WriteString(mutedStyle.Render("No projects match this filter."))
	}
	m.viewport.SetContent(sb.String())
}

func writeCard(sb *strings.Builder, p domain.Project) {
	title := cardTitle.Render(p.Title)
	if p.Featured {
		title += " " + featuredBadge
	}
	sb.WriteString(title + "\n")
	meta := []string{p.Category}
	if p.Year > 0 {
		meta = append(meta, fmt.Sprint(p.Year))
	}
	if len(p.Team) > 0 {
		meta = append(meta, strings.Join(p.Team, ", "))
	}
	meta = append(meta, fmt.Sprintf("♥ %d", p.Likes))
	sb.WriteString(mutedStyle.Render(strings.Join(meta, " · ")) + "\n")
	if p.Description != "" {
		sb.WriteString(p.Description + "\n")
	}
}

func (m Model) View() string {
	var tabs []string
	for i, c := range m.categories {
		if i == m.category {
			tabs = append(tabs, activeTab.Render(c))
		} else {
			tabs = append(tabs, inactiveTab.Render(c))
		}
	}
	header := titleStyle.Render("Hall of Fame") + "  " + strings.Join(tabs, " ")
	search := m.search.View()
	if !m.editing && m.search.Value() == "" {
		search = mutedStyle.Render("press / to search")
	}

	status := fmt.Sprintf("%d of %d projects", len(m.state.Items), m.state.TotalCount)
	if !m.state.HasMore && !m.state.Loading() && len(m.state.Items) > 0 {
		status += " · end of list"
	}
	if m.err != nil {
		status += " · " + errorStyle.Render(m.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		search,
		m.viewport.View(),
		mutedStyle.Render(status+" · tab category · q quit"),
	)
}
