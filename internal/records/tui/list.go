// Package tui provides the interactive record browser and the delete
// selection form used by the record commands.
package tui

import (
	"context"
	"fmt"
	"strings"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/records/expiry"
	"nathanbeddoewebdev/dnsm/internal/tui/components"
	"nathanbeddoewebdev/dnsm/internal/tui/styles"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Loader fetches the records to browse.
type Loader func(ctx context.Context) ([]domain.PersistedRecord, error)

// --- Messages ---

type recordsLoadedMsg struct {
	records []domain.PersistedRecord
}

type recordsErrorMsg struct {
	err error
}

// --- Record list model ---

type recordListModel struct {
	load         Loader
	policy       *expiry.Policy
	providerName string
	warnMonths   int

	records   []domain.PersistedRecord
	filtered  []domain.PersistedRecord
	cursor    int
	listStart int

	statusFilter string // "", "pending", "active", "error", "expiring"
	filters      []string

	showDetail bool

	width  int
	height int

	loading bool
	spinner spinner.Model
	err     error
	status  string
	expired int
}

func newRecordListModel(load Loader, policy *expiry.Policy, providerName string, warnMonths int) recordListModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Blue)
	if warnMonths <= 0 {
		warnMonths = expiry.DefaultWarningMonths
	}

	return recordListModel{
		load:         load,
		policy:       policy,
		providerName: providerName,
		warnMonths:   warnMonths,
		filters:      []string{"", string(domain.StatusPending), string(domain.StatusActive), string(domain.StatusError), "expiring"},
		loading:      true,
		spinner:      s,
	}
}

// RunRecordList starts the full-screen record browser.
func RunRecordList(load Loader, policy *expiry.Policy, providerName string, warnMonths int) error {
	m := newRecordListModel(load, policy, providerName, warnMonths)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run record browser: %w", err)
	}
	return nil
}

func (m recordListModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m recordListModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		records, err := m.load(context.Background())
		if err != nil {
			return recordsErrorMsg{err}
		}
		return recordsLoadedMsg{records}
	}
}

// label is the status shown for a record, with expiry taking precedence.
func (m recordListModel) label(r domain.PersistedRecord) string {
	switch {
	case m.policy.IsExpired(r.ExpiresAt):
		return "expired"
	case m.policy.WillExpireIn(r.ExpiresAt, m.warnMonths):
		return "expiring"
	}
	return string(r.Status)
}

func (m *recordListModel) applyFilter() {
	m.filtered = make([]domain.PersistedRecord, 0, len(m.records))
	for _, r := range m.records {
		switch m.statusFilter {
		case "":
		case "expiring":
			if !m.policy.WillExpireIn(r.ExpiresAt, m.warnMonths) {
				continue
			}
		default:
			if string(r.Status) != m.statusFilter {
				continue
			}
		}
		m.filtered = append(m.filtered, r)
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(len(m.filtered)-1, 0)
	}
	m.updateScroll()
}

func (m *recordListModel) visibleRows() int {
	// header, footer, status bar, filter bar, spacer, table header and separator
	return max(m.height-9, 1)
}

func (m *recordListModel) updateScroll() {
	rows := m.visibleRows()
	if m.cursor < m.listStart {
		m.listStart = m.cursor
	} else if m.cursor >= m.listStart+rows {
		m.listStart = m.cursor - rows + 1
	}
}

func (m recordListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateScroll()

	case tea.KeyMsg:
		if m.loading {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.showDetail {
				m.showDetail = false
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			m.updateScroll()
		case "down", "j":
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			m.updateScroll()
		case "g":
			m.cursor = 0
			m.updateScroll()
		case "G":
			if len(m.filtered) > 0 {
				m.cursor = len(m.filtered) - 1
			}
			m.updateScroll()
		case "f":
			idx := 0
			for i, f := range m.filters {
				if f == m.statusFilter {
					idx = i
					break
				}
			}
			m.statusFilter = m.filters[(idx+1)%len(m.filters)]
			m.applyFilter()
		case "enter":
			if len(m.filtered) > 0 {
				m.showDetail = !m.showDetail
			}
		case "r":
			m.loading = true
			m.err = nil
			return m, tea.Batch(m.spinner.Tick, m.loadCmd())
		}

	case recordsLoadedMsg:
		m.loading = false
		m.records = msg.records
		m.applyFilter()

		m.expired = 0
		for _, r := range m.records {
			if m.policy.IsExpired(r.ExpiresAt) {
				m.expired++
			}
		}
		m.status = fmt.Sprintf("%d record(s)", len(m.records))
		if m.expired > 0 {
			m.status += fmt.Sprintf(", %d expired awaiting sweep", m.expired)
		}

	case recordsErrorMsg:
		m.loading = false
		m.err = msg.err

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m recordListModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	header := components.Header(m.width, "records", m.providerName)

	bindings := []components.KeyBinding{{Key: "ctrl+c", Desc: "quit"}}
	if !m.loading {
		bindings = []components.KeyBinding{
			{Key: "j/k", Desc: "nav"},
			{Key: "enter", Desc: "details"},
			{Key: "f", Desc: "filter"},
			{Key: "r", Desc: "reload"},
			{Key: "q", Desc: "quit"},
		}
	}
	footer := components.Footer(m.width, bindings)

	statusBar := ""
	switch {
	case m.err != nil:
		statusBar = components.StatusBar(m.width, "Error: "+m.err.Error(), components.LevelError)
	case m.expired > 0:
		statusBar = components.StatusBar(m.width, m.status, components.LevelWarn)
	default:
		statusBar = components.StatusBar(m.width, m.status, components.LevelInfo)
	}

	contentH := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer)-lipgloss.Height(statusBar), 1)
	content := m.renderContent(contentH)

	sections := []string{header, content}
	if statusBar != "" {
		sections = append(sections, statusBar)
	}
	sections = append(sections, footer)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m recordListModel) renderContent(height int) string {
	place := func(s string) string {
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, s)
	}

	switch {
	case m.loading:
		return place(styles.MutedText.Render(m.spinner.View() + "  Loading records…"))
	case m.err != nil:
		return place(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
	case len(m.records) == 0:
		return place(styles.MutedText.Render("No records found."))
	case m.showDetail && len(m.filtered) > 0:
		return place(m.renderDetail(m.filtered[m.cursor]))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, m.renderFilterBar(), "", m.renderTable())
	if lines := strings.Count(content, "\n") + 1; lines < height {
		content += strings.Repeat("\n", height-lines)
	}
	return content
}

func (m recordListModel) renderFilterBar() string {
	var b strings.Builder
	b.WriteString("  Filter: ")
	for _, f := range m.filters {
		label := f
		if f == "" {
			label = "All"
		}
		if f == m.statusFilter {
			b.WriteString("[" + styles.AccentText.Render(label) + "]")
		} else {
			b.WriteString(" " + styles.MutedText.Render(label) + " ")
		}
	}
	return b.String()
}

func (m recordListModel) renderTable() string {
	if len(m.filtered) == 0 {
		return styles.MutedText.Render("  No records match the current filter.")
	}

	type column struct {
		title string
		width int
	}
	available := m.width - 4
	cols := []column{
		{"ID", 6},
		{"OWNER", 12},
		{"TYPE", 7},
		{"NAME", 28},
		{"VALUE", 20},
		{"STATUS", 12},
		{"EXPIRES", 12},
	}
	total := 0
	for _, c := range cols {
		total += c.width
	}
	if available > total {
		cols[4].width += available - total
	}

	headerCells := make([]string, len(cols))
	for i, col := range cols {
		headerCells[i] = styles.TableHeader.Width(col.width).Render(col.title)
	}
	rows := []string{
		"  " + lipgloss.JoinHorizontal(lipgloss.Top, headerCells...),
		"  " + styles.MutedText.Render(strings.Repeat("─", max(available, 1))),
	}

	end := min(m.listStart+m.visibleRows(), len(m.filtered))
	for i := m.listStart; i < end; i++ {
		r := m.filtered[i]
		cell := func(col int, s string) string {
			return lipgloss.NewStyle().Width(cols[col].width).Render(ansi.Truncate(s, cols[col].width-1, "…"))
		}
		label := m.label(r)
		cells := []string{
			cell(0, fmt.Sprintf("%d", r.ID)),
			cell(1, r.Owner),
			cell(2, string(r.Type)),
			cell(3, r.Name),
			cell(4, r.Value),
			lipgloss.NewStyle().Width(cols[5].width).Render(styles.StatusStyle(label).Render(label)),
			cell(6, r.ExpiresAt.Local().Format("2006-01-02")),
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top, cells...)

		cursor := "  "
		style := styles.TableCell
		if i == m.cursor {
			cursor = styles.AccentText.Render("> ")
			style = styles.TableSelectedRow
		}
		rows = append(rows, cursor+style.Render(row))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m recordListModel) renderDetail(r domain.PersistedRecord) string {
	field := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Left,
			lipgloss.NewStyle().Width(14).Render(styles.Label.Render(label)),
			styles.Value.Render(value))
	}

	lines := []string{
		styles.Title.Render(fmt.Sprintf("Record %d", r.ID)),
		"",
		field("Owner", r.Owner),
		field("Type", string(r.Type)),
		field("Name", r.Name),
		field("Value", r.Value),
		field("Status", styles.StatusIndicator(string(r.Status))),
		field("Created", r.CreatedAt.Local().Format("2006-01-02 15:04")),
		field("Updated", r.UpdatedAt.Local().Format("2006-01-02 15:04")),
		field("Expires", r.ExpiresAt.Local().Format("2006-01-02 15:04")),
	}
	if r.Description != "" {
		lines = append(lines, field("Description", r.Description))
	}
	if r.Course != "" {
		lines = append(lines, field("Course", r.Course))
	}
	if r.Ports != "" {
		lines = append(lines, field("Ports", r.Ports))
	}
	if hint := m.policy.Hint(r.ExpiresAt, m.warnMonths); hint != "" {
		lines = append(lines, "", styles.WarningText.Render(hint))
	}
	return styles.Card.Render(strings.Join(lines, "\n"))
}
