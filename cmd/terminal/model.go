package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"grosirpos/internal/domain"
	"grosirpos/internal/service"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	focusedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Bold(true)
)

type sessionMsg struct {
	view service.TerminalSessionView
	err  error
	// fetchSeq is set on detail-fetch responses so a reply that arrives
	// after the cashier moved on can be discarded. Zero means not a fetch.
	fetchSeq int
}

type checkoutMsg struct {
	invoice domain.Invoice
	view    service.TerminalSessionView
	err     error
}

type model struct {
	ctx        context.Context
	svc        *service.Service
	terminalID string

	ready bool
	view  service.TerminalSessionView

	search  textinput.Model
	catalog table.Model

	modalQty  int
	modalTier int
	fetchSeq  int

	status   string
	statusOK bool
	err      error
}

func newModel(ctx context.Context, svc *service.Service, terminalID string) model {
	search := textinput.New()
	search.Placeholder = "search name, code or reference"
	search.CharLimit = 64
	search.Width = 40

	columns := []table.Column{
		{Title: "Code", Width: 9},
		{Title: "Product", Width: 28},
		{Title: "Brand", Width: 12},
		{Title: "Price", Width: 12},
		{Title: "Stock", Width: 6},
	}
	catalog := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Selected = selectedStyle
	catalog.SetStyles(styles)

	return model{
		ctx:        ctx,
		svc:        svc,
		terminalID: terminalID,
		search:     search,
		catalog:    catalog,
	}
}

func (m model) Init() tea.Cmd {
	return m.openSession()
}

func (m model) openSession() tea.Cmd {
	return func() tea.Msg {
		view, err := m.svc.OpenTerminalSession(m.ctx, "", m.terminalID)
		return sessionMsg{view: view, err: err}
	}
}

func (m model) sendKey(key string, ctrl bool) tea.Cmd {
	id := m.view.SessionID
	return func() tea.Msg {
		view, err := m.svc.TerminalKey(m.ctx, id, service.TerminalKeyRequest{Key: key, Ctrl: ctrl})
		return sessionMsg{view: view, err: err}
	}
}

// runSearch commits the query, then blurs back to the table the way the
// sales screen does after a search.
func (m model) runSearch(query string) tea.Cmd {
	id := m.view.SessionID
	return func() tea.Msg {
		if _, err := m.svc.TerminalSearch(m.ctx, id, query, 1); err != nil {
			return sessionMsg{err: err}
		}
		view, err := m.svc.TerminalKey(m.ctx, id, service.TerminalKeyRequest{Key: "Escape"})
		return sessionMsg{view: view, err: err}
	}
}

func (m model) selectRow(productID string, seq int) tea.Cmd {
	id := m.view.SessionID
	return func() tea.Msg {
		view, err := m.svc.TerminalSelectRow(m.ctx, id, productID)
		return sessionMsg{view: view, err: err, fetchSeq: seq}
	}
}

func (m model) confirmModal() tea.Cmd {
	id := m.view.SessionID
	tier := m.modalTier
	req := service.TerminalModalConfirmRequest{Qty: m.modalQty, TierIndex: &tier}
	return func() tea.Msg {
		view, err := m.svc.TerminalModalConfirm(m.ctx, id, req)
		return sessionMsg{view: view, err: err}
	}
}

func (m model) cancelModal() tea.Cmd {
	id := m.view.SessionID
	return func() tea.Msg {
		view, err := m.svc.TerminalModalCancel(m.ctx, id)
		return sessionMsg{view: view, err: err}
	}
}

func (m model) checkout() tea.Cmd {
	id := m.view.SessionID
	return func() tea.Msg {
		invoice, view, err := m.svc.TerminalCheckout(m.ctx, id)
		return checkoutMsg{invoice: invoice, view: view, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionMsg:
		if msg.fetchSeq != 0 && msg.fetchSeq != m.fetchSeq {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.applyView(msg.view)
		return m, nil

	case checkoutMsg:
		if msg.view.SessionID != "" {
			m.applyView(msg.view)
		}
		if msg.err != nil {
			if len(msg.view.Notices) == 0 {
				m.status = msg.err.Error()
				m.statusOK = false
			}
			return m, nil
		}
		m.status = fmt.Sprintf("invoice %s charged, total %s", msg.invoice.ID, formatMoney(msg.invoice.TotalCents))
		m.statusOK = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if !m.ready {
		return m, nil
	}

	if m.view.Modal != nil {
		return m.handleModalKey(key)
	}

	// Terminals rarely deliver ctrl+enter, so ctrl+f carries the
	// search-toggle chord here.
	switch key {
	case "ctrl+f":
		return m, m.sendKey("Enter", true)
	case "ctrl+left":
		return m, m.sendKey("ArrowLeft", true)
	case "ctrl+right":
		return m, m.sendKey("ArrowRight", true)
	case "f10":
		return m, m.checkout()
	}

	if m.view.Level == "search" {
		switch key {
		case "enter":
			return m, m.runSearch(m.search.Value())
		case "esc":
			return m, m.sendKey("Escape", false)
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}

	if m.view.Level == "datatable" {
		switch key {
		case "enter":
			items := m.view.Catalog.Items
			if cursor := m.catalog.Cursor(); cursor >= 0 && cursor < len(items) {
				m.fetchSeq++
				return m, m.selectRow(items[cursor].ID, m.fetchSeq)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.catalog, cmd = m.catalog.Update(msg)
		return m, cmd
	}

	// Parent level. Everything routes through the session's key contract.
	switch key {
	case "up":
		return m, m.sendKey("ArrowUp", false)
	case "down":
		return m, m.sendKey("ArrowDown", false)
	case "enter":
		return m, m.sendKey("Enter", false)
	case "backspace":
		return m, m.sendKey("Backspace", false)
	case "esc":
		return m, m.sendKey("Escape", false)
	case "+", "-":
		return m, m.sendKey(key, false)
	}
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return m, m.sendKey(key, false)
	}
	return m, nil
}

func (m model) handleModalKey(key string) (tea.Model, tea.Cmd) {
	modal := m.view.Modal
	switch key {
	case "enter":
		return m, m.confirmModal()
	case "esc":
		return m, m.cancelModal()
	case "left":
		if m.modalTier > 0 {
			m.modalTier--
		}
		return m, nil
	case "right":
		if m.modalTier < len(modal.Tiers)-1 {
			m.modalTier++
		}
		return m, nil
	case "up", "+":
		if m.modalQty < modal.Available {
			m.modalQty++
		}
		return m, nil
	case "down", "-":
		if m.modalQty > 1 {
			m.modalQty--
		}
		return m, nil
	case "backspace":
		m.modalQty /= 10
		if m.modalQty < 1 {
			m.modalQty = 1
		}
		return m, nil
	}
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		next := m.modalQty*10 + int(key[0]-'0')
		if next > modal.Available {
			next = modal.Available
		}
		if next < 1 {
			next = 1
		}
		m.modalQty = next
	}
	return m, nil
}

func (m *model) applyView(view service.TerminalSessionView) {
	hadModal := m.view.Modal != nil
	m.view = view
	m.ready = true
	m.err = nil

	rows := make([]table.Row, 0, len(view.Catalog.Items))
	for _, item := range view.Catalog.Items {
		rows = append(rows, table.Row{
			item.Code,
			item.Name,
			item.Brand,
			formatMoney(item.PriceSaleCents),
			fmt.Sprintf("%d", item.Quantity),
		})
	}
	m.catalog.SetRows(rows)
	if cursor := m.catalog.Cursor(); cursor >= len(rows) && len(rows) > 0 {
		m.catalog.SetCursor(len(rows) - 1)
	}

	if view.Modal != nil && !hadModal {
		m.modalQty = view.Modal.Qty
		m.modalTier = view.Modal.TierIndex
	}

	if view.FocusSearch {
		m.search.Focus()
	} else {
		m.search.Blur()
	}

	for _, notice := range view.Notices {
		m.status = notice.Message
		m.statusOK = notice.Severity == "success"
	}
}

func (m model) View() string {
	if !m.ready {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("  session failed: %v", m.err))
		}
		return "\n  Opening session..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" GrosirPOS | %s | %s ", m.view.TerminalID, m.view.Level)))
	b.WriteString("\n\n")
	b.WriteString("  " + m.search.View() + "\n\n")

	var left string
	if m.view.Modal != nil {
		left = m.renderModal()
	} else {
		left = boxStyle.Render(m.catalog.View())
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", m.renderInvoice()))
	b.WriteString("\n")

	if m.status != "" {
		style := warningStyle
		if m.statusOK {
			style = successStyle
		}
		b.WriteString("  " + style.Render(m.status) + "\n")
	}
	if m.err != nil {
		b.WriteString("  " + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString(dimStyle.Render("  ctrl+f search | ctrl+→ invoice | ctrl+← table | f10 charge | ctrl+c quit"))
	return b.String()
}

func (m model) renderModal() string {
	modal := m.view.Modal
	var b strings.Builder

	verb := "Add"
	if modal.Mode == "edit" {
		verb = "Edit"
	}
	b.WriteString(focusedStyle.Render(fmt.Sprintf("%s %s", verb, modal.Product.Name)) + "\n\n")
	b.WriteString(fmt.Sprintf("Quantity:  %d  (max %d)\n\n", m.modalQty, modal.Available))

	b.WriteString("Price tier:\n")
	for i, tier := range modal.Tiers {
		marker := "  "
		line := fmt.Sprintf("%s %-10s %s", marker, tier.Name, formatMoney(tier.PriceCents))
		if i == m.modalTier {
			line = focusedStyle.Render(fmt.Sprintf("> %-10s %s", tier.Name, formatMoney(tier.PriceCents)))
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("←/→ tier | digits/↑/↓ qty | enter confirm | esc cancel"))
	return boxStyle.Render(b.String())
}

func (m model) renderInvoice() string {
	var b strings.Builder
	b.WriteString(focusedStyle.Render("Invoice") + "\n")

	if len(m.view.Lines) == 0 {
		b.WriteString(dimStyle.Render("  no items") + "\n")
	}
	for i, line := range m.view.Lines {
		row := fmt.Sprintf("%-24s %3d x %10s = %12s",
			truncate(line.Product.Name, 24), line.Qty,
			formatMoney(line.UnitPriceCents), formatMoney(line.TotalCents))
		if i == m.view.FocusedVisualIndex && m.view.Level == "parent" {
			row = selectedStyle.Render(row)
			if m.view.Buffer != "" {
				row += warningStyle.Render(fmt.Sprintf("  [%s]", m.view.Buffer))
			}
		}
		b.WriteString(row + "\n")
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Total: %s", focusedStyle.Render(formatMoney(m.view.TotalCents))))
	return boxStyle.Render(b.String())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// formatMoney renders cents as pesos with dot thousand separators.
func formatMoney(cents int64) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var grouped strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s,%02d", sign, grouped.String(), frac)
}
