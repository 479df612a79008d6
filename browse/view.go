package browse

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"rflow/paginate"
)

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteByte('\n')

	body := m.text
	if len(body) == 0 && len(m.status) == 0 && m.err == nil {
		body = m.styles.Dim.Render("(nothing visible)")
	}
	style := m.styles.Body
	if m.width > 0 {
		style = style.Width(m.width)
	}
	if m.height > 0 {
		// header, status, help and prompt lines
		style = style.MaxHeight(max(m.height-4, 1))
	}
	b.WriteString(style.Render(body))
	b.WriteByte('\n')

	b.WriteString(m.statusLine())
	b.WriteByte('\n')
	if m.typing {
		b.WriteString(m.styles.Prompt.Render("go to: ") + m.input.View())
		b.WriteByte('\n')
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) header() string {
	title := m.opts.Title
	if len(m.opts.Units) == 0 {
		return m.styles.Title.Render(title)
	}
	u := m.opts.Units[m.unit]
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.Title.Render(title),
		m.styles.Dim.Render(fmt.Sprintf("  unit %d/%d  %s", m.unit+1, len(m.opts.Units), u.Href)),
	)
}

func (m *Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(m.err.Error())
	}
	if len(m.status) > 0 {
		return m.styles.Status.Render(m.status)
	}
	if !m.paginated {
		return ""
	}
	return m.styles.Status.Render(describe(m.last, m.pager.Info()))
}

// describe renders pagination state as "spread 2/3  pages 3-4 of 6".
func describe(e paginate.PaginationChanged, info paginate.PagesInfo) string {
	if e.Spreads == 0 {
		return "nothing to show"
	}
	s := fmt.Sprintf("spread %d/%d", e.Spread+1, e.Spreads)
	switch n := len(info.OpenPages); {
	case n == 1:
		s += fmt.Sprintf("  page %d of %d", info.OpenPages[0].Index+1, info.OpenPages[0].Count)
	case n > 1:
		s += fmt.Sprintf("  pages %d-%d of %d", info.OpenPages[0].Index+1, info.OpenPages[n-1].Index+1, info.OpenPages[0].Count)
	}
	return s
}
