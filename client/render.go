package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/wfunc/roomboard/projection"
	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/state"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	centerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// statusColor 状态徽章颜色：绿=开放 红=关闭 黄=维护 灰=未知
func statusColor(status state.Status) lipgloss.Color {
	switch status {
	case state.StatusOpen:
		return lipgloss.Color("2")
	case state.StatusClosed:
		return lipgloss.Color("1")
	case state.StatusMaintenance:
		return lipgloss.Color("3")
	default:
		return lipgloss.Color("8")
	}
}

func badge(status state.Status, label string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(statusColor(status)).
		Padding(0, 1).
		Render(label)
}

func header(now time.Time) string {
	return headerStyle.Render(now.Format("Monday 02 January 2006 15:04:05"))
}

// renderView prints centers sorted by name, rooms in received order.
func renderView(view projection.View, now time.Time) string {
	var b strings.Builder
	b.WriteString(header(now))
	b.WriteString("\n")
	if len(view) == 0 {
		b.WriteString(faintStyle.Render("no centers"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(summary(view.Count()))
	b.WriteString("\n")
	for _, id := range view.IDs() {
		entry := view[id]
		b.WriteString("\n")
		b.WriteString(centerStyle.Render(entry.Name))
		b.WriteString("\n")
		if len(entry.Rooms) == 0 {
			b.WriteString("  " + faintStyle.Render("no rooms") + "\n")
			continue
		}
		for _, r := range entry.Rooms {
			line := fmt.Sprintf("  %s %s", badge(r.Status, r.Label), r.Name)
			if r.Comment != "" {
				line += " " + faintStyle.Render("· "+r.Comment)
			}
			if r.PlannedReopening != "" {
				line += " " + faintStyle.Render("→ "+r.PlannedReopening)
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func summary(counts map[state.Status]int) string {
	parts := make([]string, 0, 4)
	for _, status := range []state.Status{state.StatusOpen, state.StatusClosed, state.StatusMaintenance, state.StatusUnknown} {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", badge(status, status.Label()), n))
		}
	}
	return strings.Join(parts, "  ")
}

func renderAttention(items []room.AttentionItem, now time.Time) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("À surveiller (%d)", len(items))))
	b.WriteString("\n")
	for _, item := range items {
		line := fmt.Sprintf("  %s [%s] %s", badge(item.Status, item.Status.Label()), item.CenterTag, item.Name)
		if item.Reason != "" {
			line += " " + faintStyle.Render("· "+item.Reason)
		}
		if item.ExpectedReopen != "" {
			reopen := "→ " + item.ExpectedReopen
			if item.Overdue(now) {
				line += " " + overdueStyle.Render(reopen)
			} else {
				line += " " + faintStyle.Render(reopen)
			}
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
