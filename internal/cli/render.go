package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hockeyunion/membership/internal/core/domain"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")). // Gray
			Width(8)
	valueStyle = lipgloss.NewStyle().
			Bold(true)
	adminStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")) // Yellow
	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")) // Green
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")) // Red
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")). // Purple
			Padding(0, 1)
)

func renderUser(u *domain.AuthenticatedUser) string {
	if u == nil {
		return renderMuted("Not signed in")
	}

	role := valueStyle.Render(u.Role)
	if u.IsAdmin() {
		role = adminStyle.Render(u.Role)
	}
	team := "-"
	if u.Team != nil && *u.Team != "" {
		team = *u.Team
	}

	rows := []string{
		row("Name", valueStyle.Render(u.Name)),
		row("Email", valueStyle.Render(u.Email)),
		row("Role", role),
		row("Team", valueStyle.Render(team)),
		row("Avatar", mutedStyle.Render(u.Avatar)),
		row("ID", mutedStyle.Render(u.ID)),
	}
	return cardStyle.Render(strings.Join(rows, "\n"))
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func renderSuccess(msg string) string {
	return successStyle.Render("✓ " + msg)
}

func renderFailure(msg string) string {
	if msg == "" {
		msg = "An unexpected error occurred"
	}
	return errorStyle.Render("✗ " + msg)
}

func renderMuted(msg string) string {
	return mutedStyle.Render(msg)
}
