package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Color palette
	Primary    = lipgloss.Color("#FF6B9D")
	Secondary  = lipgloss.Color("#C792EA")
	Success    = lipgloss.Color("#C3E88D")
	Warning    = lipgloss.Color("#FFCB6B")
	Error      = lipgloss.Color("#F07178")
	Info       = lipgloss.Color("#82AAFF")
	Muted      = lipgloss.Color("#546E7A")
	Foreground = lipgloss.Color("#EEFFFF")
)

var (
	TitleStyle    = lipgloss.NewStyle().Foreground(Primary).Bold(true).MarginBottom(1)
	SubtitleStyle = lipgloss.NewStyle().Foreground(Secondary).Italic(true)
	TextStyle     = lipgloss.NewStyle().Foreground(Foreground)
	MutedStyle    = lipgloss.NewStyle().Foreground(Muted)
	KeyStyle      = lipgloss.NewStyle().Foreground(Info).Bold(true)
	HelpStyle     = lipgloss.NewStyle().Foreground(Muted).Italic(true).MarginTop(1)

	StatusDownloading = lipgloss.NewStyle().Foreground(Info).Bold(true)
	StatusCompleted   = lipgloss.NewStyle().Foreground(Success).Bold(true)
	StatusSkipped     = lipgloss.NewStyle().Foreground(Warning)
	StatusError       = lipgloss.NewStyle().Foreground(Error).Bold(true)

	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(Primary).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(Muted).
				BorderBottom(true)

	TableSelectedStyle = lipgloss.NewStyle().Foreground(Primary)
)

// StatusStyle picks the style of a download or library status.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "downloading", "processing":
		return StatusDownloading
	case "completed", "complete":
		return StatusCompleted
	case "skipped", "added":
		return StatusSkipped
	case "error", "partial":
		return StatusError
	default:
		return MutedStyle
	}
}
