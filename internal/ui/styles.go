package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary = lipgloss.Color("#22d3ee") // Cyan accent
	Success = lipgloss.Color("#10B981") // Emerald
	Warning = lipgloss.Color("#F59E0B") // Amber
	Error   = lipgloss.Color("#EF4444") // Red
	Muted   = lipgloss.Color("#6B7280") // Gray
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	UsernameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	SystemStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	ReactionStyle = lipgloss.NewStyle().
			Foreground(Warning)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	RoomCodeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Success).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 2)
)

// PrintTitle prints the banner line at session start.
func PrintTitle(text string) {
	fmt.Println(TitleStyle.Render(text))
}

// PrintRoomCode prints the shareable room code in a box.
func PrintRoomCode(code string) {
	fmt.Println(RoomCodeStyle.Render(code))
}

// PrintChat prints one chat line.
func PrintChat(username, content string) {
	fmt.Printf("%s %s\n", UsernameStyle.Render(username+":"), content)
}

// PrintReaction prints one emoji reaction.
func PrintReaction(username, emoji string) {
	fmt.Println(ReactionStyle.Render(fmt.Sprintf("%s reacted %s", username, emoji)))
}

// PrintSystem prints a system notice.
func PrintSystem(text string) {
	fmt.Println(SystemStyle.Render("• " + text))
}

// PrintSuccess prints a success line.
func PrintSuccess(text string) {
	fmt.Println(SuccessStyle.Render("✓ " + text))
}

// PrintError prints an error line.
func PrintError(text string) {
	fmt.Println(ErrorStyle.Render("✗ " + text))
}
