package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nikhilbhutani/livehint/internal/transcript"
	"github.com/nikhilbhutani/livehint/pkg/speech"
)

const (
	titleText    = "Welcome to LiveHint!"
	recordingMsg = "Recording in progress..."
	idleMsg      = "Press space to start recording."
)

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	inner := max(width-4, 20)

	if m.alert != "" {
		return m.overlay(AlertStyle.Width(min(inner, 60)).Render(m.alert + "\n\n" + footer("esc", "dismiss")))
	}
	if m.modal {
		body := PanelTitleStyle.Render("Full GPT Recommendation") + "\n\n" +
			m.state.Recommendation.Text + "\n\n" + footer("esc", "close")
		return m.overlay(ModalStyle.Width(min(inner, 70)).Render(body))
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(titleText))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")
	b.WriteString(m.languageLine())
	b.WriteString("\n\n")
	b.WriteString(m.button())
	b.WriteString("\n\n")
	b.WriteString(PanelStyle.Width(inner).Render(
		PanelTitleStyle.Render("Recognized Text:") + "\n" + m.transcriptText()))
	b.WriteString("\n")

	if m.state.Recommendation.Set() {
		b.WriteString(RecommendationStyle.Width(inner).Render(
			PanelTitleStyle.Render("GPT Recommendation:") + "\n" + m.state.Recommendation.Text))
		b.WriteString("\n")
	}

	b.WriteString(m.help())
	return b.String()
}

func (m Model) statusLine() string {
	if m.state.Recording == transcript.Recording {
		return RecordingStyle.Render("● ") + StatusStyle.Render(recordingMsg)
	}
	return StatusStyle.Render(idleMsg)
}

func (m Model) languageLine() string {
	parts := make([]string, 0, len(speech.Languages))
	for _, opt := range speech.Languages {
		if opt.Locale == m.state.Language {
			parts = append(parts, SelectedStyle.Render("["+opt.Label+"]"))
		} else {
			parts = append(parts, LabelStyle.Render(opt.Label))
		}
	}
	return LabelStyle.Render("Select Language: ") + strings.Join(parts, " ")
}

func (m Model) button() string {
	if m.state.Recording == transcript.Recording {
		return ButtonStopStyle.Render("Stop Recording")
	}
	return ButtonStartStyle.Render("Start Recording")
}

// transcriptText renders the transcript followed by the dimmer interim segment.
func (m Model) transcriptText() string {
	text := m.state.Transcript
	if m.state.Interim != "" {
		text += " " + InterimStyle.Render(m.state.Interim)
	}
	return text
}

func (m Model) help() string {
	items := []string{
		footer("space", "start/stop"),
		footer("l", "language"),
	}
	if m.state.Recommendation.Set() {
		items = append(items, footer("enter", "show full"), footer("c", "copy"))
	}
	items = append(items, footer("r", "ask again"), footer("q", "quit"))
	return strings.Join(items, "  ")
}

func (m Model) overlay(box string) string {
	if m.width <= 0 || m.height <= 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func footer(key, desc string) string {
	return FooterKeyStyle.Render(key) + " " + FooterDescStyle.Render(desc)
}
