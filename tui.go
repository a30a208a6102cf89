package main

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type RecordingStartMsg struct{}
type TranscribingMsg struct{}
type IdleMsg struct{}
type TranscriptionMsg struct {
	Text   string
	Pasted bool
}
type ModeLineMsg struct{ Text string }   // provider and model
type DeviceLineMsg struct{ Text string } // microphone device name
type tickMsg time.Time

type tuiState int

const (
	tuiStateIdle tuiState = iota
	tuiStateRecording
	tuiStateTranscribing
)

type tuiModel struct {
	state         tuiState
	frame         int
	recStart      time.Time
	elapsed       time.Duration
	limit         time.Duration
	shortcut      string
	msgCount      int
	width, height int
	modeLine      string
	deviceLine    string
	lastText      string
	pasted        bool
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	busyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	standbyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	pastedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

func NewTUIProgram(shortcut string, limit time.Duration) *tea.Program {
	m := tuiModel{shortcut: shortcut, limit: limit}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		if m.state == tuiStateRecording {
			m.elapsed = time.Time(msg).Sub(m.recStart)
		}
		return m, tuiTick()

	case RecordingStartMsg:
		m.state = tuiStateRecording
		m.recStart = time.Now()
		m.elapsed = 0

	case TranscribingMsg:
		m.state = tuiStateTranscribing

	case IdleMsg:
		m.state = tuiStateIdle

	case TranscriptionMsg:
		m.msgCount++
		m.lastText = msg.Text
		m.pasted = msg.Pasted

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

// meter renders elapsed time against the recording limit.
func meter(elapsed, limit time.Duration, width int) string {
	if limit <= 0 || width <= 0 {
		return ""
	}
	frac := math.Min(float64(elapsed)/float64(limit), 1)
	filled := int(math.Round(frac * float64(width)))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func spinner(frame int) string {
	const frames = "|/-\\"
	return string(frames[frame%len(frames)])
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string
	switch m.state {
	case tuiStateRecording:
		lines = append(lines, recStyle.Render(fmt.Sprintf("● REC %.1fs", m.elapsed.Seconds())))
		lines = append(lines, dimStyle.Render(meter(m.elapsed, m.limit, 30)))
	case tuiStateTranscribing:
		lines = append(lines, busyStyle.Render(spinner(m.frame)+" TRANSCRIBING"))
	default:
		lines = append(lines, standbyStyle.Render("○ STANDBY"))
	}

	if m.modeLine != "" {
		lines = append(lines, dimStyle.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, standbyStyle.Render(m.deviceLine))
	}
	lines = append(lines, "")

	wrapWidth := max(m.width-6, 10)
	if m.lastText != "" {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount)))
		text := wrapText(m.lastText, wrapWidth)
		for i, line := range text {
			if i == len(text)-1 && m.pasted {
				line = textStyle.Render(line) + " " + pastedStyle.Render("[✓ pasted]")
			} else {
				line = textStyle.Render(line)
			}
			lines = append(lines, line)
		}
	} else {
		lines = append(lines, standbyStyle.Render("No transcriptions yet"))
	}

	lines = append(lines, "")
	lines = append(lines, keyStyle.Render(m.shortcut)+helpStyle.Render(" to record, q to quit"))
	lines = append(lines, helpStyle.Render("voice-ctrl "+version))

	return panelStyle.Width(m.width - 2).Render(strings.Join(lines, "\n"))
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

// tuiEvents forwards dictation events to the running program.
type tuiEvents struct{}

func sendTUI(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (tuiEvents) RecordingStart() { sendTUI(RecordingStartMsg{}) }
func (tuiEvents) Transcribing()   { sendTUI(TranscribingMsg{}) }
func (tuiEvents) Idle()           { sendTUI(IdleMsg{}) }
func (tuiEvents) Transcription(text string, pasted bool) {
	sendTUI(TranscriptionMsg{Text: text, Pasted: pasted})
}
