package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"voxnote/internal/capture"
	"voxnote/internal/storage"
	"voxnote/models"
)

// ViewType is the screen currently shown.
type ViewType int

const (
	ViewRecorder ViewType = iota
	ViewHistory
)

var languages = []string{"auto", "te", "en"}

// Recorder is the capture controller driven by the UI.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() error
	Clear() error
	Process(ctx context.Context, fn capture.ProcessFunc) error
	State() capture.State
	Elapsed() int
}

// Processor runs the upload and processing pipeline.
type Processor interface {
	UploadAndProcess(ctx context.Context, file storage.File, userID string, opts models.ProcessingOptions) (*models.ProcessingResult, error)
}

// HistorySource lists and deletes the user's transcripts.
type HistorySource interface {
	List(ctx context.Context, userID string) ([]models.Transcript, error)
	Delete(ctx context.Context, transcriptID, userID string) error
}

type tickMsg time.Time

type processedMsg struct {
	result *models.ProcessingResult
	err    error
}

type historyMsg struct {
	transcripts []models.Transcript
	err         error
}

type deletedMsg struct {
	id  string
	err error
}

// Model is the recorder screen: capture controls, the latest result and history.
type Model struct {
	ctx       context.Context
	recorder  Recorder
	processor Processor
	history   HistorySource
	session   models.Session

	langIdx    int
	processing bool
	progress   string
	lastError  string
	result     *models.ProcessingResult

	transcripts   []models.Transcript
	cursor        int
	pendingDelete string

	currentView ViewType
	width       int
	quitting    bool
	styles      Styles
}

// NewModel creates the UI for session's user.
func NewModel(ctx context.Context, session models.Session, recorder Recorder, processor Processor, history HistorySource) Model {
	return Model{
		ctx:       ctx,
		recorder:  recorder,
		processor: processor,
		history:   history,
		session:   session,
		styles:    DefaultStyles(),
	}
}

// WithLanguage preselects the output language when it is supported.
func (m Model) WithLanguage(lang string) Model {
	for i, l := range languages {
		if l == lang {
			m.langIdx = i
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return m.loadHistory()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		if m.recorder.State() == capture.StateRecording {
			return m, tick()
		}
		return m, nil

	case processedMsg:
		m.processing = false
		m.progress = ""
		if msg.err != nil {
			m.lastError = errorText(msg.err)
			return m, nil
		}
		m.result = msg.result
		return m, m.loadHistory()

	case historyMsg:
		if msg.err != nil {
			m.lastError = "Failed to load history: " + errorText(msg.err)
			return m, nil
		}
		m.transcripts = msg.transcripts
		if m.cursor >= len(m.transcripts) {
			m.cursor = max(len(m.transcripts)-1, 0)
		}
		return m, nil

	case deletedMsg:
		if msg.err != nil {
			m.lastError = errorText(msg.err)
			return m, nil
		}
		if m.result != nil && m.result.TranscriptID == msg.id {
			m.result = nil
		}
		return m, m.loadHistory()
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.pendingDelete != "" {
		id := m.pendingDelete
		m.pendingDelete = ""
		if key == "y" {
			return m, m.deleteTranscript(id)
		}
		return m, nil
	}

	switch key {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "tab", "h":
		if m.currentView == ViewRecorder {
			m.currentView = ViewHistory
		} else {
			m.currentView = ViewRecorder
		}
		return m, nil
	}

	if m.currentView == ViewHistory {
		return m.handleHistoryKey(key)
	}
	return m.handleRecorderKey(key)
}

func (m Model) handleRecorderKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "r", " ":
		if m.processing {
			return m, nil
		}
		m.lastError = ""
		if m.recorder.State() == capture.StateRecording {
			if err := m.recorder.Stop(); err != nil {
				m.lastError = errorText(err)
			}
			return m, nil
		}
		if m.recorder.State() == capture.StateStopped {
			_ = m.recorder.Clear()
		}
		m.result = nil
		if err := m.recorder.Start(m.ctx); err != nil {
			m.lastError = errorText(err)
			return m, nil
		}
		return m, tick()

	case "p", "enter":
		if m.processing {
			return m, nil
		}
		if m.recorder.State() != capture.StateStopped {
			m.lastError = capture.ErrNoRecording.Error()
			return m, nil
		}
		m.lastError = ""
		m.result = nil
		m.processing = true
		m.progress = "Uploading audio file..."
		return m, m.processRecording()

	case "c":
		if !m.processing && m.recorder.State() == capture.StateStopped {
			_ = m.recorder.Clear()
		}
		return m, nil

	case "l":
		m.langIdx = (m.langIdx + 1) % len(languages)
		return m, nil
	}
	return m, nil
}

func (m Model) handleHistoryKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.transcripts)-1 {
			m.cursor++
		}
	case "enter":
		if t, ok := m.selected(); ok {
			res := models.ResultFromTranscript(t)
			m.result = &res
			m.currentView = ViewRecorder
		}
	case "d":
		if t, ok := m.selected(); ok {
			m.pendingDelete = t.ID
		}
	case "R":
		return m, m.loadHistory()
	}
	return m, nil
}

func (m Model) selected() (models.Transcript, bool) {
	if m.cursor < 0 || m.cursor >= len(m.transcripts) {
		return models.Transcript{}, false
	}
	return m.transcripts[m.cursor], true
}

// Options returns the processing options chosen in the UI.
func (m Model) Options() models.ProcessingOptions {
	return models.ProcessingOptions{
		ForceOutputLanguage: languages[m.langIdx],
		MaxLength:           models.DefaultMaxLength,
		MinLength:           models.DefaultMinLength,
	}
}

func (m Model) processRecording() tea.Cmd {
	ctx, recorder, processor := m.ctx, m.recorder, m.processor
	userID, opts := m.session.UserID, m.Options()
	return func() tea.Msg {
		var result *models.ProcessingResult
		err := recorder.Process(ctx, func(ctx context.Context, file storage.File) error {
			res, err := processor.UploadAndProcess(ctx, file, userID, opts)
			result = res
			return err
		})
		return processedMsg{result: result, err: err}
	}
}

func (m Model) loadHistory() tea.Cmd {
	ctx, history, userID := m.ctx, m.history, m.session.UserID
	return func() tea.Msg {
		transcripts, err := history.List(ctx, userID)
		return historyMsg{transcripts: transcripts, err: err}
	}
}

func (m Model) deleteTranscript(id string) tea.Cmd {
	ctx, history, userID := m.ctx, m.history, m.session.UserID
	return func() tea.Msg {
		return deletedMsg{id: id, err: history.Delete(ctx, id, userID)}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	var msg interface{ Message() string }
	if errors.As(err, &msg) {
		return msg.Message()
	}
	return err.Error()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("voxnote"))
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render("Signed in as " + m.session.Email))
	b.WriteString("\n\n")

	if m.currentView == ViewHistory {
		b.WriteString(m.renderHistory())
	} else {
		b.WriteString(m.renderRecorder())
	}

	if m.lastError != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.lastError))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderRecorder() string {
	var b strings.Builder

	switch m.recorder.State() {
	case capture.StateRecording:
		b.WriteString(m.styles.Recording.Render("● Recording " + capture.FormatElapsed(m.recorder.Elapsed())))
	case capture.StateStopped:
		b.WriteString(m.styles.Status.Render("Recording ready " + capture.FormatElapsed(m.recorder.Elapsed())))
	default:
		b.WriteString(m.styles.Muted.Render("Press r to start recording"))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("Output language: " + languages[m.langIdx]))
	b.WriteString("\n")

	if m.processing {
		b.WriteString("\n")
		b.WriteString(m.styles.Status.Render(m.progress))
		b.WriteString("\n")
	}

	if m.result != nil {
		b.WriteString("\n")
		b.WriteString(RenderResult(m.styles, *m.result))
	}
	return b.String()
}

func (m Model) renderHistory() string {
	if len(m.transcripts) == 0 {
		return m.styles.Muted.Render("No transcripts yet") + "\n"
	}

	var b strings.Builder
	for i, t := range m.transcripts {
		line := fmt.Sprintf("%s  [%s]  %s", t.CreatedAt.Local().Format("2006-01-02 15:04"), t.Language, Preview(t.TranscriptText, 50))
		if i == m.cursor {
			line = m.styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.pendingDelete != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render("Delete this transcript? (y/n)"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderHelp() string {
	keys := [][2]string{{"r", "record/stop"}, {"p", "process"}, {"c", "clear"}, {"l", "language"}, {"h", "history"}, {"q", "quit"}}
	if m.currentView == ViewHistory {
		keys = [][2]string{{"↑/↓", "select"}, {"enter", "open"}, {"d", "delete"}, {"R", "refresh"}, {"h", "recorder"}, {"q", "quit"}}
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, m.styles.Key.Render(k[0])+" "+m.styles.KeyDesc.Render(k[1]))
	}
	return strings.Join(parts, "  ")
}

// RenderResult formats a processing result for the terminal.
func RenderResult(styles Styles, res models.ProcessingResult) string {
	var b strings.Builder
	b.WriteString(styles.Success.Render("Transcript"))
	b.WriteString(styles.Muted.Render(" (" + res.Language + ")"))
	b.WriteString("\n")
	b.WriteString(res.Transcript)
	b.WriteString("\n\n")
	b.WriteString(styles.Success.Render("Summary"))
	b.WriteString("\n")
	if res.Summary == "" {
		b.WriteString(styles.Muted.Render("No summary available"))
	} else {
		b.WriteString(res.Summary)
	}
	return styles.Border.Render(b.String()) + "\n"
}

// Preview shortens text to n runes on one line.
func Preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
