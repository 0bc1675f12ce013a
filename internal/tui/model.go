package tui

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
	"docqa/internal/summarizer"
)

// Asker is the TUI-facing subset of the workspace.
type Asker interface {
	Ask(ctx context.Context, question string, history []domain.Message) (domain.RAGResponse, error)
}

type turn struct {
	question string
	answer   string
	sources  []domain.SearchResult
	err      error
}

type answerMsg struct {
	question string
	resp     domain.RAGResponse
	err      error
}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	asker    Asker
	timeout  time.Duration
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	turns    []turn
	history  []domain.Message
	summary  string
	status   string
	cursor   int
	busy     bool
	ready    bool
}

// New creates a new TUI model. summary is shown under the header.
func New(asker Asker, summary string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return Model{
		asker:    asker,
		timeout:  timeout,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		summary:  summary,
		status:   "Documents loaded. Ask anything.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around transcript and input boxes
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		t := turn{question: msg.question, answer: msg.resp.Answer, sources: msg.resp.Sources, err: msg.err}
		m.turns = append(m.turns, t)
		m.cursor = 0
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.history = append(m.history,
				domain.Message{Role: domain.RoleUser, Content: msg.question},
				domain.Message{Role: domain.RoleModel, Content: msg.resp.Answer})
			m.status = fmt.Sprintf("%d source(s). Up/Down to browse.", len(msg.resp.Sources))
		}
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.input.Reset()
			m.status = "Thinking..."
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		case "down":
			if n := len(m.lastSources()); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.refresh()
				return m, nil
			}
		case "up":
			if n := len(m.lastSources()); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.refresh()
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	history := slices.Clone(m.history)
	asker, timeout := m.asker, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := asker.Ask(ctx, q, history)
		return answerMsg{question: q, resp: resp, err: err}
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document Q&A")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	status = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) lastSources() []domain.SearchResult {
	if len(m.turns) == 0 {
		return nil
	}
	return m.turns[len(m.turns)-1].sources
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, t := range m.turns {
		b.WriteString(questionStyle.Render("You: " + t.question))
		b.WriteString("\n")
		if t.err != nil {
			b.WriteString(errorStyle.Render("Error: " + t.err.Error()))
		} else {
			b.WriteString(t.answer)
		}
		b.WriteString("\n")
		if i == len(m.turns)-1 && len(t.sources) > 0 {
			b.WriteString("\n")
			b.WriteString(m.renderSource(t))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderSource(t turn) string {
	r := t.sources[m.cursor]
	title := fmt.Sprintf("Source %d/%d  %s  similarity=%.3f", m.cursor+1, len(t.sources), r.Chunk.DocumentName, r.Similarity)
	body := highlightBestSentence(r.Chunk.Text, t.question)
	return sourceTitleStyle.Render(title) + "\n" + body
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceTitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	unicodeWordRe      = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := summarizer.Segments(text, 0)
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
