package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chapterqa/internal/domain"
	"chapterqa/internal/service"
)

// AskPort is the TUI-facing subset of the RAG service.
type AskPort interface {
	Ask(ctx context.Context, raw, question string) (*service.Answer, error)
}

type answerMsg struct {
	question string
	answer   *service.Answer
	err      error
}

// Model is the Bubble Tea model for the chat screen. The viewport shows the
// answer; tab switches to the retrieved source chunks, which up and down
// cycle through.
type Model struct {
	ctx         context.Context
	service     AskPort
	location    string
	chunkCount  int
	input       textinput.Model
	viewport    viewport.Model
	answer      string
	sources     []domain.ScoredChunk
	showSources bool
	cursor      int
	busy        bool
	status      string
	ready       bool
	lastQuery   string
}

// New creates a chat model for one submitted document.
func New(ctx context.Context, service AskPort, location string, chunkCount int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:        ctx,
		service:    service,
		location:   location,
		chunkCount: chunkCount,
		input:      ti,
		viewport:   vp,
		status:     "Ready. Tab toggles answer and sources.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.service.Ask(m.ctx, m.location, question)
		return answerMsg{question: question, answer: ans, err: err}
	}
}

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and location, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.answer, m.sources = "", nil
		} else {
			m.status = fmt.Sprintf("Answered %q from %d chunks", msg.question, len(msg.answer.Sources))
			m.answer = msg.answer.Text
			m.sources = msg.answer.Sources
			m.lastQuery = msg.question
		}
		m.cursor = 0
		m.showSources = false
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = "Thinking..."
				m.input.SetValue("")
				return m, m.ask(q)
			}
		case "tab":
			m.showSources = !m.showSources
			m.refresh()
			return m, nil
		case "down":
			if m.showSources && len(m.sources) > 0 {
				m.cursor = (m.cursor + 1) % len(m.sources)
				m.refresh()
				return m, nil
			}
		case "up":
			if m.showSources && len(m.sources) > 0 {
				m.cursor = (m.cursor - 1 + len(m.sources)) % len(m.sources)
				m.refresh()
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Chapter Q&A")
	doc := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(fmt.Sprintf("%s (%d chunks)", m.location, m.chunkCount))
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + doc + "\n" + results + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.render())
	m.viewport.GotoTop()
}

func (m Model) render() string {
	if !m.showSources {
		if m.answer == "" {
			return "No answer yet."
		}
		return m.answer
	}
	if len(m.sources) == 0 {
		return "No sources for the last answer."
	}
	r := m.sources[m.cursor]
	title := fmt.Sprintf("Source %d/%d  chunk=%d  score=%.3f", m.cursor+1, len(m.sources), r.Chunk.Index, r.Score)
	body := highlightBestSentence(r.Chunk.Text, m.lastQuery)
	return title + "\n\n" + body
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(trimAll(sentences), " ")
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
	sentences = trimAll(sentences)
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}
	return out
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
